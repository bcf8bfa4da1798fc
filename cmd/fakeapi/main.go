// Command fakeapi serves an in-memory copy of the remote hospital API for
// local development against the web client.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sethvargo/go-envconfig"

	"testinsure/internal/adapters/api/fakeapi"
	"testinsure/internal/adapters/logging"
	"testinsure/internal/config"
)

type settings struct {
	Addr      string `env:"FAKEAPI_ADDR, default=:8080"`
	Secret    string `env:"FAKEAPI_SECRET, default=fakeapi-dev-secret"`
	Seed      bool   `env:"FAKEAPI_SEED, default=true"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
	LogFormat string `env:"LOG_FORMAT, default=text"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config.LoadDotEnv()
	var s settings
	if err := envconfig.Process(ctx, &s); err != nil {
		slog.Error("fakeapi_config", "error", err.Error())
		os.Exit(1)
	}
	logger := logging.New(logging.Config{Service: "testinsure-fakeapi", Version: "dev", Env: "development", Level: s.LogLevel, Format: s.LogFormat})

	api := fakeapi.New([]byte(s.Secret))
	if s.Seed {
		if err := api.Seed(); err != nil {
			logger.Error("fakeapi_seed", "error", err.Error())
			os.Exit(1)
		}
		logger.Info("fakeapi_seeded", "admin", fakeapi.DemoAdminEmail, "patient", fakeapi.DemoPatientEmail)
	}

	srv := &http.Server{Addr: s.Addr, Handler: api.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("fakeapi_start", "addr", s.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("fakeapi_exit", "error", err.Error())
		os.Exit(1)
	}
}
