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

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"testinsure/internal/adapters/api"
	web "testinsure/internal/adapters/http"
	"testinsure/internal/adapters/logging"
	"testinsure/internal/adapters/metrics"
	"testinsure/internal/adapters/storage"
	"testinsure/internal/adapters/storage/clientstate"
	"testinsure/internal/adapters/storage/viewstate"
	"testinsure/internal/application/drafts"
	"testinsure/internal/application/flash"
	"testinsure/internal/application/sessions"
	"testinsure/internal/application/themes"
	"testinsure/internal/config"
	"testinsure/internal/domain/session"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("server_exit", "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config.LoadDotEnv()
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	logger := logging.New(logging.Config{
		Service: "testinsure-web",
		Version: version,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer be.close()

	sealed, err := clientstate.NewSealedStore(be.state, cfg.StateKey(), session.KeyToken)
	if err != nil {
		return err
	}

	srv, err := web.NewServer(web.Deps{
		API:      api.New(cfg.API.BaseURL, cfg.API.Timeout),
		Sessions: sessions.NewService(sealed),
		Themes:   themes.NewService(sealed),
		Notices:  be.notices,
		Drafts:   be.drafts,
		Logger:   logger,
		Health:   be.health,
		Metrics:  promhttp.Handler(),
	}, web.Options{
		CSRFKey:            cfg.CSRFKey(),
		SecureCookies:      cfg.Production(),
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
		SlowRequest:        cfg.SlowRequest,
		Location:           cfg.Location(),
		Version:            version,
	})
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      cfg.API.Timeout + 30*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_start", "addr", cfg.Addr, "api", cfg.API.BaseURL, "state_backend", cfg.State.Backend)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("server_shutdown", "grace", cfg.ShutdownGrace.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// backend is the per-browser state of one configured storage backend.
type backend struct {
	state   clientstate.Store
	notices web.Notifier
	drafts  web.DraftStore
	health  func(context.Context) error
	close   func()
}

// openBackend connects the configured client-state backend. With Redis, the
// notification queue and booking drafts live there too so replicas share them;
// the sqlite backend serves a single process and keeps them in memory.
// POST: close releases the backend; health pings it
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (backend, error) {
	switch cfg.State.Backend {
	case config.BackendRedis:
		client, err := clientstate.ConnectRedis(ctx, clientstate.RedisConfig{
			Addr:    cfg.State.RedisAddr,
			DB:      cfg.State.RedisDB,
			Timeout: cfg.State.PingTimeout,
		})
		if err != nil {
			return backend{}, err
		}
		return backend{
			state:   clientstate.NewRedisStore(client, cfg.State.IdleTTL),
			notices: viewstate.NewNotices(client),
			drafts:  viewstate.NewDrafts(client),
			health:  func(ctx context.Context) error { return client.Ping(ctx).Err() },
			close:   func() { _ = client.Close() },
		}, nil

	default:
		db, err := storage.Open(cfg.State.DBPath)
		if err != nil {
			return backend{}, err
		}
		if err := storage.InitDB(db); err != nil {
			_ = db.Close()
			return backend{}, err
		}
		timed := storage.NewTimedDB(db, metrics.QueryObserver{}, 0)
		purged, err := storage.PurgeIdle(ctx, timed, time.Now(), cfg.State.IdleTTL)
		if err != nil {
			_ = db.Close()
			return backend{}, err
		}
		logger.Info("state_purged", "rows", purged, "idle", cfg.State.IdleTTL.String())
		return backend{
			state:   clientstate.NewSQLiteStore(timed),
			notices: flash.NewQueue(),
			drafts:  drafts.NewStore(),
			health:  timed.Ping,
			close:   func() { _ = timed.Close() },
		}, nil
	}
}
