package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"testinsure/internal/adapters/api"
	"testinsure/internal/application/validation"
	"testinsure/internal/domain/account"
	"testinsure/internal/domain/session"
)

// AuthAPI is the remote authentication surface.
type AuthAPI interface {
	Login(ctx context.Context, creds account.Credentials) (account.AuthResponse, error)
	Register(ctx context.Context, reg account.Registration) (account.AuthResponse, error)
}

// SessionStarter persists a freshly issued session.
type SessionStarter interface {
	Login(ctx context.Context, clientID string, resp account.AuthResponse) (session.Session, error)
}

// LoginInput carries input for the login orchestrator.
type LoginInput struct {
	ClientID string
	Email    string
	Password string
}

// LoginDeps holds dependencies for Login.
type LoginDeps struct {
	Auth     AuthAPI
	Sessions SessionStarter
}

var (
	ErrInvalidCredentials = errors.New("Invalid Credentials.")
	ErrRegistrationFailed = errors.New("Registration failed. Email might be in use.")
)

// ExecuteLogin exchanges credentials for a session and persists it.
// PRE: ClientID identifies the browser
// POST: on success the session is durable before it is returned
// INVARIANT: nothing is persisted when the remote API refuses the credentials
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (session.Session, error) {
	creds := account.Credentials{Email: strings.TrimSpace(input.Email), Password: input.Password}
	if err := validation.Struct(creds); err != nil {
		slog.Info("auth_event", "event", "login_failed", "email", creds.Email, "reason", "invalid_form")
		return session.Session{}, ErrInvalidCredentials
	}

	resp, err := deps.Auth.Login(ctx, creds)
	if err != nil {
		slog.Info("auth_event", "event", "login_failed", "email", creds.Email, "reason", "remote_refused")
		if isClientError(err) {
			return session.Session{}, ErrInvalidCredentials
		}
		return session.Session{}, err
	}
	return deps.Sessions.Login(ctx, input.ClientID, resp)
}

// RegisterInput carries input for the register orchestrator.
type RegisterInput struct {
	ClientID     string
	Registration account.Registration
}

// ExecuteRegister creates a patient account and signs it in.
// PRE: ClientID identifies the browser
// POST: returns a *validation.Error without calling the API when the form is invalid
func ExecuteRegister(ctx context.Context, input RegisterInput, deps LoginDeps) (session.Session, error) {
	reg := input.Registration
	reg.Normalize()
	if err := validation.Struct(reg); err != nil {
		return session.Session{}, err
	}

	resp, err := deps.Auth.Register(ctx, reg)
	if err != nil {
		slog.Info("auth_event", "event", "register_failed", "email", reg.Email)
		if isClientError(err) {
			return session.Session{}, ErrRegistrationFailed
		}
		return session.Session{}, err
	}
	slog.Info("auth_event", "event", "register_success", "email", reg.Email)
	return deps.Sessions.Login(ctx, input.ClientID, resp)
}

// isClientError reports whether the remote API answered with a 4xx.
func isClientError(err error) bool {
	var apiErr *api.Error
	return errors.As(err, &apiErr) && apiErr.StatusCode >= http.StatusBadRequest && apiErr.StatusCode < http.StatusInternalServerError
}
