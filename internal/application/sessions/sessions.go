// Package sessions restores, creates and clears the per-client session held in
// durable client state.
package sessions

import (
	"context"
	"fmt"
	"log/slog"

	"testinsure/internal/adapters/metrics"
	"testinsure/internal/domain/account"
	"testinsure/internal/domain/session"
)

// StateStore is the durable client state the session lives in.
type StateStore interface {
	Get(ctx context.Context, clientID string, keys ...string) (map[string]string, error)
	SetMany(ctx context.Context, clientID string, values map[string]string) error
	Delete(ctx context.Context, clientID string, keys ...string) error
}

// Service is the session store of the web client.
type Service struct {
	store StateStore
}

// NewService creates a Service over store.
func NewService(store StateStore) *Service {
	return &Service{store: store}
}

// Restore reads the session persisted for clientID.
// PRE: clientID is non-empty
// POST: on success the view is Restored; a persisted triple with an empty token
// or an unknown role restores as absent
// POST: on a storage error the view is not Restored
func (s *Service) Restore(ctx context.Context, clientID string) (session.View, error) {
	vals, err := s.store.Get(ctx, clientID, session.Keys...)
	if err != nil {
		return session.View{}, fmt.Errorf("restore session: %w", err)
	}
	token := vals[session.KeyToken]
	if token == "" {
		return session.View{Restored: true}, nil
	}
	sess, err := session.New(token, vals[session.KeyRole], vals[session.KeyName])
	if err != nil {
		slog.Warn("session_event", "event", "restore_discarded", "client_id", clientID, "reason", err.Error())
		return session.View{Restored: true}, nil
	}
	metrics.SessionEventsTotal.WithLabelValues("restored").Inc()
	return session.View{Restored: true, Session: &sess}, nil
}

// Login persists the triple returned by the auth endpoint and returns the session.
// PRE: resp came from a successful login or register call
// POST: the three fields are durable before the session is returned
// INVARIANT: nothing is persisted when the role is unknown or the token empty
func (s *Service) Login(ctx context.Context, clientID string, resp account.AuthResponse) (session.Session, error) {
	sess, err := session.New(resp.Token, resp.Role, resp.Name)
	if err != nil {
		return session.Session{}, err
	}
	if err := s.store.SetMany(ctx, clientID, sess.Fields()); err != nil {
		return session.Session{}, fmt.Errorf("persist session: %w", err)
	}
	metrics.SessionEventsTotal.WithLabelValues("login").Inc()
	slog.Info("auth_event", "event", "login_success", "client_id", clientID, "role", string(sess.Role))
	return sess, nil
}

// Logout removes the session fields for clientID. Other client state is kept.
// POST: the session is absent; calling it again is a no-op
func (s *Service) Logout(ctx context.Context, clientID string) error {
	if err := s.store.Delete(ctx, clientID, session.Keys...); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	metrics.SessionEventsTotal.WithLabelValues("logout").Inc()
	slog.Info("auth_event", "event", "logout", "client_id", clientID)
	return nil
}
