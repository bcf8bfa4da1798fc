// Package themes keeps each client's light/dark preference.
package themes

import (
	"context"
	"fmt"
	"log/slog"

	"testinsure/internal/domain/theme"
)

// StateStore is the durable client state the preference lives in.
type StateStore interface {
	Get(ctx context.Context, clientID string, keys ...string) (map[string]string, error)
	SetMany(ctx context.Context, clientID string, values map[string]string) error
}

// Service is the theme store of the web client.
type Service struct {
	store StateStore
}

// NewService creates a Service over store.
func NewService(store StateStore) *Service {
	return &Service{store: store}
}

// Restore returns the persisted preference.
// POST: light when nothing is stored or storage fails
func (s *Service) Restore(ctx context.Context, clientID string) theme.Preference {
	vals, err := s.store.Get(ctx, clientID, theme.KeyMode)
	if err != nil {
		slog.Warn("theme_restore_failed", "client_id", clientID, "error", err.Error())
		return theme.Preference{}
	}
	return theme.Parse(vals[theme.KeyMode])
}

// Toggle flips the preference and persists it.
// POST: the returned preference is the one now stored
func (s *Service) Toggle(ctx context.Context, clientID string) (theme.Preference, error) {
	next := s.Restore(ctx, clientID).Toggled()
	if err := s.store.SetMany(ctx, clientID, map[string]string{theme.KeyMode: next.Mode()}); err != nil {
		return theme.Preference{}, fmt.Errorf("persist theme: %w", err)
	}
	return next, nil
}
