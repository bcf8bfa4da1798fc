// Package clientstate persists the small per-browser key/value state the web
// client keeps between requests: the session fields and the theme preference.
package clientstate

import (
	"context"
	"errors"
)

// ErrEmptyClientID is returned when a call is made without a client id.
var ErrEmptyClientID = errors.New("client id is required")

// Store persists string values per client id and key.
// Missing keys are omitted from Get results rather than reported as errors.
type Store interface {
	Get(ctx context.Context, clientID string, keys ...string) (map[string]string, error)
	// SetMany writes all values or none.
	SetMany(ctx context.Context, clientID string, values map[string]string) error
	// Delete removes keys; absent keys are not an error.
	Delete(ctx context.Context, clientID string, keys ...string) error
}
