package viewstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"testinsure/internal/application/drafts"
	"testinsure/internal/domain/booking"
)

// maxUpdateAttempts bounds the optimistic retries of one Update.
const maxUpdateAttempts = 5

// ErrDraftContended is returned when other writers kept changing a draft for
// every attempt of an Update.
var ErrDraftContended = errors.New("booking draft changed concurrently")

// Drafts holds one JSON-encoded booking draft per client.
// Key format: testinsure:draft:<client id>
// INVARIANT: a draft expires drafts.IdleTimeout after its last update
type Drafts struct {
	client redis.UniversalClient
}

// NewDrafts creates a Redis-backed draft store.
func NewDrafts(client redis.UniversalClient) *Drafts {
	return &Drafts{client: client}
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// load reads a draft; a missing or undecodable value reads as a fresh draft.
func load(ctx context.Context, r stringGetter, key string) (booking.Draft, error) {
	b, err := r.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return booking.NewDraft(), nil
	}
	if err != nil {
		return booking.Draft{}, fmt.Errorf("redis get draft: %w", err)
	}
	var d booking.Draft
	if err := json.Unmarshal(b, &d); err != nil {
		slog.Warn("draft_undecodable", "key", key, "error", err.Error())
		return booking.NewDraft(), nil
	}
	return d, nil
}

// Get returns the client's draft, or a fresh one.
func (s *Drafts) Get(ctx context.Context, clientID string) (booking.Draft, error) {
	return load(ctx, s.client, draftKey(clientID))
}

// Update runs fn on the client's draft under WATCH and writes the result back
// in a MULTI/EXEC block. A write that lost a race is retried with a fresh read,
// so fn may run more than once.
// POST: fn's error is returned and the draft is left as fn modified it
func (s *Drafts) Update(ctx context.Context, clientID string, fn func(d *booking.Draft) error) error {
	key := draftKey(clientID)
	var fnErr error
	txf := func(tx *redis.Tx) error {
		d, err := load(ctx, tx, key)
		if err != nil {
			return err
		}
		fnErr = fn(&d)
		b, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("encode draft: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, drafts.IdleTimeout)
			return nil
		})
		return err
	}

	for range maxUpdateAttempts {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("redis update draft: %w", err)
		}
		return fnErr
	}
	return ErrDraftContended
}

// Reset discards the client's draft.
func (s *Drafts) Reset(ctx context.Context, clientID string) error {
	if err := s.client.Del(ctx, draftKey(clientID)).Err(); err != nil {
		return fmt.Errorf("redis del draft: %w", err)
	}
	return nil
}

func draftKey(clientID string) string {
	return "testinsure:draft:" + clientID
}
