// Package drafts keeps each patient's in-progress booking between requests.
package drafts

import (
	"context"
	"slices"
	"sync"
	"time"

	"testinsure/internal/domain/booking"
)

// IdleTimeout is how long an untouched draft survives.
const IdleTimeout = 2 * time.Hour

type held struct {
	draft   booking.Draft
	touched time.Time
}

// Store holds one booking draft per client in process memory. Safe for
// concurrent use. It serves a single web process; replicas share drafts through
// the Redis store in adapters/storage/viewstate instead.
// INVARIANT: every mutation of a client's draft happens under the store lock,
// so the draft's selection token orders concurrent test selections.
type Store struct {
	mu     sync.Mutex
	drafts map[string]*held
	now    func() time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{drafts: make(map[string]*held), now: time.Now}
}

// Get returns a copy of the client's draft, or a fresh one.
func (s *Store) Get(_ context.Context, clientID string) (booking.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.drafts[clientID]
	if !ok {
		return booking.NewDraft(), nil
	}
	d := h.draft
	d.Slots = slices.Clone(d.Slots)
	return d, nil
}

// Update applies fn to the client's draft and stores the result.
// POST: fn's error is returned and the draft is left as fn modified it
func (s *Store) Update(_ context.Context, clientID string, fn func(d *booking.Draft) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	h, ok := s.drafts[clientID]
	if !ok {
		h = &held{draft: booking.NewDraft()}
		s.drafts[clientID] = h
	}
	h.touched = s.now()
	return fn(&h.draft)
}

// Reset discards the client's draft.
func (s *Store) Reset(_ context.Context, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, clientID)
	return nil
}

func (s *Store) pruneLocked() {
	cutoff := s.now().Add(-IdleTimeout)
	for id, h := range s.drafts {
		if h.touched.Before(cutoff) {
			delete(s.drafts, id)
		}
	}
}
