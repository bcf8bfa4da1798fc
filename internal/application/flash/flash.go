// Package flash queues one-shot notifications per client until the next page render.
package flash

import (
	"context"
	"sync"
	"time"

	"testinsure/internal/domain/notification"
)

// MaxPerClient bounds the queue of a single client; older entries are dropped first.
const MaxPerClient = 10

// MaxAge is how long an undrained notification is kept.
const MaxAge = 10 * time.Minute

type entry struct {
	n     notification.Notification
	added time.Time
}

// Queue holds pending notifications keyed by client id in process memory.
// Safe for concurrent use. Replicas share notifications through the Redis queue
// in adapters/storage/viewstate instead.
type Queue struct {
	mu      sync.Mutex
	pending map[string][]entry
	now     func() time.Time
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{pending: make(map[string][]entry), now: time.Now}
}

// Push appends n to the client's queue.
// POST: an empty client id or message is ignored
func (q *Queue) Push(_ context.Context, clientID string, n notification.Notification) error {
	if clientID == "" || n.Message == "" {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	list := append(q.pending[clientID], entry{n: n, added: q.now()})
	if len(list) > MaxPerClient {
		list = list[len(list)-MaxPerClient:]
	}
	q.pending[clientID] = list
	q.pruneLocked()
	return nil
}

// Drain returns and removes the client's pending notifications in push order.
func (q *Queue) Drain(_ context.Context, clientID string) ([]notification.Notification, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	list := q.pending[clientID]
	delete(q.pending, clientID)
	cutoff := q.now().Add(-MaxAge)
	out := make([]notification.Notification, 0, len(list))
	for _, e := range list {
		if e.added.After(cutoff) {
			out = append(out, e.n)
		}
	}
	return out, nil
}

func (q *Queue) pruneLocked() {
	cutoff := q.now().Add(-MaxAge)
	for id, list := range q.pending {
		if len(list) > 0 && !list[len(list)-1].added.After(cutoff) {
			delete(q.pending, id)
		}
	}
}
