// Package viewstate keeps the short-lived per-browser view state (pending
// notifications and the booking draft) in Redis so that every web replica sees
// the same state for a browser.
package viewstate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"testinsure/internal/application/flash"
	"testinsure/internal/domain/notification"
)

// storedNotice is one list element.
type storedNotice struct {
	Kind    notification.Kind `json:"kind"`
	Message string            `json:"message"`
	At      int64             `json:"at"` // unix millis
}

// Notices queues one-shot notifications in one Redis list per client.
// Key format: testinsure:notices:<client id>
// INVARIANT: a list holds at most flash.MaxPerClient entries and expires
// flash.MaxAge after its last push
type Notices struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewNotices creates a Redis-backed notification queue.
func NewNotices(client redis.UniversalClient) *Notices {
	return &Notices{client: client, now: time.Now}
}

// Push appends n to the client's list, trimming the oldest entries.
// POST: an empty client id or message is ignored
func (q *Notices) Push(ctx context.Context, clientID string, n notification.Notification) error {
	if clientID == "" || n.Message == "" {
		return nil
	}
	b, err := json.Marshal(storedNotice{Kind: n.Kind, Message: n.Message, At: q.now().UnixMilli()})
	if err != nil {
		return fmt.Errorf("encode notice: %w", err)
	}
	key := noticesKey(clientID)
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, b)
		pipe.LTrim(ctx, key, -flash.MaxPerClient, -1)
		pipe.Expire(ctx, key, flash.MaxAge)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis push notice: %w", err)
	}
	return nil
}

// Drain reads and deletes the client's list in one MULTI/EXEC block, so a
// notification is delivered to at most one page render across all replicas.
// POST: entries older than flash.MaxAge are dropped; order is push order
func (q *Notices) Drain(ctx context.Context, clientID string) ([]notification.Notification, error) {
	key := noticesKey(clientID)
	var items *redis.StringSliceCmd
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		items = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis drain notices: %w", err)
	}

	cutoff := q.now().Add(-flash.MaxAge).UnixMilli()
	out := make([]notification.Notification, 0, len(items.Val()))
	for _, raw := range items.Val() {
		var sn storedNotice
		if err := json.Unmarshal([]byte(raw), &sn); err != nil {
			slog.Warn("notice_undecodable", "error", err.Error())
			continue
		}
		if sn.At > cutoff {
			out = append(out, notification.Notification{Kind: sn.Kind, Message: sn.Message})
		}
	}
	return out, nil
}

func noticesKey(clientID string) string {
	return "testinsure:notices:" + clientID
}
