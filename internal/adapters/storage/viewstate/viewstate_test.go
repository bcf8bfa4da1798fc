package viewstate

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testinsure/internal/application/drafts"
	"testinsure/internal/application/flash"
	"testinsure/internal/domain/booking"
	"testinsure/internal/domain/notification"
	"testinsure/internal/domain/slot"
)

// newReplicaClients returns n independent clients of one Redis, one per web replica.
func newReplicaClients(t *testing.T, n int) ([]*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	clients := make([]*redis.Client, n)
	for i := range clients {
		c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = c.Close() })
		clients[i] = c
	}
	return clients, mr
}

func TestNotices_PushOnOneReplicaDrainOnAnother(t *testing.T) {
	clients, _ := newReplicaClients(t, 2)
	a, b := NewNotices(clients[0]), NewNotices(clients[1])
	ctx := context.Background()

	require.NoError(t, a.Push(ctx, "c1", notification.Error("Failed.")))
	require.NoError(t, a.Push(ctx, "c1", notification.Success("Claim Approved")))
	require.NoError(t, a.Push(ctx, "c2", notification.Info("other")))

	got, err := b.Drain(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []notification.Notification{
		notification.Error("Failed."),
		notification.Success("Claim Approved"),
	}, got)

	again, err := a.Drain(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, again, "a notification is shown once across replicas")

	other, err := b.Drain(ctx, "c2")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestNotices_IgnoresEmpty(t *testing.T) {
	clients, mr := newReplicaClients(t, 1)
	q := NewNotices(clients[0])
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, "", notification.Info("x")))
	require.NoError(t, q.Push(ctx, "c1", notification.Info("")))
	assert.Empty(t, mr.Keys())
}

func TestNotices_KeepsNewestAndExpires(t *testing.T) {
	clients, mr := newReplicaClients(t, 1)
	q := NewNotices(clients[0])
	ctx := context.Background()

	for i := range flash.MaxPerClient + 3 {
		require.NoError(t, q.Push(ctx, "c1", notification.Info(fmt.Sprintf("m%d", i))))
	}
	assert.Equal(t, flash.MaxAge, mr.TTL("testinsure:notices:c1"))

	got, err := q.Drain(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got, flash.MaxPerClient)
	assert.Equal(t, "m3", got[0].Message)
}

func TestNotices_DropsStaleEntries(t *testing.T) {
	clients, _ := newReplicaClients(t, 1)
	q := NewNotices(clients[0])
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return now }

	require.NoError(t, q.Push(ctx, "c1", notification.Info("old")))
	now = now.Add(flash.MaxAge + time.Second)
	require.NoError(t, q.Push(ctx, "c1", notification.Info("new")))

	got, err := q.Drain(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []notification.Notification{notification.Info("new")}, got)
}

func TestNotices_Unreachable(t *testing.T) {
	clients, mr := newReplicaClients(t, 1)
	q := NewNotices(clients[0])
	mr.Close()

	assert.Error(t, q.Push(context.Background(), "c1", notification.Info("x")))
	_, err := q.Drain(context.Background(), "c1")
	assert.Error(t, err)
}

func TestDrafts_FreshDraft(t *testing.T) {
	clients, _ := newReplicaClients(t, 1)
	d, err := NewDrafts(clients[0]).Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, booking.NewDraft(), d)
}

func TestDrafts_SelectionOnOneReplicaSubmitsOnAnother(t *testing.T) {
	clients, mr := newReplicaClients(t, 2)
	a, b := NewDrafts(clients[0]), NewDrafts(clients[1])
	ctx := context.Background()

	require.NoError(t, a.Update(ctx, "c1", func(d *booking.Draft) error {
		d.ApplySlots(d.SelectTest(4), []slot.Slot{{ID: 41, Capacity: 2}})
		return nil
	}))
	assert.Equal(t, drafts.IdleTimeout, mr.TTL("testinsure:draft:c1"))

	var req booking.Request
	require.NoError(t, b.Update(ctx, "c1", func(d *booking.Draft) error {
		if err := d.SelectSlot(41); err != nil {
			return err
		}
		r, err := d.Request()
		req = r
		return err
	}))
	assert.Equal(t, booking.Request{TestID: 4, SlotID: 41}, req)
}

func TestDrafts_UpdateReturnsFnError(t *testing.T) {
	clients, _ := newReplicaClients(t, 1)
	s := NewDrafts(clients[0])
	ctx := context.Background()

	err := s.Update(ctx, "c1", func(d *booking.Draft) error { return d.SelectSlot(99) })
	assert.ErrorIs(t, err, booking.ErrUnknownSlot)
}

func TestDrafts_LateSlotsAfterResetAreRefused(t *testing.T) {
	clients, _ := newReplicaClients(t, 2)
	a, b := NewDrafts(clients[0]), NewDrafts(clients[1])
	ctx := context.Background()

	var tokA string
	require.NoError(t, a.Update(ctx, "c1", func(d *booking.Draft) error { tokA = d.SelectTest(1); return nil }))
	require.NoError(t, b.Reset(ctx, "c1"))
	require.NoError(t, b.Update(ctx, "c1", func(d *booking.Draft) error { d.SelectTest(2); return nil }))

	var applied bool
	require.NoError(t, a.Update(ctx, "c1", func(d *booking.Draft) error {
		applied = d.ApplySlots(tokA, []slot.Slot{{ID: 100, Capacity: 4}})
		return nil
	}))
	assert.False(t, applied)

	d, err := b.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), d.TestID)
	assert.Empty(t, d.Slots)
}

func TestDrafts_ConflictingWriteIsRetried(t *testing.T) {
	clients, _ := newReplicaClients(t, 2)
	s, other := NewDrafts(clients[0]), NewDrafts(clients[1])
	ctx := context.Background()

	calls := 0
	err := s.Update(ctx, "c1", func(d *booking.Draft) error {
		calls++
		if calls == 1 {
			// Another replica writes between our read and our EXEC.
			require.NoError(t, other.Update(ctx, "c1", func(d *booking.Draft) error {
				return d.SelectPayment(booking.PaymentInsurance, 7)
			}))
		}
		d.SelectTest(5)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	d, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), d.TestID)
	assert.Equal(t, booking.PaymentInsurance, d.Payment, "the retry starts from the other replica's write")
}

func TestDrafts_UndecodableValueReadsFresh(t *testing.T) {
	clients, mr := newReplicaClients(t, 1)
	require.NoError(t, mr.Set("testinsure:draft:c1", "{not json"))

	d, err := NewDrafts(clients[0]).Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, booking.NewDraft(), d)
}

func TestDrafts_Unreachable(t *testing.T) {
	clients, mr := newReplicaClients(t, 1)
	s := NewDrafts(clients[0])
	mr.Close()

	_, err := s.Get(context.Background(), "c1")
	assert.Error(t, err)
	err = s.Update(context.Background(), "c1", func(*booking.Draft) error { return nil })
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrDraftContended))
}
