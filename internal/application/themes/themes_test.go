package themes

import (
	"context"
	"errors"
	"testing"

	"testinsure/internal/domain/theme"
)

type mapStore struct {
	data map[string]string
	err  error
}

func (m *mapStore) Get(ctx context.Context, clientID string, keys ...string) (map[string]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := map[string]string{}
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *mapStore) SetMany(ctx context.Context, clientID string, values map[string]string) error {
	if m.err != nil {
		return m.err
	}
	for k, v := range values {
		m.data[k] = v
	}
	return nil
}

// TestRestore_DefaultLight tests the default.
func TestRestore_DefaultLight(t *testing.T) {
	svc := NewService(&mapStore{data: map[string]string{}})
	if svc.Restore(context.Background(), "c1").Dark {
		t.Error("default should be light")
	}
}

// TestToggle_Persists tests that toggling twice returns to light and is stored each time.
func TestToggle_Persists(t *testing.T) {
	store := &mapStore{data: map[string]string{}}
	svc := NewService(store)
	ctx := context.Background()

	p, err := svc.Toggle(ctx, "c1")
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !p.Dark || store.data[theme.KeyMode] != theme.ModeDark {
		t.Errorf("expected dark persisted, got %+v / %q", p, store.data[theme.KeyMode])
	}
	if !svc.Restore(ctx, "c1").Dark {
		t.Error("restore should see dark")
	}

	p, _ = svc.Toggle(ctx, "c1")
	if p.Dark || store.data[theme.KeyMode] != theme.ModeLight {
		t.Errorf("expected light persisted, got %+v", p)
	}
}

// TestRestore_StorageFailure tests the light fallback.
func TestRestore_StorageFailure(t *testing.T) {
	svc := NewService(&mapStore{err: errors.New("down")})
	if svc.Restore(context.Background(), "c1").Dark {
		t.Error("storage failure should fall back to light")
	}
	if _, err := svc.Toggle(context.Background(), "c1"); err == nil {
		t.Error("toggle should report the storage failure")
	}
}
