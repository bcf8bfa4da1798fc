package sessions

import (
	"context"
	"errors"
	"sync"
	"testing"

	"testinsure/internal/domain/account"
	"testinsure/internal/domain/session"
	"testinsure/internal/domain/theme"
)

// mockStateStore is an in-memory StateStore.
type mockStateStore struct {
	mu      sync.Mutex
	data    map[string]map[string]string
	failGet bool
	failSet bool
}

func newMockStore() *mockStateStore {
	return &mockStateStore{data: make(map[string]map[string]string)}
}

// Get implements StateStore for testing.
func (m *mockStateStore) Get(ctx context.Context, clientID string, keys ...string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return nil, errors.New("storage down")
	}
	out := map[string]string{}
	for _, k := range keys {
		if v, ok := m.data[clientID][k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

// SetMany implements StateStore for testing.
func (m *mockStateStore) SetMany(ctx context.Context, clientID string, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet {
		return errors.New("storage down")
	}
	if m.data[clientID] == nil {
		m.data[clientID] = map[string]string{}
	}
	for k, v := range values {
		m.data[clientID][k] = v
	}
	return nil
}

// Delete implements StateStore for testing.
func (m *mockStateStore) Delete(ctx context.Context, clientID string, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data[clientID], k)
	}
	return nil
}

// TestRestore_Empty tests that no persisted state restores as an absent session.
func TestRestore_Empty(t *testing.T) {
	svc := NewService(newMockStore())
	v, err := svc.Restore(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !v.Restored || v.Present() {
		t.Errorf("expected restored absent session, got %+v", v)
	}
}

// TestLoginThenRestore tests that a new request sees the persisted session.
func TestLoginThenRestore(t *testing.T) {
	store := newMockStore()
	svc := NewService(store)
	ctx := context.Background()

	sess, err := svc.Login(ctx, "c1", account.AuthResponse{Token: "t", Role: "ADMIN", Name: "Ana"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.Role != session.RoleAdmin {
		t.Errorf("role = %s, want ADMIN", sess.Role)
	}

	v, err := svc.Restore(ctx, "c1")
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !v.Present() || v.Session.Token != "t" || v.Session.Name != "Ana" {
		t.Errorf("unexpected restored view %+v", v)
	}
}

// TestLogin_UnknownRolePersistsNothing tests that a rejected login leaves storage untouched.
func TestLogin_UnknownRolePersistsNothing(t *testing.T) {
	store := newMockStore()
	svc := NewService(store)
	_, err := svc.Login(context.Background(), "c1", account.AuthResponse{Token: "t", Role: "NURSE", Name: "N"})
	if !errors.Is(err, session.ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
	if len(store.data["c1"]) != 0 {
		t.Errorf("expected nothing persisted, got %v", store.data["c1"])
	}
}

// TestLogin_StorageFailure tests that no session is returned when persistence fails.
func TestLogin_StorageFailure(t *testing.T) {
	store := newMockStore()
	store.failSet = true
	svc := NewService(store)
	if _, err := svc.Login(context.Background(), "c1", account.AuthResponse{Token: "t", Role: "PATIENT"}); err == nil {
		t.Fatal("expected error")
	}
}

// TestRestore_UnknownRoleIsAbsent tests a tampered role.
func TestRestore_UnknownRoleIsAbsent(t *testing.T) {
	store := newMockStore()
	store.data["c1"] = map[string]string{"token": "t", "role": "SUPERUSER", "name": "x"}
	v, err := NewService(store).Restore(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !v.Restored || v.Present() {
		t.Errorf("expected absent session, got %+v", v)
	}
}

// TestRestore_StorageFailureNotRestored tests that a failed read never looks like a logged-out user.
func TestRestore_StorageFailureNotRestored(t *testing.T) {
	store := newMockStore()
	store.failGet = true
	v, err := NewService(store).Restore(context.Background(), "c1")
	if err == nil {
		t.Fatal("expected error")
	}
	if v.Restored {
		t.Error("view must not be restored after a storage failure")
	}
}

// TestLogout_IdempotentKeepsTheme tests logout twice and theme survival.
func TestLogout_IdempotentKeepsTheme(t *testing.T) {
	store := newMockStore()
	svc := NewService(store)
	ctx := context.Background()
	store.data["c1"] = map[string]string{theme.KeyMode: theme.ModeDark}
	if _, err := svc.Login(ctx, "c1", account.AuthResponse{Token: "t", Role: "PATIENT", Name: "P"}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := svc.Logout(ctx, "c1"); err != nil {
			t.Fatalf("Logout %d: %v", i+1, err)
		}
	}
	v, _ := svc.Restore(ctx, "c1")
	if v.Present() {
		t.Error("session should be absent after logout")
	}
	if store.data["c1"][theme.KeyMode] != theme.ModeDark {
		t.Error("logout must not clear the theme preference")
	}
}
