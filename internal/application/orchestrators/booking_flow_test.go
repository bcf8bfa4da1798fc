package orchestrators

import (
	"context"
	"errors"
	"testing"

	"testinsure/internal/application/drafts"
	"testinsure/internal/domain/booking"
	"testinsure/internal/domain/slot"
)

// mockSlotLister implements SlotLister for testing.
type mockSlotLister struct {
	slots  map[int64][]slot.Slot
	err    error
	during func(testID int64)
}

// ListSlots implements SlotLister.
func (m *mockSlotLister) ListSlots(_ context.Context, testID int64) ([]slot.Slot, error) {
	if m.during != nil {
		hook := m.during
		m.during = nil
		hook(testID)
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.slots[testID], nil
}

// mockBookingCreator implements BookingCreator for testing.
type mockBookingCreator struct {
	requests []booking.Request
	err      error
}

// CreateBooking implements BookingCreator.
func (m *mockBookingCreator) CreateBooking(_ context.Context, req booking.Request) (booking.Booking, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return booking.Booking{}, m.err
	}
	return booking.Booking{ID: 99, Status: booking.StatusConfirmed}, nil
}

func catalogSlots() map[int64][]slot.Slot {
	return map[int64][]slot.Slot{
		1: {{ID: 11, Date: "2030-01-01", StartTime: "09:00:00", Capacity: 5}},
		2: {{ID: 21, Date: "2030-01-02", StartTime: "10:00:00", Capacity: 5}, {ID: 22, Date: "2030-01-02", StartTime: "11:00:00", Capacity: 0}},
	}
}

// TestExecuteSelectTest_LoadsSlots tests the happy path.
func TestExecuteSelectTest_LoadsSlots(t *testing.T) {
	store := drafts.NewStore()
	deps := SelectTestDeps{Slots: &mockSlotLister{slots: catalogSlots()}, Drafts: store}
	if err := ExecuteSelectTest(context.Background(), SelectTestInput{ClientID: "c1", TestID: 2}, deps); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := getDraft(t, store)
	if d.TestID != 2 || len(d.Slots) != 2 {
		t.Errorf("unexpected draft %+v", d)
	}
}

// TestExecuteSelectTest_ResetsSlot tests that switching tests clears the chosen slot.
func TestExecuteSelectTest_ResetsSlot(t *testing.T) {
	store := drafts.NewStore()
	deps := SelectTestDeps{Slots: &mockSlotLister{slots: catalogSlots()}, Drafts: store}
	ctx := context.Background()
	_ = ExecuteSelectTest(ctx, SelectTestInput{ClientID: "c1", TestID: 1}, deps)
	_ = store.Update(ctx, "c1", func(d *booking.Draft) error { return d.SelectSlot(11) })

	_ = ExecuteSelectTest(ctx, SelectTestInput{ClientID: "c1", TestID: 2}, deps)
	if d := getDraft(t, store); d.SlotID != 0 {
		t.Errorf("expected slot reset, got %d", d.SlotID)
	}
}

// TestExecuteSelectTest_StaleResponseDiscarded tests that a slower response for an
// abandoned selection never repopulates the slot list.
func TestExecuteSelectTest_StaleResponseDiscarded(t *testing.T) {
	store := drafts.NewStore()
	lister := &mockSlotLister{slots: catalogSlots()}
	deps := SelectTestDeps{Slots: lister, Drafts: store}
	ctx := context.Background()

	// While test 1's slots are in flight, the patient picks test 2.
	lister.during = func(int64) {
		if err := ExecuteSelectTest(ctx, SelectTestInput{ClientID: "c1", TestID: 2}, deps); err != nil {
			t.Errorf("inner select: %v", err)
		}
	}
	if err := ExecuteSelectTest(ctx, SelectTestInput{ClientID: "c1", TestID: 1}, deps); err != nil {
		t.Fatalf("outer select: %v", err)
	}

	d := getDraft(t, store)
	if d.TestID != 2 {
		t.Fatalf("TestID = %d, want 2", d.TestID)
	}
	for _, s := range d.Slots {
		if s.ID == 11 {
			t.Fatal("slot list repopulated by stale response for test 1")
		}
	}
	if len(d.Slots) != 2 {
		t.Errorf("expected test 2's slots, got %+v", d.Slots)
	}
}

// TestExecuteSelectTest_FetchError tests that a failed fetch leaves an empty list.
func TestExecuteSelectTest_FetchError(t *testing.T) {
	store := drafts.NewStore()
	deps := SelectTestDeps{Slots: &mockSlotLister{err: errors.New("down")}, Drafts: store}
	if err := ExecuteSelectTest(context.Background(), SelectTestInput{ClientID: "c1", TestID: 1}, deps); err == nil {
		t.Fatal("expected error")
	}
	if d := getDraft(t, store); d.TestID != 1 || len(d.Slots) != 0 {
		t.Errorf("unexpected draft %+v", d)
	}
}

func getDraft(t *testing.T, store *drafts.Store) booking.Draft {
	t.Helper()
	d, err := store.Get(context.Background(), "c1")
	if err != nil {
		t.Fatalf("get draft: %v", err)
	}
	return d
}

func draftWithTest(t *testing.T, store *drafts.Store, testID int64) {
	t.Helper()
	deps := SelectTestDeps{Slots: &mockSlotLister{slots: catalogSlots()}, Drafts: store}
	if err := ExecuteSelectTest(context.Background(), SelectTestInput{ClientID: "c1", TestID: testID}, deps); err != nil {
		t.Fatalf("select test: %v", err)
	}
}

// TestExecuteSubmitBooking_InsuranceWithoutPolicy tests client-side rejection before any call.
func TestExecuteSubmitBooking_InsuranceWithoutPolicy(t *testing.T) {
	store := drafts.NewStore()
	draftWithTest(t, store, 2)
	creator := &mockBookingCreator{}

	_, err := ExecuteSubmitBooking(context.Background(), SubmitBookingInput{
		ClientID: "c1", SlotID: 21, Payment: booking.PaymentInsurance,
	}, SubmitBookingDeps{Bookings: creator, Drafts: store})
	if !errors.Is(err, booking.ErrPolicyRequired) {
		t.Fatalf("expected ErrPolicyRequired, got %v", err)
	}
	if len(creator.requests) != 0 {
		t.Error("no network call expected")
	}
}

// TestExecuteSubmitBooking_Incomplete tests a missing slot.
func TestExecuteSubmitBooking_Incomplete(t *testing.T) {
	store := drafts.NewStore()
	draftWithTest(t, store, 2)
	creator := &mockBookingCreator{}
	_, err := ExecuteSubmitBooking(context.Background(), SubmitBookingInput{ClientID: "c1", Payment: booking.PaymentCash},
		SubmitBookingDeps{Bookings: creator, Drafts: store})
	if !errors.Is(err, booking.ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
	if len(creator.requests) != 0 {
		t.Error("no network call expected")
	}
}

// TestExecuteSubmitBooking_SoldOutSlot tests that a full slot cannot be chosen.
func TestExecuteSubmitBooking_SoldOutSlot(t *testing.T) {
	store := drafts.NewStore()
	draftWithTest(t, store, 2)
	_, err := ExecuteSubmitBooking(context.Background(), SubmitBookingInput{ClientID: "c1", SlotID: 22, Payment: booking.PaymentCash},
		SubmitBookingDeps{Bookings: &mockBookingCreator{}, Drafts: store})
	if !errors.Is(err, booking.ErrUnknownSlot) {
		t.Fatalf("expected ErrUnknownSlot, got %v", err)
	}
}

// TestExecuteSubmitBooking_Insurance tests the payload and draft reset.
func TestExecuteSubmitBooking_Insurance(t *testing.T) {
	store := drafts.NewStore()
	draftWithTest(t, store, 2)
	creator := &mockBookingCreator{}

	b, err := ExecuteSubmitBooking(context.Background(), SubmitBookingInput{
		ClientID: "c1", SlotID: 21, Payment: booking.PaymentInsurance, PolicyID: 5,
	}, SubmitBookingDeps{Bookings: creator, Drafts: store})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.ID != 99 {
		t.Errorf("booking id = %d", b.ID)
	}
	req := creator.requests[0]
	if req.TestID != 2 || req.SlotID != 21 || !req.IsInsurance || req.PolicyID == nil || *req.PolicyID != 5 {
		t.Errorf("unexpected request %+v", req)
	}
	if getDraft(t, store).TestID != 0 {
		t.Error("draft should be reset after a successful booking")
	}
}

// TestExecuteSubmitBooking_RemoteFailureKeepsDraft tests that a failed call leaves the draft.
func TestExecuteSubmitBooking_RemoteFailureKeepsDraft(t *testing.T) {
	store := drafts.NewStore()
	draftWithTest(t, store, 1)
	_, err := ExecuteSubmitBooking(context.Background(), SubmitBookingInput{ClientID: "c1", SlotID: 11, Payment: booking.PaymentCash},
		SubmitBookingDeps{Bookings: &mockBookingCreator{err: errors.New("boom")}, Drafts: store})
	if err == nil {
		t.Fatal("expected error")
	}
	if d := getDraft(t, store); d.TestID != 1 || d.SlotID != 11 {
		t.Errorf("draft should survive a failed submission, got %+v", d)
	}
}
