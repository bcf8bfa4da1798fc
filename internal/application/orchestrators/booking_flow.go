package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	"testinsure/internal/domain/booking"
	"testinsure/internal/domain/slot"
)

// SlotLister fetches the slots of one test.
type SlotLister interface {
	ListSlots(ctx context.Context, testID int64) ([]slot.Slot, error)
}

// BookingCreator submits a booking.
type BookingCreator interface {
	CreateBooking(ctx context.Context, req booking.Request) (booking.Booking, error)
}

// DraftStore holds the booking draft of each client.
type DraftStore interface {
	// Update may run fn more than once when a shared store retries a conflicting write.
	Update(ctx context.Context, clientID string, fn func(d *booking.Draft) error) error
	Reset(ctx context.Context, clientID string) error
}

// SelectTestInput carries input for the select-test step.
type SelectTestInput struct {
	ClientID string
	TestID   int64
}

// SelectTestDeps holds dependencies for SelectTest.
type SelectTestDeps struct {
	Slots  SlotLister
	Drafts DraftStore
}

// ExecuteSelectTest switches the draft to a test and loads that test's slots.
// PRE: TestID is 0 (clear) or a catalog test id
// POST: the chosen slot is reset; the slot list is scoped to the latest selection only
// INVARIANT: a fetch overtaken by a later selection never writes its slots
func ExecuteSelectTest(ctx context.Context, input SelectTestInput, deps SelectTestDeps) error {
	var token string
	err := deps.Drafts.Update(ctx, input.ClientID, func(d *booking.Draft) error {
		token = d.SelectTest(input.TestID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("select test %d: %w", input.TestID, err)
	}
	if input.TestID == 0 {
		return nil
	}

	slots, err := deps.Slots.ListSlots(ctx, input.TestID)
	if err != nil {
		return fmt.Errorf("load slots for test %d: %w", input.TestID, err)
	}

	var applied bool
	err = deps.Drafts.Update(ctx, input.ClientID, func(d *booking.Draft) error {
		applied = d.ApplySlots(token, slots)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store slots for test %d: %w", input.TestID, err)
	}
	if !applied {
		slog.Debug("stale_slots_discarded", "client_id", input.ClientID, "test_id", input.TestID)
	}
	return nil
}

// SubmitBookingInput carries the slot and payment choices of the final step.
type SubmitBookingInput struct {
	ClientID string
	SlotID   int64
	Payment  string
	PolicyID int64
}

// SubmitBookingDeps holds dependencies for SubmitBooking.
type SubmitBookingDeps struct {
	Bookings BookingCreator
	Drafts   DraftStore
}

// ExecuteSubmitBooking records the final choices and creates the booking.
// PRE: a test was selected through ExecuteSelectTest
// POST: on success the draft is discarded
// INVARIANT: an incomplete draft or an insurance payment without a policy never reaches the API
func ExecuteSubmitBooking(ctx context.Context, input SubmitBookingInput, deps SubmitBookingDeps) (booking.Booking, error) {
	var req booking.Request
	err := deps.Drafts.Update(ctx, input.ClientID, func(d *booking.Draft) error {
		if err := d.SelectSlot(input.SlotID); err != nil {
			return err
		}
		if err := d.SelectPayment(input.Payment, input.PolicyID); err != nil {
			return err
		}
		r, err := d.Request()
		req = r
		return err
	})
	if err != nil {
		return booking.Booking{}, err
	}

	b, err := deps.Bookings.CreateBooking(ctx, req)
	if err != nil {
		return booking.Booking{}, err
	}
	if err := deps.Drafts.Reset(ctx, input.ClientID); err != nil {
		slog.Warn("draft_reset_failed", "client_id", input.ClientID, "error", err.Error())
	}
	slog.Info("booking_event", "event", "created", "booking_id", b.ID, "test_id", req.TestID, "insurance", req.IsInsurance)
	return b, nil
}
