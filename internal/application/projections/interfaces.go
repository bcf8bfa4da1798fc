package projections

import (
	"context"

	"testinsure/internal/domain/booking"
	"testinsure/internal/domain/claim"
	"testinsure/internal/domain/labtest"
	"testinsure/internal/domain/policy"
	"testinsure/internal/domain/slot"
)

// TestLister reads the test catalog.
type TestLister interface {
	ListTests(ctx context.Context) ([]labtest.LabTest, error)
}

// SlotLister reads the slots of one test.
type SlotLister interface {
	ListSlots(ctx context.Context, testID int64) ([]slot.Slot, error)
}

// PolicyLister reads the caller's policies.
type PolicyLister interface {
	ListPolicies(ctx context.Context) ([]policy.Policy, error)
}

// MyBookingsLister reads the caller's bookings.
type MyBookingsLister interface {
	MyBookings(ctx context.Context) ([]booking.Booking, error)
}

// AllBookingsLister reads every active booking.
type AllBookingsLister interface {
	AllBookings(ctx context.Context) ([]booking.Booking, error)
}

// ClaimLister reads every claim.
type ClaimLister interface {
	ListClaims(ctx context.Context) ([]claim.Claim, error)
}

// DraftReader reads a client's booking draft.
type DraftReader interface {
	Get(ctx context.Context, clientID string) (booking.Draft, error)
}
