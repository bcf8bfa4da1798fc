package projections

import (
	"context"
	"fmt"

	"testinsure/internal/domain/labtest"
	"testinsure/internal/domain/slot"
)

// AdminSlotsQuery carries query parameters.
type AdminSlotsQuery struct {
	TestID int64
}

// AdminSlotsResult carries the query result.
type AdminSlotsResult struct {
	Tests        []labtest.LabTest
	Selected     labtest.LabTest
	HasSelection bool
	Slots        []slot.Slot
}

// AdminSlotsDeps holds dependencies for AdminSlots.
type AdminSlotsDeps struct {
	Tests TestLister
	Slots SlotLister
}

// QueryAdminSlots lists the catalog and, when a test is chosen, its slots.
// POST: slots are only fetched for a test present in the catalog
func QueryAdminSlots(ctx context.Context, query AdminSlotsQuery, deps AdminSlotsDeps) (AdminSlotsResult, error) {
	tests, err := deps.Tests.ListTests(ctx)
	if err != nil {
		return AdminSlotsResult{}, fmt.Errorf("load tests: %w", err)
	}
	res := AdminSlotsResult{Tests: tests}
	if query.TestID == 0 {
		return res, nil
	}
	res.Selected, res.HasSelection = labtest.Find(tests, query.TestID)
	if !res.HasSelection {
		return res, nil
	}
	slots, err := deps.Slots.ListSlots(ctx, query.TestID)
	if err != nil {
		return res, fmt.Errorf("load slots: %w", err)
	}
	res.Slots = slots
	return res, nil
}
