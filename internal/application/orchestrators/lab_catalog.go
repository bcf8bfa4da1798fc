package orchestrators

import (
	"context"
	"errors"
	"strings"
	"time"

	"testinsure/internal/application/validation"
	"testinsure/internal/domain/labtest"
	"testinsure/internal/domain/slot"
)

// CatalogAPI is the admin catalog surface of the remote API.
type CatalogAPI interface {
	CreateTest(ctx context.Context, d labtest.Draft) (labtest.LabTest, error)
	CreateSlot(ctx context.Context, testID int64, d slot.Draft) (slot.Slot, error)
}

var (
	ErrNoTestSelected = errors.New("Select a test first!")
	ErrSlotWindow     = errors.New("End time must be after start time.")
)

// CreateTestInput carries input for the create-test orchestrator.
type CreateTestInput struct {
	Draft labtest.Draft
}

// CreateTestDeps holds dependencies for CreateTest.
type CreateTestDeps struct {
	Catalog CatalogAPI
}

// ExecuteCreateTest validates and submits a new catalog test.
// POST: returns a *validation.Error without calling the API when the form is invalid
func ExecuteCreateTest(ctx context.Context, input CreateTestInput, deps CreateTestDeps) (labtest.LabTest, error) {
	d := input.Draft
	d.Name = strings.TrimSpace(d.Name)
	d.Description = strings.TrimSpace(d.Description)
	d.PrepInstructions = strings.TrimSpace(d.PrepInstructions)
	if err := validation.Struct(d); err != nil {
		return labtest.LabTest{}, err
	}
	return deps.Catalog.CreateTest(ctx, d)
}

// CreateSlotInput carries input for the create-slot orchestrator.
type CreateSlotInput struct {
	TestID int64
	Draft  slot.Draft
}

// CreateSlotDeps holds dependencies for CreateSlot.
type CreateSlotDeps struct {
	Catalog CatalogAPI
}

// ExecuteCreateSlot validates and submits a new slot for a test.
// PRE: TestID is set
// POST: times are sent in the API's HH:MM:SS layout
// INVARIANT: the slot window is not empty
func ExecuteCreateSlot(ctx context.Context, input CreateSlotInput, deps CreateSlotDeps) (slot.Slot, error) {
	if input.TestID == 0 {
		return slot.Slot{}, ErrNoTestSelected
	}
	d := input.Draft
	if err := validation.Struct(d); err != nil {
		return slot.Slot{}, err
	}

	start, err := parseClock(d.StartTime)
	if err != nil {
		return slot.Slot{}, &validation.Error{Messages: []string{"start time must be a valid time"}}
	}
	end, err := parseClock(d.EndTime)
	if err != nil {
		return slot.Slot{}, &validation.Error{Messages: []string{"end time must be a valid time"}}
	}
	if !end.After(start) {
		return slot.Slot{}, ErrSlotWindow
	}
	d.StartTime = start.Format(slot.TimeLayout)
	d.EndTime = end.Format(slot.TimeLayout)
	return deps.Catalog.CreateSlot(ctx, input.TestID, d)
}

// parseClock accepts the HH:MM a time input submits as well as HH:MM:SS.
func parseClock(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(slot.TimeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse("15:04", s)
}
