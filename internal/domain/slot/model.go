package slot

import (
	"fmt"
	"time"
)

// Wire layouts used by the remote API.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Slot is a bookable time window for one diagnostic test.
type Slot struct {
	ID        int64  `json:"slotId"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Capacity  int    `json:"capacity"`
}

// Draft carries the admin form for a new slot.
type Draft struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
	Capacity  int    `json:"capacity" validate:"gte=1,lte=500"`
}

// DefaultCapacity is the capacity prefilled on the admin form.
const DefaultCapacity = 10

// Available reports whether the slot can still be chosen.
func (s Slot) Available() bool {
	return s.Capacity > 0
}

// Start parses the slot's start instant in the given location.
// PRE: Date and StartTime use the API layouts; "HH:MM" is also accepted
// POST: returns the zero time and an error when either part is malformed
func (s Slot) Start(loc *time.Location) (time.Time, error) {
	for _, layout := range []string{DateLayout + " " + TimeLayout, DateLayout + " 15:04"} {
		if t, err := time.ParseInLocation(layout, s.Date+" "+s.StartTime, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("slot %d: malformed start %q %q", s.ID, s.Date, s.StartTime)
}

// Label renders the slot the way the booking form lists it.
func (s Slot) Label() string {
	if !s.Available() {
		return fmt.Sprintf("%s @ %s — SOLD OUT", s.Date, s.StartTime)
	}
	return fmt.Sprintf("%s @ %s — %d spots available", s.Date, s.StartTime, s.Capacity)
}

// Find returns the slot with the given id.
func Find(slots []Slot, id int64) (Slot, bool) {
	for _, s := range slots {
		if s.ID == id {
			return s, true
		}
	}
	return Slot{}, false
}
