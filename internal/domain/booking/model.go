package booking

import (
	"sort"
	"time"

	"testinsure/internal/domain/labtest"
	"testinsure/internal/domain/slot"
)

// Status values reported by the remote API.
const (
	StatusConfirmed = "CONFIRMED"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

// Payment status values reported by the remote API.
const (
	PaymentPending          = "PENDING"
	PaymentPaid             = "PAID"
	PaymentInsurancePending = "INSURANCE_PENDING"
)

// Patient is the slice of the booking owner a row displays.
type Patient struct {
	ID    int64  `json:"userId"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Booking is a patient's reservation of one slot for one test.
type Booking struct {
	ID             int64           `json:"bookingId"`
	User           Patient         `json:"user"`
	LaboratoryTest labtest.LabTest `json:"laboratoryTest"`
	TimeSlot       slot.Slot       `json:"timeSlot"`
	Status         string          `json:"status"`
	PaymentStatus  string          `json:"paymentStatus"`
	CreatedAt      string          `json:"createdAt"`
}

// IsPaid reports whether the booking has been settled.
func (b Booking) IsPaid() bool {
	return b.PaymentStatus == PaymentPaid
}

// CanDownloadBill reports whether a receipt may exist.
func (b Booking) CanDownloadBill() bool {
	return b.Status != StatusCancelled
}

// CanDownloadReport reports whether a report may exist.
func (b Booking) CanDownloadReport() bool {
	return b.Status == StatusCompleted || b.IsPaid()
}

// CanCancel reports whether the patient may still cancel.
func (b Booking) CanCancel() bool {
	return b.Status == StatusConfirmed && !b.IsPaid()
}

// CanPay reports whether a cash payment can still be recorded.
func (b Booking) CanPay() bool {
	return b.Status == StatusConfirmed && b.PaymentStatus == PaymentPending
}

// NextAppointment returns the earliest confirmed booking that has not started yet.
// PRE: now and loc describe the patient's clock
// POST: bookings with malformed slots are skipped; ok is false when none qualifies
func NextAppointment(bookings []Booking, now time.Time, loc *time.Location) (Booking, bool) {
	type candidate struct {
		b     Booking
		start time.Time
	}
	var upcoming []candidate
	for _, b := range bookings {
		if b.Status != StatusConfirmed {
			continue
		}
		start, err := b.TimeSlot.Start(loc)
		if err != nil || start.Before(now) {
			continue
		}
		upcoming = append(upcoming, candidate{b: b, start: start})
	}
	if len(upcoming) == 0 {
		return Booking{}, false
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].start.Before(upcoming[j].start)
	})
	return upcoming[0].b, true
}
