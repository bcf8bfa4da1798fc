package booking

import (
	"encoding/json"
	"errors"

	"github.com/oklog/ulid/v2"

	"testinsure/internal/domain/slot"
)

// Payment methods offered by the booking flow.
const (
	PaymentCash      = "cash"
	PaymentInsurance = "insurance"
)

// Validation errors surfaced to the patient before any network call.
var (
	ErrIncomplete     = errors.New("Please complete all steps.")
	ErrPolicyRequired = errors.New("Select a policy.")
	ErrUnknownSlot    = errors.New("Select an available time slot.")
	ErrUnknownPayment = errors.New("Select a payment method.")
)

// Request is the payload that creates a booking.
type Request struct {
	TestID      int64  `json:"testId"`
	SlotID      int64  `json:"slotId"`
	IsInsurance bool   `json:"isInsurance"`
	PolicyID    *int64 `json:"policyId"`
}

// Draft is the booking flow's view state for one client: test, then slot, then payment.
// INVARIANT: Slots and SlotID always belong to TestID; changing TestID clears both.
// INVARIANT: Slots only ever holds the response to the latest slot fetch (see SelectTest).
type Draft struct {
	TestID   int64
	Slots    []slot.Slot
	SlotID   int64
	Payment  string
	PolicyID int64

	token string
}

// NewDraft returns an empty draft paying by cash.
func NewDraft() Draft {
	return Draft{Payment: PaymentCash}
}

// SelectTest switches the draft to another test and returns the token the caller
// must present to ApplySlots with the slots it fetched for that test.
// Tokens are ULIDs, so one issued before the draft was reset or replaced never
// matches a later draft.
// POST: slot selection and slot list are cleared; earlier tokens are invalidated
func (d *Draft) SelectTest(testID int64) string {
	d.token = ulid.Make().String()
	d.TestID = testID
	d.Slots = nil
	d.SlotID = 0
	return d.token
}

// ApplySlots installs a slot list fetched under token.
// POST: returns false and leaves the draft untouched when token is stale
func (d *Draft) ApplySlots(token string, slots []slot.Slot) bool {
	if token == "" || token != d.token || d.TestID == 0 {
		return false
	}
	d.Slots = slots
	return true
}

// draftJSON is the stored form of a Draft, token included.
type draftJSON struct {
	TestID   int64       `json:"testId"`
	Slots    []slot.Slot `json:"slots,omitempty"`
	SlotID   int64       `json:"slotId,omitempty"`
	Payment  string      `json:"payment"`
	PolicyID int64       `json:"policyId,omitempty"`
	Token    string      `json:"token,omitempty"`
}

// MarshalJSON keeps the selection token so a draft survives a round trip
// through shared storage.
func (d Draft) MarshalJSON() ([]byte, error) {
	return json.Marshal(draftJSON{d.TestID, d.Slots, d.SlotID, d.Payment, d.PolicyID, d.token})
}

func (d *Draft) UnmarshalJSON(b []byte) error {
	var w draftJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*d = Draft{TestID: w.TestID, Slots: w.Slots, SlotID: w.SlotID, Payment: w.Payment, PolicyID: w.PolicyID, token: w.Token}
	return nil
}

// SelectSlot chooses a slot from the current list.
// PRE: slotID belongs to Slots and has capacity left
func (d *Draft) SelectSlot(slotID int64) error {
	if slotID == 0 {
		d.SlotID = 0
		return nil
	}
	s, ok := slot.Find(d.Slots, slotID)
	if !ok || !s.Available() {
		return ErrUnknownSlot
	}
	d.SlotID = slotID
	return nil
}

// SelectPayment chooses cash or insurance; a policy is only kept for insurance.
func (d *Draft) SelectPayment(method string, policyID int64) error {
	switch method {
	case PaymentCash:
		d.Payment = PaymentCash
		d.PolicyID = 0
	case PaymentInsurance:
		d.Payment = PaymentInsurance
		d.PolicyID = policyID
	default:
		return ErrUnknownPayment
	}
	return nil
}

// Request builds the booking payload.
// POST: returns ErrIncomplete or ErrPolicyRequired instead of a payload the API would reject
func (d *Draft) Request() (Request, error) {
	if d.TestID == 0 || d.SlotID == 0 {
		return Request{}, ErrIncomplete
	}
	req := Request{TestID: d.TestID, SlotID: d.SlotID}
	if d.Payment == PaymentInsurance {
		if d.PolicyID == 0 {
			return Request{}, ErrPolicyRequired
		}
		id := d.PolicyID
		req.IsInsurance = true
		req.PolicyID = &id
	}
	return req, nil
}
