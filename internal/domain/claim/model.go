package claim

// Status values reported by the remote API.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// BlockingReason is the rejection reason that also blocks the policy server-side.
const BlockingReason = "Invalid Insurance"

// BookingRef is the slice of the booking a claim row displays.
type BookingRef struct {
	ID   int64 `json:"bookingId"`
	User struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
	LaboratoryTest struct {
		Name string  `json:"name"`
		Cost float64 `json:"cost"`
	} `json:"laboratoryTest"`
}

// PolicyRef is the slice of the policy a claim row displays.
type PolicyRef struct {
	ID           int64  `json:"policyId"`
	ProviderName string `json:"providerName"`
	PolicyNumber string `json:"policyNumber"`
}

// Claim is an insurance reimbursement request tied to one booking.
type Claim struct {
	ID             int64      `json:"claimId"`
	Booking        BookingRef `json:"booking"`
	Policy         PolicyRef  `json:"policy"`
	Status         string     `json:"status"`
	ApprovedAmount float64    `json:"approvedAmount"`
	Remarks        string     `json:"remarks"`
	RaisedAt       string     `json:"raisedAt"`
	ResolvedAt     string     `json:"resolvedAt"`
}

// Rejection carries the reason an admin gives for rejecting a claim.
type Rejection struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

// IsPending reports whether the claim still awaits a decision.
func (c Claim) IsPending() bool {
	return c.Status == StatusPending
}

// CountPending returns how many claims await a decision.
func CountPending(claims []Claim) int {
	n := 0
	for _, c := range claims {
		if c.IsPending() {
			n++
		}
	}
	return n
}
