package policy

// Status values reported by the remote API.
const (
	StatusActive  = "ACTIVE"
	StatusBlocked = "BLOCKED"
)

// Policy is an insurance policy held by a patient.
type Policy struct {
	ID             int64   `json:"policyId"`
	ProviderName   string  `json:"providerName"`
	PolicyNumber   string  `json:"policyNumber"`
	CoverageAmount float64 `json:"coverageAmount"`
	ExpiryDate     string  `json:"expiryDate"`
	Status         string  `json:"status"`
}

// Draft carries the patient form for a new policy.
type Draft struct {
	ProviderName   string  `json:"providerName" validate:"required,max=120"`
	PolicyNumber   string  `json:"policyNumber" validate:"required,max=64"`
	CoverageAmount float64 `json:"coverageAmount" validate:"gt=0"`
	ExpiryDate     string  `json:"expiryDate" validate:"required,datetime=2006-01-02"`
}

// IsActive reports whether the policy can fund a booking.
func (p Policy) IsActive() bool {
	return p.Status == StatusActive
}

// Active returns only the active policies, preserving order.
func Active(policies []Policy) []Policy {
	out := make([]Policy, 0, len(policies))
	for _, p := range policies {
		if p.IsActive() {
			out = append(out, p)
		}
	}
	return out
}

// Find returns the policy with the given id.
func Find(policies []Policy, id int64) (Policy, bool) {
	for _, p := range policies {
		if p.ID == id {
			return p, true
		}
	}
	return Policy{}, false
}
