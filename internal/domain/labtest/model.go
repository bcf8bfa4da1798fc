package labtest

import (
	"fmt"
	"strings"
)

// LabTest is a diagnostic test offered in the catalog.
type LabTest struct {
	ID               int64   `json:"testId"`
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	Cost             float64 `json:"cost"`
	PrepInstructions string  `json:"prepInstructions"`
}

// Draft carries the admin form for a new test.
type Draft struct {
	Name             string  `json:"name" validate:"required,max=120"`
	Description      string  `json:"description" validate:"max=2000"`
	Cost             float64 `json:"cost" validate:"gt=0"`
	PrepInstructions string  `json:"prepInstructions" validate:"max=2000"`
}

// Initials returns up to two uppercase initials of the test name.
func (t LabTest) Initials() string {
	var b strings.Builder
	for _, w := range strings.Fields(t.Name) {
		b.WriteString(strings.ToUpper(string([]rune(w)[0])))
		if b.Len() >= 2 {
			break
		}
	}
	return b.String()
}

// AvatarClass picks a stable color class for the test's avatar.
func (t LabTest) AvatarClass() string {
	classes := []string{"bg-primary", "bg-success", "bg-warning", "bg-info", "bg-danger"}
	i := t.ID % int64(len(classes))
	if i < 0 {
		i = -i
	}
	return classes[i]
}

// CostLabel formats the cost for display.
func (t LabTest) CostLabel() string {
	return fmt.Sprintf("$%.2f", t.Cost)
}

// FilterByName returns tests whose name contains the query, case-insensitively.
// PRE: none
// POST: an empty query returns the input unchanged; order is preserved
func FilterByName(tests []LabTest, query string) []LabTest {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return tests
	}
	out := make([]LabTest, 0, len(tests))
	for _, t := range tests {
		if strings.Contains(strings.ToLower(t.Name), q) {
			out = append(out, t)
		}
	}
	return out
}

// Find returns the test with the given id.
func Find(tests []LabTest, id int64) (LabTest, bool) {
	for _, t := range tests {
		if t.ID == id {
			return t, true
		}
	}
	return LabTest{}, false
}
