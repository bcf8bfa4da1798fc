package fakeapi

import (
	"time"

	"testinsure/internal/domain/labtest"
	"testinsure/internal/domain/slot"
)

// Demo credentials created by Seed.
const (
	DemoAdminEmail    = "admin@testinsure.local"
	DemoPatientEmail  = "patient@testinsure.local"
	DemoPassword      = "password123"
	demoSlotsPerTest  = 3
	demoSlotStartHour = 9
)

// Seed loads demo accounts, tests and upcoming slots.
// POST: slots are dated from the day after today, on the server clock
func (s *Server) Seed() error {
	if err := s.AddAccount("Hospital Admin", DemoAdminEmail, DemoPassword, RoleAdmin); err != nil {
		return err
	}
	if err := s.AddAccount("Pat Patient", DemoPatientEmail, DemoPassword, RolePatient); err != nil {
		return err
	}

	tests := []labtest.Draft{
		{Name: "Complete Blood Count", Description: "Measures **red cells**, white cells and platelets.", Cost: 450, PrepInstructions: "No fasting required."},
		{Name: "Lipid Profile", Description: "Cholesterol and triglyceride panel.", Cost: 800, PrepInstructions: "Fast for *10 to 12 hours* before the test."},
		{Name: "Thyroid Function", Description: "TSH, T3 and T4 levels.", Cost: 650},
	}
	start := s.clock()
	for _, d := range tests {
		id := s.AddTest(d)
		for i := 0; i < demoSlotsPerTest; i++ {
			day := start.AddDate(0, 0, i+1).Format(slot.DateLayout)
			begin := time.Date(0, 1, 1, demoSlotStartHour+i, 0, 0, 0, time.UTC)
			s.AddSlot(id, slot.Draft{
				Date:      day,
				StartTime: begin.Format(slot.TimeLayout),
				EndTime:   begin.Add(30 * time.Minute).Format(slot.TimeLayout),
				Capacity:  slot.DefaultCapacity,
			})
		}
	}
	return nil
}
