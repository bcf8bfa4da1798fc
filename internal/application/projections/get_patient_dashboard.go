package projections

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"testinsure/internal/domain/booking"
	"testinsure/internal/domain/policy"
)

// PatientDashboardQuery carries query parameters.
type PatientDashboardQuery struct {
	Now      time.Time
	Location *time.Location
}

// PatientDashboardResult carries the query result.
type PatientDashboardResult struct {
	Greeting string
	Policies []policy.Policy
	Bookings []booking.Booking
	Next     booking.Booking
	HasNext  bool
}

// PatientDashboardDeps holds dependencies for PatientDashboard.
type PatientDashboardDeps struct {
	Policies PolicyLister
	Bookings MyBookingsLister
}

// QueryPatientDashboard fetches the patient's policies and bookings in parallel.
// PRE: the context carries the patient's session
// POST: a failed fetch leaves its list empty; the other list is still returned with the error
func QueryPatientDashboard(ctx context.Context, query PatientDashboardQuery, deps PatientDashboardDeps) (PatientDashboardResult, error) {
	loc := query.Location
	if loc == nil {
		loc = time.Local
	}
	res := PatientDashboardResult{Greeting: Greeting(query.Now.In(loc))}

	var g errgroup.Group
	g.Go(func() error {
		p, err := deps.Policies.ListPolicies(ctx)
		if err != nil {
			return fmt.Errorf("load policies: %w", err)
		}
		res.Policies = p
		return nil
	})
	g.Go(func() error {
		b, err := deps.Bookings.MyBookings(ctx)
		if err != nil {
			return fmt.Errorf("load bookings: %w", err)
		}
		res.Bookings = b
		return nil
	})
	err := g.Wait()

	res.Next, res.HasNext = booking.NextAppointment(res.Bookings, query.Now, loc)
	return res, err
}

// Greeting returns the salutation for the time of day.
func Greeting(t time.Time) string {
	switch h := t.Hour(); {
	case h < 12:
		return "Good Morning"
	case h < 18:
		return "Good Afternoon"
	default:
		return "Good Evening"
	}
}
