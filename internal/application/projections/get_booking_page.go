package projections

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"testinsure/internal/domain/booking"
	"testinsure/internal/domain/labtest"
	"testinsure/internal/domain/policy"
)

// BookingPageQuery carries query parameters.
type BookingPageQuery struct {
	ClientID string
}

// BookingPageResult carries the query result.
type BookingPageResult struct {
	Tests        []labtest.LabTest
	Policies     []policy.Policy
	Draft        booking.Draft
	SelectedTest labtest.LabTest
	HasSelection bool
}

// BookingPageDeps holds dependencies for BookingPage.
type BookingPageDeps struct {
	Tests    TestLister
	Policies PolicyLister
	Drafts   DraftReader
}

// QueryBookingPage assembles the three-step booking form.
// POST: only ACTIVE policies are offered; an unreadable draft is shown as a fresh one
func QueryBookingPage(ctx context.Context, query BookingPageQuery, deps BookingPageDeps) (BookingPageResult, error) {
	draft, draftErr := deps.Drafts.Get(ctx, query.ClientID)
	if draftErr != nil {
		draft = booking.NewDraft()
		draftErr = fmt.Errorf("load booking draft: %w", draftErr)
	}
	res := BookingPageResult{Draft: draft}

	var g errgroup.Group
	g.Go(func() error {
		t, err := deps.Tests.ListTests(ctx)
		if err != nil {
			return fmt.Errorf("load tests: %w", err)
		}
		res.Tests = t
		return nil
	})
	g.Go(func() error {
		p, err := deps.Policies.ListPolicies(ctx)
		if err != nil {
			return fmt.Errorf("load policies: %w", err)
		}
		res.Policies = policy.Active(p)
		return nil
	})
	err := errors.Join(draftErr, g.Wait())

	if res.Draft.TestID != 0 {
		res.SelectedTest, res.HasSelection = labtest.Find(res.Tests, res.Draft.TestID)
	}
	return res, err
}
