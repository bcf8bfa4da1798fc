package projections

import (
	"context"

	"testinsure/internal/domain/claim"
)

// AdminClaimsResult carries the query result.
type AdminClaimsResult struct {
	Claims  []claim.Claim
	Pending int
}

// AdminClaimsDeps holds dependencies for AdminClaims.
type AdminClaimsDeps struct {
	Claims ClaimLister
}

// QueryAdminClaims lists every claim with the number still awaiting a decision.
func QueryAdminClaims(ctx context.Context, deps AdminClaimsDeps) (AdminClaimsResult, error) {
	claims, err := deps.Claims.ListClaims(ctx)
	if err != nil {
		return AdminClaimsResult{}, err
	}
	return AdminClaimsResult{Claims: claims, Pending: claim.CountPending(claims)}, nil
}
