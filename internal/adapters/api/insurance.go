package api

import (
	"context"
	"fmt"
	"net/http"

	"testinsure/internal/domain/claim"
	"testinsure/internal/domain/policy"
)

// ListPolicies returns the caller's insurance policies.
func (c *Client) ListPolicies(ctx context.Context) ([]policy.Policy, error) {
	var out []policy.Policy
	err := c.doJSON(ctx, "ListPolicies", http.MethodGet, "/insurance/policies", nil, &out)
	return out, err
}

// AddPolicy registers a policy for the caller.
func (c *Client) AddPolicy(ctx context.Context, d policy.Draft) (policy.Policy, error) {
	var out policy.Policy
	err := c.doJSON(ctx, "AddPolicy", http.MethodPost, "/insurance/policies", d, &out)
	return out, err
}

// ListClaims returns every insurance claim.
func (c *Client) ListClaims(ctx context.Context) ([]claim.Claim, error) {
	var out []claim.Claim
	err := c.doJSON(ctx, "ListClaims", http.MethodGet, "/insurance/claims", nil, &out)
	return out, err
}

// ApproveClaim approves a pending claim.
func (c *Client) ApproveClaim(ctx context.Context, id int64) error {
	return c.doJSON(ctx, "ApproveClaim", http.MethodPut, fmt.Sprintf("/insurance/claims/%d/approve", id), nil, nil)
}

// RejectClaim rejects a pending claim with a reason.
func (c *Client) RejectClaim(ctx context.Context, id int64, r claim.Rejection) error {
	return c.doJSON(ctx, "RejectClaim", http.MethodPut, fmt.Sprintf("/insurance/claims/%d/reject", id), r, nil)
}
