package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"testinsure/internal/application/validation"
	"testinsure/internal/domain/claim"
	"testinsure/internal/domain/policy"
)

// PolicyAdder registers a policy for the caller.
type PolicyAdder interface {
	AddPolicy(ctx context.Context, d policy.Draft) (policy.Policy, error)
}

// ClaimRejecter rejects a claim with a reason.
type ClaimRejecter interface {
	RejectClaim(ctx context.Context, id int64, r claim.Rejection) error
}

// ErrRejectionAborted means the admin submitted no reason, which cancels the rejection.
var ErrRejectionAborted = errors.New("rejection aborted: no reason given")

// AddPolicyInput carries input for the add-policy orchestrator.
type AddPolicyInput struct {
	Draft policy.Draft
}

// AddPolicyDeps holds dependencies for AddPolicy.
type AddPolicyDeps struct {
	Policies PolicyAdder
}

// ExecuteAddPolicy validates and submits a new insurance policy.
// POST: returns a *validation.Error without calling the API when the form is invalid
func ExecuteAddPolicy(ctx context.Context, input AddPolicyInput, deps AddPolicyDeps) (policy.Policy, error) {
	d := input.Draft
	d.ProviderName = strings.TrimSpace(d.ProviderName)
	d.PolicyNumber = strings.TrimSpace(d.PolicyNumber)
	if err := validation.Struct(d); err != nil {
		return policy.Policy{}, err
	}
	return deps.Policies.AddPolicy(ctx, d)
}

// RejectClaimInput carries input for the reject-claim orchestrator.
type RejectClaimInput struct {
	ClaimID int64
	Reason  string
}

// RejectClaimDeps holds dependencies for RejectClaim.
type RejectClaimDeps struct {
	Claims ClaimRejecter
}

// ExecuteRejectClaim rejects a claim.
// PRE: ClaimID refers to a pending claim
// POST: a blank reason returns ErrRejectionAborted and makes no call
func ExecuteRejectClaim(ctx context.Context, input RejectClaimInput, deps RejectClaimDeps) error {
	r := claim.Rejection{Reason: strings.TrimSpace(input.Reason)}
	if r.Reason == "" {
		return ErrRejectionAborted
	}
	if err := validation.Struct(r); err != nil {
		return err
	}
	if err := deps.Claims.RejectClaim(ctx, input.ClaimID, r); err != nil {
		return err
	}
	slog.Info("claim_event", "event", "rejected", "claim_id", input.ClaimID)
	return nil
}
