// Package gate decides whether a request may render a protected page.
package gate

import "testinsure/internal/domain/session"

// Outcome is the result of evaluating a route guard.
type Outcome int

// Outcome constants, in precedence order.
const (
	Loading Outcome = iota
	Unauthenticated
	RoleMismatched
	Authorized
)

// String returns the metric label for the outcome.
func (o Outcome) String() string {
	switch o {
	case Loading:
		return "loading"
	case Unauthenticated:
		return "unauthenticated"
	case RoleMismatched:
		return "role_mismatched"
	case Authorized:
		return "authorized"
	}
	return "unknown"
}

// Decision is an Outcome plus where to send the client, if anywhere.
type Decision struct {
	Outcome  Outcome
	Redirect string
}

// Decide evaluates a guard requiring role against the request's session view.
// An empty required role admits any authenticated session.
// PRE: none
// POST: Redirect is set only for Unauthenticated and RoleMismatched
// INVARIANT: an unrestored view is always Loading, never a redirect
func Decide(view session.View, required session.Role) Decision {
	switch {
	case !view.Restored:
		return Decision{Outcome: Loading}
	case !view.Present():
		return Decision{Outcome: Unauthenticated, Redirect: session.PathLogin}
	case required != "" && view.Session.Role != required:
		return Decision{Outcome: RoleMismatched, Redirect: session.HomePath(view.Session.Role)}
	}
	return Decision{Outcome: Authorized}
}
