package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"testinsure/internal/adapters/logging"
	"testinsure/internal/adapters/metrics"
	"testinsure/internal/application/gate"
	"testinsure/internal/domain/session"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const clientIDContextKey contextKey = "client_id"

// ClientCookieName names the cookie identifying a browser's durable client state.
const ClientCookieName = "testinsure_client"

// clientCookieMaxAge keeps the id for about a year.
const clientCookieMaxAge = 400 * 24 * 60 * 60

// ClientID returns middleware that makes sure every browser carries a client id
// and puts it in the request context.
// POST: a missing or malformed cookie is replaced by a fresh random UUID
func ClientID(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(ClientCookieName); err == nil {
				if parsed, err := uuid.Parse(c.Value); err == nil {
					id = parsed.String()
				}
			}
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     ClientCookieName,
					Value:    id,
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
					Path:     "/",
					MaxAge:   clientCookieMaxAge,
				})
			}
			next.ServeHTTP(w, r.WithContext(ContextWithClientID(r.Context(), id)))
		})
	}
}

// ClientIDFromContext returns the browser's client id, or "".
func ClientIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(clientIDContextKey).(string)
	return id
}

// ContextWithClientID returns a context carrying id.
func ContextWithClientID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, clientIDContextKey, id)
}

// SessionRestorer reads a client's persisted session.
type SessionRestorer interface {
	Restore(ctx context.Context, clientID string) (session.View, error)
}

// RestoreSession returns middleware that restores the session before any page decision.
// PRE: ClientID ran first
// POST: the request context carries a session.View; it is unrestored when storage failed
func RestoreSession(restorer SessionRestorer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			view, err := restorer.Restore(r.Context(), ClientIDFromContext(r.Context()))
			if err != nil {
				logging.FromContext(r.Context()).Warn("session_restore_failed", "error", err.Error())
			}
			next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), view)))
		})
	}
}

// Gate returns middleware that admits a request only when the session satisfies required.
// An empty required role admits any session.
// INVARIANT: an unrestored session renders loading and never redirects
func Gate(route string, required session.Role, loading http.Handler) func(http.Handler) http.Handler {
	if loading == nil {
		loading = http.HandlerFunc(defaultLoading)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			view, _ := session.FromContext(r.Context())
			d := gate.Decide(view, required)
			metrics.GateDecisionsTotal.WithLabelValues(route, d.Outcome.String()).Inc()

			switch d.Outcome {
			case gate.Loading:
				loading.ServeHTTP(w, r)
			case gate.Unauthenticated, gate.RoleMismatched:
				logging.FromContext(r.Context()).Debug("gate_redirect", "route", route, "outcome", d.Outcome.String(), "to", d.Redirect)
				http.Redirect(w, r, d.Redirect, http.StatusSeeOther)
			case gate.Authorized:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func defaultLoading(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Refresh", "2")
	w.Header().Set("Retry-After", "2")
	http.Error(w, "Loading…", http.StatusServiceUnavailable)
}
