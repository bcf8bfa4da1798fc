package session

import "context"

type ctxKey struct{}

// NewContext returns a context carrying the request's session view.
func NewContext(ctx context.Context, v View) context.Context {
	return context.WithValue(ctx, ctxKey{}, v)
}

// FromContext returns the session view carried by ctx.
// POST: ok is false when no view was attached; the zero View is then not Restored
func FromContext(ctx context.Context) (View, bool) {
	v, ok := ctx.Value(ctxKey{}).(View)
	return v, ok
}

// TokenFromContext returns the bearer token of the session carried by ctx, or "".
func TokenFromContext(ctx context.Context) string {
	v, _ := FromContext(ctx)
	return v.Token()
}
