// Package web serves the TestInsure pages: it restores each browser's session,
// gates protected routes by role and calls the remote API on the user's behalf.
package web

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"time"

	"testinsure/internal/adapters/api"
	"testinsure/internal/domain/account"
	"testinsure/internal/domain/booking"
	"testinsure/internal/domain/claim"
	"testinsure/internal/domain/labtest"
	"testinsure/internal/domain/notification"
	"testinsure/internal/domain/policy"
	"testinsure/internal/domain/session"
	"testinsure/internal/domain/slot"
	"testinsure/internal/domain/theme"
)

// Gateway is the remote API as the pages use it.
type Gateway interface {
	Login(ctx context.Context, creds account.Credentials) (account.AuthResponse, error)
	Register(ctx context.Context, reg account.Registration) (account.AuthResponse, error)

	ListTests(ctx context.Context) ([]labtest.LabTest, error)
	CreateTest(ctx context.Context, d labtest.Draft) (labtest.LabTest, error)
	DeleteTest(ctx context.Context, id int64) error
	ListSlots(ctx context.Context, testID int64) ([]slot.Slot, error)
	CreateSlot(ctx context.Context, testID int64, d slot.Draft) (slot.Slot, error)

	ListPolicies(ctx context.Context) ([]policy.Policy, error)
	AddPolicy(ctx context.Context, d policy.Draft) (policy.Policy, error)
	ListClaims(ctx context.Context) ([]claim.Claim, error)
	ApproveClaim(ctx context.Context, id int64) error
	RejectClaim(ctx context.Context, id int64, r claim.Rejection) error

	MyBookings(ctx context.Context) ([]booking.Booking, error)
	AllBookings(ctx context.Context) ([]booking.Booking, error)
	CreateBooking(ctx context.Context, req booking.Request) (booking.Booking, error)
	CancelBooking(ctx context.Context, id int64) error
	PayBooking(ctx context.Context, id int64) error
	DownloadBill(ctx context.Context, id int64) (api.Download, error)

	UploadReport(ctx context.Context, bookingID int64, filename string, file io.Reader) error
	DownloadReport(ctx context.Context, bookingID int64) (api.Download, error)
}

// SessionManager is the session store of each browser.
type SessionManager interface {
	Restore(ctx context.Context, clientID string) (session.View, error)
	Login(ctx context.Context, clientID string, resp account.AuthResponse) (session.Session, error)
	Logout(ctx context.Context, clientID string) error
}

// ThemeManager is the light/dark preference of each browser.
type ThemeManager interface {
	Restore(ctx context.Context, clientID string) theme.Preference
	Toggle(ctx context.Context, clientID string) (theme.Preference, error)
}

// Notifier queues one-shot notifications until the next rendered page.
type Notifier interface {
	Push(ctx context.Context, clientID string, n notification.Notification) error
	Drain(ctx context.Context, clientID string) ([]notification.Notification, error)
}

// DraftStore holds each patient's booking draft.
type DraftStore interface {
	Get(ctx context.Context, clientID string) (booking.Draft, error)
	Update(ctx context.Context, clientID string, fn func(d *booking.Draft) error) error
	Reset(ctx context.Context, clientID string) error
}

// Deps holds the collaborators of the Server.
type Deps struct {
	API      Gateway
	Sessions SessionManager
	Themes   ThemeManager
	Notices  Notifier
	Drafts   DraftStore
	Logger   *slog.Logger
	// Health reports whether durable client state is reachable; nil means always healthy.
	Health func(ctx context.Context) error
	// Metrics serves /metrics; nil disables the route.
	Metrics http.Handler
}

// Options tunes the Server.
type Options struct {
	CSRFKey            []byte
	SecureCookies      bool
	TrustedOrigins     []string
	RateLimitPerSecond float64
	RateLimitBurst     int
	SlowRequest        time.Duration
	Location           *time.Location
	Now                func() time.Time
	Version            string
}

// Server renders the pages.
type Server struct {
	deps      Deps
	opts      Options
	templates map[string]*template.Template
	handler   http.Handler
}

// NewServer parses the templates and builds the router.
// PRE: every Deps field except Health and Metrics is set; CSRFKey is 32 bytes
func NewServer(deps Deps, opts Options) (*Server, error) {
	if deps.API == nil || deps.Sessions == nil || deps.Themes == nil || deps.Notices == nil || deps.Drafts == nil {
		return nil, fmt.Errorf("web: missing dependency")
	}
	if len(opts.CSRFKey) != 32 {
		return nil, fmt.Errorf("web: CSRF key must be 32 bytes, got %d", len(opts.CSRFKey))
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RateLimitPerSecond <= 0 {
		opts.RateLimitPerSecond = 10
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 20
	}

	tpls, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	s := &Server{deps: deps, opts: opts, templates: tpls}
	s.handler = s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
