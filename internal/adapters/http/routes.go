package web

import (
	"context"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"testinsure/internal/adapters/http/middleware"
	"testinsure/internal/domain/session"
)

// Route is one entry of the static route table.
// Public routes leave Role empty and Gated false; a gated route with an empty
// Role admits any signed-in session.
type Route struct {
	Method string
	Path   string
	Page   string
	Role   session.Role
	Gated  bool
}

// Page names.
const (
	PageHome            = "home"
	PageLogin           = "login"
	PageLoginSubmit     = "login.submit"
	PageRegister        = "register"
	PageRegisterSubmit  = "register.submit"
	PageLogoutConfirm   = "logout.confirm"
	PageLogout          = "logout"
	PageThemeToggle     = "theme.toggle"
	PageAdminDashboard  = "admin.dashboard"
	PageAdminTests      = "admin.tests"
	PageAdminTestCreate = "admin.tests.create"
	PageAdminTestDelete = "admin.tests.delete"
	PageAdminTestDrop   = "admin.tests.delete.submit"
	PageAdminSlots      = "admin.slots"
	PageAdminSlotCreate = "admin.slots.create"
	PageAdminClaims     = "admin.claims"
	PageAdminApprove    = "admin.claims.approve"
	PageAdminReject     = "admin.claims.reject"
	PageAdminRejectDo   = "admin.claims.reject.submit"
	PageAdminReports    = "admin.reports"
	PageAdminUpload     = "admin.reports.upload"
	PagePatientHome     = "patient.dashboard"
	PagePolicyAdd       = "patient.policies.add"
	PageCancelConfirm   = "patient.bookings.cancel"
	PageCancel          = "patient.bookings.cancel.submit"
	PagePay             = "patient.bookings.pay"
	PageBill            = "patient.bookings.bill"
	PageReport          = "patient.bookings.report"
	PageBookTest        = "patient.book"
	PageBookSelectTest  = "patient.book.test"
	PageBookSubmit      = "patient.book.submit"
)

// Routes is the route table consulted by the router.
var Routes = []Route{
	{http.MethodGet, "/", PageHome, "", false},
	{http.MethodGet, "/login", PageLogin, "", false},
	{http.MethodPost, "/login", PageLoginSubmit, "", false},
	{http.MethodGet, "/register", PageRegister, "", false},
	{http.MethodPost, "/register", PageRegisterSubmit, "", false},
	{http.MethodGet, "/logout", PageLogoutConfirm, "", false},
	{http.MethodPost, "/logout", PageLogout, "", false},
	{http.MethodPost, "/theme/toggle", PageThemeToggle, "", false},

	{http.MethodGet, "/admin-dashboard", PageAdminDashboard, session.RoleAdmin, true},
	{http.MethodGet, "/admin/tests", PageAdminTests, session.RoleAdmin, true},
	{http.MethodPost, "/admin/tests", PageAdminTestCreate, session.RoleAdmin, true},
	{http.MethodGet, "/admin/tests/{id}/delete", PageAdminTestDelete, session.RoleAdmin, true},
	{http.MethodPost, "/admin/tests/{id}/delete", PageAdminTestDrop, session.RoleAdmin, true},
	{http.MethodGet, "/admin/slots", PageAdminSlots, session.RoleAdmin, true},
	{http.MethodPost, "/admin/slots", PageAdminSlotCreate, session.RoleAdmin, true},
	{http.MethodGet, "/admin/claims", PageAdminClaims, session.RoleAdmin, true},
	{http.MethodPost, "/admin/claims/{id}/approve", PageAdminApprove, session.RoleAdmin, true},
	{http.MethodGet, "/admin/claims/{id}/reject", PageAdminReject, session.RoleAdmin, true},
	{http.MethodPost, "/admin/claims/{id}/reject", PageAdminRejectDo, session.RoleAdmin, true},
	{http.MethodGet, "/admin/reports", PageAdminReports, session.RoleAdmin, true},
	{http.MethodPost, "/admin/reports/{id}/upload", PageAdminUpload, session.RoleAdmin, true},

	{http.MethodGet, "/patient-dashboard", PagePatientHome, session.RolePatient, true},
	{http.MethodPost, "/patient/policies", PagePolicyAdd, session.RolePatient, true},
	{http.MethodGet, "/patient/bookings/{id}/cancel", PageCancelConfirm, session.RolePatient, true},
	{http.MethodPost, "/patient/bookings/{id}/cancel", PageCancel, session.RolePatient, true},
	{http.MethodPost, "/patient/bookings/{id}/pay", PagePay, session.RolePatient, true},
	{http.MethodGet, "/patient/bookings/{id}/bill", PageBill, session.RolePatient, true},
	{http.MethodGet, "/patient/bookings/{id}/report", PageReport, session.RolePatient, true},
	{http.MethodGet, "/book-test", PageBookTest, session.RolePatient, true},
	{http.MethodPost, "/book-test/test", PageBookSelectTest, session.RolePatient, true},
	{http.MethodPost, "/book-test", PageBookSubmit, session.RolePatient, true},
}

// pages maps every page name to its handler.
func (s *Server) pages() map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		PageHome:            s.handleHome,
		PageLogin:           s.handleLoginForm,
		PageLoginSubmit:     s.handleLoginSubmit,
		PageRegister:        s.handleRegisterForm,
		PageRegisterSubmit:  s.handleRegisterSubmit,
		PageLogoutConfirm:   s.handleLogoutConfirm,
		PageLogout:          s.handleLogout,
		PageThemeToggle:     s.handleThemeToggle,
		PageAdminDashboard:  s.handleAdminDashboard,
		PageAdminTests:      s.handleAdminTests,
		PageAdminTestCreate: s.handleAdminTestCreate,
		PageAdminTestDelete: s.handleAdminTestDeleteConfirm,
		PageAdminTestDrop:   s.handleAdminTestDelete,
		PageAdminSlots:      s.handleAdminSlots,
		PageAdminSlotCreate: s.handleAdminSlotCreate,
		PageAdminClaims:     s.handleAdminClaims,
		PageAdminApprove:    s.handleAdminClaimApprove,
		PageAdminReject:     s.handleAdminClaimRejectForm,
		PageAdminRejectDo:   s.handleAdminClaimReject,
		PageAdminReports:    s.handleAdminReports,
		PageAdminUpload:     s.handleAdminReportUpload,
		PagePatientHome:     s.handlePatientDashboard,
		PagePolicyAdd:       s.handlePolicyAdd,
		PageCancelConfirm:   s.handleCancelConfirm,
		PageCancel:          s.handleCancel,
		PagePay:             s.handlePay,
		PageBill:            s.handleBillDownload,
		PageReport:          s.handleReportDownload,
		PageBookTest:        s.handleBookTest,
		PageBookSelectTest:  s.handleBookSelectTest,
		PageBookSubmit:      s.handleBookSubmit,
	}
}

// routes builds the router: utility routes first, then the route table behind
// CSRF, client identity and session restore.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestLog(s.deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Timing(s.opts.SlowRequest))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RateLimit(middleware.NewRateLimiter(s.opts.RateLimitPerSecond, s.opts.RateLimitBurst)))

	r.Get("/healthz", s.handleHealth)
	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics)
	}
	staticFS, _ := fs.Sub(assets, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	pages := s.pages()
	loading := http.HandlerFunc(s.handleLoading)
	r.Group(func(r chi.Router) {
		r.Use(middleware.CSRF(s.opts.CSRFKey, middleware.CSRFOptions{
			Secure:         s.opts.SecureCookies,
			TrustedOrigins: s.opts.TrustedOrigins,
			ErrorHandler:   http.HandlerFunc(s.handleCSRFFailure),
		}))
		r.Use(middleware.ClientID(s.opts.SecureCookies))
		r.Use(middleware.RestoreSession(s.deps.Sessions))

		for _, rt := range Routes {
			h := pages[rt.Page]
			if rt.Gated {
				r.With(middleware.Gate(rt.Path, rt.Role, loading)).Method(rt.Method, rt.Path, h)
				continue
			}
			r.Method(rt.Method, rt.Path, h)
		}
		r.NotFound(s.handleNotFound)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Health(ctx); err != nil {
			s.deps.Logger.Warn("health_check_failed", "error", err.Error())
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
