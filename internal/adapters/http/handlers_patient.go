package web

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"testinsure/internal/adapters/api"
	"testinsure/internal/adapters/http/middleware"
	"testinsure/internal/adapters/logging"
	"testinsure/internal/application/orchestrators"
	"testinsure/internal/application/projections"
	"testinsure/internal/application/validation"
	"testinsure/internal/domain/booking"
	"testinsure/internal/domain/notification"
	"testinsure/internal/domain/policy"
	"testinsure/internal/domain/session"
)

type patientDashboardPage struct {
	projections.PatientDashboardResult
	Form   policy.Draft
	Errors []string
}

type bookTestPage struct {
	projections.BookingPageResult
}

// handlePatientDashboard handles GET /patient-dashboard.
func (s *Server) handlePatientDashboard(w http.ResponseWriter, r *http.Request) {
	s.renderPatientDashboard(w, r, http.StatusOK, policy.Draft{}, nil)
}

func (s *Server) renderPatientDashboard(w http.ResponseWriter, r *http.Request, status int, form policy.Draft, errs []string) {
	res, err := projections.QueryPatientDashboard(r.Context(), projections.PatientDashboardQuery{
		Now:      s.opts.Now(),
		Location: s.opts.Location,
	}, projections.PatientDashboardDeps{Policies: s.deps.API, Bookings: s.deps.API})
	if err != nil && s.fetchFailed(w, r, err, "Failed to load dashboard.") {
		return
	}
	s.render(w, r, status, "patient_dashboard", "Dashboard", patientDashboardPage{
		PatientDashboardResult: res,
		Form:                   form,
		Errors:                 errs,
	})
}

// handlePolicyAdd handles POST /patient/policies.
func (s *Server) handlePolicyAdd(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	coverage, _ := strconv.ParseFloat(strings.TrimSpace(r.FormValue("coverageAmount")), 64)
	draft := policy.Draft{
		ProviderName:   r.FormValue("providerName"),
		PolicyNumber:   r.FormValue("policyNumber"),
		CoverageAmount: coverage,
		ExpiryDate:     strings.TrimSpace(r.FormValue("expiryDate")),
	}

	_, err := orchestrators.ExecuteAddPolicy(r.Context(), orchestrators.AddPolicyInput{Draft: draft},
		orchestrators.AddPolicyDeps{Policies: s.deps.API})
	var ve *validation.Error
	switch {
	case errors.As(err, &ve):
		s.renderPatientDashboard(w, r, http.StatusUnprocessableEntity, draft, ve.Messages)
	case err != nil:
		s.mutationFailed(w, r, err, "Failed to add policy.", session.PathPatientHome)
	default:
		s.notify(r, notification.Success("Card Added to Wallet!"))
		redirect(w, r, session.PathPatientHome)
	}
}

func (s *Server) handleCancelConfirm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	s.renderConfirm(w, r, confirmPage{
		Heading: "Cancel Appointment",
		Message: "Cancel this appointment?",
		Action:  fmt.Sprintf("/patient/bookings/%d/cancel", id),
		Submit:  "Cancel Appointment",
		Cancel:  session.PathPatientHome,
		Danger:  true,
	})
}

// handleCancel handles POST /patient/bookings/{id}/cancel.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	if err := s.deps.API.CancelBooking(r.Context(), id); err != nil {
		s.mutationFailed(w, r, err, "Failed.", session.PathPatientHome)
		return
	}
	s.notify(r, notification.Success("Cancelled"))
	redirect(w, r, session.PathPatientHome)
}

// handlePay handles POST /patient/bookings/{id}/pay.
func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	if err := s.deps.API.PayBooking(r.Context(), id); err != nil {
		s.mutationFailed(w, r, err, api.MessageOr(err, "Payment failed."), session.PathPatientHome)
		return
	}
	s.notify(r, notification.Success("Payment recorded."))
	redirect(w, r, session.PathPatientHome)
}

// handleBillDownload handles GET /patient/bookings/{id}/bill.
func (s *Server) handleBillDownload(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	d, err := s.deps.API.DownloadBill(r.Context(), id)
	s.serveDownload(w, r, d, err, "Receipt not available.")
}

// handleReportDownload handles GET /patient/bookings/{id}/report.
func (s *Server) handleReportDownload(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	d, err := s.deps.API.DownloadReport(r.Context(), id)
	s.serveDownload(w, r, d, err, "Report pending upload.")
}

// serveDownload sends d as an attachment, or returns to the dashboard with an
// info notification when the document could not be fetched.
func (s *Server) serveDownload(w http.ResponseWriter, r *http.Request, d api.Download, err error, unavailable string) {
	if err != nil {
		if s.sessionExpired(w, r, err) {
			return
		}
		logging.FromContext(r.Context()).Info("download_unavailable", "path", r.URL.Path, "error", err.Error())
		s.notify(r, notification.Info(unavailable))
		redirect(w, r, session.PathPatientHome)
		return
	}
	ct := d.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(d.Body)))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(d.Body)
}

// handleBookTest handles GET /book-test: the three-step booking form.
func (s *Server) handleBookTest(w http.ResponseWriter, r *http.Request) {
	res, err := projections.QueryBookingPage(r.Context(), projections.BookingPageQuery{
		ClientID: middleware.ClientIDFromContext(r.Context()),
	}, projections.BookingPageDeps{Tests: s.deps.API, Policies: s.deps.API, Drafts: s.deps.Drafts})
	if err != nil && s.fetchFailed(w, r, err, "Failed to load tests.") {
		return
	}
	s.render(w, r, http.StatusOK, "book_test", "Book Test", bookTestPage{BookingPageResult: res})
}

// handleBookSelectTest handles POST /book-test/test.
// POST: the chosen slot is cleared and the slot list reloaded for the new test
func (s *Server) handleBookSelectTest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	err := orchestrators.ExecuteSelectTest(r.Context(), orchestrators.SelectTestInput{
		ClientID: middleware.ClientIDFromContext(r.Context()),
		TestID:   formID(r, "testId"),
	}, orchestrators.SelectTestDeps{Slots: s.deps.API, Drafts: s.deps.Drafts})
	if err != nil {
		s.mutationFailed(w, r, err, "Failed to load slots.", "/book-test")
		return
	}
	redirect(w, r, "/book-test")
}

// handleBookSubmit handles POST /book-test.
// INVARIANT: an incomplete form or insurance without a policy never reaches the API
func (s *Server) handleBookSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	payment := r.FormValue("payment")
	if payment == "" {
		payment = booking.PaymentCash
	}
	_, err := orchestrators.ExecuteSubmitBooking(r.Context(), orchestrators.SubmitBookingInput{
		ClientID: middleware.ClientIDFromContext(r.Context()),
		SlotID:   formID(r, "slotId"),
		Payment:  payment,
		PolicyID: formID(r, "policyId"),
	}, orchestrators.SubmitBookingDeps{Bookings: s.deps.API, Drafts: s.deps.Drafts})
	switch {
	case errors.Is(err, booking.ErrIncomplete), errors.Is(err, booking.ErrPolicyRequired),
		errors.Is(err, booking.ErrUnknownSlot), errors.Is(err, booking.ErrUnknownPayment):
		s.notify(r, notification.Error(err.Error()))
		redirect(w, r, "/book-test")
	case err != nil:
		s.mutationFailed(w, r, err, api.MessageOr(err, "Booking Failed."), "/book-test")
	default:
		s.notify(r, notification.Success("Booking Confirmed!"))
		redirect(w, r, session.PathPatientHome)
	}
}
