package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"testinsure/internal/adapters/logging"
	"testinsure/internal/application/listutil"
	"testinsure/internal/application/orchestrators"
	"testinsure/internal/application/projections"
	"testinsure/internal/application/validation"
	"testinsure/internal/domain/booking"
	"testinsure/internal/domain/claim"
	"testinsure/internal/domain/labtest"
	"testinsure/internal/domain/notification"
	"testinsure/internal/domain/slot"
)

// maxReportUpload bounds a report upload. The CSRF check may parse the form
// before the handler runs, so the file size is checked again.
const maxReportUpload = 20 << 20

type pager struct {
	Info   listutil.PageInfo
	Params listutil.ListParams
	Path   string
}

type adminDashboardPage struct {
	Today string
}

type adminTestsPage struct {
	Tests  []labtest.LabTest
	Pager  pager
	List   listutil.ListParams
	Form   labtest.Draft
	Errors []string
}

type adminSlotsPage struct {
	projections.AdminSlotsResult
	Form   slot.Draft
	Errors []string
}

type adminReportsPage struct {
	Bookings []booking.Booking
}

type rejectPage struct {
	ClaimID  int64
	Reason   string
	Blocking string
}

func (s *Server) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	today := s.opts.Now().In(s.opts.Location).Format("Monday, January 2, 2006")
	s.render(w, r, http.StatusOK, "admin_dashboard", "Admin Dashboard", adminDashboardPage{Today: today})
}

// handleAdminTests handles GET /admin/tests.
// Query: q (name search), sort (name|cost), dir, page, per_page.
func (s *Server) handleAdminTests(w http.ResponseWriter, r *http.Request) {
	s.renderAdminTests(w, r, http.StatusOK, labtest.Draft{}, nil)
}

func (s *Server) renderAdminTests(w http.ResponseWriter, r *http.Request, status int, form labtest.Draft, errs []string) {
	list := listutil.ParseListParams(r.URL.Query(), projections.AdminTestSortColumns)
	res, err := projections.QueryAdminTests(r.Context(), projections.AdminTestsQuery{List: list}, projections.AdminTestsDeps{Tests: s.deps.API})
	if err != nil && s.fetchFailed(w, r, err, "Failed to load tests.") {
		return
	}
	s.render(w, r, status, "admin_tests", "Tests", adminTestsPage{
		Tests:  res.Tests,
		Pager:  pager{Info: res.Page, Params: list, Path: "/admin/tests"},
		List:   list,
		Form:   form,
		Errors: errs,
	})
}

// handleAdminTestCreate handles POST /admin/tests.
// POST: invalid input re-renders the list with field errors; otherwise redirects back to the list
func (s *Server) handleAdminTestCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	cost, _ := strconv.ParseFloat(strings.TrimSpace(r.FormValue("cost")), 64)
	draft := labtest.Draft{
		Name:             r.FormValue("name"),
		Description:      r.FormValue("description"),
		Cost:             cost,
		PrepInstructions: r.FormValue("prepInstructions"),
	}

	_, err := orchestrators.ExecuteCreateTest(r.Context(), orchestrators.CreateTestInput{Draft: draft},
		orchestrators.CreateTestDeps{Catalog: s.deps.API})
	var ve *validation.Error
	switch {
	case errors.As(err, &ve):
		s.renderAdminTests(w, r, http.StatusUnprocessableEntity, draft, ve.Messages)
	case err != nil:
		s.mutationFailed(w, r, err, "Failed to add test.", "/admin/tests")
	default:
		s.notify(r, notification.Success("Test Added Successfully!"))
		redirect(w, r, "/admin/tests")
	}
}

func (s *Server) handleAdminTestDeleteConfirm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	s.renderConfirm(w, r, confirmPage{
		Heading: "Delete Test",
		Message: "Delete this test?",
		Action:  fmt.Sprintf("/admin/tests/%d/delete", id),
		Submit:  "Delete",
		Cancel:  "/admin/tests",
		Danger:  true,
	})
}

// handleAdminTestDelete handles POST /admin/tests/{id}/delete.
func (s *Server) handleAdminTestDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	if err := s.deps.API.DeleteTest(r.Context(), id); err != nil {
		s.mutationFailed(w, r, err, "Cannot delete. It might have existing bookings.", "/admin/tests")
		return
	}
	s.notify(r, notification.Success("Test Deleted."))
	redirect(w, r, "/admin/tests")
}

// handleAdminSlots handles GET /admin/slots?testId=N.
func (s *Server) handleAdminSlots(w http.ResponseWriter, r *http.Request) {
	testID, _ := strconv.ParseInt(r.URL.Query().Get("testId"), 10, 64)
	s.renderAdminSlots(w, r, http.StatusOK, testID, slot.Draft{Capacity: slot.DefaultCapacity}, nil)
}

func (s *Server) renderAdminSlots(w http.ResponseWriter, r *http.Request, status int, testID int64, form slot.Draft, errs []string) {
	res, err := projections.QueryAdminSlots(r.Context(), projections.AdminSlotsQuery{TestID: testID},
		projections.AdminSlotsDeps{Tests: s.deps.API, Slots: s.deps.API})
	if err != nil {
		msg := "Failed to load slots."
		if res.Tests == nil {
			msg = "Failed to load tests."
		}
		if s.fetchFailed(w, r, err, msg) {
			return
		}
	}
	s.render(w, r, status, "admin_slots", "Slots", adminSlotsPage{AdminSlotsResult: res, Form: form, Errors: errs})
}

// handleAdminSlotCreate handles POST /admin/slots.
// PRE: form carries testId, date, startTime, endTime and capacity
// POST: without a test nothing is sent and "Select a test first!" is shown
func (s *Server) handleAdminSlotCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	testID := formID(r, "testId")
	capacity := slot.DefaultCapacity
	if raw := strings.TrimSpace(r.FormValue("capacity")); raw != "" {
		capacity, _ = strconv.Atoi(raw)
	}
	draft := slot.Draft{
		Date:      strings.TrimSpace(r.FormValue("date")),
		StartTime: strings.TrimSpace(r.FormValue("startTime")),
		EndTime:   strings.TrimSpace(r.FormValue("endTime")),
		Capacity:  capacity,
	}
	back := fmt.Sprintf("/admin/slots?testId=%d", testID)

	_, err := orchestrators.ExecuteCreateSlot(r.Context(), orchestrators.CreateSlotInput{TestID: testID, Draft: draft},
		orchestrators.CreateSlotDeps{Catalog: s.deps.API})
	var ve *validation.Error
	switch {
	case errors.Is(err, orchestrators.ErrNoTestSelected):
		s.notify(r, notification.Error(err.Error()))
		redirect(w, r, "/admin/slots")
	case errors.As(err, &ve):
		s.renderAdminSlots(w, r, http.StatusUnprocessableEntity, testID, draft, ve.Messages)
	case errors.Is(err, orchestrators.ErrSlotWindow):
		s.renderAdminSlots(w, r, http.StatusUnprocessableEntity, testID, draft, []string{err.Error()})
	case err != nil:
		s.mutationFailed(w, r, err, "Failed to create slot.", back)
	default:
		s.notify(r, notification.Success("Slot Created!"))
		redirect(w, r, back)
	}
}

func (s *Server) handleAdminClaims(w http.ResponseWriter, r *http.Request) {
	res, err := projections.QueryAdminClaims(r.Context(), projections.AdminClaimsDeps{Claims: s.deps.API})
	if err != nil && s.fetchFailed(w, r, err, "Failed to load claims.") {
		return
	}
	s.render(w, r, http.StatusOK, "admin_claims", "Claims", res)
}

// handleAdminClaimApprove handles POST /admin/claims/{id}/approve.
func (s *Server) handleAdminClaimApprove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	if err := s.deps.API.ApproveClaim(r.Context(), id); err != nil {
		s.mutationFailed(w, r, err, "Approval Failed.", "/admin/claims")
		return
	}
	s.notify(r, notification.Success("Claim Approved!"))
	redirect(w, r, "/admin/claims")
}

// handleAdminClaimRejectForm handles GET /admin/claims/{id}/reject: the reason prompt.
func (s *Server) handleAdminClaimRejectForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	s.render(w, r, http.StatusOK, "reject_reason", "Reject Claim", rejectPage{ClaimID: id, Blocking: claim.BlockingReason})
}

// handleAdminClaimReject handles POST /admin/claims/{id}/reject.
// POST: an empty reason aborts silently; the reason "Invalid Insurance" also blocks the policy server-side
func (s *Server) handleAdminClaimReject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	err := orchestrators.ExecuteRejectClaim(r.Context(), orchestrators.RejectClaimInput{ClaimID: id, Reason: r.FormValue("reason")},
		orchestrators.RejectClaimDeps{Claims: s.deps.API})
	var ve *validation.Error
	switch {
	case errors.Is(err, orchestrators.ErrRejectionAborted):
		redirect(w, r, "/admin/claims")
	case errors.As(err, &ve):
		s.notify(r, notification.Error(ve.Error()))
		redirect(w, r, fmt.Sprintf("/admin/claims/%d/reject", id))
	case err != nil:
		s.mutationFailed(w, r, err, "Rejection Failed.", "/admin/claims")
	default:
		s.notify(r, notification.Info("Claim Rejected."))
		redirect(w, r, "/admin/claims")
	}
}

func (s *Server) handleAdminReports(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.deps.API.AllBookings(r.Context())
	if err != nil && s.fetchFailed(w, r, err, "Failed to load bookings.") {
		return
	}
	s.render(w, r, http.StatusOK, "admin_reports", "Reports", adminReportsPage{Bookings: bookings})
}

// handleAdminReportUpload handles POST /admin/reports/{id}/upload (multipart, field "file").
// POST: the file is streamed to the API unchanged
func (s *Server) handleAdminReportUpload(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxReportUpload)
	if err := r.ParseMultipartForm(maxReportUpload); err != nil {
		logging.FromContext(r.Context()).Warn("report_upload_rejected", "booking_id", id, "error", err.Error())
		s.notify(r, notification.Error("Upload Failed."))
		redirect(w, r, "/admin/reports")
		return
	}
	defer r.MultipartForm.RemoveAll()

	input := orchestrators.UploadReportInput{BookingID: id}
	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		if header.Size > maxReportUpload {
			s.notify(r, notification.Error("Upload Failed."))
			redirect(w, r, "/admin/reports")
			return
		}
		input.File = file
		input.Filename = header.Filename
	}

	err := orchestrators.ExecuteUploadReport(r.Context(), input, orchestrators.UploadReportDeps{Reports: s.deps.API})
	switch {
	case errors.Is(err, orchestrators.ErrNoFile):
		s.notify(r, notification.Error(err.Error()))
		redirect(w, r, "/admin/reports")
	case err != nil:
		s.mutationFailed(w, r, err, "Upload Failed.", "/admin/reports")
	default:
		s.notify(r, notification.Success("Report Uploaded Successfully!"))
		redirect(w, r, "/admin/reports")
	}
}
