package fakeapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"testinsure/internal/domain/account"
	"testinsure/internal/domain/booking"
	"testinsure/internal/domain/claim"
	"testinsure/internal/domain/labtest"
	"testinsure/internal/domain/policy"
	"testinsure/internal/domain/slot"
)

const maxUpload = 10 << 20

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in account.Credentials
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request")
		return
	}
	s.mu.Lock()
	a, ok := s.accounts[strings.ToLower(strings.TrimSpace(in.Email))]
	s.mu.Unlock()
	if !ok || a.CheckPassword(in.Password) != nil {
		writeError(w, http.StatusUnauthorized, "Bad credentials")
		return
	}
	s.writeAuth(w, a)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in account.Registration
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request")
		return
	}
	in.Normalize()
	if in.Name == "" || in.Email == "" {
		writeError(w, http.StatusBadRequest, "Name and email are required")
		return
	}
	a := &account.Account{Name: in.Name, Email: in.Email, Phone: in.Phone, Role: RolePatient}
	if err := a.SetPassword(in.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	if _, exists := s.accounts[a.Email]; exists {
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, "Email already in use")
		return
	}
	a.ID = s.id()
	s.accounts[a.Email] = a
	s.mu.Unlock()
	s.writeAuth(w, a)
}

func (s *Server) writeAuth(w http.ResponseWriter, a *account.Account) {
	tok, err := s.mint(a)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token signing failed")
		return
	}
	writeJSON(w, http.StatusOK, account.AuthResponse{Token: tok, Role: a.Role, Name: a.Name})
}

func (s *Server) handleListTests(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]labtest.LabTest, 0, len(s.tests))
	for _, t := range s.tests {
		out = append(out, t)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTest(w http.ResponseWriter, r *http.Request) {
	var in labtest.Draft
	if err := decode(r, &in); err != nil || strings.TrimSpace(in.Name) == "" {
		writeError(w, http.StatusBadRequest, "Test name is required")
		return
	}
	s.mu.Lock()
	t := s.addTestLocked(in)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tests[id]; !ok {
		writeError(w, http.StatusBadRequest, "Test not found")
		return
	}
	for _, b := range s.bookings {
		if b.LaboratoryTest.ID == id {
			writeError(w, http.StatusBadRequest, "Test has existing bookings")
			return
		}
	}
	delete(s.tests, id)
	for sid, rec := range s.slots {
		if rec.TestID == id {
			delete(s.slots, sid)
		}
	}
	w.WriteHeader(http.StatusOK)
}

// remainingLocked reports a slot's capacity minus its active bookings.
func (s *Server) remainingLocked(rec slotRecord) slot.Slot {
	out := rec.Slot
	for _, b := range s.bookings {
		if b.TimeSlot.ID == rec.ID && b.Status != booking.StatusCancelled {
			out.Capacity--
		}
	}
	return out
}

func (s *Server) handleListSlots(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	s.mu.Lock()
	out := []slot.Slot{}
	for _, rec := range s.slots {
		if rec.TestID == id {
			out = append(out, s.remainingLocked(rec))
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StartTime < out[j].StartTime
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateSlot(w http.ResponseWriter, r *http.Request) {
	testID, err := strconv.ParseInt(r.URL.Query().Get("testId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "testId is required")
		return
	}
	var in slot.Draft
	if err := decode(r, &in); err != nil || in.Date == "" || in.StartTime == "" {
		writeError(w, http.StatusBadRequest, "Date and start time are required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tests[testID]; !ok {
		writeError(w, http.StatusBadRequest, "Test not found")
		return
	}
	writeJSON(w, http.StatusOK, s.addSlotLocked(testID, in))
}

func (s *Server) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	me := principalFrom(r.Context()).Email
	s.mu.Lock()
	out := []policy.Policy{}
	for id, p := range s.policies {
		if s.policyOwner[id] == me {
			out = append(out, p)
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddPolicy(w http.ResponseWriter, r *http.Request) {
	var in policy.Draft
	if err := decode(r, &in); err != nil || in.PolicyNumber == "" {
		writeError(w, http.StatusBadRequest, "Policy number is required")
		return
	}
	me := principalFrom(r.Context()).Email
	s.mu.Lock()
	defer s.mu.Unlock()
	p := policy.Policy{
		ID:             s.id(),
		ProviderName:   in.ProviderName,
		PolicyNumber:   in.PolicyNumber,
		CoverageAmount: in.CoverageAmount,
		ExpiryDate:     in.ExpiryDate,
		Status:         policy.StatusActive,
	}
	s.policies[p.ID] = p
	s.policyOwner[p.ID] = me
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) claimViewLocked(c *claimRecord) claim.Claim {
	out := claim.Claim{
		ID:             c.ID,
		Status:         c.Status,
		ApprovedAmount: c.ApprovedAmount,
		Remarks:        c.Remarks,
		RaisedAt:       c.RaisedAt.Format(time.RFC3339),
	}
	if !c.ResolvedAt.IsZero() {
		out.ResolvedAt = c.ResolvedAt.Format(time.RFC3339)
	}
	if b, ok := s.bookings[c.BookingID]; ok {
		out.Booking.ID = b.ID
		out.Booking.User.Name = b.User.Name
		out.Booking.User.Email = b.User.Email
		out.Booking.LaboratoryTest.Name = b.LaboratoryTest.Name
		out.Booking.LaboratoryTest.Cost = b.LaboratoryTest.Cost
	}
	if p, ok := s.policies[c.PolicyID]; ok {
		out.Policy = claim.PolicyRef{ID: p.ID, ProviderName: p.ProviderName, PolicyNumber: p.PolicyNumber}
	}
	return out
}

func (s *Server) handleListClaims(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]claim.Claim, 0, len(s.claims))
	for _, c := range s.claims {
		out = append(out, s.claimViewLocked(c))
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) pendingClaimLocked(w http.ResponseWriter, r *http.Request) (*claimRecord, bool) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return nil, false
	}
	c, ok := s.claims[id]
	if !ok {
		writeError(w, http.StatusBadRequest, "Claim not found")
		return nil, false
	}
	if c.Status != claim.StatusPending {
		writeError(w, http.StatusBadRequest, "Claim is already resolved")
		return nil, false
	}
	return c, true
}

func (s *Server) handleApproveClaim(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.pendingClaimLocked(w, r)
	if !ok {
		return
	}
	b := s.bookings[c.BookingID]
	c.Status = claim.StatusApproved
	c.ResolvedAt = s.now()
	c.ApprovedAmount = b.LaboratoryTest.Cost
	b.PaymentStatus = booking.PaymentPaid
	writeJSON(w, http.StatusOK, s.claimViewLocked(c))
}

func (s *Server) handleRejectClaim(w http.ResponseWriter, r *http.Request) {
	var in claim.Rejection
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.pendingClaimLocked(w, r)
	if !ok {
		return
	}
	c.Status = claim.StatusRejected
	c.ResolvedAt = s.now()
	c.Remarks = in.Reason
	b := s.bookings[c.BookingID]
	p := s.policies[c.PolicyID]
	p.CoverageAmount += b.LaboratoryTest.Cost
	if strings.Contains(strings.ToLower(in.Reason), strings.ToLower(claim.BlockingReason)) {
		p.Status = policy.StatusBlocked
	}
	s.policies[c.PolicyID] = p
	b.Status = booking.StatusCancelled
	b.PaymentStatus = booking.PaymentPending
	writeJSON(w, http.StatusOK, s.claimViewLocked(c))
}

func (s *Server) bookingsLocked(keep func(id int64, b *booking.Booking) bool) []booking.Booking {
	out := []booking.Booking{}
	for id, b := range s.bookings {
		if keep(id, b) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) handleMyBookings(w http.ResponseWriter, r *http.Request) {
	me := principalFrom(r.Context()).Email
	s.mu.Lock()
	out := s.bookingsLocked(func(id int64, _ *booking.Booking) bool { return s.bookingOwner[id] == me })
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAllBookings(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := s.bookingsLocked(func(_ int64, b *booking.Booking) bool { return b.Status != booking.StatusCancelled })
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var in booking.Request
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request")
		return
	}
	me := principalFrom(r.Context()).Email

	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.accounts[me]
	if !ok {
		writeError(w, http.StatusBadRequest, "User not found")
		return
	}
	t, ok := s.tests[in.TestID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Test not found")
		return
	}
	rec, ok := s.slots[in.SlotID]
	if !ok || rec.TestID != in.TestID {
		writeError(w, http.StatusBadRequest, "Slot not found")
		return
	}
	for id, b := range s.bookings {
		if s.bookingOwner[id] == me && b.TimeSlot.ID == rec.ID && b.Status != booking.StatusCancelled {
			writeError(w, http.StatusBadRequest, "You have already booked this time slot!")
			return
		}
	}
	if !s.remainingLocked(rec).Available() {
		writeError(w, http.StatusBadRequest, "Slot is fully booked.")
		return
	}

	b := &booking.Booking{
		User:           booking.Patient{ID: user.ID, Name: user.Name, Email: user.Email},
		LaboratoryTest: t,
		TimeSlot:       rec.Slot,
		Status:         booking.StatusConfirmed,
		PaymentStatus:  booking.PaymentPending,
		CreatedAt:      s.now().Format(time.RFC3339),
	}
	var pol policy.Policy
	if in.IsInsurance {
		if in.PolicyID == nil {
			writeError(w, http.StatusBadRequest, "Policy ID required")
			return
		}
		pol, ok = s.policies[*in.PolicyID]
		if !ok || s.policyOwner[pol.ID] != me {
			writeError(w, http.StatusBadRequest, "Policy not found")
			return
		}
		if !pol.IsActive() {
			writeError(w, http.StatusBadRequest, "Policy is blocked")
			return
		}
		if pol.CoverageAmount < t.Cost {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Insufficient Insurance Coverage! Remaining: %.2f", pol.CoverageAmount))
			return
		}
		pol.CoverageAmount -= t.Cost
		s.policies[pol.ID] = pol
		b.PaymentStatus = booking.PaymentInsurancePending
	}

	b.ID = s.id()
	s.bookings[b.ID] = b
	s.bookingOwner[b.ID] = me
	if in.IsInsurance {
		c := &claimRecord{ID: s.id(), BookingID: b.ID, PolicyID: pol.ID, Status: claim.StatusPending, Remarks: "Auto-generated claim", RaisedAt: s.now()}
		s.claims[c.ID] = c
	}
	writeJSON(w, http.StatusOK, *b)
}

// ownBookingLocked loads a booking owned by the caller.
func (s *Server) ownBookingLocked(w http.ResponseWriter, r *http.Request) (*booking.Booking, bool) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return nil, false
	}
	b, ok := s.bookings[id]
	if !ok {
		writeError(w, http.StatusBadRequest, "Booking not found")
		return nil, false
	}
	p := principalFrom(r.Context())
	if p.Role != RoleAdmin && s.bookingOwner[id] != p.Email {
		writeError(w, http.StatusBadRequest, "Unauthorized access")
		return nil, false
	}
	return b, true
}

func (s *Server) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.ownBookingLocked(w, r)
	if !ok {
		return
	}
	if b.Status == booking.StatusCancelled {
		writeError(w, http.StatusBadRequest, "Booking is already cancelled")
		return
	}
	b.Status = booking.StatusCancelled
	for _, c := range s.claims {
		if c.BookingID == b.ID && c.Status == claim.StatusPending {
			p := s.policies[c.PolicyID]
			p.CoverageAmount += b.LaboratoryTest.Cost
			s.policies[c.PolicyID] = p
			c.Status = claim.StatusRejected
			c.ResolvedAt = s.now()
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handlePayBooking(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.ownBookingLocked(w, r)
	if !ok {
		return
	}
	if b.Status == booking.StatusCancelled {
		writeError(w, http.StatusBadRequest, "Booking is cancelled")
		return
	}
	b.PaymentStatus = booking.PaymentPaid
	writeJSON(w, http.StatusOK, *b)
}

func (s *Server) handleBill(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	b, ok := s.ownBookingLocked(w, r)
	if !ok {
		s.mu.Unlock()
		return
	}
	bill := *b
	s.mu.Unlock()
	if bill.Status == booking.StatusCancelled {
		writeError(w, http.StatusBadRequest, "No bill for a cancelled booking")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="bill_%d.pdf"`, bill.ID))
	fmt.Fprintf(w, "%%PDF-1.4\nTestInsure receipt\nBooking: %d\nPatient: %s\nTest: %s\nAmount: %s\nPayment: %s\n",
		bill.ID, bill.User.Name, bill.LaboratoryTest.Name, bill.LaboratoryTest.CostLabel(), bill.PaymentStatus)
}

func (s *Server) handleUploadReport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed upload")
		return
	}
	id, err := strconv.ParseInt(r.FormValue("bookingId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bookingId is required")
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer f.Close()
	body, err := io.ReadAll(f)
	if err != nil || len(body) == 0 {
		writeError(w, http.StatusBadRequest, "Error: The uploaded file is empty!")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		writeError(w, http.StatusBadRequest, "Booking not found")
		return
	}
	s.reports[id] = reportRecord{Filename: fmt.Sprintf("report_%d_%s", id, hdr.Filename), Body: body}
	b.Status = booking.StatusCompleted
	writeJSON(w, http.StatusOK, map[string]string{"message": "Report uploaded"})
}

func (s *Server) handleDownloadReport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	b, ok := s.ownBookingLocked(w, r)
	if !ok {
		s.mu.Unlock()
		return
	}
	rep, found := s.reports[b.ID]
	s.mu.Unlock()
	if !found {
		writeError(w, http.StatusNotFound, "Report not found")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, rep.Filename))
	w.Write(rep.Body)
}
