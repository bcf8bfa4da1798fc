package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testinsure/internal/domain/account"
	"testinsure/internal/domain/booking"
	"testinsure/internal/domain/claim"
	"testinsure/internal/domain/session"
)

func withSession(token string) context.Context {
	s, _ := session.New(token, "PATIENT", "Pat")
	return session.NewContext(context.Background(), session.View{Restored: true, Session: &s})
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api", time.Second)
}

func TestBearerHeader_FromSession(t *testing.T) {
	var got string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte("[]"))
	})

	_, err := c.ListTests(withSession("abc"))
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", got)
}

func TestBearerHeader_AbsentWithoutSession(t *testing.T) {
	got := "unset"
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte("[]"))
	})

	_, err := c.ListTests(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)

	// a restored but absent session sends nothing either
	ctx := session.NewContext(context.Background(), session.View{Restored: true})
	_, err = c.ListTests(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLogin_PostsCredentials(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		var creds account.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "a@b.c", creds.Email)
		json.NewEncoder(w).Encode(account.AuthResponse{Token: "t", Role: "ADMIN", Name: "Ana"})
	})

	resp, err := c.Login(context.Background(), account.Credentials{Email: "a@b.c", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, account.AuthResponse{Token: "t", Role: "ADMIN", Name: "Ana"}, resp)
}

func TestAuthEndpoints_NeverSendSessionToken(t *testing.T) {
	var headers []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		headers = append(headers, r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(account.AuthResponse{Token: "new", Role: "PATIENT", Name: "Pat"})
	})

	// a browser that is still signed in posts the login and register forms
	ctx := withSession("old-token")
	_, err := c.Login(ctx, account.Credentials{Email: "a@b.c", Password: "pw"})
	require.NoError(t, err)
	_, err = c.Register(ctx, account.Registration{Name: "Pat", Email: "a@b.c", Password: "secret"})
	require.NoError(t, err)

	assert.Equal(t, []string{"", ""}, headers)
}

func TestError_MessageAndUnauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/bookings":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"message":"Slot is full","status":"error"}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	})

	_, err := c.CreateBooking(withSession("t"), booking.Request{TestID: 1, SlotID: 2})
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Slot is full", apiErr.Message)
	assert.False(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, "Slot is full", MessageOr(err, "Booking Failed."))

	_, err = c.MyBookings(withSession("expired"))
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestMessageOr_Fallbacks(t *testing.T) {
	assert.Equal(t, "fallback", MessageOr(errors.New("dial tcp"), "fallback"))
	assert.Equal(t, "fallback", MessageOr(&Error{StatusCode: 500, Message: "NullPointerException"}, "fallback"))
	assert.Equal(t, "Bad Request", parseError(400, nil).Message)
	assert.Equal(t, "Bad Request", parseError(400, []byte("<html>oops</html>")).Message)
	assert.Equal(t, "plain text", parseError(409, []byte("plain text")).Message)
}

func TestParseError_TruncatesOnRuneBoundary(t *testing.T) {
	// 199 ASCII bytes then a 3-byte rune straddling the limit
	body := strings.Repeat("a", maxMessageLength-1) + "€ tail"
	msg := parseError(http.StatusConflict, []byte(body)).Message

	assert.True(t, utf8.ValidString(msg))
	assert.LessOrEqual(t, len(msg), maxMessageLength)
	assert.Equal(t, strings.Repeat("a", maxMessageLength-1), msg)

	short := parseError(http.StatusConflict, []byte("Créneau complet")).Message
	assert.Equal(t, "Créneau complet", short)
}

func TestTransportError(t *testing.T) {
	c := New("http://127.0.0.1:1/api", 200*time.Millisecond)
	_, err := c.ListTests(context.Background())
	require.Error(t, err)
	var apiErr *Error
	assert.False(t, errors.As(err, &apiErr))
}

func TestCreateSlot_QueryParam(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/slots", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("testId"))
		w.Write([]byte(`{"slotId":3}`))
	})
	s, err := c.CreateSlot(withSession("t"), 7, slotDraft())
	require.NoError(t, err)
	assert.Equal(t, int64(3), s.ID)
}

func TestRejectClaim_Body(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/insurance/claims/9/reject", r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"reason":"Invalid Insurance"}`, string(b))
		w.WriteHeader(http.StatusOK)
	})
	require.NoError(t, c.RejectClaim(withSession("t"), 9, claim.Rejection{Reason: "Invalid Insurance"}))
}

func TestCreateBooking_InsurancePayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"testId":1,"slotId":2,"isInsurance":true,"policyId":5}`, string(b))
		w.Write([]byte(`{"bookingId":11,"status":"CONFIRMED"}`))
	})
	pid := int64(5)
	b, err := c.CreateBooking(withSession("t"), booking.Request{TestID: 1, SlotID: 2, IsInsurance: true, PolicyID: &pid})
	require.NoError(t, err)
	assert.Equal(t, int64(11), b.ID)
}

func TestDownloadBill_NamesFile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/bookings/4/bill", r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	})
	d, err := c.DownloadBill(withSession("t"), 4)
	require.NoError(t, err)
	assert.Equal(t, "bill_4.pdf", d.Filename)
	assert.Equal(t, "application/pdf", d.ContentType)
	assert.Equal(t, "%PDF-1.4", string(d.Body))
}

func TestDownloadReport_ContentDisposition(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="blood_panel.pdf"`)
		w.Write([]byte("x"))
	})
	d, err := c.DownloadReport(withSession("t"), 4)
	require.NoError(t, err)
	assert.Equal(t, "blood_panel.pdf", d.Filename)
	assert.Equal(t, "application/octet-stream", d.ContentType)
}

func TestDownloadReport_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Report not found", http.StatusNotFound)
	})
	_, err := c.DownloadReport(withSession("t"), 4)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestUploadReport_Multipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "12", r.FormValue("bookingId"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		b, _ := io.ReadAll(f)
		assert.Equal(t, "scan.pdf", hdr.Filename)
		assert.Equal(t, "pdf-bytes", string(b))
		w.Write([]byte("Report uploaded"))
	})
	require.NoError(t, c.UploadReport(withSession("t"), 12, "scan.pdf", stringsReader("pdf-bytes")))
}
