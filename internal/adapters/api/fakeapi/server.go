// Package fakeapi is an in-memory stand-in for the remote hospital API.
// It serves the same endpoints and JSON shapes so the web client can run
// and be tested without the real backend.
package fakeapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"testinsure/internal/domain/account"
	"testinsure/internal/domain/booking"
	"testinsure/internal/domain/labtest"
	"testinsure/internal/domain/policy"
	"testinsure/internal/domain/slot"
)

// Role values as the remote API spells them.
const (
	RoleAdmin   = "ADMIN"
	RolePatient = "PATIENT"
)

// tokenTTL is how long a minted token stays valid.
const tokenTTL = 24 * time.Hour

var errInvalidToken = errors.New("invalid token")

type slotRecord struct {
	slot.Slot
	TestID int64
}

type claimRecord struct {
	ID             int64
	BookingID      int64
	PolicyID       int64
	Status         string
	ApprovedAmount float64
	Remarks        string
	RaisedAt       time.Time
	ResolvedAt     time.Time
}

type reportRecord struct {
	Filename string
	Body     []byte
}

// Server holds the in-memory API state.
// INVARIANT: every map is guarded by mu
type Server struct {
	mu     sync.Mutex
	secret []byte
	now    func() time.Time
	nextID int64

	accounts     map[string]*account.Account // by email
	tests        map[int64]labtest.LabTest
	slots        map[int64]slotRecord
	policies     map[int64]policy.Policy
	policyOwner  map[int64]string
	bookings     map[int64]*booking.Booking
	bookingOwner map[int64]string
	claims       map[int64]*claimRecord
	reports      map[int64]reportRecord
}

// New creates an empty server signing tokens with secret.
// PRE: len(secret) > 0
func New(secret []byte) *Server {
	return &Server{
		secret:       secret,
		now:          time.Now,
		accounts:     make(map[string]*account.Account),
		tests:        make(map[int64]labtest.LabTest),
		slots:        make(map[int64]slotRecord),
		policies:     make(map[int64]policy.Policy),
		policyOwner:  make(map[int64]string),
		bookings:     make(map[int64]*booking.Booking),
		bookingOwner: make(map[int64]string),
		claims:       make(map[int64]*claimRecord),
		reports:      make(map[int64]reportRecord),
	}
}

// SetClock replaces the server clock. Intended for tests.
func (s *Server) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Server) id() int64 {
	s.nextID++
	return s.nextID
}

// AddAccount registers a user directly.
// PRE: role is RoleAdmin or RolePatient; password satisfies account.SetPassword
func (s *Server) AddAccount(name, email, password, role string) error {
	a := &account.Account{Name: name, Email: strings.ToLower(email), Role: role}
	if err := a.SetPassword(password); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.Email]; ok {
		return fmt.Errorf("account %s already exists", a.Email)
	}
	a.ID = s.id()
	s.accounts[a.Email] = a
	return nil
}

// AddTest inserts a diagnostic test and returns its id.
func (s *Server) AddTest(d labtest.Draft) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addTestLocked(d).ID
}

func (s *Server) addTestLocked(d labtest.Draft) labtest.LabTest {
	t := labtest.LabTest{ID: s.id(), Name: d.Name, Description: d.Description, Cost: d.Cost, PrepInstructions: d.PrepInstructions}
	s.tests[t.ID] = t
	return t
}

// AddSlot inserts a slot for a test and returns its id.
func (s *Server) AddSlot(testID int64, d slot.Draft) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addSlotLocked(testID, d).ID
}

func (s *Server) addSlotLocked(testID int64, d slot.Draft) slot.Slot {
	rec := slotRecord{Slot: slot.Slot{ID: s.id(), Date: d.Date, StartTime: d.StartTime, EndTime: d.EndTime, Capacity: d.Capacity}, TestID: testID}
	s.slots[rec.ID] = rec
	return rec.Slot
}

// Token mints a signed token for an existing account. Intended for tests.
func (s *Server) Token(email string) (string, error) {
	s.mu.Lock()
	a, ok := s.accounts[strings.ToLower(email)]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("no account %s", email)
	}
	return s.mint(a)
}

// clock returns the current server time.
// PRE: mu is not held
func (s *Server) clock() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now()
}

func (s *Server) mint(a *account.Account) (string, error) {
	now := s.clock()
	claims := jwt.MapClaims{
		"sub":  a.Email,
		"role": a.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(tokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// principal is the authenticated caller of a request.
type principal struct {
	Email string
	Role  string
}

func (s *Server) verify(raw string) (principal, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.clock))
	if err != nil || !tok.Valid {
		return principal{}, errInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return principal{}, errInvalidToken
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" {
		return principal{}, errInvalidToken
	}
	return principal{Email: sub, Role: role}, nil
}

// Handler returns the API router rooted at /api.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/register", s.handleRegister)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/tests", s.handleListTests)
			r.Get("/tests/{id}/slots", s.handleListSlots)

			r.Group(func(r chi.Router) {
				r.Use(requireRole(RoleAdmin))
				r.Post("/tests", s.handleCreateTest)
				r.Delete("/tests/{id}", s.handleDeleteTest)
				r.Post("/slots", s.handleCreateSlot)
				r.Get("/insurance/claims", s.handleListClaims)
				r.Put("/insurance/claims/{id}/approve", s.handleApproveClaim)
				r.Put("/insurance/claims/{id}/reject", s.handleRejectClaim)
				r.Get("/bookings/all", s.handleAllBookings)
				r.Post("/reports/upload", s.handleUploadReport)
			})

			r.Get("/insurance/policies", s.handleListPolicies)
			r.Post("/insurance/policies", s.handleAddPolicy)
			r.Get("/bookings/my", s.handleMyBookings)
			r.Post("/bookings", s.handleCreateBooking)
			r.Put("/bookings/{id}/cancel", s.handleCancelBooking)
			r.Put("/bookings/{id}/pay", s.handlePayBooking)
			r.Get("/bookings/{id}/bill", s.handleBill)
			r.Get("/reports/download/{id}", s.handleDownloadReport)
		})
	})
	return r
}

type ctxKey struct{}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "Full authentication is required")
			return
		}
		p, err := s.verify(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Token is invalid or expired")
			return
		}
		next.ServeHTTP(w, r.WithContext(contextWithPrincipal(r.Context(), p)))
	})
}

func requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if principalFrom(r.Context()).Role != role {
				writeError(w, http.StatusForbidden, "Access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("fakeapi_encode_failed", "error", err)
	}
}

// writeError writes the API's error envelope.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg, "status": "error"})
}
