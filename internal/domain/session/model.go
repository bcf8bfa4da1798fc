package session

import (
	"errors"
	"strings"
)

// Role is the closed set of roles a session may carry.
type Role string

// Role constants
const (
	RoleAdmin   Role = "ADMIN"
	RolePatient Role = "PATIENT"
)

// Route paths each role lands on.
const (
	PathPublicHome  = "/"
	PathLogin       = "/login"
	PathAdminHome   = "/admin-dashboard"
	PathPatientHome = "/patient-dashboard"
)

// Persisted client state keys.
const (
	KeyToken = "token"
	KeyRole  = "role"
	KeyName  = "name"
)

// Keys lists every persisted key owned by the session.
var Keys = []string{KeyToken, KeyRole, KeyName}

// Domain errors
var (
	ErrUnknownRole = errors.New("role must be one of: ADMIN, PATIENT")
	ErrEmptyToken  = errors.New("token cannot be empty")
)

// ParseRole converts a wire value into a Role.
// PRE: none
// POST: returns a Role from the enumeration or ErrUnknownRole
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RolePatient:
		return RolePatient, nil
	}
	return "", ErrUnknownRole
}

// HomePath returns the landing page for a role.
// INVARIANT: every enumerated role has its own home; anything else falls back to the public home.
func HomePath(r Role) string {
	switch r {
	case RoleAdmin:
		return PathAdminHome
	case RolePatient:
		return PathPatientHome
	default:
		return PathPublicHome
	}
}

// Session is the authenticated identity held for one client.
// INVARIANT: a Session value is only ever constructed fully populated (see New).
type Session struct {
	Token string
	Role  Role
	Name  string
}

// New builds a Session from the raw fields returned by the remote API.
// PRE: none
// POST: returns a complete Session, or an error when the token is empty or the role unknown
func New(token, role, name string) (Session, error) {
	if token == "" {
		return Session{}, ErrEmptyToken
	}
	r, err := ParseRole(role)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, Role: r, Name: name}, nil
}

// Fields returns the persisted representation of the session.
func (s Session) Fields() map[string]string {
	return map[string]string{
		KeyToken: s.Token,
		KeyRole:  string(s.Role),
		KeyName:  s.Name,
	}
}

// View is what a request knows about its session.
// Restored is false until the durable state has been read; Session is nil when absent.
type View struct {
	Restored bool
	Session  *Session
}

// Present reports whether a session exists.
func (v View) Present() bool {
	return v.Session != nil
}

// Token returns the bearer token, or "" when the session is absent.
func (v View) Token() string {
	if v.Session == nil {
		return ""
	}
	return v.Session.Token
}
