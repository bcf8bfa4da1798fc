package web

import (
	"net/http"
	"net/url"
	"strings"
)

// confirmPage asks the user to confirm an action before it is posted.
// The action only happens when the form is submitted; "Back" leaves state untouched.
type confirmPage struct {
	Heading string
	Message string
	Action  string
	Submit  string
	Cancel  string
	Danger  bool
}

func (s *Server) renderConfirm(w http.ResponseWriter, r *http.Request, p confirmPage) {
	s.render(w, r, http.StatusOK, "confirm", p.Heading, p)
}

// backPath returns the same-site path the request came from, or fallback.
// POST: the result is always a local absolute path
func backPath(r *http.Request, fallback string) string {
	ref := r.Referer()
	if ref == "" {
		return fallback
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != r.Host) {
		return fallback
	}
	if !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
		return fallback
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}
