package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"testinsure/internal/adapters/api"
	"testinsure/internal/adapters/http/middleware"
	"testinsure/internal/adapters/logging"
	"testinsure/internal/application/listutil"
	"testinsure/internal/domain/notification"
	"testinsure/internal/domain/session"
	"testinsure/internal/domain/theme"
)

//go:embed templates static
var assets embed.FS

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

var funcMap = template.FuncMap{
	"renderMarkdown": func(md string) template.HTML {
		var buf bytes.Buffer
		if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
			return template.HTML(template.HTMLEscapeString(md))
		}
		return template.HTML(buf.String())
	},
	"money":       func(v float64) string { return fmt.Sprintf("$%.2f", v) },
	"statusClass": statusClass,
	"statusLabel": statusLabel,
	"add":         func(a, b int) int { return a + b },
	"sub":         func(a, b int) int { return a - b },
	"pageQuery":   func(p listutil.ListParams, page int) string { return p.Query(page) },
}

// statusClass picks the badge color for a status reported by the API.
func statusClass(status string) string {
	switch status {
	case "COMPLETED", "PAID", "APPROVED", "ACTIVE":
		return "success"
	case "PENDING", "INSURANCE_PENDING":
		return "warning"
	case "REJECTED", "BLOCKED":
		return "danger"
	case "CANCELLED":
		return "muted"
	default:
		return "info"
	}
}

// statusLabel turns INSURANCE_PENDING into "Insurance Pending".
func statusLabel(status string) string {
	words := strings.Fields(strings.ReplaceAll(strings.ToLower(status), "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// parseTemplates pairs the layout and partials with every page template.
func parseTemplates() (map[string]*template.Template, error) {
	base, err := template.New("layout.html").Funcs(funcMap).ParseFS(assets, "templates/layout.html", "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	pages, err := fs.Glob(assets, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	out := make(map[string]*template.Template, len(pages))
	for _, p := range pages {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		tpl, err := clone.ParseFS(assets, p)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", p, err)
		}
		out[strings.TrimSuffix(p[len("templates/pages/"):], ".html")] = tpl
	}
	return out, nil
}

// layoutData is what every page template receives.
type layoutData struct {
	Title         string
	Session       *session.Session
	Theme         theme.Preference
	Palette       theme.Palette
	Notifications []notification.Notification
	CSRFField     template.HTML
	Now           time.Time
	Version       string
	Page          any
}

// render writes page name inside the layout, draining the client's notifications.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name, title string, page any) {
	tpl, ok := s.templates[name]
	if !ok {
		s.internalError(w, r, fmt.Errorf("unknown template %q", name))
		return
	}
	clientID := middleware.ClientIDFromContext(r.Context())
	view, _ := session.FromContext(r.Context())
	pref := s.deps.Themes.Restore(r.Context(), clientID)
	notices, err := s.deps.Notices.Drain(r.Context(), clientID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("notices_unavailable", "error", err.Error())
	}

	data := layoutData{
		Title:         title,
		Session:       view.Session,
		Theme:         pref,
		Palette:       pref.Palette(),
		Notifications: notices,
		CSRFField:     csrf.TemplateField(r),
		Now:           s.opts.Now().In(s.opts.Location),
		Version:       s.opts.Version,
		Page:          page,
	}

	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		s.internalError(w, r, fmt.Errorf("render %s: %w", name, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// internalError logs the real error and returns a generic message to the client.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	logging.FromContext(r.Context()).Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// notify queues n for the next page this client renders.
func (s *Server) notify(r *http.Request, n notification.Notification) {
	if err := s.deps.Notices.Push(r.Context(), middleware.ClientIDFromContext(r.Context()), n); err != nil {
		logging.FromContext(r.Context()).Warn("notice_dropped", "kind", string(n.Kind), "error", err.Error())
	}
}

// dropDraft discards the client's booking draft; failure only leaves a stale
// draft behind, which the next test selection replaces.
func (s *Server) dropDraft(r *http.Request, clientID string) {
	if err := s.deps.Drafts.Reset(r.Context(), clientID); err != nil {
		logging.FromContext(r.Context()).Warn("draft_reset_failed", "error", err.Error())
	}
}

// redirect sends the browser to path after a mutation.
func redirect(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// sessionExpired reports whether err means the API no longer accepts the token,
// and if so clears the session and sends the browser to the login page.
// POST: returns false and writes nothing for any other error
func (s *Server) sessionExpired(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, api.ErrUnauthorized) {
		return false
	}
	clientID := middleware.ClientIDFromContext(r.Context())
	if lerr := s.deps.Sessions.Logout(r.Context(), clientID); lerr != nil {
		logging.FromContext(r.Context()).Error("session_clear_failed", "error", lerr.Error())
	}
	s.dropDraft(r, clientID)
	logging.FromContext(r.Context()).Info("auth_event", "event", "session_expired")
	s.notify(r, notification.Info("Your session has expired."))
	redirect(w, r, session.PathLogin)
	return true
}

// mutationFailed reports a failed mutating call and redirects back.
func (s *Server) mutationFailed(w http.ResponseWriter, r *http.Request, err error, msg, back string) {
	if s.sessionExpired(w, r, err) {
		return
	}
	logging.FromContext(r.Context()).Warn("mutation_failed", "error", err.Error())
	s.notify(r, notification.Error(msg))
	redirect(w, r, back)
}

// fetchFailed reports a failed read; the page is still rendered with what it has.
// POST: returns true when the response was already written
func (s *Server) fetchFailed(w http.ResponseWriter, r *http.Request, err error, msg string) bool {
	if s.sessionExpired(w, r, err) {
		return true
	}
	logging.FromContext(r.Context()).Warn("fetch_failed", "error", err.Error())
	s.notify(r, notification.Error(msg))
	return false
}

// pathID parses the {id} route parameter.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// formID parses a positive integer form field; absent or malformed is 0.
func formID(r *http.Request, name string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(r.FormValue(name)), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

func currentSession(r *http.Request) *session.Session {
	view, _ := session.FromContext(r.Context())
	return view.Session
}

func (s *Server) handleLoading(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Refresh", "2")
	w.Header().Set("Retry-After", "2")
	s.render(w, r, http.StatusServiceUnavailable, "loading", "Loading", nil)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusNotFound, "not_found", "Not Found", nil)
}

func (s *Server) handleCSRFFailure(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusForbidden, "forbidden", "Request Expired", nil)
}
