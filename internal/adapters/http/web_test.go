package web

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"testinsure/internal/adapters/api"
	"testinsure/internal/adapters/api/fakeapi"
	"testinsure/internal/adapters/storage"
	"testinsure/internal/adapters/storage/clientstate"
	"testinsure/internal/application/drafts"
	"testinsure/internal/application/flash"
	"testinsure/internal/application/sessions"
	"testinsure/internal/application/themes"
)

var testCSRFKey = []byte("0123456789abcdef0123456789abcdef")

// testClock is a Monday morning well before any seeded slot.
var testClock = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

type testApp struct {
	fake *fakeapi.Server
	web  *httptest.Server
}

func newSQLiteState(t *testing.T) sessions.StateStore {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open state db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.InitDB(db); err != nil {
		t.Fatalf("init state db: %v", err)
	}
	return clientstate.NewSQLiteStore(storage.NewTimedDB(db, nil, 0))
}

// newTestApp runs the web server against a seeded fake API.
func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWithState(t, newSQLiteState(t))
}

func newTestAppWithState(t *testing.T, state sessions.StateStore) *testApp {
	t.Helper()
	fake, apiURL := startFakeAPI(t)
	return &testApp{fake: fake, web: startWeb(t, apiURL, state, flash.NewQueue(), drafts.NewStore())}
}

// startFakeAPI serves a seeded fake API and returns its base URL.
func startFakeAPI(t *testing.T) (*fakeapi.Server, string) {
	t.Helper()
	fake := fakeapi.New([]byte("web-test-secret"))
	if err := fake.Seed(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	apiSrv := httptest.NewServer(fake.Handler())
	t.Cleanup(apiSrv.Close)
	return fake, apiSrv.URL + "/api"
}

// startWeb runs one web server instance. Instances given the same state,
// notices and drafts behave as replicas of one deployment.
func startWeb(t *testing.T, apiURL string, state sessions.StateStore, notices Notifier, drafts DraftStore) *httptest.Server {
	t.Helper()
	srv, err := NewServer(Deps{
		API:      api.New(apiURL, 5*time.Second),
		Sessions: sessions.NewService(state),
		Themes:   themes.NewService(state),
		Notices:  notices,
		Drafts:   drafts,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, Options{
		CSRFKey:            testCSRFKey,
		RateLimitPerSecond: 1000,
		RateLimitBurst:     1000,
		Location:           time.UTC,
		Now:                func() time.Time { return testClock },
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	web := httptest.NewServer(srv)
	t.Cleanup(web.Close)
	return web
}

// browser is a cookie-keeping client that does not follow redirects.
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

type page struct {
	Status   int
	Location string
	Header   http.Header
	Body     string
}

func (a *testApp) browser(t *testing.T) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &browser{t: t, base: a.web.URL, client: &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

func (b *browser) do(req *http.Request) page {
	b.t.Helper()
	resp, err := b.client.Do(req)
	if err != nil {
		b.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		b.t.Fatalf("read body: %v", err)
	}
	return page{Status: resp.StatusCode, Location: resp.Header.Get("Location"), Header: resp.Header, Body: string(body)}
}

func (b *browser) get(path string) page {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.base+path, nil)
	if err != nil {
		b.t.Fatalf("new request: %v", err)
	}
	return b.do(req)
}

var csrfFieldRe = regexp.MustCompile(`name="gorilla\.csrf\.Token" value="([^"]+)"`)

// csrfToken loads a page and returns the token of its first form.
func (b *browser) csrfToken() string {
	b.t.Helper()
	p := b.get("/")
	m := csrfFieldRe.FindStringSubmatch(p.Body)
	if m == nil {
		b.t.Fatalf("no CSRF field on home page")
	}
	return m[1]
}

func (b *browser) post(path string, form url.Values) page {
	b.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	form.Set("gorilla.csrf.Token", b.csrfToken())
	req, err := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(form.Encode()))
	if err != nil {
		b.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) upload(path, field, filename string, content []byte) page {
	b.t.Helper()
	token := b.csrfToken()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("gorilla.csrf.Token", token)
	if filename != "" {
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			b.t.Fatalf("create form file: %v", err)
		}
		_, _ = fw.Write(content)
	}
	_ = mw.Close()
	req, err := http.NewRequest(http.MethodPost, b.base+path, &buf)
	if err != nil {
		b.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return b.do(req)
}

// login signs the browser in and returns the redirect target.
func (b *browser) login(email, password string) page {
	b.t.Helper()
	return b.post("/login", url.Values{"email": {email}, "password": {password}})
}

func (b *browser) loginAsPatient() {
	b.t.Helper()
	if p := b.login(fakeapi.DemoPatientEmail, fakeapi.DemoPassword); p.Location != "/patient-dashboard" {
		b.t.Fatalf("patient login: status %d location %q", p.Status, p.Location)
	}
}

func (b *browser) loginAsAdmin() {
	b.t.Helper()
	if p := b.login(fakeapi.DemoAdminEmail, fakeapi.DemoPassword); p.Location != "/admin-dashboard" {
		b.t.Fatalf("admin login: status %d location %q", p.Status, p.Location)
	}
}

func expectRedirect(t *testing.T, p page, to string) {
	t.Helper()
	if p.Status != http.StatusSeeOther || p.Location != to {
		t.Fatalf("expected 303 to %s, got %d to %q", to, p.Status, p.Location)
	}
}

func expectContains(t *testing.T, p page, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(p.Body, w) {
			t.Errorf("expected page to contain %q (status %d)", w, p.Status)
		}
	}
}

func firstMatch(t *testing.T, body, pattern string) string {
	t.Helper()
	m := regexp.MustCompile(pattern).FindStringSubmatch(body)
	if m == nil {
		t.Fatalf("no match for %s", pattern)
	}
	return m[1]
}

// brokenState fails every operation, like an unreachable redis.
type brokenState struct{}

var errStateDown = errors.New("state backend down")

func (brokenState) Get(context.Context, string, ...string) (map[string]string, error) {
	return nil, errStateDown
}

func (brokenState) SetMany(context.Context, string, map[string]string) error { return errStateDown }

func (brokenState) Delete(context.Context, string, ...string) error { return errStateDown }
