//go:build browser

package browser_test

import (
	"fmt"
	"log/slog"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"

	"testinsure/internal/adapters/api"
	"testinsure/internal/adapters/api/fakeapi"
	web "testinsure/internal/adapters/http"
	"testinsure/internal/adapters/storage"
	"testinsure/internal/adapters/storage/clientstate"
	"testinsure/internal/application/drafts"
	"testinsure/internal/application/flash"
	"testinsure/internal/application/sessions"
	"testinsure/internal/application/themes"
	"testinsure/internal/domain/labtest"
	"testinsure/internal/domain/slot"
)

// testApp holds the running servers and Playwright handles.
type testApp struct {
	BaseURL string
	Fake    *fakeapi.Server
	PW      *playwright.Playwright
	Browser playwright.Browser
}

// newTestApp starts a seeded fake API, the web client and a headless browser.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	fake := fakeapi.New([]byte("browser-test-secret"))
	if err := fake.Seed(); err != nil {
		t.Fatalf("failed to seed fake API: %v", err)
	}
	apiSrv := httptest.NewServer(fake.Handler())
	t.Cleanup(apiSrv.Close)

	db, err := storage.Open(t.TempDir() + "/state.db")
	if err != nil {
		t.Fatalf("failed to open state DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.InitDB(db); err != nil {
		t.Fatalf("failed to init state DB: %v", err)
	}
	state := clientstate.NewSQLiteStore(storage.NewTimedDB(db, nil, 0))

	srv, err := web.NewServer(web.Deps{
		API:      api.New(apiSrv.URL+"/api", 5*time.Second),
		Sessions: sessions.NewService(state),
		Themes:   themes.NewService(state),
		Notices:  flash.NewQueue(),
		Drafts:   drafts.NewStore(),
		Logger:   slog.Default(),
	}, web.Options{
		CSRFKey:            []byte("browser-test-csrf-key-0123456789"),
		RateLimitPerSecond: 1000,
		RateLimitBurst:     1000,
		Location:           time.UTC,
	})
	if err != nil {
		t.Fatalf("failed to build server: %v", err)
	}
	webSrv := httptest.NewServer(srv)
	t.Cleanup(webSrv.Close)

	pw, err := playwright.Run()
	if err != nil {
		t.Fatalf("failed to start Playwright: %v", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		t.Fatalf("failed to launch browser: %v", err)
	}
	t.Cleanup(func() {
		browser.Close()
		pw.Stop()
	})

	return &testApp{BaseURL: webSrv.URL, Fake: fake, PW: pw, Browser: browser}
}

// newPage creates a new browser page in a fresh context, so cookies are not shared.
func (a *testApp) newPage(t *testing.T) playwright.Page {
	t.Helper()
	ctx, err := a.Browser.NewContext()
	if err != nil {
		t.Fatalf("failed to create context: %v", err)
	}
	t.Cleanup(func() { ctx.Close() })
	page, err := ctx.NewPage()
	if err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	return page
}

// addBookableTest adds a test with one far-future slot.
func (a *testApp) addBookableTest(name string, cost float64) (testID, slotID string) {
	tid := a.Fake.AddTest(labtest.Draft{Name: name, Description: "Panel", Cost: cost})
	sid := a.Fake.AddSlot(tid, slot.Draft{Date: "2030-01-01", StartTime: "09:00:00", EndTime: "09:30:00", Capacity: 5})
	return strconv.FormatInt(tid, 10), strconv.FormatInt(sid, 10)
}

// login signs in through the form and waits for the dashboard.
func (a *testApp) login(t *testing.T, page playwright.Page, email, dashboard string) {
	t.Helper()
	if _, err := page.Goto(a.BaseURL + "/login"); err != nil {
		t.Fatalf("failed to navigate to login: %v", err)
	}
	if err := page.Locator("input[name=email]").Fill(email); err != nil {
		t.Fatalf("failed to fill email: %v", err)
	}
	if err := page.Locator("input[name=password]").Fill(fakeapi.DemoPassword); err != nil {
		t.Fatalf("failed to fill password: %v", err)
	}
	if err := page.Locator("form[action='/login'] button[type=submit]").Click(); err != nil {
		t.Fatalf("failed to click login: %v", err)
	}
	a.waitForURL(t, page, dashboard)
}

func (a *testApp) waitForURL(t *testing.T, page playwright.Page, path string) {
	t.Helper()
	if err := page.WaitForURL(a.BaseURL+path, playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		t.Fatalf("expected to reach %s, at %s: %v", path, page.URL(), err)
	}
}

// waitForText waits until text is visible on the page.
func waitForText(t *testing.T, page playwright.Page, text string) {
	t.Helper()
	err := page.Locator(fmt.Sprintf("text=%s", text)).First().WaitFor(playwright.LocatorWaitForOptions{
		Timeout: playwright.Float(5000),
	})
	if err != nil {
		body, _ := page.Locator("body").TextContent()
		t.Fatalf("text %q not shown; page: %s", text, strings.TrimSpace(body))
	}
}
