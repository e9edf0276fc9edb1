package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/factuurlab/factuur/internal/auth"
	"github.com/factuurlab/factuur/internal/billing"
	"github.com/factuurlab/factuur/internal/config"
	"github.com/factuurlab/factuur/internal/mail"
	"github.com/factuurlab/factuur/internal/models"
)

const testSecret = "router-test-secret"

func setupRouter(t *testing.T) (http.Handler, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Config{
		SessionSecret: testSecret,
		Billing:       config.Billing{InvoicePrefix: "INV-", InvoiceDueDays: 14},
	}
	h := New(Deps{
		DB:     db,
		Cfg:    cfg,
		Mailer: mail.LogMailer{},
		Clock:  billing.FixedClock{T: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)},
	})
	return h, db
}

// sessionCookie builds a valid signed cookie for the user, the same way the
// login flow would.
func sessionCookie(t *testing.T, userID uint) *http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	auth.NewSessions(testSecret).Create(w, userID)
	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("want 1 cookie got %d", len(cookies))
	}
	return cookies[0]
}

func seedRouterUser(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	user := models.User{Name: "Owner", Email: "owner@example.com"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	return user
}

func TestHealthEndpoints(t *testing.T) {
	h, _ := setupRouter(t)

	for _, path := range []string{"/health", "/healthz"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s: want 200 got %d", path, w.Code)
		}
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	h, _ := setupRouter(t)

	for _, path := range []string{"/invoices", "/clients", "/expenses", "/dashboard"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: want 401 got %d", path, w.Code)
		}
	}
}

func TestSessionCookieGrantsAccess(t *testing.T) {
	h, db := setupRouter(t)
	user := seedRouterUser(t, db)

	r := httptest.NewRequest(http.MethodGet, "/invoices", nil)
	r.AddCookie(sessionCookie(t, user.ID))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200 got %d: %s", w.Code, w.Body.String())
	}
}

func TestTamperedCookieRejected(t *testing.T) {
	h, db := setupRouter(t)
	user := seedRouterUser(t, db)

	c := sessionCookie(t, user.ID)
	c.Value = "999.bogus-signature"
	r := httptest.NewRequest(http.MethodGet, "/invoices", nil)
	r.AddCookie(c)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("tampered cookie: want 401 got %d", w.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h, db := setupRouter(t)
	user := seedRouterUser(t, db)

	r := httptest.NewRequest(http.MethodPatch, "/invoices", nil)
	r.AddCookie(sessionCookie(t, user.ID))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("want 405 got %d", w.Code)
	}
	if w.Header().Get("Allow") == "" {
		t.Fatal("Allow header missing")
	}
}

func TestMutationsAreAudited(t *testing.T) {
	h, db := setupRouter(t)
	user := seedRouterUser(t, db)
	cookie := sessionCookie(t, user.ID)

	r := httptest.NewRequest(http.MethodPost, "/clients", strings.NewReader(`{"name":"ClientCo"}`))
	r.Header.Set("Content-Type", "application/json")
	r.AddCookie(cookie)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusCreated {
		t.Fatalf("create client: want 201 got %d: %s", w.Code, w.Body.String())
	}

	// Reads are not recorded.
	r = httptest.NewRequest(http.MethodGet, "/clients", nil)
	r.AddCookie(cookie)
	h.ServeHTTP(httptest.NewRecorder(), r)

	var logs []models.AuditLog
	if err := db.Find(&logs).Error; err != nil {
		t.Fatalf("audit: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("want 1 audit row got %d", len(logs))
	}
	if logs[0].Method != http.MethodPost || logs[0].Path != "/clients" || logs[0].UserID != user.ID {
		t.Fatalf("audit row: %+v", logs[0])
	}
	if logs[0].RequestID == "" {
		t.Fatal("audit row must carry the request id")
	}
}

func TestOtpEndpointRateLimited(t *testing.T) {
	h, _ := setupRouter(t)

	var last int
	for i := 0; i < 6; i++ {
		r := httptest.NewRequest(http.MethodPost, "/auth/request-otp", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		last = w.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("6th request: want 429 got %d", last)
	}
}
