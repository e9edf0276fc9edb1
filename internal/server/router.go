// Package server wires handlers, middleware and services into the root
// http.Handler.
package server

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/factuurlab/factuur/internal/auth"
	"github.com/factuurlab/factuur/internal/billing"
	"github.com/factuurlab/factuur/internal/clients"
	"github.com/factuurlab/factuur/internal/config"
	"github.com/factuurlab/factuur/internal/expenses"
	"github.com/factuurlab/factuur/internal/forecast"
	"github.com/factuurlab/factuur/internal/handlers"
	"github.com/factuurlab/factuur/internal/httpx"
	"github.com/factuurlab/factuur/internal/mail"
	"github.com/factuurlab/factuur/internal/middleware"
)

// Deps carries the shared collaborators the router needs. Everything else is
// constructed here.
type Deps struct {
	DB     *gorm.DB
	Cfg    config.Config
	Mailer mail.Mailer
	Clock  billing.Clock
}

// New constructs the root handler with all routes and middleware applied.
func New(d Deps) http.Handler {
	mux := http.NewServeMux()

	sessions := auth.NewSessions(d.Cfg.SessionSecret)
	otps := auth.NewOtpService(d.DB, d.Mailer, d.Clock)
	lifecycle := billing.NewLifecycle(d.DB, d.Cfg.Billing, d.Clock)
	scheduler := billing.NewScheduler(d.DB, lifecycle)
	expenseSvc := expenses.NewService(d.DB, d.Clock)
	forecastSvc := forecast.NewService(d.DB, d.Clock)
	detector := clients.NewDuplicateDetector(d.DB)

	// Health endpoints
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := d.DB.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth endpoints; OTP issuance is rate limited per IP on top of the
	// per-email cap inside the service.
	ah := handlers.NewAuthHandler(d.DB, otps, sessions)
	otpLimiter := middleware.NewRateLimiter(10, 5)
	mux.Handle("/auth/request-otp", otpLimiter.Middleware(post(ah.RequestLoginOtp)))
	mux.Handle("/auth/register", otpLimiter.Middleware(post(ah.RequestRegistrationOtp)))
	mux.Handle("/auth/verify-otp", otpLimiter.Middleware(post(ah.VerifyLoginOtp)))
	mux.Handle("/auth/verify-registration", otpLimiter.Middleware(post(ah.VerifyRegistrationOtp)))
	mux.Handle("/auth/logout", post(ah.Logout))
	mux.Handle("/auth/me", protect(http.HandlerFunc(ah.Me)))

	// Invoices
	ih := handlers.NewInvoiceHandler(d.DB, lifecycle, d.Mailer)
	mux.Handle("/invoices", protect(methods(map[string]http.HandlerFunc{
		http.MethodGet:    ih.List,
		http.MethodPost:   ih.Create,
		http.MethodPut:    ih.Update,
		http.MethodDelete: ih.Delete,
	})))
	mux.Handle("/invoices/show", protect(http.HandlerFunc(ih.Get)))
	mux.Handle("/invoices/mark-paid", protect(post(ih.MarkPaid)))
	mux.Handle("/invoices/send", protect(post(ih.Send)))
	mux.Handle("/invoices/pdf", protect(http.HandlerFunc(ih.PDF)))

	// Clients
	ch := handlers.NewClientHandler(d.DB, detector)
	mux.Handle("/clients", protect(methods(map[string]http.HandlerFunc{
		http.MethodGet:    ch.List,
		http.MethodPost:   ch.Create,
		http.MethodPut:    ch.Update,
		http.MethodDelete: ch.Delete,
	})))
	mux.Handle("/clients/show", protect(http.HandlerFunc(ch.Get)))
	mux.Handle("/clients/check-duplicates", protect(post(ch.CheckDuplicates)))

	// Projects
	ph := handlers.NewProjectHandler(d.DB)
	mux.Handle("/projects", protect(methods(map[string]http.HandlerFunc{
		http.MethodGet:    ph.List,
		http.MethodPost:   ph.Create,
		http.MethodPut:    ph.Update,
		http.MethodDelete: ph.Delete,
	})))

	// Time entries
	th := handlers.NewTimeEntryHandler(d.DB)
	mux.Handle("/time-entries", protect(methods(map[string]http.HandlerFunc{
		http.MethodGet:    th.List,
		http.MethodPost:   th.Create,
		http.MethodDelete: th.Delete,
	})))

	// Expenses
	eh := handlers.NewExpenseHandler(d.DB, expenseSvc)
	mux.Handle("/expenses", protect(methods(map[string]http.HandlerFunc{
		http.MethodGet:    eh.List,
		http.MethodPost:   eh.Create,
		http.MethodPut:    eh.Update,
		http.MethodDelete: eh.Delete,
	})))
	mux.Handle("/expenses/stats", protect(http.HandlerFunc(eh.Stats)))
	mux.Handle("/expenses/categories", protect(http.HandlerFunc(eh.Categories)))
	mux.Handle("/expenses/categorize", protect(post(eh.Categorize)))
	mux.Handle("/expenses/extract-receipt", protect(post(eh.ExtractReceipt)))

	// Recurring templates
	rh := handlers.NewRecurringHandler(d.DB, scheduler, d.Clock)
	mux.Handle("/recurring", protect(methods(map[string]http.HandlerFunc{
		http.MethodGet:    rh.List,
		http.MethodPost:   rh.Create,
		http.MethodPut:    rh.Update,
		http.MethodDelete: rh.Delete,
	})))
	mux.Handle("/recurring/generate", protect(post(rh.GenerateNow)))

	// Dashboard
	dh := handlers.NewDashboardHandler(d.DB, expenseSvc, forecastSvc)
	mux.Handle("/dashboard", protect(http.HandlerFunc(dh.Stats)))
	mux.Handle("/dashboard/forecast", protect(http.HandlerFunc(dh.CashFlow)))

	handler := middleware.Audit(d.DB)(mux)
	handler = sessions.Middleware(handler)
	handler = middleware.RequestLog(handler)
	return withRecover(handler)
}

// protect chains RequireAuth in front of a handler. Session parsing happens
// once, globally, in sessions.Middleware.
func protect(next http.Handler) http.Handler {
	return auth.RequireAuth(next)
}

func post(fn http.HandlerFunc) http.Handler {
	return methods(map[string]http.HandlerFunc{http.MethodPost: fn})
}

func methods(m map[string]http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fn, ok := m[r.Method]; ok {
			fn(w, r)
			return
		}
		allow := ""
		for method := range m {
			if allow != "" {
				allow += ","
			}
			allow += method
		}
		w.Header().Set("Allow", allow)
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
