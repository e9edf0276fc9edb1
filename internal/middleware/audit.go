package middleware

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/factuurlab/factuur/internal/auth"
	"github.com/factuurlab/factuur/internal/logger"
	"github.com/factuurlab/factuur/internal/models"
)

// Audit persists an AuditLog row for every mutating request (POST/PUT/DELETE)
// that carries a session. Reads are not recorded. Failures are logged, never
// surfaced to the client.
func Audit(db *gorm.DB) func(http.Handler) http.Handler {
	log := logger.WithComponent("audit")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			userID, ok := auth.UserIDFromContext(r.Context())
			if !ok {
				return
			}
			entry := models.AuditLog{
				RequestID: sw.Header().Get("X-Request-Id"),
				UserID:    userID,
				Method:    r.Method,
				Path:      r.URL.Path,
				Status:    sw.status,
				IPAddress: ClientIP(r),
			}
			if err := db.Create(&entry).Error; err != nil {
				log.Error().Err(err).Str("path", r.URL.Path).Msg("audit write failed")
			}
		})
	}
}
