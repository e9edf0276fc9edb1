package jobs

import (
	"github.com/factuurlab/factuur/internal/auth"
	"github.com/factuurlab/factuur/internal/logger"
)

// CleanupOtps deletes expired verification codes.
func CleanupOtps(otps *auth.OtpService) (int64, error) {
	n, err := otps.CleanupExpired()
	if err != nil {
		return 0, err
	}
	l := logger.WithComponent("jobs.cleanup")
	l.Info().Int64("deleted", n).Msg("expired otps removed")
	return n, nil
}
