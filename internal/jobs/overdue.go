package jobs

import (
	"github.com/factuurlab/factuur/internal/billing"
	"github.com/factuurlab/factuur/internal/logger"
)

// MarkOverdue flips every lapsed sent invoice to overdue and logs the count.
// It fronts the bulk lifecycle update so the CLI and any future cron wrapper
// share one entry point.
func MarkOverdue(lc *billing.Lifecycle) (int64, error) {
	n, err := lc.MarkOverdueBatch()
	if err != nil {
		return 0, err
	}
	l := logger.WithComponent("jobs.overdue")
	l.Info().Int64("marked", n).Msg("overdue sweep done")
	return n, nil
}
