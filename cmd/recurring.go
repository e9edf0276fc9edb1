package cmd

import (
	"github.com/spf13/cobra"

	"github.com/factuurlab/factuur/internal/billing"
	"github.com/factuurlab/factuur/internal/jobs"
	"github.com/factuurlab/factuur/internal/logger"
)

var generateRecurringCmd = &cobra.Command{
	Use:   "generate-recurring",
	Short: "Generate invoices from due recurring templates",
	Long: `Materializes an invoice for every active recurring template whose
next generation date has arrived. Meant to run daily from cron; a failing
template is reported and skipped, the rest of the batch continues.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, conn, err := bootstrap()
		if err != nil {
			return err
		}
		clock := billing.SystemClock{}
		lifecycle := billing.NewLifecycle(conn, cfg.Billing, clock)
		scheduler := billing.NewScheduler(conn, lifecycle)
		job := jobs.NewRecurring(conn, scheduler, newMailer(cfg), clock)

		res := job.Run()
		l := logger.WithComponent("generate-recurring")
		l.Info().
			Int("considered", res.Considered).
			Int("generated", res.Generated).
			Int("skipped", res.Skipped).
			Int("failed", res.Failed).
			Msg("run complete")
		return res.Err
	},
}

func init() {
	rootCmd.AddCommand(generateRecurringCmd)
}
