package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/factuurlab/factuur/internal/billing"
	"github.com/factuurlab/factuur/internal/jobs"
	"github.com/factuurlab/factuur/internal/logger"
)

var (
	reportsDryRun bool
	reportsMonth  string
)

var sendMonthlyReportsCmd = &cobra.Command{
	Use:   "send-monthly-reports",
	Short: "Mail each user a financial summary for one month",
	Long: `Mails every user with activity a summary of invoices issued, expenses
booked, income from paid invoices and open overdue invoices. Defaults to the
previous calendar month; run on the first of the month.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, conn, err := bootstrap()
		if err != nil {
			return err
		}
		job := jobs.NewMonthlyReports(conn, newMailer(cfg), billing.SystemClock{})
		job.DryRun = reportsDryRun
		if reportsMonth != "" {
			month, err := time.Parse("2006-01", reportsMonth)
			if err != nil {
				return fmt.Errorf("invalid --month %q, want YYYY-MM: %w", reportsMonth, err)
			}
			job.Month = month
		}

		res := job.Run()
		l := logger.WithComponent("send-monthly-reports")
		l.Info().
			Int("considered", res.Considered).
			Int("sent", res.Sent).
			Int("skipped", res.Skipped).
			Int("failed", res.Failed).
			Bool("dry_run", reportsDryRun).
			Msg("run complete")
		return res.Err
	},
}

func init() {
	sendMonthlyReportsCmd.Flags().BoolVar(&reportsDryRun, "dry-run", false, "log reports instead of sending them")
	sendMonthlyReportsCmd.Flags().StringVar(&reportsMonth, "month", "", "reporting month as YYYY-MM (default: previous month)")
	rootCmd.AddCommand(sendMonthlyReportsCmd)
}
