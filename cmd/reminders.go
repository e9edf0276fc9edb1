package cmd

import (
	"github.com/spf13/cobra"

	"github.com/factuurlab/factuur/internal/billing"
	"github.com/factuurlab/factuur/internal/jobs"
	"github.com/factuurlab/factuur/internal/logger"
)

var remindersDryRun bool

var sendRemindersCmd = &cobra.Command{
	Use:   "send-reminders",
	Short: "Mail payment reminders for overdue invoices",
	Long: `Sends a reminder for every overdue invoice that is exactly 1, 7, 14,
30, 60 or 90 days past due. Tone escalates with age. Run daily, after
mark-overdue.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, conn, err := bootstrap()
		if err != nil {
			return err
		}
		job := jobs.NewReminders(conn, newMailer(cfg), billing.SystemClock{})
		job.DryRun = remindersDryRun

		res := job.Run()
		l := logger.WithComponent("send-reminders")
		l.Info().
			Int("considered", res.Considered).
			Int("sent", res.Sent).
			Int("failed", res.Failed).
			Bool("dry_run", remindersDryRun).
			Msg("run complete")
		return res.Err
	},
}

func init() {
	sendRemindersCmd.Flags().BoolVar(&remindersDryRun, "dry-run", false, "log reminders instead of sending them")
	rootCmd.AddCommand(sendRemindersCmd)
}
