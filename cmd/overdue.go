package cmd

import (
	"github.com/spf13/cobra"

	"github.com/factuurlab/factuur/internal/billing"
	"github.com/factuurlab/factuur/internal/jobs"
)

var markOverdueCmd = &cobra.Command{
	Use:   "mark-overdue",
	Short: "Flip sent invoices past their due date to overdue",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, conn, err := bootstrap()
		if err != nil {
			return err
		}
		lifecycle := billing.NewLifecycle(conn, cfg.Billing, billing.SystemClock{})
		_, err = jobs.MarkOverdue(lifecycle)
		return err
	},
}

func init() {
	rootCmd.AddCommand(markOverdueCmd)
}
