package cmd

import (
	"github.com/spf13/cobra"

	"github.com/factuurlab/factuur/internal/auth"
	"github.com/factuurlab/factuur/internal/billing"
	"github.com/factuurlab/factuur/internal/jobs"
)

var cleanupOtpsCmd = &cobra.Command{
	Use:   "cleanup-otps",
	Short: "Delete expired verification codes",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, conn, err := bootstrap()
		if err != nil {
			return err
		}
		otps := auth.NewOtpService(conn, nil, billing.SystemClock{})
		_, err = jobs.CleanupOtps(otps)
		return err
	},
}

func init() {
	rootCmd.AddCommand(cleanupOtpsCmd)
}
