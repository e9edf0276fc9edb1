package cmd

import (
	"github.com/spf13/cobra"

	"github.com/factuurlab/factuur/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Bring the database schema up to date and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Connect already migrates; this command just makes it explicit
		// for deploy pipelines.
		_, _, err := bootstrap()
		if err != nil {
			return err
		}
		l := logger.WithComponent("migrate")
		l.Info().Msg("migrations completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
