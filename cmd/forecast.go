package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/factuurlab/factuur/internal/billing"
	"github.com/factuurlab/factuur/internal/forecast"
)

var forecastUserID uint

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Print the cash flow forecast for a user as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		if forecastUserID == 0 {
			return fmt.Errorf("--user is required")
		}
		_, conn, err := bootstrap()
		if err != nil {
			return err
		}
		svc := forecast.NewService(conn, billing.SystemClock{})
		report, err := svc.Build(forecastUserID)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	forecastCmd.Flags().UintVar(&forecastUserID, "user", 0, "user id to forecast for")
	rootCmd.AddCommand(forecastCmd)
}
