// Package cmd holds the CLI entry points: the API server plus the batch jobs
// normally driven by cron.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/factuurlab/factuur/internal/config"
	"github.com/factuurlab/factuur/internal/db"
	"github.com/factuurlab/factuur/internal/logger"
	"github.com/factuurlab/factuur/internal/mail"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:     "factuur",
	Short:   "Invoicing and expense tracking for small businesses",
	Version: version,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// bootstrap loads .env, config and the logger, and opens the database.
// Every subcommand starts here.
func bootstrap() (config.Config, *gorm.DB, error) {
	_ = godotenv.Load()
	cfg := config.Load()
	if err := logger.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		return cfg, nil, fmt.Errorf("setup logger: %w", err)
	}
	conn, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		return cfg, nil, fmt.Errorf("connect database: %w", err)
	}
	return cfg, conn, nil
}

// newMailer picks Sendgrid when a key is configured, otherwise mails go to
// the log. Local development never needs a key.
func newMailer(cfg config.Config) mail.Mailer {
	if cfg.SendgridKey != "" {
		return mail.NewSendgridMailer(cfg.SendgridKey, cfg.MailFrom, cfg.MailFromName)
	}
	return mail.LogMailer{}
}
