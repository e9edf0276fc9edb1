package db

import (
	"fmt"
	"os"
	"strings"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/factuurlab/factuur/internal/logger"
	"github.com/factuurlab/factuur/internal/models"
)

// Connect opens the database and brings the schema up to date. A DSN
// starting with postgres:// uses the postgres driver; anything else is
// treated as a sqlite file path (dev default). TranslateError is on so
// unique violations surface as gorm.ErrDuplicatedKey regardless of driver.
func Connect(dsn string) (*gorm.DB, error) {
	log := logger.WithComponent("db")
	dsn = NormalizeDSN(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN is empty")
	}

	logLevel := gormlogger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = gormlogger.Info
	}
	cfg := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(logLevel),
		TranslateError: true,
	}

	var conn *gorm.DB
	var err error
	if isPostgres(dsn) {
		for i := 0; i < 10; i++ {
			conn, err = gorm.Open(postgres.Open(dsn), cfg)
			if err == nil {
				break
			}
			log.Warn().Err(err).Msg("retrying database connection")
			time.Sleep(2 * time.Second)
		}
	} else {
		conn, err = gorm.Open(sqlite.Open(dsn), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := conn.Exec("SELECT 1").Error; err != nil {
		return nil, fmt.Errorf("database ping: %w", err)
	}
	log.Info().Str("dsn", MaskDSN(dsn)).Msg("database connected")

	if err := Migrate(conn, dsn); err != nil {
		return nil, err
	}
	return conn, nil
}

// Migrate runs SQL migrations via golang-migrate when MIGRATIONS=1 (postgres
// only); otherwise it falls back to AutoMigrate, which is what dev and the
// sqlite test databases use.
func Migrate(conn *gorm.DB, dsn string) error {
	if v := strings.ToLower(os.Getenv("MIGRATIONS")); isPostgres(dsn) && (v == "1" || v == "true" || v == "yes") {
		m, err := migrate.New("file://migrations", dsn)
		if err != nil {
			return fmt.Errorf("open migrations: %w", err)
		}
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			return fmt.Errorf("run migrations: %w", err)
		}
		return nil
	}
	for _, model := range models.AllModels() {
		if err := conn.AutoMigrate(model); err != nil {
			return fmt.Errorf("automigrate %T: %w", model, err)
		}
	}
	return nil
}
