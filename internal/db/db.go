package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arencloud/cloudgate/internal/config"
	"github.com/arencloud/cloudgate/internal/logging"
	"github.com/arencloud/cloudgate/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the configured database and migrates the handoff and
// trace tables.
func Open(cfg *config.Config, logger logging.Logger) (*gorm.DB, error) {
	dial, err := dialector(cfg, logger)
	if err != nil {
		return nil, err
	}
	gdb, err := gorm.Open(dial, &gorm.Config{Logger: newGormLogger(logger, sqlLevel())})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dial.Name(), err)
	}
	if err := gdb.AutoMigrate(&models.Account{}, &models.Connection{}, &models.TraceRow{}, &models.TraceEventRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return gdb, nil
}

// sqlLevel follows the application level; SQL traces only show at debug.
func sqlLevel() gormlogger.LogLevel {
	switch logging.GetLevel() {
	case "debug":
		return gormlogger.Info
	case "error", "fatal":
		return gormlogger.Error
	}
	return gormlogger.Warn
}

func dialector(cfg *config.Config, logger logging.Logger) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.DBDriver)) {
	case "postgres", "postgresql":
		if cfg.DBDsn == "" {
			return nil, errors.New("postgres driver needs DATABASE_URL or DB_DSN")
		}
		logger.Info("db connect", "driver", "postgres")
		return postgres.Open(cfg.DBDsn), nil
	case "", "sqlite", "sqlite3":
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		logger.Info("db connect", "driver", "sqlite", "path", cfg.DBPath)
		return sqlite.Open(cfg.DBPath), nil
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
}
