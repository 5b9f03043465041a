package repository

import (
	"fmt"

	"github.com/amirphl/mailpiece/models"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Models lists every persisted entity in dependency order
func Models() []any {
	return []any{
		&models.Customer{},
		&models.Wallet{},
		&models.BalanceSnapshot{},
		&models.Transaction{},
		&models.AuditLog{},
		&models.SavedAudience{},
		&models.RecipientList{},
		&models.Contact{},
		&models.DesignTemplate{},
		&models.Campaign{},
		&models.TrackingEvent{},
	}
}

// AutoMigrate creates or updates the schema for every entity
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// QueryLogLevel maps the application log level onto GORM's SQL logger.
// debug logs every statement; otherwise slow queries are logged only when enabled.
func QueryLogLevel(level string, slowQueries bool) gormlogger.LogLevel {
	switch level {
	case "debug":
		return gormlogger.Info
	case "error":
		return gormlogger.Error
	}
	if slowQueries {
		return gormlogger.Warn
	}
	return gormlogger.Silent
}
