// internal/pkg/testutil/db.go
package testutil

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/your-org/barflow-backend/internal/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewTestDB opens an isolated in-memory database and migrates the given
// models. When the alert table is among them, the partial unique index
// backing alert deduplication is created as well.
func NewTestDB(t *testing.T, models ...interface{}) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access connection pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(models...); err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}

	if db.Migrator().HasTable("stock_alerts") {
		err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_stock_alerts_open
			ON stock_alerts (bar_id, drink_id, sell_as_whole_unit, alert_type)
			WHERE status <> 'resolved'`).Error
		if err != nil {
			t.Fatalf("failed to create dedup index: %v", err)
		}
	}

	return db
}

// NewTestConfig returns a configuration suitable for service tests.
// Alert evaluation runs synchronously so assertions see its effects.
func NewTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:        "barflow-test",
			Environment: "test",
		},
		JWT: config.JWTConfig{
			Secret:             "test-secret-key-for-tests-only",
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: 24 * time.Hour,
		},
		Security: config.SecurityConfig{
			BcryptCost: 4,
		},
		Alerting: config.AlertingConfig{
			ConsumptionWindow:         30 * time.Minute,
			AsyncEvaluation:           false,
			NotificationChannelPrefix: "barflow-test",
		},
		Logging: config.LoggingConfig{
			Level:  "error",
			Format: "text",
		},
	}
}

// NewTestLogger returns a logger that swallows output
func NewTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
