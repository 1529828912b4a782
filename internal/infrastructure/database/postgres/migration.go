// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"

	"github.com/your-org/barflow-backend/internal/domain/alert"
	"github.com/your-org/barflow-backend/internal/domain/catalog"
	"github.com/your-org/barflow-backend/internal/domain/inventory"
	"github.com/your-org/barflow-backend/internal/domain/transfer"
	"github.com/your-org/barflow-backend/internal/domain/user"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// Models lists every persisted model in dependency order.
func Models() []interface{} {
	return []interface{}{
		// Accounts
		&user.User{},

		// Catalog - base tables
		&catalog.Drink{},
		&catalog.Supplier{},
		&catalog.Event{},
		&catalog.Bar{},

		// Inventory ledger
		&inventory.InventoryEntry{},
		&inventory.Allocation{},
		&inventory.BarStock{},
		&inventory.InventoryMovement{},

		// Alerting
		&alert.StockThreshold{},
		&alert.StockAlert{},

		// Transfers
		&transfer.StockTransfer{},
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("Running database auto-migrations...")

	for _, model := range Models() {
		log.Printf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	log.Println("Database auto-migrations completed")
	return nil
}

// CreateIndexes creates indexes that GORM tags cannot express.
func (m *Migration) CreateIndexes() error {
	log.Println("Creating additional indexes...")

	indexes := []string{
		// Backs the alert dedup invariant: at most one non-resolved
		// alert per (bar, drink, pool, type). Inserts colliding with
		// it are dropped via ON CONFLICT DO NOTHING.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_stock_alerts_open
		 ON stock_alerts (bar_id, drink_id, sell_as_whole_unit, alert_type)
		 WHERE status <> 'resolved'`,

		// Consumption-rate queries scan recent sale depletions per bar.
		`CREATE INDEX IF NOT EXISTS idx_movements_consumption
		 ON inventory_movements (from_id, drink_id, sell_as_whole_unit, created_at)
		 WHERE from_type = 'bar' AND movement_type = 'sale_depletion'`,

		`CREATE INDEX IF NOT EXISTS idx_stock_transfers_event_status
		 ON stock_transfers (event_id, status)`,
	}

	for _, idx := range indexes {
		if err := m.db.Exec(idx).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	log.Println("Additional indexes created")
	return nil
}

// SeedInitialData seeds development fixtures
func (m *Migration) SeedInitialData() error {
	var count int64
	if err := m.db.Model(&catalog.Drink{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check drinks: %w", err)
	}
	if count > 0 {
		return nil
	}

	drinks := []catalog.Drink{
		{Name: "Vodka", Brand: "Absolut", VolumeML: 700},
		{Name: "Gin", Brand: "Beefeater", VolumeML: 700},
		{Name: "Bottled Water", Brand: "Evian", VolumeML: 500},
		{Name: "Lager", Brand: "Pilsner Urquell", VolumeML: 500},
	}
	if err := m.db.Create(&drinks).Error; err != nil {
		return fmt.Errorf("failed to seed drinks: %w", err)
	}

	log.Printf("Seeded %d drinks", len(drinks))
	return nil
}
