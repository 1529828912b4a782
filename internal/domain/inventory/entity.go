// internal/domain/inventory/entity.go
package inventory

import (
	"time"

	"github.com/your-org/barflow-backend/internal/domain/catalog"
	"gorm.io/gorm"
)

// OwnershipMode represents how stock was acquired
type OwnershipMode string

const (
	OwnershipPurchased   OwnershipMode = "purchased"
	OwnershipConsignment OwnershipMode = "consignment"
)

// EntryScope represents the tier an inventory entry belongs to
type EntryScope string

const (
	ScopeGlobal  EntryScope = "global"  // owner-level pool
	ScopeManager EntryScope = "manager" // per-manager pool, same bookkeeping
)

// LocationType identifies one end of a stock movement
type LocationType string

const (
	LocationGlobal   LocationType = "global"
	LocationBar      LocationType = "bar"
	LocationSupplier LocationType = "supplier"
	LocationSale     LocationType = "sale"
	LocationWaste    LocationType = "waste"
)

// MovementType represents the type of inventory movement
type MovementType string

const (
	MovementTypeTransfer      MovementType = "transfer"       // between tiers or bars
	MovementTypeSaleDepletion MovementType = "sale_depletion" // consumed by a sale
	MovementTypeDiscard       MovementType = "discard"        // residual written off
	MovementTypeAdjustment    MovementType = "adjustment"     // manual correction
)

// MovementReason represents the reason for an inventory movement
type MovementReason string

const (
	ReasonAssign           MovementReason = "assign"
	ReasonBarTransfer      MovementReason = "bar_transfer"
	ReasonReturn           MovementReason = "return"
	ReasonReturnToSupplier MovementReason = "return_to_supplier"
	ReasonSale             MovementReason = "sale"
	ReasonDiscard          MovementReason = "discard"
)

// InventoryEntry represents owned drink stock at the global or manager
// tier. All quantities are in ml. Invariant: 0 <= AllocatedQuantity <=
// TotalQuantity. TotalQuantity only shrinks via return-to-supplier or
// discard; AllocatedQuantity tracks what is currently distributed to bars.
type InventoryEntry struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	OwnerID           uint           `gorm:"not null;index" json:"owner_id"`
	Scope             EntryScope     `gorm:"not null;default:'global'" json:"scope"`
	DrinkID           uint           `gorm:"not null;index" json:"drink_id"`
	SupplierID        *uint          `gorm:"index" json:"supplier_id,omitempty"`
	SKU               string         `gorm:"size:100" json:"sku"`
	TotalQuantity     int64          `gorm:"not null;default:0" json:"total_quantity"`
	AllocatedQuantity int64          `gorm:"not null;default:0" json:"allocated_quantity"`
	UnitCost          int64          `gorm:"default:0" json:"unit_cost"` // cents per retail unit
	Currency          string         `gorm:"size:3;default:'EUR'" json:"currency"`
	OwnershipMode     OwnershipMode  `gorm:"not null;default:'purchased'" json:"ownership_mode"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Drink       catalog.Drink `gorm:"foreignKey:DrinkID" json:"drink,omitempty"`
	Allocations []Allocation  `gorm:"foreignKey:EntryID" json:"allocations,omitempty"`
}

// Available returns the quantity not yet distributed to bars.
func (e *InventoryEntry) Available() int64 {
	return e.TotalQuantity - e.AllocatedQuantity
}

// Allocation is the audit record of quantity pushed from an inventory
// entry to a bar. One row per (entry, event, bar); quantity tracks the
// net amount currently out.
type Allocation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EntryID   uint      `gorm:"not null;index:idx_allocations_entry_bar,unique" json:"entry_id"`
	EventID   uint      `gorm:"not null;index" json:"event_id"`
	BarID     uint      `gorm:"not null;index:idx_allocations_entry_bar,unique" json:"bar_id"`
	Quantity  int64     `gorm:"not null;default:0" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BarStock represents one lot of drink stock at a bar. SellAsWholeUnit
// splits stock into two disjoint pools: whole retail units vs. recipe
// ingredient ml. Quantity is ml; a row is deleted once it reaches zero.
// Cost and ownership are copied from the source entry at transfer time.
type BarStock struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	BarID           uint          `gorm:"not null;uniqueIndex:idx_bar_stock_key" json:"bar_id"`
	DrinkID         uint          `gorm:"not null;uniqueIndex:idx_bar_stock_key" json:"drink_id"`
	SupplierID      *uint         `gorm:"uniqueIndex:idx_bar_stock_key" json:"supplier_id,omitempty"`
	SellAsWholeUnit bool          `gorm:"not null;uniqueIndex:idx_bar_stock_key" json:"sell_as_whole_unit"`
	Quantity        int64         `gorm:"not null;default:0" json:"quantity"`
	UnitCost        int64         `gorm:"default:0" json:"unit_cost"`
	Currency        string        `gorm:"size:3;default:'EUR'" json:"currency"`
	OwnershipMode   OwnershipMode `gorm:"not null;default:'purchased'" json:"ownership_mode"`
	SalePrice       *int64        `json:"sale_price,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`

	// Relationships
	Drink catalog.Drink `gorm:"foreignKey:DrinkID" json:"drink,omitempty"`
}

// UnitCount returns the stock level in whole retail units.
func (bs *BarStock) UnitCount(volumeML int64) int64 {
	if volumeML <= 0 {
		return 0
	}
	return bs.Quantity / volumeML
}

// InventoryMovement is the append-only record of every quantity transfer.
// Rows are never mutated or deleted; the movement log is the sole source
// for consumption-rate estimation.
type InventoryMovement struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	GroupID         string         `gorm:"size:36;index" json:"group_id"` // groups movements of one operation
	FromType        LocationType   `gorm:"not null;size:20" json:"from_type"`
	FromID          *uint          `json:"from_id,omitempty"`
	ToType          LocationType   `gorm:"not null;size:20" json:"to_type"`
	ToID            *uint          `json:"to_id,omitempty"`
	DrinkID         uint           `gorm:"not null;index:idx_movements_drink_bar" json:"drink_id"`
	SupplierID      *uint          `json:"supplier_id,omitempty"`
	SellAsWholeUnit bool           `json:"sell_as_whole_unit"`
	Quantity        int64          `gorm:"not null" json:"quantity"` // ml, always positive
	MovementType    MovementType   `gorm:"not null" json:"movement_type"`
	Reason          MovementReason `gorm:"not null" json:"reason"`
	ActorID         uint           `gorm:"index" json:"actor_id"`
	EntryID         *uint          `gorm:"index" json:"entry_id,omitempty"`
	TransferID      *uint          `gorm:"index" json:"transfer_id,omitempty"`
	SaleRef         string         `gorm:"size:100" json:"sale_ref,omitempty"`
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`
}
