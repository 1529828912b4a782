// internal/domain/inventory/service.go
package inventory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/your-org/barflow-backend/internal/config"
	"github.com/your-org/barflow-backend/internal/domain/catalog"
	"github.com/your-org/barflow-backend/internal/pkg/apperr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AfterSaleFunc is invoked after a successful Deplete commit with the
// event, bar and affected drinks. Wiring decides whether it runs in a
// background goroutine; errors must never reach the sale path.
type AfterSaleFunc func(eventID, barID uint, drinkIDs []uint)

// Service is the inventory ledger. Every mutating operation runs inside
// a single database transaction with row-level locks on the counters it
// touches, so conservation and non-negativity hold under concurrency.
type Service struct {
	db        *gorm.DB
	config    *config.Config
	logger    *logrus.Logger
	afterSale AfterSaleFunc
}

// NewService creates a new inventory ledger service
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		config: cfg,
		logger: logger,
	}
}

// SetAfterSaleHook installs the post-sale callback (the alert engine).
func (s *Service) SetAfterSaleHook(fn AfterSaleFunc) {
	s.afterSale = fn
}

// CreateEntryRequest represents stock intake data. Quantities are ml.
type CreateEntryRequest struct {
	Scope         EntryScope    `json:"scope"`
	DrinkID       uint          `json:"drink_id" binding:"required"`
	SupplierID    *uint         `json:"supplier_id"`
	SKU           string        `json:"sku"`
	TotalQuantity int64         `json:"total_quantity" binding:"required,gt=0"`
	UnitCost      int64         `json:"unit_cost"`
	Currency      string        `json:"currency"`
	OwnershipMode OwnershipMode `json:"ownership_mode"`
}

// AssignRequest represents pushing stock from an inventory entry to a bar
type AssignRequest struct {
	EntryID         uint   `json:"entry_id" binding:"required"`
	BarID           uint   `json:"bar_id" binding:"required"`
	Quantity        int64  `json:"quantity" binding:"required,gt=0"`
	SellAsWholeUnit bool   `json:"sell_as_whole_unit"`
	SalePrice       *int64 `json:"sale_price"`
}

// MoveRequest represents a bar-to-bar stock move
type MoveRequest struct {
	FromBarID uint  `json:"from_bar_id" binding:"required"`
	ToBarID   uint  `json:"to_bar_id" binding:"required"`
	DrinkID   uint  `json:"drink_id" binding:"required"`
	Quantity  int64 `json:"quantity" binding:"required,gt=0"`
}

// ReturnRequest represents returning bar stock to the global tier
type ReturnRequest struct {
	BarID           uint  `json:"bar_id" binding:"required"`
	DrinkID         uint  `json:"drink_id" binding:"required"`
	SupplierID      *uint `json:"supplier_id"`
	SellAsWholeUnit bool  `json:"sell_as_whole_unit"`
	Quantity        int64 `json:"quantity" binding:"required,gt=0"`
}

// DiscardRequest identifies a residual stock row to write off
type DiscardRequest struct {
	BarID           uint  `json:"bar_id" binding:"required"`
	DrinkID         uint  `json:"drink_id" binding:"required"`
	SupplierID      *uint `json:"supplier_id"`
	SellAsWholeUnit bool  `json:"sell_as_whole_unit"`
}

// DepleteComponent is one recipe component or direct-sale product of a
// sale. Whole-unit components carry Units; recipe components carry the
// consumed AmountML directly.
type DepleteComponent struct {
	DrinkID         uint  `json:"drink_id" binding:"required"`
	SellAsWholeUnit bool  `json:"sell_as_whole_unit"`
	Units           int64 `json:"units"`
	AmountML        int64 `json:"amount_ml"`
}

// DepleteRequest represents the stock consumption of one completed sale
type DepleteRequest struct {
	BarID      uint               `json:"bar_id" binding:"required"`
	SaleRef    string             `json:"sale_ref"`
	Components []DepleteComponent `json:"components" binding:"required,min=1"`
}

// INTAKE

// CreateEntry records newly acquired stock at the global or manager tier
func (s *Service) CreateEntry(req *CreateEntryRequest, ownerID uint) (*InventoryEntry, error) {
	scope := req.Scope
	if scope == "" {
		scope = ScopeGlobal
	}
	mode := req.OwnershipMode
	if mode == "" {
		mode = OwnershipPurchased
	}
	currency := req.Currency
	if currency == "" {
		currency = "EUR"
	}

	var drink catalog.Drink
	if err := s.db.First(&drink, req.DrinkID).Error; err != nil {
		return nil, apperr.NotFound("drink")
	}

	entry := &InventoryEntry{
		OwnerID:       ownerID,
		Scope:         scope,
		DrinkID:       req.DrinkID,
		SupplierID:    req.SupplierID,
		SKU:           req.SKU,
		TotalQuantity: req.TotalQuantity,
		UnitCost:      req.UnitCost,
		Currency:      currency,
		OwnershipMode: mode,
	}
	if err := s.db.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to create inventory entry: %w", err)
	}
	return entry, nil
}

// GetEntries retrieves all inventory entries of an owner
func (s *Service) GetEntries(ownerID uint) ([]InventoryEntry, error) {
	var entries []InventoryEntry
	if err := s.db.Preload("Drink").Where("owner_id = ?", ownerID).Order("id").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve inventory entries: %w", err)
	}
	return entries, nil
}

// LEDGER OPERATIONS

// Assign pushes quantity from an inventory entry to a bar pool. The
// source entry's cost, currency and ownership mode follow the lot.
func (s *Service) Assign(req *AssignRequest, userID uint) (*BarStock, error) {
	var result *BarStock

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var entry InventoryEntry
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&entry, req.EntryID).Error; err != nil {
			return apperr.NotFound("inventory entry")
		}
		if entry.OwnerID != userID {
			return apperr.New(apperr.CodeNotOwner, "user %d does not own inventory entry %d", userID, req.EntryID)
		}

		bar, event, err := s.barWithEvent(tx, req.BarID)
		if err != nil {
			return err
		}
		if event.OwnerID != userID {
			return apperr.New(apperr.CodeNotOwner, "user %d does not own event %d", userID, event.ID)
		}

		if req.Quantity > entry.Available() {
			return apperr.New(apperr.CodeInsufficientAvailable,
				"entry %d has %d ml available, requested %d", entry.ID, entry.Available(), req.Quantity)
		}

		if err := tx.Model(&entry).
			UpdateColumn("allocated_quantity", gorm.Expr("allocated_quantity + ?", req.Quantity)).Error; err != nil {
			return fmt.Errorf("failed to update allocation counter: %w", err)
		}

		lot := lotInfo{unitCost: entry.UnitCost, currency: entry.Currency, mode: entry.OwnershipMode}
		stock, err := s.upsertStock(tx, bar.ID, entry.DrinkID, entry.SupplierID, req.SellAsWholeUnit, req.Quantity, lot, req.SalePrice)
		if err != nil {
			return err
		}
		result = stock

		if err := s.upsertAllocation(tx, entry.ID, event.ID, bar.ID, req.Quantity); err != nil {
			return err
		}

		movement := &InventoryMovement{
			GroupID:         uuid.NewString(),
			FromType:        LocationGlobal,
			FromID:          &entry.ID,
			ToType:          LocationBar,
			ToID:            &bar.ID,
			DrinkID:         entry.DrinkID,
			SupplierID:      entry.SupplierID,
			SellAsWholeUnit: req.SellAsWholeUnit,
			Quantity:        req.Quantity,
			MovementType:    MovementTypeTransfer,
			Reason:          ReasonAssign,
			ActorID:         userID,
			EntryID:         &entry.ID,
		}
		if err := tx.Create(movement).Error; err != nil {
			return fmt.Errorf("failed to record movement: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Move transfers quantity between two bars of the same event, preserving
// the source lot's supplier, pool, cost and ownership. transferID links
// the movement back to an originating transfer, if any.
func (s *Service) Move(req *MoveRequest, userID uint, transferID *uint) error {
	if req.FromBarID == req.ToBarID {
		return apperr.New(apperr.CodeInvalidInput, "source and destination bar must differ")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		fromBar, fromEvent, err := s.barWithEvent(tx, req.FromBarID)
		if err != nil {
			return err
		}
		toBar, _, err := s.barWithEvent(tx, req.ToBarID)
		if err != nil {
			return err
		}
		if fromBar.EventID != toBar.EventID {
			return apperr.New(apperr.CodeInvalidInput, "bars %d and %d belong to different events", fromBar.ID, toBar.ID)
		}
		if userID != 0 && fromEvent.OwnerID != userID {
			return apperr.New(apperr.CodeNotOwner, "user %d does not own event %d", userID, fromEvent.ID)
		}

		// A single source lot must cover the whole quantity.
		var source BarStock
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("bar_id = ? AND drink_id = ? AND quantity >= ?", req.FromBarID, req.DrinkID, req.Quantity).
			Order("id").First(&source).Error
		if err == gorm.ErrRecordNotFound {
			return apperr.New(apperr.CodeInsufficientStock,
				"bar %d has no stock row of drink %d covering %d ml", req.FromBarID, req.DrinkID, req.Quantity)
		}
		if err != nil {
			return fmt.Errorf("failed to select source stock: %w", err)
		}

		if err := s.decrementStock(tx, &source, req.Quantity); err != nil {
			return err
		}

		lot := lotInfo{unitCost: source.UnitCost, currency: source.Currency, mode: source.OwnershipMode}
		if _, err := s.upsertStock(tx, toBar.ID, source.DrinkID, source.SupplierID, source.SellAsWholeUnit, req.Quantity, lot, source.SalePrice); err != nil {
			return err
		}

		movement := &InventoryMovement{
			GroupID:         uuid.NewString(),
			FromType:        LocationBar,
			FromID:          &fromBar.ID,
			ToType:          LocationBar,
			ToID:            &toBar.ID,
			DrinkID:         source.DrinkID,
			SupplierID:      source.SupplierID,
			SellAsWholeUnit: source.SellAsWholeUnit,
			Quantity:        req.Quantity,
			MovementType:    MovementTypeTransfer,
			Reason:          ReasonBarTransfer,
			ActorID:         userID,
			TransferID:      transferID,
		}
		if err := tx.Create(movement).Error; err != nil {
			return fmt.Errorf("failed to record movement: %w", err)
		}
		return nil
	})
}

// Return moves bar stock back to the global tier. TotalQuantity on the
// entry is untouched; only the allocation counter shrinks.
func (s *Service) Return(req *ReturnRequest, userID uint) error {
	return s.returnStock(req, userID, false)
}

// ReturnToSupplier returns consignment stock to its supplier; the entry's
// TotalQuantity shrinks because the stock leaves ownership permanently.
func (s *Service) ReturnToSupplier(req *ReturnRequest, userID uint) error {
	return s.returnStock(req, userID, true)
}

func (s *Service) returnStock(req *ReturnRequest, userID uint, toSupplier bool) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		bar, event, err := s.barWithEvent(tx, req.BarID)
		if err != nil {
			return err
		}
		if event.OwnerID != userID {
			return apperr.New(apperr.CodeNotOwner, "user %d does not own event %d", userID, event.ID)
		}

		stock, err := s.findStockForUpdate(tx, req.BarID, req.DrinkID, req.SupplierID, req.SellAsWholeUnit)
		if err != nil {
			return err
		}
		if req.Quantity > stock.Quantity {
			return apperr.New(apperr.CodeOverReturn,
				"return of %d ml exceeds live stock %d ml", req.Quantity, stock.Quantity)
		}
		if toSupplier && stock.OwnershipMode != OwnershipConsignment {
			return apperr.New(apperr.CodeNotConsignment, "stock row %d is not consignment stock", stock.ID)
		}

		if err := s.decrementStock(tx, stock, req.Quantity); err != nil {
			return err
		}

		entry, err := s.findOrCreateEntry(tx, event.OwnerID, stock, req.Quantity)
		if err != nil {
			return err
		}
		if entry.AllocatedQuantity-req.Quantity < 0 {
			return apperr.New(apperr.CodeConservationViolation,
				"entry %d allocation %d would go negative by %d", entry.ID, entry.AllocatedQuantity, req.Quantity)
		}

		updates := map[string]interface{}{
			"allocated_quantity": gorm.Expr("allocated_quantity - ?", req.Quantity),
		}
		if toSupplier {
			updates["total_quantity"] = gorm.Expr("total_quantity - ?", req.Quantity)
		}
		if err := tx.Model(entry).UpdateColumns(updates).Error; err != nil {
			return fmt.Errorf("failed to update entry counters: %w", err)
		}

		// Keep the allocation audit in step when one exists.
		if err := tx.Model(&Allocation{}).
			Where("entry_id = ? AND bar_id = ? AND quantity >= ?", entry.ID, bar.ID, req.Quantity).
			UpdateColumn("quantity", gorm.Expr("quantity - ?", req.Quantity)).Error; err != nil {
			return fmt.Errorf("failed to update allocation audit: %w", err)
		}

		toType := LocationGlobal
		toID := &entry.ID
		reason := ReasonReturn
		if toSupplier {
			toType = LocationSupplier
			toID = stock.SupplierID
			reason = ReasonReturnToSupplier
		}
		movement := &InventoryMovement{
			GroupID:         uuid.NewString(),
			FromType:        LocationBar,
			FromID:          &bar.ID,
			ToType:          toType,
			ToID:            toID,
			DrinkID:         stock.DrinkID,
			SupplierID:      stock.SupplierID,
			SellAsWholeUnit: stock.SellAsWholeUnit,
			Quantity:        req.Quantity,
			MovementType:    MovementTypeTransfer,
			Reason:          reason,
			ActorID:         userID,
			EntryID:         &entry.ID,
		}
		if err := tx.Create(movement).Error; err != nil {
			return fmt.Errorf("failed to record movement: %w", err)
		}
		return nil
	})
}

// Discard writes off a residual stock row. The loss is local to the bar;
// the global tier keeps its counters (the stock was already paid for).
func (s *Service) Discard(req *DiscardRequest, userID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		bar, event, err := s.barWithEvent(tx, req.BarID)
		if err != nil {
			return err
		}
		if event.OwnerID != userID {
			return apperr.New(apperr.CodeNotOwner, "user %d does not own event %d", userID, event.ID)
		}

		stock, err := s.findStockForUpdate(tx, req.BarID, req.DrinkID, req.SupplierID, req.SellAsWholeUnit)
		if err != nil {
			return err
		}

		quantity := stock.Quantity
		if err := tx.Delete(stock).Error; err != nil {
			return fmt.Errorf("failed to delete stock row: %w", err)
		}

		movement := &InventoryMovement{
			GroupID:         uuid.NewString(),
			FromType:        LocationBar,
			FromID:          &bar.ID,
			ToType:          LocationWaste,
			DrinkID:         stock.DrinkID,
			SupplierID:      stock.SupplierID,
			SellAsWholeUnit: stock.SellAsWholeUnit,
			Quantity:        quantity,
			MovementType:    MovementTypeDiscard,
			Reason:          ReasonDiscard,
			ActorID:         userID,
		}
		if err := tx.Create(movement).Error; err != nil {
			return fmt.Errorf("failed to record movement: %w", err)
		}
		return nil
	})
}

// Deplete consumes bar stock for one completed sale. The whole call is a
// single transaction: a shortfall on any component aborts every
// component's depletion and the caller rejects the sale.
func (s *Service) Deplete(req *DepleteRequest, actorID uint) error {
	var eventID uint
	drinkSet := make(map[uint]struct{})

	err := s.db.Transaction(func(tx *gorm.DB) error {
		bar, event, err := s.barWithEvent(tx, req.BarID)
		if err != nil {
			return err
		}
		eventID = event.ID
		groupID := uuid.NewString()

		for _, comp := range req.Components {
			amount := comp.AmountML
			if comp.SellAsWholeUnit {
				var drink catalog.Drink
				if err := tx.First(&drink, comp.DrinkID).Error; err != nil {
					return apperr.NotFound("drink")
				}
				amount = comp.Units * drink.VolumeML
			}
			if amount <= 0 {
				return apperr.New(apperr.CodeInvalidInput, "component for drink %d has no quantity", comp.DrinkID)
			}

			if err := s.drainPool(tx, bar.ID, comp.DrinkID, comp.SellAsWholeUnit, amount, groupID, req.SaleRef, actorID); err != nil {
				return err
			}
			drinkSet[comp.DrinkID] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.afterSale != nil {
		drinkIDs := make([]uint, 0, len(drinkSet))
		for id := range drinkSet {
			drinkIDs = append(drinkIDs, id)
		}
		if s.config.Alerting.AsyncEvaluation {
			// Fire-and-forget: alert evaluation must never fail or
			// block the sale path.
			go func() {
				defer func() {
					if r := recover(); r != nil {
						s.logger.WithField("bar_id", req.BarID).Errorf("post-sale alert evaluation panicked: %v", r)
					}
				}()
				s.afterSale(eventID, req.BarID, drinkIDs)
			}()
		} else {
			s.afterSale(eventID, req.BarID, drinkIDs)
		}
	}
	return nil
}

// drainPool decrements a (bar, drink, pool) across its supplier lots,
// oldest first, deleting rows that reach zero.
func (s *Service) drainPool(tx *gorm.DB, barID, drinkID uint, wholeUnit bool, amount int64, groupID, saleRef string, actorID uint) error {
	var rows []BarStock
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("bar_id = ? AND drink_id = ? AND sell_as_whole_unit = ?", barID, drinkID, wholeUnit).
		Order("created_at, id").Find(&rows).Error; err != nil {
		return fmt.Errorf("failed to load pool: %w", err)
	}

	var total int64
	for _, row := range rows {
		total += row.Quantity
	}
	if total < amount {
		return apperr.New(apperr.CodeInsufficientStock,
			"bar %d pool (drink %d, whole_unit=%t) has %d ml, sale needs %d", barID, drinkID, wholeUnit, total, amount)
	}

	remaining := amount
	for i := range rows {
		if remaining == 0 {
			break
		}
		take := rows[i].Quantity
		if take > remaining {
			take = remaining
		}
		if err := s.decrementStock(tx, &rows[i], take); err != nil {
			return err
		}

		movement := &InventoryMovement{
			GroupID:         groupID,
			FromType:        LocationBar,
			FromID:          &barID,
			ToType:          LocationSale,
			DrinkID:         drinkID,
			SupplierID:      rows[i].SupplierID,
			SellAsWholeUnit: wholeUnit,
			Quantity:        take,
			MovementType:    MovementTypeSaleDepletion,
			Reason:          ReasonSale,
			ActorID:         actorID,
			SaleRef:         saleRef,
		}
		if err := tx.Create(movement).Error; err != nil {
			return fmt.Errorf("failed to record movement: %w", err)
		}
		remaining -= take
	}
	return nil
}

// READ SIDE

// GetBarStock retrieves all stock rows of a bar with drink details
func (s *Service) GetBarStock(barID uint) ([]BarStock, error) {
	var rows []BarStock
	if err := s.db.Preload("Drink").Where("bar_id = ?", barID).Order("drink_id, sell_as_whole_unit").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve bar stock: %w", err)
	}
	return rows, nil
}

// PoolQuantity returns the total ml in one (bar, drink, pool) across lots
func (s *Service) PoolQuantity(barID, drinkID uint, wholeUnit bool) (int64, error) {
	var total int64
	err := s.db.Model(&BarStock{}).
		Where("bar_id = ? AND drink_id = ? AND sell_as_whole_unit = ?", barID, drinkID, wholeUnit).
		Select("COALESCE(SUM(quantity), 0)").Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum pool quantity: %w", err)
	}
	return total, nil
}

// LargestLot returns the largest single stock-row quantity of a drink at
// a bar, across suppliers and pools. Move draws from one row, so this is
// the quantity a single move can actually cover.
func (s *Service) LargestLot(barID, drinkID uint) (int64, error) {
	var largest int64
	err := s.db.Model(&BarStock{}).
		Where("bar_id = ? AND drink_id = ?", barID, drinkID).
		Select("COALESCE(MAX(quantity), 0)").Scan(&largest).Error
	if err != nil {
		return 0, fmt.Errorf("failed to find largest lot: %w", err)
	}
	return largest, nil
}

// MovementFilter narrows movement-log queries
type MovementFilter struct {
	BarID   *uint
	DrinkID *uint
	Since   *time.Time
	Limit   int
}

// GetMovements retrieves movement-log rows, newest first
func (s *Service) GetMovements(filter MovementFilter) ([]InventoryMovement, error) {
	query := s.db.Model(&InventoryMovement{})
	if filter.BarID != nil {
		query = query.Where("(from_type = ? AND from_id = ?) OR (to_type = ? AND to_id = ?)",
			LocationBar, *filter.BarID, LocationBar, *filter.BarID)
	}
	if filter.DrinkID != nil {
		query = query.Where("drink_id = ?", *filter.DrinkID)
	}
	if filter.Since != nil {
		query = query.Where("created_at >= ?", *filter.Since)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}

	var movements []InventoryMovement
	if err := query.Order("created_at desc, id desc").Limit(limit).Find(&movements).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve movements: %w", err)
	}
	return movements, nil
}

// ConsumptionRate estimates ml consumed per minute in one (bar, drink,
// pool) over the trailing window, from sale-depletion movements only.
func (s *Service) ConsumptionRate(barID, drinkID uint, wholeUnit bool, window time.Duration) (float64, error) {
	since := time.Now().Add(-window)

	var consumed int64
	err := s.db.Model(&InventoryMovement{}).
		Where("from_type = ? AND from_id = ? AND drink_id = ? AND sell_as_whole_unit = ? AND movement_type = ? AND created_at >= ?",
			LocationBar, barID, drinkID, wholeUnit, MovementTypeSaleDepletion, since).
		Select("COALESCE(SUM(quantity), 0)").Scan(&consumed).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum consumption: %w", err)
	}

	minutes := window.Minutes()
	if minutes <= 0 || consumed <= 0 {
		return 0, nil
	}
	return float64(consumed) / minutes, nil
}

// INTERNAL HELPERS

func (s *Service) barWithEvent(tx *gorm.DB, barID uint) (*catalog.Bar, *catalog.Event, error) {
	var bar catalog.Bar
	if err := tx.First(&bar, barID).Error; err != nil {
		return nil, nil, apperr.NotFound("bar")
	}
	var event catalog.Event
	if err := tx.First(&event, bar.EventID).Error; err != nil {
		return nil, nil, apperr.NotFound("event")
	}
	return &bar, &event, nil
}

func supplierScope(query *gorm.DB, supplierID *uint) *gorm.DB {
	if supplierID == nil {
		return query.Where("supplier_id IS NULL")
	}
	return query.Where("supplier_id = ?", *supplierID)
}

func (s *Service) findStockForUpdate(tx *gorm.DB, barID, drinkID uint, supplierID *uint, wholeUnit bool) (*BarStock, error) {
	var stock BarStock
	query := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("bar_id = ? AND drink_id = ? AND sell_as_whole_unit = ?", barID, drinkID, wholeUnit)
	err := supplierScope(query, supplierID).First(&stock).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperr.NotFound("bar stock")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load stock row: %w", err)
	}
	return &stock, nil
}

// lotInfo carries the cost fields that follow a lot between locations.
type lotInfo struct {
	unitCost int64
	currency string
	mode     OwnershipMode
}

// upsertStock increments an existing lot row or creates one copying the
// lot's cost fields.
func (s *Service) upsertStock(tx *gorm.DB, barID, drinkID uint, supplierID *uint, wholeUnit bool, quantity int64, lot lotInfo, salePrice *int64) (*BarStock, error) {
	var stock BarStock
	query := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("bar_id = ? AND drink_id = ? AND sell_as_whole_unit = ?", barID, drinkID, wholeUnit)
	err := supplierScope(query, supplierID).First(&stock).Error

	if err == gorm.ErrRecordNotFound {
		stock = BarStock{
			BarID:           barID,
			DrinkID:         drinkID,
			SupplierID:      supplierID,
			SellAsWholeUnit: wholeUnit,
			Quantity:        quantity,
			UnitCost:        lot.unitCost,
			Currency:        lot.currency,
			OwnershipMode:   lot.mode,
			SalePrice:       salePrice,
		}
		if err := tx.Create(&stock).Error; err != nil {
			return nil, fmt.Errorf("failed to create stock row: %w", err)
		}
		return &stock, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load stock row: %w", err)
	}

	if err := tx.Model(&stock).UpdateColumn("quantity", gorm.Expr("quantity + ?", quantity)).Error; err != nil {
		return nil, fmt.Errorf("failed to increment stock: %w", err)
	}
	stock.Quantity += quantity
	return &stock, nil
}

// upsertAllocation bumps the per-(entry, bar) audit counter.
func (s *Service) upsertAllocation(tx *gorm.DB, entryID, eventID, barID uint, quantity int64) error {
	var alloc Allocation
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("entry_id = ? AND bar_id = ?", entryID, barID).First(&alloc).Error
	if err == gorm.ErrRecordNotFound {
		alloc = Allocation{EntryID: entryID, EventID: eventID, BarID: barID, Quantity: quantity}
		if err := tx.Create(&alloc).Error; err != nil {
			return fmt.Errorf("failed to create allocation audit: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load allocation audit: %w", err)
	}
	if err := tx.Model(&alloc).UpdateColumn("quantity", gorm.Expr("quantity + ?", quantity)).Error; err != nil {
		return fmt.Errorf("failed to update allocation audit: %w", err)
	}
	return nil
}

// decrementStock lowers a locked row's quantity and removes it at zero,
// so no zero-quantity rows persist.
func (s *Service) decrementStock(tx *gorm.DB, stock *BarStock, quantity int64) error {
	if quantity > stock.Quantity {
		return apperr.New(apperr.CodeInsufficientStock,
			"stock row %d has %d ml, requested %d", stock.ID, stock.Quantity, quantity)
	}
	remaining := stock.Quantity - quantity
	if remaining == 0 {
		if err := tx.Delete(stock).Error; err != nil {
			return fmt.Errorf("failed to delete emptied stock row: %w", err)
		}
		stock.Quantity = 0
		return nil
	}
	if err := tx.Model(stock).UpdateColumn("quantity", gorm.Expr("quantity - ?", quantity)).Error; err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	stock.Quantity = remaining
	return nil
}

// findOrCreateEntry locates the inventory entry matching a returning
// stock row. A missing entry is created defensively so the return still
// balances (its quantity counts as both owned and allocated beforehand).
func (s *Service) findOrCreateEntry(tx *gorm.DB, ownerID uint, stock *BarStock, quantity int64) (*InventoryEntry, error) {
	var entry InventoryEntry
	query := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("owner_id = ? AND drink_id = ?", ownerID, stock.DrinkID)
	err := supplierScope(query, stock.SupplierID).Order("id").First(&entry).Error

	if err == gorm.ErrRecordNotFound {
		entry = InventoryEntry{
			OwnerID:           ownerID,
			Scope:             ScopeGlobal,
			DrinkID:           stock.DrinkID,
			SupplierID:        stock.SupplierID,
			TotalQuantity:     quantity,
			AllocatedQuantity: quantity,
			UnitCost:          stock.UnitCost,
			Currency:          stock.Currency,
			OwnershipMode:     stock.OwnershipMode,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return nil, fmt.Errorf("failed to create defensive entry: %w", err)
		}
		return &entry, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory entry: %w", err)
	}
	return &entry, nil
}
