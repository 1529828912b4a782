// internal/domain/inventory/service_test.go
package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/barflow-backend/internal/domain/catalog"
	"github.com/your-org/barflow-backend/internal/pkg/apperr"
	"github.com/your-org/barflow-backend/internal/pkg/testutil"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	svc   *Service
	owner uint
	event catalog.Event
	barA  catalog.Bar
	barB  catalog.Bar
	beer  catalog.Drink // 500 ml units
	vodka catalog.Drink // 700 ml units
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t,
		&catalog.Drink{}, &catalog.Supplier{}, &catalog.Event{}, &catalog.Bar{},
		&InventoryEntry{}, &Allocation{}, &BarStock{}, &InventoryMovement{},
	)
	f := &fixture{
		db:    db,
		svc:   NewService(db, testutil.NewTestConfig(), testutil.NewTestLogger()),
		owner: 1,
	}

	f.event = catalog.Event{OwnerID: f.owner, Name: "Summer Fest", IsActive: true}
	require.NoError(t, db.Create(&f.event).Error)

	f.barA = catalog.Bar{EventID: f.event.ID, Name: "Main Bar", IsActive: true}
	require.NoError(t, db.Create(&f.barA).Error)
	f.barB = catalog.Bar{EventID: f.event.ID, Name: "Side Bar", IsActive: true}
	require.NoError(t, db.Create(&f.barB).Error)

	f.beer = catalog.Drink{Name: "Lager", VolumeML: 500}
	require.NoError(t, db.Create(&f.beer).Error)
	f.vodka = catalog.Drink{Name: "Vodka", VolumeML: 700}
	require.NoError(t, db.Create(&f.vodka).Error)

	return f
}

func (f *fixture) createEntry(t *testing.T, drinkID uint, quantity int64, mode OwnershipMode) *InventoryEntry {
	t.Helper()
	entry, err := f.svc.CreateEntry(&CreateEntryRequest{
		DrinkID:       drinkID,
		TotalQuantity: quantity,
		OwnershipMode: mode,
	}, f.owner)
	require.NoError(t, err)
	return entry
}

func (f *fixture) reloadEntry(t *testing.T, id uint) *InventoryEntry {
	t.Helper()
	var entry InventoryEntry
	require.NoError(t, f.db.First(&entry, id).Error)
	return &entry
}

func TestAssignMovesStockToBar(t *testing.T) {
	f := newFixture(t)
	entry := f.createEntry(t, f.beer.ID, 10000, OwnershipPurchased)

	stock, err := f.svc.Assign(&AssignRequest{
		EntryID:         entry.ID,
		BarID:           f.barA.ID,
		Quantity:        3000,
		SellAsWholeUnit: true,
	}, f.owner)
	require.NoError(t, err)

	assert.Equal(t, int64(3000), stock.Quantity)
	assert.True(t, stock.SellAsWholeUnit)

	reloaded := f.reloadEntry(t, entry.ID)
	assert.Equal(t, int64(10000), reloaded.TotalQuantity, "total is untouched by assignment")
	assert.Equal(t, int64(3000), reloaded.AllocatedQuantity)
	assert.Equal(t, int64(7000), reloaded.Available())

	var movement InventoryMovement
	require.NoError(t, f.db.Where("reason = ?", ReasonAssign).First(&movement).Error)
	assert.Equal(t, LocationGlobal, movement.FromType)
	assert.Equal(t, LocationBar, movement.ToType)
	assert.Equal(t, int64(3000), movement.Quantity)

	var alloc Allocation
	require.NoError(t, f.db.Where("entry_id = ? AND bar_id = ?", entry.ID, f.barA.ID).First(&alloc).Error)
	assert.Equal(t, int64(3000), alloc.Quantity)
}

func TestAssignAccumulatesIntoExistingLot(t *testing.T) {
	f := newFixture(t)
	entry := f.createEntry(t, f.beer.ID, 10000, OwnershipPurchased)

	_, err := f.svc.Assign(&AssignRequest{EntryID: entry.ID, BarID: f.barA.ID, Quantity: 2000}, f.owner)
	require.NoError(t, err)
	_, err = f.svc.Assign(&AssignRequest{EntryID: entry.ID, BarID: f.barA.ID, Quantity: 1000}, f.owner)
	require.NoError(t, err)

	var count int64
	require.NoError(t, f.db.Model(&BarStock{}).Where("bar_id = ?", f.barA.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count, "same lot key accumulates in one row")

	qty, err := f.svc.PoolQuantity(f.barA.ID, f.beer.ID, false)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), qty)
}

func TestAssignInsufficientAvailable(t *testing.T) {
	f := newFixture(t)
	entry := f.createEntry(t, f.beer.ID, 5000, OwnershipPurchased)

	_, err := f.svc.Assign(&AssignRequest{EntryID: entry.ID, BarID: f.barA.ID, Quantity: 4000}, f.owner)
	require.NoError(t, err)

	_, err = f.svc.Assign(&AssignRequest{EntryID: entry.ID, BarID: f.barA.ID, Quantity: 2000}, f.owner)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInsufficientAvailable))

	reloaded := f.reloadEntry(t, entry.ID)
	assert.Equal(t, int64(4000), reloaded.AllocatedQuantity, "failed assign leaves counters untouched")
}

func TestAssignRequiresOwnership(t *testing.T) {
	f := newFixture(t)
	entry := f.createEntry(t, f.beer.ID, 5000, OwnershipPurchased)

	_, err := f.svc.Assign(&AssignRequest{EntryID: entry.ID, BarID: f.barA.ID, Quantity: 1000}, 99)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotOwner))
}

func TestMoveBetweenBars(t *testing.T) {
	f := newFixture(t)
	entry := f.createEntry(t, f.beer.ID, 10000, OwnershipPurchased)
	_, err := f.svc.Assign(&AssignRequest{EntryID: entry.ID, BarID: f.barA.ID, Quantity: 4000}, f.owner)
	require.NoError(t, err)

	err = f.svc.Move(&MoveRequest{
		FromBarID: f.barA.ID,
		ToBarID:   f.barB.ID,
		DrinkID:   f.beer.ID,
		Quantity:  1500,
	}, f.owner, nil)
	require.NoError(t, err)

	fromQty, err := f.svc.PoolQuantity(f.barA.ID, f.beer.ID, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), fromQty)

	toQty, err := f.svc.PoolQuantity(f.barB.ID, f.beer.ID, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), toQty)

	// Global counters see nothing: the move is internal to the event.
	reloaded := f.reloadEntry(t, entry.ID)
	assert.Equal(t, int64(4000), reloaded.AllocatedQuantity)
}

func TestMoveDeletesEmptiedRow(t *testing.T) {
	f := newFixture(t)
	entry := f.createEntry(t, f.beer.ID, 10000, OwnershipPurchased)
	_, err := f.svc.Assign(&AssignRequest{EntryID: entry.ID, BarID: f.barA.ID, Quantity: 2000}, f.owner)
	require.NoError(t, err)

	err = f.svc.Move(&MoveRequest{
		FromBarID: f.barA.ID,
		ToBarID:   f.barB.ID,
		DrinkID:   f.beer.ID,
		Quantity:  2000,
	}, f.owner, nil)
	require.NoError(t, err)

	var count int64
	require.NoError(t, f.db.Model(&BarStock{}).Where("bar_id = ?", f.barA.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count, "zero-quantity rows do not persist")
}

func TestMoveInsufficientStock(t *testing.T) {
	f := newFixture(t)
	entry := f.createEntry(t, f.beer.ID, 10000, OwnershipPurchased)
	_, err := f.svc.Assign(&AssignRequest{EntryID: entry.ID, BarID: f.barA.ID, Quantity: 1000}, f.owner)
	require.NoError(t, err)

	err = f.svc.Move(&MoveRequest{
		FromBarID: f.barA.ID,
		ToBarID:   f.barB.ID,
		DrinkID:   f.beer.ID,
		Quantity:  5000,
	}, f.owner, nil)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInsufficientStock))

	qty, err := f.svc.PoolQuantity(f.barA.ID, f.beer.ID, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), qty, "failed move changes nothing")
}

func TestMoveRejectsCrossEventBars(t *testing.T) {
	f := newFixture(t)

	otherEvent := catalog.Event{OwnerID: f.owner, Name: "Other Fest", IsActive: true}
	require.NoError(t, f.db.Create(&otherEvent).Error)
	otherBar := catalog.Bar{EventID: otherEvent.ID, Name: "Foreign Bar", IsActive: true}
	require.NoError(t, f.db.Create(&otherBar).Error)

	entry := f.createEntry(t, f.beer.ID, 10000, OwnershipPurchased)
	_, err := f.svc.Assign(&AssignRequest{EntryID: entry.ID, BarID: f.barA.ID, Quantity: 1000}, f.owner)
	require.NoError(t, err)

	err = f.svc.Move(&MoveRequest{
		FromBarID: f.barA.ID,
		ToBarID:   otherBar.ID,
		DrinkID:   f.beer.ID,
		Quantity:  500,
	}, f.owner, nil)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidInput))
}

func TestReturnShrinksAllocationOnly(t *testing.T) {
	f := newFixture(t)
	entry := f.createEntry(t, f.beer.ID, 10000, OwnershipPurchased)
	_, err := f.svc.Assign(&AssignRequest{EntryID: entry.ID, BarID: f.barA.ID, Quantity: 3000}, f.owner)
	require.NoError(t, err)

	err = f.svc.Return(&ReturnRequest{
		BarID:    f.barA.ID,
		DrinkID:  f.beer.ID,
		Quantity: 1000,
	}, f.owner)
	require.NoError(t, err)

	reloaded := f.reloadEntry(t, entry.ID)
	assert.Equal(t, int64(10000), reloaded.TotalQuantity, "return keeps ownership")
	assert.Equal(t, int64(2000), reloaded.AllocatedQuantity)

	qty, err := f.svc.PoolQuantity(f.barA.ID, f.beer.ID, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), qty)
}

func TestReturnRejectsOverReturn(t *testing.T) {
	f := newFixture(t)
	entry := f.createEntry(t, f.beer.ID, 10000, OwnershipPurchased)
	_, err := f.svc.Assign(&AssignRequest{EntryID: entry.ID, BarID: f.barA.ID, Quantity: 2000}, f.owner)
	require.NoError(t, err)

	err = f.svc.Return(&ReturnRequest{
		BarID:    f.barA.ID,
		DrinkID:  f.beer.ID,
		Quantity: 5000,
	}, f.owner)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeOverReturn))
}

func TestReturnToSupplierShrinksTotal(t *testing.T) {
	f := newFixture(t)
	entry := f.createEntry(t, f.beer.ID, 10000, OwnershipConsignment)
	_, err := f.svc.Assign(&AssignRequest{EntryID: entry.ID, BarID: f.barA.ID, Quantity: 4000}, f.owner)
	require.NoError(t, err)

	err = f.svc.ReturnToSupplier(&ReturnRequest{
		BarID:    f.barA.ID,
		DrinkID:  f.beer.ID,
		Quantity: 1500,
	}, f.owner)
	require.NoError(t, err)

	reloaded := f.reloadEntry(t, entry.ID)
	assert.Equal(t, int64(8500), reloaded.TotalQuantity, "supplier return leaves ownership")
	assert.Equal(t, int64(2500), reloaded.AllocatedQuantity)
}

func TestReturnToSupplierRejectsPurchasedStock(t *testing.T) {
	f := newFixture(t)
	entry := f.createEntry(t, f.beer.ID, 10000, OwnershipPurchased)
	_, err := f.svc.Assign(&AssignRequest{EntryID: entry.ID, BarID: f.barA.ID, Quantity: 2000}, f.owner)
	require.NoError(t, err)

	err = f.svc.ReturnToSupplier(&ReturnRequest{
		BarID:    f.barA.ID,
		DrinkID:  f.beer.ID,
		Quantity: 1000,
	}, f.owner)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotConsignment))
}

func TestDiscardWritesOffResidual(t *testing.T) {
	f := newFixture(t)
	entry := f.createEntry(t, f.beer.ID, 10000, OwnershipPurchased)
	_, err := f.svc.Assign(&AssignRequest{EntryID: entry.ID, BarID: f.barA.ID, Quantity: 300}, f.owner)
	require.NoError(t, err)

	err = f.svc.Discard(&DiscardRequest{
		BarID:   f.barA.ID,
		DrinkID: f.beer.ID,
	}, f.owner)
	require.NoError(t, err)

	var count int64
	require.NoError(t, f.db.Model(&BarStock{}).Where("bar_id = ?", f.barA.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	var movement InventoryMovement
	require.NoError(t, f.db.Where("movement_type = ?", MovementTypeDiscard).First(&movement).Error)
	assert.Equal(t, LocationWaste, movement.ToType)
	assert.Equal(t, int64(300), movement.Quantity)

	// The discard is a bar-local loss; global counters keep the stock
	// as paid for and allocated.
	reloaded := f.reloadEntry(t, entry.ID)
	assert.Equal(t, int64(10000), reloaded.TotalQuantity)
	assert.Equal(t, int64(300), reloaded.AllocatedQuantity)
}

func TestDepleteWholeUnitConsumesUnitVolume(t *testing.T) {
	f := newFixture(t)
	entry := f.createEntry(t, f.beer.ID, 10000, OwnershipPurchased)
	_, err := f.svc.Assign(&AssignRequest{
		EntryID: entry.ID, BarID: f.barA.ID, Quantity: 3000, SellAsWholeUnit: true,
	}, f.owner)
	require.NoError(t, err)

	err = f.svc.Deplete(&DepleteRequest{
		BarID:   f.barA.ID,
		SaleRef: "sale-1",
		Components: []DepleteComponent{
			{DrinkID: f.beer.ID, SellAsWholeUnit: true, Units: 2},
		},
	}, f.owner)
	require.NoError(t, err)

	qty, err := f.svc.PoolQuantity(f.barA.ID, f.beer.ID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), qty, "2 units of a 500 ml drink consume 1000 ml")

	var movement InventoryMovement
	require.NoError(t, f.db.Where("movement_type = ?", MovementTypeSaleDepletion).First(&movement).Error)
	assert.Equal(t, "sale-1", movement.SaleRef)
	assert.Equal(t, LocationSale, movement.ToType)
}

func TestDepleteDrainsLotsOldestFirst(t *testing.T) {
	f := newFixture(t)

	supplier := catalog.Supplier{Name: "First Supplier"}
	require.NoError(t, f.db.Create(&supplier).Error)

	oldLot := BarStock{BarID: f.barA.ID, DrinkID: f.beer.ID, SupplierID: &supplier.ID, Quantity: 800}
	require.NoError(t, f.db.Create(&oldLot).Error)
	newLot := BarStock{BarID: f.barA.ID, DrinkID: f.beer.ID, Quantity: 700}
	require.NoError(t, f.db.Create(&newLot).Error)

	err := f.svc.Deplete(&DepleteRequest{
		BarID: f.barA.ID,
		Components: []DepleteComponent{
			{DrinkID: f.beer.ID, AmountML: 1000},
		},
	}, f.owner)
	require.NoError(t, err)

	var rows []BarStock
	require.NoError(t, f.db.Where("bar_id = ?", f.barA.ID).Find(&rows).Error)
	require.Len(t, rows, 1, "the older lot is fully drained and removed")
	assert.Equal(t, newLot.ID, rows[0].ID)
	assert.Equal(t, int64(500), rows[0].Quantity)
}

func TestDepleteShortfallAbortsAllComponents(t *testing.T) {
	f := newFixture(t)
	beerEntry := f.createEntry(t, f.beer.ID, 10000, OwnershipPurchased)
	_, err := f.svc.Assign(&AssignRequest{EntryID: beerEntry.ID, BarID: f.barA.ID, Quantity: 2000}, f.owner)
	require.NoError(t, err)
	// No vodka at the bar at all.

	err = f.svc.Deplete(&DepleteRequest{
		BarID: f.barA.ID,
		Components: []DepleteComponent{
			{DrinkID: f.beer.ID, AmountML: 500},
			{DrinkID: f.vodka.ID, AmountML: 40},
		},
	}, f.owner)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInsufficientStock))

	qty, err := f.svc.PoolQuantity(f.barA.ID, f.beer.ID, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), qty, "the already-processed component rolls back too")

	var count int64
	require.NoError(t, f.db.Model(&InventoryMovement{}).
		Where("movement_type = ?", MovementTypeSaleDepletion).Count(&count).Error)
	assert.Equal(t, int64(0), count, "no partial movement rows survive the rollback")
}

func TestDepleteTriggersAfterSaleHook(t *testing.T) {
	f := newFixture(t)
	entry := f.createEntry(t, f.beer.ID, 10000, OwnershipPurchased)
	_, err := f.svc.Assign(&AssignRequest{EntryID: entry.ID, BarID: f.barA.ID, Quantity: 2000}, f.owner)
	require.NoError(t, err)

	var gotEventID, gotBarID uint
	var gotDrinks []uint
	f.svc.SetAfterSaleHook(func(eventID, barID uint, drinkIDs []uint) {
		gotEventID, gotBarID, gotDrinks = eventID, barID, drinkIDs
	})

	err = f.svc.Deplete(&DepleteRequest{
		BarID:      f.barA.ID,
		Components: []DepleteComponent{{DrinkID: f.beer.ID, AmountML: 500}},
	}, f.owner)
	require.NoError(t, err)

	assert.Equal(t, f.event.ID, gotEventID)
	assert.Equal(t, f.barA.ID, gotBarID)
	assert.Equal(t, []uint{f.beer.ID}, gotDrinks)
}

func TestConsumptionRateFromMovementLog(t *testing.T) {
	f := newFixture(t)
	entry := f.createEntry(t, f.beer.ID, 10000, OwnershipPurchased)
	_, err := f.svc.Assign(&AssignRequest{EntryID: entry.ID, BarID: f.barA.ID, Quantity: 6000}, f.owner)
	require.NoError(t, err)

	err = f.svc.Deplete(&DepleteRequest{
		BarID:      f.barA.ID,
		Components: []DepleteComponent{{DrinkID: f.beer.ID, AmountML: 3000}},
	}, f.owner)
	require.NoError(t, err)

	// 3000 ml over a 30 minute window: 100 ml/min.
	rate, err := f.svc.ConsumptionRate(f.barA.ID, f.beer.ID, false, f.svc.config.Alerting.ConsumptionWindow)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, rate, 0.01)
}

func TestMovementLogFilters(t *testing.T) {
	f := newFixture(t)
	entry := f.createEntry(t, f.beer.ID, 10000, OwnershipPurchased)
	_, err := f.svc.Assign(&AssignRequest{EntryID: entry.ID, BarID: f.barA.ID, Quantity: 4000}, f.owner)
	require.NoError(t, err)
	require.NoError(t, f.svc.Move(&MoveRequest{
		FromBarID: f.barA.ID, ToBarID: f.barB.ID, DrinkID: f.beer.ID, Quantity: 1000,
	}, f.owner, nil))

	all, err := f.svc.GetMovements(MovementFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	barB := f.barB.ID
	filtered, err := f.svc.GetMovements(MovementFilter{BarID: &barB})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, ReasonBarTransfer, filtered[0].Reason)
}
