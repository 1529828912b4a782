// internal/domain/alert/service_test.go
package alert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/barflow-backend/internal/domain/catalog"
	"github.com/your-org/barflow-backend/internal/domain/inventory"
	"github.com/your-org/barflow-backend/internal/pkg/apperr"
	"github.com/your-org/barflow-backend/internal/pkg/notify"
	"github.com/your-org/barflow-backend/internal/pkg/testutil"
	"gorm.io/gorm"
)

type fixture struct {
	db     *gorm.DB
	svc    *Service
	ledger *inventory.Service
	owner  uint
	event  catalog.Event
	barA   catalog.Bar
	barB   catalog.Bar
	wine   catalog.Drink // 750 ml units
}

// recordingNotifier captures published events for assertions.
type recordingNotifier struct {
	events []notify.Event
}

func (n *recordingNotifier) Publish(event notify.Event) {
	n.events = append(n.events, event)
}

func newFixture(t *testing.T) (*fixture, *recordingNotifier) {
	t.Helper()

	db := testutil.NewTestDB(t,
		&catalog.Drink{}, &catalog.Supplier{}, &catalog.Event{}, &catalog.Bar{},
		&inventory.InventoryEntry{}, &inventory.Allocation{}, &inventory.BarStock{},
		&inventory.InventoryMovement{},
		&StockThreshold{}, &StockAlert{},
	)
	cfg := testutil.NewTestConfig()
	logger := testutil.NewTestLogger()
	notifier := &recordingNotifier{}

	ledger := inventory.NewService(db, cfg, logger)
	catalogSvc := catalog.NewService(db)

	f := &fixture{
		db:     db,
		ledger: ledger,
		owner:  1,
	}
	f.svc = NewService(db, cfg, logger, catalogSvc, notifier)

	f.event = catalog.Event{OwnerID: f.owner, Name: "Wine Expo", IsActive: true}
	require.NoError(t, db.Create(&f.event).Error)
	f.barA = catalog.Bar{EventID: f.event.ID, Name: "Tasting Bar", IsActive: true}
	require.NoError(t, db.Create(&f.barA).Error)
	f.barB = catalog.Bar{EventID: f.event.ID, Name: "Cellar Bar", IsActive: true}
	require.NoError(t, db.Create(&f.barB).Error)
	f.wine = catalog.Drink{Name: "Merlot", VolumeML: 750}
	require.NoError(t, db.Create(&f.wine).Error)

	return f, notifier
}

func (f *fixture) stockBar(t *testing.T, barID uint, quantityML int64) {
	t.Helper()
	f.stockDrink(t, barID, f.wine.ID, quantityML, true)
}

func (f *fixture) stockDrink(t *testing.T, barID, drinkID uint, quantityML int64, wholeUnit bool) {
	t.Helper()
	entry, err := f.ledger.CreateEntry(&inventory.CreateEntryRequest{
		DrinkID:       drinkID,
		TotalQuantity: quantityML,
	}, f.owner)
	require.NoError(t, err)
	_, err = f.ledger.Assign(&inventory.AssignRequest{
		EntryID:         entry.ID,
		BarID:           barID,
		Quantity:        quantityML,
		SellAsWholeUnit: wholeUnit,
	}, f.owner)
	require.NoError(t, err)
}

func (f *fixture) setThreshold(t *testing.T, lower, donation int64) *StockThreshold {
	t.Helper()
	threshold, err := f.svc.CreateThreshold(f.event.ID, &ThresholdRequest{
		DrinkID:           f.wine.ID,
		SellAsWholeUnit:   true,
		LowerThreshold:    lower,
		DonationThreshold: donation,
	}, f.owner)
	require.NoError(t, err)
	return threshold
}

func TestOnSaleRaisesLowStockAlert(t *testing.T) {
	f, notifier := newFixture(t)
	f.stockBar(t, f.barA.ID, 1000) // 1 unit
	f.stockBar(t, f.barB.ID, 2500) // 3 units
	f.setThreshold(t, 1, 2)

	// One bottle sold at bar A leaves 250 ml: zero whole units.
	require.NoError(t, f.ledger.Deplete(&inventory.DepleteRequest{
		BarID:      f.barA.ID,
		Components: []inventory.DepleteComponent{{DrinkID: f.wine.ID, SellAsWholeUnit: true, Units: 1}},
	}, f.owner))

	require.NoError(t, f.svc.OnSale(f.event.ID, f.barA.ID, []uint{f.wine.ID}))

	var alert StockAlert
	require.NoError(t, f.db.Where("bar_id = ?", f.barA.ID).First(&alert).Error)
	assert.Equal(t, AlertTypeLowStock, alert.AlertType)
	assert.Equal(t, AlertStatusActive, alert.Status)
	assert.Equal(t, int64(0), alert.CurrentUnits)
	assert.Equal(t, int64(1), alert.LowerThreshold)
	assert.False(t, alert.ExternalNeeded)

	donors := alert.Donors()
	require.Len(t, donors, 1)
	assert.Equal(t, f.barB.ID, donors[0].BarID)
	assert.Equal(t, int64(1), donors[0].SurplusUnits, "bar B holds 3 units against donation threshold 2")
	assert.Equal(t, int64(1), donors[0].SuggestedQuantity)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, "stock_alert", notifier.events[0].Kind)
	assert.Equal(t, f.barA.ID, notifier.events[0].BarID)
}

func TestOnSaleSkipsUnconfiguredDrinks(t *testing.T) {
	f, notifier := newFixture(t)
	f.stockBar(t, f.barA.ID, 500)

	require.NoError(t, f.svc.OnSale(f.event.ID, f.barA.ID, []uint{f.wine.ID}))

	var count int64
	require.NoError(t, f.db.Model(&StockAlert{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
	assert.Empty(t, notifier.events)
}

func TestAlertDeduplication(t *testing.T) {
	f, notifier := newFixture(t)
	f.stockBar(t, f.barA.ID, 500) // 0 units
	f.setThreshold(t, 2, 3)

	require.NoError(t, f.svc.OnSale(f.event.ID, f.barA.ID, []uint{f.wine.ID}))
	require.NoError(t, f.svc.OnSale(f.event.ID, f.barA.ID, []uint{f.wine.ID}))
	require.NoError(t, f.svc.OnSale(f.event.ID, f.barA.ID, []uint{f.wine.ID}))

	var count int64
	require.NoError(t, f.db.Model(&StockAlert{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "repeat evaluations never duplicate an open alert")
	assert.Len(t, notifier.events, 1, "only the first breach notifies")
}

func TestResolvedAlertAllowsNewOne(t *testing.T) {
	f, _ := newFixture(t)
	f.stockBar(t, f.barA.ID, 500)
	f.setThreshold(t, 2, 3)

	require.NoError(t, f.svc.OnSale(f.event.ID, f.barA.ID, []uint{f.wine.ID}))

	var alert StockAlert
	require.NoError(t, f.db.First(&alert).Error)
	_, err := f.svc.Resolve(alert.ID, f.owner)
	require.NoError(t, err)

	require.NoError(t, f.svc.OnSale(f.event.ID, f.barA.ID, []uint{f.wine.ID}))

	var count int64
	require.NoError(t, f.db.Model(&StockAlert{}).Count(&count).Error)
	assert.Equal(t, int64(2), count, "a resolved alert no longer blocks re-alerting")
}

func TestExternalNeededWhenNoDonorHasSurplus(t *testing.T) {
	f, _ := newFixture(t)
	f.stockBar(t, f.barA.ID, 500)  // 0 units, below threshold
	f.stockBar(t, f.barB.ID, 1500) // 2 units, exactly at donation threshold
	f.setThreshold(t, 1, 2)

	require.NoError(t, f.svc.OnSale(f.event.ID, f.barA.ID, []uint{f.wine.ID}))

	var alert StockAlert
	require.NoError(t, f.db.First(&alert).Error)
	assert.True(t, alert.ExternalNeeded)
	assert.Empty(t, alert.Donors())
}

func TestForceCheckSweepsAllBars(t *testing.T) {
	f, _ := newFixture(t)
	f.stockBar(t, f.barA.ID, 500) // 0 units, breached
	f.stockBar(t, f.barB.ID, 700) // 0 units, breached
	f.setThreshold(t, 1, 2)

	alerts, err := f.svc.ForceCheck(f.event.ID, f.owner)
	require.NoError(t, err)
	assert.Len(t, alerts, 2, "both bars breach the threshold")

	// A second sweep reports the same picture without duplicating.
	again, err := f.svc.ForceCheck(f.event.ID, f.owner)
	require.NoError(t, err)
	assert.Len(t, again, 2)

	var count int64
	require.NoError(t, f.db.Model(&StockAlert{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestForceCheckSweepsMixedDrinksAndPools(t *testing.T) {
	f, _ := newFixture(t)
	soda := catalog.Drink{Name: "Tonic", VolumeML: 500}
	require.NoError(t, f.db.Create(&soda).Error)

	f.setThreshold(t, 1, 2) // wine, whole-unit pool
	_, err := f.svc.CreateThreshold(f.event.ID, &ThresholdRequest{
		DrinkID:           soda.ID,
		SellAsWholeUnit:   false,
		LowerThreshold:    1,
		DonationThreshold: 2,
	}, f.owner)
	require.NoError(t, err)

	f.stockDrink(t, f.barA.ID, f.wine.ID, 500, true)  // 0 units, breached
	f.stockDrink(t, f.barA.ID, soda.ID, 3000, false)  // 6 units, fine
	f.stockDrink(t, f.barB.ID, f.wine.ID, 3000, true) // 4 units, fine
	f.stockDrink(t, f.barB.ID, soda.ID, 400, false)   // 0 units, breached

	alerts, err := f.svc.ForceCheck(f.event.ID, f.owner)
	require.NoError(t, err)
	require.Len(t, alerts, 2, "one sweep covers every (threshold, bar) pair")

	breached := make(map[[2]uint]StockAlert)
	for _, alert := range alerts {
		breached[[2]uint{alert.BarID, alert.DrinkID}] = alert
	}
	wineAlert, ok := breached[[2]uint{f.barA.ID, f.wine.ID}]
	require.True(t, ok)
	assert.True(t, wineAlert.SellAsWholeUnit)
	sodaAlert, ok := breached[[2]uint{f.barB.ID, soda.ID}]
	require.True(t, ok)
	assert.False(t, sodaAlert.SellAsWholeUnit)

	// Bar B holds 4 bottles of wine against donation threshold 2.
	donors := wineAlert.Donors()
	require.Len(t, donors, 1)
	assert.Equal(t, f.barB.ID, donors[0].BarID)
	assert.Equal(t, int64(2), donors[0].SurplusUnits)
}

func TestForceCheckRequiresEventOwner(t *testing.T) {
	f, _ := newFixture(t)
	f.setThreshold(t, 1, 2)

	_, err := f.svc.ForceCheck(f.event.ID, 99)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotOwner))
}

func TestProjectedDepletionAlert(t *testing.T) {
	f, _ := newFixture(t)
	f.stockBar(t, f.barA.ID, 3000) // 4 units

	horizon := int64(60)
	_, err := f.svc.CreateThreshold(f.event.ID, &ThresholdRequest{
		DrinkID:             f.wine.ID,
		SellAsWholeUnit:     true,
		LowerThreshold:      0,
		DonationThreshold:   0,
		DepletionHorizonMin: &horizon,
	}, f.owner)
	require.NoError(t, err)

	// Selling two bottles inside the trailing window yields a rate of
	// 50 ml/min, so the remaining 2 units project to 30 minutes.
	require.NoError(t, f.ledger.Deplete(&inventory.DepleteRequest{
		BarID:      f.barA.ID,
		Components: []inventory.DepleteComponent{{DrinkID: f.wine.ID, SellAsWholeUnit: true, Units: 2}},
	}, f.owner))

	require.NoError(t, f.svc.OnSale(f.event.ID, f.barA.ID, []uint{f.wine.ID}))

	var alert StockAlert
	require.NoError(t, f.db.Where("alert_type = ?", AlertTypeProjectedDepletion).First(&alert).Error)
	require.NotNil(t, alert.ProjectedMinutes)
	assert.InDelta(t, 30.0, *alert.ProjectedMinutes, 0.5)
}

func TestAlertLifecycleTransitions(t *testing.T) {
	f, _ := newFixture(t)
	f.stockBar(t, f.barA.ID, 500)
	f.setThreshold(t, 2, 3)
	require.NoError(t, f.svc.OnSale(f.event.ID, f.barA.ID, []uint{f.wine.ID}))

	var alert StockAlert
	require.NoError(t, f.db.First(&alert).Error)

	acked, err := f.svc.Acknowledge(alert.ID, f.owner)
	require.NoError(t, err)
	assert.Equal(t, AlertStatusAcknowledged, acked.Status)
	assert.NotNil(t, acked.AcknowledgedAt)

	// Acknowledging twice is an invalid transition.
	_, err = f.svc.Acknowledge(alert.ID, f.owner)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidTransition))

	resolved, err := f.svc.Resolve(alert.ID, f.owner)
	require.NoError(t, err)
	assert.Equal(t, AlertStatusResolved, resolved.Status)
	assert.NotNil(t, resolved.ResolvedAt)

	_, err = f.svc.Resolve(alert.ID, f.owner)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidTransition))
}

func TestConcurrentAcknowledgeClaimsOnce(t *testing.T) {
	f, _ := newFixture(t)
	f.stockBar(t, f.barA.ID, 500)
	f.setThreshold(t, 2, 3)
	require.NoError(t, f.svc.OnSale(f.event.ID, f.barA.ID, []uint{f.wine.ID}))

	var alert StockAlert
	require.NoError(t, f.db.First(&alert).Error)

	start := make(chan struct{})
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			<-start
			_, err := f.svc.Acknowledge(alert.ID, f.owner)
			results <- err
		}()
	}
	close(start)

	var succeeded int
	for i := 0; i < 2; i++ {
		if err := <-results; err == nil {
			succeeded++
		} else {
			assert.True(t, apperr.IsCode(err, apperr.CodeInvalidTransition))
		}
	}
	assert.Equal(t, 1, succeeded, "only one call claims the active alert")

	require.NoError(t, f.db.First(&alert, alert.ID).Error)
	assert.Equal(t, AlertStatusAcknowledged, alert.Status)
	assert.NotNil(t, alert.AcknowledgedAt)
}
