// internal/domain/transfer/service_test.go
package transfer

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
	db       *gorm.DB
	svc      *Service
	ledger   *inventory.Service
	owner    uint
	event    catalog.Event
	receiver catalog.Bar
	donor    catalog.Bar
	beer     catalog.Drink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t,
		&catalog.Drink{}, &catalog.Supplier{}, &catalog.Event{}, &catalog.Bar{},
		&inventory.InventoryEntry{}, &inventory.Allocation{}, &inventory.BarStock{},
		&inventory.InventoryMovement{},
		&StockTransfer{},
	)
	cfg := testutil.NewTestConfig()
	logger := testutil.NewTestLogger()

	ledger := inventory.NewService(db, cfg, logger)
	catalogSvc := catalog.NewService(db)

	f := &fixture{
		db:     db,
		ledger: ledger,
		owner:  1,
	}
	f.svc = NewService(db, logger, ledger, catalogSvc, notify.Nop{})

	f.event = catalog.Event{OwnerID: f.owner, Name: "Beer Fest", IsActive: true}
	require.NoError(t, db.Create(&f.event).Error)
	f.receiver = catalog.Bar{EventID: f.event.ID, Name: "Receiver Bar", IsActive: true}
	require.NoError(t, db.Create(&f.receiver).Error)
	f.donor = catalog.Bar{EventID: f.event.ID, Name: "Donor Bar", IsActive: true}
	require.NoError(t, db.Create(&f.donor).Error)
	f.beer = catalog.Drink{Name: "Pilsner", VolumeML: 500}
	require.NoError(t, db.Create(&f.beer).Error)

	return f
}

func (f *fixture) stockDonor(t *testing.T, quantityML int64) {
	t.Helper()
	entry, err := f.ledger.CreateEntry(&inventory.CreateEntryRequest{
		DrinkID:       f.beer.ID,
		TotalQuantity: quantityML,
	}, f.owner)
	require.NoError(t, err)
	_, err = f.ledger.Assign(&inventory.AssignRequest{
		EntryID:  entry.ID,
		BarID:    f.donor.ID,
		Quantity: quantityML,
	}, f.owner)
	require.NoError(t, err)
}

func (f *fixture) request(t *testing.T, quantity int64) *StockTransfer {
	t.Helper()
	transfer, err := f.svc.Create(f.event.ID, &CreateRequest{
		ReceiverBarID: f.receiver.ID,
		DonorBarID:    f.donor.ID,
		DrinkID:       f.beer.ID,
		Quantity:      quantity,
	}, f.owner)
	require.NoError(t, err)
	return transfer
}

func TestTransferFullLifecycle(t *testing.T) {
	f := newFixture(t)
	f.stockDonor(t, 5000)

	transfer := f.request(t, 2000)
	assert.Equal(t, StatusRequested, transfer.Status)

	approved, err := f.svc.Approve(transfer.ID, f.owner)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)

	completed, err := f.svc.Complete(transfer.ID, f.owner)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)

	// The ledger executed the physical move.
	donorQty, err := f.ledger.PoolQuantity(f.donor.ID, f.beer.ID, false)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), donorQty)
	receiverQty, err := f.ledger.PoolQuantity(f.receiver.ID, f.beer.ID, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), receiverQty)

	// The movement links back to the transfer.
	var movement inventory.InventoryMovement
	require.NoError(t, f.db.Where("transfer_id = ?", transfer.ID).First(&movement).Error)
	assert.Equal(t, int64(2000), movement.Quantity)
}

func TestTransferCreateRejectsInsufficientDonorStock(t *testing.T) {
	f := newFixture(t)
	f.stockDonor(t, 1000)

	_, err := f.svc.Create(f.event.ID, &CreateRequest{
		ReceiverBarID: f.receiver.ID,
		DonorBarID:    f.donor.ID,
		DrinkID:       f.beer.ID,
		Quantity:      5000,
	}, f.owner)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInsufficientStock))
}

func TestTransferCreateRejectsSameBar(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(f.event.ID, &CreateRequest{
		ReceiverBarID: f.donor.ID,
		DonorBarID:    f.donor.ID,
		DrinkID:       f.beer.ID,
		Quantity:      500,
	}, f.owner)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidInput))
}

func TestTransferCreateRejectsForeignBars(t *testing.T) {
	f := newFixture(t)
	f.stockDonor(t, 5000)

	otherEvent := catalog.Event{OwnerID: f.owner, Name: "Other Fest", IsActive: true}
	require.NoError(t, f.db.Create(&otherEvent).Error)

	_, err := f.svc.Create(otherEvent.ID, &CreateRequest{
		ReceiverBarID: f.receiver.ID,
		DonorBarID:    f.donor.ID,
		DrinkID:       f.beer.ID,
		Quantity:      500,
	}, f.owner)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidInput))
}

func TestCompleteRequiresApprovedState(t *testing.T) {
	f := newFixture(t)
	f.stockDonor(t, 5000)
	transfer := f.request(t, 1000)

	_, err := f.svc.Complete(transfer.ID, f.owner)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidTransition))
}

func TestApproveRechecksDonorStock(t *testing.T) {
	f := newFixture(t)
	f.stockDonor(t, 2000)
	transfer := f.request(t, 2000)

	// The donor's stock drains between request and approval.
	require.NoError(t, f.ledger.Deplete(&inventory.DepleteRequest{
		BarID:      f.donor.ID,
		Components: []inventory.DepleteComponent{{DrinkID: f.beer.ID, AmountML: 1500}},
	}, f.owner))

	_, err := f.svc.Approve(transfer.ID, f.owner)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInsufficientStock))

	reloaded, err := f.svc.GetTransfer(transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRequested, reloaded.Status, "failed approval leaves the state untouched")
}

func TestCompleteTwiceMovesStockOnce(t *testing.T) {
	f := newFixture(t)
	f.stockDonor(t, 5000)
	transfer := f.request(t, 2000)
	_, err := f.svc.Approve(transfer.ID, f.owner)
	require.NoError(t, err)

	_, err = f.svc.Complete(transfer.ID, f.owner)
	require.NoError(t, err)

	_, err = f.svc.Complete(transfer.ID, f.owner)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidTransition))

	receiverQty, err := f.ledger.PoolQuantity(f.receiver.ID, f.beer.ID, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), receiverQty)
}

func TestConcurrentCompleteClaimsOnce(t *testing.T) {
	f := newFixture(t)
	f.stockDonor(t, 5000)
	transfer := f.request(t, 2000)
	_, err := f.svc.Approve(transfer.ID, f.owner)
	require.NoError(t, err)

	start := make(chan struct{})
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			<-start
			_, err := f.svc.Complete(transfer.ID, f.owner)
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
	assert.Equal(t, 1, succeeded, "only one call claims the approved transfer")

	// The stock moved exactly once.
	receiverQty, err := f.ledger.PoolQuantity(f.receiver.ID, f.beer.ID, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), receiverQty)
	donorQty, err := f.ledger.PoolQuantity(f.donor.ID, f.beer.ID, false)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), donorQty)
}

func TestTransferRequiresSingleCoveringLot(t *testing.T) {
	f := newFixture(t)

	// 1500 ml in total at the donor, but split across pools so no single
	// lot covers 1000 ml. The ledger moves from one row, so the request
	// must be refused up front rather than fail at completion.
	require.NoError(t, f.db.Create(&inventory.BarStock{
		BarID: f.donor.ID, DrinkID: f.beer.ID, Quantity: 800, SellAsWholeUnit: false,
	}).Error)
	require.NoError(t, f.db.Create(&inventory.BarStock{
		BarID: f.donor.ID, DrinkID: f.beer.ID, Quantity: 700, SellAsWholeUnit: true,
	}).Error)

	_, err := f.svc.Create(f.event.ID, &CreateRequest{
		ReceiverBarID: f.receiver.ID,
		DonorBarID:    f.donor.ID,
		DrinkID:       f.beer.ID,
		Quantity:      1000,
	}, f.owner)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInsufficientStock))

	// A quantity one lot can cover goes through end to end.
	transfer := f.request(t, 800)
	_, err = f.svc.Approve(transfer.ID, f.owner)
	require.NoError(t, err)
	_, err = f.svc.Complete(transfer.ID, f.owner)
	require.NoError(t, err)
}

func TestRejectAndCancelTransitions(t *testing.T) {
	f := newFixture(t)
	f.stockDonor(t, 5000)

	rejected := f.request(t, 500)
	result, err := f.svc.Reject(rejected.ID, f.owner)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, result.Status)

	// Terminal states accept no further transitions.
	_, err = f.svc.Approve(rejected.ID, f.owner)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidTransition))

	cancelled := f.request(t, 500)
	_, err = f.svc.Approve(cancelled.ID, f.owner)
	require.NoError(t, err)
	result, err = f.svc.Cancel(cancelled.ID, f.owner)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, result.Status, "approved transfers may still be cancelled")
}

func TestTransferTransitionsRequireOwner(t *testing.T) {
	f := newFixture(t)
	f.stockDonor(t, 5000)
	transfer := f.request(t, 500)

	_, err := f.svc.Approve(transfer.ID, 99)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotOwner))
}

func TestGetTransfersFiltersByStatus(t *testing.T) {
	f := newFixture(t)
	f.stockDonor(t, 5000)

	first := f.request(t, 500)
	_ = f.request(t, 700)
	_, err := f.svc.Reject(first.ID, f.owner)
	require.NoError(t, err)

	requested := StatusRequested
	transfers, err := f.svc.GetTransfers(f.event.ID, &requested)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, int64(700), transfers[0].Quantity)
}
