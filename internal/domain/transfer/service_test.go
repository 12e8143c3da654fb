package transfer_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storecore/internal/core/apperror"
	"storecore/internal/core/id"
	"storecore/internal/core/numerator"
	"storecore/internal/core/types"
	"storecore/internal/domain/catalog/location"
	"storecore/internal/domain/catalog/product"
	"storecore/internal/domain/domaintest"
	"storecore/internal/domain/events"
	"storecore/internal/domain/journal"
	"storecore/internal/domain/ledger"
	"storecore/internal/domain/transfer"
)

var (
	jan1 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	jan5 = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
)

type env struct {
	products *domaintest.ProductRepo
	stock    *domaintest.LedgerRepo
	journal  *domaintest.JournalRepo
	repo     *domaintest.TransferRepo
	service  *transfer.Service

	productID id.ID
	fromID    id.ID
	toID      id.ID
}

// newEnv seeds two locations and a product with two cost layers at the
// source: 5 @ 2.00 received Jan 1 and 5 @ 3.00 received Jan 5.
func newEnv(t *testing.T) *env {
	t.Helper()

	from := location.NewLocation("WH-001", "Central Warehouse")
	to := location.NewLocation("STORE-001", "Main Street Store")
	prod := product.NewProduct("SKU-TEA-100", "Green Tea 100 bags",
		types.MustMoney("6.00"), types.MustMoney("2.50"))

	e := &env{
		products:  domaintest.NewProductRepo(prod),
		stock:     domaintest.NewLedgerRepo(),
		journal:   domaintest.NewJournalRepo(),
		repo:      domaintest.NewTransferRepo(),
		productID: prod.ID,
		fromID:    from.ID,
		toID:      to.ID,
	}

	src := journal.PurchaseOrderSource(id.New())
	e.stock.Seed(prod.ID, from.ID,
		ledger.NewBatch("BATCH-2026-00001", types.NewQuantityFromInt(5), types.MustMoney("2.00"), jan1, time.Time{}, src),
		ledger.NewBatch("BATCH-2026-00002", types.NewQuantityFromInt(5), types.MustMoney("3.00"), jan5, time.Time{}, src),
	)

	var n int
	gen := &numerator.MockGenerator{
		GetNextNumberFunc: func(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
			n++
			return fmt.Sprintf("%s-2026-%05d", cfg.Prefix, n), nil
		},
	}

	txManager := domaintest.TxManager{}
	locations := domaintest.NewLocationRepo(from, to)
	journalSvc := journal.NewService(e.journal)
	ledgerSvc := ledger.NewService(e.stock, e.products, locations, journalSvc, gen, txManager)

	e.service = transfer.NewService(e.repo, e.products, locations,
		ledgerSvc, journalSvc, gen, txManager, events.Nop{})
	return e
}

func (e *env) create(t *testing.T, quantity int64) *transfer.StockTransfer {
	t.Helper()
	tr, err := e.service.Create(context.Background(), e.productID, e.fromID, e.toID,
		types.NewQuantityFromInt(quantity))
	require.NoError(t, err)
	return tr
}

func TestCreate_PendingWithoutStockMovement(t *testing.T) {
	e := newEnv(t)

	tr := e.create(t, 8)
	assert.Equal(t, transfer.StatusPending, tr.Status)
	assert.Contains(t, tr.Number, "TRF-")

	// Creation reserves nothing.
	assert.Equal(t, types.NewQuantityFromInt(10), e.stock.Stored(e.productID, e.fromID).Quantity)
	assert.Nil(t, e.stock.Stored(e.productID, e.toID))
}

func TestCreate_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.service.Create(ctx, e.productID, e.fromID, e.fromID, types.NewQuantityFromInt(1))
	require.Error(t, err, "same source and destination")

	_, err = e.service.Create(ctx, e.productID, e.fromID, e.toID, 0)
	require.Error(t, err, "zero quantity")

	_, err = e.service.Create(ctx, id.New(), e.fromID, e.toID, types.NewQuantityFromInt(1))
	require.Error(t, err, "unknown product")

	_, err = e.service.Create(ctx, e.productID, id.New(), e.toID, types.NewQuantityFromInt(1))
	require.Error(t, err, "unknown location")
}

func TestComplete_CarriesCostLayers(t *testing.T) {
	e := newEnv(t)
	tr := e.create(t, 8)

	tr, err := e.service.Complete(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, transfer.StatusCompleted, tr.Status)

	src := e.stock.Stored(e.productID, e.fromID)
	assert.Equal(t, types.NewQuantityFromInt(2), src.Quantity)

	// Destination receives the drained layers with their original unit
	// costs and received dates: 5 @ 2.00 (Jan 1) and 3 @ 3.00 (Jan 5).
	dst := e.stock.Stored(e.productID, e.toID)
	require.NotNil(t, dst)
	assert.Equal(t, types.NewQuantityFromInt(8), dst.Quantity)
	require.Len(t, dst.Batches, 2)
	assert.True(t, dst.Batches[0].UnitCost.Equal(types.MustMoney("2.00")))
	assert.Equal(t, jan1, dst.Batches[0].ReceivedAt)
	assert.Equal(t, types.NewQuantityFromInt(3), dst.Batches[1].Quantity)
	assert.True(t, dst.Batches[1].UnitCost.Equal(types.MustMoney("3.00")))
	assert.Equal(t, jan5, dst.Batches[1].ReceivedAt)

	// Two mirrored journal entries at the blended cost (5*2 + 3*3)/8 = 2.375.
	entries := e.journal.ByType(journal.TxTypeTransfer)
	require.Len(t, entries, 2)
	assert.Equal(t, types.NewQuantityFromInt(8).Neg(), entries[0].QuantityDelta)
	assert.Equal(t, types.NewQuantityFromInt(8), entries[1].QuantityDelta)
	assert.True(t, entries[0].CostAtTime.Equal(types.MustMoney("2.375")))
	assert.True(t, entries[1].CostAtTime.Equal(types.MustMoney("2.375")))
}

func TestComplete_InsufficientSourceFailsWhole(t *testing.T) {
	e := newEnv(t)
	tr := e.create(t, 8)

	// The source shrinks below the transfer quantity before completion.
	rec := e.stock.Stored(e.productID, e.fromID)
	_, err := rec.ConsumeFIFO(types.NewQuantityFromInt(5))
	require.NoError(t, err)

	_, err = e.service.Complete(context.Background(), tr.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	// Destination untouched, transfer still pending.
	assert.Nil(t, e.stock.Stored(e.productID, e.toID))
	stored, err := e.service.Get(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, transfer.StatusPending, stored.Status)
}

func TestDispatchAndCancel(t *testing.T) {
	e := newEnv(t)
	tr := e.create(t, 3)

	tr, err := e.service.Dispatch(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, transfer.StatusInTransit, tr.Status)

	// Dispatching twice is an invalid transition.
	_, err = e.service.Dispatch(context.Background(), tr.ID)
	require.Error(t, err)

	tr, err = e.service.Cancel(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, transfer.StatusCancelled, tr.Status)

	// Terminal states reject completion.
	_, err = e.service.Complete(context.Background(), tr.ID)
	require.Error(t, err)
}

func TestComplete_FromInTransit(t *testing.T) {
	e := newEnv(t)
	tr := e.create(t, 2)

	_, err := e.service.Dispatch(context.Background(), tr.ID)
	require.NoError(t, err)

	tr, err = e.service.Complete(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, transfer.StatusCompleted, tr.Status)
}
