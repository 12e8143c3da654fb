package procurement_test

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
	"storecore/internal/domain/procurement"
)

type env struct {
	products  *domaintest.ProductRepo
	locations *domaintest.LocationRepo
	stock     *domaintest.LedgerRepo
	journal   *domaintest.JournalRepo
	orders    *domaintest.PurchaseOrderRepo
	service   *procurement.Service
	ledgerSvc *ledger.Service

	supplierID id.ID
	locationID id.ID
	productID  id.ID
}

// newEnv seeds one location and one product with a running cost of 5.00
// and no stock on hand.
func newEnv(t *testing.T) *env {
	t.Helper()

	loc := location.NewLocation("WH-001", "Central Warehouse")
	prod := product.NewProduct("SKU-KETTLE-EL", "Electric Kettle 1.7L",
		types.MustMoney("45.00"), types.MustMoney("5.00"))

	e := &env{
		products:   domaintest.NewProductRepo(prod),
		locations:  domaintest.NewLocationRepo(loc),
		stock:      domaintest.NewLedgerRepo(),
		journal:    domaintest.NewJournalRepo(),
		orders:     domaintest.NewPurchaseOrderRepo(),
		supplierID: id.New(),
		locationID: loc.ID,
		productID:  prod.ID,
	}

	var n int
	gen := &numerator.MockGenerator{
		GetNextNumberFunc: func(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
			n++
			return fmt.Sprintf("%s-2026-%05d", cfg.Prefix, n), nil
		},
	}

	txManager := domaintest.TxManager{}
	journalSvc := journal.NewService(e.journal)
	e.ledgerSvc = ledger.NewService(e.stock, e.products, e.locations, journalSvc, gen, txManager)

	e.service = procurement.NewService(e.orders, e.products, e.locations,
		e.ledgerSvc, journalSvc, gen, txManager, events.Nop{})
	return e
}

func (e *env) createSentOrder(t *testing.T, lines ...procurement.OrderLineInput) *procurement.PurchaseOrder {
	t.Helper()
	po, err := e.service.CreateOrder(context.Background(), e.supplierID, lines, "")
	require.NoError(t, err)
	po, err = e.service.Send(context.Background(), po.ID)
	require.NoError(t, err)
	return po
}

func TestCreateOrder_FreezesLineCosts(t *testing.T) {
	e := newEnv(t)

	po, err := e.service.CreateOrder(context.Background(), e.supplierID, []procurement.OrderLineInput{
		{ProductID: e.productID, Quantity: types.NewQuantityFromInt(50), UnitCost: types.MustMoney("28.00")},
	}, "restock order")
	require.NoError(t, err)

	assert.Equal(t, procurement.StatusDraft, po.Status)
	require.Len(t, po.Lines, 1)
	assert.True(t, po.Lines[0].TotalCost.Equal(types.MustMoney("1400.00")))
	assert.NotEmpty(t, po.Number)
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	e := newEnv(t)

	_, err := e.service.CreateOrder(context.Background(), e.supplierID, []procurement.OrderLineInput{
		{ProductID: id.New(), Quantity: types.NewQuantityFromInt(1), UnitCost: types.MustMoney("1.00")},
	}, "")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestReceive_WeightedAverageCost(t *testing.T) {
	e := newEnv(t)

	// 10 on hand at 5.00; receive 10 at 7.00 -> (10*5 + 10*7) / 20 = 6.00.
	e.stock.Seed(e.productID, e.locationID, ledger.NewBatch(
		"BATCH-2026-00001", types.NewQuantityFromInt(10), types.MustMoney("5.00"),
		time.Now().UTC().AddDate(0, 0, -30), time.Time{}, journal.PurchaseOrderSource(id.New()),
	))

	po := e.createSentOrder(t, procurement.OrderLineInput{
		ProductID: e.productID, Quantity: types.NewQuantityFromInt(10), UnitCost: types.MustMoney("7.00"),
	})

	po, err := e.service.Receive(context.Background(), procurement.ReceiveInput{
		POID:       po.ID,
		LocationID: e.locationID,
		Items:      []procurement.ReceiveItemInput{{LineID: po.Lines[0].ID, Quantity: types.NewQuantityFromInt(10)}},
	})
	require.NoError(t, err)
	assert.Equal(t, procurement.StatusReceived, po.Status)

	prod := e.products.Products[e.productID]
	assert.True(t, prod.UnitCost.Equal(types.MustMoney("6.00")),
		"running cost should be 6.00, got %s", prod.UnitCost)

	history, err := e.products.CostHistory(context.Background(), e.productID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].UnitCost.Equal(types.MustMoney("6.00")))
	assert.Contains(t, history[0].Source, "GRN-")

	// The new stock arrives as its own cost layer at the received cost.
	rec := e.stock.Stored(e.productID, e.locationID)
	assert.Equal(t, types.NewQuantityFromInt(20), rec.Quantity)
	require.Len(t, rec.Batches, 2)
	assert.True(t, rec.Batches[1].UnitCost.Equal(types.MustMoney("7.00")))

	ins := e.journal.ByType(journal.TxTypeIn)
	require.Len(t, ins, 1)
	assert.True(t, ins[0].CostAtTime.Equal(types.MustMoney("7.00")))
	assert.Equal(t, types.NewQuantityFromInt(20), ins[0].BalanceAfter)
}

func TestReceive_PartialThenComplete(t *testing.T) {
	e := newEnv(t)
	po := e.createSentOrder(t, procurement.OrderLineInput{
		ProductID: e.productID, Quantity: types.NewQuantityFromInt(50), UnitCost: types.MustMoney("28.00"),
	})
	lineID := po.Lines[0].ID

	po, err := e.service.Receive(context.Background(), procurement.ReceiveInput{
		POID:       po.ID,
		LocationID: e.locationID,
		Items:      []procurement.ReceiveItemInput{{LineID: lineID, Quantity: types.NewQuantityFromInt(20)}},
	})
	require.NoError(t, err)
	assert.Equal(t, procurement.StatusPartiallyReceived, po.Status)
	assert.Equal(t, types.NewQuantityFromInt(20), po.TotalReceived())

	po, err = e.service.Receive(context.Background(), procurement.ReceiveInput{
		POID:       po.ID,
		LocationID: e.locationID,
		Items:      []procurement.ReceiveItemInput{{LineID: lineID, Quantity: types.NewQuantityFromInt(30)}},
	})
	require.NoError(t, err)
	assert.Equal(t, procurement.StatusReceived, po.Status)
	assert.Equal(t, types.NewQuantityFromInt(50), po.TotalReceived())

	// The order is complete; further receipts are rejected.
	_, err = e.service.Receive(context.Background(), procurement.ReceiveInput{
		POID:       po.ID,
		LocationID: e.locationID,
		Items:      []procurement.ReceiveItemInput{{LineID: lineID, Quantity: types.NewQuantityFromInt(1)}},
	})
	require.Error(t, err)
}

func TestReceive_OverReceiptRejected(t *testing.T) {
	e := newEnv(t)
	po := e.createSentOrder(t, procurement.OrderLineInput{
		ProductID: e.productID, Quantity: types.NewQuantityFromInt(50), UnitCost: types.MustMoney("28.00"),
	})
	lineID := po.Lines[0].ID

	_, err := e.service.Receive(context.Background(), procurement.ReceiveInput{
		POID:       po.ID,
		LocationID: e.locationID,
		Items:      []procurement.ReceiveItemInput{{LineID: lineID, Quantity: types.NewQuantityFromInt(51)}},
	})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvariantViolation, appErr.Code)

	// Nothing was booked.
	assert.Nil(t, e.stock.Stored(e.productID, e.locationID))
	assert.Empty(t, e.journal.Entries)
}

func TestReceive_OverReceiptAcrossItemsOfSameCall(t *testing.T) {
	e := newEnv(t)
	po := e.createSentOrder(t, procurement.OrderLineInput{
		ProductID: e.productID, Quantity: types.NewQuantityFromInt(50), UnitCost: types.MustMoney("28.00"),
	})
	lineID := po.Lines[0].ID

	// 30 + 25 on the same line overshoots within one receipt.
	_, err := e.service.Receive(context.Background(), procurement.ReceiveInput{
		POID:       po.ID,
		LocationID: e.locationID,
		Items: []procurement.ReceiveItemInput{
			{LineID: lineID, Quantity: types.NewQuantityFromInt(30)},
			{LineID: lineID, Quantity: types.NewQuantityFromInt(25)},
		},
	})
	require.Error(t, err)
	assert.Empty(t, e.journal.Entries)
}

func TestReceive_SameProductTwoLinesBlendsRunningCost(t *testing.T) {
	e := newEnv(t)
	po := e.createSentOrder(t,
		procurement.OrderLineInput{ProductID: e.productID, Quantity: types.NewQuantityFromInt(10), UnitCost: types.MustMoney("4.00")},
		procurement.OrderLineInput{ProductID: e.productID, Quantity: types.NewQuantityFromInt(10), UnitCost: types.MustMoney("8.00")},
	)

	_, err := e.service.Receive(context.Background(), procurement.ReceiveInput{
		POID:       po.ID,
		LocationID: e.locationID,
		Items: []procurement.ReceiveItemInput{
			{LineID: po.Lines[0].ID, Quantity: types.NewQuantityFromInt(10)},
			{LineID: po.Lines[1].ID, Quantity: types.NewQuantityFromInt(10)},
		},
	})
	require.NoError(t, err)

	// No stock before the receipt: (10*4 + 10*8) / 20 = 6.00 and the second
	// line must blend against the first line's result, not the stale 5.00.
	prod := e.products.Products[e.productID]
	assert.True(t, prod.UnitCost.Equal(types.MustMoney("6.00")),
		"running cost should be 6.00, got %s", prod.UnitCost)
}

func TestReceive_RequiresReceivableStatus(t *testing.T) {
	e := newEnv(t)
	po, err := e.service.CreateOrder(context.Background(), e.supplierID, []procurement.OrderLineInput{
		{ProductID: e.productID, Quantity: types.NewQuantityFromInt(10), UnitCost: types.MustMoney("1.00")},
	}, "")
	require.NoError(t, err)

	// Draft orders do not accept receipts.
	_, err = e.service.Receive(context.Background(), procurement.ReceiveInput{
		POID:       po.ID,
		LocationID: e.locationID,
		Items:      []procurement.ReceiveItemInput{{LineID: po.Lines[0].ID, Quantity: types.NewQuantityFromInt(1)}},
	})
	require.Error(t, err)
}

func TestCancel_OnlyDraft(t *testing.T) {
	e := newEnv(t)
	po, err := e.service.CreateOrder(context.Background(), e.supplierID, []procurement.OrderLineInput{
		{ProductID: e.productID, Quantity: types.NewQuantityFromInt(10), UnitCost: types.MustMoney("1.00")},
	}, "")
	require.NoError(t, err)

	po, err = e.service.Cancel(context.Background(), po.ID)
	require.NoError(t, err)
	assert.Equal(t, procurement.StatusCancelled, po.Status)

	sent := e.createSentOrder(t, procurement.OrderLineInput{
		ProductID: e.productID, Quantity: types.NewQuantityFromInt(10), UnitCost: types.MustMoney("1.00"),
	})
	_, err = e.service.Cancel(context.Background(), sent.ID)
	require.Error(t, err)
}
