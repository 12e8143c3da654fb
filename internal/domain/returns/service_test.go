package returns_test

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
	"storecore/internal/core/policy"
	"storecore/internal/core/types"
	"storecore/internal/domain/catalog/customer"
	"storecore/internal/domain/catalog/location"
	"storecore/internal/domain/catalog/product"
	"storecore/internal/domain/credit"
	"storecore/internal/domain/domaintest"
	"storecore/internal/domain/events"
	"storecore/internal/domain/journal"
	"storecore/internal/domain/ledger"
	"storecore/internal/domain/returns"
	"storecore/internal/domain/sales"
)

type env struct {
	customers *domaintest.CustomerRepo
	products  *domaintest.ProductRepo
	locations *domaintest.LocationRepo
	stock     *domaintest.LedgerRepo
	journal   *domaintest.JournalRepo
	orders    *domaintest.SalesOrderRepo
	repo      *domaintest.ReturnRepo
	service   *returns.Service
	sales     *sales.Service

	customerID id.ID
	locationID id.ID
	productID  id.ID
}

// newEnv wires a sales engine plus the returns engine against the same
// stores: one customer (limit 200), one location, one product priced 10.00
// with 20 units on hand at cost 5.00.
func newEnv(t *testing.T) *env {
	t.Helper()

	cust := customer.NewCustomer("Hotel Aurora", types.MustMoney("200.00"))
	loc := location.NewLocation("STORE-001", "Main Street Store")
	prod := product.NewProduct("SKU-MUG-CLS", "Classic Ceramic Mug",
		types.MustMoney("10.00"), types.MustMoney("5.00"))

	e := &env{
		customers:  domaintest.NewCustomerRepo(cust),
		products:   domaintest.NewProductRepo(prod),
		locations:  domaintest.NewLocationRepo(loc),
		stock:      domaintest.NewLedgerRepo(),
		journal:    domaintest.NewJournalRepo(),
		orders:     domaintest.NewSalesOrderRepo(),
		repo:       domaintest.NewReturnRepo(),
		customerID: cust.ID,
		locationID: loc.ID,
		productID:  prod.ID,
	}

	e.stock.Seed(prod.ID, loc.ID, ledger.NewBatch(
		"BATCH-2026-00001", types.NewQuantityFromInt(20), types.MustMoney("5.00"),
		time.Now().UTC().AddDate(0, 0, -3), time.Time{}, journal.PurchaseOrderSource(id.New()),
	))

	var n int
	gen := &numerator.MockGenerator{
		GetNextNumberFunc: func(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
			n++
			return fmt.Sprintf("%s-2026-%05d", cfg.Prefix, n), nil
		},
	}

	txManager := domaintest.TxManager{}
	engine := policy.MustEngine(policy.DefaultRules())
	journalSvc := journal.NewService(e.journal)
	ledgerSvc := ledger.NewService(e.stock, e.products, e.locations, journalSvc, gen, txManager)
	creditSvc := credit.NewService(e.customers, engine)

	e.sales = sales.NewService(e.orders, e.products, e.customers, ledgerSvc, journalSvc, creditSvc,
		gen, txManager, events.Nop{})
	e.service = returns.NewService(e.repo, e.orders, e.products, e.locations,
		ledgerSvc, journalSvc, creditSvc, gen, txManager, events.Nop{}, engine, 30)
	return e
}

func (e *env) sell(t *testing.T, quantity int64, payment sales.PaymentType) *sales.SalesOrder {
	t.Helper()
	order, err := e.sales.Checkout(context.Background(), sales.CheckoutInput{
		CustomerID:  e.customerID,
		LocationID:  e.locationID,
		Items:       []sales.CheckoutItem{{ProductID: e.productID, Quantity: types.NewQuantityFromInt(quantity)}},
		PaymentType: payment,
	})
	require.NoError(t, err)
	return order
}

func TestCreate_RefundsAtFrozenPrice(t *testing.T) {
	e := newEnv(t)
	order := e.sell(t, 5, sales.PaymentCash)

	// Catalog price changes after the sale; the refund must not follow it.
	e.products.Products[e.productID].SellingPrice = types.MustMoney("14.00")

	ret, err := e.service.Create(context.Background(), returns.CreateInput{
		SalesOrderID: order.ID,
		Items: []returns.ReturnItemInput{
			{ProductID: e.productID, Quantity: types.NewQuantityFromInt(3), Reason: "unwanted"},
		},
	})
	require.NoError(t, err)

	assert.True(t, ret.RefundAmount.Equal(types.MustMoney("30.00")),
		"3 * frozen 10.00 = 30.00, got %s", ret.RefundAmount)
	assert.Contains(t, ret.Number, "RET-")
	assert.Nil(t, ret.RestockLocationID)

	stored, err := e.sales.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, sales.StatusPartiallyReturned, stored.Status)
	assert.Contains(t, stored.ReturnIDs, ret.ID)
	assert.Equal(t, sales.PaymentStatusRefunded, stored.PaymentStatus)
}

func TestCreate_EligibleQuantityCapsAcrossReturns(t *testing.T) {
	e := newEnv(t)
	order := e.sell(t, 5, sales.PaymentCash)

	_, err := e.service.Create(context.Background(), returns.CreateInput{
		SalesOrderID: order.ID,
		Items:        []returns.ReturnItemInput{{ProductID: e.productID, Quantity: types.NewQuantityFromInt(2)}},
	})
	require.NoError(t, err)

	// 2 of 5 already returned: 4 more exceeds the remaining 3.
	_, err = e.service.Create(context.Background(), returns.CreateInput{
		SalesOrderID: order.ID,
		Items:        []returns.ReturnItemInput{{ProductID: e.productID, Quantity: types.NewQuantityFromInt(4)}},
	})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.Equal(t, "3.0000", appErr.Details["eligible"])

	// Exactly the remainder passes.
	_, err = e.service.Create(context.Background(), returns.CreateInput{
		SalesOrderID: order.ID,
		Items:        []returns.ReturnItemInput{{ProductID: e.productID, Quantity: types.NewQuantityFromInt(3)}},
	})
	require.NoError(t, err)
}

func TestCreate_RestockDepositsAtRunningCost(t *testing.T) {
	e := newEnv(t)
	order := e.sell(t, 4, sales.PaymentCash)

	// Running cost moved since the sale; restocking uses the current cost.
	e.products.Products[e.productID].UnitCost = types.MustMoney("6.50")

	ret, err := e.service.Create(context.Background(), returns.CreateInput{
		SalesOrderID:      order.ID,
		Items:             []returns.ReturnItemInput{{ProductID: e.productID, Quantity: types.NewQuantityFromInt(4)}},
		RestockLocationID: &e.locationID,
	})
	require.NoError(t, err)
	require.NotNil(t, ret.RestockLocationID)

	rec := e.stock.Stored(e.productID, e.locationID)
	assert.Equal(t, types.NewQuantityFromInt(20), rec.Quantity)

	entries := e.journal.ByType(journal.TxTypeReturn)
	require.Len(t, entries, 1)
	assert.Equal(t, types.NewQuantityFromInt(4), entries[0].QuantityDelta)
	assert.True(t, entries[0].CostAtTime.Equal(types.MustMoney("6.50")))
}

func TestCreate_ReleasesOutstandingCredit(t *testing.T) {
	e := newEnv(t)
	order := e.sell(t, 5, sales.PaymentCredit)
	require.True(t, e.customers.Balance(e.customerID).Equal(types.MustMoney("50.00")))

	ret, err := e.service.Create(context.Background(), returns.CreateInput{
		SalesOrderID: order.ID,
		Items:        []returns.ReturnItemInput{{ProductID: e.productID, Quantity: types.NewQuantityFromInt(2)}},
	})
	require.NoError(t, err)

	assert.True(t, ret.CreditReleased.Equal(types.MustMoney("20.00")))
	assert.True(t, e.customers.Balance(e.customerID).Equal(types.MustMoney("30.00")))

	stored, err := e.sales.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, stored.CreditOutstanding.Equal(types.MustMoney("30.00")))
	assert.Equal(t, sales.PaymentStatusPartiallyPaid, stored.PaymentStatus)
}

func TestCreate_ProductNotOnOrder(t *testing.T) {
	e := newEnv(t)
	order := e.sell(t, 2, sales.PaymentCash)

	other := product.NewProduct("SKU-TEA-100", "Green Tea 100 bags",
		types.MustMoney("6.00"), types.MustMoney("2.80"))
	require.NoError(t, e.products.Create(context.Background(), other))

	_, err := e.service.Create(context.Background(), returns.CreateInput{
		SalesOrderID: order.ID,
		Items:        []returns.ReturnItemInput{{ProductID: other.ID, Quantity: types.NewQuantityFromInt(1)}},
	})
	require.Error(t, err)
}

func TestCreate_WindowExpired(t *testing.T) {
	e := newEnv(t)
	order := e.sell(t, 2, sales.PaymentCash)

	// Age the sale past the 30-day window.
	stored := e.orders.Orders[order.ID]
	stored.Date = time.Now().UTC().AddDate(0, 0, -45)

	_, err := e.service.Create(context.Background(), returns.CreateInput{
		SalesOrderID: order.ID,
		Items:        []returns.ReturnItemInput{{ProductID: e.productID, Quantity: types.NewQuantityFromInt(1)}},
	})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestCreate_ProductDisallowsReturns(t *testing.T) {
	e := newEnv(t)
	order := e.sell(t, 2, sales.PaymentCash)

	e.products.Products[e.productID].AllowReturns = false

	_, err := e.service.Create(context.Background(), returns.CreateInput{
		SalesOrderID: order.ID,
		Items:        []returns.ReturnItemInput{{ProductID: e.productID, Quantity: types.NewQuantityFromInt(1)}},
	})
	require.Error(t, err)
}

func TestCreate_UnknownRestockLocation(t *testing.T) {
	e := newEnv(t)
	order := e.sell(t, 2, sales.PaymentCash)

	unknown := id.New()
	_, err := e.service.Create(context.Background(), returns.CreateInput{
		SalesOrderID:      order.ID,
		Items:             []returns.ReturnItemInput{{ProductID: e.productID, Quantity: types.NewQuantityFromInt(1)}},
		RestockLocationID: &unknown,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestListByOrder(t *testing.T) {
	e := newEnv(t)
	order := e.sell(t, 5, sales.PaymentCash)

	for i := 0; i < 2; i++ {
		_, err := e.service.Create(context.Background(), returns.CreateInput{
			SalesOrderID: order.ID,
			Items:        []returns.ReturnItemInput{{ProductID: e.productID, Quantity: types.NewQuantityFromInt(1)}},
		})
		require.NoError(t, err)
	}

	list, err := e.service.ListByOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
