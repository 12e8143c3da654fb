package sales_test

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
	"storecore/internal/domain/sales"
)

type capturePublisher struct {
	published []events.Event
}

func (p *capturePublisher) Publish(ctx context.Context, evts ...events.Event) error {
	p.published = append(p.published, evts...)
	return nil
}

func countingGenerator() *numerator.MockGenerator {
	var n int
	return &numerator.MockGenerator{
		GetNextNumberFunc: func(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
			n++
			return fmt.Sprintf("%s-2026-%05d", cfg.Prefix, n), nil
		},
	}
}

type env struct {
	customers *domaintest.CustomerRepo
	products  *domaintest.ProductRepo
	locations *domaintest.LocationRepo
	stock     *domaintest.LedgerRepo
	journal   *domaintest.JournalRepo
	orders    *domaintest.SalesOrderRepo
	publisher *capturePublisher
	service   *sales.Service

	customerID id.ID
	locationID id.ID
	productID  id.ID
}

// newEnv seeds one customer (limit 100), one location and one product
// (price 10.00) with 10 units on hand at unit cost 5.00.
func newEnv(t *testing.T) *env {
	t.Helper()

	cust := customer.NewCustomer("Beanline Cafe", types.MustMoney("100.00"))
	loc := location.NewLocation("STORE-001", "Main Street Store")
	prod := product.NewProduct("SKU-COFFEE-250", "Ground Coffee 250g",
		types.MustMoney("10.00"), types.MustMoney("5.00"))

	e := &env{
		customers: domaintest.NewCustomerRepo(cust),
		products:  domaintest.NewProductRepo(prod),
		locations: domaintest.NewLocationRepo(loc),
		stock:     domaintest.NewLedgerRepo(),
		journal:   domaintest.NewJournalRepo(),
		orders:    domaintest.NewSalesOrderRepo(),
		publisher: &capturePublisher{},

		customerID: cust.ID,
		locationID: loc.ID,
		productID:  prod.ID,
	}

	e.stock.Seed(prod.ID, loc.ID, ledger.NewBatch(
		"BATCH-2026-00001", types.NewQuantityFromInt(10), types.MustMoney("5.00"),
		time.Now().UTC().AddDate(0, 0, -7), time.Time{}, journal.PurchaseOrderSource(id.New()),
	))

	txManager := domaintest.TxManager{}
	gen := countingGenerator()
	journalSvc := journal.NewService(e.journal)
	ledgerSvc := ledger.NewService(e.stock, e.products, e.locations, journalSvc, gen, txManager)
	creditSvc := credit.NewService(e.customers, policy.MustEngine(policy.DefaultRules()))

	e.service = sales.NewService(e.orders, e.products, e.customers, ledgerSvc, journalSvc, creditSvc,
		gen, txManager, e.publisher)
	return e
}

func (e *env) checkout(t *testing.T, in sales.CheckoutInput) *sales.SalesOrder {
	t.Helper()
	order, err := e.service.Checkout(context.Background(), in)
	require.NoError(t, err)
	return order
}

func TestCheckout_Cash(t *testing.T) {
	e := newEnv(t)

	order := e.checkout(t, sales.CheckoutInput{
		CustomerID:  e.customerID,
		LocationID:  e.locationID,
		Items:       []sales.CheckoutItem{{ProductID: e.productID, Quantity: types.NewQuantityFromInt(3)}},
		PaymentType: sales.PaymentCash,
	})

	assert.Equal(t, "SO-2026-00001", order.Number)
	assert.Equal(t, sales.StatusFulfilled, order.Status)
	assert.Equal(t, sales.PaymentStatusPaid, order.PaymentStatus)
	assert.True(t, order.GrandTotal().Equal(types.MustMoney("30.00")))
	assert.True(t, order.AmountPaidCash.Equal(types.MustMoney("30.00")))
	assert.True(t, order.AmountToCredit.IsZero())

	// Price is frozen from the catalog, not taken from the caller.
	require.Len(t, order.Lines, 1)
	assert.True(t, order.Lines[0].UnitPrice.Equal(types.MustMoney("10.00")))

	rec := e.stock.Stored(e.productID, e.locationID)
	assert.Equal(t, types.NewQuantityFromInt(7), rec.Quantity)

	outs := e.journal.ByType(journal.TxTypeOut)
	require.Len(t, outs, 1)
	assert.Equal(t, types.NewQuantityFromInt(3).Neg(), outs[0].QuantityDelta)
	assert.True(t, outs[0].CostAtTime.Equal(types.MustMoney("5.00")))
	assert.Equal(t, types.NewQuantityFromInt(7), outs[0].BalanceAfter)

	require.Len(t, e.publisher.published, 1)
	assert.Equal(t, events.TypeSaleCompleted, e.publisher.published[0].Type)
}

func TestCheckout_CreditBooksBalance(t *testing.T) {
	e := newEnv(t)
	due := time.Now().UTC().AddDate(0, 0, 14)

	order := e.checkout(t, sales.CheckoutInput{
		CustomerID:  e.customerID,
		LocationID:  e.locationID,
		Items:       []sales.CheckoutItem{{ProductID: e.productID, Quantity: types.NewQuantityFromInt(4)}},
		PaymentType: sales.PaymentCredit,
		DueDate:     &due,
		GraceDays:   5,
	})

	assert.Equal(t, sales.PaymentStatusOutstanding, order.PaymentStatus)
	assert.True(t, order.CreditTotal.Equal(types.MustMoney("40.00")))
	assert.True(t, order.CreditOutstanding.Equal(types.MustMoney("40.00")))
	require.NotNil(t, order.AllowedUntil)
	assert.Equal(t, due.AddDate(0, 0, 5), *order.AllowedUntil)

	assert.True(t, e.customers.Balance(e.customerID).Equal(types.MustMoney("40.00")))
}

func TestCheckout_CreditLimitGate(t *testing.T) {
	e := newEnv(t)
	e.customers.Customers[e.customerID].CurrentBalance = types.MustMoney("80.00")

	// 4 * 10.00 = 40.00 on credit against 20.00 of headroom.
	_, err := e.service.Checkout(context.Background(), sales.CheckoutInput{
		CustomerID:  e.customerID,
		LocationID:  e.locationID,
		Items:       []sales.CheckoutItem{{ProductID: e.productID, Quantity: types.NewQuantityFromInt(4)}},
		PaymentType: sales.PaymentCredit,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCreditLimitExceeded(err))

	// Nothing moved: no order, no stock change, no balance change.
	assert.Empty(t, e.orders.Orders)
	assert.Equal(t, types.NewQuantityFromInt(10), e.stock.Stored(e.productID, e.locationID).Quantity)
	assert.True(t, e.customers.Balance(e.customerID).Equal(types.MustMoney("80.00")))
	assert.Empty(t, e.journal.Entries)
}

func TestCheckout_ZeroLimitCustomerIneligible(t *testing.T) {
	e := newEnv(t)
	walkIn := customer.NewCustomer("Walk-in Customer", types.ZeroMoney())
	require.NoError(t, e.customers.Create(context.Background(), walkIn))

	_, err := e.service.Checkout(context.Background(), sales.CheckoutInput{
		CustomerID:  walkIn.ID,
		LocationID:  e.locationID,
		Items:       []sales.CheckoutItem{{ProductID: e.productID, Quantity: types.NewQuantityFromInt(1)}},
		PaymentType: sales.PaymentCredit,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCreditLimitExceeded(err))
}

func TestCheckout_UnknownCustomer(t *testing.T) {
	e := newEnv(t)

	// Cash sales must resolve the customer too; the order row references it.
	_, err := e.service.Checkout(context.Background(), sales.CheckoutInput{
		CustomerID:  id.New(),
		LocationID:  e.locationID,
		Items:       []sales.CheckoutItem{{ProductID: e.productID, Quantity: types.NewQuantityFromInt(3)}},
		PaymentType: sales.PaymentCash,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))

	assert.Empty(t, e.orders.Orders)
	assert.Equal(t, types.NewQuantityFromInt(10), e.stock.Stored(e.productID, e.locationID).Quantity)
	assert.Empty(t, e.journal.Entries)
}

func TestCheckout_InsufficientStock(t *testing.T) {
	e := newEnv(t)

	_, err := e.service.Checkout(context.Background(), sales.CheckoutInput{
		CustomerID:  e.customerID,
		LocationID:  e.locationID,
		Items:       []sales.CheckoutItem{{ProductID: e.productID, Quantity: types.NewQuantityFromInt(11)}},
		PaymentType: sales.PaymentCash,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Empty(t, e.orders.Orders)
}

func TestCheckout_SplitAmountsMustSumToTotal(t *testing.T) {
	e := newEnv(t)

	_, err := e.service.Checkout(context.Background(), sales.CheckoutInput{
		CustomerID:     e.customerID,
		LocationID:     e.locationID,
		Items:          []sales.CheckoutItem{{ProductID: e.productID, Quantity: types.NewQuantityFromInt(3)}},
		PaymentType:    sales.PaymentSplit,
		AmountPaidCash: types.MustMoney("10.00"),
		AmountToCredit: types.MustMoney("15.00"),
	})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestCheckout_SplitRejectsNegativeAmounts(t *testing.T) {
	e := newEnv(t)

	// -10.00 cash with 40.00 credit sums to the 30.00 total but would
	// book more credit than the order is worth.
	_, err := e.service.Checkout(context.Background(), sales.CheckoutInput{
		CustomerID:     e.customerID,
		LocationID:     e.locationID,
		Items:          []sales.CheckoutItem{{ProductID: e.productID, Quantity: types.NewQuantityFromInt(3)}},
		PaymentType:    sales.PaymentSplit,
		AmountPaidCash: types.MustMoney("-10.00"),
		AmountToCredit: types.MustMoney("40.00"),
	})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	assert.Empty(t, e.orders.Orders)
	assert.True(t, e.customers.Balance(e.customerID).IsZero())
	assert.Empty(t, e.journal.Entries)
}

func TestCheckout_Split(t *testing.T) {
	e := newEnv(t)

	order := e.checkout(t, sales.CheckoutInput{
		CustomerID:     e.customerID,
		LocationID:     e.locationID,
		Items:          []sales.CheckoutItem{{ProductID: e.productID, Quantity: types.NewQuantityFromInt(3)}},
		PaymentType:    sales.PaymentSplit,
		AmountPaidCash: types.MustMoney("10.00"),
		AmountToCredit: types.MustMoney("20.00"),
	})

	assert.True(t, order.CreditOutstanding.Equal(types.MustMoney("20.00")))
	assert.True(t, e.customers.Balance(e.customerID).Equal(types.MustMoney("20.00")))
}

func TestCheckout_RejectsEmptyAndInvalid(t *testing.T) {
	e := newEnv(t)

	_, err := e.service.Checkout(context.Background(), sales.CheckoutInput{
		CustomerID:  e.customerID,
		LocationID:  e.locationID,
		PaymentType: sales.PaymentCash,
	})
	require.Error(t, err)

	_, err = e.service.Checkout(context.Background(), sales.CheckoutInput{
		CustomerID:  e.customerID,
		LocationID:  e.locationID,
		Items:       []sales.CheckoutItem{{ProductID: e.productID, Quantity: types.NewQuantityFromInt(1)}},
		PaymentType: sales.PaymentType("barter"),
	})
	require.Error(t, err)

	_, err = e.service.Checkout(context.Background(), sales.CheckoutInput{
		CustomerID:  e.customerID,
		LocationID:  e.locationID,
		Items:       []sales.CheckoutItem{{ProductID: e.productID, Quantity: 0}},
		PaymentType: sales.PaymentCash,
	})
	require.Error(t, err)
}

func TestRecordCreditPayment(t *testing.T) {
	e := newEnv(t)
	order := e.checkout(t, sales.CheckoutInput{
		CustomerID:  e.customerID,
		LocationID:  e.locationID,
		Items:       []sales.CheckoutItem{{ProductID: e.productID, Quantity: types.NewQuantityFromInt(4)}},
		PaymentType: sales.PaymentCredit,
	})

	updated, err := e.service.RecordCreditPayment(context.Background(), order.ID, types.MustMoney("15.00"))
	require.NoError(t, err)
	assert.Equal(t, sales.PaymentStatusPartiallyPaid, updated.PaymentStatus)
	assert.True(t, updated.CreditOutstanding.Equal(types.MustMoney("25.00")))
	assert.True(t, e.customers.Balance(e.customerID).Equal(types.MustMoney("25.00")))

	updated, err = e.service.RecordCreditPayment(context.Background(), order.ID, types.MustMoney("25.00"))
	require.NoError(t, err)
	assert.Equal(t, sales.PaymentStatusPaid, updated.PaymentStatus)
	assert.True(t, updated.CreditOutstanding.IsZero())
	assert.True(t, e.customers.Balance(e.customerID).IsZero())
}

func TestRecordCreditPayment_RejectsOverpayment(t *testing.T) {
	e := newEnv(t)
	order := e.checkout(t, sales.CheckoutInput{
		CustomerID:  e.customerID,
		LocationID:  e.locationID,
		Items:       []sales.CheckoutItem{{ProductID: e.productID, Quantity: types.NewQuantityFromInt(2)}},
		PaymentType: sales.PaymentCredit,
	})

	_, err := e.service.RecordCreditPayment(context.Background(), order.ID, types.MustMoney("21.00"))
	require.Error(t, err)

	stored, getErr := e.service.GetOrder(context.Background(), order.ID)
	require.NoError(t, getErr)
	assert.True(t, stored.CreditOutstanding.Equal(types.MustMoney("20.00")))
}

func TestRecordCreditPayment_NoOutstanding(t *testing.T) {
	e := newEnv(t)
	order := e.checkout(t, sales.CheckoutInput{
		CustomerID:  e.customerID,
		LocationID:  e.locationID,
		Items:       []sales.CheckoutItem{{ProductID: e.productID, Quantity: types.NewQuantityFromInt(1)}},
		PaymentType: sales.PaymentCash,
	})

	_, err := e.service.RecordCreditPayment(context.Background(), order.ID, types.MustMoney("5.00"))
	require.Error(t, err)
}
