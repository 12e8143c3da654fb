package ledger_test

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
	"storecore/internal/domain/journal"
	"storecore/internal/domain/ledger"
)

type env struct {
	stock   *domaintest.LedgerRepo
	journal *domaintest.JournalRepo
	service *ledger.Service

	productID  id.ID
	locationID id.ID
}

// newEnv seeds one location and one product with running cost 4.00 and
// 10 units on hand at batch cost 3.00.
func newEnv(t *testing.T) *env {
	t.Helper()

	loc := location.NewLocation("STORE-001", "Main Street Store")
	prod := product.NewProduct("SKU-COFFEE-250", "Ground Coffee 250g",
		types.MustMoney("8.50"), types.MustMoney("4.00"))

	e := &env{
		stock:      domaintest.NewLedgerRepo(),
		journal:    domaintest.NewJournalRepo(),
		productID:  prod.ID,
		locationID: loc.ID,
	}

	e.stock.Seed(prod.ID, loc.ID, ledger.NewBatch(
		"BATCH-2026-00001", types.NewQuantityFromInt(10), types.MustMoney("3.00"),
		time.Now().UTC().AddDate(0, 0, -10), time.Time{}, journal.PurchaseOrderSource(id.New()),
	))

	var n int
	gen := &numerator.MockGenerator{
		GetNextNumberFunc: func(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
			n++
			return fmt.Sprintf("%s-2026-%05d", cfg.Prefix, n), nil
		},
	}

	e.service = ledger.NewService(e.stock, domaintest.NewProductRepo(prod),
		domaintest.NewLocationRepo(loc), journal.NewService(e.journal), gen, domaintest.TxManager{})
	return e
}

func TestAdjust_IncreaseAddsLayerAtRunningCost(t *testing.T) {
	e := newEnv(t)

	rec, err := e.service.Adjust(context.Background(), ledger.AdjustInput{
		ProductID:   e.productID,
		LocationID:  e.locationID,
		NewQuantity: types.NewQuantityFromInt(14),
		Reason:      "cycle count",
	})
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromInt(14), rec.Quantity)

	// The surplus arrives as its own layer at the product's running cost,
	// not the old batch cost.
	require.Len(t, rec.Batches, 2)
	assert.True(t, rec.Batches[1].UnitCost.Equal(types.MustMoney("4.00")))
	assert.Equal(t, types.NewQuantityFromInt(4), rec.Batches[1].Quantity)

	entries := e.journal.ByType(journal.TxTypeAdjust)
	require.Len(t, entries, 1)
	assert.Equal(t, types.NewQuantityFromInt(4), entries[0].QuantityDelta)
	assert.True(t, entries[0].CostAtTime.Equal(types.MustMoney("4.00")))
	assert.Equal(t, types.NewQuantityFromInt(14), entries[0].BalanceAfter)
}

func TestAdjust_DecreaseConsumesFIFO(t *testing.T) {
	e := newEnv(t)

	rec, err := e.service.Adjust(context.Background(), ledger.AdjustInput{
		ProductID:   e.productID,
		LocationID:  e.locationID,
		NewQuantity: types.NewQuantityFromInt(6),
		Reason:      "shrinkage",
	})
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromInt(6), rec.Quantity)

	entries := e.journal.ByType(journal.TxTypeAdjust)
	require.Len(t, entries, 1)
	assert.Equal(t, types.NewQuantityFromInt(4).Neg(), entries[0].QuantityDelta)
	// Shortage is costed at the consumed layers' cost.
	assert.True(t, entries[0].CostAtTime.Equal(types.MustMoney("3.00")))
}

func TestAdjust_NoOpRejected(t *testing.T) {
	e := newEnv(t)

	_, err := e.service.Adjust(context.Background(), ledger.AdjustInput{
		ProductID:   e.productID,
		LocationID:  e.locationID,
		NewQuantity: types.NewQuantityFromInt(10),
		Reason:      "no-op",
	})
	require.Error(t, err, "new quantity equal to current is rejected")
}

func TestAdjust_RejectsNegativeTarget(t *testing.T) {
	e := newEnv(t)

	_, err := e.service.Adjust(context.Background(), ledger.AdjustInput{
		ProductID:   e.productID,
		LocationID:  e.locationID,
		NewQuantity: types.NewQuantityFromInt(-1),
		Reason:      "bad",
	})
	require.Error(t, err)
}

func TestAdjust_UnknownLocation(t *testing.T) {
	e := newEnv(t)

	_, err := e.service.Adjust(context.Background(), ledger.AdjustInput{
		ProductID:   e.productID,
		LocationID:  id.New(),
		NewQuantity: types.NewQuantityFromInt(5),
		Reason:      "typo",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestAvailableQuantity_ZeroWhenAbsent(t *testing.T) {
	e := newEnv(t)

	got, err := e.service.AvailableQuantity(context.Background(), e.productID, id.New())
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}
