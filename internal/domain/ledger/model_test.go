package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storecore/internal/core/apperror"
	"storecore/internal/core/id"
	"storecore/internal/core/types"
	"storecore/internal/domain/journal"
)

var (
	jan1 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	jan5 = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
)

func testSource() journal.SourceRef {
	return journal.PurchaseOrderSource(id.New())
}

func qty(v float64) types.Quantity {
	return types.NewQuantityFromFloat64(v)
}

func twoLayerRecord(t *testing.T) *StockRecord {
	t.Helper()
	rec := NewStockRecord(id.New(), id.New())
	rec.AddBatch(NewBatch("BATCH-2026-00001", qty(10), types.MustMoney("5.00"), jan1, time.Time{}, testSource()))
	rec.AddBatch(NewBatch("BATCH-2026-00002", qty(5), types.MustMoney("6.00"), jan5, time.Time{}, testSource()))
	return rec
}

func TestConsumeFIFO_SpansLayers(t *testing.T) {
	rec := twoLayerRecord(t)

	consumed, err := rec.ConsumeFIFO(qty(12))
	require.NoError(t, err)
	require.Len(t, consumed, 2)

	assert.Equal(t, qty(10), consumed[0].Quantity)
	assert.True(t, consumed[0].UnitCost.Equal(types.MustMoney("5.00")))
	assert.Equal(t, qty(2), consumed[1].Quantity)
	assert.True(t, consumed[1].UnitCost.Equal(types.MustMoney("6.00")))

	assert.True(t, TotalCost(consumed).Equal(types.MustMoney("62.00")),
		"10*5.00 + 2*6.00 = 62.00, got %s", TotalCost(consumed))
	assert.Equal(t, "5.1667", AverageUnitCost(consumed, qty(12)).StringFixed(4))

	// The older layer is fully drained; the newer keeps its cost identity.
	require.Len(t, rec.Batches, 1)
	assert.Equal(t, "BATCH-2026-00002", rec.Batches[0].BatchNumber)
	assert.Equal(t, qty(3), rec.Batches[0].Quantity)
	assert.True(t, rec.Batches[0].UnitCost.Equal(types.MustMoney("6.00")))
	assert.Equal(t, qty(3), rec.Quantity)
	require.NoError(t, rec.CheckConsistency())
}

func TestConsumeFIFO_ExactLayer(t *testing.T) {
	rec := twoLayerRecord(t)

	consumed, err := rec.ConsumeFIFO(qty(10))
	require.NoError(t, err)
	require.Len(t, consumed, 1)
	assert.Equal(t, qty(10), consumed[0].Quantity)

	require.Len(t, rec.Batches, 1)
	assert.Equal(t, "BATCH-2026-00002", rec.Batches[0].BatchNumber)
	assert.Equal(t, qty(5), rec.Quantity)
}

func TestConsumeFIFO_InsufficientLeavesRecordUntouched(t *testing.T) {
	rec := twoLayerRecord(t)

	_, err := rec.ConsumeFIFO(qty(20))
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "15.0000", appErr.Details["available"])

	assert.Len(t, rec.Batches, 2)
	assert.Equal(t, qty(15), rec.Quantity)
}

func TestConsumeFIFO_RejectsNonPositive(t *testing.T) {
	rec := twoLayerRecord(t)

	for _, q := range []types.Quantity{qty(0), qty(-1)} {
		_, err := rec.ConsumeFIFO(q)
		require.Error(t, err)
	}
	assert.Len(t, rec.Batches, 2)
}

func TestConsumeFIFO_FractionalQuantities(t *testing.T) {
	rec := NewStockRecord(id.New(), id.New())
	rec.AddBatch(NewBatch("BATCH-2026-00001", qty(2.5), types.MustMoney("4.00"), jan1, time.Time{}, testSource()))
	rec.AddBatch(NewBatch("BATCH-2026-00002", qty(2.5), types.MustMoney("8.00"), jan5, time.Time{}, testSource()))

	consumed, err := rec.ConsumeFIFO(qty(3))
	require.NoError(t, err)
	require.Len(t, consumed, 2)
	assert.Equal(t, qty(2.5), consumed[0].Quantity)
	assert.Equal(t, qty(0.5), consumed[1].Quantity)

	// 2.5*4.00 + 0.5*8.00 = 14.00
	assert.True(t, TotalCost(consumed).Equal(types.MustMoney("14.00")))
	assert.Equal(t, qty(2), rec.Quantity)
}

func TestAddBatch_OrdersOldestFirst(t *testing.T) {
	rec := NewStockRecord(id.New(), id.New())
	rec.AddBatch(NewBatch("BATCH-2026-00002", qty(5), types.MustMoney("6.00"), jan5, time.Time{}, testSource()))
	rec.AddBatch(NewBatch("BATCH-2026-00001", qty(10), types.MustMoney("5.00"), jan1, time.Time{}, testSource()))

	require.Len(t, rec.Batches, 2)
	assert.Equal(t, "BATCH-2026-00001", rec.Batches[0].BatchNumber)
	assert.Equal(t, "BATCH-2026-00002", rec.Batches[1].BatchNumber)
	assert.Equal(t, qty(15), rec.Quantity)
}

func TestAddBatch_TiesBreakOnBatchNumber(t *testing.T) {
	rec := NewStockRecord(id.New(), id.New())
	rec.AddBatch(NewBatch("BATCH-2026-00009", qty(1), types.MustMoney("1.00"), jan1, time.Time{}, testSource()))
	rec.AddBatch(NewBatch("BATCH-2026-00003", qty(1), types.MustMoney("2.00"), jan1, time.Time{}, testSource()))

	assert.Equal(t, "BATCH-2026-00003", rec.Batches[0].BatchNumber)
}

func TestNewBatch_DefaultExpiry(t *testing.T) {
	b := NewBatch("BATCH-2026-00001", qty(1), types.MustMoney("1.00"), jan1, time.Time{}, testSource())
	assert.Equal(t, jan1.AddDate(1, 0, 0), b.ExpiresAt)

	explicit := jan1.AddDate(0, 6, 0)
	b = NewBatch("BATCH-2026-00002", qty(1), types.MustMoney("1.00"), jan1, explicit, testSource())
	assert.Equal(t, explicit, b.ExpiresAt)
}

func TestAverageUnitCost_ZeroQuantity(t *testing.T) {
	assert.True(t, AverageUnitCost(nil, 0).IsZero())
}

func TestCheckConsistency_DetectsDrift(t *testing.T) {
	rec := twoLayerRecord(t)
	require.NoError(t, rec.CheckConsistency())

	rec.Quantity = qty(99)
	err := rec.CheckConsistency()
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvariantViolation, appErr.Code)
}
