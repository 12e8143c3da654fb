package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storecore/internal/core/id"
	"storecore/internal/core/types"
)

func validEntry() StockTransaction {
	return NewStockTransaction(
		TxTypeOut,
		id.New(), id.New(),
		types.NewQuantityFromInt(3).Neg(),
		types.MustMoney("5.00"),
		types.NewQuantityFromInt(7),
		"user-1",
		SalesOrderSource(id.New()),
	)
}

func TestStockTransactionValidate(t *testing.T) {
	require.NoError(t, func() error { e := validEntry(); return e.Validate() }())

	tests := []struct {
		name   string
		mutate func(*StockTransaction)
	}{
		{"unknown type", func(e *StockTransaction) { e.Type = "TELEPORT" }},
		{"nil product", func(e *StockTransaction) { e.ProductID = id.ID{} }},
		{"nil location", func(e *StockTransaction) { e.LocationID = id.ID{} }},
		{"zero delta", func(e *StockTransaction) { e.QuantityDelta = 0 }},
		{"negative cost", func(e *StockTransaction) { e.CostAtTime = types.MustMoney("-1.00") }},
		{"negative balance", func(e *StockTransaction) { e.BalanceAfter = types.NewQuantityFromInt(-1) }},
		{"nil source", func(e *StockTransaction) { e.SourceID = id.ID{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEntry()
			tt.mutate(&e)
			assert.Error(t, e.Validate())
		})
	}
}

func TestTxTypeIsValid(t *testing.T) {
	for _, valid := range []TxType{TxTypeIn, TxTypeOut, TxTypeAdjust, TxTypeTransfer, TxTypeReturn, TxTypeAssemblyIn, TxTypeAssemblyOut} {
		assert.True(t, valid.IsValid(), string(valid))
	}
	assert.False(t, TxType("TELEPORT").IsValid())
}
