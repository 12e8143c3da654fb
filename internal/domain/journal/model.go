// Package journal provides the append-only stock movement audit trail.
// Entries are immutable: they are written once, inside the same unit of
// work as the ledger mutation they describe, and never updated or deleted.
package journal

import (
	"time"

	"storecore/internal/core/apperror"
	"storecore/internal/core/id"
	"storecore/internal/core/types"
)

// TxType classifies a stock movement.
type TxType string

const (
	TxTypeIn          TxType = "IN"
	TxTypeOut         TxType = "OUT"
	TxTypeAdjust      TxType = "ADJUST"
	TxTypeTransfer    TxType = "TRANSFER"
	TxTypeReturn      TxType = "RETURN"
	TxTypeAssemblyIn  TxType = "ASSEMBLY_IN"
	TxTypeAssemblyOut TxType = "ASSEMBLY_OUT"
)

// IsValid reports whether the movement type is known.
func (t TxType) IsValid() bool {
	switch t {
	case TxTypeIn, TxTypeOut, TxTypeAdjust, TxTypeTransfer, TxTypeReturn,
		TxTypeAssemblyIn, TxTypeAssemblyOut:
		return true
	}
	return false
}

// StockTransaction is one immutable journal entry.
//
// CostAtTime is the per-unit cost frozen at movement time: the received
// unit cost for IN entries, the FIFO-weighted average for OUT entries.
// BalanceAfter is the ledger quantity immediately after the mutation,
// which is why journal and ledger must be written in one transaction.
type StockTransaction struct {
	ID         id.ID     `db:"id" json:"id"`
	OccurredAt time.Time `db:"occurred_at" json:"occurredAt"`

	Type       TxType `db:"tx_type" json:"type"`
	ProductID  id.ID  `db:"product_id" json:"productId"`
	LocationID id.ID  `db:"location_id" json:"locationId"`

	// QuantityDelta is signed and never zero.
	QuantityDelta types.Quantity `db:"quantity_delta" json:"quantityDelta"`

	CostAtTime   types.Money    `db:"cost_at_time" json:"costAtTime"`
	BalanceAfter types.Quantity `db:"balance_after" json:"balanceAfter"`

	UserID string `db:"user_id" json:"userId"`

	SourceType SourceType `db:"source_type" json:"sourceType"`
	SourceID   id.ID      `db:"source_id" json:"sourceId"`
}

// NewStockTransaction creates a journal entry with generated id and timestamp.
func NewStockTransaction(
	txType TxType,
	productID, locationID id.ID,
	delta types.Quantity,
	costAtTime types.Money,
	balanceAfter types.Quantity,
	userID string,
	source SourceRef,
) StockTransaction {
	return StockTransaction{
		ID:            id.New(),
		OccurredAt:    time.Now().UTC(),
		Type:          txType,
		ProductID:     productID,
		LocationID:    locationID,
		QuantityDelta: delta,
		CostAtTime:    costAtTime,
		BalanceAfter:  balanceAfter,
		UserID:        userID,
		SourceType:    source.Type,
		SourceID:      source.ID,
	}
}

// Source returns the typed source reference.
func (t *StockTransaction) Source() SourceRef {
	return SourceRef{Type: t.SourceType, ID: t.SourceID}
}

// Validate checks entry invariants before it is appended.
func (t *StockTransaction) Validate() error {
	if !t.Type.IsValid() {
		return apperror.NewValidation("unknown transaction type").
			WithDetail("type", string(t.Type))
	}
	if id.IsNil(t.ProductID) {
		return apperror.NewValidation("product is required")
	}
	if id.IsNil(t.LocationID) {
		return apperror.NewValidation("location is required")
	}
	if t.QuantityDelta.IsZero() {
		return apperror.NewValidation("quantity delta must be non-zero")
	}
	if t.CostAtTime.IsNegative() {
		return apperror.NewValidation("cost at time of transaction cannot be negative")
	}
	if t.BalanceAfter.IsNegative() {
		return apperror.NewInvariantViolation("balance after transaction cannot be negative").
			WithDetail("balance_after", t.BalanceAfter.String())
	}
	if err := t.Source().Validate(); err != nil {
		return apperror.NewValidation(err.Error())
	}
	return nil
}
