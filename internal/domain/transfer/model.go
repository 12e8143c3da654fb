// Package transfer implements cross-location stock transfers.
package transfer

import (
	"context"

	"storecore/internal/core/apperror"
	"storecore/internal/core/entity"
	"storecore/internal/core/id"
	"storecore/internal/core/types"
)

// Status is the transfer lifecycle state. Completed and Cancelled are
// terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusInTransit Status = "in_transit"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// StockTransfer moves a quantity of one product between locations.
// Stock leaves the source only at completion, carrying each consumed
// batch's true per-unit cost to the destination.
type StockTransfer struct {
	entity.Document

	ProductID      id.ID `db:"product_id" json:"productId"`
	FromLocationID id.ID `db:"from_location_id" json:"fromLocationId"`
	ToLocationID   id.ID `db:"to_location_id" json:"toLocationId"`

	Quantity types.Quantity `db:"quantity" json:"quantity"`

	Status Status `db:"status" json:"status"`
}

// NewStockTransfer creates a pending transfer.
func NewStockTransfer(productID, from, to id.ID, quantity types.Quantity) *StockTransfer {
	return &StockTransfer{
		Document:       entity.NewDocument(),
		ProductID:      productID,
		FromLocationID: from,
		ToLocationID:   to,
		Quantity:       quantity,
		Status:         StatusPending,
	}
}

// Validate implements entity.Validatable.
func (t *StockTransfer) Validate(ctx context.Context) error {
	if err := t.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(t.ProductID) {
		return apperror.NewValidation("product is required")
	}
	if id.IsNil(t.FromLocationID) || id.IsNil(t.ToLocationID) {
		return apperror.NewValidation("both locations are required")
	}
	if t.FromLocationID == t.ToLocationID {
		return apperror.NewValidation("source and destination must differ")
	}
	if !t.Quantity.IsPositive() {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("quantity", t.Quantity.String())
	}
	return nil
}

// MarkInTransit transitions Pending -> InTransit.
func (t *StockTransfer) MarkInTransit() error {
	if t.Status != StatusPending {
		return apperror.NewInvalidTransition("stock transfer", string(t.Status), string(StatusInTransit))
	}
	t.Status = StatusInTransit
	return nil
}

// MarkCompleted transitions Pending or InTransit -> Completed.
func (t *StockTransfer) MarkCompleted() error {
	if t.Status != StatusPending && t.Status != StatusInTransit {
		return apperror.NewInvalidTransition("stock transfer", string(t.Status), string(StatusCompleted))
	}
	t.Status = StatusCompleted
	return nil
}

// Cancel transitions Pending or InTransit -> Cancelled.
func (t *StockTransfer) Cancel() error {
	if t.Status != StatusPending && t.Status != StatusInTransit {
		return apperror.NewInvalidTransition("stock transfer", string(t.Status), string(StatusCancelled))
	}
	t.Status = StatusCancelled
	return nil
}
