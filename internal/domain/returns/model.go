// Package returns implements returns and restocking against sales orders.
package returns

import (
	"context"

	"storecore/internal/core/apperror"
	"storecore/internal/core/entity"
	"storecore/internal/core/id"
	"storecore/internal/core/types"
)

// ReturnLine is one returned position.
type ReturnLine struct {
	ProductID id.ID          `db:"product_id" json:"productId"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	Reason    string         `db:"reason" json:"reason,omitempty"`

	// UnitPrice is copied from the order's frozen line price; the refund
	// never depends on current catalog prices.
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`
}

// ReturnsExchange is the return document linked to one sales order.
type ReturnsExchange struct {
	entity.Document

	SalesOrderID id.ID `db:"sales_order_id" json:"salesOrderId"`
	CustomerID   id.ID `db:"customer_id" json:"customerId"`

	Lines []ReturnLine `db:"-" json:"lines"`

	RefundAmount types.Money `db:"refund_amount" json:"refundAmount"`

	// RestockLocationID is nil when the goods are not returned to stock
	// (damaged items).
	RestockLocationID *id.ID `db:"restock_location_id" json:"restockLocationId,omitempty"`

	// CreditReleased is the part of the refund that reduced the order's
	// outstanding credit.
	CreditReleased types.Money `db:"credit_released" json:"creditReleased"`
}

// NewReturnsExchange creates a return document shell.
func NewReturnsExchange(orderID, customerID id.ID) *ReturnsExchange {
	return &ReturnsExchange{
		Document:     entity.NewDocument(),
		SalesOrderID: orderID,
		CustomerID:   customerID,
	}
}

// Validate implements entity.Validatable.
func (r *ReturnsExchange) Validate(ctx context.Context) error {
	if err := r.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(r.SalesOrderID) {
		return apperror.NewValidation("sales order is required")
	}
	if len(r.Lines) == 0 {
		return apperror.NewValidation("return must have at least one line")
	}
	for i, l := range r.Lines {
		if !l.Quantity.IsPositive() {
			return apperror.NewValidation("return quantity must be positive").WithDetail("line", i)
		}
		if l.UnitPrice.IsNegative() {
			return apperror.NewValidation("unit price cannot be negative").WithDetail("line", i)
		}
	}
	if r.RefundAmount.IsNegative() {
		return apperror.NewValidation("refund amount cannot be negative")
	}
	return nil
}

// ReturnedQuantity sums the returned quantity of one product.
func (r *ReturnsExchange) ReturnedQuantity(productID id.ID) types.Quantity {
	var total types.Quantity
	for _, l := range r.Lines {
		if l.ProductID == productID {
			total += l.Quantity
		}
	}
	return total
}
