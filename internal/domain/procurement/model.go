// Package procurement implements purchase orders and goods receiving.
package procurement

import (
	"context"
	"time"

	"storecore/internal/core/apperror"
	"storecore/internal/core/entity"
	"storecore/internal/core/id"
	"storecore/internal/core/types"
)

// Status is the purchase order lifecycle state.
type Status string

const (
	StatusDraft             Status = "draft"
	StatusSent              Status = "sent"
	StatusPartiallyReceived Status = "partially_received"
	StatusReceived          Status = "received"
	StatusCancelled         Status = "cancelled"
)

// POLine is an ordered line. Cost is frozen at ordering time.
type POLine struct {
	ID        id.ID          `db:"id" json:"id"`
	ProductID id.ID          `db:"product_id" json:"productId"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	UnitCost  types.Money    `db:"unit_cost" json:"unitCost"`
	TotalCost types.Money    `db:"total_cost" json:"totalCost"`
}

// NewPOLine creates a line with cost derived from quantity and unit cost.
func NewPOLine(productID id.ID, quantity types.Quantity, unitCost types.Money) POLine {
	return POLine{
		ID:        id.New(),
		ProductID: productID,
		Quantity:  quantity,
		UnitCost:  unitCost,
		TotalCost: unitCost.Mul(quantity.Decimal()),
	}
}

// ReceiptItem is one received position within a goods receipt.
type ReceiptItem struct {
	LineID    id.ID          `db:"line_id" json:"lineId"`
	ProductID id.ID          `db:"product_id" json:"productId"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
}

// GoodsReceipt is an append-only receiving record on a purchase order.
type GoodsReceipt struct {
	ID         id.ID         `db:"id" json:"id"`
	GRNNumber  string        `db:"grn_number" json:"grnNumber"`
	LocationID id.ID         `db:"location_id" json:"locationId"`
	ReceivedAt time.Time     `db:"received_at" json:"receivedAt"`
	ReceivedBy string        `db:"received_by" json:"receivedBy,omitempty"`
	Items      []ReceiptItem `db:"-" json:"items"`
}

// PurchaseOrder is the procurement document.
type PurchaseOrder struct {
	entity.Document

	SupplierID id.ID `db:"supplier_id" json:"supplierId"`

	Lines    []POLine       `db:"-" json:"lines"`
	Receipts []GoodsReceipt `db:"-" json:"receipts,omitempty"`

	Status Status `db:"status" json:"status"`
}

// NewPurchaseOrder creates a draft purchase order.
func NewPurchaseOrder(supplierID id.ID, lines []POLine) *PurchaseOrder {
	return &PurchaseOrder{
		Document:   entity.NewDocument(),
		SupplierID: supplierID,
		Lines:      lines,
		Status:     StatusDraft,
	}
}

// Validate implements entity.Validatable.
func (po *PurchaseOrder) Validate(ctx context.Context) error {
	if err := po.Document.Validate(ctx); err != nil {
		return err
	}
	if len(po.Lines) == 0 {
		return apperror.NewValidation("purchase order must have at least one line")
	}
	for i, l := range po.Lines {
		if !l.Quantity.IsPositive() {
			return apperror.NewValidation("line quantity must be positive").WithDetail("line", i)
		}
		if l.UnitCost.IsNegative() {
			return apperror.NewValidation("line cost cannot be negative").WithDetail("line", i)
		}
	}
	return nil
}

// Line resolves a line by id.
func (po *PurchaseOrder) Line(lineID id.ID) (*POLine, bool) {
	for i := range po.Lines {
		if po.Lines[i].ID == lineID {
			return &po.Lines[i], true
		}
	}
	return nil, false
}

// ReceivedQuantity sums quantities received for a line across all receipts.
func (po *PurchaseOrder) ReceivedQuantity(lineID id.ID) types.Quantity {
	var total types.Quantity
	for _, r := range po.Receipts {
		for _, item := range r.Items {
			if item.LineID == lineID {
				total += item.Quantity
			}
		}
	}
	return total
}

// TotalOrdered sums ordered quantities across all lines.
func (po *PurchaseOrder) TotalOrdered() types.Quantity {
	var total types.Quantity
	for _, l := range po.Lines {
		total += l.Quantity
	}
	return total
}

// TotalReceived sums received quantities across all receipts.
func (po *PurchaseOrder) TotalReceived() types.Quantity {
	var total types.Quantity
	for _, r := range po.Receipts {
		for _, item := range r.Items {
			total += item.Quantity
		}
	}
	return total
}

// MarkSent transitions Draft -> Sent.
func (po *PurchaseOrder) MarkSent() error {
	if po.Status != StatusDraft {
		return apperror.NewInvalidTransition("purchase order", string(po.Status), string(StatusSent))
	}
	po.Status = StatusSent
	return nil
}

// Cancel transitions Draft -> Cancelled. Orders already sent to the
// supplier cannot be cancelled.
func (po *PurchaseOrder) Cancel() error {
	if po.Status != StatusDraft {
		return apperror.NewInvalidTransition("purchase order", string(po.Status), string(StatusCancelled))
	}
	po.Status = StatusCancelled
	return nil
}

// AcceptsReceipts reports whether the order may receive goods.
func (po *PurchaseOrder) AcceptsReceipts() bool {
	return po.Status == StatusSent || po.Status == StatusPartiallyReceived
}

// RecomputeStatus derives the status from the received totals.
func (po *PurchaseOrder) RecomputeStatus() {
	received := po.TotalReceived()
	switch {
	case received.IsZero():
		po.Status = StatusSent
	case received < po.TotalOrdered():
		po.Status = StatusPartiallyReceived
	default:
		po.Status = StatusReceived
	}
}
