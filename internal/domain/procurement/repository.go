package procurement

import (
	"context"

	"storecore/internal/core/id"
)

// Repository persists purchase orders with lines and goods receipts.
type Repository interface {
	// GetByID loads an order including lines and receipts.
	GetByID(ctx context.Context, poID id.ID) (*PurchaseOrder, error)

	// GetForUpdate loads an order with a row lock. Must be called within
	// a transaction context.
	GetForUpdate(ctx context.Context, poID id.ID) (*PurchaseOrder, error)

	// Create inserts the order and its lines.
	Create(ctx context.Context, po *PurchaseOrder) error

	// Update saves header fields with an optimistic version check.
	Update(ctx context.Context, po *PurchaseOrder) error

	// AppendReceipt inserts a goods receipt and its items. Receipts are
	// append-only.
	AppendReceipt(ctx context.Context, poID id.ID, receipt GoodsReceipt) error
}
