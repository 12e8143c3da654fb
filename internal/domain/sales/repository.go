package sales

import (
	"context"

	"storecore/internal/core/id"
)

// Repository persists sales orders with their lines and return links.
type Repository interface {
	// GetByID loads an order including lines and return ids.
	GetByID(ctx context.Context, orderID id.ID) (*SalesOrder, error)

	// GetForUpdate loads an order with a row lock. Must be called within
	// a transaction context.
	GetForUpdate(ctx context.Context, orderID id.ID) (*SalesOrder, error)

	// Create inserts the order and its lines.
	Create(ctx context.Context, order *SalesOrder) error

	// Update saves header fields with an optimistic version check.
	// Lines are immutable after creation.
	Update(ctx context.Context, order *SalesOrder) error

	// ListByCustomer returns orders of one customer, newest first.
	ListByCustomer(ctx context.Context, customerID id.ID, limit int) ([]*SalesOrder, error)
}
