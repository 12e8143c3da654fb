package customer

import (
	"context"

	"storecore/internal/core/id"
)

// Repository defines customer persistence used by the credit ledger.
type Repository interface {
	// GetByID returns the customer or a NotFound AppError.
	GetByID(ctx context.Context, customerID id.ID) (*Customer, error)

	// GetForUpdate returns the customer with a pessimistic row lock.
	// Must be called within a transaction context.
	GetForUpdate(ctx context.Context, customerID id.ID) (*Customer, error)

	// Create inserts a customer (used by seeding and tests).
	Create(ctx context.Context, c *Customer) error

	// UpdateBalance writes the new balance with optimistic locking;
	// returns ConcurrentModification on version mismatch.
	UpdateBalance(ctx context.Context, c *Customer) error
}
