package transfer

import (
	"context"

	"storecore/internal/core/id"
)

// Repository persists stock transfers.
type Repository interface {
	GetByID(ctx context.Context, transferID id.ID) (*StockTransfer, error)

	// GetForUpdate loads a transfer with a row lock. Must be called
	// within a transaction context.
	GetForUpdate(ctx context.Context, transferID id.ID) (*StockTransfer, error)

	Create(ctx context.Context, t *StockTransfer) error

	// Update saves the transfer with an optimistic version check.
	Update(ctx context.Context, t *StockTransfer) error
}
