package returns

import (
	"context"

	"storecore/internal/core/id"
)

// Repository persists return documents.
type Repository interface {
	// GetByID loads a return including lines.
	GetByID(ctx context.Context, returnID id.ID) (*ReturnsExchange, error)

	// Create inserts the return and its lines.
	Create(ctx context.Context, ret *ReturnsExchange) error

	// ListByOrder returns all returns linked to a sales order. Used to
	// compute already-returned quantities.
	ListByOrder(ctx context.Context, orderID id.ID) ([]*ReturnsExchange, error)
}
