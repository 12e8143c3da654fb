package product

import (
	"context"

	"storecore/internal/core/id"
)

// Repository defines product persistence used by the engines.
type Repository interface {
	// GetByID returns the product or a NotFound AppError.
	GetByID(ctx context.Context, productID id.ID) (*Product, error)

	// GetByIDs returns the products for the given ids, keyed by id.
	// Missing ids are simply absent from the map.
	GetByIDs(ctx context.Context, productIDs []id.ID) (map[id.ID]*Product, error)

	// Create inserts a product (used by seeding and tests).
	Create(ctx context.Context, p *Product) error

	// UpdateUnitCost writes the new running cost with optimistic locking
	// and appends the cost history entry in the same statement batch.
	UpdateUnitCost(ctx context.Context, p *Product, change CostChange) error

	// CostHistory returns cost changes for a product, newest first.
	CostHistory(ctx context.Context, productID id.ID, limit int) ([]CostChange, error)
}
