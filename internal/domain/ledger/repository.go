package ledger

import (
	"context"

	"storecore/internal/core/id"
	"storecore/internal/core/types"
)

// Repository defines persistence for ledger records.
// The implementation lives in infrastructure/storage/postgres/ledger_repo.
type Repository interface {
	// Get returns the record for (product, location) or a NotFound AppError.
	Get(ctx context.Context, productID, locationID id.ID) (*StockRecord, error)

	// GetForUpdate returns the record with a pessimistic row lock.
	// Must be called within a transaction context.
	GetForUpdate(ctx context.Context, productID, locationID id.ID) (*StockRecord, error)

	// Create inserts a new record with its batches. Revision starts at 1.
	Create(ctx context.Context, rec *StockRecord) error

	// Save writes the record and replaces its batch rows, guarded by a
	// compare-and-swap on Revision. Returns ConcurrentModification on
	// mismatch. On success the record's Revision is incremented.
	Save(ctx context.Context, rec *StockRecord) error

	// ListByLocation returns all non-empty records at a location.
	ListByLocation(ctx context.Context, locationID id.ID) ([]*StockRecord, error)

	// TotalQuantity returns the product's on-hand quantity summed across
	// all locations. Used by weighted-average costing on receipt.
	TotalQuantity(ctx context.Context, productID id.ID) (types.Quantity, error)
}
