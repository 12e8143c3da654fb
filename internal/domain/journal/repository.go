package journal

import (
	"context"
	"time"

	"storecore/internal/core/id"
)

// EntryFilter narrows journal queries.
type EntryFilter struct {
	LocationID *id.ID
	Type       *TxType
	FromDate   *time.Time
	ToDate     *time.Time
	Limit      int
	Offset     int
}

// Repository defines persistence for journal entries.
// The implementation lives in infrastructure/storage/postgres/journal_repo.
//
// There are deliberately no update or delete operations.
type Repository interface {
	// Append inserts entries. Must be called within a transaction context.
	Append(ctx context.Context, entries []StockTransaction) error

	// ListByProduct returns movement history for a product, newest first.
	ListByProduct(ctx context.Context, productID id.ID, filter EntryFilter) ([]StockTransaction, error)

	// ListBySource returns all entries created by one document.
	ListBySource(ctx context.Context, source SourceRef) ([]StockTransaction, error)
}
