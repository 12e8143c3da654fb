package journal

import (
	"context"
	"fmt"

	"storecore/internal/core/id"
	"storecore/pkg/logger"
)

// Service provides journal operations for the engines.
// Transactions are managed by the caller: Append must run inside the same
// unit of work as the ledger mutation it records.
type Service struct {
	repo Repository
}

// NewService creates a new journal service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Append validates and appends entries.
func (s *Service) Append(ctx context.Context, entries ...StockTransaction) error {
	if len(entries) == 0 {
		return nil
	}

	for i := range entries {
		if err := entries[i].Validate(); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}

	if err := s.repo.Append(ctx, entries); err != nil {
		return fmt.Errorf("append journal entries: %w", err)
	}

	logger.Debug(ctx, "journal entries appended",
		"count", len(entries),
		"source", entries[0].Source().String(),
	)

	return nil
}

// History returns movement history for a product.
func (s *Service) History(ctx context.Context, productID id.ID, filter EntryFilter) ([]StockTransaction, error) {
	return s.repo.ListByProduct(ctx, productID, filter)
}

// BySource returns the entries one document produced.
func (s *Service) BySource(ctx context.Context, source SourceRef) ([]StockTransaction, error) {
	if err := source.Validate(); err != nil {
		return nil, err
	}
	return s.repo.ListBySource(ctx, source)
}
