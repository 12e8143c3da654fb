// Package journal_repo implements the append-only stock journal on
// PostgreSQL. Inserts go through the COPY protocol; there are no update
// or delete statements in this package.
package journal_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"storecore/internal/core/id"
	"storecore/internal/core/types"
	"storecore/internal/domain/journal"
	"storecore/internal/infrastructure/storage/postgres"
)

const journalTable = "inv_journal"

var _ journal.Repository = (*JournalRepo)(nil)

// JournalRepo implements journal.Repository.
type JournalRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewJournalRepo creates a journal repository.
func NewJournalRepo(txManager *postgres.TxManager) *JournalRepo {
	return &JournalRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var journalColumns = []string{
	"id", "occurred_at", "tx_type", "product_id", "location_id",
	"quantity_delta", "cost_at_time", "balance_after", "user_id",
	"source_type", "source_id",
}

// entryRow carries the scaled-integer quantity columns.
type entryRow struct {
	ID            id.ID       `db:"id"`
	OccurredAt    time.Time   `db:"occurred_at"`
	TxType        string      `db:"tx_type"`
	ProductID     id.ID       `db:"product_id"`
	LocationID    id.ID       `db:"location_id"`
	QuantityDelta int64       `db:"quantity_delta"`
	CostAtTime    types.Money `db:"cost_at_time"`
	BalanceAfter  int64       `db:"balance_after"`
	UserID        string      `db:"user_id"`
	SourceType    string      `db:"source_type"`
	SourceID      id.ID       `db:"source_id"`
}

func (e entryRow) toEntry() journal.StockTransaction {
	return journal.StockTransaction{
		ID:            e.ID,
		OccurredAt:    e.OccurredAt,
		Type:          journal.TxType(e.TxType),
		ProductID:     e.ProductID,
		LocationID:    e.LocationID,
		QuantityDelta: types.NewQuantityFromInt64Scaled(e.QuantityDelta),
		CostAtTime:    e.CostAtTime,
		BalanceAfter:  types.NewQuantityFromInt64Scaled(e.BalanceAfter),
		UserID:        e.UserID,
		SourceType:    journal.SourceType(e.SourceType),
		SourceID:      e.SourceID,
	}
}

// Append inserts entries with COPY. Must be called within a transaction
// context so the journal commits with the ledger write it describes.
func (r *JournalRepo) Append(ctx context.Context, entries []journal.StockTransaction) error {
	if len(entries) == 0 {
		return nil
	}
	if r.txManager.GetTx(ctx) == nil {
		return fmt.Errorf("journal append requires transaction context")
	}

	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []any{
			e.ID, e.OccurredAt, string(e.Type), e.ProductID, e.LocationID,
			e.QuantityDelta.Int64Scaled(), e.CostAtTime, e.BalanceAfter.Int64Scaled(),
			e.UserID, string(e.SourceType), e.SourceID,
		})
	}

	inserter := postgres.NewBatchInserter(r.txManager)
	if _, err := inserter.CopyFromSlice(ctx, journalTable, journalColumns, rows); err != nil {
		return fmt.Errorf("copy journal entries: %w", err)
	}
	return nil
}

// ListByProduct returns movement history for a product, newest first.
func (r *JournalRepo) ListByProduct(ctx context.Context, productID id.ID, filter journal.EntryFilter) ([]journal.StockTransaction, error) {
	q := r.builder.Select(journalColumns...).
		From(journalTable).
		Where(squirrel.Eq{"product_id": productID})

	if filter.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}
	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"tx_type": string(*filter.Type)})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"occurred_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.Lt{"occurred_at": *filter.ToDate})
	}

	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	q = q.OrderBy("occurred_at DESC").Limit(uint64(limit))
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	return r.selectEntries(ctx, q)
}

// ListBySource returns all entries created by one document.
func (r *JournalRepo) ListBySource(ctx context.Context, source journal.SourceRef) ([]journal.StockTransaction, error) {
	q := r.builder.Select(journalColumns...).
		From(journalTable).
		Where(squirrel.Eq{
			"source_type": string(source.Type),
			"source_id":   source.ID,
		}).
		OrderBy("occurred_at")

	return r.selectEntries(ctx, q)
}

func (r *JournalRepo) selectEntries(ctx context.Context, q squirrel.SelectBuilder) ([]journal.StockTransaction, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []entryRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select journal entries: %w", err)
	}

	entries := make([]journal.StockTransaction, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toEntry())
	}
	return entries, nil
}
