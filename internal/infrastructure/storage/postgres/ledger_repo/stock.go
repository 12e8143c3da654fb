// Package ledger_repo implements the inventory ledger repository on
// PostgreSQL. A stock record is one row in inv_stock plus its batch
// layers in inv_batches; both are written together under a revision
// compare-and-swap.
package ledger_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"storecore/internal/core/apperror"
	"storecore/internal/core/id"
	"storecore/internal/core/types"
	"storecore/internal/domain/journal"
	"storecore/internal/domain/ledger"
	"storecore/internal/infrastructure/storage/postgres"
)

const (
	stockTable   = "inv_stock"
	batchesTable = "inv_batches"
)

var _ ledger.Repository = (*StockRepo)(nil)

// stockRow is the inv_stock projection.
type stockRow struct {
	ID         id.ID `db:"id"`
	ProductID  id.ID `db:"product_id"`
	LocationID id.ID `db:"location_id"`
	Quantity   int64 `db:"quantity"`
	Revision   int64 `db:"revision"`
}

// batchRow is the inv_batches projection.
type batchRow struct {
	ID          id.ID       `db:"id"`
	StockID     id.ID       `db:"stock_id"`
	BatchNumber string      `db:"batch_number"`
	Quantity    int64       `db:"quantity"`
	UnitCost    types.Money `db:"unit_cost"`
	ReceivedAt  time.Time   `db:"received_at"`
	ExpiresAt   time.Time   `db:"expires_at"`
	SourceType  string      `db:"source_type"`
	SourceID    id.ID       `db:"source_id"`
}

// StockRepo implements ledger.Repository.
type StockRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewStockRepo creates a ledger repository.
func NewStockRepo(txManager *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Get returns the record for (product, location).
func (r *StockRepo) Get(ctx context.Context, productID, locationID id.ID) (*ledger.StockRecord, error) {
	return r.get(ctx, productID, locationID, false)
}

// GetForUpdate returns the record with a row lock on inv_stock.
func (r *StockRepo) GetForUpdate(ctx context.Context, productID, locationID id.ID) (*ledger.StockRecord, error) {
	return r.get(ctx, productID, locationID, true)
}

func (r *StockRepo) get(ctx context.Context, productID, locationID id.ID, forUpdate bool) (*ledger.StockRecord, error) {
	q := r.builder.Select("id", "product_id", "location_id", "quantity", "revision").
		From(stockTable).
		Where(squirrel.Eq{"product_id": productID, "location_id": locationID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)

	var row stockRow
	if err := pgxscan.Get(ctx, querier, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock record", fmt.Sprintf("%s@%s", productID, locationID))
		}
		return nil, fmt.Errorf("get stock record: %w", err)
	}

	batches, err := r.loadBatches(ctx, row.ID)
	if err != nil {
		return nil, err
	}

	return &ledger.StockRecord{
		ID:         row.ID,
		ProductID:  row.ProductID,
		LocationID: row.LocationID,
		Quantity:   types.NewQuantityFromInt64Scaled(row.Quantity),
		Revision:   row.Revision,
		Batches:    batches,
	}, nil
}

func (r *StockRepo) loadBatches(ctx context.Context, stockID id.ID) ([]ledger.Batch, error) {
	q := r.builder.Select(
		"id", "stock_id", "batch_number", "quantity", "unit_cost",
		"received_at", "expires_at", "source_type", "source_id",
	).From(batchesTable).
		Where(squirrel.Eq{"stock_id": stockID}).
		OrderBy("received_at", "batch_number")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []batchRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select batches: %w", err)
	}

	batches := make([]ledger.Batch, 0, len(rows))
	for _, b := range rows {
		batches = append(batches, ledger.Batch{
			ID:          b.ID,
			BatchNumber: b.BatchNumber,
			Quantity:    types.NewQuantityFromInt64Scaled(b.Quantity),
			UnitCost:    b.UnitCost,
			ReceivedAt:  b.ReceivedAt,
			ExpiresAt:   b.ExpiresAt,
			SourceType:  journal.SourceType(b.SourceType),
			SourceID:    b.SourceID,
		})
	}
	return batches, nil
}

// Create inserts the stock row and its batches.
func (r *StockRepo) Create(ctx context.Context, rec *ledger.StockRecord) error {
	rec.Revision = 1

	sql, args, err := r.builder.Insert(stockTable).
		Columns("id", "product_id", "location_id", "quantity", "revision").
		Values(rec.ID, rec.ProductID, rec.LocationID, rec.Quantity.Int64Scaled(), rec.Revision).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert stock record: %w", err)
	}

	return r.insertBatches(ctx, rec)
}

// Save writes the record under the revision compare-and-swap and
// replaces the batch rows. Must be called within a transaction context
// so the header update and batch rewrite commit together.
func (r *StockRepo) Save(ctx context.Context, rec *ledger.StockRecord) error {
	if r.txManager.GetTx(ctx) == nil {
		return fmt.Errorf("ledger save requires transaction context")
	}

	sql, args, err := r.builder.Update(stockTable).
		Set("quantity", rec.Quantity.Int64Scaled()).
		Set("revision", rec.Revision+1).
		Where(squirrel.Eq{"id": rec.ID, "revision": rec.Revision}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update stock record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("stock record", rec.ID)
	}
	rec.Revision++

	delSQL, delArgs, err := r.builder.Delete(batchesTable).
		Where(squirrel.Eq{"stock_id": rec.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := querier.Exec(ctx, delSQL, delArgs...); err != nil {
		return fmt.Errorf("delete batches: %w", err)
	}

	return r.insertBatches(ctx, rec)
}

func (r *StockRepo) insertBatches(ctx context.Context, rec *ledger.StockRecord) error {
	if len(rec.Batches) == 0 {
		return nil
	}

	columns := []string{
		"id", "stock_id", "batch_number", "quantity", "unit_cost",
		"received_at", "expires_at", "source_type", "source_id",
	}

	// COPY when inside a transaction, plain insert otherwise.
	if tx := r.txManager.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txManager)
		rows := make([][]any, 0, len(rec.Batches))
		for _, b := range rec.Batches {
			rows = append(rows, []any{
				b.ID, rec.ID, b.BatchNumber, b.Quantity.Int64Scaled(), b.UnitCost,
				b.ReceivedAt, b.ExpiresAt, string(b.SourceType), b.SourceID,
			})
		}
		if _, err := inserter.CopyFromSlice(ctx, batchesTable, columns, rows); err != nil {
			return fmt.Errorf("copy batches: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(batchesTable).Columns(columns...)
	for _, b := range rec.Batches {
		q = q.Values(
			b.ID, rec.ID, b.BatchNumber, b.Quantity.Int64Scaled(), b.UnitCost,
			b.ReceivedAt, b.ExpiresAt, string(b.SourceType), b.SourceID,
		)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert batches: %w", err)
	}
	return nil
}

// ListByLocation returns all non-empty records at a location.
func (r *StockRepo) ListByLocation(ctx context.Context, locationID id.ID) ([]*ledger.StockRecord, error) {
	q := r.builder.Select("id", "product_id", "location_id", "quantity", "revision").
		From(stockTable).
		Where(squirrel.Eq{"location_id": locationID}).
		Where(squirrel.Gt{"quantity": int64(0)}).
		OrderBy("product_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []stockRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select stock records: %w", err)
	}

	records := make([]*ledger.StockRecord, 0, len(rows))
	for _, row := range rows {
		batches, err := r.loadBatches(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		records = append(records, &ledger.StockRecord{
			ID:         row.ID,
			ProductID:  row.ProductID,
			LocationID: row.LocationID,
			Quantity:   types.NewQuantityFromInt64Scaled(row.Quantity),
			Revision:   row.Revision,
			Batches:    batches,
		})
	}
	return records, nil
}

// TotalQuantity sums the product's quantity across all locations.
func (r *StockRepo) TotalQuantity(ctx context.Context, productID id.ID) (types.Quantity, error) {
	sql, args, err := r.builder.Select("COALESCE(SUM(quantity), 0)").
		From(stockTable).
		Where(squirrel.Eq{"product_id": productID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var total int64
	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum quantity: %w", err)
	}
	return types.NewQuantityFromInt64Scaled(total), nil
}
