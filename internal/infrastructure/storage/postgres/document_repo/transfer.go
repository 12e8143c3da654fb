package document_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"storecore/internal/core/apperror"
	"storecore/internal/core/id"
	"storecore/internal/core/types"
	"storecore/internal/domain/transfer"
	"storecore/internal/infrastructure/storage/postgres"
)

const transfersTable = "doc_transfers"

var _ transfer.Repository = (*TransferRepo)(nil)

type transferRow struct {
	ID        id.ID     `db:"id"`
	Version   int       `db:"version"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	CreatedBy string    `db:"created_by"`
	UpdatedBy string    `db:"updated_by"`
	Number    string    `db:"number"`
	Date      time.Time `db:"date"`
	Comment   string    `db:"comment"`

	ProductID      id.ID  `db:"product_id"`
	FromLocationID id.ID  `db:"from_location_id"`
	ToLocationID   id.ID  `db:"to_location_id"`
	Quantity       int64  `db:"quantity"`
	Status         string `db:"status"`
}

func (h transferRow) toTransfer() *transfer.StockTransfer {
	t := &transfer.StockTransfer{
		ProductID:      h.ProductID,
		FromLocationID: h.FromLocationID,
		ToLocationID:   h.ToLocationID,
		Quantity:       types.NewQuantityFromInt64Scaled(h.Quantity),
		Status:         transfer.Status(h.Status),
	}
	t.ID = h.ID
	t.Version = h.Version
	t.CreatedAt = h.CreatedAt
	t.UpdatedAt = h.UpdatedAt
	t.CreatedBy = h.CreatedBy
	t.UpdatedBy = h.UpdatedBy
	t.Number = h.Number
	t.Date = h.Date
	t.Comment = h.Comment
	return t
}

// TransferRepo implements transfer.Repository.
type TransferRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
	columns   []string
}

// NewTransferRepo creates a transfer repository.
func NewTransferRepo(txManager *postgres.TxManager) *TransferRepo {
	return &TransferRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns:   postgres.ExtractDBColumns[transferRow](),
	}
}

// GetByID loads a transfer.
func (r *TransferRepo) GetByID(ctx context.Context, transferID id.ID) (*transfer.StockTransfer, error) {
	return r.get(ctx, transferID, false)
}

// GetForUpdate loads a transfer with a row lock, so completion and
// cancellation of the same transfer serialize.
func (r *TransferRepo) GetForUpdate(ctx context.Context, transferID id.ID) (*transfer.StockTransfer, error) {
	return r.get(ctx, transferID, true)
}

func (r *TransferRepo) get(ctx context.Context, transferID id.ID, forUpdate bool) (*transfer.StockTransfer, error) {
	q := r.builder.Select(r.columns...).
		From(transfersTable).
		Where(squirrel.Eq{"id": transferID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row transferRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock transfer", transferID)
		}
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	return row.toTransfer(), nil
}

// Create inserts a transfer.
func (r *TransferRepo) Create(ctx context.Context, t *transfer.StockTransfer) error {
	sql, args, err := r.builder.Insert(transfersTable).
		SetMap(map[string]any{
			"id":               t.ID,
			"version":          t.Version,
			"created_at":       t.CreatedAt,
			"updated_at":       t.UpdatedAt,
			"created_by":       t.CreatedBy,
			"updated_by":       t.UpdatedBy,
			"number":           t.Number,
			"date":             t.Date,
			"comment":          t.Comment,
			"product_id":       t.ProductID,
			"from_location_id": t.FromLocationID,
			"to_location_id":   t.ToLocationID,
			"quantity":         t.Quantity.Int64Scaled(),
			"status":           string(t.Status),
		}).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

// Update saves the transfer with the optimistic version check.
func (r *TransferRepo) Update(ctx context.Context, t *transfer.StockTransfer) error {
	t.UpdatedAt = time.Now().UTC()

	sql, args, err := r.builder.Update(transfersTable).
		Set("updated_at", t.UpdatedAt).
		Set("updated_by", t.UpdatedBy).
		Set("status", string(t.Status)).
		Set("version", t.Version+1).
		Where(squirrel.Eq{"id": t.ID, "version": t.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update transfer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("stock transfer", t.ID)
	}
	t.Version++
	return nil
}
