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
	"storecore/internal/domain/returns"
	"storecore/internal/infrastructure/storage/postgres"
)

const (
	returnsTable     = "doc_returns"
	returnLinesTable = "doc_return_lines"
)

var _ returns.Repository = (*ReturnRepo)(nil)

type returnHeaderRow struct {
	ID        id.ID     `db:"id"`
	Version   int       `db:"version"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	CreatedBy string    `db:"created_by"`
	UpdatedBy string    `db:"updated_by"`
	Number    string    `db:"number"`
	Date      time.Time `db:"date"`
	Comment   string    `db:"comment"`

	SalesOrderID      id.ID       `db:"sales_order_id"`
	CustomerID        id.ID       `db:"customer_id"`
	RefundAmount      types.Money `db:"refund_amount"`
	RestockLocationID *id.ID      `db:"restock_location_id"`
	CreditReleased    types.Money `db:"credit_released"`
}

func (h returnHeaderRow) toReturn() *returns.ReturnsExchange {
	ret := &returns.ReturnsExchange{
		SalesOrderID:      h.SalesOrderID,
		CustomerID:        h.CustomerID,
		RefundAmount:      h.RefundAmount,
		RestockLocationID: h.RestockLocationID,
		CreditReleased:    h.CreditReleased,
	}
	ret.ID = h.ID
	ret.Version = h.Version
	ret.CreatedAt = h.CreatedAt
	ret.UpdatedAt = h.UpdatedAt
	ret.CreatedBy = h.CreatedBy
	ret.UpdatedBy = h.UpdatedBy
	ret.Number = h.Number
	ret.Date = h.Date
	ret.Comment = h.Comment
	return ret
}

type returnLineRow struct {
	ReturnID  id.ID       `db:"return_id"`
	Position  int         `db:"position"`
	ProductID id.ID       `db:"product_id"`
	Quantity  int64       `db:"quantity"`
	Reason    string      `db:"reason"`
	UnitPrice types.Money `db:"unit_price"`
}

// ReturnRepo implements returns.Repository.
type ReturnRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
	columns   []string
}

// NewReturnRepo creates a returns repository.
func NewReturnRepo(txManager *postgres.TxManager) *ReturnRepo {
	return &ReturnRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns:   postgres.ExtractDBColumns[returnHeaderRow](),
	}
}

// GetByID loads a return with its lines.
func (r *ReturnRepo) GetByID(ctx context.Context, returnID id.ID) (*returns.ReturnsExchange, error) {
	sql, args, err := r.builder.Select(r.columns...).
		From(returnsTable).
		Where(squirrel.Eq{"id": returnID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var header returnHeaderRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &header, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("return", returnID)
		}
		return nil, fmt.Errorf("get return: %w", err)
	}

	ret := header.toReturn()
	if err := r.loadLines(ctx, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (r *ReturnRepo) loadLines(ctx context.Context, ret *returns.ReturnsExchange) error {
	sql, args, err := r.builder.Select(
		"return_id", "position", "product_id", "quantity", "reason", "unit_price",
	).From(returnLinesTable).
		Where(squirrel.Eq{"return_id": ret.ID}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	var rows []returnLineRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return fmt.Errorf("select return lines: %w", err)
	}

	ret.Lines = make([]returns.ReturnLine, 0, len(rows))
	for _, l := range rows {
		ret.Lines = append(ret.Lines, returns.ReturnLine{
			ProductID: l.ProductID,
			Quantity:  types.NewQuantityFromInt64Scaled(l.Quantity),
			Reason:    l.Reason,
			UnitPrice: l.UnitPrice,
		})
	}
	return nil
}

// Create inserts the return and its lines.
func (r *ReturnRepo) Create(ctx context.Context, ret *returns.ReturnsExchange) error {
	queries := make([]postgres.BatchQuery, 0, 1+len(ret.Lines))

	headerSQL, headerArgs, err := r.builder.Insert(returnsTable).
		SetMap(map[string]any{
			"id":                  ret.ID,
			"version":             ret.Version,
			"created_at":          ret.CreatedAt,
			"updated_at":          ret.UpdatedAt,
			"created_by":          ret.CreatedBy,
			"updated_by":          ret.UpdatedBy,
			"number":              ret.Number,
			"date":                ret.Date,
			"comment":             ret.Comment,
			"sales_order_id":      ret.SalesOrderID,
			"customer_id":         ret.CustomerID,
			"refund_amount":       ret.RefundAmount,
			"restock_location_id": ret.RestockLocationID,
			"credit_released":     ret.CreditReleased,
		}).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	queries = append(queries, postgres.BatchQuery{SQL: headerSQL, Args: headerArgs})

	for i, l := range ret.Lines {
		lineSQL, lineArgs, err := r.builder.Insert(returnLinesTable).
			Columns("return_id", "position", "product_id", "quantity", "reason", "unit_price").
			Values(ret.ID, i, l.ProductID, l.Quantity.Int64Scaled(), l.Reason, l.UnitPrice).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: lineSQL, Args: lineArgs})
	}

	executor := postgres.NewBatchExecutor(r.txManager)
	if err := executor.ExecuteBatch(ctx, queries); err != nil {
		return fmt.Errorf("insert return: %w", err)
	}
	return nil
}

// ListByOrder returns all returns linked to a sales order.
func (r *ReturnRepo) ListByOrder(ctx context.Context, orderID id.ID) ([]*returns.ReturnsExchange, error) {
	sql, args, err := r.builder.Select(r.columns...).
		From(returnsTable).
		Where(squirrel.Eq{"sales_order_id": orderID}).
		OrderBy("date").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var headers []returnHeaderRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &headers, sql, args...); err != nil {
		return nil, fmt.Errorf("select returns: %w", err)
	}

	result := make([]*returns.ReturnsExchange, 0, len(headers))
	for _, h := range headers {
		ret := h.toReturn()
		if err := r.loadLines(ctx, ret); err != nil {
			return nil, err
		}
		result = append(result, ret)
	}
	return result, nil
}
