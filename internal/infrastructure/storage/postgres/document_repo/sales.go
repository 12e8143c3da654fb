// Package document_repo implements document persistence (sales orders,
// purchase orders, returns, transfers) on PostgreSQL. Document headers
// carry an optimistic version column; line tables are immutable after
// creation.
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
	"storecore/internal/domain/sales"
	"storecore/internal/infrastructure/storage/postgres"
)

const (
	salesOrdersTable      = "doc_sales_orders"
	salesOrderLinesTable  = "doc_sales_order_lines"
	salesOrderReturnsLink = "doc_sales_order_returns"
)

var _ sales.Repository = (*SalesOrderRepo)(nil)

// salesHeaderRow is the doc_sales_orders projection.
type salesHeaderRow struct {
	ID        id.ID     `db:"id"`
	Version   int       `db:"version"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	CreatedBy string    `db:"created_by"`
	UpdatedBy string    `db:"updated_by"`
	Number    string    `db:"number"`
	Date      time.Time `db:"date"`
	Comment   string    `db:"comment"`

	CustomerID id.ID `db:"customer_id"`
	LocationID id.ID `db:"location_id"`

	PaymentType       string      `db:"payment_type"`
	AmountPaidCash    types.Money `db:"amount_paid_cash"`
	AmountToCredit    types.Money `db:"amount_to_credit"`
	CreditTotal       types.Money `db:"credit_total"`
	CreditOutstanding types.Money `db:"credit_outstanding"`

	DueDate      *time.Time `db:"due_date"`
	AllowedUntil *time.Time `db:"allowed_until"`

	Status        string `db:"status"`
	PaymentStatus string `db:"payment_status"`
}

func (h salesHeaderRow) toOrder() *sales.SalesOrder {
	o := &sales.SalesOrder{
		CustomerID:        h.CustomerID,
		LocationID:        h.LocationID,
		PaymentType:       sales.PaymentType(h.PaymentType),
		AmountPaidCash:    h.AmountPaidCash,
		AmountToCredit:    h.AmountToCredit,
		CreditTotal:       h.CreditTotal,
		CreditOutstanding: h.CreditOutstanding,
		DueDate:           h.DueDate,
		AllowedUntil:      h.AllowedUntil,
		Status:            sales.Status(h.Status),
		PaymentStatus:     sales.PaymentStatus(h.PaymentStatus),
	}
	o.ID = h.ID
	o.Version = h.Version
	o.CreatedAt = h.CreatedAt
	o.UpdatedAt = h.UpdatedAt
	o.CreatedBy = h.CreatedBy
	o.UpdatedBy = h.UpdatedBy
	o.Number = h.Number
	o.Date = h.Date
	o.Comment = h.Comment
	return o
}

type salesLineRow struct {
	OrderID    id.ID       `db:"order_id"`
	Position   int         `db:"position"`
	ProductID  id.ID       `db:"product_id"`
	SKU        string      `db:"sku"`
	Name       string      `db:"name"`
	Quantity   int64       `db:"quantity"`
	UnitPrice  types.Money `db:"unit_price"`
	TotalPrice types.Money `db:"total_price"`
}

// SalesOrderRepo implements sales.Repository.
type SalesOrderRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
	columns   []string
}

// NewSalesOrderRepo creates a sales order repository.
func NewSalesOrderRepo(txManager *postgres.TxManager) *SalesOrderRepo {
	return &SalesOrderRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns:   postgres.ExtractDBColumns[salesHeaderRow](),
	}
}

// GetByID loads an order with lines and return links.
func (r *SalesOrderRepo) GetByID(ctx context.Context, orderID id.ID) (*sales.SalesOrder, error) {
	return r.get(ctx, orderID, false)
}

// GetForUpdate loads an order with a row lock on the header.
func (r *SalesOrderRepo) GetForUpdate(ctx context.Context, orderID id.ID) (*sales.SalesOrder, error) {
	return r.get(ctx, orderID, true)
}

func (r *SalesOrderRepo) get(ctx context.Context, orderID id.ID, forUpdate bool) (*sales.SalesOrder, error) {
	q := r.builder.Select(r.columns...).
		From(salesOrdersTable).
		Where(squirrel.Eq{"id": orderID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)

	var header salesHeaderRow
	if err := pgxscan.Get(ctx, querier, &header, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("sales order", orderID)
		}
		return nil, fmt.Errorf("get sales order: %w", err)
	}

	order := header.toOrder()
	if err := r.loadLines(ctx, order); err != nil {
		return nil, err
	}
	if err := r.loadReturnIDs(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *SalesOrderRepo) loadLines(ctx context.Context, order *sales.SalesOrder) error {
	sql, args, err := r.builder.Select(
		"order_id", "position", "product_id", "sku", "name",
		"quantity", "unit_price", "total_price",
	).From(salesOrderLinesTable).
		Where(squirrel.Eq{"order_id": order.ID}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	var rows []salesLineRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return fmt.Errorf("select order lines: %w", err)
	}

	order.Lines = make([]sales.LineItem, 0, len(rows))
	for _, l := range rows {
		order.Lines = append(order.Lines, sales.LineItem{
			ProductID:  l.ProductID,
			SKU:        l.SKU,
			Name:       l.Name,
			Quantity:   types.NewQuantityFromInt64Scaled(l.Quantity),
			UnitPrice:  l.UnitPrice,
			TotalPrice: l.TotalPrice,
		})
	}
	return nil
}

func (r *SalesOrderRepo) loadReturnIDs(ctx context.Context, order *sales.SalesOrder) error {
	sql, args, err := r.builder.Select("return_id").
		From(salesOrderReturnsLink).
		Where(squirrel.Eq{"order_id": order.ID}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	var ids []id.ID
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &ids, sql, args...); err != nil {
		return fmt.Errorf("select return links: %w", err)
	}
	order.ReturnIDs = ids
	return nil
}

// Create inserts the order header and its lines.
func (r *SalesOrderRepo) Create(ctx context.Context, order *sales.SalesOrder) error {
	queries := make([]postgres.BatchQuery, 0, 1+len(order.Lines))

	headerSQL, headerArgs, err := r.builder.Insert(salesOrdersTable).
		SetMap(headerMap(order)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	queries = append(queries, postgres.BatchQuery{SQL: headerSQL, Args: headerArgs})

	for i, l := range order.Lines {
		lineSQL, lineArgs, err := r.builder.Insert(salesOrderLinesTable).
			Columns("order_id", "position", "product_id", "sku", "name", "quantity", "unit_price", "total_price").
			Values(order.ID, i, l.ProductID, l.SKU, l.Name, l.Quantity.Int64Scaled(), l.UnitPrice, l.TotalPrice).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: lineSQL, Args: lineArgs})
	}

	executor := postgres.NewBatchExecutor(r.txManager)
	if err := executor.ExecuteBatch(ctx, queries); err != nil {
		return fmt.Errorf("insert sales order: %w", err)
	}
	return nil
}

func headerMap(order *sales.SalesOrder) map[string]any {
	return map[string]any{
		"id":                 order.ID,
		"version":            order.Version,
		"created_at":         order.CreatedAt,
		"updated_at":         order.UpdatedAt,
		"created_by":         order.CreatedBy,
		"updated_by":         order.UpdatedBy,
		"number":             order.Number,
		"date":               order.Date,
		"comment":            order.Comment,
		"customer_id":        order.CustomerID,
		"location_id":        order.LocationID,
		"payment_type":       string(order.PaymentType),
		"amount_paid_cash":   order.AmountPaidCash,
		"amount_to_credit":   order.AmountToCredit,
		"credit_total":       order.CreditTotal,
		"credit_outstanding": order.CreditOutstanding,
		"due_date":           order.DueDate,
		"allowed_until":      order.AllowedUntil,
		"status":             string(order.Status),
		"payment_status":     string(order.PaymentStatus),
	}
}

// Update saves header fields with the optimistic version check and
// syncs any newly linked returns.
func (r *SalesOrderRepo) Update(ctx context.Context, order *sales.SalesOrder) error {
	order.UpdatedAt = time.Now().UTC()

	sql, args, err := r.builder.Update(salesOrdersTable).
		Set("updated_at", order.UpdatedAt).
		Set("updated_by", order.UpdatedBy).
		Set("credit_outstanding", order.CreditOutstanding).
		Set("status", string(order.Status)).
		Set("payment_status", string(order.PaymentStatus)).
		Set("version", order.Version+1).
		Where(squirrel.Eq{"id": order.ID, "version": order.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update sales order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("sales order", order.ID)
	}
	order.Version++

	for _, returnID := range order.ReturnIDs {
		linkSQL := fmt.Sprintf(
			"INSERT INTO %s (order_id, return_id, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING",
			salesOrderReturnsLink,
		)
		if _, err := querier.Exec(ctx, linkSQL, order.ID, returnID, time.Now().UTC()); err != nil {
			return fmt.Errorf("link return: %w", err)
		}
	}
	return nil
}

// ListByCustomer returns orders of one customer, newest first.
func (r *SalesOrderRepo) ListByCustomer(ctx context.Context, customerID id.ID, limit int) ([]*sales.SalesOrder, error) {
	sql, args, err := r.builder.Select(r.columns...).
		From(salesOrdersTable).
		Where(squirrel.Eq{"customer_id": customerID}).
		OrderBy("date DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var headers []salesHeaderRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &headers, sql, args...); err != nil {
		return nil, fmt.Errorf("select sales orders: %w", err)
	}

	orders := make([]*sales.SalesOrder, 0, len(headers))
	for _, h := range headers {
		order := h.toOrder()
		if err := r.loadLines(ctx, order); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}
