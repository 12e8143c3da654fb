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
	"storecore/internal/domain/procurement"
	"storecore/internal/infrastructure/storage/postgres"
)

const (
	purchaseOrdersTable    = "doc_purchase_orders"
	purchaseOrderLines     = "doc_purchase_order_lines"
	goodsReceiptsTable     = "doc_goods_receipts"
	goodsReceiptItemsTable = "doc_goods_receipt_items"
)

var _ procurement.Repository = (*PurchaseOrderRepo)(nil)

type purchaseHeaderRow struct {
	ID        id.ID     `db:"id"`
	Version   int       `db:"version"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	CreatedBy string    `db:"created_by"`
	UpdatedBy string    `db:"updated_by"`
	Number    string    `db:"number"`
	Date      time.Time `db:"date"`
	Comment   string    `db:"comment"`

	SupplierID id.ID  `db:"supplier_id"`
	Status     string `db:"status"`
}

func (h purchaseHeaderRow) toOrder() *procurement.PurchaseOrder {
	po := &procurement.PurchaseOrder{
		SupplierID: h.SupplierID,
		Status:     procurement.Status(h.Status),
	}
	po.ID = h.ID
	po.Version = h.Version
	po.CreatedAt = h.CreatedAt
	po.UpdatedAt = h.UpdatedAt
	po.CreatedBy = h.CreatedBy
	po.UpdatedBy = h.UpdatedBy
	po.Number = h.Number
	po.Date = h.Date
	po.Comment = h.Comment
	return po
}

type purchaseLineRow struct {
	ID        id.ID       `db:"id"`
	OrderID   id.ID       `db:"order_id"`
	Position  int         `db:"position"`
	ProductID id.ID       `db:"product_id"`
	Quantity  int64       `db:"quantity"`
	UnitCost  types.Money `db:"unit_cost"`
	TotalCost types.Money `db:"total_cost"`
}

type receiptRow struct {
	ID         id.ID     `db:"id"`
	OrderID    id.ID     `db:"order_id"`
	GRNNumber  string    `db:"grn_number"`
	LocationID id.ID     `db:"location_id"`
	ReceivedAt time.Time `db:"received_at"`
	ReceivedBy string    `db:"received_by"`
}

type receiptItemRow struct {
	ReceiptID id.ID `db:"receipt_id"`
	LineID    id.ID `db:"line_id"`
	ProductID id.ID `db:"product_id"`
	Quantity  int64 `db:"quantity"`
}

// PurchaseOrderRepo implements procurement.Repository.
type PurchaseOrderRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
	columns   []string
}

// NewPurchaseOrderRepo creates a purchase order repository.
func NewPurchaseOrderRepo(txManager *postgres.TxManager) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns:   postgres.ExtractDBColumns[purchaseHeaderRow](),
	}
}

// GetByID loads an order with lines and receipts.
func (r *PurchaseOrderRepo) GetByID(ctx context.Context, poID id.ID) (*procurement.PurchaseOrder, error) {
	return r.get(ctx, poID, false)
}

// GetForUpdate loads an order with a row lock on the header, so
// concurrent receipts against the same PO serialize.
func (r *PurchaseOrderRepo) GetForUpdate(ctx context.Context, poID id.ID) (*procurement.PurchaseOrder, error) {
	return r.get(ctx, poID, true)
}

func (r *PurchaseOrderRepo) get(ctx context.Context, poID id.ID, forUpdate bool) (*procurement.PurchaseOrder, error) {
	q := r.builder.Select(r.columns...).
		From(purchaseOrdersTable).
		Where(squirrel.Eq{"id": poID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)

	var header purchaseHeaderRow
	if err := pgxscan.Get(ctx, querier, &header, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("purchase order", poID)
		}
		return nil, fmt.Errorf("get purchase order: %w", err)
	}

	po := header.toOrder()
	if err := r.loadLines(ctx, po); err != nil {
		return nil, err
	}
	if err := r.loadReceipts(ctx, po); err != nil {
		return nil, err
	}
	return po, nil
}

func (r *PurchaseOrderRepo) loadLines(ctx context.Context, po *procurement.PurchaseOrder) error {
	sql, args, err := r.builder.Select(
		"id", "order_id", "position", "product_id", "quantity", "unit_cost", "total_cost",
	).From(purchaseOrderLines).
		Where(squirrel.Eq{"order_id": po.ID}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	var rows []purchaseLineRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return fmt.Errorf("select order lines: %w", err)
	}

	po.Lines = make([]procurement.POLine, 0, len(rows))
	for _, l := range rows {
		po.Lines = append(po.Lines, procurement.POLine{
			ID:        l.ID,
			ProductID: l.ProductID,
			Quantity:  types.NewQuantityFromInt64Scaled(l.Quantity),
			UnitCost:  l.UnitCost,
			TotalCost: l.TotalCost,
		})
	}
	return nil
}

func (r *PurchaseOrderRepo) loadReceipts(ctx context.Context, po *procurement.PurchaseOrder) error {
	sql, args, err := r.builder.Select(
		"id", "order_id", "grn_number", "location_id", "received_at", "received_by",
	).From(goodsReceiptsTable).
		Where(squirrel.Eq{"order_id": po.ID}).
		OrderBy("received_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)

	var receipts []receiptRow
	if err := pgxscan.Select(ctx, querier, &receipts, sql, args...); err != nil {
		return fmt.Errorf("select receipts: %w", err)
	}

	po.Receipts = make([]procurement.GoodsReceipt, 0, len(receipts))
	for _, rec := range receipts {
		itemsSQL, itemsArgs, err := r.builder.Select(
			"receipt_id", "line_id", "product_id", "quantity",
		).From(goodsReceiptItemsTable).
			Where(squirrel.Eq{"receipt_id": rec.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build query: %w", err)
		}

		var items []receiptItemRow
		if err := pgxscan.Select(ctx, querier, &items, itemsSQL, itemsArgs...); err != nil {
			return fmt.Errorf("select receipt items: %w", err)
		}

		receipt := procurement.GoodsReceipt{
			ID:         rec.ID,
			GRNNumber:  rec.GRNNumber,
			LocationID: rec.LocationID,
			ReceivedAt: rec.ReceivedAt,
			ReceivedBy: rec.ReceivedBy,
		}
		for _, item := range items {
			receipt.Items = append(receipt.Items, procurement.ReceiptItem{
				LineID:    item.LineID,
				ProductID: item.ProductID,
				Quantity:  types.NewQuantityFromInt64Scaled(item.Quantity),
			})
		}
		po.Receipts = append(po.Receipts, receipt)
	}
	return nil
}

// Create inserts the order header and its lines.
func (r *PurchaseOrderRepo) Create(ctx context.Context, po *procurement.PurchaseOrder) error {
	queries := make([]postgres.BatchQuery, 0, 1+len(po.Lines))

	headerSQL, headerArgs, err := r.builder.Insert(purchaseOrdersTable).
		SetMap(map[string]any{
			"id":          po.ID,
			"version":     po.Version,
			"created_at":  po.CreatedAt,
			"updated_at":  po.UpdatedAt,
			"created_by":  po.CreatedBy,
			"updated_by":  po.UpdatedBy,
			"number":      po.Number,
			"date":        po.Date,
			"comment":     po.Comment,
			"supplier_id": po.SupplierID,
			"status":      string(po.Status),
		}).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	queries = append(queries, postgres.BatchQuery{SQL: headerSQL, Args: headerArgs})

	for i, l := range po.Lines {
		lineSQL, lineArgs, err := r.builder.Insert(purchaseOrderLines).
			Columns("id", "order_id", "position", "product_id", "quantity", "unit_cost", "total_cost").
			Values(l.ID, po.ID, i, l.ProductID, l.Quantity.Int64Scaled(), l.UnitCost, l.TotalCost).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: lineSQL, Args: lineArgs})
	}

	executor := postgres.NewBatchExecutor(r.txManager)
	if err := executor.ExecuteBatch(ctx, queries); err != nil {
		return fmt.Errorf("insert purchase order: %w", err)
	}
	return nil
}

// Update saves header fields with the optimistic version check.
func (r *PurchaseOrderRepo) Update(ctx context.Context, po *procurement.PurchaseOrder) error {
	po.UpdatedAt = time.Now().UTC()

	sql, args, err := r.builder.Update(purchaseOrdersTable).
		Set("updated_at", po.UpdatedAt).
		Set("updated_by", po.UpdatedBy).
		Set("status", string(po.Status)).
		Set("version", po.Version+1).
		Where(squirrel.Eq{"id": po.ID, "version": po.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update purchase order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("purchase order", po.ID)
	}
	po.Version++
	return nil
}

// AppendReceipt inserts a goods receipt and its items.
func (r *PurchaseOrderRepo) AppendReceipt(ctx context.Context, poID id.ID, receipt procurement.GoodsReceipt) error {
	queries := make([]postgres.BatchQuery, 0, 1+len(receipt.Items))

	headSQL, headArgs, err := r.builder.Insert(goodsReceiptsTable).
		Columns("id", "order_id", "grn_number", "location_id", "received_at", "received_by").
		Values(receipt.ID, poID, receipt.GRNNumber, receipt.LocationID, receipt.ReceivedAt, receipt.ReceivedBy).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	queries = append(queries, postgres.BatchQuery{SQL: headSQL, Args: headArgs})

	for _, item := range receipt.Items {
		itemSQL, itemArgs, err := r.builder.Insert(goodsReceiptItemsTable).
			Columns("receipt_id", "line_id", "product_id", "quantity").
			Values(receipt.ID, item.LineID, item.ProductID, item.Quantity.Int64Scaled()).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: itemSQL, Args: itemArgs})
	}

	executor := postgres.NewBatchExecutor(r.txManager)
	if err := executor.ExecuteBatch(ctx, queries); err != nil {
		return fmt.Errorf("insert goods receipt: %w", err)
	}
	return nil
}
