// Package catalog_repo implements the catalog read models (products,
// customers, locations) on PostgreSQL.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"storecore/internal/core/apperror"
	"storecore/internal/core/id"
	"storecore/internal/domain/catalog/product"
	"storecore/internal/infrastructure/storage/postgres"
)

const (
	productsTable    = "cat_products"
	costHistoryTable = "cat_product_cost_history"
)

var _ product.Repository = (*ProductRepo)(nil)

// ProductRepo implements product.Repository.
type ProductRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
	columns   []string
}

// NewProductRepo creates a product repository.
func NewProductRepo(txManager *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns:   postgres.ExtractDBColumns[product.Product](),
	}
}

// GetByID returns the product or NotFound.
func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	sql, args, err := r.builder.Select(r.columns...).
		From(productsTable).
		Where(squirrel.Eq{"id": productID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p product.Product
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", productID)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// GetByIDs returns products keyed by id. Missing ids are absent.
func (r *ProductRepo) GetByIDs(ctx context.Context, productIDs []id.ID) (map[id.ID]*product.Product, error) {
	if len(productIDs) == 0 {
		return map[id.ID]*product.Product{}, nil
	}

	sql, args, err := r.builder.Select(r.columns...).
		From(productsTable).
		Where(squirrel.Eq{"id": productIDs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var products []*product.Product
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &products, sql, args...); err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}

	result := make(map[id.ID]*product.Product, len(products))
	for _, p := range products {
		result[p.ID] = p
	}
	return result, nil
}

// Create inserts a product.
func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	sql, args, err := r.builder.Insert(productsTable).
		SetMap(postgres.StructToMap(p)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// UpdateUnitCost writes the running cost under the optimistic version
// check and appends the cost history entry in one statement batch.
// Must be called within a transaction context.
func (r *ProductRepo) UpdateUnitCost(ctx context.Context, p *product.Product, change product.CostChange) error {
	updateSQL, updateArgs, err := r.builder.Update(productsTable).
		Set("unit_cost", p.UnitCost).
		Set("version", p.Version+1).
		Where(squirrel.Eq{"id": p.ID, "version": p.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, updateSQL, updateArgs...)
	if err != nil {
		return fmt.Errorf("update unit cost: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("product", p.ID)
	}
	p.Version++

	histSQL, histArgs, err := r.builder.Insert(costHistoryTable).
		Columns("id", "product_id", "unit_cost", "changed_at", "source").
		Values(change.ID, change.ProductID, change.UnitCost, change.ChangedAt, change.Source).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := querier.Exec(ctx, histSQL, histArgs...); err != nil {
		return fmt.Errorf("insert cost history: %w", err)
	}
	return nil
}

// CostHistory returns cost changes for a product, newest first.
func (r *ProductRepo) CostHistory(ctx context.Context, productID id.ID, limit int) ([]product.CostChange, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	sql, args, err := r.builder.Select("id", "product_id", "unit_cost", "changed_at", "source").
		From(costHistoryTable).
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("changed_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var changes []product.CostChange
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &changes, sql, args...); err != nil {
		return nil, fmt.Errorf("select cost history: %w", err)
	}
	return changes, nil
}
