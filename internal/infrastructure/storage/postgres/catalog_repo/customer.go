package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"storecore/internal/core/apperror"
	"storecore/internal/core/id"
	"storecore/internal/domain/catalog/customer"
	"storecore/internal/infrastructure/storage/postgres"
)

const customersTable = "cat_customers"

var _ customer.Repository = (*CustomerRepo)(nil)

// CustomerRepo implements customer.Repository.
type CustomerRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
	columns   []string
}

// NewCustomerRepo creates a customer repository.
func NewCustomerRepo(txManager *postgres.TxManager) *CustomerRepo {
	return &CustomerRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns:   postgres.ExtractDBColumns[customer.Customer](),
	}
}

// GetByID returns the customer or NotFound.
func (r *CustomerRepo) GetByID(ctx context.Context, customerID id.ID) (*customer.Customer, error) {
	return r.get(ctx, customerID, false)
}

// GetForUpdate returns the customer with a row lock, so concurrent
// credit bookings against the same customer serialize.
func (r *CustomerRepo) GetForUpdate(ctx context.Context, customerID id.ID) (*customer.Customer, error) {
	return r.get(ctx, customerID, true)
}

func (r *CustomerRepo) get(ctx context.Context, customerID id.ID, forUpdate bool) (*customer.Customer, error) {
	q := r.builder.Select(r.columns...).
		From(customersTable).
		Where(squirrel.Eq{"id": customerID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var c customer.Customer
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &c, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("customer", customerID)
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &c, nil
}

// Create inserts a customer.
func (r *CustomerRepo) Create(ctx context.Context, c *customer.Customer) error {
	sql, args, err := r.builder.Insert(customersTable).
		SetMap(postgres.StructToMap(c)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

// UpdateBalance writes the credit balance under the optimistic version
// check.
func (r *CustomerRepo) UpdateBalance(ctx context.Context, c *customer.Customer) error {
	sql, args, err := r.builder.Update(customersTable).
		Set("current_balance", c.CurrentBalance).
		Set("version", c.Version+1).
		Where(squirrel.Eq{"id": c.ID, "version": c.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update customer balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("customer", c.ID)
	}
	c.Version++
	return nil
}
