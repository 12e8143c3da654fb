package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"storecore/internal/core/apperror"
	"storecore/internal/core/id"
	"storecore/internal/domain/catalog/location"
	"storecore/internal/infrastructure/storage/postgres"
)

const locationsTable = "cat_locations"

var _ location.Repository = (*LocationRepo)(nil)

// LocationRepo implements location.Repository.
type LocationRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
	columns   []string
}

// NewLocationRepo creates a location repository.
func NewLocationRepo(txManager *postgres.TxManager) *LocationRepo {
	return &LocationRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns:   postgres.ExtractDBColumns[location.Location](),
	}
}

// GetByID returns the location or NotFound.
func (r *LocationRepo) GetByID(ctx context.Context, locationID id.ID) (*location.Location, error) {
	sql, args, err := r.builder.Select(r.columns...).
		From(locationsTable).
		Where(squirrel.Eq{"id": locationID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var l location.Location
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &l, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("location", locationID)
		}
		return nil, fmt.Errorf("get location: %w", err)
	}
	return &l, nil
}

// Exists reports whether the location id is known.
func (r *LocationRepo) Exists(ctx context.Context, locationID id.ID) (bool, error) {
	sql, args, err := r.builder.Select("1").
		From(locationsTable).
		Where(squirrel.Eq{"id": locationID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &one, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("check location: %w", err)
	}
	return true, nil
}

// Create inserts a location.
func (r *LocationRepo) Create(ctx context.Context, l *location.Location) error {
	sql, args, err := r.builder.Insert(locationsTable).
		SetMap(postgres.StructToMap(l)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert location: %w", err)
	}
	return nil
}
