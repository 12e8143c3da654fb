// Package location provides the location registry read model.
// The engines only need existence checks and names for messages.
package location

import (
	"context"

	"storecore/internal/core/apperror"
	"storecore/internal/core/entity"
	"storecore/internal/core/id"
)

// Location is a stock-keeping location (store, warehouse, backroom).
type Location struct {
	entity.BaseEntity

	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

// NewLocation creates a location record.
func NewLocation(code, name string) *Location {
	return &Location{
		BaseEntity: entity.NewBaseEntity(),
		Code:       code,
		Name:       name,
	}
}

// Validate implements entity.Validatable.
func (l *Location) Validate(ctx context.Context) error {
	if l.Code == "" {
		return apperror.NewValidation("code is required").WithDetail("field", "code")
	}
	if l.Name == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	return nil
}

// Repository defines location persistence used by the engines.
type Repository interface {
	// GetByID returns the location or a NotFound AppError.
	GetByID(ctx context.Context, locationID id.ID) (*Location, error)

	// Exists reports whether the location id is known.
	Exists(ctx context.Context, locationID id.ID) (bool, error)

	// Create inserts a location (used by seeding and tests).
	Create(ctx context.Context, l *Location) error
}
