// Package product provides the product read model consumed by the engines.
// Full catalog management lives outside this core; the engines only read
// pricing/costing fields and maintain the running cost + cost history.
package product

import (
	"context"
	"time"

	"storecore/internal/core/apperror"
	"storecore/internal/core/entity"
	"storecore/internal/core/id"
	"storecore/internal/core/types"
)

// Product carries the fields the transaction engines depend on.
type Product struct {
	entity.BaseEntity

	SKU  string `db:"sku" json:"sku"`
	Name string `db:"name" json:"name"`

	// SellingPrice is the authoritative price; client-submitted prices
	// are ignored at checkout.
	SellingPrice types.Money `db:"selling_price" json:"sellingPrice"`

	// UnitCost is the running weighted-average cost, recomputed on each
	// goods receipt.
	UnitCost types.Money `db:"unit_cost" json:"unitCost"`

	AllowReturns bool `db:"allow_returns" json:"allowReturns"`
}

// NewProduct creates a product record.
func NewProduct(sku, name string, sellingPrice, unitCost types.Money) *Product {
	return &Product{
		BaseEntity:   entity.NewBaseEntity(),
		SKU:          sku,
		Name:         name,
		SellingPrice: sellingPrice,
		UnitCost:     unitCost,
		AllowReturns: true,
	}
}

// Validate implements entity.Validatable.
func (p *Product) Validate(ctx context.Context) error {
	if p.SKU == "" {
		return apperror.NewValidation("sku is required").WithDetail("field", "sku")
	}
	if p.Name == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if p.SellingPrice.IsNegative() {
		return apperror.NewValidation("selling price cannot be negative")
	}
	if p.UnitCost.IsNegative() {
		return apperror.NewValidation("unit cost cannot be negative")
	}
	return nil
}

// CostChange is one entry in a product's cost history, appended whenever
// the running weighted-average cost is recomputed.
type CostChange struct {
	ID        id.ID       `db:"id" json:"id"`
	ProductID id.ID       `db:"product_id" json:"productId"`
	UnitCost  types.Money `db:"unit_cost" json:"unitCost"`
	ChangedAt time.Time   `db:"changed_at" json:"changedAt"`

	// Source describes what produced the change (e.g. a GRN number).
	Source string `db:"source" json:"source"`
}

// NewCostChange creates a cost history entry.
func NewCostChange(productID id.ID, unitCost types.Money, source string) CostChange {
	return CostChange{
		ID:        id.New(),
		ProductID: productID,
		UnitCost:  unitCost,
		ChangedAt: time.Now().UTC(),
		Source:    source,
	}
}
