// Package ledger provides the per (product, location) inventory ledger:
// current quantity plus the ordered list of cost-layered batches, with
// FIFO consumption.
//
// The stored quantity is always derived from the batch list inside the
// same write, and every write is guarded by a monotonic revision so
// concurrent read-modify-write cycles surface as conflicts instead of
// lost updates.
package ledger

import (
	"sort"
	"time"

	"storecore/internal/core/apperror"
	"storecore/internal/core/id"
	"storecore/internal/core/types"
	"storecore/internal/domain/journal"
)

// Batch is one cost layer: a quantity of a product received together,
// carrying its own unit cost and received date for FIFO costing.
type Batch struct {
	ID          id.ID          `db:"id" json:"id"`
	BatchNumber string         `db:"batch_number" json:"batchNumber"`
	Quantity    types.Quantity `db:"quantity" json:"quantity"`
	UnitCost    types.Money    `db:"unit_cost" json:"unitCost"`
	ReceivedAt  time.Time      `db:"received_at" json:"receivedAt"`
	ExpiresAt   time.Time      `db:"expires_at" json:"expiresAt"`

	// Source references the document that created this layer.
	SourceType journal.SourceType `db:"source_type" json:"sourceType"`
	SourceID   id.ID              `db:"source_id" json:"sourceId"`
}

// NewBatch creates a batch layer. A zero expiry defaults to one year
// after the received date.
func NewBatch(batchNumber string, quantity types.Quantity, unitCost types.Money, receivedAt time.Time, expiresAt time.Time, source journal.SourceRef) Batch {
	if expiresAt.IsZero() {
		expiresAt = receivedAt.AddDate(1, 0, 0)
	}
	return Batch{
		ID:          id.New(),
		BatchNumber: batchNumber,
		Quantity:    quantity,
		UnitCost:    unitCost,
		ReceivedAt:  receivedAt,
		ExpiresAt:   expiresAt,
		SourceType:  source.Type,
		SourceID:    source.ID,
	}
}

// Source returns the typed source reference of the layer.
func (b *Batch) Source() journal.SourceRef {
	return journal.SourceRef{Type: b.SourceType, ID: b.SourceID}
}

// Consumption records how much of one batch a FIFO draw consumed,
// at that batch's true unit cost.
type Consumption struct {
	BatchID     id.ID
	BatchNumber string
	Quantity    types.Quantity
	UnitCost    types.Money
	ReceivedAt  time.Time
	ExpiresAt   time.Time
}

// Cost returns quantity * unit cost for this slice of the draw.
func (c Consumption) Cost() types.Money {
	return c.UnitCost.Mul(c.Quantity.Decimal())
}

// TotalCost sums the cost across consumed slices.
func TotalCost(consumed []Consumption) types.Money {
	total := types.ZeroMoney()
	for _, c := range consumed {
		total = total.Add(c.Cost())
	}
	return total
}

// AverageUnitCost returns TotalCost / quantity for a FIFO draw.
func AverageUnitCost(consumed []Consumption, quantity types.Quantity) types.Money {
	if quantity.IsZero() {
		return types.ZeroMoney()
	}
	return TotalCost(consumed).Div(quantity.Decimal())
}

// StockRecord is the ledger entry for one (product, location) pair.
type StockRecord struct {
	ID         id.ID `db:"id" json:"id"`
	ProductID  id.ID `db:"product_id" json:"productId"`
	LocationID id.ID `db:"location_id" json:"locationId"`

	// Quantity always equals the sum of batch quantities; it is
	// recomputed from the batches on every mutation, never set directly.
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// Revision is the compare-and-swap guard. Incremented by the
	// repository on every successful write.
	Revision int64 `db:"revision" json:"revision"`

	// Batches ordered by received date, oldest first.
	Batches []Batch `db:"-" json:"batches"`
}

// NewStockRecord creates an empty ledger record.
func NewStockRecord(productID, locationID id.ID) *StockRecord {
	return &StockRecord{
		ID:         id.New(),
		ProductID:  productID,
		LocationID: locationID,
		Revision:   0,
		Batches:    make([]Batch, 0),
	}
}

// Available returns the sum of batch quantities.
func (r *StockRecord) Available() types.Quantity {
	var total types.Quantity
	for i := range r.Batches {
		total += r.Batches[i].Quantity
	}
	return total
}

// sortBatches orders layers oldest received first. Ties break on batch
// number so consumption order is deterministic.
func (r *StockRecord) sortBatches() {
	sort.SliceStable(r.Batches, func(i, j int) bool {
		if r.Batches[i].ReceivedAt.Equal(r.Batches[j].ReceivedAt) {
			return r.Batches[i].BatchNumber < r.Batches[j].BatchNumber
		}
		return r.Batches[i].ReceivedAt.Before(r.Batches[j].ReceivedAt)
	})
}

// recompute syncs the derived quantity with the batch list.
func (r *StockRecord) recompute() {
	r.Quantity = r.Available()
}

// AddBatch appends a cost layer and recomputes the quantity.
func (r *StockRecord) AddBatch(b Batch) {
	r.Batches = append(r.Batches, b)
	r.sortBatches()
	r.recompute()
}

// ConsumeFIFO drains the requested quantity from the oldest batches
// first, splitting the last touched batch if it is only partially
// drained. On insufficient stock the record is left untouched and an
// InsufficientStock AppError with the available quantity is returned.
func (r *StockRecord) ConsumeFIFO(quantity types.Quantity) ([]Consumption, error) {
	if !quantity.IsPositive() {
		return nil, apperror.NewValidation("consume quantity must be positive").
			WithDetail("quantity", quantity.String())
	}

	available := r.Available()
	if available < quantity {
		return nil, apperror.NewInsufficientStock(r.ProductID.String(), quantity, available)
	}

	r.sortBatches()

	consumed := make([]Consumption, 0, 2)
	remaining := quantity
	kept := r.Batches[:0]

	for i := range r.Batches {
		b := r.Batches[i]

		if remaining.IsPositive() {
			take := b.Quantity
			if take > remaining {
				take = remaining
			}
			consumed = append(consumed, Consumption{
				BatchID:     b.ID,
				BatchNumber: b.BatchNumber,
				Quantity:    take,
				UnitCost:    b.UnitCost,
				ReceivedAt:  b.ReceivedAt,
				ExpiresAt:   b.ExpiresAt,
			})
			remaining -= take
			b.Quantity -= take
		}

		// Fully drained layers are dropped; a split layer keeps its
		// identity and unit cost.
		if b.Quantity.IsPositive() {
			kept = append(kept, b)
		}
	}

	r.Batches = kept
	r.recompute()

	return consumed, nil
}

// CheckConsistency verifies the derived-quantity invariant.
func (r *StockRecord) CheckConsistency() error {
	if r.Quantity != r.Available() {
		return apperror.NewInvariantViolation("stock quantity does not match batch sum").
			WithDetail("product_id", r.ProductID.String()).
			WithDetail("location_id", r.LocationID.String()).
			WithDetail("quantity", r.Quantity.String()).
			WithDetail("batch_sum", r.Available().String())
	}
	return nil
}
