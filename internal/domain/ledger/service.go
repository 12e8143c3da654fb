package ledger

import (
	"context"
	"fmt"
	"time"

	"storecore/internal/core/apperror"
	appctx "storecore/internal/core/context"
	"storecore/internal/core/id"
	"storecore/internal/core/numerator"
	"storecore/internal/core/tx"
	"storecore/internal/core/types"
	"storecore/internal/domain/catalog/location"
	"storecore/internal/domain/catalog/product"
	"storecore/internal/domain/journal"
	"storecore/pkg/logger"
)

// Service provides ledger operations.
//
// Consume and Deposit are building blocks for the engines and must run
// inside the caller's transaction. Adjust is a complete engine operation
// and opens its own unit of work.
type Service struct {
	repo      Repository
	products  product.Repository
	locations location.Repository
	journal   *journal.Service
	numerator numerator.Generator
	txManager tx.Manager
}

// NewService creates a new ledger service.
func NewService(
	repo Repository,
	products product.Repository,
	locations location.Repository,
	journalSvc *journal.Service,
	gen numerator.Generator,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		locations: locations,
		journal:   journalSvc,
		numerator: gen,
		txManager: txManager,
	}
}

// GetStock returns the ledger record for (product, location).
func (s *Service) GetStock(ctx context.Context, productID, locationID id.ID) (*StockRecord, error) {
	return s.repo.Get(ctx, productID, locationID)
}

// AvailableQuantity returns the quantity on hand, zero if no record exists.
func (s *Service) AvailableQuantity(ctx context.Context, productID, locationID id.ID) (types.Quantity, error) {
	rec, err := s.repo.Get(ctx, productID, locationID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return rec.Quantity, nil
}

// TotalQuantity returns the product's on-hand quantity across all locations.
func (s *Service) TotalQuantity(ctx context.Context, productID id.ID) (types.Quantity, error) {
	return s.repo.TotalQuantity(ctx, productID)
}

// Consume drains quantity FIFO from (product, location) and persists the
// record. Must be called within a transaction context.
func (s *Service) Consume(ctx context.Context, productID, locationID id.ID, quantity types.Quantity) (*StockRecord, []Consumption, error) {
	rec, err := s.repo.GetForUpdate(ctx, productID, locationID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, nil, apperror.NewInsufficientStock(productID.String(), quantity, 0)
		}
		return nil, nil, err
	}

	consumed, err := rec.ConsumeFIFO(quantity)
	if err != nil {
		return nil, nil, err
	}

	if err := s.repo.Save(ctx, rec); err != nil {
		return nil, nil, fmt.Errorf("save ledger record: %w", err)
	}

	return rec, consumed, nil
}

// Deposit adds a batch layer to (product, location), creating the record
// if absent. Must be called within a transaction context.
func (s *Service) Deposit(ctx context.Context, productID, locationID id.ID, batch Batch) (*StockRecord, error) {
	rec, err := s.repo.GetForUpdate(ctx, productID, locationID)
	if err != nil {
		if !apperror.IsNotFound(err) {
			return nil, err
		}
		rec = NewStockRecord(productID, locationID)
		rec.AddBatch(batch)
		if err := s.repo.Create(ctx, rec); err != nil {
			return nil, fmt.Errorf("create ledger record: %w", err)
		}
		return rec, nil
	}

	rec.AddBatch(batch)
	if err := s.repo.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("save ledger record: %w", err)
	}

	return rec, nil
}

// NextBatchNumber allocates a batch number (BATCH-2026-00001).
func (s *Service) NextBatchNumber(ctx context.Context) (string, error) {
	cfg := numerator.DefaultConfig("BATCH")
	opts := &numerator.Options{Strategy: numerator.StrategyCached}
	return s.numerator.GetNextNumber(ctx, cfg, opts, time.Now())
}

// AdjustInput is a manual stock correction request.
type AdjustInput struct {
	ProductID   id.ID
	LocationID  id.ID
	NewQuantity types.Quantity
	Reason      string
}

// Adjust sets the quantity of (product, location) to NewQuantity.
//
// Increases add an adjustment layer at the product's running cost;
// decreases consume FIFO. The journal entry and the ledger write commit
// in one unit of work.
func (s *Service) Adjust(ctx context.Context, in AdjustInput) (*StockRecord, error) {
	if in.NewQuantity.IsNegative() {
		return nil, apperror.NewValidation("new quantity cannot be negative").
			WithDetail("quantity", in.NewQuantity.String())
	}

	prod, err := s.products.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}

	exists, err := s.locations.Exists(ctx, in.LocationID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperror.NewNotFound("location", in.LocationID.String())
	}

	adjustmentID := id.New()
	source := journal.AdjustmentSource(adjustmentID)
	userID := appctx.GetUserID(ctx)

	var result *StockRecord
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		rec, err := s.repo.GetForUpdate(ctx, in.ProductID, in.LocationID)
		if err != nil {
			if !apperror.IsNotFound(err) {
				return err
			}
			rec = NewStockRecord(in.ProductID, in.LocationID)
			if err := s.repo.Create(ctx, rec); err != nil {
				return fmt.Errorf("create ledger record: %w", err)
			}
		}

		delta := in.NewQuantity - rec.Quantity
		if delta.IsZero() {
			return apperror.NewValidation("new quantity equals current quantity").
				WithDetail("quantity", in.NewQuantity.String())
		}

		costAtTime := prod.UnitCost

		if delta.IsPositive() {
			number, err := s.NextBatchNumber(ctx)
			if err != nil {
				return fmt.Errorf("allocate batch number: %w", err)
			}
			rec.AddBatch(NewBatch(number, delta, prod.UnitCost, time.Now().UTC(), time.Time{}, source))
		} else {
			consumed, err := rec.ConsumeFIFO(delta.Neg())
			if err != nil {
				return err
			}
			costAtTime = AverageUnitCost(consumed, delta.Neg())
		}

		if err := s.repo.Save(ctx, rec); err != nil {
			return fmt.Errorf("save ledger record: %w", err)
		}

		entry := journal.NewStockTransaction(
			journal.TxTypeAdjust,
			in.ProductID, in.LocationID,
			delta, costAtTime, rec.Quantity,
			userID, source,
		)
		if err := s.journal.Append(ctx, entry); err != nil {
			return err
		}

		result = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock adjusted",
		"product_id", in.ProductID,
		"location_id", in.LocationID,
		"new_quantity", in.NewQuantity.String(),
		"reason", in.Reason,
	)

	return result, nil
}
