package transfer

import (
	"context"
	"fmt"

	"storecore/internal/core/apperror"
	appctx "storecore/internal/core/context"
	"storecore/internal/core/id"
	"storecore/internal/core/numerator"
	"storecore/internal/core/tx"
	"storecore/internal/core/types"
	"storecore/internal/domain/catalog/location"
	"storecore/internal/domain/catalog/product"
	"storecore/internal/domain/events"
	"storecore/internal/domain/journal"
	"storecore/internal/domain/ledger"
	"storecore/pkg/logger"
)

// Service is the stock transfer engine.
type Service struct {
	repo      Repository
	products  product.Repository
	locations location.Repository
	ledger    *ledger.Service
	journal   *journal.Service
	numerator numerator.Generator
	txManager tx.Manager
	publisher events.Publisher
}

// NewService creates the transfer service.
func NewService(
	repo Repository,
	products product.Repository,
	locations location.Repository,
	ledgerSvc *ledger.Service,
	journalSvc *journal.Service,
	gen numerator.Generator,
	txManager tx.Manager,
	publisher events.Publisher,
) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		locations: locations,
		ledger:    ledgerSvc,
		journal:   journalSvc,
		numerator: gen,
		txManager: txManager,
		publisher: publisher,
	}
}

// Create registers a pending transfer. Stock does not move until Complete.
func (s *Service) Create(ctx context.Context, productID, from, to id.ID, quantity types.Quantity) (*StockTransfer, error) {
	t := NewStockTransfer(productID, from, to, quantity)
	if err := t.Validate(ctx); err != nil {
		return nil, err
	}

	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	for _, locID := range []id.ID{from, to} {
		exists, err := s.locations.Exists(ctx, locID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperror.NewNotFound("location", locID.String())
		}
	}

	t.SetCreatedBy(appctx.GetUserID(ctx))

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("TRF"), nil, t.Date)
		if err != nil {
			return fmt.Errorf("allocate transfer number: %w", err)
		}
		t.Number = number
		return s.repo.Create(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Dispatch transitions a pending transfer to in transit.
func (s *Service) Dispatch(ctx context.Context, transferID id.ID) (*StockTransfer, error) {
	return s.transition(ctx, transferID, (*StockTransfer).MarkInTransit)
}

// Cancel cancels a pending or in-transit transfer. No stock has moved
// yet, so no ledger writes happen.
func (s *Service) Cancel(ctx context.Context, transferID id.ID) (*StockTransfer, error) {
	return s.transition(ctx, transferID, (*StockTransfer).Cancel)
}

func (s *Service) transition(ctx context.Context, transferID id.ID, apply func(*StockTransfer) error) (*StockTransfer, error) {
	var t *StockTransfer
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		t, err = s.repo.GetForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if err := apply(t); err != nil {
			return err
		}
		t.SetUpdatedBy(appctx.GetUserID(ctx))
		return s.repo.Update(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Complete moves the stock: it drains the quantity FIFO at the source and
// merges the consumed layers into the destination at their original unit
// costs and received dates. If the source has dropped below the transfer
// quantity the whole operation fails and both locations stay untouched.
func (s *Service) Complete(ctx context.Context, transferID id.ID) (*StockTransfer, error) {
	userID := appctx.GetUserID(ctx)

	var t *StockTransfer
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		t, err = s.repo.GetForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if err := t.MarkCompleted(); err != nil {
			return err
		}

		source := journal.TransferSource(t.ID)

		srcRec, consumed, err := s.ledger.Consume(ctx, t.ProductID, t.FromLocationID, t.Quantity)
		if err != nil {
			return err
		}

		var dstRec *ledger.StockRecord
		for _, c := range consumed {
			batch := ledger.NewBatch(c.BatchNumber, c.Quantity, c.UnitCost, c.ReceivedAt, c.ExpiresAt, source)
			dstRec, err = s.ledger.Deposit(ctx, t.ProductID, t.ToLocationID, batch)
			if err != nil {
				return err
			}
		}

		avgCost := ledger.AverageUnitCost(consumed, t.Quantity)
		entries := []journal.StockTransaction{
			journal.NewStockTransaction(
				journal.TxTypeTransfer,
				t.ProductID, t.FromLocationID,
				t.Quantity.Neg(), avgCost, srcRec.Quantity,
				userID, source,
			),
			journal.NewStockTransaction(
				journal.TxTypeTransfer,
				t.ProductID, t.ToLocationID,
				t.Quantity, avgCost, dstRec.Quantity,
				userID, source,
			),
		}
		if err := s.journal.Append(ctx, entries...); err != nil {
			return err
		}

		t.SetUpdatedBy(userID)
		if err := s.repo.Update(ctx, t); err != nil {
			return err
		}

		return s.publisher.Publish(ctx, events.Event{
			AggregateType: "StockTransfer",
			AggregateID:   t.ID,
			Type:          events.TypeTransferCompleted,
			Payload: map[string]any{
				"transfer_id": t.ID,
				"product_id":  t.ProductID,
				"from":        t.FromLocationID,
				"to":          t.ToLocationID,
				"quantity":    t.Quantity.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "transfer completed",
		"transfer_id", t.ID,
		"number", t.Number,
		"quantity", t.Quantity.String(),
	)
	return t, nil
}

// Get loads a transfer by id.
func (s *Service) Get(ctx context.Context, transferID id.ID) (*StockTransfer, error) {
	return s.repo.GetByID(ctx, transferID)
}
