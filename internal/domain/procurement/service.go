package procurement

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
	"storecore/internal/domain/events"
	"storecore/internal/domain/journal"
	"storecore/internal/domain/ledger"
	"storecore/pkg/logger"
)

// Service is the procurement receiving engine.
type Service struct {
	orders    Repository
	products  product.Repository
	locations location.Repository
	ledger    *ledger.Service
	journal   *journal.Service
	numerator numerator.Generator
	txManager tx.Manager
	publisher events.Publisher
}

// NewService creates the procurement service.
func NewService(
	orders Repository,
	products product.Repository,
	locations location.Repository,
	ledgerSvc *ledger.Service,
	journalSvc *journal.Service,
	gen numerator.Generator,
	txManager tx.Manager,
	publisher events.Publisher,
) *Service {
	return &Service{
		orders:    orders,
		products:  products,
		locations: locations,
		ledger:    ledgerSvc,
		journal:   journalSvc,
		numerator: gen,
		txManager: txManager,
		publisher: publisher,
	}
}

// OrderLineInput describes one ordered line.
type OrderLineInput struct {
	ProductID id.ID
	Quantity  types.Quantity
	UnitCost  types.Money
}

// CreateOrder creates a draft purchase order with frozen line costs.
func (s *Service) CreateOrder(ctx context.Context, supplierID id.ID, lines []OrderLineInput, comment string) (*PurchaseOrder, error) {
	poLines := make([]POLine, 0, len(lines))
	for _, l := range lines {
		if _, err := s.products.GetByID(ctx, l.ProductID); err != nil {
			return nil, err
		}
		poLines = append(poLines, NewPOLine(l.ProductID, l.Quantity, l.UnitCost))
	}

	po := NewPurchaseOrder(supplierID, poLines)
	po.Comment = comment
	if err := po.Validate(ctx); err != nil {
		return nil, err
	}
	po.SetCreatedBy(appctx.GetUserID(ctx))

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("PO"), nil, po.Date)
		if err != nil {
			return fmt.Errorf("allocate order number: %w", err)
		}
		po.Number = number
		return s.orders.Create(ctx, po)
	})
	if err != nil {
		return nil, err
	}
	return po, nil
}

// Send transitions a draft order to Sent.
func (s *Service) Send(ctx context.Context, poID id.ID) (*PurchaseOrder, error) {
	return s.transition(ctx, poID, (*PurchaseOrder).MarkSent)
}

// Cancel cancels a draft order.
func (s *Service) Cancel(ctx context.Context, poID id.ID) (*PurchaseOrder, error) {
	return s.transition(ctx, poID, (*PurchaseOrder).Cancel)
}

func (s *Service) transition(ctx context.Context, poID id.ID, apply func(*PurchaseOrder) error) (*PurchaseOrder, error) {
	var po *PurchaseOrder
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		po, err = s.orders.GetForUpdate(ctx, poID)
		if err != nil {
			return err
		}
		if err := apply(po); err != nil {
			return err
		}
		po.SetUpdatedBy(appctx.GetUserID(ctx))
		return s.orders.Update(ctx, po)
	})
	if err != nil {
		return nil, err
	}
	return po, nil
}

// ReceiveItemInput is one received position.
type ReceiveItemInput struct {
	LineID   id.ID
	Quantity types.Quantity
}

// ReceiveInput is the goods receiving contract.
type ReceiveInput struct {
	POID       id.ID
	LocationID id.ID
	Items      []ReceiveItemInput
}

// runningCost tracks the weighted-average state of one product during a
// receipt, so a product appearing on several lines blends each line into
// the cost produced by the previous one instead of a stale value.
type runningCost struct {
	quantity types.Quantity
	cost     types.Money
}

func (r *runningCost) blend(quantity types.Quantity, unitCost types.Money) {
	newQty := r.quantity + quantity
	if !newQty.IsPositive() {
		return
	}
	oldValue := r.cost.Mul(r.quantity.Decimal())
	addValue := unitCost.Mul(quantity.Decimal())
	r.cost = oldValue.Add(addValue).Div(newQty.Decimal())
	r.quantity = newQty
}

// Receive processes a goods receipt against a purchase order: it creates
// cost batches, journals IN movements at the received cost, recomputes
// each product's weighted-average running cost and advances the PO status.
func (s *Service) Receive(ctx context.Context, in ReceiveInput) (*PurchaseOrder, error) {
	if len(in.Items) == 0 {
		return nil, apperror.NewValidation("at least one received item is required")
	}

	exists, err := s.locations.Exists(ctx, in.LocationID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperror.NewNotFound("location", in.LocationID.String())
	}

	userID := appctx.GetUserID(ctx)

	var po *PurchaseOrder
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		po, err = s.orders.GetForUpdate(ctx, in.POID)
		if err != nil {
			return err
		}
		if !po.AcceptsReceipts() {
			return apperror.NewInvalidTransition("purchase order", string(po.Status), string(StatusPartiallyReceived)).
				WithDetail("reason", "order does not accept receipts")
		}

		grn, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("GRN"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("allocate grn number: %w", err)
		}
		receipt := GoodsReceipt{
			ID:         id.New(),
			GRNNumber:  grn,
			LocationID: in.LocationID,
			ReceivedAt: time.Now().UTC(),
			ReceivedBy: userID,
		}

		// Pre-validate every item against remaining quantities, counting
		// lines of this same receipt, before touching the ledger.
		pending := make(map[id.ID]types.Quantity)
		for _, item := range in.Items {
			if !item.Quantity.IsPositive() {
				return apperror.NewValidation("received quantity must be positive").
					WithDetail("line_id", item.LineID)
			}
			line, ok := po.Line(item.LineID)
			if !ok {
				return apperror.NewNotFound("purchase order line", item.LineID.String())
			}
			already := po.ReceivedQuantity(item.LineID) + pending[item.LineID]
			remaining := line.Quantity - already
			if item.Quantity > remaining {
				return apperror.NewInvariantViolation("receipt exceeds remaining ordered quantity").
					WithDetail("line_id", item.LineID).
					WithDetail("remaining", remaining.String()).
					WithDetail("received", item.Quantity.String())
			}
			pending[item.LineID] += item.Quantity
		}

		costs := make(map[id.ID]*runningCost)
		source := journal.PurchaseOrderSource(po.ID)
		entries := make([]journal.StockTransaction, 0, len(in.Items))

		for _, item := range in.Items {
			line, _ := po.Line(item.LineID)

			rc, ok := costs[line.ProductID]
			if !ok {
				prod, err := s.products.GetByID(ctx, line.ProductID)
				if err != nil {
					return err
				}
				onHand, err := s.ledger.TotalQuantity(ctx, line.ProductID)
				if err != nil {
					return err
				}
				rc = &runningCost{quantity: onHand, cost: prod.UnitCost}
				costs[line.ProductID] = rc
			}
			rc.blend(item.Quantity, line.UnitCost)

			number, err := s.ledger.NextBatchNumber(ctx)
			if err != nil {
				return fmt.Errorf("allocate batch number: %w", err)
			}
			batch := ledger.NewBatch(number, item.Quantity, line.UnitCost, receipt.ReceivedAt, time.Time{}, source)
			rec, err := s.ledger.Deposit(ctx, line.ProductID, in.LocationID, batch)
			if err != nil {
				return err
			}

			entries = append(entries, journal.NewStockTransaction(
				journal.TxTypeIn,
				line.ProductID, in.LocationID,
				item.Quantity, line.UnitCost, rec.Quantity,
				userID, source,
			))
			receipt.Items = append(receipt.Items, ReceiptItem{
				LineID:    item.LineID,
				ProductID: line.ProductID,
				Quantity:  item.Quantity,
			})
		}

		if err := s.journal.Append(ctx, entries...); err != nil {
			return err
		}

		for productID, rc := range costs {
			prod, err := s.products.GetByID(ctx, productID)
			if err != nil {
				return err
			}
			prod.UnitCost = rc.cost
			change := product.NewCostChange(productID, rc.cost, grn)
			if err := s.products.UpdateUnitCost(ctx, prod, change); err != nil {
				return err
			}
		}

		if err := s.orders.AppendReceipt(ctx, po.ID, receipt); err != nil {
			return fmt.Errorf("append goods receipt: %w", err)
		}
		po.Receipts = append(po.Receipts, receipt)
		po.RecomputeStatus()
		po.SetUpdatedBy(userID)
		if err := s.orders.Update(ctx, po); err != nil {
			return err
		}

		return s.publisher.Publish(ctx, events.Event{
			AggregateType: "PurchaseOrder",
			AggregateID:   po.ID,
			Type:          events.TypeGoodsReceived,
			Payload: map[string]any{
				"po_id":       po.ID,
				"grn_number":  grn,
				"location_id": in.LocationID,
				"items":       len(receipt.Items),
				"status":      po.Status,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "goods received",
		"po_id", po.ID,
		"number", po.Number,
		"location_id", in.LocationID,
		"status", po.Status,
	)
	return po, nil
}

// GetOrder loads a purchase order by id.
func (s *Service) GetOrder(ctx context.Context, poID id.ID) (*PurchaseOrder, error) {
	return s.orders.GetByID(ctx, poID)
}
