package returns

import (
	"context"
	"fmt"
	"time"

	"storecore/internal/core/apperror"
	appctx "storecore/internal/core/context"
	"storecore/internal/core/id"
	"storecore/internal/core/numerator"
	"storecore/internal/core/policy"
	"storecore/internal/core/tx"
	"storecore/internal/core/types"
	"storecore/internal/domain/catalog/location"
	"storecore/internal/domain/catalog/product"
	"storecore/internal/domain/credit"
	"storecore/internal/domain/events"
	"storecore/internal/domain/journal"
	"storecore/internal/domain/ledger"
	"storecore/internal/domain/sales"
	"storecore/pkg/logger"
)

// DefaultWindowDays is the return eligibility window used when the
// service is constructed with a non-positive value.
const DefaultWindowDays = 30

// Service is the returns and restocking engine.
type Service struct {
	repo       Repository
	orders     sales.Repository
	products   product.Repository
	locations  location.Repository
	ledger     *ledger.Service
	journal    *journal.Service
	credit     *credit.Service
	numerator  numerator.Generator
	txManager  tx.Manager
	publisher  events.Publisher
	policy     *policy.Engine
	windowDays int
}

// NewService creates the returns service.
func NewService(
	repo Repository,
	orders sales.Repository,
	products product.Repository,
	locations location.Repository,
	ledgerSvc *ledger.Service,
	journalSvc *journal.Service,
	creditSvc *credit.Service,
	gen numerator.Generator,
	txManager tx.Manager,
	publisher events.Publisher,
	policyEngine *policy.Engine,
	windowDays int,
) *Service {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	return &Service{
		repo:       repo,
		orders:     orders,
		products:   products,
		locations:  locations,
		ledger:     ledgerSvc,
		journal:    journalSvc,
		credit:     creditSvc,
		numerator:  gen,
		txManager:  txManager,
		publisher:  publisher,
		policy:     policyEngine,
		windowDays: windowDays,
	}
}

// ReturnItemInput is one requested return position.
type ReturnItemInput struct {
	ProductID id.ID
	Quantity  types.Quantity
	Reason    string
}

// CreateInput is the return contract. RestockLocationID nil means the
// goods do not go back to stock.
type CreateInput struct {
	SalesOrderID      id.ID
	Items             []ReturnItemInput
	RestockLocationID *id.ID
	Comment           string
}

// Create processes a return: it validates eligibility, refunds at the
// order's frozen prices, optionally restocks, and releases outstanding
// credit, all in one unit of work.
func (s *Service) Create(ctx context.Context, in CreateInput) (*ReturnsExchange, error) {
	if len(in.Items) == 0 {
		return nil, apperror.NewValidation("at least one return item is required")
	}
	if in.RestockLocationID != nil {
		exists, err := s.locations.Exists(ctx, *in.RestockLocationID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperror.NewNotFound("location", in.RestockLocationID.String())
		}
	}

	userID := appctx.GetUserID(ctx)

	var ret *ReturnsExchange
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		order, err := s.orders.GetForUpdate(ctx, in.SalesOrderID)
		if err != nil {
			return err
		}

		prior, err := s.repo.ListByOrder(ctx, order.ID)
		if err != nil {
			return err
		}

		ret = NewReturnsExchange(order.ID, order.CustomerID)
		ret.Comment = in.Comment
		ret.RestockLocationID = in.RestockLocationID

		daysSinceSale := int(time.Since(order.Date).Hours() / 24)

		refund := types.ZeroMoney()
		for _, item := range in.Items {
			if !item.Quantity.IsPositive() {
				return apperror.NewValidation("return quantity must be positive").
					WithDetail("product_id", item.ProductID)
			}

			unitPrice, onOrder := order.UnitPriceOf(item.ProductID)
			if !onOrder {
				return apperror.NewValidation("product is not on the order").
					WithDetail("product_id", item.ProductID)
			}

			prod, err := s.products.GetByID(ctx, item.ProductID)
			if err != nil {
				return err
			}
			allowed, err := s.policy.ReturnAllowed(policy.ReturnCheck{
				DaysSinceSale: daysSinceSale,
				WindowDays:    s.windowDays,
				AllowReturns:  prod.AllowReturns,
			})
			if err != nil {
				return fmt.Errorf("evaluate return policy: %w", err)
			}
			if !allowed {
				return apperror.NewValidation("product is not eligible for return").
					WithDetail("product_id", item.ProductID).
					WithDetail("days_since_sale", daysSinceSale).
					WithDetail("window_days", s.windowDays)
			}

			eligible := order.OrderedQuantity(item.ProductID)
			for _, p := range prior {
				eligible -= p.ReturnedQuantity(item.ProductID)
			}
			eligible -= ret.ReturnedQuantity(item.ProductID)
			if item.Quantity > eligible {
				return apperror.NewValidation("return exceeds eligible quantity").
					WithDetail("product_id", item.ProductID).
					WithDetail("requested", item.Quantity.String()).
					WithDetail("eligible", eligible.String())
			}

			ret.Lines = append(ret.Lines, ReturnLine{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Reason:    item.Reason,
				UnitPrice: unitPrice,
			})
			refund = refund.Add(unitPrice.Mul(item.Quantity.Decimal()))
		}
		ret.RefundAmount = refund
		ret.SetCreatedBy(userID)

		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("RET"), nil, ret.Date)
		if err != nil {
			return fmt.Errorf("allocate return number: %w", err)
		}
		ret.Number = number

		if in.RestockLocationID != nil {
			if err := s.restock(ctx, ret, *in.RestockLocationID, userID); err != nil {
				return err
			}
		}

		if order.CreditOutstanding.IsPositive() {
			released := order.ReduceOutstanding(refund)
			if released.IsPositive() {
				if _, err := s.credit.Release(ctx, order.CustomerID, released); err != nil {
					return err
				}
				ret.CreditReleased = released
			}
		} else if order.PaymentType == sales.PaymentCash {
			order.PaymentStatus = sales.PaymentStatusRefunded
		}

		if err := order.RegisterReturn(ret.ID); err != nil {
			return err
		}
		order.SetUpdatedBy(userID)

		if err := s.repo.Create(ctx, ret); err != nil {
			return fmt.Errorf("create return: %w", err)
		}
		if err := s.orders.Update(ctx, order); err != nil {
			return err
		}

		return s.publisher.Publish(ctx, events.Event{
			AggregateType: "ReturnsExchange",
			AggregateID:   ret.ID,
			Type:          events.TypeReturnProcessed,
			Payload: map[string]any{
				"return_id":       ret.ID,
				"order_id":        order.ID,
				"refund_amount":   refund.String(),
				"credit_released": ret.CreditReleased.String(),
				"restocked":       in.RestockLocationID != nil,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "return processed",
		"return_id", ret.ID,
		"order_id", in.SalesOrderID,
		"refund", ret.RefundAmount.String(),
	)
	return ret, nil
}

// restock deposits the returned quantities back into the ledger as new
// batches at the product's current running cost and journals RETURN
// movements.
func (s *Service) restock(ctx context.Context, ret *ReturnsExchange, locationID id.ID, userID string) error {
	source := journal.ReturnSource(ret.ID)
	entries := make([]journal.StockTransaction, 0, len(ret.Lines))

	for _, line := range ret.Lines {
		prod, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return err
		}

		number, err := s.ledger.NextBatchNumber(ctx)
		if err != nil {
			return fmt.Errorf("allocate batch number: %w", err)
		}
		batch := ledger.NewBatch(number, line.Quantity, prod.UnitCost, time.Now().UTC(), time.Time{}, source)
		rec, err := s.ledger.Deposit(ctx, line.ProductID, locationID, batch)
		if err != nil {
			return err
		}

		entries = append(entries, journal.NewStockTransaction(
			journal.TxTypeReturn,
			line.ProductID, locationID,
			line.Quantity, prod.UnitCost, rec.Quantity,
			userID, source,
		))
	}
	return s.journal.Append(ctx, entries...)
}

// GetReturn loads a return by id.
func (s *Service) GetReturn(ctx context.Context, returnID id.ID) (*ReturnsExchange, error) {
	return s.repo.GetByID(ctx, returnID)
}

// ListByOrder returns all returns of one sales order.
func (s *Service) ListByOrder(ctx context.Context, orderID id.ID) ([]*ReturnsExchange, error) {
	return s.repo.ListByOrder(ctx, orderID)
}
