package sales

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
	"storecore/internal/domain/catalog/customer"
	"storecore/internal/domain/catalog/product"
	"storecore/internal/domain/credit"
	"storecore/internal/domain/events"
	"storecore/internal/domain/journal"
	"storecore/internal/domain/ledger"
	"storecore/pkg/logger"
)

// Service is the checkout fulfillment engine.
type Service struct {
	orders    Repository
	products  product.Repository
	customers customer.Repository
	ledger    *ledger.Service
	journal   *journal.Service
	credit    *credit.Service
	numerator numerator.Generator
	txManager tx.Manager
	publisher events.Publisher
}

// NewService creates the sales service.
func NewService(
	orders Repository,
	products product.Repository,
	customers customer.Repository,
	ledgerSvc *ledger.Service,
	journalSvc *journal.Service,
	creditSvc *credit.Service,
	gen numerator.Generator,
	txManager tx.Manager,
	publisher events.Publisher,
) *Service {
	return &Service{
		orders:    orders,
		products:  products,
		customers: customers,
		ledger:    ledgerSvc,
		journal:   journalSvc,
		credit:    creditSvc,
		numerator: gen,
		txManager: txManager,
		publisher: publisher,
	}
}

// CheckoutItem is a requested order line. Prices are not accepted from
// the client; the engine reads them from the catalog.
type CheckoutItem struct {
	ProductID id.ID
	Quantity  types.Quantity
}

// CheckoutInput is the checkout contract.
type CheckoutInput struct {
	CustomerID id.ID
	LocationID id.ID
	Items      []CheckoutItem

	PaymentType    PaymentType
	AmountPaidCash types.Money
	AmountToCredit types.Money

	DueDate   *time.Time
	GraceDays int

	Comment string
}

// Checkout fulfills a sale: it freezes prices, deducts stock FIFO, books
// credit and journals every movement in one unit of work.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (*SalesOrder, error) {
	if len(in.Items) == 0 {
		return nil, apperror.NewValidation("at least one item is required")
	}
	if !in.PaymentType.IsValid() {
		return nil, apperror.NewValidation("unknown payment type").
			WithDetail("payment_type", string(in.PaymentType))
	}

	// Cash sales reference the customer too, so the id must resolve
	// before anything is written.
	if _, err := s.customers.GetByID(ctx, in.CustomerID); err != nil {
		return nil, err
	}

	order := NewSalesOrder(in.CustomerID, in.LocationID)
	order.PaymentType = in.PaymentType
	order.Comment = in.Comment

	if err := s.buildLines(ctx, order, in); err != nil {
		return nil, err
	}

	total := order.GrandTotal()
	switch in.PaymentType {
	case PaymentCash:
		order.AmountPaidCash = total
		order.AmountToCredit = types.ZeroMoney()
	case PaymentCredit:
		order.AmountPaidCash = types.ZeroMoney()
		order.AmountToCredit = total
	case PaymentSplit:
		order.AmountPaidCash = in.AmountPaidCash
		order.AmountToCredit = in.AmountToCredit
	}

	creditAmount := order.AmountToCredit
	if creditAmount.IsPositive() {
		if _, err := s.credit.CheckAvailable(ctx, in.CustomerID, creditAmount); err != nil {
			return nil, err
		}
		order.CreditTotal = creditAmount
		order.CreditOutstanding = creditAmount
		order.PaymentStatus = PaymentStatusOutstanding
		order.DueDate = in.DueDate
		if in.DueDate != nil {
			allowed := in.DueDate.AddDate(0, 0, in.GraceDays)
			order.AllowedUntil = &allowed
		}
	} else {
		order.PaymentStatus = PaymentStatusPaid
	}

	if err := order.Validate(ctx); err != nil {
		return nil, err
	}

	userID := appctx.GetUserID(ctx)
	order.SetCreatedBy(userID)

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("SO"), nil, order.Date)
		if err != nil {
			return fmt.Errorf("allocate order number: %w", err)
		}
		order.Number = number

		if err := order.MarkFulfilled(); err != nil {
			return err
		}
		if err := s.orders.Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		if creditAmount.IsPositive() {
			if _, err := s.credit.Apply(ctx, in.CustomerID, creditAmount); err != nil {
				return err
			}
		}

		source := journal.SalesOrderSource(order.ID)
		entries := make([]journal.StockTransaction, 0, len(order.Lines))
		for _, line := range order.Lines {
			rec, consumed, err := s.ledger.Consume(ctx, line.ProductID, in.LocationID, line.Quantity)
			if err != nil {
				return err
			}
			avgCost := ledger.AverageUnitCost(consumed, line.Quantity)
			entries = append(entries, journal.NewStockTransaction(
				journal.TxTypeOut,
				line.ProductID, in.LocationID,
				line.Quantity.Neg(), avgCost, rec.Quantity,
				userID, source,
			))
		}
		if err := s.journal.Append(ctx, entries...); err != nil {
			return err
		}

		return s.publisher.Publish(ctx, events.Event{
			AggregateType: "SalesOrder",
			AggregateID:   order.ID,
			Type:          events.TypeSaleCompleted,
			Payload: map[string]any{
				"order_id":     order.ID,
				"number":       order.Number,
				"customer_id":  order.CustomerID,
				"location_id":  order.LocationID,
				"grand_total":  total.String(),
				"payment_type": order.PaymentType,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "checkout completed",
		"order_id", order.ID,
		"number", order.Number,
		"customer_id", order.CustomerID,
		"total", total.String(),
		"payment_type", order.PaymentType,
	)
	return order, nil
}

// buildLines freezes the order lines from the authoritative catalog prices
// and verifies stock availability before any write happens.
func (s *Service) buildLines(ctx context.Context, order *SalesOrder, in CheckoutInput) error {
	ids := make([]id.ID, 0, len(in.Items))
	for _, item := range in.Items {
		if !item.Quantity.IsPositive() {
			return apperror.NewValidation("item quantity must be positive").
				WithDetail("product_id", item.ProductID)
		}
		ids = append(ids, item.ProductID)
	}

	productsByID, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}

	order.Lines = make([]LineItem, 0, len(in.Items))
	for _, item := range in.Items {
		prod, ok := productsByID[item.ProductID]
		if !ok {
			return apperror.NewNotFound("product", item.ProductID.String())
		}

		available, err := s.ledger.AvailableQuantity(ctx, item.ProductID, in.LocationID)
		if err != nil {
			return err
		}
		if item.Quantity > available {
			return apperror.NewInsufficientStock(item.ProductID.String(), item.Quantity, available)
		}

		order.Lines = append(order.Lines, LineItem{
			ProductID:  item.ProductID,
			SKU:        prod.SKU,
			Name:       prod.Name,
			Quantity:   item.Quantity,
			UnitPrice:  prod.SellingPrice,
			TotalPrice: prod.SellingPrice.Mul(item.Quantity.Decimal()),
		})
	}
	return nil
}

// RecordCreditPayment settles part of an order's outstanding credit and
// mirrors the reduction onto the customer's balance.
func (s *Service) RecordCreditPayment(ctx context.Context, orderID id.ID, amount types.Money) (*SalesOrder, error) {
	if !amount.IsPositive() {
		return nil, apperror.NewValidation("payment amount must be positive").
			WithDetail("amount", amount.String())
	}

	var order *SalesOrder
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		if !order.CreditOutstanding.IsPositive() {
			return apperror.NewValidation("order has no outstanding credit").
				WithDetail("order_id", orderID)
		}
		if amount.GreaterThan(order.CreditOutstanding) {
			return apperror.NewValidation("payment exceeds outstanding credit").
				WithDetail("amount", amount.String()).
				WithDetail("outstanding", order.CreditOutstanding.String())
		}

		applied := order.ReduceOutstanding(amount)
		order.SetUpdatedBy(appctx.GetUserID(ctx))
		if err := s.orders.Update(ctx, order); err != nil {
			return err
		}

		if _, err := s.credit.Release(ctx, order.CustomerID, applied); err != nil {
			return err
		}

		return s.publisher.Publish(ctx, events.Event{
			AggregateType: "SalesOrder",
			AggregateID:   order.ID,
			Type:          events.TypeCreditPaymentMade,
			Payload: map[string]any{
				"order_id":    order.ID,
				"customer_id": order.CustomerID,
				"amount":      applied.String(),
				"outstanding": order.CreditOutstanding.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "credit payment recorded",
		"order_id", order.ID,
		"amount", amount.String(),
		"outstanding", order.CreditOutstanding.String(),
	)
	return order, nil
}

// GetOrder loads an order by id.
func (s *Service) GetOrder(ctx context.Context, orderID id.ID) (*SalesOrder, error) {
	return s.orders.GetByID(ctx, orderID)
}

// ListByCustomer returns a customer's recent orders.
func (s *Service) ListByCustomer(ctx context.Context, customerID id.ID, limit int) ([]*SalesOrder, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.orders.ListByCustomer(ctx, customerID, limit)
}
