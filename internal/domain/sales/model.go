// Package sales implements order capture and checkout fulfillment.
package sales

import (
	"context"
	"time"

	"storecore/internal/core/apperror"
	"storecore/internal/core/entity"
	"storecore/internal/core/id"
	"storecore/internal/core/types"
)

// PaymentType describes how a sale is financed.
type PaymentType string

const (
	PaymentCash   PaymentType = "cash"
	PaymentCredit PaymentType = "credit"
	PaymentSplit  PaymentType = "split"
)

// IsValid checks if the payment type is known.
func (p PaymentType) IsValid() bool {
	switch p {
	case PaymentCash, PaymentCredit, PaymentSplit:
		return true
	}
	return false
}

// Status is the order lifecycle state.
type Status string

const (
	StatusNew               Status = "new"
	StatusFulfilled         Status = "fulfilled"
	StatusPartiallyReturned Status = "partially_returned"
)

// PaymentStatus tracks settlement of the order.
type PaymentStatus string

const (
	PaymentStatusPaid          PaymentStatus = "paid"
	PaymentStatusOutstanding   PaymentStatus = "outstanding"
	PaymentStatusPartiallyPaid PaymentStatus = "partially_paid"
	PaymentStatusRefunded      PaymentStatus = "refunded"
)

// LineItem is a priced order line. Price and name are frozen at checkout
// time; later catalog changes do not affect a persisted order.
type LineItem struct {
	ProductID  id.ID          `db:"product_id" json:"productId"`
	SKU        string         `db:"sku" json:"sku"`
	Name       string         `db:"name" json:"name"`
	Quantity   types.Quantity `db:"quantity" json:"quantity"`
	UnitPrice  types.Money    `db:"unit_price" json:"unitPrice"`
	TotalPrice types.Money    `db:"total_price" json:"totalPrice"`
}

// SalesOrder is the checkout document.
type SalesOrder struct {
	entity.Document

	CustomerID id.ID `db:"customer_id" json:"customerId"`
	LocationID id.ID `db:"location_id" json:"locationId"`

	Lines []LineItem `db:"-" json:"lines"`

	PaymentType    PaymentType `db:"payment_type" json:"paymentType"`
	AmountPaidCash types.Money `db:"amount_paid_cash" json:"amountPaidCash"`
	AmountToCredit types.Money `db:"amount_to_credit" json:"amountToCredit"`

	// CreditTotal is the amount originally financed on credit.
	// CreditOutstanding is the part of it still unpaid.
	CreditTotal       types.Money `db:"credit_total" json:"creditTotal"`
	CreditOutstanding types.Money `db:"credit_outstanding" json:"creditOutstanding"`

	DueDate      *time.Time `db:"due_date" json:"dueDate,omitempty"`
	AllowedUntil *time.Time `db:"allowed_until" json:"allowedUntil,omitempty"`

	Status        Status        `db:"status" json:"status"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"paymentStatus"`

	ReturnIDs []id.ID `db:"-" json:"returnIds,omitempty"`
}

// NewSalesOrder creates an order shell; lines and payment fields are filled
// by the checkout engine.
func NewSalesOrder(customerID, locationID id.ID) *SalesOrder {
	return &SalesOrder{
		Document:   entity.NewDocument(),
		CustomerID: customerID,
		LocationID: locationID,
		Status:     StatusNew,
	}
}

// GrandTotal is the sum of frozen line totals.
func (o *SalesOrder) GrandTotal() types.Money {
	total := types.ZeroMoney()
	for _, l := range o.Lines {
		total = total.Add(l.TotalPrice)
	}
	return total
}

// Validate implements entity.Validatable.
func (o *SalesOrder) Validate(ctx context.Context) error {
	if err := o.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(o.CustomerID) {
		return apperror.NewValidation("customer is required").WithDetail("field", "customer_id")
	}
	if id.IsNil(o.LocationID) {
		return apperror.NewValidation("location is required").WithDetail("field", "location_id")
	}
	if len(o.Lines) == 0 {
		return apperror.NewValidation("order must have at least one line")
	}
	if !o.PaymentType.IsValid() {
		return apperror.NewValidation("unknown payment type").WithDetail("payment_type", string(o.PaymentType))
	}
	for i, l := range o.Lines {
		if !l.Quantity.IsPositive() {
			return apperror.NewValidation("line quantity must be positive").
				WithDetail("line", i).
				WithDetail("product_id", l.ProductID)
		}
		if l.UnitPrice.IsNegative() {
			return apperror.NewValidation("line price cannot be negative").
				WithDetail("line", i)
		}
	}
	if o.PaymentType == PaymentSplit {
		if o.AmountPaidCash.IsNegative() || o.AmountToCredit.IsNegative() {
			return apperror.NewValidation("split amounts cannot be negative").
				WithDetail("cash", o.AmountPaidCash.String()).
				WithDetail("credit", o.AmountToCredit.String())
		}
		sum := o.AmountPaidCash.Add(o.AmountToCredit)
		if !sum.Equal(o.GrandTotal()) {
			return apperror.NewValidation("split amounts must sum to the order total").
				WithDetail("cash", o.AmountPaidCash.String()).
				WithDetail("credit", o.AmountToCredit.String()).
				WithDetail("total", o.GrandTotal().String())
		}
	}
	return nil
}

// MarkFulfilled transitions New -> Fulfilled.
func (o *SalesOrder) MarkFulfilled() error {
	if o.Status != StatusNew {
		return apperror.NewInvalidTransition("sales order", string(o.Status), string(StatusFulfilled))
	}
	o.Status = StatusFulfilled
	return nil
}

// RegisterReturn links a return document and transitions the order to
// PartiallyReturned. Fulfilled and PartiallyReturned orders accept returns.
func (o *SalesOrder) RegisterReturn(returnID id.ID) error {
	if o.Status != StatusFulfilled && o.Status != StatusPartiallyReturned {
		return apperror.NewInvalidTransition("sales order", string(o.Status), string(StatusPartiallyReturned))
	}
	o.Status = StatusPartiallyReturned
	o.ReturnIDs = append(o.ReturnIDs, returnID)
	return nil
}

// ReduceOutstanding lowers the outstanding credit by up to amount and
// returns the amount actually applied. Payment status follows:
// zero outstanding flips it to Paid, a partial reduction to PartiallyPaid.
func (o *SalesOrder) ReduceOutstanding(amount types.Money) types.Money {
	applied := amount
	if applied.GreaterThan(o.CreditOutstanding) {
		applied = o.CreditOutstanding
	}
	if !applied.IsPositive() {
		return types.ZeroMoney()
	}
	o.CreditOutstanding = o.CreditOutstanding.Sub(applied)
	if o.CreditOutstanding.IsZero() {
		o.PaymentStatus = PaymentStatusPaid
	} else {
		o.PaymentStatus = PaymentStatusPartiallyPaid
	}
	return applied
}

// OrderedQuantity returns the total ordered quantity of a product across
// all lines.
func (o *SalesOrder) OrderedQuantity(productID id.ID) types.Quantity {
	var total types.Quantity
	for _, l := range o.Lines {
		if l.ProductID == productID {
			total += l.Quantity
		}
	}
	return total
}

// UnitPriceOf returns the frozen unit price of a product on this order.
// The second result is false if the product is not on the order.
func (o *SalesOrder) UnitPriceOf(productID id.ID) (types.Money, bool) {
	for _, l := range o.Lines {
		if l.ProductID == productID {
			return l.UnitPrice, true
		}
	}
	return types.ZeroMoney(), false
}
