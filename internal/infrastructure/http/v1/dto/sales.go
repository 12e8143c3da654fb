package dto

import (
	"time"

	"storecore/internal/core/types"
	"storecore/internal/domain/sales"
)

// CheckoutItemRequest is one requested order line. Prices are never
// accepted from the client.
type CheckoutItemRequest struct {
	ProductID string         `json:"productId" binding:"required,uuid"`
	Quantity  types.Quantity `json:"quantity" binding:"required"`
}

// CheckoutRequest for POST /checkout.
type CheckoutRequest struct {
	CustomerID string                `json:"customerId" binding:"required,uuid"`
	LocationID string                `json:"locationId" binding:"required,uuid"`
	Items      []CheckoutItemRequest `json:"items" binding:"required,min=1,dive"`

	PaymentType    string      `json:"paymentType" binding:"required,oneof=cash credit split"`
	AmountPaidCash types.Money `json:"amountPaidCash"`
	AmountToCredit types.Money `json:"amountToCredit"`

	DueDate   *time.Time `json:"dueDate,omitempty"`
	GraceDays int        `json:"graceDays,omitempty"`

	Comment string `json:"comment,omitempty"`
}

// CreditPaymentRequest for POST /sales-orders/:id/payments.
type CreditPaymentRequest struct {
	Amount types.Money `json:"amount" binding:"required"`
}

// LineItemResponse is one frozen order line.
type LineItemResponse struct {
	ProductID  string         `json:"productId"`
	SKU        string         `json:"sku"`
	Name       string         `json:"name"`
	Quantity   types.Quantity `json:"quantity"`
	UnitPrice  types.Money    `json:"unitPrice"`
	TotalPrice types.Money    `json:"totalPrice"`
}

// SalesOrderResponse represents a sales order in API responses.
type SalesOrderResponse struct {
	ID                string             `json:"id"`
	Number            string             `json:"number"`
	Date              time.Time          `json:"date"`
	CustomerID        string             `json:"customerId"`
	LocationID        string             `json:"locationId"`
	Lines             []LineItemResponse `json:"lines"`
	PaymentType       string             `json:"paymentType"`
	AmountPaidCash    types.Money        `json:"amountPaidCash"`
	AmountToCredit    types.Money        `json:"amountToCredit"`
	CreditTotal       types.Money        `json:"creditTotal"`
	CreditOutstanding types.Money        `json:"creditOutstanding"`
	GrandTotal        types.Money        `json:"grandTotal"`
	DueDate           *time.Time         `json:"dueDate,omitempty"`
	AllowedUntil      *time.Time         `json:"allowedUntil,omitempty"`
	Status            string             `json:"status"`
	PaymentStatus     string             `json:"paymentStatus"`
	ReturnIDs         []string           `json:"returnIds,omitempty"`
	Comment           string             `json:"comment,omitempty"`
	Version           int                `json:"version"`
	CreatedAt         time.Time          `json:"createdAt"`
}

// FromSalesOrder creates response from domain order.
func FromSalesOrder(o *sales.SalesOrder) *SalesOrderResponse {
	lines := make([]LineItemResponse, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = LineItemResponse{
			ProductID:  l.ProductID.String(),
			SKU:        l.SKU,
			Name:       l.Name,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
			TotalPrice: l.TotalPrice,
		}
	}

	returnIDs := make([]string, len(o.ReturnIDs))
	for i, rid := range o.ReturnIDs {
		returnIDs[i] = rid.String()
	}

	return &SalesOrderResponse{
		ID:                o.ID.String(),
		Number:            o.Number,
		Date:              o.Date,
		CustomerID:        o.CustomerID.String(),
		LocationID:        o.LocationID.String(),
		Lines:             lines,
		PaymentType:       string(o.PaymentType),
		AmountPaidCash:    o.AmountPaidCash,
		AmountToCredit:    o.AmountToCredit,
		CreditTotal:       o.CreditTotal,
		CreditOutstanding: o.CreditOutstanding,
		GrandTotal:        o.GrandTotal(),
		DueDate:           o.DueDate,
		AllowedUntil:      o.AllowedUntil,
		Status:            string(o.Status),
		PaymentStatus:     string(o.PaymentStatus),
		ReturnIDs:         returnIDs,
		Comment:           o.Comment,
		Version:           o.Version,
		CreatedAt:         o.CreatedAt,
	}
}
