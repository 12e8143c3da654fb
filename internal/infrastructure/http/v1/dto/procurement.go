package dto

import (
	"storecore/internal/core/types"
)

// OrderLineRequest is one purchase order line.
type OrderLineRequest struct {
	ProductID string         `json:"productId" binding:"required,uuid"`
	Quantity  types.Quantity `json:"quantity" binding:"required"`
	UnitCost  types.Money    `json:"unitCost" binding:"required"`
}

// CreatePurchaseOrderRequest for POST /purchase-orders.
type CreatePurchaseOrderRequest struct {
	SupplierID string             `json:"supplierId" binding:"required,uuid"`
	Lines      []OrderLineRequest `json:"lines" binding:"required,min=1,dive"`
	Comment    string             `json:"comment,omitempty"`
}

// ReceiveItemRequest is one received position, keyed by PO line.
type ReceiveItemRequest struct {
	LineID   string         `json:"lineId" binding:"required,uuid"`
	Quantity types.Quantity `json:"quantity" binding:"required"`
}

// ReceiveRequest for POST /purchase-orders/:id/receipts.
type ReceiveRequest struct {
	LocationID string               `json:"locationId" binding:"required,uuid"`
	Items      []ReceiveItemRequest `json:"items" binding:"required,min=1,dive"`
}
