package dto

import (
	"storecore/internal/core/types"
)

// ReturnItemRequest is one requested return position.
type ReturnItemRequest struct {
	ProductID string         `json:"productId" binding:"required,uuid"`
	Quantity  types.Quantity `json:"quantity" binding:"required"`
	Reason    string         `json:"reason,omitempty"`
}

// CreateReturnRequest for POST /sales-orders/:id/returns.
// RestockLocationID absent means the goods do not go back to stock.
type CreateReturnRequest struct {
	Items             []ReturnItemRequest `json:"items" binding:"required,min=1,dive"`
	RestockLocationID *string             `json:"restockLocationId,omitempty" binding:"omitempty,uuid"`
	Comment           string              `json:"comment,omitempty"`
}
