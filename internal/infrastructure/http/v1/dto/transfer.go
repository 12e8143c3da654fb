package dto

import (
	"storecore/internal/core/types"
)

// CreateTransferRequest for POST /transfers.
type CreateTransferRequest struct {
	ProductID      string         `json:"productId" binding:"required,uuid"`
	FromLocationID string         `json:"fromLocationId" binding:"required,uuid"`
	ToLocationID   string         `json:"toLocationId" binding:"required,uuid"`
	Quantity       types.Quantity `json:"quantity" binding:"required"`
}
