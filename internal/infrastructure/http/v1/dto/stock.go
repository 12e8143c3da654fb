package dto

import (
	"storecore/internal/core/types"
)

// AdjustStockRequest for POST /stock/adjustments. NewQuantity is the
// absolute target quantity, not a delta.
type AdjustStockRequest struct {
	ProductID   string         `json:"productId" binding:"required,uuid"`
	LocationID  string         `json:"locationId" binding:"required,uuid"`
	NewQuantity types.Quantity `json:"newQuantity"`
	Reason      string         `json:"reason" binding:"required"`
}
