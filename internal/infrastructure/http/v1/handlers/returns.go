package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storecore/internal/core/apperror"
	"storecore/internal/core/id"
	"storecore/internal/domain/returns"
	"storecore/internal/infrastructure/http/v1/dto"
	"storecore/internal/infrastructure/storage/postgres"
)

// ReturnsHandler handles return processing endpoints.
type ReturnsHandler struct {
	*BaseHandler
	service *returns.Service
	audit   *postgres.AuditService
}

// NewReturnsHandler creates a new returns handler.
func NewReturnsHandler(base *BaseHandler, service *returns.Service, audit *postgres.AuditService) *ReturnsHandler {
	return &ReturnsHandler{
		BaseHandler: base,
		service:     service,
		audit:       audit,
	}
}

// Create handles POST /sales-orders/:id/returns
func (h *ReturnsHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.CreateReturnRequest
	if !h.BindJSON(c, &req) {
		return
	}

	items := make([]returns.ReturnItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := id.Parse(item.ProductID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid product id").
				WithDetail("product_id", item.ProductID))
			return
		}
		items = append(items, returns.ReturnItemInput{
			ProductID: productID,
			Quantity:  item.Quantity,
			Reason:    item.Reason,
		})
	}

	var restockLocationID *id.ID
	if req.RestockLocationID != nil {
		parsed, err := id.Parse(*req.RestockLocationID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid restock location id"))
			return
		}
		restockLocationID = &parsed
	}

	ret, err := h.service.Create(ctx, returns.CreateInput{
		SalesOrderID:      orderID,
		Items:             items,
		RestockLocationID: restockLocationID,
		Comment:           req.Comment,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	if h.audit != nil {
		if err := h.audit.LogChange(ctx, "return", ret.ID, postgres.AuditActionReturn, map[string]any{
			"number":          ret.Number,
			"sales_order_id":  ret.SalesOrderID,
			"refund_amount":   ret.RefundAmount,
			"credit_released": ret.CreditReleased,
		}); err != nil {
			h.AuditFailed(ctx, "return", err)
		}
	}

	c.JSON(http.StatusCreated, ret)
}

// Get handles GET /returns/:id
func (h *ReturnsHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	returnID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	ret, err := h.service.GetReturn(ctx, returnID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, ret)
}

// ListByOrder handles GET /sales-orders/:id/returns
func (h *ReturnsHandler) ListByOrder(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	rets, err := h.service.ListByOrder(ctx, orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: rets, TotalCount: len(rets)})
}
