package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storecore/internal/core/apperror"
	"storecore/internal/core/id"
	"storecore/internal/domain/procurement"
	"storecore/internal/infrastructure/http/v1/dto"
	"storecore/internal/infrastructure/storage/postgres"
)

// ProcurementHandler handles purchase order and receiving endpoints.
type ProcurementHandler struct {
	*BaseHandler
	service *procurement.Service
	audit   *postgres.AuditService
}

// NewProcurementHandler creates a new procurement handler.
func NewProcurementHandler(base *BaseHandler, service *procurement.Service, audit *postgres.AuditService) *ProcurementHandler {
	return &ProcurementHandler{
		BaseHandler: base,
		service:     service,
		audit:       audit,
	}
}

// Create handles POST /purchase-orders
func (h *ProcurementHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreatePurchaseOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	supplierID, err := id.Parse(req.SupplierID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid supplier id"))
		return
	}

	lines := make([]procurement.OrderLineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		productID, err := id.Parse(l.ProductID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid product id").
				WithDetail("product_id", l.ProductID))
			return
		}
		lines = append(lines, procurement.OrderLineInput{
			ProductID: productID,
			Quantity:  l.Quantity,
			UnitCost:  l.UnitCost,
		})
	}

	po, err := h.service.CreateOrder(ctx, supplierID, lines, req.Comment)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, po)
}

// Get handles GET /purchase-orders/:id
func (h *ProcurementHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	poID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	po, err := h.service.GetOrder(ctx, poID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, po)
}

// Send handles POST /purchase-orders/:id/send
func (h *ProcurementHandler) Send(c *gin.Context) {
	ctx := c.Request.Context()

	poID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	po, err := h.service.Send(ctx, poID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, po)
}

// Cancel handles POST /purchase-orders/:id/cancel
func (h *ProcurementHandler) Cancel(c *gin.Context) {
	ctx := c.Request.Context()

	poID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	po, err := h.service.Cancel(ctx, poID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, po)
}

// Receive handles POST /purchase-orders/:id/receipts
func (h *ProcurementHandler) Receive(c *gin.Context) {
	ctx := c.Request.Context()

	poID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.ReceiveRequest
	if !h.BindJSON(c, &req) {
		return
	}

	locationID, err := id.Parse(req.LocationID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid location id"))
		return
	}

	items := make([]procurement.ReceiveItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		lineID, err := id.Parse(item.LineID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid line id").
				WithDetail("line_id", item.LineID))
			return
		}
		items = append(items, procurement.ReceiveItemInput{
			LineID:   lineID,
			Quantity: item.Quantity,
		})
	}

	po, err := h.service.Receive(ctx, procurement.ReceiveInput{
		POID:       poID,
		LocationID: locationID,
		Items:      items,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	if h.audit != nil {
		if err := h.audit.LogChange(ctx, "purchase_order", po.ID, postgres.AuditActionReceive, map[string]any{
			"number":   po.Number,
			"status":   po.Status,
			"received": po.TotalReceived(),
		}); err != nil {
			h.AuditFailed(ctx, "purchase_order", err)
		}
	}

	c.JSON(http.StatusCreated, po)
}
