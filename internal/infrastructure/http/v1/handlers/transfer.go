package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"storecore/internal/core/apperror"
	"storecore/internal/core/id"
	"storecore/internal/domain/transfer"
	"storecore/internal/infrastructure/http/v1/dto"
	"storecore/internal/infrastructure/storage/postgres"
)

// TransferHandler handles stock transfer endpoints.
type TransferHandler struct {
	*BaseHandler
	service *transfer.Service
	audit   *postgres.AuditService
}

// NewTransferHandler creates a new transfer handler.
func NewTransferHandler(base *BaseHandler, service *transfer.Service, audit *postgres.AuditService) *TransferHandler {
	return &TransferHandler{
		BaseHandler: base,
		service:     service,
		audit:       audit,
	}
}

// Create handles POST /transfers
func (h *TransferHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateTransferRequest
	if !h.BindJSON(c, &req) {
		return
	}

	productID, err := id.Parse(req.ProductID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid product id"))
		return
	}
	fromID, err := id.Parse(req.FromLocationID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid from location id"))
		return
	}
	toID, err := id.Parse(req.ToLocationID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid to location id"))
		return
	}

	tr, err := h.service.Create(ctx, productID, fromID, toID, req.Quantity)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, tr)
}

// Get handles GET /transfers/:id
func (h *TransferHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	transferID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	tr, err := h.service.Get(ctx, transferID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, tr)
}

// Dispatch handles POST /transfers/:id/dispatch
func (h *TransferHandler) Dispatch(c *gin.Context) {
	h.transition(c, h.service.Dispatch)
}

// Complete handles POST /transfers/:id/complete
func (h *TransferHandler) Complete(c *gin.Context) {
	transferID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	tr, err := h.service.Complete(ctx, transferID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if h.audit != nil {
		if err := h.audit.LogChange(ctx, "transfer", tr.ID, postgres.AuditActionTransfer, map[string]any{
			"number":   tr.Number,
			"quantity": tr.Quantity,
			"from":     tr.FromLocationID,
			"to":       tr.ToLocationID,
		}); err != nil {
			h.AuditFailed(ctx, "transfer", err)
		}
	}

	h.OK(c, tr)
}

// Cancel handles POST /transfers/:id/cancel
func (h *TransferHandler) Cancel(c *gin.Context) {
	h.transition(c, h.service.Cancel)
}

func (h *TransferHandler) transition(c *gin.Context, apply func(ctx context.Context, transferID id.ID) (*transfer.StockTransfer, error)) {
	transferID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	tr, err := apply(c.Request.Context(), transferID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, tr)
}
