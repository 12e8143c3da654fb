package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storecore/internal/core/apperror"
	"storecore/internal/core/id"
	"storecore/internal/domain/journal"
	"storecore/internal/domain/ledger"
	"storecore/internal/infrastructure/http/v1/dto"
	"storecore/internal/infrastructure/storage/postgres"
)

// StockHandler handles ledger query and adjustment endpoints.
type StockHandler struct {
	*BaseHandler
	ledger  *ledger.Service
	journal *journal.Service
	audit   *postgres.AuditService
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, ledgerSvc *ledger.Service, journalSvc *journal.Service, audit *postgres.AuditService) *StockHandler {
	return &StockHandler{
		BaseHandler: base,
		ledger:      ledgerSvc,
		journal:     journalSvc,
		audit:       audit,
	}
}

// Get handles GET /stock/:productId/:locationId
func (h *StockHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	productID, ok := h.ParseID(c, "productId")
	if !ok {
		return
	}
	locationID, ok := h.ParseID(c, "locationId")
	if !ok {
		return
	}

	record, err := h.ledger.GetStock(ctx, productID, locationID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, record)
}

// Adjust handles POST /stock/adjustments
func (h *StockHandler) Adjust(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.AdjustStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	productID, err := id.Parse(req.ProductID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid product id"))
		return
	}
	locationID, err := id.Parse(req.LocationID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid location id"))
		return
	}

	record, err := h.ledger.Adjust(ctx, ledger.AdjustInput{
		ProductID:   productID,
		LocationID:  locationID,
		NewQuantity: req.NewQuantity,
		Reason:      req.Reason,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	if h.audit != nil {
		if err := h.audit.LogChange(ctx, "stock_record", record.ID, postgres.AuditActionAdjust, map[string]any{
			"product_id":   record.ProductID,
			"location_id":  record.LocationID,
			"new_quantity": record.Quantity,
			"reason":       req.Reason,
		}); err != nil {
			h.AuditFailed(ctx, "stock_record", err)
		}
	}

	c.JSON(http.StatusCreated, record)
}

// History handles GET /stock/:productId/history
func (h *StockHandler) History(c *gin.Context) {
	ctx := c.Request.Context()

	productID, ok := h.ParseID(c, "productId")
	if !ok {
		return
	}

	filter := journal.EntryFilter{
		Limit:  h.ParseIntQuery(c, "limit", 100),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	if locationID := c.Query("locationId"); locationID != "" {
		parsed, err := id.Parse(locationID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid location id"))
			return
		}
		filter.LocationID = &parsed
	}
	if txType := c.Query("type"); txType != "" {
		t := journal.TxType(txType)
		filter.Type = &t
	}
	if from := c.Query("from"); from != "" {
		if parsed, err := time.Parse(time.RFC3339, from); err == nil {
			filter.FromDate = &parsed
		}
	}
	if to := c.Query("to"); to != "" {
		if parsed, err := time.Parse(time.RFC3339, to); err == nil {
			filter.ToDate = &parsed
		}
	}

	entries, err := h.journal.History(ctx, productID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: entries, TotalCount: len(entries)})
}
