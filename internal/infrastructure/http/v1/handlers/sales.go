package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storecore/internal/core/apperror"
	"storecore/internal/core/id"
	"storecore/internal/domain/sales"
	"storecore/internal/infrastructure/http/v1/dto"
	"storecore/internal/infrastructure/storage/postgres"
)

// SalesHandler handles checkout and payment endpoints.
type SalesHandler struct {
	*BaseHandler
	service *sales.Service
	audit   *postgres.AuditService
}

// NewSalesHandler creates a new sales handler.
func NewSalesHandler(base *BaseHandler, service *sales.Service, audit *postgres.AuditService) *SalesHandler {
	return &SalesHandler{
		BaseHandler: base,
		service:     service,
		audit:       audit,
	}
}

// Checkout handles POST /checkout
func (h *SalesHandler) Checkout(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CheckoutRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := h.toCheckoutInput(req)
	if err != nil {
		h.Error(c, err)
		return
	}

	order, err := h.service.Checkout(ctx, in)
	if err != nil {
		h.Error(c, err)
		return
	}

	if h.audit != nil {
		if err := h.audit.LogChange(ctx, "sales_order", order.ID, postgres.AuditActionFulfill, map[string]any{
			"number":       order.Number,
			"grand_total":  order.GrandTotal(),
			"payment_type": order.PaymentType,
		}); err != nil {
			h.AuditFailed(ctx, "sales_order", err)
		}
	}

	c.JSON(http.StatusCreated, dto.FromSalesOrder(order))
}

// RecordPayment handles POST /sales-orders/:id/payments
func (h *SalesHandler) RecordPayment(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.CreditPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.service.RecordCreditPayment(ctx, orderID, req.Amount)
	if err != nil {
		h.Error(c, err)
		return
	}

	if h.audit != nil {
		if err := h.audit.LogChange(ctx, "sales_order", order.ID, postgres.AuditActionUpdate, map[string]any{
			"payment":            req.Amount,
			"credit_outstanding": order.CreditOutstanding,
			"payment_status":     order.PaymentStatus,
		}); err != nil {
			h.AuditFailed(ctx, "sales_order", err)
		}
	}

	h.OK(c, dto.FromSalesOrder(order))
}

// GetOrder handles GET /sales-orders/:id
func (h *SalesHandler) GetOrder(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	order, err := h.service.GetOrder(ctx, orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromSalesOrder(order))
}

// ListByCustomer handles GET /sales-orders?customerId=...
func (h *SalesHandler) ListByCustomer(c *gin.Context) {
	ctx := c.Request.Context()

	customerID, err := id.Parse(c.Query("customerId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("customerId query parameter is required"))
		return
	}
	limit := h.ParseIntQuery(c, "limit", 50)

	orders, err := h.service.ListByCustomer(ctx, customerID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]*dto.SalesOrderResponse, len(orders))
	for i, o := range orders {
		items[i] = dto.FromSalesOrder(o)
	}
	h.OK(c, dto.ListResponse{Items: items, TotalCount: len(items)})
}

func (h *SalesHandler) toCheckoutInput(req dto.CheckoutRequest) (sales.CheckoutInput, error) {
	customerID, err := id.Parse(req.CustomerID)
	if err != nil {
		return sales.CheckoutInput{}, apperror.NewValidation("invalid customer id")
	}
	locationID, err := id.Parse(req.LocationID)
	if err != nil {
		return sales.CheckoutInput{}, apperror.NewValidation("invalid location id")
	}

	items := make([]sales.CheckoutItem, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := id.Parse(item.ProductID)
		if err != nil {
			return sales.CheckoutInput{}, apperror.NewValidation("invalid product id").
				WithDetail("product_id", item.ProductID)
		}
		items = append(items, sales.CheckoutItem{
			ProductID: productID,
			Quantity:  item.Quantity,
		})
	}

	return sales.CheckoutInput{
		CustomerID:     customerID,
		LocationID:     locationID,
		Items:          items,
		PaymentType:    sales.PaymentType(req.PaymentType),
		AmountPaidCash: req.AmountPaidCash,
		AmountToCredit: req.AmountToCredit,
		DueDate:        req.DueDate,
		GraceDays:      req.GraceDays,
		Comment:        req.Comment,
	}, nil
}
