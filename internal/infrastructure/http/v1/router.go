// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"storecore/internal/domain/auth"
	"storecore/internal/domain/journal"
	"storecore/internal/domain/ledger"
	"storecore/internal/domain/procurement"
	"storecore/internal/domain/returns"
	"storecore/internal/domain/sales"
	"storecore/internal/domain/transfer"
	"storecore/internal/infrastructure/http/v1/handlers"
	"storecore/internal/infrastructure/http/v1/middleware"
	"storecore/internal/infrastructure/storage/postgres"
	"storecore/pkg/logger"
)

// RouterConfig holds everything the HTTP surface needs. Services are
// constructed once at startup and shared across requests.
type RouterConfig struct {
	Pool   *pgxpool.Pool
	Logger *logger.Logger

	JWTValidator middleware.JWTValidator
	AuthService  *auth.Service

	// AuditService is optional; when set, mutating operations are
	// recorded with compressed change payloads.
	AuditService *postgres.AuditService

	LedgerService      *ledger.Service
	JournalService     *journal.Service
	SalesService       *sales.Service
	ProcurementService *procurement.Service
	ReturnsService     *returns.Service
	TransferService    *transfer.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("", healthHandler.Ready)
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	base := handlers.NewBaseHandler()

	// API v1
	apiV1 := router.Group("/api/v1")
	{
		registerAuthRoutes(apiV1, base, cfg)

		protected := apiV1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		registerSalesRoutes(protected, base, cfg)
		registerProcurementRoutes(protected, base, cfg)
		registerTransferRoutes(protected, base, cfg)
		registerStockRoutes(protected, base, cfg)
	}

	return router
}

func registerAuthRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	if cfg.AuthService == nil {
		return
	}

	authHandler := handlers.NewAuthHandler(base, cfg.AuthService)

	publicAuth := rg.Group("/auth")
	protectedAuth := rg.Group("/auth")
	protectedAuth.Use(middleware.Auth(cfg.JWTValidator))

	authHandler.RegisterRoutes(publicAuth, protectedAuth)
}

func registerSalesRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	salesHandler := handlers.NewSalesHandler(base, cfg.SalesService, cfg.AuditService)
	returnsHandler := handlers.NewReturnsHandler(base, cfg.ReturnsService, cfg.AuditService)

	rg.POST("/checkout", salesHandler.Checkout)

	orders := rg.Group("/sales-orders")
	{
		orders.GET("", salesHandler.ListByCustomer)
		orders.GET("/:id", salesHandler.GetOrder)
		orders.POST("/:id/payments", salesHandler.RecordPayment)
		orders.POST("/:id/returns", returnsHandler.Create)
		orders.GET("/:id/returns", returnsHandler.ListByOrder)
	}

	rg.GET("/returns/:id", returnsHandler.Get)
}

func registerProcurementRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	handler := handlers.NewProcurementHandler(base, cfg.ProcurementService, cfg.AuditService)

	orders := rg.Group("/purchase-orders")
	{
		orders.POST("", handler.Create)
		orders.GET("/:id", handler.Get)
		orders.POST("/:id/send", handler.Send)
		orders.POST("/:id/cancel", handler.Cancel)
		orders.POST("/:id/receipts", handler.Receive)
	}
}

func registerTransferRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	handler := handlers.NewTransferHandler(base, cfg.TransferService, cfg.AuditService)

	transfers := rg.Group("/transfers")
	{
		transfers.POST("", handler.Create)
		transfers.GET("/:id", handler.Get)
		transfers.POST("/:id/dispatch", handler.Dispatch)
		transfers.POST("/:id/complete", handler.Complete)
		transfers.POST("/:id/cancel", handler.Cancel)
	}
}

func registerStockRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	handler := handlers.NewStockHandler(base, cfg.LedgerService, cfg.JournalService, cfg.AuditService)

	stock := rg.Group("/stock")
	{
		stock.POST("/adjustments", handler.Adjust)
		stock.GET("/:productId/history", handler.History)
		stock.GET("/:productId/:locationId", handler.Get)
	}
}
