// Package main is the entry point for the storecore API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storecore/internal/core/policy"
	"storecore/internal/domain/auth"
	"storecore/internal/domain/credit"
	"storecore/internal/domain/journal"
	"storecore/internal/domain/ledger"
	"storecore/internal/domain/procurement"
	"storecore/internal/domain/returns"
	"storecore/internal/domain/sales"
	"storecore/internal/domain/transfer"
	v1 "storecore/internal/infrastructure/http/v1"
	"storecore/internal/infrastructure/storage/postgres"
	"storecore/internal/infrastructure/storage/postgres/auth_repo"
	"storecore/internal/infrastructure/storage/postgres/catalog_repo"
	"storecore/internal/infrastructure/storage/postgres/document_repo"
	"storecore/internal/infrastructure/storage/postgres/journal_repo"
	"storecore/internal/infrastructure/storage/postgres/ledger_repo"
	"storecore/pkg/logger"
	"storecore/pkg/numerator"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting storecore server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Repositories ---
	stockRepo := ledger_repo.NewStockRepo(txManager)
	journalRepo := journal_repo.NewJournalRepo(txManager)
	productRepo := catalog_repo.NewProductRepo(txManager)
	customerRepo := catalog_repo.NewCustomerRepo(txManager)
	locationRepo := catalog_repo.NewLocationRepo(txManager)
	salesRepo := document_repo.NewSalesOrderRepo(txManager)
	purchaseRepo := document_repo.NewPurchaseOrderRepo(txManager)
	returnRepo := document_repo.NewReturnRepo(txManager)
	transferRepo := document_repo.NewTransferRepo(txManager)

	// --- Shared infrastructure ---
	numGen := numerator.New(pool)
	publisher := postgres.NewOutboxPublisher(txManager)

	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit service", "error", err)
	}

	// --- Business policies (CEL) ---
	rules := policy.DefaultRules()
	if rule := os.Getenv("POLICY_RETURN_RULE"); rule != "" {
		rules.ReturnEligibility = rule
	}
	if rule := os.Getenv("POLICY_CREDIT_RULE"); rule != "" {
		rules.CreditEligibility = rule
	}
	policyEngine, err := policy.NewEngine(rules)
	if err != nil {
		log.Fatalw("failed to compile policy rules", "error", err)
	}

	// --- Domain services ---
	journalService := journal.NewService(journalRepo)
	ledgerService := ledger.NewService(stockRepo, productRepo, locationRepo, journalService, numGen, txManager)
	creditService := credit.NewService(customerRepo, policyEngine)
	salesService := sales.NewService(salesRepo, productRepo, customerRepo, ledgerService, journalService, creditService, numGen, txManager, publisher)
	procurementService := procurement.NewService(purchaseRepo, productRepo, locationRepo, ledgerService, journalService, numGen, txManager, publisher)
	returnsService := returns.NewService(
		returnRepo, salesRepo, productRepo, locationRepo,
		ledgerService, journalService, creditService,
		numGen, txManager, publisher, policyEngine,
		getEnvInt("RETURN_WINDOW_DAYS", returns.DefaultWindowDays),
	)
	transferService := transfer.NewService(transferRepo, productRepo, locationRepo, ledgerService, journalService, numGen, txManager, publisher)

	// --- Auth ---
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(mustEnv("JWT_SECRET")))
	authService := auth.NewService(
		auth_repo.NewUserRepo(txManager),
		auth_repo.NewTokenRepo(txManager),
		txManager,
		jwtService,
		auth.DefaultServiceConfig(),
	)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:               pool.Unwrap(),
		Logger:             log,
		JWTValidator:       jwtService,
		AuthService:        authService,
		AuditService:       auditService,
		LedgerService:      ledgerService,
		JournalService:     journalService,
		SalesService:       salesService,
		ProcurementService: procurementService,
		ReturnsService:     returnsService,
		TransferService:    transferService,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
