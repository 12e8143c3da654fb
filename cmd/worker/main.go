// Package main is the entry point for the storecore background worker.
// It drains the transactional outbox and performs periodic cleanup.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"storecore/internal/infrastructure/storage/postgres"
	"storecore/internal/infrastructure/storage/postgres/auth_repo"
	"storecore/pkg/logger"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting storecore worker")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)
	tokenRepo := auth_repo.NewTokenRepo(txManager)

	relay := postgres.NewOutboxRelay(pool.Unwrap(), 100, &logHandler{log: log})

	worker := &Worker{
		relay:     relay,
		tokenRepo: tokenRepo,
		log:       log.WithComponent("worker"),
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// Worker drains the outbox and runs periodic maintenance.
type Worker struct {
	relay     *postgres.OutboxRelay
	tokenRepo *auth_repo.TokenRepo
	log       *logger.Logger
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	pollTicker := time.NewTicker(500 * time.Millisecond)
	defer pollTicker.Stop()

	cleanupTicker := time.NewTicker(1 * time.Hour)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-pollTicker.C:
			processed, err := w.relay.ProcessBatch(ctx)
			if err != nil {
				w.log.Errorw("outbox batch failed", "error", err)
				continue
			}
			if processed > 0 {
				w.log.Infow("outbox batch processed", "count", processed)
			}

		case <-cleanupTicker.C:
			removed, err := w.tokenRepo.CleanupExpiredTokens(ctx)
			if err != nil {
				w.log.Errorw("token cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				w.log.Infow("expired refresh tokens removed", "count", removed)
			}
		}
	}
}

// logHandler delivers outbox messages to the log. A broker integration
// would replace this handler without touching the relay.
type logHandler struct {
	log *logger.Logger
}

func (h *logHandler) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	h.log.Infow("event delivered",
		"event_type", msg.EventType,
		"aggregate_type", msg.AggregateType,
		"aggregate_id", msg.AggregateID,
	)
	return nil
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
