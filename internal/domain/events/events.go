// Package events defines the domain event contract. The storage layer
// provides the transactional outbox implementation.
package events

import (
	"context"

	"storecore/internal/core/id"
)

// Event types emitted by the engines.
const (
	TypeSaleCompleted     = "SaleCompleted"
	TypeCreditPaymentMade = "CreditPaymentMade"
	TypeGoodsReceived     = "GoodsReceived"
	TypeReturnProcessed   = "ReturnProcessed"
	TypeStockAdjusted     = "StockAdjusted"
	TypeTransferCompleted = "TransferCompleted"
)

// Event is a domain event tied to an aggregate.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	Type          string
	Payload       any
}

// Publisher records events atomically with the business write.
// Implementations require a transaction context.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// Nop discards events. Used in tests and tooling that runs engines
// without the outbox.
type Nop struct{}

func (Nop) Publish(ctx context.Context, events ...Event) error { return nil }
