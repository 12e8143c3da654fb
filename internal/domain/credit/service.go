// Package credit implements the customer credit ledger.
//
// Balances grow when a sale is financed on credit and shrink when a payment
// is recorded or a credit-backed sale is refunded. All mutations go through
// this service so the non-negative balance and limit invariants hold in one
// place.
package credit

import (
	"context"
	"fmt"

	"storecore/internal/core/apperror"
	"storecore/internal/core/id"
	"storecore/internal/core/policy"
	"storecore/internal/core/types"
	"storecore/internal/domain/catalog/customer"
	"storecore/pkg/logger"
)

// Service mediates all credit balance mutations.
type Service struct {
	customers customer.Repository
	policy    *policy.Engine
}

// NewService creates a credit service.
func NewService(customers customer.Repository, policyEngine *policy.Engine) *Service {
	return &Service{customers: customers, policy: policyEngine}
}

// CheckAvailable verifies the customer can finance amount on credit.
//
// Eligibility (a positive limit) is decided by the policy engine; the
// precise headroom check stays in decimal arithmetic. The customer is
// returned for reuse by the caller.
func (s *Service) CheckAvailable(ctx context.Context, customerID id.ID, amount types.Money) (*customer.Customer, error) {
	if !amount.IsPositive() {
		return nil, apperror.NewValidation("credit amount must be positive").
			WithDetail("amount", amount.String())
	}

	cust, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	limit, _ := cust.CreditLimit.Float64()
	balance, _ := cust.CurrentBalance.Float64()
	eligible, err := s.policy.CreditAllowed(policy.CreditCheck{
		CreditLimit:    limit,
		CurrentBalance: balance,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate credit policy: %w", err)
	}
	if !eligible {
		return nil, apperror.NewCreditLimitExceeded(customerID.String(), amount, types.ZeroMoney())
	}

	if amount.GreaterThan(cust.AvailableCredit()) {
		return nil, apperror.NewCreditLimitExceeded(customerID.String(), amount, cust.AvailableCredit())
	}

	return cust, nil
}

// Apply increases the customer's balance by amount. The limit is re-checked
// under row lock so concurrent sales cannot overshoot it. Must be called
// within a transaction context.
func (s *Service) Apply(ctx context.Context, customerID id.ID, amount types.Money) (*customer.Customer, error) {
	if !amount.IsPositive() {
		return nil, apperror.NewValidation("credit amount must be positive").
			WithDetail("amount", amount.String())
	}

	cust, err := s.customers.GetForUpdate(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if amount.GreaterThan(cust.AvailableCredit()) {
		return nil, apperror.NewCreditLimitExceeded(customerID.String(), amount, cust.AvailableCredit())
	}

	cust.CurrentBalance = cust.CurrentBalance.Add(amount)
	if err := s.customers.UpdateBalance(ctx, cust); err != nil {
		return nil, fmt.Errorf("update customer balance: %w", err)
	}

	logger.Info(ctx, "credit applied",
		"customer_id", customerID,
		"amount", amount.String(),
		"balance", cust.CurrentBalance.String(),
	)
	return cust, nil
}

// Release decreases the customer's balance by amount, clamping at zero.
// Used by payments and refunds of credit-backed sales. Must be called
// within a transaction context.
func (s *Service) Release(ctx context.Context, customerID id.ID, amount types.Money) (*customer.Customer, error) {
	if !amount.IsPositive() {
		return nil, apperror.NewValidation("release amount must be positive").
			WithDetail("amount", amount.String())
	}

	cust, err := s.customers.GetForUpdate(ctx, customerID)
	if err != nil {
		return nil, err
	}

	cust.CurrentBalance = cust.CurrentBalance.Sub(amount)
	if cust.CurrentBalance.IsNegative() {
		cust.CurrentBalance = types.ZeroMoney()
	}
	if err := s.customers.UpdateBalance(ctx, cust); err != nil {
		return nil, fmt.Errorf("update customer balance: %w", err)
	}

	logger.Info(ctx, "credit released",
		"customer_id", customerID,
		"amount", amount.String(),
		"balance", cust.CurrentBalance.String(),
	)
	return cust, nil
}
