// Package customer provides the customer credit facet.
// Directory management (contacts, addresses) is out of scope; the engines
// read and mutate only the credit fields.
package customer

import (
	"context"

	"storecore/internal/core/apperror"
	"storecore/internal/core/entity"
	"storecore/internal/core/types"
)

// Customer carries the credit facet the engines depend on.
//
// A zero CreditLimit means the customer is not eligible for credit sales
// at all, regardless of balance.
type Customer struct {
	entity.BaseEntity

	Name string `db:"name" json:"name"`

	CreditLimit    types.Money `db:"credit_limit" json:"creditLimit"`
	CurrentBalance types.Money `db:"current_balance" json:"currentBalance"`
}

// NewCustomer creates a customer record.
func NewCustomer(name string, creditLimit types.Money) *Customer {
	return &Customer{
		BaseEntity:  entity.NewBaseEntity(),
		Name:        name,
		CreditLimit: creditLimit,
	}
}

// AvailableCredit returns credit_limit - current_balance (never negative).
func (c *Customer) AvailableCredit() types.Money {
	available := c.CreditLimit.Sub(c.CurrentBalance)
	if available.IsNegative() {
		return types.ZeroMoney()
	}
	return available
}

// Validate implements entity.Validatable.
func (c *Customer) Validate(ctx context.Context) error {
	if c.Name == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if c.CreditLimit.IsNegative() {
		return apperror.NewValidation("credit limit cannot be negative")
	}
	if c.CurrentBalance.IsNegative() {
		return apperror.NewValidation("current balance cannot be negative")
	}
	return nil
}
