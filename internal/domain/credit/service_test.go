package credit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storecore/internal/core/apperror"
	"storecore/internal/core/policy"
	"storecore/internal/core/types"
	"storecore/internal/domain/catalog/customer"
	"storecore/internal/domain/credit"
	"storecore/internal/domain/domaintest"
)

func newService(t *testing.T, customers ...*customer.Customer) (*credit.Service, *domaintest.CustomerRepo) {
	t.Helper()
	repo := domaintest.NewCustomerRepo(customers...)
	return credit.NewService(repo, policy.MustEngine(policy.DefaultRules())), repo
}

func TestCheckAvailable(t *testing.T) {
	cust := customer.NewCustomer("Beanline Cafe", types.MustMoney("100.00"))
	cust.CurrentBalance = types.MustMoney("80.00")
	svc, _ := newService(t, cust)
	ctx := context.Background()

	got, err := svc.CheckAvailable(ctx, cust.ID, types.MustMoney("20.00"))
	require.NoError(t, err)
	assert.True(t, got.AvailableCredit().Equal(types.MustMoney("20.00")))

	_, err = svc.CheckAvailable(ctx, cust.ID, types.MustMoney("20.01"))
	require.Error(t, err)
	assert.True(t, apperror.IsCreditLimitExceeded(err))

	_, err = svc.CheckAvailable(ctx, cust.ID, types.ZeroMoney())
	require.Error(t, err, "non-positive amount")
}

func TestCheckAvailable_ZeroLimitIneligible(t *testing.T) {
	walkIn := customer.NewCustomer("Walk-in Customer", types.ZeroMoney())
	svc, _ := newService(t, walkIn)

	_, err := svc.CheckAvailable(context.Background(), walkIn.ID, types.MustMoney("0.01"))
	require.Error(t, err)
	assert.True(t, apperror.IsCreditLimitExceeded(err))
}

func TestCheckAvailable_CustomRule(t *testing.T) {
	// A deployment can tighten eligibility, e.g. block customers already
	// using more than half their limit.
	rules := policy.DefaultRules()
	rules.CreditEligibility = "credit_limit > 0.0 && current_balance < credit_limit / 2.0"

	cust := customer.NewCustomer("Hotel Aurora", types.MustMoney("100.00"))
	cust.CurrentBalance = types.MustMoney("60.00")
	repo := domaintest.NewCustomerRepo(cust)
	svc := credit.NewService(repo, policy.MustEngine(rules))

	_, err := svc.CheckAvailable(context.Background(), cust.ID, types.MustMoney("10.00"))
	require.Error(t, err)
	assert.True(t, apperror.IsCreditLimitExceeded(err))
}

func TestApply(t *testing.T) {
	cust := customer.NewCustomer("Beanline Cafe", types.MustMoney("100.00"))
	svc, repo := newService(t, cust)
	ctx := context.Background()

	got, err := svc.Apply(ctx, cust.ID, types.MustMoney("60.00"))
	require.NoError(t, err)
	assert.True(t, got.CurrentBalance.Equal(types.MustMoney("60.00")))
	assert.True(t, repo.Balance(cust.ID).Equal(types.MustMoney("60.00")))

	// The limit is re-checked under lock.
	_, err = svc.Apply(ctx, cust.ID, types.MustMoney("50.00"))
	require.Error(t, err)
	assert.True(t, apperror.IsCreditLimitExceeded(err))
	assert.True(t, repo.Balance(cust.ID).Equal(types.MustMoney("60.00")))
}

func TestRelease_ClampsAtZero(t *testing.T) {
	cust := customer.NewCustomer("Beanline Cafe", types.MustMoney("100.00"))
	cust.CurrentBalance = types.MustMoney("30.00")
	svc, repo := newService(t, cust)
	ctx := context.Background()

	got, err := svc.Release(ctx, cust.ID, types.MustMoney("50.00"))
	require.NoError(t, err)
	assert.True(t, got.CurrentBalance.IsZero())
	assert.True(t, repo.Balance(cust.ID).IsZero())

	_, err = svc.Release(ctx, cust.ID, types.MustMoney("-1.00"))
	require.Error(t, err)
}
