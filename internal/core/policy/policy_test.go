package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReturnAllowed_DefaultRule(t *testing.T) {
	engine := MustEngine(DefaultRules())

	tests := []struct {
		name string
		in   ReturnCheck
		want bool
	}{
		{"inside window", ReturnCheck{DaysSinceSale: 10, WindowDays: 30, AllowReturns: true}, true},
		{"last day", ReturnCheck{DaysSinceSale: 30, WindowDays: 30, AllowReturns: true}, true},
		{"window expired", ReturnCheck{DaysSinceSale: 31, WindowDays: 30, AllowReturns: true}, false},
		{"returns disabled", ReturnCheck{DaysSinceSale: 1, WindowDays: 30, AllowReturns: false}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.ReturnAllowed(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreditAllowed_DefaultRule(t *testing.T) {
	engine := MustEngine(DefaultRules())

	got, err := engine.CreditAllowed(CreditCheck{CreditLimit: 100, CurrentBalance: 99})
	require.NoError(t, err)
	assert.True(t, got)

	got, err = engine.CreditAllowed(CreditCheck{CreditLimit: 0, CurrentBalance: 0})
	require.NoError(t, err)
	assert.False(t, got)
}

func TestNewEngine_CustomRules(t *testing.T) {
	engine, err := NewEngine(Rules{
		ReturnEligibility: "days_since_sale <= 90",
		CreditEligibility: "current_balance < credit_limit * 0.8",
	})
	require.NoError(t, err)

	got, err := engine.ReturnAllowed(ReturnCheck{DaysSinceSale: 60, WindowDays: 30, AllowReturns: false})
	require.NoError(t, err)
	assert.True(t, got, "custom rule ignores window_days and allow_returns")

	got, err = engine.CreditAllowed(CreditCheck{CreditLimit: 100, CurrentBalance: 85})
	require.NoError(t, err)
	assert.False(t, got)
}

func TestNewEngine_RejectsInvalidExpressions(t *testing.T) {
	_, err := NewEngine(Rules{
		ReturnEligibility: "days_since_sale <=",
		CreditEligibility: DefaultCreditRule,
	})
	require.Error(t, err)

	// Non-boolean results are rejected at compile time.
	_, err = NewEngine(Rules{
		ReturnEligibility: "days_since_sale + window_days",
		CreditEligibility: DefaultCreditRule,
	})
	require.Error(t, err)
}
