// Package policy provides configurable business-rule evaluation backed by
// CEL expressions. Deployments override the default rules via configuration
// without recompiling (e.g. a longer return window for a flagship store).
package policy

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Default rule expressions. Kept intentionally simple; the precise
// decimal arithmetic (credit availability, refund amounts) stays in the
// domain services - these rules only decide eligibility.
const (
	DefaultReturnRule = "allow_returns && days_since_sale <= window_days"
	DefaultCreditRule = "credit_limit > 0.0"
)

// Rules holds the CEL source for each policy decision point.
type Rules struct {
	// ReturnEligibility decides whether a sales order may accept returns.
	// Variables: days_since_sale (int), window_days (int), allow_returns (bool).
	ReturnEligibility string

	// CreditEligibility decides whether a customer may buy on credit at all.
	// Variables: credit_limit (double), current_balance (double).
	CreditEligibility string
}

// DefaultRules returns the built-in rule set.
func DefaultRules() Rules {
	return Rules{
		ReturnEligibility: DefaultReturnRule,
		CreditEligibility: DefaultCreditRule,
	}
}

// ReturnCheck is the input for return-eligibility evaluation.
type ReturnCheck struct {
	DaysSinceSale int
	WindowDays    int
	AllowReturns  bool
}

// CreditCheck is the input for credit-eligibility evaluation.
type CreditCheck struct {
	CreditLimit    float64
	CurrentBalance float64
}

// Engine compiles the rules once and evaluates them per request.
type Engine struct {
	returnProg cel.Program
	creditProg cel.Program
}

// NewEngine compiles the rule set. Invalid expressions fail fast at startup.
func NewEngine(rules Rules) (*Engine, error) {
	returnEnv, err := cel.NewEnv(
		cel.Variable("days_since_sale", cel.IntType),
		cel.Variable("window_days", cel.IntType),
		cel.Variable("allow_returns", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("create return rule env: %w", err)
	}

	returnProg, err := compileBool(returnEnv, rules.ReturnEligibility)
	if err != nil {
		return nil, fmt.Errorf("compile return rule: %w", err)
	}

	creditEnv, err := cel.NewEnv(
		cel.Variable("credit_limit", cel.DoubleType),
		cel.Variable("current_balance", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("create credit rule env: %w", err)
	}

	creditProg, err := compileBool(creditEnv, rules.CreditEligibility)
	if err != nil {
		return nil, fmt.Errorf("compile credit rule: %w", err)
	}

	return &Engine{
		returnProg: returnProg,
		creditProg: creditProg,
	}, nil
}

// MustEngine compiles the rules, panicking on error. Use for defaults in tests.
func MustEngine(rules Rules) *Engine {
	e, err := NewEngine(rules)
	if err != nil {
		panic(err)
	}
	return e
}

// ReturnAllowed evaluates the return-eligibility rule.
func (e *Engine) ReturnAllowed(in ReturnCheck) (bool, error) {
	return evalBool(e.returnProg, map[string]any{
		"days_since_sale": in.DaysSinceSale,
		"window_days":     in.WindowDays,
		"allow_returns":   in.AllowReturns,
	})
}

// CreditAllowed evaluates the credit-eligibility rule.
func (e *Engine) CreditAllowed(in CreditCheck) (bool, error) {
	return evalBool(e.creditProg, map[string]any{
		"credit_limit":    in.CreditLimit,
		"current_balance": in.CurrentBalance,
	})
}

func compileBool(env *cel.Env, expr string) (cel.Program, error) {
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule must evaluate to bool, got %v", ast.OutputType())
	}
	return env.Program(ast)
}

func evalBool(prg cel.Program, vars map[string]any) (bool, error) {
	out, _, err := prg.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("evaluate rule: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule returned non-bool value %v", out.Value())
	}
	return result, nil
}
