// Package strategy defines the capability interface for yield strategies and
// the concrete variants the agent can deploy capital into. All capital
// movement results are structured; no raw transport error crosses this
// boundary.
package strategy

import "context"

// Result is the outcome of a deposit or withdraw call.
type Result struct {
	OK        bool
	Reference string // transaction reference, set on success
	Err       error  // set when OK is false
}

// Adapter is the closed capability interface every strategy implements.
// Calls on the same adapter must not run concurrently; the Registry
// enforces this. Calls across distinct adapters may overlap.
type Adapter interface {
	Name() string
	RiskScore() float64
	// FallbackAPY is the documented constant substituted when the live feed
	// is unavailable.
	FallbackAPY() float64
	// CurrentAPY returns the live yield in percent. On feed failure the
	// adapter substitutes its fallback and reports fallback=true; callers
	// treat the value as already-resolved input.
	CurrentAPY(ctx context.Context) (apy float64, fallback bool)
	// Deposit moves capital into the strategy. May be slow.
	Deposit(ctx context.Context, amount float64) Result
	// Withdraw removes capital from the strategy. May be slow.
	Withdraw(ctx context.Context, amount float64) Result
}

func success(reference string) Result {
	return Result{OK: true, Reference: reference}
}

func failure(err error) Result {
	return Result{OK: false, Err: err}
}
