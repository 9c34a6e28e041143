// Package executor carries out a rebalance decision against the strategy
// adapters: first restore reserve adequacy by withdrawing from strategies,
// then deploy the remaining funds per the target allocation. Both phases
// tolerate partial failure; nothing is retried within the same cycle.
package executor

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"VaultAgent/internal/model"
	"VaultAgent/internal/protocol"
	"VaultAgent/internal/strategy"
)

// allocationSumTolerance is how far a target allocation may deviate from
// 100% before it is rejected outright.
const allocationSumTolerance = 0.1

// withdrawCapFraction caps each single withdrawal at half the original
// shortfall, spreading recovery across strategies.
const withdrawCapFraction = 0.5

// AllocationSumError rejects a target allocation that does not sum to 100%.
// No side effects have occurred when this is returned.
type AllocationSumError struct {
	Sum float64
}

func (e AllocationSumError) Error() string {
	return fmt.Sprintf("target allocations must sum to 100%%, got %.2f%%", e.Sum)
}

// ActionKind distinguishes the two capital movements.
type ActionKind string

const (
	ActionWithdraw ActionKind = "withdraw"
	ActionDeposit  ActionKind = "deposit"
)

// Action records one attempted capital movement.
type Action struct {
	Strategy  string
	Kind      ActionKind
	Amount    float64
	OK        bool
	Reference string
	Err       string
}

// Report summarizes one executed rebalance: what was attempted, what
// succeeded, and any reserve shortfall left for the next cycle.
type Report struct {
	Reasons            []string
	ReserveTarget      float64
	Shortfall          float64
	ShortfallRemaining float64
	Deployed           float64
	Actions            []Action
	StartedAt          time.Time
	FinishedAt         time.Time
}

// Executor orchestrates the two rebalance phases.
type Executor struct {
	registry *strategy.Registry
	provider protocol.Provider
}

// New creates an Executor over the given strategies and snapshot provider.
func New(registry *strategy.Registry, provider protocol.Provider) *Executor {
	return &Executor{registry: registry, provider: provider}
}

// Execute runs both phases for the given plan. Phase 2 is attempted after
// phase 1 settles regardless of phase 1's outcome. The only error return is
// an invalid target allocation, rejected before any side effect; individual
// deposit/withdraw failures are captured in the report instead.
func (e *Executor) Execute(ctx context.Context, plan *model.AllocationPlan) (*Report, error) {
	if err := validateAllocation(plan); err != nil {
		return nil, err
	}

	report := &Report{
		Reasons:       plan.Reasons,
		ReserveTarget: plan.RequiredReserves + plan.SafetyBuffer,
		StartedAt:     time.Now(),
	}

	e.ensureReserves(ctx, plan, report)
	e.deploy(ctx, plan, report)

	report.FinishedAt = time.Now()
	return report, nil
}

func validateAllocation(plan *model.AllocationPlan) error {
	if plan.DeployableFunds <= 0 {
		return nil
	}
	sum := 0.0
	for _, pct := range plan.OptimalAllocation {
		sum += pct
	}
	if math.Abs(sum-100) > allocationSumTolerance {
		return AllocationSumError{Sum: sum}
	}
	return nil
}

// ensureReserves is phase 1: withdraw from strategies, lowest APY first,
// until the reserve balance covers required reserves plus the safety
// buffer. Each withdrawal is capped at half the original shortfall; a
// failed withdrawal skips to the next strategy without retry. Any remaining
// shortfall is reported and left for the next cycle.
func (e *Executor) ensureReserves(ctx context.Context, plan *model.AllocationPlan, report *Report) {
	current, err := e.provider.GetAvailableLiquidity(ctx)
	if err != nil {
		log.Printf("[WARN] reserve balance read failed: %v, using snapshot figure %.2f", err, plan.TotalFunds)
		current = plan.TotalFunds
	}

	if current >= report.ReserveTarget {
		return
	}
	shortfall := report.ReserveTarget - current
	report.Shortfall = shortfall
	log.Printf("[INFO] reserve shortfall detected: %.2f, withdrawing from strategies", shortfall)

	remaining := shortfall
	for _, adapter := range e.byAscendingAPY(plan.StrategyAPYs) {
		if remaining <= 0 {
			break
		}
		amount := math.Min(remaining, shortfall*withdrawCapFraction)
		res := adapter.Withdraw(ctx, amount)
		report.Actions = append(report.Actions, toAction(adapter.Name(), ActionWithdraw, amount, res))
		if res.OK {
			remaining -= amount
		} else {
			log.Printf("[ERROR] withdraw %.2f from %s failed: %v", amount, adapter.Name(), res.Err)
		}
	}

	report.ShortfallRemaining = remaining
	if remaining > 0 {
		log.Printf("[WARN] reserve shortfall of %.2f not recovered this cycle", remaining)
	}
}

// deploy is phase 2: deposit the deployable funds per the target
// allocation. Deposits are independent; one failure does not block others.
func (e *Executor) deploy(ctx context.Context, plan *model.AllocationPlan, report *Report) {
	if plan.DeployableFunds <= 0 {
		return
	}
	for _, name := range e.registry.Names() {
		pct := plan.OptimalAllocation[name]
		if pct <= 0 {
			continue
		}
		adapter, ok := e.registry.Get(name)
		if !ok {
			continue
		}
		amount := plan.DeployableFunds * pct / 100
		res := adapter.Deposit(ctx, amount)
		report.Actions = append(report.Actions, toAction(name, ActionDeposit, amount, res))
		if res.OK {
			report.Deployed += amount
		} else {
			log.Printf("[ERROR] deploy %.2f to %s failed: %v", amount, name, res.Err)
		}
	}
}

// byAscendingAPY returns the registered adapters ordered by their quoted
// APY, cheapest capital first. Ties break by name for determinism.
func (e *Executor) byAscendingAPY(apys map[string]float64) []strategy.Adapter {
	adapters := e.registry.All()
	sort.SliceStable(adapters, func(a, b int) bool {
		apyA, apyB := apys[adapters[a].Name()], apys[adapters[b].Name()]
		if apyA != apyB {
			return apyA < apyB
		}
		return adapters[a].Name() < adapters[b].Name()
	})
	return adapters
}

func toAction(name string, kind ActionKind, amount float64, res strategy.Result) Action {
	action := Action{Strategy: name, Kind: kind, Amount: amount, OK: res.OK, Reference: res.Reference}
	if res.Err != nil {
		action.Err = res.Err.Error()
	}
	return action
}
