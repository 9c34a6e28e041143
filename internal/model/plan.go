package model

import "time"

// StrategyQuote is a single strategy's live yield reading for one cycle.
type StrategyQuote struct {
	Name       string
	CurrentAPY float64 // percent, annualized
	RiskScore  float64
	Fallback   bool // true when the feed failed and the fallback constant was substituted
}

// AllocationPlan is the full output of one planning pass: reserve figures,
// trigger decision, and target allocation. Computed fresh each cycle and
// owned exclusively by the cycle that produced it.
type AllocationPlan struct {
	ShouldRebalance     bool               `json:"should_rebalance"`
	Reasons             []string           `json:"reasons"`
	TotalFunds          float64            `json:"total_funds"`
	RequiredReserves    float64            `json:"required_reserves"`
	SafetyBuffer        float64            `json:"safety_buffer"`
	DeployableFunds     float64            `json:"deployable_funds"`
	CurrentReserveRatio float64            `json:"current_reserve_ratio"`
	StrategyAPYs        map[string]float64 `json:"strategy_apys"`
	OptimalAllocation   map[string]float64 `json:"optimal_allocation"` // percent per strategy
	UpcomingExpirations int                `json:"upcoming_expirations"`
	CreatedAt           time.Time          `json:"created_at"`
}
