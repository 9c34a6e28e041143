package recorder

import "time"

// CycleRecord captures one monitoring cycle's plan figures.
type CycleRecord struct {
	TotalFunds          float64
	RequiredReserves    float64
	SafetyBuffer        float64
	DeployableFunds     float64
	CurrentReserveRatio float64
	ActivePolicies      int
	UpcomingExpirations int
	ShouldRebalance     bool
	Reasons             string // comma-joined trigger reasons
}

// RebalanceRecord captures one executed rebalance.
type RebalanceRecord struct {
	Trigger            string // "auto" or "manual"
	Reasons            string
	ReserveTarget      float64
	Shortfall          float64
	ShortfallRemaining float64
	Deployed           float64
	DurationMS         int64
}

// ActionRecord captures a single deposit or withdraw attempt.
type ActionRecord struct {
	Strategy  string
	Kind      string // "deposit" or "withdraw"
	Amount    float64
	OK        bool
	Reference string
	Error     string
}

// QuoteRecord captures one strategy's APY reading for a cycle.
type QuoteRecord struct {
	Strategy string
	APY      float64
	Fallback bool
	ReadAt   time.Time
}

// Recorder persists cycle history for external analysis. Recording is
// best-effort observability; failures never affect the engine.
type Recorder interface {
	RecordCycle(rec *CycleRecord) error
	RecordRebalance(rec *RebalanceRecord, actions []ActionRecord) error
	RecordQuotes(quotes []QuoteRecord) error
	Close() error
}
