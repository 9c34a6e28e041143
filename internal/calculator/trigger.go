package calculator

import (
	"fmt"
	"time"

	"VaultAgent/internal/model"
)

// TriggerInputs bundles everything the rebalance decision depends on.
type TriggerInputs struct {
	CurrentReserveRatio float64
	TargetRatio         float64
	StrategyAPYs        map[string]float64
	APYSpreadThreshold  float64 // percent
	ActivePolicies      []model.Policy
	ExpiryWindow        time.Duration
	Now                 time.Time
}

// EvaluateTrigger decides whether a rebalance is warranted. The three
// conditions are evaluated in fixed order and each true condition appends
// its reason, so the reasons slice doubles as an audit trail:
//
//  1. reserve ratio below target
//  2. APY spread above threshold
//  3. active policies expiring within the window
//
// expiringCount is returned even when zero so the plan can report it.
func EvaluateTrigger(in TriggerInputs) (shouldRebalance bool, reasons []string, expiringCount int) {
	if in.CurrentReserveRatio < in.TargetRatio {
		reasons = append(reasons, "Insufficient reserves for policy coverage")
	}

	if spread := apySpread(in.StrategyAPYs); spread > in.APYSpreadThreshold {
		reasons = append(reasons, fmt.Sprintf("APY spread of %.2f%% detected", spread))
	}

	for i := range in.ActivePolicies {
		remaining, ok := in.ActivePolicies[i].TimeToExpiry(in.Now)
		if ok && remaining < int64(in.ExpiryWindow.Seconds()) {
			expiringCount++
		}
	}
	if expiringCount > 0 {
		reasons = append(reasons, fmt.Sprintf("%d policies expiring soon", expiringCount))
	}

	return len(reasons) > 0, reasons, expiringCount
}

func apySpread(apys map[string]float64) float64 {
	if len(apys) == 0 {
		return 0
	}
	first := true
	var min, max float64
	for _, apy := range apys {
		if first {
			min, max = apy, apy
			first = false
			continue
		}
		if apy < min {
			min = apy
		}
		if apy > max {
			max = apy
		}
	}
	return max - min
}
