package calculator

import "sort"

// Weight is one strategy's base allocation weight and static risk score.
type Weight struct {
	Name      string
	Base      float64
	RiskScore float64
}

// Activity-based risk multipliers applied to the highest-risk strategy.
const (
	conservativeMultiplier = 0.8 // many active policies, hold back on leverage
	aggressiveMultiplier   = 1.2 // few active policies, room for more risk
)

// PlanAllocation computes the target allocation percentages for deployable
// funds. The highest-risk weight is scaled by an activity multiplier (0.8
// above highThreshold active policies, 1.2 below lowThreshold), then all
// weights are normalized to percentages summing to 100.
//
// When deployable is zero or negative every allocation is zero. The result
// preserves the order of weights and is fully deterministic.
func PlanAllocation(deployable float64, weights []Weight, activeCount, highThreshold, lowThreshold int) map[string]float64 {
	allocation := make(map[string]float64, len(weights))
	if deployable <= 0 || len(weights) == 0 {
		for _, w := range weights {
			allocation[w.Name] = 0
		}
		return allocation
	}

	multiplier := 1.0
	if activeCount > highThreshold {
		multiplier = conservativeMultiplier
	} else if activeCount < lowThreshold {
		multiplier = aggressiveMultiplier
	}

	riskiest := 0
	for i, w := range weights {
		if w.RiskScore > weights[riskiest].RiskScore {
			riskiest = i
		}
	}

	total := 0.0
	scaled := make([]float64, len(weights))
	for i, w := range weights {
		scaled[i] = w.Base
		if i == riskiest {
			scaled[i] *= multiplier
		}
		total += scaled[i]
	}

	for i, w := range weights {
		allocation[w.Name] = scaled[i] / total * 100
	}
	return allocation
}

// Risk-tolerance profiles for manually triggered rebalances. Each profile
// assigns base weights by descending risk rank.
var profileWeights = map[string][]float64{
	"conservative": {0.2, 0.5, 0.3},
	"moderate":     {0.4, 0.4, 0.2},
	"aggressive":   {0.6, 0.3, 0.1},
}

// ProfileWeights rewrites the base weights according to a named risk
// tolerance: the riskiest strategy receives the first profile fraction, the
// next riskiest the second, and so on. Unknown tolerances fall back to
// moderate. Strategies beyond the profile length keep their original base.
func ProfileWeights(weights []Weight, tolerance string) []Weight {
	profile, ok := profileWeights[tolerance]
	if !ok {
		profile = profileWeights["moderate"]
	}

	ranked := make([]int, len(weights))
	for i := range ranked {
		ranked[i] = i
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		if weights[ranked[a]].RiskScore != weights[ranked[b]].RiskScore {
			return weights[ranked[a]].RiskScore > weights[ranked[b]].RiskScore
		}
		return weights[ranked[a]].Name < weights[ranked[b]].Name
	})

	out := make([]Weight, len(weights))
	copy(out, weights)
	for rank, idx := range ranked {
		if rank < len(profile) {
			out[idx].Base = profile[rank]
		}
	}
	return out
}
