package calculator

import (
	"math"
	"testing"
)

func defaultWeights() []Weight {
	return []Weight{
		{Name: "init_looping", Base: 0.45, RiskScore: 0.7},
		{Name: "circuit_vault", Base: 0.35, RiskScore: 0.4},
		{Name: "mnt_staking", Base: 0.20, RiskScore: 0.2},
	}
}

func allocationSum(m map[string]float64) float64 {
	sum := 0.0
	for _, v := range m {
		sum += v
	}
	return sum
}

func TestPlanAllocation_NormalActivity(t *testing.T) {
	alloc := PlanAllocation(76000, defaultWeights(), 5, 10, 3)
	if !almostEqual(alloc["init_looping"], 45) {
		t.Errorf("init_looping = %.2f, want 45", alloc["init_looping"])
	}
	if !almostEqual(alloc["circuit_vault"], 35) {
		t.Errorf("circuit_vault = %.2f, want 35", alloc["circuit_vault"])
	}
	if !almostEqual(alloc["mnt_staking"], 20) {
		t.Errorf("mnt_staking = %.2f, want 20", alloc["mnt_staking"])
	}
}

func TestPlanAllocation_HighActivityDampensRisk(t *testing.T) {
	// 12 active policies: the riskiest weight is scaled by 0.8 then the
	// whole set is renormalized. 0.36/0.91, 0.35/0.91, 0.20/0.91.
	alloc := PlanAllocation(50000, defaultWeights(), 12, 10, 3)

	if math.Abs(alloc["init_looping"]-39.56) > 0.01 {
		t.Errorf("init_looping = %.2f, want ~39.56", alloc["init_looping"])
	}
	if math.Abs(alloc["circuit_vault"]-38.46) > 0.01 {
		t.Errorf("circuit_vault = %.2f, want ~38.46", alloc["circuit_vault"])
	}
	if math.Abs(alloc["mnt_staking"]-21.98) > 0.01 {
		t.Errorf("mnt_staking = %.2f, want ~21.98", alloc["mnt_staking"])
	}
	if math.Abs(allocationSum(alloc)-100) > 1e-6 {
		t.Errorf("allocations sum to %.6f, want 100", allocationSum(alloc))
	}
}

func TestPlanAllocation_LowActivityBoostsRisk(t *testing.T) {
	alloc := PlanAllocation(50000, defaultWeights(), 1, 10, 3)
	// 0.45*1.2 = 0.54; total 1.09
	if math.Abs(alloc["init_looping"]-49.54) > 0.01 {
		t.Errorf("init_looping = %.2f, want ~49.54", alloc["init_looping"])
	}
	if alloc["init_looping"] <= 45 {
		t.Error("expected boosted allocation for riskiest strategy under low activity")
	}
	if math.Abs(allocationSum(alloc)-100) > 1e-6 {
		t.Errorf("allocations sum to %.6f, want 100", allocationSum(alloc))
	}
}

func TestPlanAllocation_ZeroDeployable(t *testing.T) {
	for _, deployable := range []float64{0, -100} {
		alloc := PlanAllocation(deployable, defaultWeights(), 5, 10, 3)
		if len(alloc) != 3 {
			t.Fatalf("expected entry per strategy, got %d", len(alloc))
		}
		for name, pct := range alloc {
			if pct != 0 {
				t.Errorf("deployable %.0f: %s = %.2f, want 0", deployable, name, pct)
			}
		}
	}
}

func TestPlanAllocation_Deterministic(t *testing.T) {
	first := PlanAllocation(76000, defaultWeights(), 12, 10, 3)
	for i := 0; i < 10; i++ {
		again := PlanAllocation(76000, defaultWeights(), 12, 10, 3)
		for name := range first {
			if first[name] != again[name] {
				t.Fatalf("run %d: %s = %v, want %v", i, name, again[name], first[name])
			}
		}
	}
}

func TestProfileWeights_Aggressive(t *testing.T) {
	out := ProfileWeights(defaultWeights(), "aggressive")
	if !almostEqual(out[0].Base, 0.6) {
		t.Errorf("riskiest base = %.2f, want 0.6", out[0].Base)
	}
	if !almostEqual(out[1].Base, 0.3) {
		t.Errorf("middle base = %.2f, want 0.3", out[1].Base)
	}
	if !almostEqual(out[2].Base, 0.1) {
		t.Errorf("safest base = %.2f, want 0.1", out[2].Base)
	}
}

func TestProfileWeights_ConservativeAssignsByRiskRank(t *testing.T) {
	// Order in the slice must not matter, only risk scores.
	weights := []Weight{
		{Name: "mnt_staking", Base: 0.20, RiskScore: 0.2},
		{Name: "init_looping", Base: 0.45, RiskScore: 0.7},
		{Name: "circuit_vault", Base: 0.35, RiskScore: 0.4},
	}
	out := ProfileWeights(weights, "conservative")
	byName := map[string]float64{}
	for _, w := range out {
		byName[w.Name] = w.Base
	}
	if !almostEqual(byName["init_looping"], 0.2) {
		t.Errorf("init_looping base = %.2f, want 0.2", byName["init_looping"])
	}
	if !almostEqual(byName["circuit_vault"], 0.5) {
		t.Errorf("circuit_vault base = %.2f, want 0.5", byName["circuit_vault"])
	}
	if !almostEqual(byName["mnt_staking"], 0.3) {
		t.Errorf("mnt_staking base = %.2f, want 0.3", byName["mnt_staking"])
	}
}

func TestProfileWeights_UnknownFallsBackToModerate(t *testing.T) {
	out := ProfileWeights(defaultWeights(), "yolo")
	if !almostEqual(out[0].Base, 0.4) {
		t.Errorf("riskiest base = %.2f, want moderate 0.4", out[0].Base)
	}
}
