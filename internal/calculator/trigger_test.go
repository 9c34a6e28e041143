package calculator

import (
	"testing"
	"time"

	"VaultAgent/internal/model"
)

func baseInputs(now time.Time) TriggerInputs {
	return TriggerInputs{
		CurrentReserveRatio: 0.24,
		TargetRatio:         0.15,
		StrategyAPYs:        map[string]float64{"a": 8.5, "b": 8.3},
		APYSpreadThreshold:  0.5,
		ExpiryWindow:        time.Hour,
		Now:                 now,
	}
}

func TestEvaluateTrigger_NoConditionsMet(t *testing.T) {
	should, reasons, expiring := EvaluateTrigger(baseInputs(time.Now()))
	if should {
		t.Errorf("expected no rebalance, got reasons %v", reasons)
	}
	if len(reasons) != 0 {
		t.Errorf("expected empty reasons, got %v", reasons)
	}
	if expiring != 0 {
		t.Errorf("expected 0 expiring, got %d", expiring)
	}
}

func TestEvaluateTrigger_LowReserveRatio(t *testing.T) {
	in := baseInputs(time.Now())
	in.CurrentReserveRatio = 0.10
	should, reasons, _ := EvaluateTrigger(in)
	if !should {
		t.Fatal("expected rebalance for low reserve ratio")
	}
	if len(reasons) != 1 || reasons[0] != "Insufficient reserves for policy coverage" {
		t.Errorf("unexpected reasons: %v", reasons)
	}
}

func TestEvaluateTrigger_APYSpread(t *testing.T) {
	in := baseInputs(time.Now())
	in.StrategyAPYs = map[string]float64{"a": 8.5, "b": 6.8, "c": 4.5}
	should, reasons, _ := EvaluateTrigger(in)
	if !should {
		t.Fatal("expected rebalance for APY spread")
	}
	if len(reasons) != 1 || reasons[0] != "APY spread of 4.00% detected" {
		t.Errorf("unexpected reasons: %v", reasons)
	}
}

func TestEvaluateTrigger_SpreadAtThresholdDoesNotFire(t *testing.T) {
	in := baseInputs(time.Now())
	in.StrategyAPYs = map[string]float64{"a": 5.0, "b": 4.5}
	should, _, _ := EvaluateTrigger(in)
	if should {
		t.Error("spread exactly at threshold must not trigger")
	}
}

func TestEvaluateTrigger_ExpiringPolicies(t *testing.T) {
	now := time.Now()
	in := baseInputs(now)
	in.ActivePolicies = []model.Policy{
		{ID: 1, State: model.PolicyActive, ExpiryTimestamp: now.Unix() + 600},
		{ID: 2, State: model.PolicyActive, ExpiryTimestamp: now.Unix() + 7200},
		{ID: 3, State: model.PolicyActive}, // no expiry set
	}
	should, reasons, expiring := EvaluateTrigger(in)
	if !should {
		t.Fatal("expected rebalance for imminent expiration")
	}
	if expiring != 1 {
		t.Errorf("expiring = %d, want 1", expiring)
	}
	if len(reasons) != 1 || reasons[0] != "1 policies expiring soon" {
		t.Errorf("unexpected reasons: %v", reasons)
	}
}

func TestEvaluateTrigger_ReasonsKeepFixedOrder(t *testing.T) {
	now := time.Now()
	in := baseInputs(now)
	in.CurrentReserveRatio = 0.05
	in.StrategyAPYs = map[string]float64{"a": 9.0, "b": 4.0}
	in.ActivePolicies = []model.Policy{
		{ID: 1, State: model.PolicyActive, ExpiryTimestamp: now.Unix() + 60},
		{ID: 2, State: model.PolicyActive, ExpiryTimestamp: now.Unix() + 120},
	}
	should, reasons, _ := EvaluateTrigger(in)
	if !should {
		t.Fatal("expected rebalance")
	}
	if len(reasons) != 3 {
		t.Fatalf("expected 3 reasons, got %v", reasons)
	}
	if reasons[0] != "Insufficient reserves for policy coverage" {
		t.Errorf("reasons[0] = %q", reasons[0])
	}
	if reasons[1] != "APY spread of 5.00% detected" {
		t.Errorf("reasons[1] = %q", reasons[1])
	}
	if reasons[2] != "2 policies expiring soon" {
		t.Errorf("reasons[2] = %q", reasons[2])
	}
}

func TestAPYSpread_EmptyMap(t *testing.T) {
	if spread := apySpread(nil); spread != 0 {
		t.Errorf("spread of empty map = %.2f, want 0", spread)
	}
}
