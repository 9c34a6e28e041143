package recorder

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "agent.db"))
	if err != nil {
		t.Fatalf("open recorder: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSQLiteRecorder_RecordCycle(t *testing.T) {
	r := openTestRecorder(t)

	if err := r.RecordCycle(&CycleRecord{
		TotalFunds:          100000,
		RequiredReserves:    20000,
		SafetyBuffer:        4000,
		DeployableFunds:     76000,
		CurrentReserveRatio: 0.24,
		ActivePolicies:      2,
		ShouldRebalance:     false,
	}); err != nil {
		t.Fatalf("record cycle: %v", err)
	}

	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM cycles").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("cycles count = %d, want 1", count)
	}
}

func TestSQLiteRecorder_RecordRebalanceWithActions(t *testing.T) {
	r := openTestRecorder(t)

	rec := &RebalanceRecord{
		Trigger:       "auto",
		Reasons:       "APY spread of 4.00% detected",
		ReserveTarget: 24000,
		Deployed:      76000,
		DurationMS:    120,
	}
	actions := []ActionRecord{
		{Strategy: "init_looping", Kind: "deposit", Amount: 34200, OK: true, Reference: "ref-1"},
		{Strategy: "circuit_vault", Kind: "deposit", Amount: 26600, OK: false, Error: "vault paused"},
	}
	if err := r.RecordRebalance(rec, actions); err != nil {
		t.Fatalf("record rebalance: %v", err)
	}

	var actionCount int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM actions").Scan(&actionCount); err != nil {
		t.Fatal(err)
	}
	if actionCount != 2 {
		t.Errorf("actions count = %d, want 2", actionCount)
	}

	var trigger string
	if err := r.db.QueryRow("SELECT trigger_type FROM rebalances LIMIT 1").Scan(&trigger); err != nil {
		t.Fatal(err)
	}
	if trigger != "auto" {
		t.Errorf("trigger = %s, want auto", trigger)
	}
}

func TestSQLiteRecorder_RecordQuotes(t *testing.T) {
	r := openTestRecorder(t)

	now := time.Now()
	quotes := []QuoteRecord{
		{Strategy: "init_looping", APY: 8.5, Fallback: true, ReadAt: now},
		{Strategy: "mnt_staking", APY: 4.7, Fallback: false, ReadAt: now},
	}
	if err := r.RecordQuotes(quotes); err != nil {
		t.Fatalf("record quotes: %v", err)
	}

	var fallbacks int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM quotes WHERE fallback = 1").Scan(&fallbacks); err != nil {
		t.Fatal(err)
	}
	if fallbacks != 1 {
		t.Errorf("fallback quotes = %d, want 1", fallbacks)
	}
}
