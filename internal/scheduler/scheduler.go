// Package scheduler runs the periodic monitoring loop: snapshot the
// protocol, read strategy yields, compute the plan, and execute a rebalance
// when triggered. One cycle at a time; stop requests take effect at cycle
// boundaries only.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"VaultAgent/internal/calculator"
	"VaultAgent/internal/config"
	"VaultAgent/internal/executor"
	"VaultAgent/internal/model"
	"VaultAgent/internal/notifier"
	"VaultAgent/internal/protocol"
	"VaultAgent/internal/recorder"
	"VaultAgent/internal/strategy"
)

// quoteTimeout bounds each individual APY read during the fan-out.
const quoteTimeout = 30 * time.Second

// MonitoringScheduler owns the cycle loop and the latest observed state.
type MonitoringScheduler struct {
	cfg      *config.Config
	provider protocol.Provider
	registry *strategy.Registry
	executor *executor.Executor
	recorder recorder.Recorder
	notifier *notifier.TelegramNotifier

	// runMu serializes cycles: the timer loop and manual triggers never
	// overlap.
	runMu sync.Mutex

	mu              sync.Mutex
	lastSnapshot    *model.ProtocolSnapshot
	lastPlan        *model.AllocationPlan
	lastRebalanceAt time.Time
	cycleCount      int
	rebalanceCount  int
}

// New creates a scheduler over the given collaborators.
func New(cfg *config.Config, provider protocol.Provider, registry *strategy.Registry,
	exec *executor.Executor, rec recorder.Recorder, tg *notifier.TelegramNotifier) *MonitoringScheduler {
	return &MonitoringScheduler{
		cfg:      cfg,
		provider: provider,
		registry: registry,
		executor: exec,
		recorder: rec,
		notifier: tg,
	}
}

// Run executes monitoring cycles until ctx is cancelled. A successful cycle
// sleeps the full cycle period; a failed cycle retries after the short error
// backoff. Cancellation is observed between cycles, never mid-cycle.
func (s *MonitoringScheduler) Run(ctx context.Context) {
	log.Printf("[INFO] monitoring loop started, cycle period %v", s.cfg.CyclePeriod())

	for {
		sleep := s.cfg.CyclePeriod()
		if err := s.RunCycle(ctx); err != nil {
			log.Printf("[ERROR] cycle failed: %v, retrying in %v", err, s.cfg.ErrorBackoff())
			sleep = s.cfg.ErrorBackoff()
		}

		select {
		case <-ctx.Done():
			log.Println("[INFO] monitoring loop stopped")
			return
		case <-time.After(sleep):
		}
	}
}

// RunCycle performs one full monitoring cycle with the configured weights.
func (s *MonitoringScheduler) RunCycle(ctx context.Context) error {
	return s.runCycle(ctx, configWeights(s.cfg), "auto", false)
}

// TriggerRebalance runs an immediate cycle with the base weights rewritten
// for the given risk tolerance, forcing execution regardless of the trigger
// conditions. It blocks until the cycle finishes.
func (s *MonitoringScheduler) TriggerRebalance(ctx context.Context, riskTolerance string) error {
	weights := calculator.ProfileWeights(configWeights(s.cfg), riskTolerance)
	log.Printf("[INFO] manual rebalance requested, tolerance=%s", riskTolerance)
	return s.runCycle(ctx, weights, "manual", true)
}

func (s *MonitoringScheduler) runCycle(ctx context.Context, weights []calculator.Weight, trigger string, force bool) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	start := time.Now()
	snap := s.fetchSnapshot(ctx)
	quotes := s.fetchQuotes(ctx)

	figures, err := calculator.ComputeReserves(snap, s.cfg.Agent.SafetyBufferFactor)
	if err != nil {
		return fmt.Errorf("compute reserves: %w", err)
	}

	apys := make(map[string]float64, len(quotes))
	for _, q := range quotes {
		apys[q.Name] = q.CurrentAPY
	}

	allocation := calculator.PlanAllocation(figures.DeployableFunds, weights,
		len(snap.ActivePolicies), s.cfg.Agent.HighActivityThreshold, s.cfg.Agent.LowActivityThreshold)

	should, reasons, expiring := calculator.EvaluateTrigger(calculator.TriggerInputs{
		CurrentReserveRatio: figures.CurrentReserveRatio,
		TargetRatio:         s.cfg.Agent.ReserveTargetRatio,
		StrategyAPYs:        apys,
		APYSpreadThreshold:  s.cfg.Agent.MinReallocationThreshold,
		ActivePolicies:      snap.ActivePolicies,
		ExpiryWindow:        s.cfg.ExpiryWindow(),
		Now:                 time.Now(),
	})
	if force && !should {
		should = true
		reasons = append(reasons, "Manual rebalance requested")
	}

	plan := &model.AllocationPlan{
		ShouldRebalance:     should,
		Reasons:             reasons,
		TotalFunds:          snap.AvailableLiquidity,
		RequiredReserves:    figures.RequiredReserves,
		SafetyBuffer:        figures.SafetyBuffer,
		DeployableFunds:     figures.DeployableFunds,
		CurrentReserveRatio: figures.CurrentReserveRatio,
		StrategyAPYs:        apys,
		OptimalAllocation:   allocation,
		UpcomingExpirations: expiring,
		CreatedAt:           time.Now(),
	}

	s.mu.Lock()
	s.lastSnapshot = snap
	s.lastPlan = plan
	s.cycleCount++
	s.mu.Unlock()

	log.Printf("[INFO] cycle complete: funds=%.2f reserves=%.2f deployable=%.2f ratio=%.4f rebalance=%v",
		plan.TotalFunds, plan.RequiredReserves, plan.DeployableFunds, plan.CurrentReserveRatio, should)

	s.record(plan, snap, quotes)

	if !should {
		return nil
	}

	report, err := s.executor.Execute(ctx, plan)
	if err != nil {
		return fmt.Errorf("execute rebalance: %w", err)
	}

	s.mu.Lock()
	s.lastRebalanceAt = report.FinishedAt
	s.rebalanceCount++
	s.mu.Unlock()

	s.recordRebalance(trigger, report, start)
	s.notify(ctx, plan, report)
	return nil
}

// fetchSnapshot reads the protocol snapshot, substituting an empty snapshot
// when the upstream read fails so the cycle still completes with zero funds.
func (s *MonitoringScheduler) fetchSnapshot(ctx context.Context) *model.ProtocolSnapshot {
	snap, err := s.provider.GetProtocolSnapshot(ctx)
	if err != nil {
		log.Printf("[WARN] snapshot fetch failed: %v, proceeding with empty snapshot", err)
		return &model.ProtocolSnapshot{Timestamp: time.Now()}
	}
	return snap
}

// fetchQuotes fans out one APY read per registered strategy. Adapters
// substitute their fallback constants on feed failure, so every strategy
// always yields a quote. Results come back in registration order.
func (s *MonitoringScheduler) fetchQuotes(ctx context.Context) []model.StrategyQuote {
	adapters := s.registry.All()
	quotes := make([]model.StrategyQuote, len(adapters))

	var wg sync.WaitGroup
	for i, adapter := range adapters {
		wg.Add(1)
		go func(i int, a strategy.Adapter) {
			defer wg.Done()
			qctx, cancel := context.WithTimeout(ctx, quoteTimeout)
			defer cancel()
			apy, fallback := a.CurrentAPY(qctx)
			quotes[i] = model.StrategyQuote{
				Name:       a.Name(),
				CurrentAPY: apy,
				RiskScore:  a.RiskScore(),
				Fallback:   fallback,
			}
		}(i, adapter)
	}
	wg.Wait()
	return quotes
}

func (s *MonitoringScheduler) record(plan *model.AllocationPlan, snap *model.ProtocolSnapshot, quotes []model.StrategyQuote) {
	if err := s.recorder.RecordCycle(&recorder.CycleRecord{
		TotalFunds:          plan.TotalFunds,
		RequiredReserves:    plan.RequiredReserves,
		SafetyBuffer:        plan.SafetyBuffer,
		DeployableFunds:     plan.DeployableFunds,
		CurrentReserveRatio: plan.CurrentReserveRatio,
		ActivePolicies:      len(snap.ActivePolicies),
		UpcomingExpirations: plan.UpcomingExpirations,
		ShouldRebalance:     plan.ShouldRebalance,
		Reasons:             strings.Join(plan.Reasons, ", "),
	}); err != nil {
		log.Printf("[WARN] record cycle: %v", err)
	}

	records := make([]recorder.QuoteRecord, len(quotes))
	now := time.Now()
	for i, q := range quotes {
		records[i] = recorder.QuoteRecord{Strategy: q.Name, APY: q.CurrentAPY, Fallback: q.Fallback, ReadAt: now}
	}
	if err := s.recorder.RecordQuotes(records); err != nil {
		log.Printf("[WARN] record quotes: %v", err)
	}
}

func (s *MonitoringScheduler) recordRebalance(trigger string, report *executor.Report, start time.Time) {
	actions := make([]recorder.ActionRecord, len(report.Actions))
	for i, a := range report.Actions {
		actions[i] = recorder.ActionRecord{
			Strategy:  a.Strategy,
			Kind:      string(a.Kind),
			Amount:    a.Amount,
			OK:        a.OK,
			Reference: a.Reference,
			Error:     a.Err,
		}
	}
	if err := s.recorder.RecordRebalance(&recorder.RebalanceRecord{
		Trigger:            trigger,
		Reasons:            strings.Join(report.Reasons, ", "),
		ReserveTarget:      report.ReserveTarget,
		Shortfall:          report.Shortfall,
		ShortfallRemaining: report.ShortfallRemaining,
		Deployed:           report.Deployed,
		DurationMS:         time.Since(start).Milliseconds(),
	}, actions); err != nil {
		log.Printf("[WARN] record rebalance: %v", err)
	}
}

func (s *MonitoringScheduler) notify(ctx context.Context, plan *model.AllocationPlan, report *executor.Report) {
	if s.notifier == nil || !s.notifier.Enabled() {
		return
	}
	msg := notifier.FormatPlan(plan) + "\n" + notifier.FormatRebalanceReport(report)
	if err := s.notifier.SendWithRetry(ctx, msg, 3); err != nil {
		log.Printf("[ERROR] send rebalance report: %v", err)
	}
}

// LastSnapshot returns the most recent protocol snapshot, nil before the
// first cycle.
func (s *MonitoringScheduler) LastSnapshot() *model.ProtocolSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSnapshot
}

// LastPlan returns the most recent allocation plan, nil before the first
// cycle.
func (s *MonitoringScheduler) LastPlan() *model.AllocationPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPlan
}

// LastRebalanceAt returns when the last rebalance finished, zero if none
// has run yet.
func (s *MonitoringScheduler) LastRebalanceAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRebalanceAt
}

// HandleCommand dispatches a Telegram chat command and returns the reply.
func (s *MonitoringScheduler) HandleCommand(ctx context.Context) notifier.CommandHandler {
	return func(command string) string {
		fields := strings.Fields(command)
		if len(fields) == 0 {
			return ""
		}
		switch fields[0] {
		case "/status":
			return notifier.FormatStatus(s.LastSnapshot(), s.LastRebalanceAt())
		case "/plan":
			plan := s.LastPlan()
			if plan == nil {
				return "No allocation plan computed yet."
			}
			return notifier.FormatPlan(plan)
		case "/rebalance":
			tolerance := "moderate"
			if len(fields) > 1 {
				tolerance = fields[1]
			}
			if err := s.TriggerRebalance(ctx, tolerance); err != nil {
				return fmt.Sprintf("Rebalance failed: %v", err)
			}
			return fmt.Sprintf("Rebalance completed (tolerance: %s).", tolerance)
		case "/help":
			return "Commands: /status, /plan, /rebalance [conservative|moderate|aggressive], /help"
		default:
			return ""
		}
	}
}

// DailyDigest builds the scheduled daily summary message.
func (s *MonitoringScheduler) DailyDigest() string {
	s.mu.Lock()
	snap, plan := s.lastSnapshot, s.lastPlan
	cycles, rebalances, last := s.cycleCount, s.rebalanceCount, s.lastRebalanceAt
	s.mu.Unlock()

	var b strings.Builder
	b.WriteString(fmt.Sprintf("📅 <b>Daily Vault Digest</b> | %s\n\n", time.Now().Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Cycles run: %d | Rebalances: %d\n\n", cycles, rebalances))
	b.WriteString(notifier.FormatStatus(snap, last))
	if plan != nil {
		b.WriteString("\n")
		b.WriteString(notifier.FormatPlan(plan))
	}
	return b.String()
}

func configWeights(cfg *config.Config) []calculator.Weight {
	weights := make([]calculator.Weight, len(cfg.Allocation.Weights))
	for i, w := range cfg.Allocation.Weights {
		weights[i] = calculator.Weight{Name: w.Name, Base: w.Weight, RiskScore: w.RiskScore}
	}
	return weights
}
