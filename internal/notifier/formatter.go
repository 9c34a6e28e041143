package notifier

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"VaultAgent/internal/executor"
	"VaultAgent/internal/model"
)

// FormatPlan formats one cycle's allocation plan into a Telegram message.
func FormatPlan(plan *model.AllocationPlan) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>Vault Cycle Report</b> | %s\n\n", plan.CreatedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Total funds: $%.2f\n", plan.TotalFunds))
	b.WriteString(fmt.Sprintf("Required reserves: $%.2f (+$%.2f buffer)\n", plan.RequiredReserves, plan.SafetyBuffer))
	b.WriteString(fmt.Sprintf("Deployable: $%.2f | Reserve ratio: %.2f%%\n\n", plan.DeployableFunds, plan.CurrentReserveRatio*100))

	b.WriteString("📈 <b>Strategy APYs:</b>\n")
	for _, name := range sortedKeys(plan.StrategyAPYs) {
		b.WriteString(fmt.Sprintf("  %s: %.2f%% → target %.1f%%\n", name, plan.StrategyAPYs[name], plan.OptimalAllocation[name]))
	}

	if plan.UpcomingExpirations > 0 {
		b.WriteString(fmt.Sprintf("\n⏳ %d policies expiring soon\n", plan.UpcomingExpirations))
	}

	if plan.ShouldRebalance {
		b.WriteString("\n🔄 <b>Rebalance triggered:</b>\n")
		for _, reason := range plan.Reasons {
			b.WriteString(fmt.Sprintf("  • %s\n", reason))
		}
	} else {
		b.WriteString("\n✅ No rebalance needed\n")
	}

	return b.String()
}

// FormatRebalanceReport formats an executed rebalance for notification.
func FormatRebalanceReport(report *executor.Report) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("🔄 <b>Rebalance Executed</b> | %s\n\n", report.FinishedAt.Format("2006-01-02 15:04")))
	if len(report.Reasons) > 0 {
		b.WriteString(fmt.Sprintf("Reasons: %s\n\n", strings.Join(report.Reasons, "; ")))
	}

	if report.Shortfall > 0 {
		b.WriteString(fmt.Sprintf("💰 Reserve shortfall: $%.2f\n", report.Shortfall))
		if report.ShortfallRemaining > 0 {
			b.WriteString(fmt.Sprintf("⚠️ Unrecovered this cycle: $%.2f\n", report.ShortfallRemaining))
		}
	}
	if report.Deployed > 0 {
		b.WriteString(fmt.Sprintf("🚀 Deployed to strategies: $%.2f\n", report.Deployed))
	}

	if len(report.Actions) > 0 {
		b.WriteString("\n<b>Actions:</b>\n")
		for _, a := range report.Actions {
			status := "✅"
			if !a.OK {
				status = "❌"
			}
			b.WriteString(fmt.Sprintf("  %s %s $%.2f %s", status, a.Kind, a.Amount, a.Strategy))
			if a.Err != "" {
				b.WriteString(fmt.Sprintf(" (%s)", a.Err))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString(fmt.Sprintf("\nCompleted in %v", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond)))
	return b.String()
}

// FormatStatus formats the latest protocol snapshot for display.
func FormatStatus(snap *model.ProtocolSnapshot, lastRebalance time.Time) string {
	if snap == nil {
		return "No protocol snapshot available yet."
	}

	var b strings.Builder
	b.WriteString("📦 <b>Protocol Status</b>\n\n")
	b.WriteString(fmt.Sprintf("Total policies: %d\n", snap.TotalPolicies))
	b.WriteString(fmt.Sprintf("Active: %d | Open: %d | Pending settlement: %d\n",
		len(snap.ActivePolicies), len(snap.OpenPolicies), len(snap.PendingSettlements)))
	b.WriteString(fmt.Sprintf("Reserves required: $%.2f\n", snap.TotalReservesRequired))
	b.WriteString(fmt.Sprintf("Available liquidity: $%.2f\n", snap.AvailableLiquidity))
	b.WriteString(fmt.Sprintf("Snapshot taken: %s\n", snap.Timestamp.Format("2006-01-02 15:04:05")))
	if !lastRebalance.IsZero() {
		b.WriteString(fmt.Sprintf("Last rebalance: %s\n", lastRebalance.Format("2006-01-02 15:04:05")))
	} else {
		b.WriteString("Last rebalance: never\n")
	}
	return b.String()
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
