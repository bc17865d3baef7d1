package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/opensource-finance/shrike/internal/domain"
)

const topAlerts = 10

// PrintConsole writes a human-readable run summary to w: key metrics,
// the rule trigger breakdown, and the highest-risk alerts.
func PrintConsole(w io.Writer, alerts []domain.Alert, summary domain.RunSummary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  SHRIKE — FRAUD DETECTION REPORT")
	fmt.Fprintln(w, "  "+strings.Repeat("─", 46))
	fmt.Fprintf(w, "  Total Processed  : %d\n", summary.Processed)
	fmt.Fprintf(w, "  Alerts Generated : %d (%.2f%%)\n", summary.Alerts, summary.FraudRatePct)
	fmt.Fprintf(w, "  Average Score    : %.1f\n", summary.AverageScore)
	if summary.MostActiveRule != "" {
		fmt.Fprintf(w, "  Most Active Rule : %s\n", summary.MostActiveRule)
	}
	fmt.Fprintf(w, "  CRITICAL Alerts  : %d\n", summary.CriticalCount)
	fmt.Fprintf(w, "  HIGH Alerts      : %d\n", summary.HighCount)
	fmt.Fprintln(w)

	printRuleBreakdown(w, summary)
	printTopAlerts(w, alerts)
}

func printRuleBreakdown(w io.Writer, summary domain.RunSummary) {
	if len(summary.RuleFires) == 0 {
		return
	}
	fmt.Fprintln(w, "  Rule Trigger Breakdown")
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  RULE\tTRIGGERS\t% OF TOTAL")
	for _, rf := range summary.RuleFires {
		pct := 0.0
		if summary.Processed > 0 {
			pct = float64(rf.Count) / float64(summary.Processed) * 100
		}
		fmt.Fprintf(tw, "  %s\t%d\t%.1f%%\n", rf.Rule, rf.Count, pct)
	}
	tw.Flush()
	fmt.Fprintln(w)
}

func printTopAlerts(w io.Writer, alerts []domain.Alert) {
	if len(alerts) == 0 {
		return
	}

	sorted := make([]domain.Alert, len(alerts))
	copy(sorted, alerts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RiskScore > sorted[j].RiskScore
	})
	if len(sorted) > topAlerts {
		sorted = sorted[:topAlerts]
	}

	fmt.Fprintf(w, "  Top %d Highest-Risk Transactions\n", len(sorted))
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  TRANSACTION\tUSER\tAMOUNT\tSCORE\tLEVEL\tRULES")
	for _, a := range sorted {
		fmt.Fprintf(tw, "  %s\t%s\t$%.2f\t%d\t%s\t%s\n",
			truncate(a.Transaction.ID, 16),
			a.Transaction.UserID,
			a.Transaction.Amount,
			a.RiskScore,
			a.RiskLevel,
			strings.Join(a.TriggeredRules, ", "),
		)
	}
	tw.Flush()
	fmt.Fprintln(w)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
