// Package report renders the run outcome: a structured JSON report, a
// console summary, and an optional standalone HTML dashboard. The
// engine stays agnostic to all of it; this package only consumes the
// alert sequence and run summary.
package report

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/shrike/internal/domain"
)

// Report is the structured JSON report written per run.
type Report struct {
	RunID       string    `json:"runId"`
	GeneratedAt time.Time `json:"generatedAt"`

	TotalProcessed int     `json:"totalProcessed"`
	TotalAlerts    int     `json:"totalAlerts"`
	SkippedRecords int     `json:"skippedRecords"`
	FraudRatePct   float64 `json:"fraudRatePct"`
	AverageScore   float64 `json:"averageScore"`

	RuleFires []domain.RuleFireCount `json:"ruleFires"`

	HighAlerts     int `json:"highAlerts"`
	CriticalAlerts int `json:"criticalAlerts"`

	// Alerts are sorted by risk score descending for readability; the
	// engine's own output order is the batch input order.
	Alerts []AlertEntry `json:"alerts"`
}

// AlertEntry is one alerted transaction in the JSON report.
type AlertEntry struct {
	TransactionID  string           `json:"transactionId"`
	UserID         string           `json:"userId"`
	Timestamp      time.Time        `json:"timestamp"`
	Amount         float64          `json:"amount"`
	Location       string           `json:"location,omitempty"`
	RiskScore      int              `json:"riskScore"`
	RiskLevel      domain.RiskLevel `json:"riskLevel"`
	TriggeredRules []string         `json:"triggeredRules"`
}

// Build assembles a Report from the run outcome. skipped is the
// loader's malformed-record count.
func Build(alerts []domain.Alert, summary domain.RunSummary, skipped int) *Report {
	rpt := &Report{
		RunID:          uuid.New().String(),
		GeneratedAt:    time.Now().UTC(),
		TotalProcessed: summary.Processed,
		TotalAlerts:    summary.Alerts,
		SkippedRecords: skipped,
		FraudRatePct:   round2(summary.FraudRatePct),
		AverageScore:   round2(summary.AverageScore),
		RuleFires:      summary.RuleFires,
		HighAlerts:     summary.HighCount,
		CriticalAlerts: summary.CriticalCount,
	}

	for _, a := range alerts {
		rpt.Alerts = append(rpt.Alerts, AlertEntry{
			TransactionID:  a.Transaction.ID,
			UserID:         a.Transaction.UserID,
			Timestamp:      a.Transaction.Timestamp,
			Amount:         a.Transaction.Amount,
			Location:       a.Transaction.Location,
			RiskScore:      a.RiskScore,
			RiskLevel:      a.RiskLevel,
			TriggeredRules: a.TriggeredRules,
		})
	}
	sort.SliceStable(rpt.Alerts, func(i, j int) bool {
		return rpt.Alerts[i].RiskScore > rpt.Alerts[j].RiskScore
	})

	return rpt
}

// WriteJSON writes the report to path as indented JSON.
func (r *Report) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	slog.Info("json report written", "path", path, "alerts", len(r.Alerts))
	return nil
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
