package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/opensource-finance/shrike/internal/domain"
)

const topDashboardAlerts = 15

// dashboardData is embedded as JSON into the generated HTML page and
// consumed by the Chart.js snippets in the template.
type dashboardData struct {
	GeneratedAt string `json:"generatedAt"`

	Summary struct {
		Total     int     `json:"total"`
		Alerts    int     `json:"alerts"`
		FraudRate float64 `json:"fraudRate"`
		AvgScore  float64 `json:"avgScore"`
		MaxScore  int     `json:"maxScore"`
		Critical  int     `json:"critical"`
		High      int     `json:"high"`
		NoAlert   int     `json:"noAlert"`
	} `json:"summary"`

	RuleFires         []domain.RuleFireCount `json:"ruleFires"`
	ScoreDistribution map[string]int         `json:"scoreDistribution"`
	AlertsByHour      [24]int                `json:"alertsByHour"`
	AmountRanges      map[string]int         `json:"amountRanges"`
	TopAlerts         []AlertEntry           `json:"topAlerts"`
}

var scoreBuckets = []struct {
	label string
	max   int // inclusive upper bound, -1 means unbounded
}{
	{"0", 0},
	{"1-25", 25},
	{"26-50", 50},
	{"51-75", 75},
	{"76-100", 100},
	{"101-150", 150},
	{"150+", -1},
}

// WriteDashboard generates a standalone HTML dashboard at path. All
// data is embedded; no server is required to view it.
func WriteDashboard(path string, alerts []domain.Alert, summary domain.RunSummary, scores []int) error {
	data := computeDashboardData(alerts, summary, scores)

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode dashboard data: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dashboard: %w", err)
	}
	defer f.Close()

	if err := dashboardTmpl.Execute(f, map[string]any{
		"Data":    template.JS(payload),
		"Summary": data.Summary,
	}); err != nil {
		return fmt.Errorf("failed to render dashboard: %w", err)
	}

	slog.Info("dashboard generated", "path", path)
	return nil
}

func computeDashboardData(alerts []domain.Alert, summary domain.RunSummary, scores []int) *dashboardData {
	data := &dashboardData{
		GeneratedAt: time.Now().UTC().Format(time.RFC1123),
		RuleFires:   summary.RuleFires,
	}
	data.Summary.Total = summary.Processed
	data.Summary.Alerts = summary.Alerts
	data.Summary.FraudRate = round2(summary.FraudRatePct)
	data.Summary.AvgScore = round2(summary.AverageScore)
	data.Summary.Critical = summary.CriticalCount
	data.Summary.High = summary.HighCount
	data.Summary.NoAlert = summary.Processed - summary.Alerts

	data.ScoreDistribution = make(map[string]int, len(scoreBuckets))
	for _, b := range scoreBuckets {
		data.ScoreDistribution[b.label] = 0
	}
	for _, s := range scores {
		if s > data.Summary.MaxScore {
			data.Summary.MaxScore = s
		}
		data.ScoreDistribution[bucketLabel(s)]++
	}

	data.AmountRanges = map[string]int{
		"$0-1K": 0, "$1K-5K": 0, "$5K-15K": 0, "$15K-30K": 0, "$30K+": 0,
	}
	for _, a := range alerts {
		data.AlertsByHour[a.Transaction.Hour()]++
		data.AmountRanges[amountRange(a.Transaction.Amount)]++
	}

	sorted := make([]domain.Alert, len(alerts))
	copy(sorted, alerts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RiskScore > sorted[j].RiskScore
	})
	if len(sorted) > topDashboardAlerts {
		sorted = sorted[:topDashboardAlerts]
	}
	for _, a := range sorted {
		data.TopAlerts = append(data.TopAlerts, AlertEntry{
			TransactionID:  truncate(a.Transaction.ID, 16),
			UserID:         a.Transaction.UserID,
			Timestamp:      a.Transaction.Timestamp,
			Amount:         a.Transaction.Amount,
			Location:       a.Transaction.Location,
			RiskScore:      a.RiskScore,
			RiskLevel:      a.RiskLevel,
			TriggeredRules: a.TriggeredRules,
		})
	}

	return data
}

func bucketLabel(score int) string {
	for _, b := range scoreBuckets {
		if b.max < 0 || score <= b.max {
			return b.label
		}
	}
	return scoreBuckets[len(scoreBuckets)-1].label
}

func amountRange(amount float64) string {
	switch {
	case amount < 1000:
		return "$0-1K"
	case amount < 5000:
		return "$1K-5K"
	case amount < 15000:
		return "$5K-15K"
	case amount < 30000:
		return "$15K-30K"
	default:
		return "$30K+"
	}
}

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Shrike — Fraud Detection Dashboard</title>
<script src="https://cdn.jsdelivr.net/npm/chart.js@4"></script>
<style>
  body { font-family: system-ui, sans-serif; margin: 0; background: #0f172a; color: #e2e8f0; }
  header { padding: 24px 32px; border-bottom: 1px solid #1e293b; }
  h1 { margin: 0; font-size: 22px; }
  .meta { color: #64748b; font-size: 13px; margin-top: 4px; }
  .cards { display: flex; flex-wrap: wrap; gap: 16px; padding: 24px 32px; }
  .card { background: #1e293b; border-radius: 8px; padding: 16px 24px; min-width: 140px; }
  .card .label { font-size: 12px; color: #94a3b8; text-transform: uppercase; }
  .card .value { font-size: 28px; font-weight: 600; margin-top: 4px; }
  .card.critical .value { color: #f87171; }
  .card.high .value { color: #fbbf24; }
  .charts { display: grid; grid-template-columns: repeat(auto-fit, minmax(420px, 1fr)); gap: 24px; padding: 0 32px 32px; }
  .panel { background: #1e293b; border-radius: 8px; padding: 16px; }
  .panel h2 { font-size: 14px; color: #94a3b8; margin: 0 0 12px; }
  table { width: 100%; border-collapse: collapse; font-size: 13px; }
  th, td { text-align: left; padding: 6px 10px; border-bottom: 1px solid #334155; }
  th { color: #94a3b8; font-weight: 500; }
  .level-CRITICAL { color: #f87171; font-weight: 600; }
  .level-HIGH { color: #fbbf24; font-weight: 600; }
</style>
</head>
<body>
<header>
  <h1>Shrike — Fraud Detection Dashboard</h1>
  <div class="meta">{{.Summary.Total}} transactions evaluated · <span id="generated-at"></span></div>
</header>
<div class="cards">
  <div class="card"><div class="label">Processed</div><div class="value">{{.Summary.Total}}</div></div>
  <div class="card"><div class="label">Alerts</div><div class="value">{{.Summary.Alerts}}</div></div>
  <div class="card"><div class="label">Fraud Rate</div><div class="value">{{.Summary.FraudRate}}%</div></div>
  <div class="card"><div class="label">Avg Score</div><div class="value">{{.Summary.AvgScore}}</div></div>
  <div class="card critical"><div class="label">Critical</div><div class="value">{{.Summary.Critical}}</div></div>
  <div class="card high"><div class="label">High</div><div class="value">{{.Summary.High}}</div></div>
</div>
<div class="charts">
  <div class="panel"><h2>Rule Trigger Breakdown</h2><canvas id="chart-rules"></canvas></div>
  <div class="panel"><h2>Score Distribution</h2><canvas id="chart-scores"></canvas></div>
  <div class="panel"><h2>Alerts by Hour</h2><canvas id="chart-hours"></canvas></div>
  <div class="panel"><h2>Alert Amount Ranges</h2><canvas id="chart-amounts"></canvas></div>
</div>
<div class="charts">
  <div class="panel" style="grid-column: 1 / -1;">
    <h2>Top Highest-Risk Transactions</h2>
    <table id="top-alerts">
      <thead><tr><th>Transaction</th><th>User</th><th>Amount</th><th>Score</th><th>Level</th><th>Rules</th></tr></thead>
      <tbody></tbody>
    </table>
  </div>
</div>
<script>
const data = {{.Data}};
document.getElementById("generated-at").textContent = data.generatedAt;

const palette = ["#38bdf8", "#818cf8", "#f472b6", "#fbbf24", "#34d399", "#f87171", "#a78bfa", "#fb923c"];

new Chart(document.getElementById("chart-rules"), {
  type: "bar",
  data: {
    labels: data.ruleFires.map(r => r.rule),
    datasets: [{ data: data.ruleFires.map(r => r.count), backgroundColor: palette }]
  },
  options: { plugins: { legend: { display: false } } }
});

const bucketOrder = ["0", "1-25", "26-50", "51-75", "76-100", "101-150", "150+"];
new Chart(document.getElementById("chart-scores"), {
  type: "bar",
  data: {
    labels: bucketOrder,
    datasets: [{ data: bucketOrder.map(b => data.scoreDistribution[b] || 0), backgroundColor: "#38bdf8" }]
  },
  options: { plugins: { legend: { display: false } } }
});

new Chart(document.getElementById("chart-hours"), {
  type: "line",
  data: {
    labels: [...Array(24).keys()],
    datasets: [{ data: data.alertsByHour, borderColor: "#f87171", tension: 0.3, fill: false }]
  },
  options: { plugins: { legend: { display: false } } }
});

const rangeOrder = ["$0-1K", "$1K-5K", "$5K-15K", "$15K-30K", "$30K+"];
new Chart(document.getElementById("chart-amounts"), {
  type: "doughnut",
  data: {
    labels: rangeOrder,
    datasets: [{ data: rangeOrder.map(r => data.amountRanges[r] || 0), backgroundColor: palette }]
  }
});

const tbody = document.querySelector("#top-alerts tbody");
for (const a of data.topAlerts) {
  const tr = document.createElement("tr");
  tr.innerHTML =
    "<td>" + a.transactionId + "</td>" +
    "<td>" + a.userId + "</td>" +
    "<td>$" + a.amount.toLocaleString() + "</td>" +
    "<td>" + a.riskScore + "</td>" +
    "<td class='level-" + a.riskLevel + "'>" + a.riskLevel + "</td>" +
    "<td>" + a.triggeredRules.join(", ") + "</td>";
  tbody.appendChild(tr);
}
</script>
</body>
</html>
`))
