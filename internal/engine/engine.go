// Package engine runs the registered rules against a transaction batch,
// aggregates risk scores, and classifies transactions into risk tiers.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/shrike/internal/domain"
	"github.com/opensource-finance/shrike/internal/history"
	"github.com/opensource-finance/shrike/internal/rules"
)

var tracer = otel.Tracer("shrike-engine")

// Engine evaluates transactions against the registered rules and
// classifies the aggregated score.
type Engine struct {
	rules             []rules.Rule
	alertThreshold    int
	criticalThreshold int
}

// New creates an engine from the resolved configuration: the seven
// built-in rules in registration order, followed by any compiled custom
// expression rules.
func New(cfg *domain.Config) (*Engine, error) {
	registered := rules.Registry(&cfg.Rules)

	custom, err := rules.CompileCustom(cfg.Custom)
	if err != nil {
		return nil, err
	}
	registered = append(registered, custom...)

	return &Engine{
		rules:             registered,
		alertThreshold:    cfg.Alert.RiskScoreThreshold,
		criticalThreshold: cfg.Alert.CriticalThreshold,
	}, nil
}

// RulesCount returns the number of registered rules.
func (e *Engine) RulesCount() int {
	return len(e.rules)
}

// RuleNames returns the registered rule names in registration order.
func (e *Engine) RuleNames() []string {
	names := make([]string, len(e.rules))
	for i, r := range e.rules {
		names[i] = r.Name()
	}
	return names
}

// Score evaluates every rule against one transaction, returning the sum
// of fired points and the fired outcomes in registration order.
// Scoring is pure and deterministic given identical inputs.
func (e *Engine) Score(tx *domain.Transaction, hist *history.View) (int, []domain.RuleOutcome) {
	score := 0
	var fired []domain.RuleOutcome
	for _, r := range e.rules {
		out := safeEvaluate(r, tx, hist)
		if out.Fired {
			score += out.Points
			fired = append(fired, out)
		}
	}
	return score, fired
}

// safeEvaluate degrades a panicking rule to a no-fire outcome so one
// arithmetic edge case never aborts the batch.
func safeEvaluate(r rules.Rule, tx *domain.Transaction, hist *history.View) (out domain.RuleOutcome) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("rule evaluation failed",
				"rule", r.Name(),
				"tx_id", tx.ID,
				"error", rec,
			)
			out = domain.RuleOutcome{Rule: r.Name(), Fired: false}
		}
	}()
	return r.Evaluate(tx, hist)
}

// Classify maps a risk score to its tier. Both thresholds are inclusive
// lower bounds: a score exactly at a threshold belongs to that tier.
func (e *Engine) Classify(score int) domain.RiskLevel {
	switch {
	case score >= e.criticalThreshold:
		return domain.RiskCritical
	case score >= e.alertThreshold:
		return domain.RiskHigh
	default:
		return domain.RiskNone
	}
}

// Result is the outcome of one batch run.
type Result struct {
	// Alerts holds the alerted transactions in batch input order.
	Alerts []domain.Alert

	// Summary holds the aggregate counters over the whole batch.
	Summary domain.RunSummary

	// Scores holds the risk score of every processed transaction in
	// input order, including non-alerting ones with score 0.
	Scores []int
}

// Run scores the full batch in input order. It builds the history index
// up front, emits an Alert for every transaction whose tier is not
// NONE, and counts every transaction in the summary. Cancellation is
// checked between transactions only; re-running on the same input and
// configuration yields identical output.
func (e *Engine) Run(ctx context.Context, batch []domain.Transaction) (*Result, error) {
	ctx, span := tracer.Start(ctx, "engine.run",
		trace.WithAttributes(
			attribute.Int("batch.size", len(batch)),
			attribute.Int("rules.count", len(e.rules)),
		),
	)
	defer span.End()

	slog.Info("starting batch evaluation",
		"transactions", len(batch),
		"rules", len(e.rules),
	)

	index := history.Build(batch)

	fires := make(map[string]int, len(e.rules))
	var (
		alerts    []domain.Alert
		scores    []int
		scoreSum  int
		highCount int
		critCount int
	)

	for i := range batch {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("batch evaluation cancelled: %w", err)
		}

		tx := &batch[i]
		score, fired := e.Score(tx, index.Before(tx))
		scores = append(scores, score)
		scoreSum += score

		for _, out := range fired {
			fires[out.Rule]++
		}

		level := e.Classify(score)
		switch level {
		case domain.RiskHigh:
			highCount++
		case domain.RiskCritical:
			critCount++
		default:
			continue
		}

		labels := make([]string, len(fired))
		for j, out := range fired {
			labels[j] = fmt.Sprintf("%s: +%d", out.Rule, out.Points)
		}
		alerts = append(alerts, domain.Alert{
			Transaction:    *tx,
			RiskScore:      score,
			RiskLevel:      level,
			TriggeredRules: labels,
			Outcomes:       fired,
		})
	}

	summary := e.summarize(len(batch), alerts, scoreSum, fires, highCount, critCount)

	span.SetAttributes(
		attribute.Int("alerts.count", len(alerts)),
		attribute.Float64("summary.avg_score", summary.AverageScore),
	)
	slog.Info("batch evaluation complete",
		"processed", summary.Processed,
		"alerts", summary.Alerts,
		"fraud_rate_pct", summary.FraudRatePct,
	)

	return &Result{Alerts: alerts, Summary: summary, Scores: scores}, nil
}

func (e *Engine) summarize(processed int, alerts []domain.Alert, scoreSum int, fires map[string]int, highCount, critCount int) domain.RunSummary {
	summary := domain.RunSummary{
		Processed:     processed,
		Alerts:        len(alerts),
		HighCount:     highCount,
		CriticalCount: critCount,
	}
	if processed > 0 {
		summary.FraudRatePct = float64(len(alerts)) / float64(processed) * 100
		summary.AverageScore = float64(scoreSum) / float64(processed)
	}

	// Registration order keeps reports deterministic and makes the
	// first-registered rule win most-active ties.
	best := -1
	for _, r := range e.rules {
		count := fires[r.Name()]
		summary.RuleFires = append(summary.RuleFires, domain.RuleFireCount{
			Rule:  r.Name(),
			Count: count,
		})
		if count > 0 && count > best {
			best = count
			summary.MostActiveRule = r.Name()
		}
	}
	return summary
}
