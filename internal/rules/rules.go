// Package rules implements the scoring rules evaluated against each
// transaction. Rules are pure: they read the transaction and the user's
// prior history and return an outcome without side effects.
//
// The rule set is closed and ordered. Registry returns the rules in
// their fixed registration order; that order determines the order of
// triggered-rule labels on alerts and breaks ties when picking the most
// active rule.
package rules

import (
	"time"

	"github.com/opensource-finance/shrike/internal/domain"
	"github.com/opensource-finance/shrike/internal/history"
)

// Rule evaluates one business condition against a transaction.
type Rule interface {
	Name() string
	Evaluate(tx *domain.Transaction, hist *history.View) domain.RuleOutcome
}

// Registry returns the built-in rules in registration order, each bound
// to its configuration section.
func Registry(cfg *domain.RulesConfig) []Rule {
	return []Rule{
		&HighAmount{Threshold: cfg.HighAmount.Threshold, Points: cfg.HighAmount.Points},
		&OddHours{Points: cfg.OddHours.Points},
		&Velocity{MinHours: cfg.Velocity.MinHours, Points: cfg.Velocity.Points},
		&UnusualAmount{Multiplier: cfg.UnusualAmount.Multiplier, Points: cfg.UnusualAmount.Points},
		&LocationChange{WindowHours: cfg.LocationChange.WindowHours, Points: cfg.LocationChange.Points},
		&ForeignTx{Points: cfg.ForeignTx.Points},
		&NewDevice{Points: cfg.NewDevice.Points},
	}
}

func outcome(name string, fired bool, points int) domain.RuleOutcome {
	if !fired {
		points = 0
	}
	return domain.RuleOutcome{Rule: name, Fired: fired, Points: points}
}

// HighAmount flags transactions above a monetary threshold.
type HighAmount struct {
	Threshold float64
	Points    int
}

func (r *HighAmount) Name() string { return "HighAmount" }

func (r *HighAmount) Evaluate(tx *domain.Transaction, _ *history.View) domain.RuleOutcome {
	return outcome(r.Name(), tx.Amount > r.Threshold, r.Points)
}

// OddHours flags transactions between 22:00 and 05:00 local time.
type OddHours struct {
	Points int
}

func (r *OddHours) Name() string { return "OddHours" }

func (r *OddHours) Evaluate(tx *domain.Transaction, _ *history.View) domain.RuleOutcome {
	hour := tx.Hour()
	return outcome(r.Name(), hour >= 22 || hour < 5, r.Points)
}

// Velocity flags rapid-fire transactions: the gap to the user's
// immediately preceding transaction is below MinHours. A user's first
// transaction never fires.
type Velocity struct {
	MinHours float64
	Points   int
}

func (r *Velocity) Name() string { return "Velocity" }

func (r *Velocity) Evaluate(tx *domain.Transaction, hist *history.View) domain.RuleOutcome {
	elapsed, ok := hist.Since(tx.Timestamp)
	if !ok {
		return outcome(r.Name(), false, r.Points)
	}
	limit := time.Duration(r.MinHours * float64(time.Hour))
	return outcome(r.Name(), elapsed < limit, r.Points)
}

// UnusualAmount flags amounts far above the user's prior mean. With no
// prior history the mean is undefined and the rule never fires.
type UnusualAmount struct {
	Multiplier float64
	Points     int
}

func (r *UnusualAmount) Name() string { return "UnusualAmount" }

func (r *UnusualAmount) Evaluate(tx *domain.Transaction, hist *history.View) domain.RuleOutcome {
	mean, ok := hist.MeanAmount()
	if !ok {
		return outcome(r.Name(), false, r.Points)
	}
	return outcome(r.Name(), tx.Amount > r.Multiplier*mean, r.Points)
}

// LocationChange flags a location different from the immediately
// preceding transaction's within a short window.
type LocationChange struct {
	WindowHours float64
	Points      int
}

func (r *LocationChange) Name() string { return "LocationChange" }

func (r *LocationChange) Evaluate(tx *domain.Transaction, hist *history.View) domain.RuleOutcome {
	last := hist.Last()
	if last == nil {
		return outcome(r.Name(), false, r.Points)
	}
	window := time.Duration(r.WindowHours * float64(time.Hour))
	fired := tx.Location != last.Location && tx.Timestamp.Sub(last.Timestamp) < window
	return outcome(r.Name(), fired, r.Points)
}

// ForeignTx flags transactions marked as originating abroad.
type ForeignTx struct {
	Points int
}

func (r *ForeignTx) Name() string { return "ForeignTx" }

func (r *ForeignTx) Evaluate(tx *domain.Transaction, _ *history.View) domain.RuleOutcome {
	return outcome(r.Name(), tx.IsForeign, r.Points)
}

// NewDevice flags transactions from a device that is not the user's
// most frequent prior device.
type NewDevice struct {
	Points int
}

func (r *NewDevice) Name() string { return "NewDevice" }

func (r *NewDevice) Evaluate(tx *domain.Transaction, hist *history.View) domain.RuleOutcome {
	known, ok := hist.FrequentDevice()
	if !ok {
		return outcome(r.Name(), false, r.Points)
	}
	return outcome(r.Name(), tx.DeviceID != known, r.Points)
}
