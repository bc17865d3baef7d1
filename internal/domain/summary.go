package domain

// RuleFireCount is the number of times one rule fired across the batch.
// Entries are kept in rule registration order for deterministic reports.
type RuleFireCount struct {
	Rule  string `json:"rule"`
	Count int    `json:"count"`
}

// RunSummary holds aggregate counters computed once after the whole
// batch has been scored.
type RunSummary struct {
	Processed int `json:"processed"`
	Alerts    int `json:"alerts"`

	// FraudRatePct is alerts / processed * 100.
	FraudRatePct float64 `json:"fraudRatePct"`

	// AverageScore is the mean risk score over ALL processed
	// transactions, including non-alerting ones with score 0.
	AverageScore float64 `json:"averageScore"`

	RuleFires []RuleFireCount `json:"ruleFires"`

	// MostActiveRule is the rule with the highest fire count.
	// Ties resolve to the first-registered rule.
	MostActiveRule string `json:"mostActiveRule,omitempty"`

	HighCount     int `json:"highCount"`
	CriticalCount int `json:"criticalCount"`
}

// FireCount returns the fire count for a rule name, 0 if unknown.
func (s *RunSummary) FireCount(rule string) int {
	for _, rf := range s.RuleFires {
		if rf.Rule == rule {
			return rf.Count
		}
	}
	return 0
}
