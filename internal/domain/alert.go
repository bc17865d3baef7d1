package domain

// RuleOutcome is the result of evaluating one rule against one transaction.
type RuleOutcome struct {
	Rule   string `json:"rule"`
	Fired  bool   `json:"fired"`
	Points int    `json:"points"`
}

// RiskLevel classifies a risk score via the two alerting thresholds.
type RiskLevel string

const (
	// RiskNone means the score stayed below the alert threshold; no alert is emitted.
	RiskNone RiskLevel = "NONE"

	// RiskHigh means alert threshold <= score < critical threshold.
	RiskHigh RiskLevel = "HIGH"

	// RiskCritical means score >= critical threshold.
	RiskCritical RiskLevel = "CRITICAL"
)

// Alert is emitted for every transaction whose risk score reached the
// alert threshold.
type Alert struct {
	Transaction Transaction `json:"transaction"`

	RiskScore int       `json:"riskScore"`
	RiskLevel RiskLevel `json:"riskLevel"`

	// TriggeredRules holds one "Name: +points" entry per fired rule,
	// in rule registration order.
	TriggeredRules []string `json:"triggeredRules"`

	// Outcomes holds the fired outcomes backing TriggeredRules.
	Outcomes []RuleOutcome `json:"outcomes,omitempty"`
}
