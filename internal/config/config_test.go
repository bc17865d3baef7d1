package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validYAML = `
data:
  input_file: transactions.csv
rules:
  high_amount:
    threshold: 15000
    points: 50
  odd_hours:
    points: 30
  velocity:
    min_hours: 1
    points: 40
  unusual_amount:
    points: 35
  location_change:
    points: 30
  foreign_tx:
    points: 25
  new_device:
    points: 20
alerting:
  risk_score_threshold: 75
  critical_threshold: 120
`

func TestParseValid(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Rules.HighAmount.Threshold != 15000 {
		t.Errorf("expected threshold 15000, got %v", cfg.Rules.HighAmount.Threshold)
	}
	if cfg.Rules.Velocity.MinHours != 1 {
		t.Errorf("expected min_hours 1, got %v", cfg.Rules.Velocity.MinHours)
	}
	if cfg.Alert.RiskScoreThreshold != 75 || cfg.Alert.CriticalThreshold != 120 {
		t.Errorf("unexpected alert thresholds: %d / %d",
			cfg.Alert.RiskScoreThreshold, cfg.Alert.CriticalThreshold)
	}
}

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Rules.UnusualAmount.Multiplier != DefaultUnusualAmountMultiplier {
		t.Errorf("expected default multiplier %v, got %v",
			DefaultUnusualAmountMultiplier, cfg.Rules.UnusualAmount.Multiplier)
	}
	if cfg.Rules.LocationChange.WindowHours != DefaultLocationChangeWindowHrs {
		t.Errorf("expected default window %v, got %v",
			DefaultLocationChangeWindowHrs, cfg.Rules.LocationChange.WindowHours)
	}
	if cfg.Data.OutputFile != DefaultOutputFile {
		t.Errorf("expected default output file %s, got %s", DefaultOutputFile, cfg.Data.OutputFile)
	}
	if cfg.Data.Timezone != "UTC" {
		t.Errorf("expected default timezone UTC, got %s", cfg.Data.Timezone)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging defaults: %s / %s", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestParseExplicitValuesOverrideDefaults(t *testing.T) {
	raw := strings.Replace(validYAML,
		"  unusual_amount:\n    points: 35",
		"  unusual_amount:\n    multiplier: 2.5\n    points: 35", 1)

	cfg, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Rules.UnusualAmount.Multiplier != 2.5 {
		t.Errorf("expected multiplier 2.5, got %v", cfg.Rules.UnusualAmount.Multiplier)
	}
}

func TestParseMissingKeyIsNamed(t *testing.T) {
	// Drop velocity.points; the error must name the exact key.
	raw := strings.Replace(validYAML,
		"  velocity:\n    min_hours: 1\n    points: 40",
		"  velocity:\n    min_hours: 1", 1)

	_, err := Parse([]byte(raw))
	if err == nil {
		t.Fatal("expected error for missing key")
	}
	if !errors.Is(err, ErrMissingKey) {
		t.Errorf("expected ErrMissingKey, got %v", err)
	}
	if !strings.Contains(err.Error(), "rules.velocity.points") {
		t.Errorf("expected error to name rules.velocity.points, got %q", err)
	}
}

func TestParseZeroIsNotMissing(t *testing.T) {
	// An explicit zero satisfies a required key.
	raw := strings.Replace(validYAML, "points: 30\n  velocity", "points: 0\n  velocity", 1)

	cfg, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Rules.OddHours.Points != 0 {
		t.Errorf("expected 0 points, got %d", cfg.Rules.OddHours.Points)
	}
}

func TestParseInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		old  string
		new  string
	}{
		{"negative points", "points: 25", "points: -25"},
		{"critical below alert", "critical_threshold: 120", "critical_threshold: 50"},
		{"negative threshold", "threshold: 15000", "threshold: -1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := strings.Replace(validYAML, tc.old, tc.new, 1)
			_, err := Parse([]byte(raw))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrInvalidValue) {
				t.Errorf("expected ErrInvalidValue, got %v", err)
			}
		})
	}
}

func TestParseMalformedYAML(t *testing.T) {
	if _, err := Parse([]byte("rules: [not a mapping")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestParseCustomRules(t *testing.T) {
	raw := validYAML + `
custom_rules:
  - name: RoundAmount
    expression: "amount >= 1000.0"
    points: 15
`
	cfg, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Custom) != 1 {
		t.Fatalf("expected 1 custom rule, got %d", len(cfg.Custom))
	}
	if cfg.Custom[0].Name != "RoundAmount" || cfg.Custom[0].Points != 15 {
		t.Errorf("unexpected custom rule: %+v", cfg.Custom[0])
	}
}

func TestParseCustomRuleMissingName(t *testing.T) {
	raw := validYAML + `
custom_rules:
  - expression: "amount >= 1000.0"
    points: 15
`
	if _, err := Parse([]byte(raw)); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue, got %v", err)
	}
}

func TestParseInvalidTimezone(t *testing.T) {
	raw := strings.Replace(validYAML,
		"  input_file: transactions.csv",
		"  input_file: transactions.csv\n  timezone: Mars/Olympus", 1)

	if _, err := Parse([]byte(raw)); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue, got %v", err)
	}
}

func TestParseInvalidStorageDriver(t *testing.T) {
	raw := validYAML + `
storage:
  enabled: true
  driver: oracle
`
	if _, err := Parse([]byte(raw)); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(validYAML), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Data.InputFile != "transactions.csv" {
		t.Errorf("expected input transactions.csv, got %s", cfg.Data.InputFile)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
}
