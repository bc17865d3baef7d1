// Package config loads and validates the Shrike YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/opensource-finance/shrike/internal/domain"
)

var (
	// ErrMissingKey indicates a required configuration key is absent.
	ErrMissingKey = errors.New("missing required configuration key")

	// ErrInvalidValue indicates a key is present but semantically invalid.
	ErrInvalidValue = errors.New("invalid configuration value")
)

// Defaults for the only keys the spec allows implicit defaults for.
const (
	DefaultUnusualAmountMultiplier = 3.0
	DefaultLocationChangeWindowHrs = 2.0
	DefaultOutputFile              = "fraud_alerts.json"
)

// file mirrors the YAML document. Required scalars are pointers so an
// absent key can be told apart from a zero value.
type file struct {
	Data struct {
		InputFile     string `yaml:"input_file"`
		OutputFile    string `yaml:"output_file"`
		DashboardFile string `yaml:"dashboard_file"`
		Timezone      string `yaml:"timezone"`
	} `yaml:"data"`

	Rules struct {
		HighAmount struct {
			Threshold *float64 `yaml:"threshold"`
			Points    *int     `yaml:"points"`
		} `yaml:"high_amount"`
		OddHours struct {
			Points *int `yaml:"points"`
		} `yaml:"odd_hours"`
		Velocity struct {
			MinHours *float64 `yaml:"min_hours"`
			Points   *int     `yaml:"points"`
		} `yaml:"velocity"`
		UnusualAmount struct {
			Multiplier *float64 `yaml:"multiplier"`
			Points     *int     `yaml:"points"`
		} `yaml:"unusual_amount"`
		LocationChange struct {
			WindowHours *float64 `yaml:"window_hours"`
			Points      *int     `yaml:"points"`
		} `yaml:"location_change"`
		ForeignTx struct {
			Points *int `yaml:"points"`
		} `yaml:"foreign_tx"`
		NewDevice struct {
			Points *int `yaml:"points"`
		} `yaml:"new_device"`
	} `yaml:"rules"`

	CustomRules []struct {
		Name       string `yaml:"name"`
		Expression string `yaml:"expression"`
		Points     int    `yaml:"points"`
	} `yaml:"custom_rules"`

	Alerting struct {
		RiskScoreThreshold *int `yaml:"risk_score_threshold"`
		CriticalThreshold  *int `yaml:"critical_threshold"`
	} `yaml:"alerting"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Storage struct {
		Enabled          bool   `yaml:"enabled"`
		Driver           string `yaml:"driver"`
		SQLitePath       string `yaml:"sqlite_path"`
		PostgresHost     string `yaml:"postgres_host"`
		PostgresPort     int    `yaml:"postgres_port"`
		PostgresUser     string `yaml:"postgres_user"`
		PostgresPassword string `yaml:"postgres_password"`
		PostgresDB       string `yaml:"postgres_db"`
		PostgresSSLMode  string `yaml:"postgres_sslmode"`
	} `yaml:"storage"`
}

// Load reads, parses, and validates the configuration file. Every
// required key must be present; a missing key fails with an error
// naming it.
func Load(path string) (*domain.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML configuration document.
func Parse(raw []byte) (*domain.Config, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	required := []struct {
		key string
		ok  bool
	}{
		{"rules.high_amount.threshold", f.Rules.HighAmount.Threshold != nil},
		{"rules.high_amount.points", f.Rules.HighAmount.Points != nil},
		{"rules.odd_hours.points", f.Rules.OddHours.Points != nil},
		{"rules.velocity.min_hours", f.Rules.Velocity.MinHours != nil},
		{"rules.velocity.points", f.Rules.Velocity.Points != nil},
		{"rules.unusual_amount.points", f.Rules.UnusualAmount.Points != nil},
		{"rules.location_change.points", f.Rules.LocationChange.Points != nil},
		{"rules.foreign_tx.points", f.Rules.ForeignTx.Points != nil},
		{"rules.new_device.points", f.Rules.NewDevice.Points != nil},
		{"alerting.risk_score_threshold", f.Alerting.RiskScoreThreshold != nil},
		{"alerting.critical_threshold", f.Alerting.CriticalThreshold != nil},
	}
	for _, r := range required {
		if !r.ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingKey, r.key)
		}
	}

	cfg := &domain.Config{
		Data: domain.DataConfig{
			InputFile:     f.Data.InputFile,
			OutputFile:    f.Data.OutputFile,
			DashboardFile: f.Data.DashboardFile,
			Timezone:      f.Data.Timezone,
		},
		Rules: domain.RulesConfig{
			HighAmount: domain.HighAmountConfig{
				Threshold: *f.Rules.HighAmount.Threshold,
				Points:    *f.Rules.HighAmount.Points,
			},
			OddHours: domain.PointsConfig{Points: *f.Rules.OddHours.Points},
			Velocity: domain.VelocityConfig{
				MinHours: *f.Rules.Velocity.MinHours,
				Points:   *f.Rules.Velocity.Points,
			},
			UnusualAmount: domain.UnusualAmountConfig{
				Multiplier: DefaultUnusualAmountMultiplier,
				Points:     *f.Rules.UnusualAmount.Points,
			},
			LocationChange: domain.LocationChangeConfig{
				WindowHours: DefaultLocationChangeWindowHrs,
				Points:      *f.Rules.LocationChange.Points,
			},
			ForeignTx: domain.PointsConfig{Points: *f.Rules.ForeignTx.Points},
			NewDevice: domain.PointsConfig{Points: *f.Rules.NewDevice.Points},
		},
		Alert: domain.AlertConfig{
			RiskScoreThreshold: *f.Alerting.RiskScoreThreshold,
			CriticalThreshold:  *f.Alerting.CriticalThreshold,
		},
		Logging: domain.LoggingConfig{
			Level:  f.Logging.Level,
			Format: f.Logging.Format,
		},
		Storage: domain.StorageConfig{
			Enabled:          f.Storage.Enabled,
			Driver:           f.Storage.Driver,
			SQLitePath:       f.Storage.SQLitePath,
			PostgresHost:     f.Storage.PostgresHost,
			PostgresPort:     f.Storage.PostgresPort,
			PostgresUser:     f.Storage.PostgresUser,
			PostgresPassword: f.Storage.PostgresPassword,
			PostgresDB:       f.Storage.PostgresDB,
			PostgresSSLMode:  f.Storage.PostgresSSLMode,
		},
	}

	if f.Rules.UnusualAmount.Multiplier != nil {
		cfg.Rules.UnusualAmount.Multiplier = *f.Rules.UnusualAmount.Multiplier
	}
	if f.Rules.LocationChange.WindowHours != nil {
		cfg.Rules.LocationChange.WindowHours = *f.Rules.LocationChange.WindowHours
	}

	for _, cr := range f.CustomRules {
		cfg.Custom = append(cfg.Custom, domain.CustomRule{
			Name:       cr.Name,
			Expression: cr.Expression,
			Points:     cr.Points,
		})
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *domain.Config) {
	if cfg.Data.OutputFile == "" {
		cfg.Data.OutputFile = DefaultOutputFile
	}
	if cfg.Data.Timezone == "" {
		cfg.Data.Timezone = "UTC"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Storage.Enabled && cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.Driver == "sqlite" && cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "./shrike.db"
	}
}

// Validate checks semantic constraints on a resolved configuration.
func Validate(cfg *domain.Config) error {
	if cfg.Rules.HighAmount.Threshold < 0 {
		return fmt.Errorf("%w: rules.high_amount.threshold must be >= 0", ErrInvalidValue)
	}
	if cfg.Rules.Velocity.MinHours < 0 {
		return fmt.Errorf("%w: rules.velocity.min_hours must be >= 0", ErrInvalidValue)
	}
	if cfg.Rules.UnusualAmount.Multiplier <= 0 {
		return fmt.Errorf("%w: rules.unusual_amount.multiplier must be > 0", ErrInvalidValue)
	}
	if cfg.Rules.LocationChange.WindowHours <= 0 {
		return fmt.Errorf("%w: rules.location_change.window_hours must be > 0", ErrInvalidValue)
	}
	for _, p := range []struct {
		key    string
		points int
	}{
		{"rules.high_amount.points", cfg.Rules.HighAmount.Points},
		{"rules.odd_hours.points", cfg.Rules.OddHours.Points},
		{"rules.velocity.points", cfg.Rules.Velocity.Points},
		{"rules.unusual_amount.points", cfg.Rules.UnusualAmount.Points},
		{"rules.location_change.points", cfg.Rules.LocationChange.Points},
		{"rules.foreign_tx.points", cfg.Rules.ForeignTx.Points},
		{"rules.new_device.points", cfg.Rules.NewDevice.Points},
	} {
		if p.points < 0 {
			return fmt.Errorf("%w: %s must be >= 0", ErrInvalidValue, p.key)
		}
	}
	if cfg.Alert.RiskScoreThreshold < 0 {
		return fmt.Errorf("%w: alerting.risk_score_threshold must be >= 0", ErrInvalidValue)
	}
	if cfg.Alert.CriticalThreshold < cfg.Alert.RiskScoreThreshold {
		return fmt.Errorf("%w: alerting.critical_threshold must be >= alerting.risk_score_threshold", ErrInvalidValue)
	}
	for i, cr := range cfg.Custom {
		if cr.Name == "" {
			return fmt.Errorf("%w: custom_rules[%d].name is required", ErrInvalidValue, i)
		}
		if cr.Expression == "" {
			return fmt.Errorf("%w: custom_rules[%d].expression is required", ErrInvalidValue, i)
		}
		if cr.Points < 0 {
			return fmt.Errorf("%w: custom_rules[%d].points must be >= 0", ErrInvalidValue, i)
		}
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("%w: logging.format must be json or text", ErrInvalidValue)
	}
	if cfg.Storage.Enabled {
		switch cfg.Storage.Driver {
		case "sqlite", "postgres":
		default:
			return fmt.Errorf("%w: storage.driver must be sqlite or postgres", ErrInvalidValue)
		}
	}
	if _, err := time.LoadLocation(cfg.Data.Timezone); err != nil {
		return fmt.Errorf("%w: data.timezone %q is not a valid IANA zone", ErrInvalidValue, cfg.Data.Timezone)
	}
	return nil
}

// Location resolves the configured timezone. Validate guarantees this
// cannot fail on a loaded configuration.
func Location(cfg *domain.Config) *time.Location {
	loc, err := time.LoadLocation(cfg.Data.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
