package domain

// Config holds the complete resolved Shrike configuration.
// All required keys are guaranteed present after config.Load; the
// engine never applies implicit defaults for them.
type Config struct {
	Data    DataConfig    `json:"data"`
	Rules   RulesConfig   `json:"rules"`
	Custom  []CustomRule  `json:"customRules,omitempty"`
	Alert   AlertConfig   `json:"alerting"`
	Logging LoggingConfig `json:"logging"`
	Storage StorageConfig `json:"storage"`
}

// DataConfig holds input/output file settings.
type DataConfig struct {
	InputFile     string `json:"inputFile"`
	OutputFile    string `json:"outputFile"`
	DashboardFile string `json:"dashboardFile"`

	// Timezone applied to timestamps that carry no zone, e.g. "UTC"
	// or "America/Mexico_City".
	Timezone string `json:"timezone"`
}

// RulesConfig holds per-rule thresholds and points.
type RulesConfig struct {
	HighAmount     HighAmountConfig     `json:"highAmount"`
	OddHours       PointsConfig         `json:"oddHours"`
	Velocity       VelocityConfig       `json:"velocity"`
	UnusualAmount  UnusualAmountConfig  `json:"unusualAmount"`
	LocationChange LocationChangeConfig `json:"locationChange"`
	ForeignTx      PointsConfig         `json:"foreignTx"`
	NewDevice      PointsConfig         `json:"newDevice"`
}

// PointsConfig is the configuration for rules that only carry points.
type PointsConfig struct {
	Points int `json:"points"`
}

// HighAmountConfig configures the high-amount rule.
type HighAmountConfig struct {
	Threshold float64 `json:"threshold"`
	Points    int     `json:"points"`
}

// VelocityConfig configures the velocity rule. MinHours is fractional
// (0.17 is roughly ten minutes).
type VelocityConfig struct {
	MinHours float64 `json:"minHours"`
	Points   int     `json:"points"`
}

// UnusualAmountConfig configures the unusual-amount rule.
type UnusualAmountConfig struct {
	Multiplier float64 `json:"multiplier"`
	Points     int     `json:"points"`
}

// LocationChangeConfig configures the location-change rule.
// WindowHours is fractional.
type LocationChangeConfig struct {
	WindowHours float64 `json:"windowHours"`
	Points      int     `json:"points"`
}

// CustomRule is an operator-defined CEL expression rule. Expressions
// must compile to bool; they are registered after the built-in rules.
type CustomRule struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
	Points     int    `json:"points"`
}

// AlertConfig holds the score-to-tier thresholds. Both are inclusive
// lower bounds.
type AlertConfig struct {
	RiskScoreThreshold int `json:"riskScoreThreshold"`
	CriticalThreshold  int `json:"criticalThreshold"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// StorageConfig holds the optional alert store settings.
type StorageConfig struct {
	Enabled bool `json:"enabled"`

	// Driver is "sqlite" or "postgres".
	Driver string `json:"driver"`

	// SQLite specific
	SQLitePath string `json:"sqlitePath"`

	// PostgreSQL specific
	PostgresHost     string `json:"postgresHost"`
	PostgresPort     int    `json:"postgresPort"`
	PostgresUser     string `json:"postgresUser"`
	PostgresPassword string `json:"postgresPassword"`
	PostgresDB       string `json:"postgresDb"`
	PostgresSSLMode  string `json:"postgresSslMode"`
}
