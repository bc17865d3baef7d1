// Package store persists run results and alerts. It is an optional
// reporting sink: the engine never reads it, and the pipeline runs
// identically with storage disabled.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/opensource-finance/shrike/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Store writes runs and alerts through database/sql. Works with both
// the SQLite and PostgreSQL drivers.
type Store struct {
	db     *sql.DB
	driver string
}

// Open creates a store for the configured driver and runs migrations.
func Open(cfg domain.StorageConfig) (*Store, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, driver: cfg.Driver}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := s.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun stores one run's summary under runID.
func (s *Store) SaveRun(ctx context.Context, runID string, summary domain.RunSummary) error {
	if runID == "" {
		return fmt.Errorf("%w: runID is required", ErrInvalidInput)
	}

	ruleFires, _ := json.Marshal(summary.RuleFires)

	query := `
		INSERT INTO runs (
			id, generated_at, processed, alerts, fraud_rate_pct,
			average_score, high_count, critical_count, rule_fires
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, s.rebind(query),
		runID, time.Now().UTC(),
		summary.Processed, summary.Alerts,
		summary.FraudRatePct, summary.AverageScore,
		summary.HighCount, summary.CriticalCount,
		string(ruleFires),
	)
	return err
}

// SaveAlerts stores the alerts of a run.
func (s *Store) SaveAlerts(ctx context.Context, runID string, alerts []domain.Alert) error {
	if runID == "" {
		return fmt.Errorf("%w: runID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO alerts (
			run_id, tx_id, user_id, timestamp, amount, location,
			device_id, is_foreign, risk_score, risk_level, triggered_rules
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, a := range alerts {
		_, err := s.db.ExecContext(ctx, s.rebind(query),
			runID, a.Transaction.ID, a.Transaction.UserID,
			a.Transaction.Timestamp, a.Transaction.Amount,
			a.Transaction.Location, a.Transaction.DeviceID,
			a.Transaction.IsForeign,
			a.RiskScore, string(a.RiskLevel),
			strings.Join(a.TriggeredRules, "; "),
		)
		if err != nil {
			return fmt.Errorf("failed to save alert %s: %w", a.Transaction.ID, err)
		}
	}
	return nil
}

// GetRun retrieves one run summary by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (*domain.RunSummary, error) {
	query := `
		SELECT processed, alerts, fraud_rate_pct, average_score,
		       high_count, critical_count, rule_fires
		FROM runs
		WHERE id = ?
	`

	var summary domain.RunSummary
	var ruleFires string

	err := s.db.QueryRowContext(ctx, s.rebind(query), runID).Scan(
		&summary.Processed, &summary.Alerts,
		&summary.FraudRatePct, &summary.AverageScore,
		&summary.HighCount, &summary.CriticalCount,
		&ruleFires,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if ruleFires != "" {
		json.Unmarshal([]byte(ruleFires), &summary.RuleFires)
	}
	return &summary, nil
}

// CountAlerts returns the number of stored alerts for a run.
func (s *Store) CountAlerts(ctx context.Context, runID string) (int, error) {
	query := `SELECT COUNT(*) FROM alerts WHERE run_id = ?`

	var count int
	if err := s.db.QueryRowContext(ctx, s.rebind(query), runID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ListAlerts retrieves the stored alerts of a run, highest score first.
func (s *Store) ListAlerts(ctx context.Context, runID string) ([]domain.Alert, error) {
	query := `
		SELECT tx_id, user_id, timestamp, amount, location,
		       device_id, is_foreign, risk_score, risk_level, triggered_rules
		FROM alerts
		WHERE run_id = ?
		ORDER BY risk_score DESC
	`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []domain.Alert
	for rows.Next() {
		var a domain.Alert
		var level, triggered string

		if err := rows.Scan(
			&a.Transaction.ID, &a.Transaction.UserID,
			&a.Transaction.Timestamp, &a.Transaction.Amount,
			&a.Transaction.Location, &a.Transaction.DeviceID,
			&a.Transaction.IsForeign,
			&a.RiskScore, &level, &triggered,
		); err != nil {
			return nil, err
		}

		a.RiskLevel = domain.RiskLevel(level)
		if triggered != "" {
			a.TriggeredRules = strings.Split(triggered, "; ")
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
