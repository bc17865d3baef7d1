// Package loader ingests the transaction batch from CSV. It validates
// each row, skips and counts malformed records, and guarantees that no
// invalid transaction reaches the engine.
package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-finance/shrike/internal/domain"
)

// Required CSV columns. Extra columns are ignored.
var requiredColumns = []string{
	"transaction_id", "user_id", "timestamp", "amount",
	"location", "device_id", "is_foreign",
}

// Timestamp layouts accepted in the input, tried in order. Layouts
// without a zone are interpreted in the configured location.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Result is the outcome of loading a batch.
type Result struct {
	Transactions []domain.Transaction

	// Skipped counts malformed rows excluded before scoring.
	Skipped int
}

// LoadFile reads and validates the CSV batch at path.
func LoadFile(path string, loc *time.Location) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	slog.Info("loading dataset", "path", path)
	return Load(f, loc)
}

// Load reads and validates a CSV batch from r. The first row must be a
// header containing every required column.
func Load(r io.Reader, loc *time.Location) (*Result, error) {
	if loc == nil {
		loc = time.UTC
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("dataset is missing required column: %s", name)
		}
	}

	result := &Result{}
	row := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			slog.Warn("skipping unreadable row", "row", row, "error", err)
			result.Skipped++
			continue
		}

		tx, err := parseRow(record, cols, loc)
		if err != nil {
			slog.Warn("skipping malformed row", "row", row, "error", err)
			result.Skipped++
			continue
		}
		result.Transactions = append(result.Transactions, tx)
	}

	slog.Info("dataset loaded",
		"transactions", len(result.Transactions),
		"skipped", result.Skipped,
	)
	return result, nil
}

func parseRow(record []string, cols map[string]int, loc *time.Location) (domain.Transaction, error) {
	field := func(name string) string {
		i := cols[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	id := field("transaction_id")
	if id == "" {
		return domain.Transaction{}, fmt.Errorf("missing transaction_id")
	}
	userID := field("user_id")
	if userID == "" {
		return domain.Transaction{}, fmt.Errorf("missing user_id")
	}

	ts, err := parseTimestamp(field("timestamp"), loc)
	if err != nil {
		return domain.Transaction{}, err
	}

	amount, err := strconv.ParseFloat(field("amount"), 64)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid amount %q", field("amount"))
	}
	if amount < 0 {
		return domain.Transaction{}, fmt.Errorf("negative amount %v", amount)
	}

	isForeign, err := parseBool(field("is_foreign"))
	if err != nil {
		return domain.Transaction{}, err
	}

	return domain.Transaction{
		ID:        id,
		UserID:    userID,
		Timestamp: ts,
		Amount:    amount,
		Location:  field("location"),
		DeviceID:  field("device_id"),
		IsForeign: isForeign,
	}, nil
}

func parseTimestamp(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	for _, layout := range timeLayouts {
		if ts, err := time.ParseInLocation(layout, value, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", value)
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "", "0", "false", "no":
		return false, nil
	case "1", "true", "yes":
		return true, nil
	}
	return false, fmt.Errorf("invalid is_foreign %q", value)
}
