package rules

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/opensource-finance/shrike/internal/domain"
	"github.com/opensource-finance/shrike/internal/history"
)

// ExprRule is an operator-defined rule whose condition is a CEL
// expression over the transaction and its history view. Expressions are
// compiled once at load; a runtime evaluation error means the rule did
// not fire, never an aborted batch.
type ExprRule struct {
	name    string
	points  int
	program cel.Program
}

func newExprEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("hour", cel.IntType),
		cel.Variable("is_foreign", cel.BoolType),
		cel.Variable("location", cel.StringType),
		cel.Variable("device_id", cel.StringType),
		cel.Variable("user_id", cel.StringType),
		// History context
		cel.Variable("prior_count", cel.IntType),
		cel.Variable("mean_amount", cel.DoubleType),
		cel.Variable("hours_since_last", cel.DoubleType),
		cel.Variable("last_location", cel.StringType),
		cel.Variable("frequent_device", cel.StringType),
	)
}

// CompileCustom compiles the configured custom rules. A rule that fails
// to compile, or whose expression does not return bool, is a
// configuration error.
func CompileCustom(configs []domain.CustomRule) ([]Rule, error) {
	if len(configs) == 0 {
		return nil, nil
	}

	env, err := newExprEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create expression environment: %w", err)
	}

	out := make([]Rule, 0, len(configs))
	for _, cfg := range configs {
		ast, issues := env.Compile(cfg.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("failed to compile custom rule %s: %w", cfg.Name, issues.Err())
		}
		if ast.OutputType() != cel.BoolType {
			return nil, fmt.Errorf("custom rule %s: expression must return bool, got %s", cfg.Name, ast.OutputType())
		}
		program, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("failed to create program for custom rule %s: %w", cfg.Name, err)
		}
		out = append(out, &ExprRule{
			name:    cfg.Name,
			points:  cfg.Points,
			program: program,
		})
	}
	return out, nil
}

func (r *ExprRule) Name() string { return r.name }

func (r *ExprRule) Evaluate(tx *domain.Transaction, hist *history.View) domain.RuleOutcome {
	mean, _ := hist.MeanAmount()
	frequent, _ := hist.FrequentDevice()

	hoursSinceLast := -1.0
	lastLocation := ""
	if last := hist.Last(); last != nil {
		hoursSinceLast = tx.Timestamp.Sub(last.Timestamp).Hours()
		lastLocation = last.Location
	}

	activation := map[string]any{
		"amount":           tx.Amount,
		"hour":             tx.Hour(),
		"is_foreign":       tx.IsForeign,
		"location":         tx.Location,
		"device_id":        tx.DeviceID,
		"user_id":          tx.UserID,
		"prior_count":      hist.Len(),
		"mean_amount":      mean,
		"hours_since_last": hoursSinceLast,
		"last_location":    lastLocation,
		"frequent_device":  frequent,
	}

	out, _, err := r.program.Eval(activation)
	if err != nil {
		return outcome(r.name, false, r.points)
	}
	fired, ok := out.(types.Bool)
	if !ok {
		return outcome(r.name, false, r.points)
	}
	return outcome(r.name, bool(fired), r.points)
}
