// Package schema applies a schema script to the active engine one statement at
// a time, tolerating objects that already exist.
//
// Initialization is best-effort: a statement that fails for any reason other
// than lost connectivity is recorded in the Report and the next statement runs.
package schema

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/sqlgate/pkg/core"
	"github.com/leapstack-labs/sqlgate/pkg/dialect"
)

//go:embed schema.sql
var defaultSchema string

// Default returns the embedded application schema in the primary dialect.
func Default() string { return defaultSchema }

// Load reads a schema source file. An empty path returns the embedded default.
func Load(path string) (string, error) {
	if path == "" {
		return defaultSchema, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return "", fmt.Errorf("failed to read schema file: %w", err)
	}
	return string(data), nil
}

// Executor runs a single statement.
type Executor interface {
	Execute(ctx context.Context, query string, args ...any) (*core.Result, error)
}

// Status is the outcome of one statement.
type Status int

// Statement outcomes.
const (
	StatusApplied Status = iota + 1
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusApplied:
		return "applied"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Outcome records what happened to one statement.
type Outcome struct {
	Index  int
	SQL    string
	Status Status
	Err    error
}

// Report summarizes a schema application.
type Report struct {
	Applied    int
	Skipped    int
	Warnings   []string
	Statements []Outcome
}

// Failed returns the outcomes of statements that did not apply.
func (r *Report) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Statements {
		if o.Status == StatusFailed {
			out = append(out, o)
		}
	}
	return out
}

// Err joins every statement failure, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, o := range r.Failed() {
		errs = append(errs, fmt.Errorf("statement %d: %w", o.Index+1, o.Err))
	}
	return errors.Join(errs...)
}

// Apply runs each statement of script in order. Already-existing objects are
// skipped and other failures become warnings. Apply returns an error only when
// the engine becomes unreachable, along with the partial report.
func Apply(ctx context.Context, script dialect.Script, exec Executor, logger *slog.Logger) (*Report, error) {
	return apply(ctx, script, exec, logger, false)
}

// ApplyFor splits text into statements for d and applies them. When d
// rewrites the script from the primary dialect, failed statements are
// recorded with KindTranslation wrapping the engine's error.
func ApplyFor(ctx context.Context, d *dialect.Dialect, text string, exec Executor, logger *slog.Logger) (*Report, error) {
	return apply(ctx, d.Script(text), exec, logger, d.DDL != nil)
}

func apply(ctx context.Context, script dialect.Script, exec Executor, logger *slog.Logger, translated bool) (*Report, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	report := &Report{Statements: make([]Outcome, 0, len(script))}
	for i, stmt := range script {
		if err := ctx.Err(); err != nil {
			return report, core.NewError(core.KindConnectivity, "schema", err)
		}

		outcome := Outcome{Index: i, SQL: stmt}
		_, err := exec.Execute(ctx, stmt)
		switch {
		case err == nil:
			outcome.Status = StatusApplied
			report.Applied++
		case core.IsKind(err, core.KindAlreadyExists):
			outcome.Status = StatusSkipped
			outcome.Err = err
			report.Skipped++
			logger.Debug("schema object already exists", slog.Int("statement", i+1))
		case core.IsKind(err, core.KindConnectivity), core.IsKind(err, core.KindConnectionLost):
			outcome.Status = StatusFailed
			outcome.Err = err
			report.Statements = append(report.Statements, outcome)
			return report, fmt.Errorf("schema initialization aborted at statement %d: %w", i+1, err)
		default:
			if translated {
				err = core.NewError(core.KindTranslation, "schema", err)
			}
			outcome.Status = StatusFailed
			outcome.Err = err
			msg := fmt.Sprintf("statement %d: %v", i+1, err)
			report.Warnings = append(report.Warnings, msg)
			logger.Warn("schema statement failed",
				slog.Int("statement", i+1),
				slog.String("sql", preview(stmt)),
				slog.String("error", err.Error()))
		}
		report.Statements = append(report.Statements, outcome)
	}

	logger.Info("schema initialized",
		slog.Int("applied", report.Applied),
		slog.Int("skipped", report.Skipped),
		slog.Int("warnings", len(report.Warnings)))
	return report, nil
}

func preview(stmt string) string {
	const limit = 80
	r := []rune(stmt)
	if len(r) <= limit {
		return stmt
	}
	return string(r[:limit]) + "..."
}
