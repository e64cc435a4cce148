package migrate

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Step is one idempotent schema change.
type Step interface {
	// Describe names the step for reports and logs.
	Describe() string
	ensure(ctx context.Context, r *Runner) (Status, error)
}

// ColumnStep adds a column.
type ColumnStep struct {
	Table      string
	Column     string
	Definition string
}

// Describe implements Step.
func (s ColumnStep) Describe() string { return fmt.Sprintf("column %s.%s", s.Table, s.Column) }

func (s ColumnStep) ensure(ctx context.Context, r *Runner) (Status, error) {
	return r.EnsureColumn(ctx, s.Table, s.Column, s.Definition)
}

// TableStep creates a table.
type TableStep struct {
	Name       string
	Definition string
}

// Describe implements Step.
func (s TableStep) Describe() string { return "table " + s.Name }

func (s TableStep) ensure(ctx context.Context, r *Runner) (Status, error) {
	return r.EnsureTable(ctx, s.Name, s.Definition)
}

// IndexStep creates an index.
type IndexStep struct {
	Table   string
	Name    string
	Columns []string
}

// Describe implements Step.
func (s IndexStep) Describe() string {
	return fmt.Sprintf("index %s on %s(%s)", s.Name, s.Table, strings.Join(s.Columns, ", "))
}

func (s IndexStep) ensure(ctx context.Context, r *Runner) (Status, error) {
	return r.EnsureIndex(ctx, s.Table, s.Name, s.Columns...)
}

// StepResult records the outcome of one step.
type StepResult struct {
	Step   Step
	Status Status
	Err    error
}

// Apply runs every step in order. A failed step does not stop later steps;
// the returned error joins all failures.
func (r *Runner) Apply(ctx context.Context, steps ...Step) ([]StepResult, error) {
	results := make([]StepResult, 0, len(steps))
	var errs []error
	for _, step := range steps {
		status, err := step.ensure(ctx, r)
		results = append(results, StepResult{Step: step, Status: status, Err: err})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", step.Describe(), err))
		}
	}
	return results, errors.Join(errs...)
}
