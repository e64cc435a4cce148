// Package migrate applies idempotent, additive schema changes through the
// gateway so they work unchanged on either engine.
//
// Every step first inspects the live schema. A step whose object already
// exists reports AlreadyPresent and issues no DDL, so a step may run any
// number of times.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/leapstack-labs/sqlgate/pkg/core"
	"github.com/leapstack-labs/sqlgate/pkg/dialect"
)

// Gateway is the subset of the gateway the runner needs.
type Gateway interface {
	Execute(ctx context.Context, query string, args ...any) (*core.Result, error)
	Dialect() *dialect.Dialect
	Handle() *sql.DB
}

// Status is the outcome of an ensure operation.
type Status int

// Ensure outcomes.
const (
	Applied Status = iota + 1
	AlreadyPresent
	Failed
)

func (s Status) String() string {
	switch s {
	case Applied:
		return "applied"
	case AlreadyPresent:
		return "already_present"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func checkIdent(kind, name string) error {
	if !identRe.MatchString(name) {
		return core.Errorf(core.KindExecution, "migrate", "invalid %s name %q", kind, name)
	}
	return nil
}

// Runner executes schema steps through a gateway.
type Runner struct {
	gw     Gateway
	logger *slog.Logger
}

// NewRunner creates a runner. If logger is nil, a discard logger is used.
func NewRunner(gw Gateway, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{gw: gw, logger: logger}
}

// Columns lists a table's column names in definition order.
func (r *Runner) Columns(ctx context.Context, table string) ([]string, error) {
	res, err := r.gw.Execute(ctx, r.gw.Dialect().ColumnsSQL, table)
	if err != nil {
		return nil, err
	}
	return names(res), nil
}

// Tables lists the tables of the active database.
func (r *Runner) Tables(ctx context.Context) ([]string, error) {
	res, err := r.gw.Execute(ctx, r.gw.Dialect().TablesSQL)
	if err != nil {
		return nil, err
	}
	return names(res), nil
}

// HasColumn reports whether table has column, ignoring case.
func (r *Runner) HasColumn(ctx context.Context, table, column string) (bool, error) {
	cols, err := r.Columns(ctx, table)
	if err != nil {
		return false, err
	}
	return containsFold(cols, column), nil
}

// HasTable reports whether a table exists.
func (r *Runner) HasTable(ctx context.Context, table string) (bool, error) {
	res, err := r.gw.Execute(ctx, r.gw.Dialect().TableExistsSQL, table)
	if err != nil {
		return false, err
	}
	return containsFold(names(res), table), nil
}

// HasIndex reports whether an index exists on table.
func (r *Runner) HasIndex(ctx context.Context, table, index string) (bool, error) {
	res, err := r.gw.Execute(ctx, r.gw.Dialect().IndexExistsSQL, table, index)
	if err != nil {
		return false, err
	}
	return containsFold(names(res), index), nil
}

// EnsureColumn adds column to table unless it already exists. typeClause is
// written in the primary dialect and translated for the active engine.
func (r *Runner) EnsureColumn(ctx context.Context, table, column, typeClause string) (Status, error) {
	if err := errors.Join(checkIdent("table", table), checkIdent("column", column)); err != nil {
		return Failed, err
	}

	present, err := r.HasColumn(ctx, table, column)
	if err != nil {
		return Failed, err
	}
	if present {
		r.logger.Debug("column already present", slog.String("table", table), slog.String("column", column))
		return AlreadyPresent, nil
	}

	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, r.gw.Dialect().TranslateDDL(typeClause))
	return r.run(ctx, stmt, slog.String("table", table), slog.String("column", column))
}

// EnsureTable creates a table unless it already exists. definition is either
// a complete CREATE TABLE statement or the parenthesized column list body.
func (r *Runner) EnsureTable(ctx context.Context, name, definition string) (Status, error) {
	if err := checkIdent("table", name); err != nil {
		return Failed, err
	}

	present, err := r.HasTable(ctx, name)
	if err != nil {
		return Failed, err
	}
	if present {
		r.logger.Debug("table already present", slog.String("table", name))
		return AlreadyPresent, nil
	}

	stmt := strings.TrimSpace(definition)
	if !strings.HasPrefix(strings.ToUpper(stmt), "CREATE") {
		stmt = fmt.Sprintf("CREATE TABLE %s (%s)", name, stmt)
	}
	stmt = strings.TrimRight(r.gw.Dialect().TranslateDDL(stmt), "; \n\t")
	return r.run(ctx, stmt, slog.String("table", name))
}

// EnsureIndex creates a non-unique index unless one with that name exists.
func (r *Runner) EnsureIndex(ctx context.Context, table, name string, columns ...string) (Status, error) {
	errs := []error{checkIdent("table", table), checkIdent("index", name)}
	if len(columns) == 0 {
		errs = append(errs, core.Errorf(core.KindExecution, "migrate", "index %s has no columns", name))
	}
	for _, c := range columns {
		errs = append(errs, checkIdent("column", c))
	}
	if err := errors.Join(errs...); err != nil {
		return Failed, err
	}

	present, err := r.HasIndex(ctx, table, name)
	if err != nil {
		return Failed, err
	}
	if present {
		r.logger.Debug("index already present", slog.String("table", table), slog.String("index", name))
		return AlreadyPresent, nil
	}

	stmt := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", name, table, strings.Join(columns, ", "))
	return r.run(ctx, stmt, slog.String("table", table), slog.String("index", name))
}

// run issues DDL. An engine reporting the object already exists means another
// process won the race, which counts as present.
func (r *Runner) run(ctx context.Context, stmt string, attrs ...any) (Status, error) {
	if _, err := r.gw.Execute(ctx, stmt); err != nil {
		if core.IsKind(err, core.KindAlreadyExists) {
			return AlreadyPresent, nil
		}
		r.logger.Warn("schema change failed", append(attrs, slog.String("error", err.Error()))...)
		return Failed, err
	}
	r.logger.Info("schema change applied", attrs...)
	return Applied, nil
}

func names(res *core.Result) []string {
	out := make([]string, 0, res.Len())
	for _, row := range res.Rows {
		for _, key := range []string{"name", "NAME"} {
			if v, ok := row[key]; ok {
				out = append(out, fmt.Sprint(v))
				break
			}
		}
	}
	return out
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
