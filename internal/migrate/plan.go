package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/pressly/goose/v3"
)

// VersionTable records which routines have run against a database.
const VersionTable = "sqlgate_db_version"

// Routine is a versioned group of steps run together during deployment.
type Routine struct {
	Version int64
	Name    string
	Steps   []Step
}

// Plan is an ordered list of routines.
type Plan []Routine

// DefaultPlan is the deployment plan for the application schema.
func DefaultPlan() Plan {
	return Plan{
		{
			Version: 1,
			Name:    "usuario_estado",
			Steps: []Step{
				ColumnStep{Table: "usuario", Column: "Estado", Definition: "ENUM('Activo','Inactivo') NOT NULL DEFAULT 'Activo'"},
			},
		},
		{
			Version: 2,
			Name:    "pedido_indexes",
			Steps: []Step{
				IndexStep{Table: "pedido", Name: "idx_pedido_usuario", Columns: []string{"usuario_id"}},
				IndexStep{Table: "pedido", Name: "idx_pedido_estado", Columns: []string{"estado"}},
				IndexStep{Table: "detalle_pedido", Name: "idx_detalle_pedido", Columns: []string{"pedido_id"}},
			},
		},
		{
			Version: 3,
			Name:    "auditoria",
			Steps: []Step{
				TableStep{Name: "auditoria", Definition: `CREATE TABLE auditoria (
  id INT PRIMARY KEY AUTO_INCREMENT,
  usuario_id INT,
  accion VARCHAR(50) NOT NULL,
  detalle TEXT,
  creado DATETIME DEFAULT CURRENT_TIMESTAMP,
  CONSTRAINT fk_auditoria_usuario FOREIGN KEY (usuario_id) REFERENCES usuario(id)
) ENGINE=InnoDB`},
				ColumnStep{Table: "producto", Column: "imagen_url", Definition: "VARCHAR(255)"},
			},
		},
	}
}

// RoutineResult is the outcome of one routine during RunPlan.
type RoutineResult struct {
	Version  int64
	Name     string
	Duration time.Duration
	Err      error
}

// RoutineStatus reports whether a routine has been recorded as applied.
type RoutineStatus struct {
	Version   int64     `json:"version"`
	Name      string    `json:"name"`
	Applied   bool      `json:"applied"`
	AppliedAt time.Time `json:"applied_at,omitzero"`
}

func gooseDialect(name string) (goose.Dialect, error) {
	switch name {
	case "mysql":
		return goose.DialectMySQL, nil
	case "postgres":
		return goose.DialectPostgres, nil
	case "sqlite":
		return goose.DialectSQLite3, nil
	default:
		return "", fmt.Errorf("no migration dialect for engine %q", name)
	}
}

// provider builds a goose provider whose Go migrations run each routine
// through the runner. The versions table only records completion; the steps
// remain idempotent, so a routine that failed halfway is safe to rerun.
func (r *Runner) provider(plan Plan) (*goose.Provider, error) {
	if len(plan) == 0 {
		return nil, errors.New("migration plan is empty")
	}
	db := r.gw.Handle()
	if db == nil {
		return nil, errors.New("database connection not established")
	}
	// The provider pins one pool connection while routines run on another.
	if db.Stats().MaxOpenConnections == 1 {
		return nil, errors.New("running a migration plan needs a pool size of at least 2")
	}

	d, err := gooseDialect(r.gw.Dialect().Name)
	if err != nil {
		return nil, err
	}

	migrations := make([]*goose.Migration, 0, len(plan))
	for _, rt := range plan {
		steps := rt.Steps
		name := rt.Name
		migrations = append(migrations, goose.NewGoMigration(rt.Version, &goose.GoFunc{
			RunDB: func(ctx context.Context, _ *sql.DB) error {
				r.logger.Info("running routine", slog.String("routine", name))
				_, err := r.Apply(ctx, steps...)
				return err
			},
		}, nil))
	}

	return goose.NewProvider(d, db, nil,
		goose.WithGoMigrations(migrations...),
		goose.WithDisableGlobalRegistry(true),
		goose.WithTableName(VersionTable),
		goose.WithSlog(r.logger),
	)
}

// RunPlan applies every routine not yet recorded in the version table. It
// stops at the first failing routine; earlier routines stay recorded.
func (r *Runner) RunPlan(ctx context.Context, plan Plan) ([]RoutineResult, error) {
	p, err := r.provider(plan)
	if err != nil {
		return nil, err
	}
	names := plan.names()

	results, err := p.Up(ctx)
	var partial *goose.PartialError
	if errors.As(err, &partial) {
		results = append(partial.Applied, partial.Failed)
	}

	out := make([]RoutineResult, 0, len(results))
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		out = append(out, RoutineResult{
			Version:  res.Source.Version,
			Name:     names[res.Source.Version],
			Duration: res.Duration,
			Err:      res.Error,
		})
	}
	if err != nil {
		return out, fmt.Errorf("migration plan failed: %w", err)
	}
	return out, nil
}

// PlanStatus lists every routine in version order with its applied state.
func (r *Runner) PlanStatus(ctx context.Context, plan Plan) ([]RoutineStatus, error) {
	p, err := r.provider(plan)
	if err != nil {
		return nil, err
	}
	names := plan.names()

	statuses, err := p.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration status: %w", err)
	}
	out := make([]RoutineStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, RoutineStatus{
			Version:   s.Source.Version,
			Name:      names[s.Source.Version],
			Applied:   s.State == goose.StateApplied,
			AppliedAt: s.AppliedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (p Plan) names() map[int64]string {
	m := make(map[int64]string, len(p))
	for _, rt := range p {
		m[rt.Version] = rt.Name
	}
	return m
}
