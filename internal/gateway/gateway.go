// Package gateway is the single entry point for relational data access.
//
// Open decides once, at startup, whether the primary engine is reachable. If
// it is not, the gateway opens the embedded fallback engine, translates the
// schema into its dialect and applies it. Callers then issue statements
// through Execute or a Conn without knowing which engine is active.
package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/leapstack-labs/sqlgate/internal/schema"
	"github.com/leapstack-labs/sqlgate/pkg/adapter"
	"github.com/leapstack-labs/sqlgate/pkg/core"
	"github.com/leapstack-labs/sqlgate/pkg/dialect"
	"golang.org/x/sync/semaphore"

	// Engines selectable by driver name.
	_ "github.com/leapstack-labs/sqlgate/pkg/adapters/mysql"
	_ "github.com/leapstack-labs/sqlgate/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/sqlgate/pkg/adapters/sqlite"
)

// Options configures engine selection.
type Options struct {
	// Primary is the networked engine tried first.
	Primary adapter.Config

	// PrimaryDisabled skips the primary attempt entirely.
	PrimaryDisabled bool

	// QueueLimit is how many callers may wait for a pooled connection beyond
	// Primary.PoolSize. Zero means no limit.
	QueueLimit int

	// Fallback is the embedded engine used when the primary is unavailable.
	Fallback adapter.Config

	// Schema is the schema script in the primary dialect. When empty the
	// script is read from SchemaPath, or the embedded default is used.
	Schema     string
	SchemaPath string
}

// Gateway routes statements to the engine chosen at startup.
type Gateway struct {
	mode       core.EngineMode
	adp        adapter.Adapter
	logger     *slog.Logger
	sem        *semaphore.Weighted
	report     *schema.Report
	primaryErr error
	closed     atomic.Bool
}

// Option customizes a Gateway built with New.
type Option func(*Gateway)

// WithAdmissionLimit bounds how many callers may hold or wait for a
// connection at once. Callers beyond the limit block until a slot frees.
func WithAdmissionLimit(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// New wraps an already connected adapter. The mode is fixed for the life of
// the gateway.
func New(mode core.EngineMode, adp adapter.Adapter, logger *slog.Logger, opts ...Option) *Gateway {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	g := &Gateway{
		mode:   mode,
		adp:    adp,
		logger: logger.With(slog.String("engine", mode.String())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Open selects the active engine. A primary failure of any kind selects the
// fallback engine; there is no later attempt to return to the primary. Open
// fails only when the fallback engine itself cannot be opened.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var primaryErr error
	if opts.PrimaryDisabled {
		primaryErr = core.Errorf(core.KindConnectivity, "connect", "primary engine disabled by configuration")
		logger.Info("primary engine disabled, using fallback")
	} else {
		adp, err := connect(ctx, opts.Primary, adapter.RolePrimary, logger)
		if err == nil {
			logger.Info("connected to primary engine",
				slog.String("driver", adp.Dialect().Name),
				slog.String("host", opts.Primary.Host),
				slog.String("database", opts.Primary.Database))
			return New(core.ModePrimary, adp, logger, WithAdmissionLimit(admissionLimit(opts))), nil
		}
		primaryErr = err
		logger.Warn("primary engine unavailable, using fallback",
			slog.String("host", opts.Primary.Host),
			slog.String("error", err.Error()))
	}

	g, err := openFallback(ctx, opts, logger)
	if err != nil {
		return nil, err
	}
	g.primaryErr = primaryErr
	return g, nil
}

func admissionLimit(opts Options) int {
	if opts.QueueLimit <= 0 || opts.Primary.PoolSize <= 0 {
		return 0
	}
	return opts.Primary.PoolSize + opts.QueueLimit
}

// defaultEngines fills an empty adapter type per role.
var defaultEngines = map[adapter.Role]string{
	adapter.RolePrimary:  "mysql",
	adapter.RoleFallback: "sqlite",
}

func connect(ctx context.Context, cfg adapter.Config, role adapter.Role, logger *slog.Logger) (adapter.Adapter, error) {
	if cfg.Type == "" {
		cfg.Type = defaultEngines[role]
	}
	adp, err := adapter.NewAdapterFor(role, cfg, logger)
	if err != nil {
		return nil, core.NewError(core.KindConnectivity, "connect", err)
	}
	if err := adp.Connect(ctx, cfg); err != nil {
		return nil, err
	}
	return adp, nil
}

func openFallback(ctx context.Context, opts Options, logger *slog.Logger) (*Gateway, error) {
	adp, err := connect(ctx, opts.Fallback, adapter.RoleFallback, logger)
	if err != nil {
		return nil, fmt.Errorf("fallback engine unavailable: %w", err)
	}

	text := opts.Schema
	if text == "" {
		text, err = schema.Load(opts.SchemaPath)
		if err != nil {
			_ = adp.Close()
			return nil, err
		}
	}

	g := New(core.ModeFallback, adp, logger)
	report, err := schema.ApplyFor(ctx, adp.Dialect(), text, adp, g.logger)
	if err != nil {
		_ = adp.Close()
		return nil, fmt.Errorf("fallback engine unavailable: %w", err)
	}
	g.report = report

	g.logger.Info("using fallback engine",
		slog.String("path", opts.Fallback.Path),
		slog.Int("statements", len(report.Statements)))
	return g, nil
}

// Mode returns the engine selected at startup.
func (g *Gateway) Mode() core.EngineMode { return g.mode }

// Capabilities reports the active engine's transaction and concurrency guarantees.
func (g *Gateway) Capabilities() adapter.Capabilities { return g.adp.Capabilities() }

// Dialect returns the active engine's dialect.
func (g *Gateway) Dialect() *dialect.Dialect { return g.adp.Dialect() }

// TranslateDDL rewrites a primary-dialect DDL fragment for the active engine.
func (g *Gateway) TranslateDDL(clause string) string {
	return g.adp.Dialect().TranslateDDL(clause)
}

// InitReport returns the fallback schema report, or nil on the primary engine.
func (g *Gateway) InitReport() *schema.Report { return g.report }

// PrimaryError returns why the primary engine was not used, or nil.
func (g *Gateway) PrimaryError() error { return g.primaryErr }

// Handle exposes the active engine's pool for tooling built on database/sql.
func (g *Gateway) Handle() *sql.DB { return g.adp.Handle() }

// Logger returns the gateway's logger.
func (g *Gateway) Logger() *slog.Logger { return g.logger }

// Ping checks the active engine is still reachable.
func (g *Gateway) Ping(ctx context.Context) error {
	if g.closed.Load() {
		return errClosed("ping")
	}
	return g.adp.Ping(ctx)
}

// Execute runs one statement with positional "?" parameters. Reads are
// statements beginning with SELECT; everything else is a write.
func (g *Gateway) Execute(ctx context.Context, query string, args ...any) (*core.Result, error) {
	if g.closed.Load() {
		return nil, errClosed("execute")
	}
	release, err := g.admit(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	res, err := g.adp.Execute(ctx, query, args...)
	if err != nil {
		g.logger.Debug("statement failed",
			slog.String("kind", core.KindOf(err).String()),
			slog.String("error", err.Error()))
		return nil, err
	}
	return res, nil
}

// Close releases the active engine.
func (g *Gateway) Close() error {
	if g.closed.Swap(true) {
		return nil
	}
	return g.adp.Close()
}

// admit blocks until the caller may use a connection.
func (g *Gateway) admit(ctx context.Context) (func(), error) {
	if g.sem == nil {
		return func() {}, nil
	}
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, core.NewError(core.KindExecution, "admit", err)
	}
	return func() { g.sem.Release(1) }, nil
}

func errClosed(op string) error {
	return core.Errorf(core.KindConnectivity, op, "gateway is closed")
}
