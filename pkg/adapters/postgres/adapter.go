package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/leapstack-labs/sqlgate/pkg/adapter"
	"github.com/leapstack-labs/sqlgate/pkg/core"
	"github.com/leapstack-labs/sqlgate/pkg/dialect"
)

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{
			Logger:     logger,
			SQLDialect: dialect.Postgres,
			Classify:   Classify,
		},
	}
}

// NewWithDB wraps an already open pool.
func NewWithDB(db *sql.DB, logger *slog.Logger) *Adapter {
	a := New(logger)
	a.DB = db
	return a
}

// Connect establishes a connection to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	connCfg, err := pgx.ParseConfig(buildPostgresDSN(cfg))
	if err != nil {
		return core.NewError(core.KindConnectivity, "connect", fmt.Errorf("invalid postgres configuration: %w", err))
	}
	if cfg.ConnectTimeout > 0 {
		connCfg.ConnectTimeout = cfg.ConnectTimeout
	}

	a.Logger.Debug("connecting to postgres", slog.String("host", connCfg.Host), slog.String("database", cfg.Database))

	db := stdlib.OpenDB(*connCfg)
	if cfg.PoolSize > 0 {
		db.SetMaxOpenConns(cfg.PoolSize)
		db.SetMaxIdleConns(cfg.PoolSize)
	}

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return core.NewError(core.KindConnectivity, "connect", fmt.Errorf("failed to ping postgres: %w", err))
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildPostgresDSN constructs a PostgreSQL connection string.
func buildPostgresDSN(cfg adapter.Config) string {
	// Build key=value format: host=localhost port=5432 user=postgres ...
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if cfg.Options != nil {
		if mode, ok := cfg.Options["sslmode"]; ok {
			sslmode = mode
		}
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)

	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", quoteValue(cfg.Password))
	}

	return dsn
}

// quoteValue quotes a DSN value containing spaces or quotes.
func quoteValue(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// Execute runs one statement on the pool.
func (a *Adapter) Execute(ctx context.Context, query string, args ...any) (*core.Result, error) {
	if a.DB == nil {
		return a.Run(ctx, nil, query, args)
	}
	return a.Run(ctx, a.DB, query, args)
}

// Session reserves a pool connection with real transaction support.
func (a *Adapter) Session(ctx context.Context) (adapter.Session, error) {
	return a.OpenSession(ctx)
}

// Capabilities reports full transactional guarantees.
func (a *Adapter) Capabilities() adapter.Capabilities {
	return adapter.Capabilities{SupportsAtomicRollback: true}
}

// Classify maps PostgreSQL SQLSTATE codes to gateway error kinds. A
// duplicate column (42701) only means the column exists for ALTER TABLE.
func Classify(query string, err error) core.ErrorKind {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "42701" && !adapter.IsAlterTable(query) {
			return core.KindExecution
		}
		return classifyCode(pgErr.Code)
	}
	var netErr net.Error
	if errors.As(err, &netErr) || pgconn.Timeout(err) {
		return core.KindConnectionLost
	}
	return core.KindExecution
}

func classifyCode(code string) core.ErrorKind {
	switch code {
	case "42P07", "42701", "42710", "42P06":
		return core.KindAlreadyExists
	case "42601":
		return core.KindSyntax
	case "22P02", "42804", "22003", "22007", "22008":
		return core.KindTypeMismatch
	case "3D000":
		return core.KindConnectivity
	}
	switch {
	case strings.HasPrefix(code, "23"):
		return core.KindConstraint
	case strings.HasPrefix(code, "28"):
		return core.KindConnectivity
	case strings.HasPrefix(code, "08"), strings.HasPrefix(code, "57P"):
		return core.KindConnectionLost
	}
	return core.KindExecution
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
