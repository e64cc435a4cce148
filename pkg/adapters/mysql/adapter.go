package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/leapstack-labs/sqlgate/pkg/adapter"
	"github.com/leapstack-labs/sqlgate/pkg/core"
	"github.com/leapstack-labs/sqlgate/pkg/dialect"
)

// Adapter implements the adapter.Adapter interface for MySQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new MySQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{
			Logger:     logger,
			SQLDialect: dialect.MySQL,
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

// Connect opens a bounded pool against the configured server and verifies it
// answers within the connect timeout.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	mc := buildConfig(cfg)

	a.Logger.Debug("connecting to mysql",
		slog.String("addr", mc.Addr),
		slog.String("database", mc.DBName),
		slog.Int("pool_size", cfg.PoolSize))

	connector, err := gomysql.NewConnector(mc)
	if err != nil {
		return core.NewError(core.KindConnectivity, "connect", fmt.Errorf("invalid mysql configuration: %w", err))
	}

	db := sql.OpenDB(connector)
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
		return core.NewError(core.KindConnectivity, "connect", fmt.Errorf("failed to ping mysql: %w", err))
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildConfig maps gateway settings onto a driver config. Temporal columns are
// left as text so rows match the fallback engine's shape.
func buildConfig(cfg adapter.Config) *gomysql.Config {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	mc := gomysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.DBName = cfg.Database
	mc.Timeout = cfg.ConnectTimeout
	mc.ParseTime = false
	mc.MultiStatements = false
	for k, v := range cfg.Options {
		if mc.Params == nil {
			mc.Params = make(map[string]string)
		}
		mc.Params[k] = v
	}
	return mc
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

// MySQL server error numbers the gateway distinguishes.
const (
	erTableExists      = 1050
	erDupFieldName     = 1060
	erDupKeyName       = 1061
	erFKDupName        = 1826
	erDupEntry         = 1062
	erRowIsReferenced  = 1451
	erNoReferencedRow  = 1452
	erBadNull          = 1048
	erCheckViolated    = 3819
	erParseError       = 1064
	erTruncatedValue   = 1366
	erTruncatedWrong   = 1292
	erDataTruncated    = 1265
	erAccessDenied     = 1045
	erBadDB            = 1049
	erServerGone       = 2006
	erServerLost       = 2013
	erServerShutdown   = 1053
	erConnectionKilled = 1927
)

// Classify maps MySQL server error numbers to gateway error kinds. A
// duplicate column name only means the column exists for ALTER TABLE.
func Classify(query string, err error) core.ErrorKind {
	var me *gomysql.MySQLError
	if errors.As(err, &me) {
		if me.Number == erDupFieldName && !adapter.IsAlterTable(query) {
			return core.KindExecution
		}
		return classifyNumber(me.Number)
	}
	if errors.Is(err, gomysql.ErrInvalidConn) {
		return core.KindConnectionLost
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return core.KindConnectionLost
	}
	return core.KindExecution
}

func classifyNumber(n uint16) core.ErrorKind {
	switch n {
	case erTableExists, erDupFieldName, erDupKeyName, erFKDupName:
		return core.KindAlreadyExists
	case erDupEntry, erRowIsReferenced, erNoReferencedRow, erBadNull, erCheckViolated:
		return core.KindConstraint
	case erParseError:
		return core.KindSyntax
	case erTruncatedValue, erTruncatedWrong, erDataTruncated:
		return core.KindTypeMismatch
	case erAccessDenied, erBadDB:
		return core.KindConnectivity
	case erServerGone, erServerLost, erServerShutdown, erConnectionKilled:
		return core.KindConnectionLost
	}
	return core.KindExecution
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
