package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/leapstack-labs/sqlgate/pkg/adapter"
	"github.com/leapstack-labs/sqlgate/pkg/core"
	"github.com/leapstack-labs/sqlgate/pkg/dialect"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DefaultBusyTimeout is how long a statement waits on a locked file.
const DefaultBusyTimeout = 5 * time.Second

// maxOpenConns caps the pool. Statements issued through Execute are also
// serialized by the adapter lock; callers using Handle directly, such as the
// migration plan, bypass that lock and rely on busy_timeout instead. The
// migration plan needs two connections.
const maxOpenConns = 2

// Adapter implements the adapter.Adapter interface for an embedded SQLite file.
// Every statement runs under one mutex, so concurrent callers are serialized.
type Adapter struct {
	adapter.BaseSQLAdapter
	mu sync.Mutex
}

// New creates a new SQLite adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{
			Logger:     logger,
			SQLDialect: dialect.SQLite,
			Classify:   Classify,
		},
	}
}

// Connect opens (creating if needed) the data file and checks it is writable.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	if cfg.Path == "" {
		return core.Errorf(core.KindConnectivity, "connect", "sqlite path not specified")
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return core.NewError(core.KindConnectivity, "connect", fmt.Errorf("failed to create data directory: %w", err))
		}
	}

	a.Logger.Debug("opening sqlite database", slog.String("path", cfg.Path))

	db, err := sql.Open("sqlite", buildDSN(cfg))
	if err != nil {
		return core.NewError(core.KindConnectivity, "connect", fmt.Errorf("failed to open sqlite database: %w", err))
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns)

	if err := probeWritable(ctx, db); err != nil {
		_ = db.Close()
		return core.NewError(core.KindConnectivity, "connect", fmt.Errorf("sqlite database %s is not usable: %w", cfg.Path, err))
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildDSN appends the connection pragmas every pooled connection needs.
func buildDSN(cfg adapter.Config) string {
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = DefaultBusyTimeout
	}
	return fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", cfg.Path, busy.Milliseconds())
}

// probeWritable takes and releases the write lock on a single connection.
func probeWritable(ctx context.Context, db *sql.DB) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx, "ROLLBACK")
	return err
}

// Execute runs one statement while holding the adapter lock.
func (a *Adapter) Execute(ctx context.Context, query string, args ...any) (*core.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.DB == nil {
		return a.Run(ctx, nil, query, args)
	}
	return a.Run(ctx, a.DB, query, args)
}

// Session returns a handle whose transaction calls are bookkeeping only.
// Statements run immediately against the shared file; Rollback cannot undo them.
func (a *Adapter) Session(_ context.Context) (adapter.Session, error) {
	if a.DB == nil {
		return nil, core.Errorf(core.KindConnectivity, "session", "database connection not established")
	}
	return &serialSession{a: a}, nil
}

// Capabilities reports serialized access without atomic rollback. Access is
// serialized only for statements issued through the adapter, not through Handle.
func (a *Adapter) Capabilities() adapter.Capabilities {
	return adapter.Capabilities{SupportsAtomicRollback: false, SerializedAccess: true}
}

type serialSession struct {
	a      *Adapter
	inTx   bool
	closed bool
}

func (s *serialSession) Execute(ctx context.Context, query string, args ...any) (*core.Result, error) {
	if s.closed {
		return nil, core.Errorf(core.KindConnectionLost, "execute", "session is closed")
	}
	return s.a.Execute(ctx, query, args...)
}

func (s *serialSession) Begin(_ context.Context) error {
	if s.inTx {
		return core.Errorf(core.KindExecution, "begin", "transaction already in progress")
	}
	s.inTx = true
	s.a.Logger.Debug("transaction started on fallback engine; statements are not isolated")
	return nil
}

func (s *serialSession) Commit() error {
	if !s.inTx {
		return core.Errorf(core.KindExecution, "commit", "no transaction in progress")
	}
	s.inTx = false
	return nil
}

func (s *serialSession) Rollback() error {
	if !s.inTx {
		return core.Errorf(core.KindExecution, "rollback", "no transaction in progress")
	}
	s.inTx = false
	s.a.Logger.Debug("rollback on fallback engine leaves executed statements in place")
	return nil
}

func (s *serialSession) InTransaction() bool { return s.inTx }

func (s *serialSession) Close() error {
	s.closed = true
	s.inTx = false
	return nil
}

// Classify maps SQLite result codes to gateway error kinds. SQLite reports
// duplicate objects and parse failures as a generic SQLITE_ERROR, so those two
// are told apart by message. A duplicate column name only means the column
// exists for ALTER TABLE; in CREATE TABLE the definition itself is broken.
func Classify(query string, err error) core.ErrorKind {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return core.KindExecution
	}

	switch se.Code() & 0xff {
	case sqlite3.SQLITE_CONSTRAINT:
		return core.KindConstraint
	case sqlite3.SQLITE_MISMATCH:
		return core.KindTypeMismatch
	case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_PERM, sqlite3.SQLITE_CORRUPT:
		return core.KindConnectivity
	case sqlite3.SQLITE_IOERR:
		return core.KindConnectionLost
	case sqlite3.SQLITE_ERROR:
		msg := strings.ToLower(se.Error())
		switch {
		case strings.Contains(msg, "already exists"):
			return core.KindAlreadyExists
		case strings.Contains(msg, "duplicate column name"):
			if adapter.IsAlterTable(query) {
				return core.KindAlreadyExists
			}
			return core.KindExecution
		case strings.Contains(msg, "syntax error"), strings.Contains(msg, "incomplete input"):
			return core.KindSyntax
		}
	}
	return core.KindExecution
}

var (
	_ adapter.Adapter = (*Adapter)(nil)
	_ adapter.Session = (*serialSession)(nil)
)
