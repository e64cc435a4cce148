// Package adapter defines the contract every storage engine implements for the
// persistence gateway.
//
// An adapter owns one engine connection pool and turns that engine's native
// results into core.Result values, so the gateway never inspects driver-
// specific shapes. Concrete adapters live in pkg/adapters/ subdirectories and
// register themselves by driver name.
package adapter

import (
	"context"
	"database/sql"
	"time"

	"github.com/leapstack-labs/sqlgate/pkg/core"
	"github.com/leapstack-labs/sqlgate/pkg/dialect"
)

// Config holds the configuration for connecting to a database.
type Config struct {
	// Type is the registered driver name ("mysql", "postgres", "sqlite").
	Type string

	// Path is the data file for embedded engines.
	Path string

	Host     string
	Port     int
	Database string
	Username string
	Password string

	// PoolSize caps open connections for pooled engines. Zero means the driver default.
	PoolSize int

	// ConnectTimeout bounds the initial connection attempt.
	ConnectTimeout time.Duration

	// BusyTimeout is how long an embedded engine waits on a locked file.
	BusyTimeout time.Duration

	// Options contains additional driver-specific options.
	Options map[string]string
}

// Capabilities describes the guarantees an engine gives its callers.
type Capabilities struct {
	// SupportsAtomicRollback is false when Rollback does not undo statements
	// already executed inside the transaction.
	SupportsAtomicRollback bool

	// SerializedAccess is true when statements from concurrent callers run one
	// at a time rather than in parallel.
	SerializedAccess bool
}

// Adapter defines the interface that all engine adapters must implement.
type Adapter interface {
	// Connect opens the engine and verifies it is reachable.
	Connect(ctx context.Context, cfg Config) error

	// Close releases the connection pool.
	Close() error

	// Ping checks that the engine still answers.
	Ping(ctx context.Context) error

	// Execute runs one statement with positional "?" parameters.
	Execute(ctx context.Context, query string, args ...any) (*core.Result, error)

	// Session returns a handle for running several statements as one unit.
	Session(ctx context.Context) (Session, error)

	// Handle exposes the underlying pool for tooling that needs database/sql directly.
	Handle() *sql.DB

	// Dialect returns the engine's dialect descriptor.
	Dialect() *dialect.Dialect

	// Capabilities reports the engine's transaction and concurrency guarantees.
	Capabilities() Capabilities
}

// Session is a unit of work bound to one logical connection.
type Session interface {
	Execute(ctx context.Context, query string, args ...any) (*core.Result, error)
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error
	InTransaction() bool
	Close() error
}
