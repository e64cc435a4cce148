package gateway

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/leapstack-labs/sqlgate/pkg/adapter"
	"github.com/leapstack-labs/sqlgate/pkg/core"
)

// Conn is a dedicated handle for running several statements as one unit of
// work. A Conn holds an admission slot until Close.
//
// On an engine whose Capabilities report SupportsAtomicRollback false,
// Rollback does not undo statements already executed.
type Conn struct {
	id      string
	g       *Gateway
	sess    adapter.Session
	release func()
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

// Conn acquires a dedicated handle. Callers must Close it.
func (g *Gateway) Conn(ctx context.Context) (*Conn, error) {
	if g.closed.Load() {
		return nil, errClosed("conn")
	}
	release, err := g.admit(ctx)
	if err != nil {
		return nil, err
	}
	sess, err := g.adp.Session(ctx)
	if err != nil {
		release()
		return nil, err
	}

	id := uuid.NewString()
	return &Conn{
		id:      id,
		g:       g,
		sess:    sess,
		release: release,
		logger:  g.logger.With(slog.String("conn", id)),
	}, nil
}

// BeginTransaction acquires a handle with a transaction already started.
func (g *Gateway) BeginTransaction(ctx context.Context) (*Conn, error) {
	c, err := g.Conn(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.BeginTransaction(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// ID identifies the handle in logs.
func (c *Conn) ID() string { return c.id }

// Execute runs a statement on this handle.
func (c *Conn) Execute(ctx context.Context, query string, args ...any) (*core.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, core.Errorf(core.KindConnectionLost, "execute", "connection handle is closed")
	}
	return c.sess.Execute(ctx, query, args...)
}

// BeginTransaction starts a transaction on this handle.
func (c *Conn) BeginTransaction(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.Errorf(core.KindConnectionLost, "begin", "connection handle is closed")
	}
	if err := c.sess.Begin(ctx); err != nil {
		return err
	}
	c.logger.Debug("transaction started")
	return nil
}

// Commit makes the transaction's statements permanent.
func (c *Conn) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.Errorf(core.KindConnectionLost, "commit", "connection handle is closed")
	}
	return c.sess.Commit()
}

// Rollback abandons the transaction. See the Conn documentation for engines
// without atomic rollback.
func (c *Conn) Rollback() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.Errorf(core.KindConnectionLost, "rollback", "connection handle is closed")
	}
	if !c.g.Capabilities().SupportsAtomicRollback {
		c.logger.Warn("rollback requested on an engine without atomic rollback; executed statements remain")
	}
	return c.sess.Rollback()
}

// InTransaction reports whether a transaction is open on this handle.
func (c *Conn) InTransaction() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.sess.InTransaction()
}

// Close returns the handle. An open transaction is rolled back where the
// engine supports it.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	err := c.sess.Close()
	c.release()
	return err
}
