package adapter

import (
	"context"
	"database/sql"

	"github.com/leapstack-labs/sqlgate/pkg/core"
)

// ConnSession is a Session over one dedicated pool connection with real
// transaction support. Pooled engines return it from Session.
type ConnSession struct {
	base *BaseSQLAdapter
	conn *sql.Conn
	tx   *sql.Tx
}

// OpenSession reserves a connection from the pool. Callers must Close it.
func (b *BaseSQLAdapter) OpenSession(ctx context.Context) (*ConnSession, error) {
	if b.DB == nil {
		return nil, errNotConnected("session")
	}
	conn, err := b.DB.Conn(ctx)
	if err != nil {
		return nil, b.Wrap("session", err)
	}
	return &ConnSession{base: b, conn: conn}, nil
}

// Execute runs a statement on the session's connection, inside the open
// transaction if there is one.
func (s *ConnSession) Execute(ctx context.Context, query string, args ...any) (*core.Result, error) {
	if s.conn == nil {
		return nil, core.Errorf(core.KindConnectionLost, "execute", "session is closed")
	}
	var q Querier = s.conn
	if s.tx != nil {
		q = s.tx
	}
	return s.base.Run(ctx, q, query, args)
}

// Begin starts a transaction on the session's connection.
func (s *ConnSession) Begin(ctx context.Context) error {
	if s.conn == nil {
		return core.Errorf(core.KindConnectionLost, "begin", "session is closed")
	}
	if s.tx != nil {
		return core.Errorf(core.KindExecution, "begin", "transaction already in progress")
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return s.base.Wrap("begin", err)
	}
	s.tx = tx
	return nil
}

// Commit commits the open transaction.
func (s *ConnSession) Commit() error {
	if s.tx == nil {
		return core.Errorf(core.KindExecution, "commit", "no transaction in progress")
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		return s.base.Wrap("commit", err)
	}
	return nil
}

// Rollback undoes every statement since Begin.
func (s *ConnSession) Rollback() error {
	if s.tx == nil {
		return core.Errorf(core.KindExecution, "rollback", "no transaction in progress")
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(); err != nil {
		return s.base.Wrap("rollback", err)
	}
	return nil
}

// InTransaction reports whether Begin has been called without Commit or Rollback.
func (s *ConnSession) InTransaction() bool { return s.tx != nil }

// Close rolls back any open transaction and returns the connection to the pool.
func (s *ConnSession) Close() error {
	if s.conn == nil {
		return nil
	}
	if s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
	}
	conn := s.conn
	s.conn = nil
	return conn.Close()
}

var _ Session = (*ConnSession)(nil)
