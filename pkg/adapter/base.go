package adapter

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/leapstack-labs/sqlgate/pkg/core"
	"github.com/leapstack-labs/sqlgate/pkg/dialect"
)

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Classifier maps a driver error raised by query to a gateway error kind.
// query is empty for errors raised outside a statement, such as begin or commit.
type Classifier func(query string, err error) core.ErrorKind

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get the shared
// Close, Ping and result normalization.
type BaseSQLAdapter struct {
	DB         *sql.DB
	Cfg        Config
	Logger     *slog.Logger
	SQLDialect *dialect.Dialect
	Classify   Classifier
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection", slog.String("dialect", b.dialectName()))
		}
		return b.DB.Close()
	}
	return nil
}

// Ping verifies the connection is alive.
func (b *BaseSQLAdapter) Ping(ctx context.Context) error {
	if b.DB == nil {
		return errNotConnected("ping")
	}
	if err := b.DB.PingContext(ctx); err != nil {
		return core.NewError(core.KindConnectivity, "ping", err)
	}
	return nil
}

// Handle returns the underlying pool.
func (b *BaseSQLAdapter) Handle() *sql.DB { return b.DB }

// Dialect returns the adapter's dialect.
func (b *BaseSQLAdapter) Dialect() *dialect.Dialect { return b.SQLDialect }

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

func (b *BaseSQLAdapter) dialectName() string {
	if b.SQLDialect == nil {
		return ""
	}
	return b.SQLDialect.Name
}

// Run executes one statement on q and normalizes the outcome. Reads return all
// rows; writes return the affected count and generated identifier.
func (b *BaseSQLAdapter) Run(ctx context.Context, q Querier, query string, args []any) (*core.Result, error) {
	if q == nil {
		return nil, errNotConnected("execute")
	}
	bound := query
	if b.SQLDialect != nil {
		bound = b.SQLDialect.Bind(query)
	}

	if IsRead(query) {
		//nolint:rowserrcheck // checked in ScanRows
		rows, err := q.QueryContext(ctx, bound, args...)
		if err != nil {
			return nil, b.wrap("query", query, err)
		}
		defer func() { _ = rows.Close() }()

		res, err := ScanRows(rows)
		if err != nil {
			return nil, b.wrap("scan", query, err)
		}
		return res, nil
	}

	res, err := q.ExecContext(ctx, bound, args...)
	if err != nil {
		return nil, b.wrap("exec", query, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		affected = 0
	}
	return core.NewWriteResult(affected, insertedID(query, res)), nil
}

// Wrap classifies err and returns it as a *core.Error.
func (b *BaseSQLAdapter) Wrap(op string, err error) error {
	return b.wrap(op, "", err)
}

func (b *BaseSQLAdapter) wrap(op, query string, err error) error {
	var ce *core.Error
	if errors.As(err, &ce) {
		return err
	}
	kind := core.KindExecution
	if b.Classify != nil {
		kind = b.Classify(query, err)
	}
	if kind == core.KindExecution {
		kind = classifyCommon(err)
	}
	return core.NewError(kind, op, err)
}

func classifyCommon(err error) core.ErrorKind {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return core.KindConnectionLost
	}
	return core.KindExecution
}

func errNotConnected(op string) error {
	return core.Errorf(core.KindConnectivity, op, "database connection not established")
}

// IsRead reports whether a statement returns rows: its first keyword, after
// trimming whitespace, is SELECT in any case.
func IsRead(query string) bool {
	return hasKeyword(query, "SELECT")
}

// IsAlterTable reports whether query is an ALTER statement. Engines report a
// duplicate column the same way for ALTER TABLE ... ADD COLUMN and for a
// CREATE TABLE that lists a column twice; only the first means the column
// already exists.
func IsAlterTable(query string) bool {
	return hasKeyword(query, "ALTER")
}

func isInsert(query string) bool {
	return hasKeyword(query, "INSERT") || hasKeyword(query, "REPLACE")
}

func hasKeyword(query, kw string) bool {
	q := strings.TrimSpace(query)
	if len(q) < len(kw) || !strings.EqualFold(q[:len(kw)], kw) {
		return false
	}
	if len(q) == len(kw) {
		return true
	}
	c := q[len(kw)]
	return !(c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z')
}

// insertedID returns the generated identifier of an INSERT, or nil when the
// statement is not an insert or the engine reports none.
func insertedID(query string, res sql.Result) *int64 {
	if !isInsert(query) {
		return nil
	}
	id, err := res.LastInsertId()
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

// ScanRows reads every row into column-name maps, keeping engine order.
func ScanRows(rows *sql.Rows) (*core.Result, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []core.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(core.Row, len(cols))
		for i, col := range cols {
			row[col] = NormalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return core.NewRowsResult(cols, out), nil
}

// NormalizeValue converts driver-specific representations into the shapes
// every engine shares: text as string, timestamps as "YYYY-MM-DD HH:MM:SS".
func NormalizeValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.DateTime)
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}
