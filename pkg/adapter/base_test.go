package adapter

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/sqlgate/pkg/core"
	"github.com/leapstack-labs/sqlgate/pkg/dialect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockBase(t *testing.T) (*BaseSQLAdapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &BaseSQLAdapter{DB: db, SQLDialect: dialect.MySQL}, mock
}

func TestBaseSQLAdapter_Close(t *testing.T) {
	tests := []struct {
		name    string
		setupDB bool
	}{
		{name: "close with nil DB", setupDB: false},
		{name: "close with open DB", setupDB: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLAdapter{}

			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				mock.ExpectClose()
				base.DB = db
			}

			assert.NoError(t, base.Close())
		})
	}
}

func TestBaseSQLAdapter_Ping(t *testing.T) {
	base := &BaseSQLAdapter{}
	err := base.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindConnectivity))

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	base.DB = db

	mock.ExpectPing()
	assert.NoError(t, base.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(assert.AnError)
	err = base.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindConnectivity))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseSQLAdapter_Run(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		sql       string
		args      []any
		check     func(t *testing.T, res *core.Result)
		errKind   core.ErrorKind
		expectErr bool
	}{
		{
			name: "select returns rows",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "nombre"}).
					AddRow(int64(1), []byte("Ana")).
					AddRow(int64(2), "Luis")
				mock.ExpectQuery("SELECT id, nombre FROM usuario").WillReturnRows(rows)
			},
			sql: "SELECT id, nombre FROM usuario",
			check: func(t *testing.T, res *core.Result) {
				assert.Equal(t, core.ResultRows, res.Kind)
				assert.Equal(t, []string{"id", "nombre"}, res.Columns)
				require.Len(t, res.Rows, 2)
				assert.Equal(t, "Ana", res.Rows[0]["nombre"], "[]byte normalizes to string")
				assert.Equal(t, int64(2), res.Rows[1]["id"])
			},
		},
		{
			name: "lowercase select with leading whitespace is a read",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("select 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(int64(1)))
			},
			sql: "  \n\tselect 1",
			check: func(t *testing.T, res *core.Result) {
				assert.True(t, res.IsRead())
				assert.Equal(t, 1, res.Len())
			},
		},
		{
			name: "empty select returns empty list",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT id FROM usuario").WillReturnRows(sqlmock.NewRows([]string{"id"}))
			},
			sql:  "SELECT id FROM usuario WHERE id = ?",
			args: []any{99},
			check: func(t *testing.T, res *core.Result) {
				assert.NotNil(t, res.Rows)
				assert.Empty(t, res.Rows)
			},
		},
		{
			name: "insert reports id",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO usuario").WithArgs("Ana").WillReturnResult(sqlmock.NewResult(7, 1))
			},
			sql:  "INSERT INTO usuario (nombre) VALUES (?)",
			args: []any{"Ana"},
			check: func(t *testing.T, res *core.Result) {
				assert.Equal(t, core.ResultWrite, res.Kind)
				assert.Equal(t, int64(1), res.RowsAffected)
				require.NotNil(t, res.InsertedID)
				assert.Equal(t, int64(7), *res.InsertedID)
			},
		},
		{
			name: "update has no inserted id",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("UPDATE usuario").WillReturnResult(sqlmock.NewResult(7, 3))
			},
			sql: "UPDATE usuario SET nombre = 'x'",
			check: func(t *testing.T, res *core.Result) {
				assert.Equal(t, int64(3), res.RowsAffected)
				assert.Nil(t, res.InsertedID)
			},
		},
		{
			name: "with clause goes through exec",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("WITH x AS").WillReturnResult(sqlmock.NewResult(0, 0))
			},
			sql: "WITH x AS (SELECT 1) SELECT * FROM x",
			check: func(t *testing.T, res *core.Result) {
				assert.Equal(t, core.ResultWrite, res.Kind)
			},
		},
		{
			name: "driver error is wrapped",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INVALID SQL").WillReturnError(assert.AnError)
			},
			sql:       "INVALID SQL",
			expectErr: true,
			errKind:   core.KindExecution,
		},
		{
			name: "closed connection is connection lost",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT 1").WillReturnError(sql.ErrConnDone)
			},
			sql:       "SELECT 1",
			expectErr: true,
			errKind:   core.KindConnectionLost,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, mock := newMockBase(t)
			tt.setupMock(mock)

			res, err := base.Run(context.Background(), base.DB, tt.sql, tt.args)
			if tt.expectErr {
				require.Error(t, err)
				var ce *core.Error
				require.ErrorAs(t, err, &ce)
				assert.Equal(t, tt.errKind, ce.Kind)
				return
			}
			require.NoError(t, err)
			tt.check(t, res)
		})
	}
}

func TestBaseSQLAdapter_RunWithoutConnection(t *testing.T) {
	base := &BaseSQLAdapter{}
	_, err := base.Run(context.Background(), nil, "SELECT 1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database connection not established")
	assert.True(t, core.IsKind(err, core.KindConnectivity))
}

func TestBaseSQLAdapter_WrapUsesClassifier(t *testing.T) {
	base := &BaseSQLAdapter{
		Classify: func(string, error) core.ErrorKind { return core.KindAlreadyExists },
	}
	err := base.Wrap("exec", assert.AnError)
	assert.True(t, core.IsKind(err, core.KindAlreadyExists))
	assert.ErrorIs(t, err, assert.AnError)

	again := base.Wrap("query", err)
	assert.Same(t, err, again, "already-classified errors pass through")
}

func TestBaseSQLAdapter_RunPassesStatementToClassifier(t *testing.T) {
	base, mock := newMockBase(t)
	var seen string
	base.Classify = func(query string, err error) core.ErrorKind {
		seen = query
		return core.KindAlreadyExists
	}
	mock.ExpectExec("ALTER TABLE rol").WillReturnError(assert.AnError)

	_, err := base.Run(context.Background(), base.DB, "ALTER TABLE rol ADD COLUMN nota TEXT", nil)
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindAlreadyExists))
	assert.Equal(t, "ALTER TABLE rol ADD COLUMN nota TEXT", seen)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassifyCommon_BadConn(t *testing.T) {
	assert.Equal(t, core.KindConnectionLost, classifyCommon(driver.ErrBadConn))
	assert.Equal(t, core.KindConnectionLost, classifyCommon(sql.ErrConnDone))
	assert.Equal(t, core.KindExecution, classifyCommon(assert.AnError))
}

func TestIsAlterTable(t *testing.T) {
	assert.True(t, IsAlterTable("ALTER TABLE rol ADD COLUMN nota TEXT"))
	assert.True(t, IsAlterTable("\n  alter table rol add nota TEXT"))
	assert.False(t, IsAlterTable("CREATE TABLE rol (id INT, id INT)"))
	assert.False(t, IsAlterTable("ALTERED"))
}

func TestIsRead(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"SELECT 1", true},
		{"select * from t", true},
		{"   SeLeCt 1", true},
		{"SELECT", true},
		{"SELECT\n*", true},
		{"SELECTED", false},
		{"INSERT INTO t SELECT 1", false},
		{"WITH a AS (SELECT 1) SELECT * FROM a", false},
		{"SHOW TABLES", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRead(tt.query), "IsRead(%q)", tt.query)
	}
}

func TestNormalizeValue(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC)
	assert.Equal(t, "abc", NormalizeValue([]byte("abc")))
	assert.Equal(t, "2024-03-09 14:05:00", NormalizeValue(ts))
	assert.Equal(t, int64(5), NormalizeValue(5))
	assert.Equal(t, int64(5), NormalizeValue(int32(5)))
	assert.Equal(t, 1.5, NormalizeValue(float32(1.5)))
	assert.Nil(t, NormalizeValue(nil))
	assert.Equal(t, true, NormalizeValue(true))
}

func TestConnSession_Transaction(t *testing.T) {
	base, mock := newMockBase(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO pedido").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectRollback()

	sess, err := base.OpenSession(ctx)
	require.NoError(t, err)
	defer func() { _ = sess.Close() }()

	require.NoError(t, sess.Begin(ctx))
	assert.True(t, sess.InTransaction())

	err = sess.Begin(ctx)
	require.Error(t, err, "nested begin is rejected")

	_, err = sess.Execute(ctx, "INSERT INTO pedido (total) VALUES (?)", 10)
	require.NoError(t, err)

	require.NoError(t, sess.Rollback())
	assert.False(t, sess.InTransaction())

	require.Error(t, sess.Commit(), "commit without begin")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnSession_CloseRollsBackOpenTransaction(t *testing.T) {
	base, mock := newMockBase(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectRollback()

	sess, err := base.OpenSession(ctx)
	require.NoError(t, err)
	require.NoError(t, sess.Begin(ctx))
	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close(), "second close is a no-op")

	_, err = sess.Execute(ctx, "SELECT 1")
	assert.True(t, core.IsKind(err, core.KindConnectionLost))
	require.NoError(t, mock.ExpectationsWereMet())
}
