package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/leapstack-labs/sqlgate/pkg/adapter"
	"github.com/leapstack-labs/sqlgate/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Adapter {
	t.Helper()
	adp := New(nil)
	path := filepath.Join(t.TempDir(), "nested", "fallback.db")
	require.NoError(t, adp.Connect(context.Background(), adapter.Config{Type: "sqlite", Path: path}))
	t.Cleanup(func() { _ = adp.Close() })
	return adp
}

func TestConnect_CapsPool(t *testing.T) {
	adp := openTemp(t)
	assert.Equal(t, maxOpenConns, adp.Handle().Stats().MaxOpenConnections)
}

func TestConnect_CreatesDirectoryAndFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b", "fallback.db")

	adp := New(nil)
	require.NoError(t, adp.Connect(context.Background(), adapter.Config{Path: path}))
	defer func() { _ = adp.Close() }()

	_, err := os.Stat(path)
	assert.NoError(t, err, "data file should exist after connect")
	assert.True(t, adp.IsConnected())
}

func TestConnect_EmptyPath(t *testing.T) {
	err := New(nil).Connect(context.Background(), adapter.Config{})
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindConnectivity))
}

func TestConnect_PathUnderFile(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	err := New(nil).Connect(context.Background(), adapter.Config{Path: filepath.Join(blocker, "fallback.db")})
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindConnectivity))
}

func TestBuildDSN(t *testing.T) {
	assert.Equal(t, "data/x.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
		buildDSN(adapter.Config{Path: "data/x.db"}))
}

func TestExecute_ReadAndWrite(t *testing.T) {
	adp := openTemp(t)
	ctx := context.Background()

	_, err := adp.Execute(ctx, "CREATE TABLE usuario (id INTEGER PRIMARY KEY AUTOINCREMENT, nombre TEXT NOT NULL, creado TEXT DEFAULT CURRENT_TIMESTAMP)")
	require.NoError(t, err)

	res, err := adp.Execute(ctx, "INSERT INTO usuario (nombre) VALUES (?)", "Ana")
	require.NoError(t, err)
	assert.Equal(t, core.ResultWrite, res.Kind)
	assert.Equal(t, int64(1), res.RowsAffected)
	require.NotNil(t, res.InsertedID)
	assert.Equal(t, int64(1), *res.InsertedID)

	res, err = adp.Execute(ctx, "UPDATE usuario SET nombre = ? WHERE id = ?", "Ana María", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsAffected)
	assert.Nil(t, res.InsertedID)

	res, err = adp.Execute(ctx, "select id, nombre from usuario")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "nombre"}, res.Columns)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(1), res.Rows[0]["id"])
	assert.Equal(t, "Ana María", res.Rows[0]["nombre"])

	res, err = adp.Execute(ctx, "SELECT id FROM usuario WHERE id = ?", 99)
	require.NoError(t, err)
	assert.NotNil(t, res.Rows)
	assert.Empty(t, res.Rows)
}

func TestExecute_ErrorKinds(t *testing.T) {
	adp := openTemp(t)
	ctx := context.Background()

	_, err := adp.Execute(ctx, "CREATE TABLE rol (id INTEGER PRIMARY KEY, nombre TEXT UNIQUE)")
	require.NoError(t, err)
	_, err = adp.Execute(ctx, "INSERT INTO rol (nombre) VALUES ('admin')")
	require.NoError(t, err)

	tests := []struct {
		name string
		sql  string
		want core.ErrorKind
	}{
		{"duplicate table", "CREATE TABLE rol (id INTEGER)", core.KindAlreadyExists},
		{"duplicate column", "ALTER TABLE rol ADD COLUMN nombre TEXT", core.KindAlreadyExists},
		{"column listed twice", "CREATE TABLE cita (id INTEGER, dia TEXT, dia TEXT)", core.KindExecution},
		{"unique violation", "INSERT INTO rol (nombre) VALUES ('admin')", core.KindConstraint},
		{"syntax error", "CREAT TABLE x (id INTEGER)", core.KindSyntax},
		{"missing table", "SELECT * FROM nope", core.KindExecution},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := adp.Execute(ctx, tt.sql)
			require.Error(t, err)
			assert.Equal(t, tt.want, core.KindOf(err), "error: %v", err)
		})
	}
}

func TestExecute_NotConnected(t *testing.T) {
	_, err := New(nil).Execute(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindConnectivity))
}

func TestExecute_ConcurrentWritersAreSerialized(t *testing.T) {
	adp := openTemp(t)
	ctx := context.Background()

	_, err := adp.Execute(ctx, "CREATE TABLE contador (id INTEGER PRIMARY KEY AUTOINCREMENT, n INTEGER)")
	require.NoError(t, err)

	const workers = 8
	const perWorker = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := adp.Execute(ctx, "INSERT INTO contador (n) VALUES (?)", w*100+i); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent insert failed: %v", err)
	}

	res, err := adp.Execute(ctx, "SELECT COUNT(*) AS n FROM contador")
	require.NoError(t, err)
	assert.Equal(t, int64(workers*perWorker), res.Rows[0]["n"])
}

func TestSession_RollbackDoesNotUndo(t *testing.T) {
	adp := openTemp(t)
	ctx := context.Background()

	_, err := adp.Execute(ctx, "CREATE TABLE pedido (id INTEGER PRIMARY KEY AUTOINCREMENT, total REAL)")
	require.NoError(t, err)

	sess, err := adp.Session(ctx)
	require.NoError(t, err)
	defer func() { _ = sess.Close() }()

	require.NoError(t, sess.Begin(ctx))
	require.Error(t, sess.Begin(ctx))
	_, err = sess.Execute(ctx, "INSERT INTO pedido (total) VALUES (?)", 10.5)
	require.NoError(t, err)
	require.NoError(t, sess.Rollback())
	assert.False(t, sess.InTransaction())

	res, err := adp.Execute(ctx, "SELECT total FROM pedido")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1, "rollback on the fallback engine keeps executed statements")
	assert.Equal(t, 10.5, res.Rows[0]["total"])

	require.Error(t, sess.Commit(), "commit without begin")
	require.NoError(t, sess.Close())
	_, err = sess.Execute(ctx, "SELECT 1")
	assert.True(t, core.IsKind(err, core.KindConnectionLost))
}

func TestCapabilities(t *testing.T) {
	caps := New(nil).Capabilities()
	assert.False(t, caps.SupportsAtomicRollback)
	assert.True(t, caps.SerializedAccess)
}
