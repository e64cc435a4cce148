package schema

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/sqlgate/internal/testutil"
	"github.com/leapstack-labs/sqlgate/pkg/adapter"
	"github.com/leapstack-labs/sqlgate/pkg/adapters/sqlite"
	"github.com/leapstack-labs/sqlgate/pkg/core"
	"github.com/leapstack-labs/sqlgate/pkg/dialect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedExec returns a canned error for chosen statement indexes.
type scriptedExec struct {
	errs  map[int]error
	calls []string
}

func (s *scriptedExec) Execute(_ context.Context, query string, _ ...any) (*core.Result, error) {
	i := len(s.calls)
	s.calls = append(s.calls, query)
	if err, ok := s.errs[i]; ok {
		return nil, err
	}
	return core.NewWriteResult(0, nil), nil
}

func TestApply_BestEffort(t *testing.T) {
	script := dialect.Script{"S1", "S2", "S3", "S4", "S5"}
	exec := &scriptedExec{errs: map[int]error{
		2: core.Errorf(core.KindSyntax, "exec", "near \"S3\": syntax error"),
	}}

	report, err := Apply(context.Background(), script, exec, testutil.NewTestLogger(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"S1", "S2", "S3", "S4", "S5"}, exec.calls, "every statement is attempted")
	assert.Equal(t, 4, report.Applied)
	assert.Equal(t, 0, report.Skipped)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "statement 3")
	require.Len(t, report.Failed(), 1)
	assert.Equal(t, 2, report.Failed()[0].Index)
	assert.Error(t, report.Err())
}

func TestApply_AlreadyExistsIsSkipped(t *testing.T) {
	exec := &scriptedExec{errs: map[int]error{
		0: core.Errorf(core.KindAlreadyExists, "exec", "table rol already exists"),
	}}

	report, err := Apply(context.Background(), dialect.Script{"CREATE TABLE rol (id INT)", "S2"}, exec, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Applied)
	assert.Equal(t, 1, report.Skipped)
	assert.Empty(t, report.Warnings)
	assert.Equal(t, StatusSkipped, report.Statements[0].Status)
	assert.NoError(t, report.Err())
}

func TestApply_ConnectivityAborts(t *testing.T) {
	exec := &scriptedExec{errs: map[int]error{
		1: core.Errorf(core.KindConnectionLost, "exec", "disk I/O error"),
	}}

	report, err := Apply(context.Background(), dialect.Script{"S1", "S2", "S3"}, exec, nil)
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindConnectionLost))
	assert.Len(t, exec.calls, 2, "no statement runs after connectivity is lost")
	assert.Equal(t, 1, report.Applied)
}

func TestApply_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &scriptedExec{}
	_, err := Apply(ctx, dialect.Script{"S1"}, exec, nil)
	require.Error(t, err)
	assert.Empty(t, exec.calls)
}

func TestApply_DefaultSchemaOnSQLite(t *testing.T) {
	adp := sqlite.New(nil)
	require.NoError(t, adp.Connect(context.Background(), adapter.Config{Path: filepath.Join(t.TempDir(), "fallback.db")}))
	defer func() { _ = adp.Close() }()

	script := dialect.SQLite.Script(Default())
	ctx := context.Background()

	first, err := Apply(ctx, script, adp, testutil.NewTestLogger(t))
	require.NoError(t, err)
	assert.Empty(t, first.Warnings, "translated default schema applies cleanly")
	assert.Equal(t, len(script), first.Applied)

	for _, table := range []string{"rol", "usuario", "producto", "pedido", "detalle_pedido", "horario"} {
		res, err := adp.Execute(ctx, dialect.SQLite.TableExistsSQL, table)
		require.NoError(t, err)
		assert.Len(t, res.Rows, 1, "table %s should exist", table)
	}

	res, err := adp.Execute(ctx, "SELECT descripcion FROM rol WHERE nombre = ?", "admin")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Administrador; acceso total", res.Rows[0]["descripcion"])
}

func TestApply_DuplicateCreateOnSQLite(t *testing.T) {
	adp := sqlite.New(nil)
	require.NoError(t, adp.Connect(context.Background(), adapter.Config{Path: filepath.Join(t.TempDir(), "fallback.db")}))
	defer func() { _ = adp.Close() }()

	script := dialect.Script{
		"CREATE TABLE a (id INTEGER PRIMARY KEY)",
		"CREATE TABLE a (id INTEGER PRIMARY KEY)",
		"CREATE TABLE b (id INTEGER PRIMARY KEY)",
	}
	report, err := Apply(context.Background(), script, adp, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Applied)
	assert.Equal(t, 1, report.Skipped)
}

func TestApplyFor_TranslatedFailuresAreTranslationErrors(t *testing.T) {
	exec := &scriptedExec{errs: map[int]error{
		0: core.Errorf(core.KindSyntax, "exec", "near \"UNSIGNED\": syntax error"),
	}}

	report, err := ApplyFor(context.Background(), dialect.SQLite, "CREATE TABLE a (id INT);CREATE TABLE b (id INT);", exec, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Applied)
	require.Len(t, report.Failed(), 1)
	failed := report.Failed()[0].Err
	assert.True(t, core.IsKind(failed, core.KindTranslation))
	assert.Contains(t, failed.Error(), "syntax error")
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "translation")

	exec = &scriptedExec{errs: map[int]error{
		0: core.Errorf(core.KindSyntax, "exec", "syntax error"),
	}}
	report, err = ApplyFor(context.Background(), dialect.MySQL, "CREATE TABLE a (id INT);", exec, nil)
	require.NoError(t, err)
	require.Len(t, report.Failed(), 1)
	assert.True(t, core.IsKind(report.Failed()[0].Err, core.KindSyntax), "untranslated scripts keep the engine's kind")
}

func TestApplyFor_ColumnListedTwiceIsAWarning(t *testing.T) {
	adp := sqlite.New(nil)
	require.NoError(t, adp.Connect(context.Background(), adapter.Config{Path: filepath.Join(t.TempDir(), "fallback.db")}))
	defer func() { _ = adp.Close() }()

	report, err := ApplyFor(context.Background(), dialect.SQLite,
		"CREATE TABLE cita (id INT, dia DATE, dia DATE);", adp, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Applied)
	assert.Equal(t, 0, report.Skipped, "a broken definition is not an existing object")
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "duplicate column name")
	assert.Error(t, report.Err())
}

func TestLoad(t *testing.T) {
	text, err := Load("")
	require.NoError(t, err)
	assert.Contains(t, text, "CREATE TABLE IF NOT EXISTS usuario")
	assert.NotContains(t, text, "Estado", "usuario.Estado is added by a migration")

	path := filepath.Join(t.TempDir(), "custom.sql")
	require.NoError(t, os.WriteFile(path, []byte("CREATE TABLE x (id INT);"), 0o600))
	text, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE x (id INT);", text)

	_, err = Load(filepath.Join(t.TempDir(), "missing.sql"))
	assert.Error(t, err)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "applied", StatusApplied.String())
	assert.Equal(t, "skipped", StatusSkipped.String())
	assert.Equal(t, "failed", StatusFailed.String())
	assert.Equal(t, "Status(9)", Status(9).String())
}
