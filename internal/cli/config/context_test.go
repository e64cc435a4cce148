package config

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	intconfig "github.com/leapstack-labs/sqlgate/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLogger_FallsBackToDiscard(t *testing.T) {
	l := GetLogger(context.Background())
	require.NotNil(t, l)
	l.Info("dropped")
}

func TestWithConfig(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetConfig(ctx))
	assert.Empty(t, GetConfigFileUsed(ctx))

	cfg := &Config{SchemaPath: "schema.sql"}
	ctx = WithConfig(ctx, cfg, "/etc/sqlgate.yaml")

	assert.Same(t, cfg, GetConfig(ctx))
	assert.Equal(t, "/etc/sqlgate.yaml", GetConfigFileUsed(ctx))
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		cfg       intconfig.LogConfig
		wantDebug bool
		wantJSON  bool
	}{
		{"text info", intconfig.LogConfig{Level: "info", Format: "text"}, false, false},
		{"json debug", intconfig.LogConfig{Level: "debug", Format: "JSON"}, true, true},
		{"bad level defaults to info", intconfig.LogConfig{Level: "loud"}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l, closer := NewLogger(&buf, tt.cfg)
			defer func() { _ = closer.Close() }()
			ctx := WithLogger(context.Background(), l)

			GetLogger(ctx).Debug("debug line")
			GetLogger(ctx).Info("info line")

			out := buf.String()
			assert.Equal(t, tt.wantDebug, bytes.Contains(buf.Bytes(), []byte("debug line")))
			assert.Contains(t, out, "info line")
			if tt.wantJSON {
				lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
				var rec map[string]any
				require.NoError(t, json.Unmarshal(lines[len(lines)-1], &rec))
				assert.Equal(t, "info line", rec["msg"])
			}
		})
	}
}

func TestNewLogger_RotatingFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "sqlgate.log")
	var buf bytes.Buffer

	l, closer := NewLogger(&buf, intconfig.LogConfig{Level: "info", Format: "text", File: file, MaxSizeMB: 1})
	l.With("engine", "sqlite").Info("fallback selected")
	l.Debug("not written")
	require.NoError(t, closer.Close())

	assert.Contains(t, buf.String(), "msg=\"fallback selected\" engine=sqlite")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &rec))
	assert.Equal(t, "fallback selected", rec["msg"])
	assert.Equal(t, "sqlite", rec["engine"])
}
