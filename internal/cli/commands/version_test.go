package commands

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	tests := []struct {
		name    string
		info    BuildInfo
		want    []string
		notWant []string
	}{
		{
			name:    "release",
			info:    BuildInfo{Version: "0.1.0", Commit: "unknown", BuildDate: "unknown"},
			want:    []string{"sqlgate v0.1.0", "SQLite fallback", "engines: mysql, postgres (primary), sqlite (fallback)"},
			notWant: []string{"commit"},
		},
		{
			name: "with commit",
			info: BuildInfo{Version: "1.2.3", Commit: "abc1234", BuildDate: "2026-01-02"},
			want: []string{"sqlgate v1.2.3", "commit abc1234, built 2026-01-02"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := runCommand(t, t.TempDir(), NewVersionCommand(tt.info), "", "-o", "text")
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			for _, w := range tt.notWant {
				assert.NotContains(t, out, w)
			}
		})
	}
}

func TestVersionCommand_JSON(t *testing.T) {
	out, _, err := runCommand(t, t.TempDir(), NewVersionCommand(BuildInfo{Version: "dev"}), "", "-o", "json")
	require.NoError(t, err)

	var got VersionOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "dev", got.Version)
	assert.NotEmpty(t, got.GoVersion)
	assert.Equal(t, []string{"mysql", "postgres"}, got.PrimaryEngines)
	assert.Equal(t, []string{"sqlite"}, got.FallbackEngines)
	assert.Subset(t, got.Dialects, []string{"mysql", "postgres", "sqlite"})
}
