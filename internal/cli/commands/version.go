package commands

import (
	"runtime"
	"strings"

	"github.com/leapstack-labs/sqlgate/internal/cli/output"
	"github.com/leapstack-labs/sqlgate/pkg/adapter"
	"github.com/leapstack-labs/sqlgate/pkg/dialect"
	"github.com/spf13/cobra"
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// VersionOutput is the JSON output for the version command.
type VersionOutput struct {
	BuildInfo
	GoVersion       string   `json:"go_version"`
	PrimaryEngines  []string `json:"primary_engines"`
	FallbackEngines []string `json:"fallback_engines"`
	Dialects        []string `json:"dialects"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the sqlgate version, build details and the engines compiled in.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, _ := cmd.Flags().GetString("output")
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(mode))

			out := VersionOutput{
				BuildInfo:       info,
				GoVersion:       runtime.Version(),
				PrimaryEngines:  adapter.ListByRole(adapter.RolePrimary),
				FallbackEngines: adapter.ListByRole(adapter.RoleFallback),
				Dialects:        dialect.List(),
			}
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(out)
			}

			r.Printf("sqlgate v%s\n", info.Version)
			r.Println("Persistence gateway with MySQL primary and SQLite fallback")
			if info.Commit != "" && info.Commit != "unknown" {
				r.Printf("commit %s, built %s\n", info.Commit, info.BuildDate)
			}
			r.Printf("engines: %s (primary), %s (fallback)\n", strings.Join(out.PrimaryEngines, ", "), strings.Join(out.FallbackEngines, ", "))
			return nil
		},
	}
}
