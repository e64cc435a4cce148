// Package cli provides the command-line interface for sqlgate.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/leapstack-labs/sqlgate/internal/cli/commands"
	"github.com/leapstack-labs/sqlgate/internal/cli/config"
	intconfig "github.com/leapstack-labs/sqlgate/internal/config"
	"github.com/spf13/cobra"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string
	var logCloser io.Closer

	rootCmd := &cobra.Command{
		Use:   "sqlgate",
		Short: "sqlgate - persistence gateway with automatic fallback",
		Long: `sqlgate gives an application one entry point for relational data.

It connects to a pooled MySQL server when one is reachable and otherwise opens
an embedded SQLite file, translating and applying the same schema, so callers
issue identical statements either way.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, used, err := intconfig.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			logger, closer := config.NewLogger(cmd.ErrOrStderr(), cfg.Log)
			logCloser = closer
			if used != "" {
				logger.Debug("using config file", slog.String("path", used))
			}

			ctx := config.WithConfig(cmd.Context(), cfg, used)
			ctx = config.WithLogger(ctx, logger)
			cmd.SetContext(ctx)
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if logCloser != nil {
				_ = logCloser.Close()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./sqlgate.yaml)")
	flags.String("driver", "", "Primary engine driver (mysql|postgres)")
	flags.String("host", "", "Primary engine host")
	flags.Int("port", 0, "Primary engine port")
	flags.String("user", "", "Primary engine user")
	flags.String("password", "", "Primary engine password")
	flags.String("database", "", "Primary engine database")
	flags.Int("pool-size", 0, "Maximum open primary connections")
	flags.Int("queue-limit", 0, "Callers allowed to wait for a connection (0 = unlimited)")
	flags.Duration("connect-timeout", 0, "Primary connection timeout")
	flags.Bool("no-primary", false, "Skip the primary engine and use the fallback")
	flags.String("fallback-path", "", "Fallback database file")
	flags.String("schema", "", "Schema script in the primary dialect")
	flags.String("log-level", "", "Log level (debug|info|warn|error)")
	flags.String("log-format", "", "Log format (text|json)")
	flags.String("log-file", "", "Also write JSON logs to this file, rotated by size")
	flags.StringP("output", "o", "", "Output format (auto|text|markdown|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "text", "markdown", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("driver", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"mysql", "postgres"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(commands.BuildInfo{Version: Version, Commit: GitCommit, BuildDate: BuildDate}))
	rootCmd.AddCommand(commands.NewStatusCommand())
	rootCmd.AddCommand(commands.NewNewCommand())
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(commands.NewTranslateCommand())
	rootCmd.AddCommand(commands.NewQueryCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for sqlgate.

To load completions:

Bash:
  $ source <(sqlgate completion bash)

Zsh:
  $ sqlgate completion zsh > "${fpath[1]}/_sqlgate"

Fish:
  $ sqlgate completion fish | source

PowerShell:
  PS> sqlgate completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
