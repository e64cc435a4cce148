package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/leapstack-labs/sqlgate/internal/cli/output"
	"github.com/leapstack-labs/sqlgate/internal/migrate"
	"github.com/leapstack-labs/sqlgate/pkg/core"
	"github.com/leapstack-labs/sqlgate/pkg/dialect"
	"github.com/spf13/cobra"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Format string
	Input  string
}

// executor runs one statement; both the gateway and a pinned connection satisfy it.
type executor interface {
	Execute(ctx context.Context, query string, args ...any) (*core.Result, error)
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Run statements through the gateway",
		Long: `Run SQL statements against whichever engine the gateway selects.

Statements are written in the primary dialect with "?" placeholders and may be
separated by semicolons. Reads print rows; writes print the affected row count
and generated identifier.

When invoked without arguments on a terminal, enters interactive REPL mode.`,
		Example: `  # Execute SQL directly
  sqlgate query "SELECT * FROM rol"

  # List tables
  sqlgate query tables

  # Show the columns of a table
  sqlgate query schema usuario

  # Output as YAML
  sqlgate query "SELECT id, nombre FROM rol" --format yaml

  # Interactive mode
  sqlgate query`,
		// SQL arguments must not be mistaken for unknown subcommands.
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Format, "format", "f", "table", "Output format: table, json, csv, md, yaml")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return queryFormats, cobra.ShellCompDirectiveNoFileComp
	})

	cmd.AddCommand(newQueryTablesCommand(opts))
	cmd.AddCommand(newQuerySchemaCommand(opts))

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	var sqlQuery string
	interactive := false

	switch {
	case len(args) > 0:
		sqlQuery = strings.Join(args, " ")
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		sqlQuery = string(content)
	case cmd.InOrStdin() != os.Stdin || !output.IsTerminal(os.Stdin):
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlQuery = string(content)
	default:
		interactive = true
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if interactive {
		return runQueryREPL(cmd, cmdCtx, opts)
	}
	return executeAndRender(cmd.Context(), cmd.OutOrStdout(), cmdCtx.Gateway, sqlQuery, opts.Format)
}

// executeAndRender runs each statement of text in order and renders its
// result. It stops at the first failing statement.
func executeAndRender(ctx context.Context, w io.Writer, exec executor, text, format string) error {
	stmts := dialect.Split(text)
	if len(stmts) == 0 {
		return fmt.Errorf("no statements to execute")
	}
	for i, stmt := range stmts {
		res, err := exec.Execute(ctx, stmt)
		if err != nil {
			if len(stmts) > 1 {
				return fmt.Errorf("statement %d: %w", i+1, err)
			}
			return err
		}
		if err := renderResult(w, res, format); err != nil {
			return err
		}
	}
	return nil
}

// newQueryTablesCommand creates the tables subcommand.
func newQueryTablesCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables of the active engine",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			r := migrate.NewRunner(cmdCtx.Gateway, cmdCtx.Logger)
			return listTablesWith(cmd.Context(), cmd.OutOrStdout(), r, opts.Format)
		},
	}
}

// newQuerySchemaCommand creates the schema subcommand.
func newQuerySchemaCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <table>",
		Short: "Show the columns of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			r := migrate.NewRunner(cmdCtx.Gateway, cmdCtx.Logger)
			return showColumnsWith(cmd.Context(), cmd.OutOrStdout(), r, args[0], opts.Format)
		},
	}
}
