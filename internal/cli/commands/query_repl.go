package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/sqlgate/internal/gateway"
	"github.com/leapstack-labs/sqlgate/internal/migrate"
	"github.com/spf13/cobra"
)

const (
	replPrompt     = "sqlgate> "
	replContPrompt = "    ...> "
	replTxPrompt   = "sqlgate*> "
)

// replSession is the state one REPL shares across lines.
type replSession struct {
	cmd    *cobra.Command
	gw     *gateway.Gateway
	conn   *gateway.Conn
	runner *migrate.Runner
	format string
}

func runQueryREPL(cmd *cobra.Command, cmdCtx *CommandContext, opts *QueryOptions) error {
	ctx := cmd.Context()
	gw := cmdCtx.Gateway

	// A pinned connection keeps transactions on one engine connection.
	conn, err := gw.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to open connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	s := &replSession{
		cmd:    cmd,
		gw:     gw,
		conn:   conn,
		runner: migrate.NewRunner(gw, cmdCtx.Logger),
		format: opts.Format,
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     filepath.Join(cmdCtx.Cfg.BaseDir, ".sqlgate_history"),
		AutoComplete:    s.completer(ctx),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "sqlgate REPL (%s engine: %s)\n", gw.Mode(), gw.Dialect().Name)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	var multiLineBuffer strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			multiLineBuffer.Reset()
			rl.SetPrompt(s.prompt())
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if multiLineBuffer.Len() == 0 && strings.HasPrefix(line, ".") {
			if quit := s.handleDotCommand(ctx, line); quit {
				break
			}
			rl.SetPrompt(s.prompt())
			continue
		}

		// Accumulate multi-line SQL until semicolon
		multiLineBuffer.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			multiLineBuffer.WriteString(" ")
			rl.SetPrompt(replContPrompt)
			continue
		}

		query := multiLineBuffer.String()
		multiLineBuffer.Reset()

		if err := executeAndRender(ctx, cmd.OutOrStdout(), conn, query, s.format); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout())
		rl.SetPrompt(s.prompt())
	}

	if conn.InTransaction() {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Open transaction rolled back")
	}
	return nil
}

func (s *replSession) prompt() string {
	if s.conn.InTransaction() {
		return replTxPrompt
	}
	return replPrompt
}

// handleDotCommand runs a REPL command and reports whether the REPL should exit.
func (s *replSession) handleDotCommand(ctx context.Context, line string) bool {
	out, errOut := s.cmd.OutOrStdout(), s.cmd.ErrOrStderr()
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	report := func(err error) {
		if err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		}
	}

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(out)

	case ".tables":
		report(listTablesWith(ctx, out, s.runner, s.format))

	case ".schema":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(errOut, "Usage: .schema <table>")
			return false
		}
		report(showColumnsWith(ctx, out, s.runner, parts[1], s.format))

	case ".begin":
		report(s.conn.BeginTransaction(ctx))

	case ".commit":
		report(s.conn.Commit())

	case ".rollback":
		if !s.gw.Capabilities().SupportsAtomicRollback {
			_, _ = fmt.Fprintln(errOut, "Warning: this engine does not undo statements on rollback")
		}
		report(s.conn.Rollback())

	case ".engine":
		caps := s.gw.Capabilities()
		_, _ = fmt.Fprintf(out, "mode=%s engine=%s atomic_rollback=%t serialized=%t\n",
			s.gw.Mode(), s.gw.Dialect().Name, caps.SupportsAtomicRollback, caps.SerializedAccess)

	case ".format":
		if len(parts) < 2 || !slices.Contains(queryFormats, parts[1]) {
			_, _ = fmt.Fprintf(errOut, "Usage: .format <%s>\n", strings.Join(queryFormats, "|"))
			return false
		}
		s.format = parts[1]

	case ".clear":
		_, _ = fmt.Fprint(out, "\033[H\033[2J")

	default:
		_, _ = fmt.Fprintf(errOut, "Unknown command: %s (type .help for commands)\n", command)
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help            Show this help message
  .tables          List all tables
  .schema <name>   Show the columns of a table
  .begin           Start a transaction on this connection
  .commit          Commit the open transaction
  .rollback        Roll back the open transaction
  .engine          Show the active engine and its guarantees
  .format <fmt>    Switch output format (table, json, csv, md, yaml)
  .clear           Clear the screen
  .quit / .exit    Exit the REPL

Tips:
  - SQL statements must end with a semicolon (;)
  - Use arrow keys to navigate history
  - Tab completion works for table names
`
	_, _ = fmt.Fprintln(w, help)
}

// completer creates a readline completer for table names and dot-commands.
func (s *replSession) completer(ctx context.Context) *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface

	// Ignore errors, this is for autocomplete, not critical
	tables, _ := s.runner.Tables(ctx)
	tableItems := make([]readline.PrefixCompleterInterface, 0, len(tables))
	for _, name := range tables {
		items = append(items, readline.PcItem(name))
		tableItems = append(tableItems, readline.PcItem(name))
	}

	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".tables"),
		readline.PcItem(".schema", tableItems...),
		readline.PcItem(".begin"),
		readline.PcItem(".commit"),
		readline.PcItem(".rollback"),
		readline.PcItem(".engine"),
		readline.PcItem(".format"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)

	return readline.NewPrefixCompleter(items...)
}
