package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/sqlgate/internal/cli/output"
	"github.com/leapstack-labs/sqlgate/internal/schema"
	"github.com/leapstack-labs/sqlgate/pkg/dialect"
	"github.com/spf13/cobra"
)

// TranslateOptions holds options for the translate command.
type TranslateOptions struct {
	To     string
	Rules  bool
	Trace  bool
	Clause bool
	Watch  bool
}

// NewTranslateCommand creates the translate command.
func NewTranslateCommand() *cobra.Command {
	opts := &TranslateOptions{}

	cmd := &cobra.Command{
		Use:   "translate [file]",
		Short: "Translate MySQL DDL into another engine's dialect",
		Long: `Rewrite MySQL schema text the way the gateway does before applying it to
the fallback engine.

The input is read from the given file, from stdin when piped, or is the
embedded default schema when neither is present. Without --clause the result
is split into statements, one per line.`,
		Example: `  # Translate the default schema for SQLite
  sqlgate translate

  # Translate a single column clause
  echo "Estado ENUM('Activo','Inactivo') NOT NULL" | sqlgate translate --clause

  # Show the rule table
  sqlgate translate --rules

  # Re-translate whenever the schema file is saved
  sqlgate translate schema.sql --watch`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.To, "to", "sqlite", "Target dialect")
	cmd.Flags().BoolVar(&opts.Rules, "rules", false, "List the rewrite rules instead of translating")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "Report which rules fired")
	cmd.Flags().BoolVar(&opts.Clause, "clause", false, "Treat the input as one DDL fragment")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Translate the file again each time it changes")

	_ = cmd.RegisterFlagCompletionFunc("to", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return dialect.List(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runTranslate(cmd *cobra.Command, args []string, opts *TranslateOptions) error {
	d, ok := dialect.Get(opts.To)
	if !ok {
		return fmt.Errorf("unknown dialect %q\nHint: Use one of: %s", opts.To, strings.Join(dialect.List(), ", "))
	}
	mode, _ := cmd.Flags().GetString("output")
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(mode))

	if opts.Rules {
		return renderRules(r, d)
	}

	if opts.Watch {
		if len(args) == 0 {
			return fmt.Errorf("--watch needs a file argument")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		translate := func() {
			if err := translateOnce(cmd, r, d, args, opts); err != nil {
				r.Error(err.Error())
			}
		}
		translate()
		_, _ = fmt.Fprintln(r.ErrWriter(), r.Muted("Watching "+args[0]+" (Ctrl+C to stop)"))
		return watchFile(ctx, args[0], func() {
			_, _ = fmt.Fprintln(r.ErrWriter(), r.Muted("-- "+time.Now().Format(time.TimeOnly)))
			translate()
		})
	}

	return translateOnce(cmd, r, d, args, opts)
}

func translateOnce(cmd *cobra.Command, r *output.Renderer, d *dialect.Dialect, args []string, opts *TranslateOptions) error {
	text, err := readTranslateInput(cmd, args)
	if err != nil {
		return err
	}

	if opts.Trace {
		if rt, ok := d.DDL.(*dialect.RuleTranslator); ok {
			_, fired := rt.Trace(text)
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "rules fired: %s\n", strings.Join(fired, ", "))
		}
	}

	if opts.Clause {
		r.Println(d.TranslateDDL(strings.TrimSpace(text)))
		return nil
	}
	_, _ = io.WriteString(r.Writer(), d.Script(text).String())
	return nil
}

// watchFile calls onChange after each write to path until ctx is done.
// The parent directory is watched so editors that replace the file on save
// are still seen.
func watchFile(ctx context.Context, path string, onChange func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	// Debounce bursts of events from a single save
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != abs || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(100*time.Millisecond, onChange)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch error: %w", err)
		}
	}
}

func readTranslateInput(cmd *cobra.Command, args []string) (string, error) {
	switch {
	case len(args) > 0:
		content, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		return string(content), nil
	case cmd.InOrStdin() != os.Stdin || !output.IsTerminal(os.Stdin):
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		if len(strings.TrimSpace(string(content))) > 0 {
			return string(content), nil
		}
	}
	return schema.Default(), nil
}

// RuleOutput is the JSON output for one rewrite rule.
type RuleOutput struct {
	Order       int    `json:"order"`
	Name        string `json:"name"`
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
}

func renderRules(r *output.Renderer, d *dialect.Dialect) error {
	rt, ok := d.DDL.(*dialect.RuleTranslator)
	if !ok {
		r.Printf("dialect %s applies no rewrite rules\n", d.Name)
		return nil
	}

	rules := make([]RuleOutput, 0, len(rt.Rules()))
	for i, rule := range rt.Rules() {
		rules = append(rules, RuleOutput{
			Order:       i + 1,
			Name:        rule.Name,
			Pattern:     rule.Pattern.String(),
			Replacement: rule.Replacement,
		})
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.AppendHeader(table.Row{"#", "Rule", "Pattern", "Replacement"})
	for _, rule := range rules {
		t.AppendRow(table.Row{rule.Order, rule.Name, rule.Pattern, rule.Replacement})
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(rules)
	case output.ModeMarkdown:
		t.RenderMarkdown()
	default:
		t.SetStyle(table.StyleLight)
		t.Render()
	}
	return nil
}
