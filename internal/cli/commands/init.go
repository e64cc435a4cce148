package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/sqlgate/internal/cli/config"
	"github.com/leapstack-labs/sqlgate/internal/cli/output"
	intconfig "github.com/leapstack-labs/sqlgate/internal/config"
	"github.com/leapstack-labs/sqlgate/internal/schema"
	"github.com/leapstack-labs/sqlgate/pkg/core"
	"github.com/spf13/cobra"
)

// NewNewCommand creates the new command.
func NewNewCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "new [directory]",
		Short: "Create a starter configuration and schema",
		Long: `Write a starter sqlgate.yaml and the default schema script.

Connection settings given as flags or environment variables (--driver, --host,
--database, DB_HOST, ...) are written into the generated configuration.

This creates:
  - sqlgate.yaml with primary and fallback settings
  - schema.sql with the application schema in the primary dialect
  - .gitignore excluding the fallback data directory`,
		Example: `  # In the current directory
  sqlgate new

  # In a new directory, overwriting existing files
  sqlgate new deploy --force

  # For a PostgreSQL primary
  sqlgate new --driver postgres --host db.internal --database shop`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			cfg, err := getConfig(cmd)
			if err != nil {
				return err
			}
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ModeAuto)
			return runNew(r, dir, force, newProjectData(cfg))
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")

	return cmd
}

// projectData fills the project template. FallbackPath stays relative so the
// generated file is portable.
type projectData struct {
	*config.Config
	FallbackPath string
}

func newProjectData(cfg *config.Config) projectData {
	return projectData{Config: cfg, FallbackPath: intconfig.DefaultFallbackPath}
}

func runNew(r *output.Renderer, dir string, force bool, data projectData) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, "sqlgate.yaml")
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("sqlgate.yaml already exists. Use --force to overwrite")
	}

	files, err := copyTemplate("project", dir, force, data)
	if err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	schemaPath := filepath.Join(dir, "schema.sql")
	if _, err := os.Stat(schemaPath); err != nil || force {
		if err := os.WriteFile(schemaPath, []byte(schema.Default()), 0600); err != nil {
			return fmt.Errorf("failed to write schema: %w", err)
		}
		files = append(files, "schema.sql")
	}

	for _, f := range files {
		r.StatusLine(true, f)
	}

	r.Println("")
	r.Success("sqlgate configuration created!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Set the primary credentials in sqlgate.yaml")
	r.Println("  2. Run 'sqlgate status' to see which engine is selected")
	r.Println("  3. Run 'sqlgate migrate up' to apply the deployment plan")

	return nil
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Apply the schema script to the active engine",
		Long: `Apply the schema script statement by statement to the engine the
gateway selects.

On the fallback engine the script is translated to its dialect first. Objects
that already exist are skipped. Other failing statements are reported and the
remaining statements still run, unless the engine becomes unreachable.`,
		Example: `  # Initialize and show the report
  sqlgate init

  # Fail when any statement fails
  sqlgate init --strict`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			return runInit(cmd, cmdCtx, strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Exit with an error if any statement fails")

	return cmd
}

func runInit(cmd *cobra.Command, cmdCtx *CommandContext, strict bool) error {
	gw := cmdCtx.Gateway

	// The fallback engine was initialized when the gateway opened.
	report := gw.InitReport()
	if gw.Mode() == core.ModePrimary {
		text, err := schema.Load(cmdCtx.Cfg.SchemaPath)
		if err != nil {
			return err
		}
		report, err = schema.ApplyFor(cmd.Context(), gw.Dialect(), text, gw, cmdCtx.Logger)
		if err != nil {
			return err
		}
	}

	cmdCtx.Logger.Debug("schema initialized",
		slog.String("mode", gw.Mode().String()),
		slog.Int("applied", report.Applied),
		slog.Int("skipped", report.Skipped))

	if err := renderInitReport(cmdCtx.Renderer, gw.Mode(), report); err != nil {
		return err
	}
	if strict {
		if err := report.Err(); err != nil {
			return fmt.Errorf("schema initialization incomplete: %w", err)
		}
	}
	return nil
}

// InitOutput is the JSON output for the init command.
type InitOutput struct {
	Mode       string            `json:"mode"`
	Applied    int               `json:"applied"`
	Skipped    int               `json:"skipped"`
	Statements []StatementOutput `json:"statements"`
}

// StatementOutput describes one schema statement.
type StatementOutput struct {
	Index  int    `json:"index"`
	Status string `json:"status"`
	SQL    string `json:"sql"`
	Error  string `json:"error,omitempty"`
}

func renderInitReport(r *output.Renderer, mode core.EngineMode, report *schema.Report) error {
	out := InitOutput{Mode: mode.String(), Applied: report.Applied, Skipped: report.Skipped}
	for _, o := range report.Statements {
		s := StatementOutput{Index: o.Index + 1, Status: o.Status.String(), SQL: firstLine(o.SQL)}
		if o.Err != nil {
			s.Error = o.Err.Error()
		}
		out.Statements = append(out.Statements, s)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		r.Header(1, "Schema Initialization")
		r.Println(output.FormatKeyValue("Mode", out.Mode))
		r.Println(output.FormatKeyValue("Applied", out.Applied))
		r.Println(output.FormatKeyValue("Skipped", out.Skipped))
		r.Println(output.FormatKeyValue("Failed", len(report.Failed())))
		r.Println("")
		for _, s := range out.Statements {
			r.Printf("%d. **%s** `%s`\n", s.Index, s.Status, s.SQL)
			if s.Error != "" {
				r.Printf("   - %s\n", s.Error)
			}
		}
		return nil
	}

	styles := r.Styles()
	r.Header(1, "Schema Initialization")
	for _, s := range out.Statements {
		icon := styles.StatusSuccess.String()
		switch s.Status {
		case schema.StatusSkipped.String():
			icon = styles.StatusSkipped.String()
		case schema.StatusFailed.String():
			icon = styles.StatusFailed.String()
		}
		r.Printf("%s %3d  %s\n", icon, s.Index, s.SQL)
		if s.Error != "" {
			r.Println(styles.Muted.Render("         " + s.Error))
		}
	}
	r.Println("")
	r.Printf("Applied: %d | Skipped: %d | Failed: %d\n", out.Applied, out.Skipped, len(report.Failed()))
	return nil
}

// firstLine shortens a statement to its first line for display.
func firstLine(stmt string) string {
	for i, c := range stmt {
		if c == '\n' {
			return stmt[:i] + " ..."
		}
	}
	return stmt
}
