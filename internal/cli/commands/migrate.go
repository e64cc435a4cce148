package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/sqlgate/internal/cli/output"
	"github.com/leapstack-labs/sqlgate/internal/migrate"
	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply additive schema changes",
		Long: `Apply schema changes that are safe to repeat.

Each change inspects the live schema first and does nothing when the column,
table or index already exists. "migrate up" runs the deployment plan and
records completed routines in the sqlgate_db_version table.`,
	}

	cmd.AddCommand(newMigrateUpCommand())
	cmd.AddCommand(newMigrateStatusCommand())
	cmd.AddCommand(newEnsureColumnCommand())
	cmd.AddCommand(newEnsureTableCommand())
	cmd.AddCommand(newEnsureIndexCommand())

	return cmd
}

func newMigrateUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Run every deployment routine not yet applied",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			runner := migrate.NewRunner(cmdCtx.Gateway, cmdCtx.Logger)
			results, runErr := runner.RunPlan(cmd.Context(), migrate.DefaultPlan())

			r := cmdCtx.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				if err := r.JSON(routineOutputs(results)); err != nil {
					return err
				}
				return runErr
			}
			if len(results) == 0 && runErr == nil {
				r.Success("Nothing to apply, all routines are recorded.")
				return nil
			}
			for _, res := range results {
				label := fmt.Sprintf("%d %s (%s)", res.Version, res.Name, res.Duration.Round(time.Millisecond))
				r.StatusLine(res.Err == nil, label)
				if res.Err != nil {
					r.Println(r.Muted("    " + res.Err.Error()))
				}
			}
			return runErr
		},
	}
}

// RoutineOutput is the JSON output for one routine.
type RoutineOutput struct {
	Version    int64  `json:"version"`
	Name       string `json:"name"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

func routineOutputs(results []migrate.RoutineResult) []RoutineOutput {
	out := make([]RoutineOutput, 0, len(results))
	for _, res := range results {
		o := RoutineOutput{Version: res.Version, Name: res.Name, DurationMS: res.Duration.Milliseconds()}
		if res.Err != nil {
			o.Error = res.Err.Error()
		}
		out = append(out, o)
	}
	return out
}

func newMigrateStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which deployment routines have run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			runner := migrate.NewRunner(cmdCtx.Gateway, cmdCtx.Logger)
			statuses, err := runner.PlanStatus(cmd.Context(), migrate.DefaultPlan())
			if err != nil {
				return err
			}
			return renderPlanStatus(cmdCtx.Renderer, statuses)
		},
	}
}

func renderPlanStatus(r *output.Renderer, statuses []migrate.RoutineStatus) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(statuses)
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.AppendHeader(table.Row{"Version", "Routine", "State", "Applied At"})
	for _, s := range statuses {
		state, at := "pending", ""
		if s.Applied {
			state = "applied"
			at = s.AppliedAt.Format(time.DateTime)
		}
		t.AppendRow(table.Row{s.Version, s.Name, state, at})
	}

	if r.EffectiveMode() == output.ModeMarkdown {
		t.RenderMarkdown()
		return nil
	}
	t.SetStyle(table.StyleLight)
	t.Render()
	return nil
}

func newEnsureColumnCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "ensure-column <table> <column> <definition>",
		Short:   "Add a column unless it already exists",
		Example: `  sqlgate migrate ensure-column usuario Estado "ENUM('Activo','Inactivo') NOT NULL DEFAULT 'Activo'"`,
		Args:    cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnsure(cmd, func(r *migrate.Runner) (migrate.Status, error) {
				return r.EnsureColumn(cmd.Context(), args[0], args[1], strings.Join(args[2:], " "))
			}, fmt.Sprintf("column %s.%s", args[0], args[1]))
		},
	}
}

func newEnsureTableCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "ensure-table <name> [definition]",
		Short: "Create a table unless it already exists",
		Long: `Create a table unless it already exists.

The definition is either a complete CREATE TABLE statement or the column list
that goes between the parentheses. It may also be read from a file.`,
		Example: `  sqlgate migrate ensure-table auditoria "id INT PRIMARY KEY AUTO_INCREMENT, accion VARCHAR(50)"
  sqlgate migrate ensure-table auditoria --file auditoria.sql`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var definition string
			switch {
			case file != "":
				content, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read file: %w", err)
				}
				definition = string(content)
			case len(args) == 2:
				definition = args[1]
			default:
				return fmt.Errorf("a definition or --file is required")
			}
			return runEnsure(cmd, func(r *migrate.Runner) (migrate.Status, error) {
				return r.EnsureTable(cmd.Context(), args[0], definition)
			}, "table "+args[0])
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Read the definition from a file")

	return cmd
}

func newEnsureIndexCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "ensure-index <table> <name> <column>...",
		Short:   "Create an index unless it already exists",
		Example: `  sqlgate migrate ensure-index pedido idx_pedido_usuario usuario_id`,
		Args:    cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnsure(cmd, func(r *migrate.Runner) (migrate.Status, error) {
				return r.EnsureIndex(cmd.Context(), args[0], args[1], args[2:]...)
			}, fmt.Sprintf("index %s on %s", args[1], args[0]))
		},
	}
}

// EnsureOutput is the JSON output for an ensure command.
type EnsureOutput struct {
	Object string `json:"object"`
	Status string `json:"status"`
	Mode   string `json:"mode"`
}

func runEnsure(cmd *cobra.Command, ensure func(*migrate.Runner) (migrate.Status, error), object string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	status, err := ensure(migrate.NewRunner(cmdCtx.Gateway, cmdCtx.Logger))
	if err != nil {
		return fmt.Errorf("%s: %w", object, err)
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(EnsureOutput{Object: object, Status: status.String(), Mode: cmdCtx.Gateway.Mode().String()})
	}
	r.StatusLine(true, fmt.Sprintf("%s: %s", object, status))
	return nil
}
