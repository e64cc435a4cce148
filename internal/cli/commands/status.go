package commands

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/sqlgate/internal/cli/output"
	"github.com/leapstack-labs/sqlgate/internal/gateway"
	"github.com/leapstack-labs/sqlgate/pkg/core"
	"github.com/spf13/cobra"
)

// NewStatusCommand creates the status command.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which engine the gateway selects",
		Long: `Open the gateway the way the application does and report the result.

The primary engine is tried first. If it cannot be reached, the embedded
fallback engine is opened and the schema applied to it. The report shows the
selected engine, its guarantees and why the primary was not used.`,
		Example: `  # Check engine selection
  sqlgate status

  # Machine-readable
  sqlgate status -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			return renderStatus(cmdCtx.Renderer, buildStatus(cmdCtx))
		},
	}
}

// StatusOutput is the JSON output for the status command.
type StatusOutput struct {
	Mode              string `json:"mode"`
	Engine            string `json:"engine"`
	Target            string `json:"target"`
	AtomicRollback    bool   `json:"atomic_rollback"`
	SerializedAccess  bool   `json:"serialized_access"`
	PrimaryError      string `json:"primary_error,omitempty"`
	SchemaApplied     int    `json:"schema_applied"`
	SchemaSkipped     int    `json:"schema_skipped"`
	SchemaFailed      int    `json:"schema_failed"`
	SchemaInitialized bool   `json:"schema_initialized"`
}

func buildStatus(cmdCtx *CommandContext) *StatusOutput {
	gw := cmdCtx.Gateway
	caps := gw.Capabilities()
	out := &StatusOutput{
		Mode:             gw.Mode().String(),
		Engine:           gw.Dialect().Name,
		Target:           targetDescription(cmdCtx, gw),
		AtomicRollback:   caps.SupportsAtomicRollback,
		SerializedAccess: caps.SerializedAccess,
	}
	if err := gw.PrimaryError(); err != nil {
		out.PrimaryError = err.Error()
	}
	if rep := gw.InitReport(); rep != nil {
		out.SchemaInitialized = true
		out.SchemaApplied = rep.Applied
		out.SchemaSkipped = rep.Skipped
		out.SchemaFailed = len(rep.Failed())
	}
	return out
}

func targetDescription(cmdCtx *CommandContext, gw *gateway.Gateway) string {
	if gw.Mode() == core.ModeFallback {
		return cmdCtx.Cfg.Fallback.Path
	}
	p := cmdCtx.Cfg.Primary
	return fmt.Sprintf("%s@%s:%d/%s", p.User, p.Host, p.Port, p.Database)
}

func renderStatus(r *output.Renderer, out *StatusOutput) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		return renderStatusMarkdown(r, out)
	default:
		return renderStatusText(r, out)
	}
}

func renderStatusText(r *output.Renderer, out *StatusOutput) error {
	styles := r.Styles()
	titleCaser := cases.Title(language.English)

	r.Header(1, "Gateway Status")
	r.Println(styles.Muted.Render(strings.Repeat("-", 40)))

	modeStyle := styles.Success
	if out.Mode == core.ModeFallback.String() {
		modeStyle = styles.Warning
	}
	r.Printf("   Mode:    %s\n", modeStyle.Render(titleCaser.String(out.Mode)))
	r.Printf("   Engine:  %s\n", out.Engine)
	r.Printf("   Target:  %s\n", out.Target)
	r.Println("")

	r.Println(styles.Header2.Render("Guarantees"))
	r.StatusLine(out.AtomicRollback, "atomic rollback")
	if out.SerializedAccess {
		r.Println(styles.Warning.Render("!") + " statements run one at a time")
	} else {
		r.StatusLine(true, "concurrent statements")
	}

	if out.PrimaryError != "" {
		r.Println("")
		r.Println(styles.Header2.Render("Primary Engine"))
		r.Println(styles.Muted.Render("   " + out.PrimaryError))
	}

	if out.SchemaInitialized {
		r.Println("")
		r.Println(styles.Header2.Render("Schema"))
		r.Printf("   Applied: %d | Skipped: %d | Failed: %d\n", out.SchemaApplied, out.SchemaSkipped, out.SchemaFailed)
	}
	return nil
}

func renderStatusMarkdown(r *output.Renderer, out *StatusOutput) error {
	r.Header(1, "Gateway Status")
	r.Println(output.FormatKeyValue("Mode", out.Mode))
	r.Println(output.FormatKeyValue("Engine", out.Engine))
	r.Println(output.FormatKeyValue("Target", out.Target))
	r.Println(output.FormatKeyValue("Atomic rollback", out.AtomicRollback))
	r.Println(output.FormatKeyValue("Serialized access", out.SerializedAccess))
	if out.PrimaryError != "" {
		r.Println(output.FormatKeyValue("Primary error", out.PrimaryError))
	}
	if out.SchemaInitialized {
		r.Println("")
		r.Header(2, "Schema")
		r.Println(output.FormatKeyValue("Applied", out.SchemaApplied))
		r.Println(output.FormatKeyValue("Skipped", out.SchemaSkipped))
		r.Println(output.FormatKeyValue("Failed", out.SchemaFailed))
	}
	return nil
}
