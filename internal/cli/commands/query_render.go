package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/sqlgate/internal/migrate"
	"github.com/leapstack-labs/sqlgate/pkg/core"
	"gopkg.in/yaml.v3"
)

// queryFormats are the values accepted by --format.
var queryFormats = []string{"table", "json", "csv", "md", "yaml"}

func renderResult(w io.Writer, res *core.Result, format string) error {
	if !res.IsRead() {
		return renderWrite(w, res, format)
	}

	switch format {
	case "json":
		return renderJSON(w, res.Rows)
	case "csv":
		return renderCSV(w, res.Columns, res.Rows)
	case "md", "markdown":
		return renderMarkdown(w, res.Columns, res.Rows)
	case "yaml", "yml":
		return renderYAML(w, res.Columns, res.Rows)
	default:
		return renderTable(w, res.Columns, res.Rows)
	}
}

// writeOutput is the machine-readable form of a write outcome.
type writeOutput struct {
	RowsAffected int64  `json:"rows_affected" yaml:"rows_affected"`
	InsertedID   *int64 `json:"inserted_id,omitempty" yaml:"inserted_id,omitempty"`
}

func renderWrite(w io.Writer, res *core.Result, format string) error {
	out := writeOutput{RowsAffected: res.RowsAffected, InsertedID: res.InsertedID}
	switch format {
	case "json":
		return renderJSON(w, out)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		defer func() { _ = enc.Close() }()
		return enc.Encode(out)
	}

	msg := fmt.Sprintf("OK, %d rows affected", res.RowsAffected)
	if res.InsertedID != nil {
		msg += fmt.Sprintf(" (inserted id %d)", *res.InsertedID)
	}
	_, _ = fmt.Fprintln(w, msg)
	return nil
}

func renderTable(w io.Writer, cols []string, rows []core.Row) error {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(cols))
	for i, col := range cols {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for _, result := range rows {
		row := make(table.Row, len(cols))
		for i, col := range cols {
			row[i] = formatValue(result[col])
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
	return nil
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderCSV(w io.Writer, cols []string, rows []core.Row) error {
	_, _ = fmt.Fprintln(w, strings.Join(cols, ","))

	for _, result := range rows {
		values := make([]string, len(cols))
		for i, col := range cols {
			values[i] = escapeCSV(formatValue(result[col]))
		}
		_, _ = fmt.Fprintln(w, strings.Join(values, ","))
	}
	return nil
}

func renderMarkdown(w io.Writer, cols []string, rows []core.Row) error {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(cols, " | "))
	seps := make([]string, len(cols))
	for i := range seps {
		seps[i] = "---"
	}
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(seps, " | "))

	for _, result := range rows {
		values := make([]string, len(cols))
		for i, col := range cols {
			values[i] = strings.ReplaceAll(formatValue(result[col]), "|", `\|`)
		}
		_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(values, " | "))
	}
	return nil
}

// renderYAML writes rows as a sequence of mappings, keeping column order.
func renderYAML(w io.Writer, cols []string, rows []core.Row) error {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, result := range rows {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for _, col := range cols {
			val := &yaml.Node{}
			if err := val.Encode(result[col]); err != nil {
				return fmt.Errorf("failed to encode column %s: %w", col, err)
			}
			m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: col}, val)
		}
		seq.Content = append(seq.Content, m)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(seq); err != nil {
		return err
	}
	return enc.Close()
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

// Helper functions for subcommands

func listTablesWith(ctx context.Context, w io.Writer, r *migrate.Runner, format string) error {
	tables, err := r.Tables(ctx)
	if err != nil {
		return err
	}
	rows := make([]core.Row, 0, len(tables))
	for _, name := range tables {
		rows = append(rows, core.Row{"name": name})
	}
	return renderResult(w, core.NewRowsResult([]string{"name"}, rows), format)
}

func showColumnsWith(ctx context.Context, w io.Writer, r *migrate.Runner, tableName, format string) error {
	ok, err := r.HasTable(ctx, tableName)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("table '%s' not found", tableName)
	}
	cols, err := r.Columns(ctx, tableName)
	if err != nil {
		return err
	}
	rows := make([]core.Row, 0, len(cols))
	for i, name := range cols {
		rows = append(rows, core.Row{"position": int64(i + 1), "column": name})
	}
	return renderResult(w, core.NewRowsResult([]string{"position", "column"}, rows), format)
}
