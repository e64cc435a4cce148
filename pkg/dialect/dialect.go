// Package dialect describes the SQL dialects the gateway speaks and translates
// schema scripts between them.
//
// A Dialect is a static descriptor of one engine: how it marks positional
// parameters and which statements introspect its live schema. A Translator
// rewrites a schema script written for one dialect into statements another
// engine accepts. The rewriting is textual and rule driven, not a parser; the
// ordered rule table is exported so tests and tooling can enumerate it.
package dialect

import "strconv"

// PlaceholderStyle is how an engine marks positional query parameters.
type PlaceholderStyle int

const (
	// PlaceholderQuestion uses "?" for every parameter (MySQL, SQLite).
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar uses "$1", "$2", ... (PostgreSQL).
	PlaceholderDollar
)

// Dialect is the static configuration of one SQL dialect.
type Dialect struct {
	Name        string
	Placeholder PlaceholderStyle

	// Introspection statements, written with "?" placeholders. Each returns a
	// single column named "name".
	TablesSQL      string // no params
	ColumnsSQL     string // params: table
	TableExistsSQL string // params: table
	IndexExistsSQL string // params: table, index

	// DDL translates clauses written in the source schema dialect into this
	// dialect. Nil means no translation is needed.
	DDL Translator
}

// FormatPlaceholder returns a placeholder for the given parameter index (1-based).
// Returns "?" for PlaceholderQuestion style, "$1", "$2" etc. for PlaceholderDollar style.
func (d *Dialect) FormatPlaceholder(index int) string {
	switch d.Placeholder {
	case PlaceholderDollar:
		return "$" + strconv.Itoa(index)
	default:
		return "?"
	}
}

// Bind rewrites "?" markers in query into this dialect's placeholder style.
func (d *Dialect) Bind(query string) string {
	return Rebind(query, d.Placeholder)
}

// TranslateDDL rewrites a DDL fragment for this dialect. The result is a single
// string: clause fragments are never split into statements.
func (d *Dialect) TranslateDDL(clause string) string {
	if d.DDL == nil {
		return clause
	}
	if rw, ok := d.DDL.(Rewriter); ok {
		return rw.Rewrite(clause)
	}
	return clause
}

// Script translates a whole schema script into statements for this dialect.
func (d *Dialect) Script(text string) Script {
	if d.DDL == nil {
		return Identity.Translate(text)
	}
	return d.DDL.Translate(text)
}
