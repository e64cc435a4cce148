package dialect

import "strings"

// Script is an ordered list of statements. Order is significant: tables must
// be created after the tables their foreign keys reference.
type Script []string

// Translator turns a schema script into statements for a target engine.
type Translator interface {
	Translate(text string) Script
}

// Rewriter is implemented by translators that can rewrite a fragment without
// splitting it into statements.
type Rewriter interface {
	Rewrite(text string) string
}

type identity struct{}

func (identity) Translate(text string) Script { return Split(text) }
func (identity) Rewrite(text string) string   { return text }

// Identity splits a script without rewriting it.
var Identity Translator = identity{}

// RuleTranslator applies an ordered rule table to the whole script text, then
// splits the result into statements. Rules run before splitting because
// several of them match spans that only become well-formed statements after
// rewriting. Quoted strings, quoted identifiers and comments are never
// rewritten.
type RuleTranslator struct {
	rules []Rule
}

// NewRuleTranslator creates a translator over a copy of rules.
func NewRuleTranslator(rules []Rule) *RuleTranslator {
	return &RuleTranslator{rules: append([]Rule(nil), rules...)}
}

// MySQLToSQLite returns the translator for MySQL schema scripts run on SQLite.
func MySQLToSQLite() *RuleTranslator {
	return NewRuleTranslator(MySQLToSQLiteRules)
}

// Rules returns the rule table in application order.
func (t *RuleTranslator) Rules() []Rule {
	return append([]Rule(nil), t.rules...)
}

// Rewrite applies every rule in order.
func (t *RuleTranslator) Rewrite(text string) string {
	out, _ := t.Trace(text)
	return out
}

// Trace is Rewrite that also reports the names of the rules that fired.
func (t *RuleTranslator) Trace(text string) (string, []string) {
	m := mask(text)
	code := m.text
	var fired []string
	for _, r := range t.rules {
		if !r.Matches(code) {
			continue
		}
		code = r.Apply(code)
		fired = append(fired, r.Name)
	}
	return m.restore(code), fired
}

// Translate rewrites text and splits it into statements.
func (t *RuleTranslator) Translate(text string) Script {
	return Split(t.Rewrite(text))
}

// String renders the script back as text, one statement per line.
func (s Script) String() string {
	var b strings.Builder
	for _, stmt := range s {
		b.WriteString(stmt)
		b.WriteString(";\n")
	}
	return b.String()
}
