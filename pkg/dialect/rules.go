package dialect

import "regexp"

// Rule is one pattern/replacement step of a textual dialect rewrite.
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
}

// Apply rewrites every match of the rule in text.
func (r Rule) Apply(text string) string {
	return r.Pattern.ReplaceAllString(text, r.Replacement)
}

// Matches reports whether the rule fires on text.
func (r Rule) Matches(text string) bool {
	return r.Pattern.MatchString(text)
}

func rule(name, pattern, replacement string) Rule {
	return Rule{Name: name, Pattern: regexp.MustCompile(pattern), Replacement: replacement}
}

// MySQLToSQLiteRules rewrites MySQL DDL into DDL SQLite accepts.
//
// Order matters: the composite primary key forms must run before the bare
// AUTO_INCREMENT rule, and DATETIME DEFAULT CURRENT_TIMESTAMP before the
// TIME/DATE rule. TIME and DATE are only rewritten in type position: at the
// start of a type clause, or after a column name that follows "(", "," or
// ADD COLUMN, with only whitespace or comments in between. Rules never see
// quoted text or comments, which reach them as numbered placeholders such as
// 'N' or /*N*/ (see mask). The last three rules strip MySQL-only column
// attributes and table options that SQLite rejects.
var MySQLToSQLiteRules = []Rule{
	rule("int-pk-autoincrement",
		`(?i)\bINT\s+PRIMARY\s+KEY\s+AUTO_INCREMENT\b`,
		"INTEGER PRIMARY KEY AUTOINCREMENT"),
	rule("int-autoincrement-pk",
		`(?i)\bINT(?:\s*\(\s*\d+\s*\))?(?:\s+UNSIGNED)?(?:\s+NOT\s+NULL)?\s+AUTO_INCREMENT\s+PRIMARY\s+KEY\b`,
		"INTEGER PRIMARY KEY AUTOINCREMENT"),
	rule("autoincrement",
		`(?i)\bAUTO_INCREMENT\b`,
		"AUTOINCREMENT"),
	rule("enum",
		`(?i)\bENUM\s*\([^)]*\)`,
		"TEXT"),
	rule("datetime-default-now",
		`(?i)\bDATETIME\s+DEFAULT\s+CURRENT_TIMESTAMP\b`,
		"TEXT DEFAULT CURRENT_TIMESTAMP"),
	rule("time-date",
		"(?i)(^\\s*|(?:[(,]|\\bADD\\s+COLUMN)(?:\\s|/\\*\\d+\\*/)*`?\\w+`?\\s+)(?:TIME|DATE)\\b",
		"${1}TEXT"),
	rule("decimal",
		`(?i)\bDECIMAL\s*\(\s*\d+\s*(?:,\s*\d+\s*)?\)`,
		"REAL"),
	rule("varchar",
		`(?i)\bVARCHAR\s*\(\s*\d+\s*\)`,
		"TEXT"),
	rule("named-foreign-key",
		"(?i)\\bCONSTRAINT\\s+`?\\w+`?\\s+FOREIGN\\s+KEY\\b",
		"FOREIGN KEY"),
	rule("named-check",
		"(?i)\\bCONSTRAINT\\s+`?\\w+`?\\s+CHECK\\b",
		"CHECK"),
	rule("on-update-now",
		`(?i)\s+ON\s+UPDATE\s+CURRENT_TIMESTAMP(?:\s*\(\s*\))?`,
		""),
	rule("unsigned",
		`(?i)\s+UNSIGNED\b`,
		""),
	rule("table-options",
		`(?i)\)\s*(?:(?:ENGINE|(?:DEFAULT\s+)?(?:CHARSET|CHARACTER\s+SET)|(?:DEFAULT\s+)?COLLATE|AUTOINCREMENT)\s*=?\s*\w+\s*)+`,
		")"),
}
