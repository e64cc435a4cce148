package dialect

import (
	"regexp"
	"strconv"
	"strings"
)

type lexState int

const (
	stCode lexState = iota
	stSingle
	stDouble
	stBacktick
	stLineComment
	stBlockComment
)

type lexOptions struct {
	hashComments     bool // MySQL "# ..." comments
	backslashEscapes bool // MySQL "\'" inside strings
}

var (
	mysqlLex    = lexOptions{hashComments: true, backslashEscapes: true}
	standardLex = lexOptions{}
)

// walk calls fn for every byte of s together with the lexical state the byte
// belongs to. Quote and comment delimiters belong to the state they open or close.
func walk(s string, opts lexOptions, fn func(i int, st lexState)) {
	st := stCode
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch st {
		case stCode:
			switch {
			case c == '\'':
				st = stSingle
			case c == '"':
				st = stDouble
			case c == '`':
				st = stBacktick
			case c == '#' && opts.hashComments:
				st = stLineComment
			case c == '-' && i+1 < len(s) && s[i+1] == '-':
				st = stLineComment
			case c == '/' && i+1 < len(s) && s[i+1] == '*':
				st = stBlockComment
				fn(i, st)
				i++
			}
			fn(i, st)

		case stSingle, stDouble, stBacktick:
			fn(i, st)
			if c == '\\' && opts.backslashEscapes && st != stBacktick && i+1 < len(s) {
				i++
				fn(i, st)
				continue
			}
			if c == closingQuote(st) {
				if i+1 < len(s) && s[i+1] == c {
					i++
					fn(i, st)
					continue
				}
				st = stCode
			}

		case stLineComment:
			fn(i, st)
			if c == '\n' {
				st = stCode
			}

		case stBlockComment:
			fn(i, st)
			if c == '*' && i+1 < len(s) && s[i+1] == '/' {
				i++
				fn(i, st)
				st = stCode
			}
		}
	}
}

func closingQuote(st lexState) byte {
	switch st {
	case stSingle:
		return '\''
	case stDouble:
		return '"'
	default:
		return '`'
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

// Split cuts a script into statements at every ";" outside quotes and
// comments. Fragments holding only whitespace or comments are dropped.
func Split(text string) Script {
	var out Script
	start := 0
	hasCode := false

	emit := func(end int) {
		if hasCode {
			out = append(out, strings.TrimSpace(text[start:end]))
		}
		start = end + 1
		hasCode = false
	}

	walk(text, mysqlLex, func(i int, st lexState) {
		switch st {
		case stCode:
			if text[i] == ';' {
				emit(i)
				return
			}
			if !isSpace(text[i]) {
				hasCode = true
			}
		case stSingle, stDouble, stBacktick:
			hasCode = true
		}
	})
	emit(len(text))
	return out
}

// Rebind rewrites "?" parameter markers into the given style. Markers inside
// quoted strings, quoted identifiers and comments are left alone. PostgreSQL
// operators spelled with "?" (jsonb) cannot be told apart from markers.
func Rebind(query string, style PlaceholderStyle) string {
	if style != PlaceholderDollar || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n, last := 0, 0
	walk(query, standardLex, func(i int, st lexState) {
		if st != stCode || query[i] != '?' {
			return
		}
		n++
		b.WriteString(query[last:i])
		b.WriteString("$")
		b.WriteString(strconv.Itoa(n))
		last = i + 1
	})
	b.WriteString(query[last:])
	return b.String()
}

// masked is script text with every quoted span and comment replaced by a
// numbered placeholder, so rewrite rules only ever see code. Placeholders keep
// the delimiter of the span they stand for: 'N', "N", `N` or /*N*/.
type masked struct {
	text  string
	spans []string
}

var placeholderRe = regexp.MustCompile("'\\d+'|\"\\d+\"|`\\d+`|/\\*\\d+\\*/")

func mask(s string) masked {
	var b strings.Builder
	b.Grow(len(s))
	var spans []string
	start, kind := -1, stCode

	flush := func(end int) {
		if start < 0 {
			return
		}
		n := strconv.Itoa(len(spans))
		spans = append(spans, s[start:end])
		switch kind {
		case stSingle:
			b.WriteString("'" + n + "'")
		case stDouble:
			b.WriteString(`"` + n + `"`)
		case stBacktick:
			b.WriteString("`" + n + "`")
		default:
			b.WriteString("/*" + n + "*/")
		}
		start = -1
	}

	walk(s, mysqlLex, func(i int, st lexState) {
		// The newline ending a line comment stays code.
		if st == stLineComment && s[i] == '\n' {
			st = stCode
		}
		if st == stCode {
			flush(i)
			b.WriteByte(s[i])
			return
		}
		if start >= 0 && st != kind {
			flush(i)
		}
		if start < 0 {
			start, kind = i, st
		}
	})
	flush(len(s))
	return masked{text: b.String(), spans: spans}
}

// restore puts the original spans back in place of their placeholders.
func (m masked) restore(text string) string {
	if len(m.spans) == 0 {
		return text
	}
	return placeholderRe.ReplaceAllStringFunc(text, func(p string) string {
		n, err := strconv.Atoi(strings.Trim(p, "'\"`/*"))
		if err != nil || n >= len(m.spans) {
			return p
		}
		return m.spans[n]
	})
}
