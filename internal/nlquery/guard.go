package nlquery

import (
	"strings"
)

// mutatingKeywords are rejected anywhere in a candidate statement,
// not only as the leading token, so chained or nested mutations cannot
// slip past a prefix check. Matching is on whole word tokens; the same
// words inside quoted string literals are fine.
var mutatingKeywords = map[string]bool{
	"insert": true, "update": true, "delete": true,
	"drop": true, "alter": true, "create": true,
	"truncate": true, "replace": true, "merge": true,
	"attach": true, "detach": true, "pragma": true,
	"vacuum": true, "reindex": true,
	"grant": true, "revoke": true,
	"exec": true, "execute": true,
}

// readKeywords are the only tokens a statement may start with.
var readKeywords = map[string]bool{
	"select": true,
	"with":   true,
}

// RejectionError explains why the guard vetoed a candidate statement.
// The reason is safe for logs but is never echoed to the end user.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string { return "query rejected: " + e.Reason }

// Vet validates that a candidate statement is a single side-effect-free
// read. It returns nil for acceptable statements, which pass through to
// the executor unchanged, and a *RejectionError otherwise. Vet never
// rewrites its input.
func Vet(stmt string) error {
	trimmed := strings.TrimSpace(stmt)
	if trimmed == "" {
		return &RejectionError{Reason: "empty statement"}
	}

	first, keywords, multi := scanStatement(trimmed)
	if !readKeywords[first] {
		return &RejectionError{Reason: "statement does not start with a read keyword"}
	}
	if multi {
		return &RejectionError{Reason: "multiple statements are not allowed"}
	}
	for _, kw := range keywords {
		if mutatingKeywords[kw] {
			return &RejectionError{Reason: "mutating keyword " + strings.ToUpper(kw) + " is not allowed"}
		}
	}
	return nil
}

// scanStatement walks the statement once, collecting lowercased word
// tokens found outside quoted literals, the first such token, and
// whether a statement separator appears outside quotes. Single-quoted
// literals may escape quotes by doubling them; double quotes delimit
// identifiers but are scanned the same way.
func scanStatement(s string) (first string, keywords []string, multi bool) {
	var inSingle, inDouble bool
	var word strings.Builder

	flush := func() {
		if word.Len() == 0 {
			return
		}
		tok := strings.ToLower(word.String())
		word.Reset()
		if first == "" {
			first = tok
		}
		keywords = append(keywords, tok)
	}

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		c := runes[i]

		switch {
		case inSingle:
			if c == '\'' {
				// Doubled quote is an escaped quote inside the literal.
				if i+1 < len(runes) && runes[i+1] == '\'' {
					i++
					continue
				}
				inSingle = false
			}
		case inDouble:
			if c == '"' {
				inDouble = false
			}
		case c == '\'':
			flush()
			inSingle = true
		case c == '"':
			flush()
			inDouble = true
		case c == ';':
			flush()
			// A trailing separator still separates; anything after it
			// or the separator itself means multi-statement input.
			multi = true
		case isWordRune(c):
			word.WriteRune(c)
		default:
			flush()
		}
	}
	flush()
	return first, keywords, multi
}

func isWordRune(c rune) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

// hasSeparator reports whether a statement separator appears outside
// quoted literals. The translator uses it to tell a trailing semicolon
// (stripped during sanitizing) from genuinely chained statements.
func hasSeparator(s string) bool {
	_, _, multi := scanStatement(s)
	return multi
}
