package nlquery

import (
	"fmt"
	"sort"
	"strings"

	"github.com/klgeo/outlets-cli/internal/model"
)

// Messages shown for each failure branch. They deliberately carry no
// SQL, no schema names and no database error text.
const (
	msgNoResults         = "No outlets matched your question."
	msgTranslationFailed = "Sorry, I could not turn that question into a database query. Try rephrasing it."
	msgRejectedQuery     = "That question would require an operation the assistant is not allowed to run."
	msgExecutionTimeout  = "The query took too long to run. Try asking something more specific."
	msgExecutionError    = "Something went wrong while looking that up. Try rephrasing your question."
)

// Formatter renders executor results as plain-text answers. DisplayCap
// bounds how many rows are itemized before eliding the rest.
type Formatter struct {
	DisplayCap int
}

// NewFormatter returns a Formatter with the default row cap.
func NewFormatter() *Formatter {
	return &Formatter{DisplayCap: 10}
}

// FailureMessage maps a failure outcome to its user-safe answer text.
func (f *Formatter) FailureMessage(kind OutcomeKind) string {
	switch kind {
	case OutcomeNoResults:
		return msgNoResults
	case OutcomeTranslationFailed:
		return msgTranslationFailed
	case OutcomeRejectedQuery:
		return msgRejectedQuery
	case OutcomeExecutionTimeout:
		return msgExecutionTimeout
	default:
		return msgExecutionError
	}
}

// Format renders a non-empty result set. Callers handle the empty set
// via FailureMessage(OutcomeNoResults) before reaching here.
func (f *Formatter) Format(rows []model.Row) string {
	if len(rows) == 0 {
		return msgNoResults
	}

	// A lone aggregate cell reads better as a sentence than as a table.
	if n, ok := scalarCount(rows); ok {
		switch n {
		case 0:
			return "There are no such outlets."
		case 1:
			return "There is 1 such outlet."
		default:
			return fmt.Sprintf("There are %d such outlets.", n)
		}
	}

	cap := f.DisplayCap
	if cap <= 0 {
		cap = 10
	}

	shown := rows
	if len(shown) > cap {
		shown = shown[:cap]
	}

	var sb strings.Builder
	if len(rows) == 1 {
		sb.WriteString("Found 1 result:\n")
	} else {
		fmt.Fprintf(&sb, "Found %d results:\n", len(rows))
	}
	for _, row := range shown {
		sb.WriteString("- " + formatRow(row) + "\n")
	}
	if hidden := len(rows) - len(shown); hidden > 0 {
		fmt.Fprintf(&sb, "...and %d more rows not shown.\n", hidden)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// scalarCount detects a one-row, one-column numeric result whose column
// name suggests an aggregate, e.g. COUNT(*) or cnt.
func scalarCount(rows []model.Row) (int64, bool) {
	if len(rows) != 1 || len(rows[0]) != 1 {
		return 0, false
	}
	for name, v := range rows[0] {
		if !countishColumn(name) {
			return 0, false
		}
		switch n := v.(type) {
		case int64:
			return n, true
		case int:
			return int64(n), true
		case float64:
			if n == float64(int64(n)) {
				return int64(n), true
			}
		}
	}
	return 0, false
}

func countishColumn(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "count") || n == "cnt" || n == "n" || n == "total"
}

// formatRow renders one row as "name: value" pairs. Name and address
// lead when present; the remaining columns follow alphabetically so the
// output is stable across runs.
func formatRow(row model.Row) string {
	var parts []string
	used := map[string]bool{}

	for _, lead := range []string{"name", "address"} {
		if v, ok := row[lead]; ok && v != nil {
			parts = append(parts, fmt.Sprintf("%v", v))
			used[lead] = true
		}
	}

	rest := make([]string, 0, len(row))
	for name := range row {
		if !used[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		v := row[name]
		if v == nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %v", name, v))
	}

	if len(parts) == 0 {
		return "(empty row)"
	}
	return strings.Join(parts, ", ")
}
