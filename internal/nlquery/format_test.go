package nlquery

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/klgeo/outlets-cli/internal/model"
)

func TestFormatScalarCount(t *testing.T) {
	f := NewFormatter()

	assert.Equal(t, "There are 5 such outlets.",
		f.Format([]model.Row{{"COUNT(*)": int64(5)}}))
	assert.Equal(t, "There is 1 such outlet.",
		f.Format([]model.Row{{"cnt": int64(1)}}))
	assert.Equal(t, "There are no such outlets.",
		f.Format([]model.Row{{"count": int64(0)}}))
	// Aggregates may come back as floats from some drivers.
	assert.Equal(t, "There are 7 such outlets.",
		f.Format([]model.Row{{"total": float64(7)}}))
}

func TestFormatScalarNonCountIsListed(t *testing.T) {
	f := NewFormatter()

	// One cell that is not count-like gets the list treatment.
	got := f.Format([]model.Row{{"name": "Subway KLCC"}})
	assert.Contains(t, got, "Found 1 result")
	assert.Contains(t, got, "Subway KLCC")
}

func TestFormatListsRowsNameAndAddressFirst(t *testing.T) {
	f := NewFormatter()
	rows := []model.Row{
		{"name": "Subway KLCC", "address": "Lot 12, Suria KLCC", "end_time": "22:00"},
		{"name": "Subway Bangsar", "address": "Jalan Telawi", "end_time": "23:00"},
	}

	got := f.Format(rows)
	assert.Contains(t, got, "Found 2 results")
	assert.Contains(t, got, "- Subway KLCC, Lot 12, Suria KLCC, end_time: 22:00")
	assert.Contains(t, got, "- Subway Bangsar, Jalan Telawi, end_time: 23:00")
	assert.NotContains(t, got, "more rows not shown")
}

func TestFormatCapsLongResults(t *testing.T) {
	f := &Formatter{DisplayCap: 3}
	rows := make([]model.Row, 10)
	for i := range rows {
		rows[i] = model.Row{"name": fmt.Sprintf("Outlet %d", i)}
	}

	got := f.Format(rows)
	assert.Contains(t, got, "Found 10 results")
	assert.Contains(t, got, "...and 7 more rows not shown.")
	assert.Equal(t, 3, strings.Count(got, "\n- "))
}

func TestFormatSkipsNullCells(t *testing.T) {
	f := NewFormatter()
	got := f.Format([]model.Row{{"name": "Subway Sentral", "latitude": nil}})
	assert.Contains(t, got, "Subway Sentral")
	assert.NotContains(t, got, "latitude")
}

func TestFailureMessagesAreUserSafe(t *testing.T) {
	f := NewFormatter()
	kinds := []OutcomeKind{
		OutcomeNoResults,
		OutcomeTranslationFailed,
		OutcomeRejectedQuery,
		OutcomeExecutionTimeout,
		OutcomeExecutionError,
	}
	for _, k := range kinds {
		msg := f.FailureMessage(k)
		assert.NotEmpty(t, msg, k)
		lower := strings.ToLower(msg)
		assert.NotContains(t, lower, "select", k)
		assert.NotContains(t, lower, "sql", k)
		assert.NotContains(t, lower, "syntax", k)
	}
}
