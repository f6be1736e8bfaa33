package nlquery

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedOracle replays a fixed sequence of completions and records
// the prompts it was asked.
type scriptedOracle struct {
	replies []string
	errs    []error
	prompts []string
	calls   int
}

func (o *scriptedOracle) Complete(_ context.Context, prompt string) (string, error) {
	o.prompts = append(o.prompts, prompt)
	i := o.calls
	o.calls++
	if i < len(o.errs) && o.errs[i] != nil {
		return "", o.errs[i]
	}
	if i < len(o.replies) {
		return o.replies[i], nil
	}
	return "", eris.New("scripted oracle: no reply left")
}

func TestTranslateCleanCompletion(t *testing.T) {
	oracle := &scriptedOracle{replies: []string{"SELECT * FROM outlets"}}
	tr := NewTranslator(oracle, nil, time.Second)

	stmt, err := tr.Translate(context.Background(), "show all outlets")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM outlets", stmt)
	assert.Equal(t, 1, oracle.calls)
}

func TestTranslateStripsFencesAndSemicolon(t *testing.T) {
	cases := map[string]string{
		"```sql\nSELECT COUNT(*) FROM outlets;\n```": "SELECT COUNT(*) FROM outlets",
		"```\nSELECT name FROM outlets\n```":         "SELECT name FROM outlets",
		"SQL: SELECT id FROM outlets;":               "SELECT id FROM outlets",
		"  SELECT 1  ":                               "SELECT 1",
	}
	for raw, want := range cases {
		oracle := &scriptedOracle{replies: []string{raw}}
		tr := NewTranslator(oracle, nil, time.Second)

		stmt, err := tr.Translate(context.Background(), "q")
		require.NoError(t, err, raw)
		assert.Equal(t, want, stmt, raw)
	}
}

func TestTranslateRetriesOnceOnEmptyCompletion(t *testing.T) {
	oracle := &scriptedOracle{replies: []string{"", "SELECT 1"}}
	tr := NewTranslator(oracle, nil, time.Second)

	stmt, err := tr.Translate(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", stmt)
	require.Equal(t, 2, oracle.calls)
	assert.Contains(t, oracle.prompts[1], "previous response")
}

func TestTranslateFailsAfterSecondBadCompletion(t *testing.T) {
	oracle := &scriptedOracle{replies: []string{
		"I cannot answer that.",
		"Here is some prose instead of SQL.",
	}}
	tr := NewTranslator(oracle, nil, time.Second)

	_, err := tr.Translate(context.Background(), "q")
	require.Error(t, err)
	// Exactly one retry, never more.
	assert.Equal(t, 2, oracle.calls)
}

func TestTranslateRejectsChainedStatements(t *testing.T) {
	oracle := &scriptedOracle{replies: []string{
		"SELECT 1; DROP TABLE outlets",
		"SELECT 1; DROP TABLE outlets",
	}}
	tr := NewTranslator(oracle, nil, time.Second)

	_, err := tr.Translate(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, 2, oracle.calls)
}

func TestTranslateOracleErrorConsumesRetry(t *testing.T) {
	oracle := &scriptedOracle{
		errs:    []error{eris.New("upstream 529"), nil},
		replies: []string{"", "SELECT 2"},
	}
	tr := NewTranslator(oracle, nil, time.Second)

	stmt, err := tr.Translate(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 2", stmt)
	assert.Equal(t, 2, oracle.calls)
}

func TestTranslateTimesOutSlowOracle(t *testing.T) {
	slow := oracleFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	tr := NewTranslator(slow, nil, 20*time.Millisecond)

	start := time.Now()
	_, err := tr.Translate(context.Background(), "q")
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

type oracleFunc func(ctx context.Context, prompt string) (string, error)

func (f oracleFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func TestSanitizeCompletion(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "SELECT * FROM outlets", want: "SELECT * FROM outlets"},
		{in: "select 1;", want: "select 1"},
		{in: "WITH x AS (SELECT 1) SELECT * FROM x", want: "WITH x AS (SELECT 1) SELECT * FROM x"},
		{in: "query: SELECT 1", want: "SELECT 1"},
		{in: "", wantErr: true},
		{in: ";", wantErr: true},
		{in: "DROP TABLE outlets", wantErr: true},
		{in: "The answer is SELECT 1", wantErr: true},
		{in: "SELECT 1; SELECT 2", wantErr: true},
	}
	for _, tc := range cases {
		got, err := sanitizeCompletion(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, "SELECT 1", stripCodeFences("```sql\nSELECT 1\n```"))
	assert.Equal(t, "SELECT 1", stripCodeFences("```\nSELECT 1\n```"))
	assert.Equal(t, "SELECT 1", stripCodeFences("SELECT 1"))
	// An unrecognized first line inside the fence is content, not a tag.
	assert.Equal(t, "SELECT 1\nFROM outlets", stripCodeFences("```\nSELECT 1\nFROM outlets\n```"))
}
