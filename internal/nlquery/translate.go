package nlquery

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Oracle is the injectable text-completion capability. Production wires
// the Anthropic client; tests use scripted fakes.
type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Translator turns a free-text question into a candidate SQL statement
// against a fixed schema. It holds no per-question state; each Translate
// call is independent.
type Translator struct {
	oracle  Oracle
	schema  *Schema
	timeout time.Duration
}

// NewTranslator creates a Translator. The timeout bounds each oracle
// call separately from the executor's own budget.
func NewTranslator(oracle Oracle, schema *Schema, timeout time.Duration) *Translator {
	if schema == nil {
		schema = DefaultSchema()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Translator{oracle: oracle, schema: schema, timeout: timeout}
}

// Translate maps a question to a single candidate statement. Unusable
// oracle output (empty, chained statements, not a read) triggers exactly
// one retry with a reformulated prompt before failing for the request.
func (t *Translator) Translate(ctx context.Context, question string) (string, error) {
	prompt := t.schema.Prompt(question)

	var lastDetail string
	for attempt := 0; attempt < 2; attempt++ {
		raw, err := t.complete(ctx, prompt)
		if err != nil {
			lastDetail = err.Error()
			zap.L().Warn("translator: oracle call failed",
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			prompt = t.schema.RetryPrompt(question, "")
			continue
		}

		stmt, err := sanitizeCompletion(raw)
		if err != nil {
			lastDetail = err.Error()
			zap.L().Warn("translator: unusable completion",
				zap.Int("attempt", attempt+1),
				zap.String("completion", raw),
				zap.Error(err),
			)
			prompt = t.schema.RetryPrompt(question, strings.TrimSpace(raw))
			continue
		}
		return stmt, nil
	}

	return "", eris.Errorf("nlquery: translation failed: %s", lastDetail)
}

func (t *Translator) complete(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.oracle.Complete(callCtx, prompt)
}

// sanitizeCompletion strips the formatting artifacts a prompt-controlled
// but not output-schema-guaranteed oracle may emit, then checks that
// what remains looks like a single read statement.
func sanitizeCompletion(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", eris.New("empty completion")
	}

	s = stripCodeFences(s)

	// Some models label the answer even when told not to.
	for _, label := range []string{"sql:", "query:", "sqlite:"} {
		if len(s) >= len(label) && strings.EqualFold(s[:len(label)], label) {
			s = strings.TrimSpace(s[len(label):])
		}
	}

	// One trailing separator is tolerated and stripped; interior
	// separators mean chained statements and are not.
	s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	if s == "" {
		return "", eris.New("completion contained no statement")
	}
	if hasSeparator(s) {
		return "", eris.New("completion contained multiple statements")
	}

	firstWord := strings.ToLower(strings.Fields(s)[0])
	if !readKeywords[firstWord] {
		return "", eris.Errorf("completion does not start with a read keyword: %q", firstWord)
	}
	return s, nil
}

// stripCodeFences unwraps a ```-fenced block, dropping any language tag
// on the opening fence. Input without fences passes through unchanged.
func stripCodeFences(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}

	start := strings.Index(s, "```")
	rest := s[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		// Opening fence line may carry a language tag such as ```sql.
		tag := strings.TrimSpace(rest[:nl])
		if tag == "" || isFenceTag(tag) {
			rest = rest[nl+1:]
		}
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

func isFenceTag(tag string) bool {
	switch strings.ToLower(tag) {
	case "sql", "sqlite", "text":
		return true
	default:
		return false
	}
}
