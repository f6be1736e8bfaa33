package nlquery

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/klgeo/outlets-cli/internal/store"
)

// Config bounds the pipeline's two independent budgets.
type Config struct {
	TranslateTimeout time.Duration
	ExecuteTimeout   time.Duration
	DisplayCap       int
}

// Pipeline runs a question through translate, vet, execute and format.
// Every request terminates in exactly one Outcome; no stage panics or
// blocks past its budget.
type Pipeline struct {
	translator *Translator
	executor   *Executor
	formatter  *Formatter
}

// NewPipeline wires the stages over the given oracle and store.
func NewPipeline(oracle Oracle, querier store.RowQuerier, schema *Schema, cfg Config) *Pipeline {
	f := NewFormatter()
	if cfg.DisplayCap > 0 {
		f.DisplayCap = cfg.DisplayCap
	}
	return &Pipeline{
		translator: NewTranslator(oracle, schema, cfg.TranslateTimeout),
		executor:   NewExecutor(querier, cfg.ExecuteTimeout),
		formatter:  f,
	}
}

// Ask answers one question. The returned Outcome always has a user-safe
// Answer, whatever branch terminated the request; internal detail stays
// in the Detail and SQL fields for logging.
func (p *Pipeline) Ask(ctx context.Context, question string) Outcome {
	out := Outcome{
		RequestID: uuid.NewString(),
		Question:  question,
	}
	log := zap.L().With(zap.String("request_id", out.RequestID))

	question = strings.TrimSpace(question)
	if question == "" {
		out.Kind = OutcomeTranslationFailed
		out.Detail = "empty question"
		out.Answer = p.formatter.FailureMessage(out.Kind)
		return out
	}

	start := time.Now()
	stmt, err := p.translator.Translate(ctx, question)
	if err != nil {
		out.Kind = OutcomeTranslationFailed
		out.Detail = err.Error()
		out.Answer = p.formatter.FailureMessage(out.Kind)
		log.Warn("nlquery: translation failed", zap.Error(err))
		return out
	}
	out.SQL = stmt

	if err := Vet(stmt); err != nil {
		out.Kind = OutcomeRejectedQuery
		out.Detail = err.Error()
		out.Answer = p.formatter.FailureMessage(out.Kind)
		log.Warn("nlquery: guard rejected statement",
			zap.String("sql", stmt),
			zap.Error(err),
		)
		return out
	}

	rows, err := p.executor.Execute(ctx, stmt)
	if err != nil {
		if errors.Is(err, ErrExecutionTimeout) {
			out.Kind = OutcomeExecutionTimeout
		} else {
			out.Kind = OutcomeExecutionError
		}
		out.Detail = err.Error()
		out.Answer = p.formatter.FailureMessage(out.Kind)
		log.Warn("nlquery: execution failed",
			zap.String("sql", stmt),
			zap.Error(err),
		)
		return out
	}
	out.Rows = rows

	if len(rows) == 0 {
		out.Kind = OutcomeNoResults
		out.Answer = p.formatter.FailureMessage(out.Kind)
	} else {
		out.Kind = OutcomeAnswered
		out.Answer = p.formatter.Format(rows)
	}

	log.Info("nlquery: question answered",
		zap.String("outcome", string(out.Kind)),
		zap.Int("rows", len(rows)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out
}
