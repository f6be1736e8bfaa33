package nlquery

import (
	"context"
	"errors"
	"time"

	"github.com/klgeo/outlets-cli/internal/model"
	"github.com/klgeo/outlets-cli/internal/store"
)

// ErrExecutionTimeout marks a statement that ran past the executor's
// budget. It is never retried; the budget exists to protect the store.
var ErrExecutionTimeout = errors.New("nlquery: execution timed out")

// Executor runs guard-approved statements against the outlet store with
// a bounded timeout and a normalized result shape.
type Executor struct {
	querier store.RowQuerier
	timeout time.Duration
}

// NewExecutor creates an Executor over the given row querier.
func NewExecutor(querier store.RowQuerier, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Executor{querier: querier, timeout: timeout}
}

// Execute runs the statement and returns its rows. An empty slice is a
// valid result, not an error. Database-level failures surface as-is and
// are never retried here: the statement came from a model, and retrying
// without re-translation would reproduce the same failure.
func (e *Executor) Execute(ctx context.Context, stmt string) ([]model.Row, error) {
	execCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	rows, err := e.querier.QueryRows(execCtx, stmt)
	if err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			return nil, ErrExecutionTimeout
		}
		return nil, err
	}
	return rows, nil
}
