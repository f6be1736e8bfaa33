package nlquery

import "github.com/klgeo/outlets-cli/internal/model"

// OutcomeKind classifies how a query request terminated.
type OutcomeKind string

const (
	OutcomeAnswered          OutcomeKind = "answered"
	OutcomeNoResults         OutcomeKind = "no_results"
	OutcomeTranslationFailed OutcomeKind = "translation_failed"
	OutcomeRejectedQuery     OutcomeKind = "rejected_query"
	OutcomeExecutionTimeout  OutcomeKind = "execution_timeout"
	OutcomeExecutionError    OutcomeKind = "execution_error"
)

// Outcome is the terminal result of one pipeline run. Answer is always
// safe to show an end user; Detail and SQL are for server-side logging
// only and must never reach the response body.
type Outcome struct {
	Kind      OutcomeKind
	RequestID string
	Question  string
	SQL       string
	Rows      []model.Row
	Answer    string
	Detail    string
}

// Failed reports whether the request terminated on an error branch.
func (o Outcome) Failed() bool {
	return o.Kind != OutcomeAnswered && o.Kind != OutcomeNoResults
}
