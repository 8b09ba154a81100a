package models

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a QueryRun. Transitions are monotonic:
// created -> running -> one of {success, rejected, error}. No transition
// leaves a terminal state.
type RunStatus string

const (
	RunStatusCreated  RunStatus = "created"
	RunStatusRunning  RunStatus = "running"
	RunStatusSuccess  RunStatus = "success"
	RunStatusRejected RunStatus = "rejected"
	RunStatusError    RunStatus = "error"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusSuccess, RunStatusRejected, RunStatusError:
		return true
	}
	return false
}

// RunMeta holds execution metadata recorded on success.
type RunMeta struct {
	RuntimeSeconds float64 `json:"runtime_s"`
	RowCount       int     `json:"row_count"`
}

// QueryRun is the audit record for one end-to-end text2sql request. Exactly
// one run exists per request; it is owned by that request's goroutine for its
// whole lifetime and never mutated concurrently.
type QueryRun struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// NLQuery is the natural-language question, captured at creation and
	// immutable afterwards.
	NLQuery string `json:"nl_query"`

	// GeneratedSQL is the raw oracle output, persisted as soon as the oracle
	// responds - even when sanitization later rejects it. Nil until then.
	GeneratedSQL *string `json:"generated_sql,omitempty"`

	Status RunStatus `json:"status"`

	// Error holds the rejection reason or (redacted) failure detail for
	// terminal states rejected and error.
	Error *string `json:"error,omitempty"`

	// Meta is set only on success.
	Meta *RunMeta `json:"meta,omitempty"`
}
