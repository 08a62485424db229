// Package execution defines the execution context threaded through a run and
// the error taxonomy the engine acts on.
package execution

import (
	"time"

	"github.com/google/uuid"

	"github.com/voxflow/voxflow/pkg/payload"
)

// Outcome is the terminal disposition of a run.
type Outcome string

const (
	OutcomeRunning   Outcome = "RUNNING"
	OutcomeSucceeded Outcome = "SUCCEEDED"
	OutcomeFailed    Outcome = "FAILED"
)

// Context is the full state of one run. It is serialized verbatim as the
// checkpoint record, so a paused run can resume on another worker.
type Context struct {
	ID           string          `json:"id"`
	Pipeline     string          `json:"pipeline"`
	CurrentState string          `json:"current_state"`
	Payload      payload.Payload `json:"payload"`
	Outcome      Outcome         `json:"outcome"`
	Failure      *Error          `json:"failure,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
	Transitions  int             `json:"transitions"`
}

// NewContext creates a fresh running context with a generated execution ID.
func NewContext(pipeline string, seed payload.Payload) *Context {
	if seed == nil {
		seed = payload.New()
	}

	return &Context{
		ID:        uuid.New().String(),
		Pipeline:  pipeline,
		Payload:   seed,
		Outcome:   OutcomeRunning,
		StartedAt: time.Now().UTC(),
	}
}

// Succeed marks the run as completed.
func (c *Context) Succeed() {
	now := time.Now().UTC()
	c.Outcome = OutcomeSucceeded
	c.FinishedAt = &now
}

// Fail marks the run as failed, keeping whatever payload was already written
// for diagnosis.
func (c *Context) Fail(execErr *Error) {
	now := time.Now().UTC()
	c.Outcome = OutcomeFailed
	c.Failure = execErr
	c.FinishedAt = &now
}

// Done reports whether the run reached a terminal outcome.
func (c *Context) Done() bool {
	return c.Outcome == OutcomeSucceeded || c.Outcome == OutcomeFailed
}
