// Package persistence defines the checkpoint store for in-flight runs. The
// serialized execution context saved at each wait boundary is everything a
// worker needs to resume a paused run, so no execution history beyond the
// single current checkpoint is kept.
package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/voxflow/voxflow/pkg/execution"
)

// ErrCheckpointNotFound indicates no checkpoint exists for the execution ID.
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// CheckpointRepository stores at most one checkpoint per execution.
type CheckpointRepository interface {
	// Save writes (or replaces) the checkpoint for execCtx.ID.
	Save(ctx context.Context, execCtx *execution.Context) error

	// Load returns the checkpoint for an execution, or ErrCheckpointNotFound.
	Load(ctx context.Context, executionID string) (*execution.Context, error)

	// Delete removes an execution's checkpoint. Deleting a missing
	// checkpoint is not an error.
	Delete(ctx context.Context, executionID string) error

	// List returns the IDs of all checkpointed executions.
	List(ctx context.Context) ([]string, error)

	// HealthCheck verifies the backing store is reachable.
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// CheckpointError wraps a checkpoint operation failure with its context.
type CheckpointError struct {
	Op          string
	ExecutionID string
	Err         error
}

func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s failed for execution %s: %v", e.Op, e.ExecutionID, e.Err)
}

func (e *CheckpointError) Unwrap() error {
	return e.Err
}

// NewCheckpointError builds a CheckpointError.
func NewCheckpointError(op, executionID string, err error) *CheckpointError {
	return &CheckpointError{Op: op, ExecutionID: executionID, Err: err}
}
