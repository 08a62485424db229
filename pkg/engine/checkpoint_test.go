package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxflow/voxflow/pkg/execution"
	"github.com/voxflow/voxflow/pkg/invoker"
	"github.com/voxflow/voxflow/pkg/payload"
	"github.com/voxflow/voxflow/pkg/persistence"
	"github.com/voxflow/voxflow/pkg/persistence/file"
)

func TestRun_CheckpointSavedDuringWait(t *testing.T) {
	repo := file.NewRepository(t.TempDir())

	eng := newEngine(t, func(inv *invoker.Invoker) {
		inv.Register("submit", invoker.OperationFunc(func(context.Context, map[string]any) (any, error) {
			return map[string]any{"status": "IN_PROGRESS"}, nil
		}))
		inv.Register("status", &scriptedStatus{statuses: []string{"IN_PROGRESS"}})
	}).WithCheckpoints(repo)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	execCtx := execution.NewContext("poll", payload.New())

	_, err := eng.Run(ctx, pollGraph(time.Hour), execCtx)
	require.ErrorIs(t, err, context.Canceled)

	saved, err := repo.Load(context.Background(), execCtx.ID)
	require.NoError(t, err)

	assert.Equal(t, "Hold", saved.CurrentState)
	assert.Equal(t, execution.OutcomeRunning, saved.Outcome)
	assert.True(t, saved.Payload.Has("$.job.status"), "payload written before the wait survives the checkpoint")
}

func TestRun_CheckpointRemovedOnSuccess(t *testing.T) {
	repo := file.NewRepository(t.TempDir())

	eng := newEngine(t, func(inv *invoker.Invoker) {
		inv.Register("submit", invoker.OperationFunc(func(context.Context, map[string]any) (any, error) {
			return map[string]any{"status": "IN_PROGRESS"}, nil
		}))
		inv.Register("status", &scriptedStatus{statuses: []string{"COMPLETED"}})
	}).WithCheckpoints(repo)

	execCtx := execution.NewContext("poll", payload.New())

	final, err := eng.Run(context.Background(), pollGraph(time.Millisecond), execCtx)
	require.NoError(t, err)
	assert.Equal(t, execution.OutcomeSucceeded, final.Outcome)

	_, err = repo.Load(context.Background(), execCtx.ID)
	assert.ErrorIs(t, err, persistence.ErrCheckpointNotFound)
}

func TestResume_ContinuesFromCheckpoint(t *testing.T) {
	repo := file.NewRepository(t.TempDir())
	status := &scriptedStatus{statuses: []string{"COMPLETED"}}

	eng := newEngine(t, func(inv *invoker.Invoker) {
		inv.Register("submit", invoker.OperationFunc(func(context.Context, map[string]any) (any, error) {
			t.Fatal("submit must not run again on resume")

			return nil, nil
		}))
		inv.Register("status", status)
	}).WithCheckpoints(repo)

	// A run suspended at its wait state, as a crashed worker would leave it.
	suspended := execution.NewContext("poll", payload.Payload{
		"job": map[string]any{"status": "IN_PROGRESS"},
	})
	suspended.CurrentState = "Hold"
	suspended.Transitions = 2
	require.NoError(t, repo.Save(context.Background(), suspended))

	final, err := eng.Resume(context.Background(), pollGraph(time.Millisecond), suspended.ID)
	require.NoError(t, err)

	assert.Equal(t, execution.OutcomeSucceeded, final.Outcome)
	assert.Equal(t, 1, status.calls, "resume re-enters at the wait, then polls once")
	assert.Greater(t, final.Transitions, 2, "transition count carries over")

	_, err = repo.Load(context.Background(), suspended.ID)
	assert.ErrorIs(t, err, persistence.ErrCheckpointNotFound)
}

func TestResume_UnknownExecution(t *testing.T) {
	repo := file.NewRepository(t.TempDir())
	eng := newEngine(t, nil).WithCheckpoints(repo)

	_, err := eng.Resume(context.Background(), pollGraph(time.Millisecond), "no-such-run")
	assert.ErrorIs(t, err, persistence.ErrCheckpointNotFound)
}

func TestResume_WithoutRepository(t *testing.T) {
	eng := newEngine(t, nil)

	_, err := eng.Resume(context.Background(), pollGraph(time.Millisecond), "whatever")
	assert.Error(t, err)
}
