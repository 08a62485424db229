package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxflow/voxflow/pkg/execution"
	"github.com/voxflow/voxflow/pkg/payload"
	"github.com/voxflow/voxflow/pkg/persistence"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	server := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: server.Addr()})

	t.Cleanup(func() { _ = client.Close() })

	return NewRepositoryWithClient(client, 0)
}

func sampleContext() *execution.Context {
	execCtx := execution.NewContext("translation", payload.Payload{
		"transcription": map[string]any{"status": "IN_PROGRESS", "jobName": "job-1"},
	})
	execCtx.CurrentState = "WaitBeforePoll"

	return execCtx
}

func TestRepository_SaveLoad(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	execCtx := sampleContext()

	require.NoError(t, repo.Save(ctx, execCtx))

	loaded, err := repo.Load(ctx, execCtx.ID)
	require.NoError(t, err)

	assert.Equal(t, execCtx.ID, loaded.ID)
	assert.Equal(t, "WaitBeforePoll", loaded.CurrentState)

	status, err := loaded.Payload.GetString("$.transcription.status")
	require.NoError(t, err)
	assert.Equal(t, "IN_PROGRESS", status)
}

func TestRepository_SaveEmptyID(t *testing.T) {
	repo := newTestRepository(t)
	execCtx := sampleContext()
	execCtx.ID = ""

	assert.Error(t, repo.Save(context.Background(), execCtx))
}

func TestRepository_LoadMissing(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Load(context.Background(), "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, persistence.ErrCheckpointNotFound)
}

func TestRepository_Delete(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	execCtx := sampleContext()

	require.NoError(t, repo.Save(ctx, execCtx))
	require.NoError(t, repo.Delete(ctx, execCtx.ID))

	_, err := repo.Load(ctx, execCtx.ID)
	assert.ErrorIs(t, err, persistence.ErrCheckpointNotFound)

	require.NoError(t, repo.Delete(ctx, execCtx.ID))
}

func TestRepository_List(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first := sampleContext()
	second := sampleContext()

	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Save(ctx, second))

	ids, err := repo.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{first.ID, second.ID}, ids)
}

func TestRepository_HealthCheck(t *testing.T) {
	repo := newTestRepository(t)

	require.NoError(t, repo.HealthCheck(context.Background()))
}
