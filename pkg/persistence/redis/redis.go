// Package redis implements the checkpoint repository on Redis, for
// deployments where a paused run must be resumable from any worker.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/voxflow/voxflow/pkg/execution"
	"github.com/voxflow/voxflow/pkg/persistence"
)

const keyPrefix = "voxflow:checkpoint:"

// Repository stores one checkpoint per execution under a prefixed key.
type Repository struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewRepository connects to Redis from a URL ("redis://host:port/db"). The
// TTL bounds how long an abandoned checkpoint lingers; zero means no expiry.
func NewRepository(url string, ttl time.Duration) (*Repository, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	return &Repository{client: goredis.NewClient(opts), ttl: ttl}, nil
}

// NewRepositoryWithClient wraps an existing client. Tests use this with
// miniredis.
func NewRepositoryWithClient(client *goredis.Client, ttl time.Duration) *Repository {
	return &Repository{client: client, ttl: ttl}
}

func key(executionID string) string {
	return keyPrefix + executionID
}

// Save writes the execution context as the checkpoint for its ID.
func (r *Repository) Save(ctx context.Context, execCtx *execution.Context) error {
	if execCtx.ID == "" {
		return persistence.NewCheckpointError("save", "", errors.New("execution ID cannot be empty"))
	}

	data, err := json.Marshal(execCtx)
	if err != nil {
		return persistence.NewCheckpointError("save", execCtx.ID, err)
	}

	if err := r.client.Set(ctx, key(execCtx.ID), data, r.ttl).Err(); err != nil {
		return persistence.NewCheckpointError("save", execCtx.ID, err)
	}

	return nil
}

// Load reads an execution's checkpoint.
func (r *Repository) Load(ctx context.Context, executionID string) (*execution.Context, error) {
	data, err := r.client.Get(ctx, key(executionID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("execution %s: %w", executionID, persistence.ErrCheckpointNotFound)
		}

		return nil, persistence.NewCheckpointError("load", executionID, err)
	}

	var execCtx execution.Context
	if err := json.Unmarshal(data, &execCtx); err != nil {
		return nil, persistence.NewCheckpointError("load", executionID, err)
	}

	return &execCtx, nil
}

// Delete removes an execution's checkpoint if present.
func (r *Repository) Delete(ctx context.Context, executionID string) error {
	if err := r.client.Del(ctx, key(executionID)).Err(); err != nil {
		return persistence.NewCheckpointError("delete", executionID, err)
	}

	return nil
}

// List returns the IDs of all stored checkpoints.
func (r *Repository) List(ctx context.Context) ([]string, error) {
	var (
		ids    []string
		cursor uint64
	)

	for {
		keys, next, err := r.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return nil, persistence.NewCheckpointError("list", "", err)
		}

		for _, k := range keys {
			ids = append(ids, k[len(keyPrefix):])
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return ids, nil
}

// HealthCheck pings the server.
func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the client connection pool.
func (r *Repository) Close(_ context.Context) error {
	return r.client.Close()
}
