package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/voxflow/voxflow/pkg/persistence"
	"github.com/voxflow/voxflow/pkg/persistence/file"
	"github.com/voxflow/voxflow/pkg/persistence/redis"
)

// Checkpoints held in redis expire eventually; suspended runs are expected
// to resume well within this window.
const redisCheckpointTTL = 7 * 24 * time.Hour

// NewCheckpointRepository selects a checkpoint backend from a storage URL.
// "file://<dir>" and "redis://..." schemes are supported; an empty URL
// disables checkpointing.
func NewCheckpointRepository(url string) (persistence.CheckpointRepository, error) {
	switch {
	case url == "":
		return nil, nil
	case strings.HasPrefix(url, "file://"):
		return file.NewRepository(url), nil
	case strings.HasPrefix(url, "redis://"), strings.HasPrefix(url, "rediss://"):
		return redis.NewRepository(url, redisCheckpointTTL)
	default:
		return nil, fmt.Errorf("unsupported checkpoint URL %q (use file:// or redis://)", url)
	}
}
