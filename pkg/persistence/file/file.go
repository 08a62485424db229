// Package file implements the checkpoint repository on the local file
// system: one JSON document per execution under a root directory. Suited to
// single-node deployments and tests.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/voxflow/voxflow/pkg/execution"
	"github.com/voxflow/voxflow/pkg/persistence"
)

const checkpointDir = "checkpoints"

// Repository stores checkpoints as JSON files.
type Repository struct {
	root string
}

// NewRepository creates a file-backed checkpoint repository rooted at root.
// A "file://" prefix is tolerated so URLs can be passed through unchanged.
func NewRepository(root string) *Repository {
	return &Repository{root: strings.TrimPrefix(root, "file://")}
}

// validateExecutionID rejects IDs that could escape the checkpoint
// directory.
func validateExecutionID(executionID string) error {
	if executionID == "" {
		return errors.New("execution ID cannot be empty")
	}

	if strings.ContainsAny(executionID, `/\`) || strings.Contains(executionID, "..") {
		return errors.New("execution ID contains invalid characters")
	}

	return nil
}

func (r *Repository) path(executionID string) string {
	return filepath.Join(r.root, checkpointDir, executionID+".json")
}

// Save writes the execution context as the checkpoint for its ID.
func (r *Repository) Save(_ context.Context, execCtx *execution.Context) error {
	if err := validateExecutionID(execCtx.ID); err != nil {
		return persistence.NewCheckpointError("save", execCtx.ID, err)
	}

	dir := filepath.Join(r.root, checkpointDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return persistence.NewCheckpointError("save", execCtx.ID, err)
	}

	data, err := json.MarshalIndent(execCtx, "", "  ")
	if err != nil {
		return persistence.NewCheckpointError("save", execCtx.ID, err)
	}

	// Write-then-rename keeps a crash from leaving a torn checkpoint.
	tmp := r.path(execCtx.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return persistence.NewCheckpointError("save", execCtx.ID, err)
	}

	if err := os.Rename(tmp, r.path(execCtx.ID)); err != nil {
		return persistence.NewCheckpointError("save", execCtx.ID, err)
	}

	return nil
}

// Load reads an execution's checkpoint.
func (r *Repository) Load(_ context.Context, executionID string) (*execution.Context, error) {
	if err := validateExecutionID(executionID); err != nil {
		return nil, persistence.NewCheckpointError("load", executionID, err)
	}

	data, err := os.ReadFile(r.path(executionID))
	if err != nil {
		if os.IsNotExist(err) {
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
func (r *Repository) Delete(_ context.Context, executionID string) error {
	if err := validateExecutionID(executionID); err != nil {
		return persistence.NewCheckpointError("delete", executionID, err)
	}

	if err := os.Remove(r.path(executionID)); err != nil && !os.IsNotExist(err) {
		return persistence.NewCheckpointError("delete", executionID, err)
	}

	return nil
}

// List returns the IDs of all stored checkpoints.
func (r *Repository) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(r.root, checkpointDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, persistence.NewCheckpointError("list", "", err)
	}

	ids := make([]string, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}

	return ids, nil
}

// HealthCheck verifies the root directory exists.
func (r *Repository) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(r.root); err != nil {
		return err
	}

	return nil
}

// Close is a no-op for file storage.
func (r *Repository) Close(_ context.Context) error {
	return nil
}
