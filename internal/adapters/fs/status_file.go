// Package fs persists execution context status snapshots on the local file
// system.
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/bft-labs/rtcd/internal/domain"
	"github.com/bft-labs/rtcd/internal/ports"
)

// StatusFileName is the name of the status file inside the state directory.
const StatusFileName = "status.json"

// StatusFileRepository implements ports.StatusRepository using a JSON file.
type StatusFileRepository struct {
	dir string
}

var _ ports.StatusRepository = (*StatusFileRepository)(nil)

// NewStatusFileRepository creates a repository writing into dir.
func NewStatusFileRepository(dir string) *StatusFileRepository {
	return &StatusFileRepository{dir: dir}
}

// Load reads the last saved snapshots.
// Returns nil and a nil error if no status file exists.
func (r *StatusFileRepository) Load(ctx context.Context) ([]domain.ContextStatus, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var status []domain.ContextStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, err
	}
	return status, nil
}

// Save writes the snapshots atomically (temp file, then rename).
func (r *StatusFileRepository) Save(ctx context.Context, status []domain.ContextStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return err
	}

	path := r.Path()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Path returns the full path to the status file.
func (r *StatusFileRepository) Path() string {
	return filepath.Join(r.dir, StatusFileName)
}
