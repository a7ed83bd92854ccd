package ports

import (
	"context"

	"github.com/bft-labs/rtcd/internal/domain"
)

// StatusRepository persists execution context status snapshots.
// Implementations persist snapshots to disk (or other storage) atomically.
type StatusRepository interface {
	// Load retrieves the last saved snapshots.
	// Returns nil and a nil error if nothing was saved yet.
	Load(ctx context.Context) ([]domain.ContextStatus, error)

	// Save persists the snapshots atomically.
	Save(ctx context.Context, status []domain.ContextStatus) error
}
