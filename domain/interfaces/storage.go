package interfaces

import (
	"browser_agent/domain/entities"
	"context"
)

// RunStore persists run history
type RunStore interface {
	// SaveRun stores a finished run with its results
	SaveRun(ctx context.Context, run entities.Run) error

	// GetRun loads a run by id
	GetRun(ctx context.Context, id string) (entities.Run, error)

	// ListRuns returns the most recent runs, newest first
	ListRuns(ctx context.Context, limit int) ([]entities.Run, error)

	// Close releases the store
	Close() error
}
