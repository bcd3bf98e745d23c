package interfaces

import (
	"browser_agent/domain/entities"
	"context"
)

// PlanExecutor runs a plan against a browser
type PlanExecutor interface {
	// Execute runs every step of plan, reporting progress to sink, and returns the extracted items
	Execute(ctx context.Context, plan entities.Plan, sink EventSink) (entities.Results, error)
}
