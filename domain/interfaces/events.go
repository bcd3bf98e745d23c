package interfaces

import (
	"browser_agent/domain/entities"
	"context"
)

// EventSink receives run events in the order they are produced.
// Emit must not block indefinitely; the dispatcher waits for it inline.
type EventSink interface {
	Emit(ctx context.Context, event entities.RunEvent)
}

// EventSinkFunc adapts a function to EventSink
type EventSinkFunc func(ctx context.Context, event entities.RunEvent)

// Emit calls f(ctx, event)
func (f EventSinkFunc) Emit(ctx context.Context, event entities.RunEvent) {
	f(ctx, event)
}
