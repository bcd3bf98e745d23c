package executor

import (
	"context"
	"errors"
	"time"

	"browser_agent/domain/entities"
)

// strategy is one way of getting something done on the page
type strategy struct {
	name string
	run  func(ctx context.Context) error
}

// attempt - runs fn and reports whether it worked. Failures are logged and swallowed,
// except cancellation and a lost driver which end the step.
func (r *run) attempt(ctx context.Context, what string, fn func(ctx context.Context) error) (bool, error) {
	err := fn(ctx)
	if err == nil {
		return true, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	if errors.Is(err, entities.ErrDriverUnavailable) {
		return false, err
	}
	r.logger.WithError(err).Debugf("%s failed", what)
	return false, nil
}

// firstSuccess - runs strategies in order and returns the name of the first that worked,
// or "" when none did
func (r *run) firstSuccess(ctx context.Context, chain []strategy) (string, error) {
	for _, s := range chain {
		ok, err := r.attempt(ctx, s.name, s.run)
		if err != nil {
			return "", err
		}
		if ok {
			return s.name, nil
		}
	}
	return "", nil
}

// waitSoft - waits for a load state. A miss is logged, and reported as warning when one is given.
func (r *run) waitSoft(ctx context.Context, action entities.Action, state entities.LoadState, timeout time.Duration, warning string) error {
	ok, err := r.attempt(ctx, "wait for "+string(state), func(ctx context.Context) error {
		return r.page.WaitForLoadState(ctx, state, timeout)
	})
	if err != nil {
		return err
	}
	if !ok && warning != "" {
		r.warn(ctx, action, warning)
	}
	return nil
}
