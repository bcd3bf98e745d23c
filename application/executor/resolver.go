package executor

import (
	"context"
	"errors"
	"time"

	"browser_agent/domain/entities"
	"browser_agent/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Resolver finds the first visible element among ordered selector candidates
type Resolver struct {
	page    interfaces.Page
	retries int
	backoff time.Duration
	sleep   Sleeper
	logger  logrus.FieldLogger
}

// NewResolver - creates resolver bound to one page
func NewResolver(page interfaces.Page, cfg Config, sleep Sleeper, logger logrus.FieldLogger) *Resolver {
	cfg = cfg.normalized()
	if sleep == nil {
		sleep = sleepContext
	}
	return &Resolver{
		page:    page,
		retries: cfg.Retries,
		backoff: cfg.BackoffBase,
		sleep:   sleep,
		logger:  logger,
	}
}

// Resolve - tries candidates in order, each up to the configured number of attempts with
// linear backoff between attempts. A miss returns found=false with a nil error; errors are
// only returned for cancellation or a lost driver.
func (r *Resolver) Resolve(ctx context.Context, candidates []string, timeout time.Duration) (interfaces.Element, bool, error) {
	for _, selector := range candidates {
		for attempt := 1; attempt <= r.retries; attempt++ {
			if err := ctx.Err(); err != nil {
				return nil, false, err
			}

			el, err := r.page.WaitForSelector(ctx, selector, timeout)
			if err == nil && el != nil {
				return el, true, nil
			}
			if errors.Is(err, entities.ErrDriverUnavailable) {
				return nil, false, err
			}
			r.logger.WithFields(logrus.Fields{
				"selector": selector,
				"attempt":  attempt,
			}).Debug("selector not visible")

			if attempt < r.retries {
				if err := r.sleep(ctx, time.Duration(attempt)*r.backoff); err != nil {
					return nil, false, err
				}
			}
		}
	}
	return nil, false, nil
}
