// Package executor runs action plans against a browser session.
//
// A Dispatcher owns one session per Execute call, runs the steps in order and
// reports progress through an EventSink. Step failures are reported and the run
// moves on; only a failed browser launch is returned to the caller.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"browser_agent/application/extraction"
	"browser_agent/domain/entities"
	"browser_agent/domain/interfaces"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const browserInstallHint = "Install the browser with: go run github.com/playwright-community/playwright-go/cmd/playwright@latest install chromium"

// Dispatcher executes plans step by step
type Dispatcher struct {
	launcher interfaces.BrowserLauncher
	sites    interfaces.SiteCatalog
	pipeline *extraction.Pipeline
	cfg      Config
	logger   *logrus.Logger

	sleep  Sleeper
	newID  func() string
	values *valueGenerator
	now    func() time.Time
}

// Option customizes a Dispatcher
type Option func(*Dispatcher)

// WithSleeper replaces the delay function used for backoff and settle waits
func WithSleeper(s Sleeper) Option {
	return func(d *Dispatcher) { d.sleep = s }
}

// WithRunIDs replaces the run id generator
func WithRunIDs(fn func() string) Option {
	return func(d *Dispatcher) { d.newID = fn }
}

// WithValueSeed makes synthesized form values deterministic
func WithValueSeed(seed int64) Option {
	return func(d *Dispatcher) { d.values = newValueGenerator(seed) }
}

// NewDispatcher - creates new plan dispatcher
func NewDispatcher(launcher interfaces.BrowserLauncher, sites interfaces.SiteCatalog, logger *logrus.Logger, cfg Config, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		launcher: launcher,
		sites:    sites,
		pipeline: extraction.NewPipeline(logger),
		cfg:      cfg.normalized(),
		logger:   logger,
		sleep:    sleepContext,
		newID:    uuid.NewString,
		values:   newValueGenerator(time.Now().UnixNano()),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Execute - runs plan in a fresh browser session and returns the accumulated results.
// The returned error is non-nil only when the browser could not be launched.
func (d *Dispatcher) Execute(ctx context.Context, plan entities.Plan, sink interfaces.EventSink) (entities.Results, error) {
	r := d.newRun(sink)
	r.logger.WithField("steps", len(plan)).Info("starting run")

	browser, err := d.launcher.Launch(ctx, d.launchOptions())
	if err != nil {
		r.emit(ctx, entities.RunEvent{
			Type:    entities.EventError,
			Message: fmt.Sprintf("Failed to launch browser: %v. %s", err, browserInstallHint),
			Fatal:   true,
		})
		r.emit(ctx, entities.RunEvent{Type: entities.EventStatus, Status: entities.RunStatusFailed, Message: "Browser unavailable"})
		return entities.Results{}, fmt.Errorf("failed to launch browser: %w", err)
	}

	sess := &session{browser: browser}
	defer d.release(ctx, sess, r.logger)

	sess.context, err = browser.NewContext(ctx, interfaces.ContextOptions{
		ViewportWidth:  d.cfg.ViewportWidth,
		ViewportHeight: d.cfg.ViewportHeight,
		UserAgent:      d.cfg.UserAgent,
	})
	if err != nil {
		r.fatal(ctx, fmt.Errorf("failed to create browser context: %w", err), 0)
		return r.results, nil
	}
	sess.page, err = sess.context.NewPage(ctx)
	if err != nil {
		r.fatal(ctx, fmt.Errorf("failed to open page: %w", err), 0)
		return r.results, nil
	}

	r.page = sess.page
	r.resolver = NewResolver(sess.page, d.cfg, d.sleep, r.logger)
	r.emit(ctx, entities.RunEvent{Type: entities.EventStatus, Status: entities.RunStatusReady, Message: "Browser initialized"})

	status := r.execute(ctx, plan)
	r.logger.WithFields(logrus.Fields{
		"status":  status,
		"results": len(r.results),
	}).Info("run finished")
	return r.results, nil
}

func (d *Dispatcher) launchOptions() interfaces.LaunchOptions {
	args := append([]string(nil), d.cfg.LaunchArgs...)
	if !d.cfg.Headless {
		args = append(args, "--disable-blink-features=AutomationControlled")
	}
	return interfaces.LaunchOptions{Headless: d.cfg.Headless, Args: args}
}

type session struct {
	browser interfaces.Browser
	context interfaces.BrowserContext
	page    interfaces.Page
}

// release - closes page, context and browser in that order after a short grace period
func (d *Dispatcher) release(ctx context.Context, s *session, logger logrus.FieldLogger) {
	if s.page != nil && ctx.Err() == nil {
		_ = d.sleep(ctx, d.cfg.CloseGrace)
	}
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			logger.WithError(err).Debug("failed to close page")
		}
	}
	if s.context != nil {
		if err := s.context.Close(); err != nil {
			logger.WithError(err).Debug("failed to close browser context")
		}
	}
	if err := s.browser.Close(); err != nil {
		logger.WithError(err).Warn("failed to close browser")
	}
}

// bounds carried from filter steps to the next extraction
type carriedFilters struct {
	minPrice  *int64
	maxPrice  *int64
	minRating *float64
}

// run is the state of one Execute call
type run struct {
	id       string
	cfg      Config
	sink     interfaces.EventSink
	sites    interfaces.SiteCatalog
	pipeline *extraction.Pipeline
	values   *valueGenerator
	sleep    Sleeper
	now      func() time.Time
	logger   *logrus.Entry

	page     interfaces.Page
	resolver *Resolver
	carried  carriedFilters
	results  entities.Results
}

func (d *Dispatcher) newRun(sink interfaces.EventSink) *run {
	if sink == nil {
		sink = interfaces.EventSinkFunc(func(context.Context, entities.RunEvent) {})
	}
	id := d.newID()
	return &run{
		id:       id,
		cfg:      d.cfg,
		sink:     sink,
		sites:    d.sites,
		pipeline: d.pipeline,
		values:   d.values,
		sleep:    d.sleep,
		now:      d.now,
		logger:   d.logger.WithField("run_id", id),
		results:  entities.Results{},
	}
}

// execute - runs every step in order and returns the terminal status
func (r *run) execute(ctx context.Context, plan entities.Plan) entities.RunStatus {
	total := len(plan)
	for i, step := range plan {
		index := i + 1
		action := step.Action()

		if ctx.Err() != nil {
			return r.cancelled(ctx, index)
		}

		r.emit(ctx, entities.RunEvent{
			Type:       entities.EventActionStart,
			Action:     action,
			Step:       index,
			TotalSteps: total,
			Message:    fmt.Sprintf("Step %d/%d: %s", index, total, action),
		})

		if u, ok := step.(entities.Unsupported); ok {
			r.emit(ctx, entities.RunEvent{Type: entities.EventError, Action: action, Step: index, Message: u.Reason})
			r.emit(ctx, entities.RunEvent{
				Type:    entities.EventStatus,
				Status:  entities.RunStatusStopped,
				Message: fmt.Sprintf("Stopped at step %d/%d", index, total),
			})
			return entities.RunStatusStopped
		}

		if err := r.runStep(ctx, step); err != nil {
			if ctx.Err() != nil {
				return r.cancelled(ctx, index)
			}
			if errors.Is(err, entities.ErrDriverUnavailable) {
				r.fatal(ctx, err, index)
				return entities.RunStatusFailed
			}
			r.logger.WithError(err).WithField("step", index).Warn("step failed")
			r.emit(ctx, entities.RunEvent{
				Type:    entities.EventError,
				Action:  action,
				Step:    index,
				Message: fmt.Sprintf("Error in %s: %v", action, err),
			})
		}

		r.emit(ctx, entities.RunEvent{Type: entities.EventActionComplete, Action: action, Step: index, TotalSteps: total})
	}

	r.emit(ctx, entities.RunEvent{Type: entities.EventStatus, Status: entities.RunStatusCompleted, Message: "Task completed"})
	return entities.RunStatusCompleted
}

// runStep - dispatches one step to its handler; a panicking handler fails only that step
func (r *run) runStep(ctx context.Context, step entities.Step) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.WithField("panic", p).Error("step handler panicked")
			err = fmt.Errorf("unexpected failure: %v", p)
		}
	}()

	switch s := step.(type) {
	case entities.Navigate:
		return r.navigate(ctx, s)
	case entities.WaitFor:
		return r.waitFor(ctx, s)
	case entities.Type:
		return r.typeText(ctx, s)
	case entities.Click:
		return r.click(ctx, s)
	case entities.FilterPrice:
		return r.filterPrice(ctx, s)
	case entities.FilterRating:
		return r.filterRating(ctx, s)
	case entities.ExtractProducts:
		return r.extractProducts(ctx, s)
	case entities.FillFormField:
		return r.fillFormField(ctx, s)
	case entities.SubmitForm:
		return r.submitForm(ctx, s)
	default:
		return fmt.Errorf("%w: %s", entities.ErrUnknownAction, step.Action())
	}
}

func (r *run) emit(ctx context.Context, event entities.RunEvent) {
	event.RunID = r.id
	if event.Time.IsZero() {
		event.Time = r.now()
	}
	r.sink.Emit(ctx, event)
}

func (r *run) action(ctx context.Context, action entities.Action, message string) {
	r.emit(ctx, entities.RunEvent{Type: entities.EventAction, Action: action, Message: message})
}

func (r *run) warn(ctx context.Context, action entities.Action, message string) {
	r.emit(ctx, entities.RunEvent{Type: entities.EventWarning, Action: action, Message: message})
}

// fatal - reports a condition that ends the run
func (r *run) fatal(ctx context.Context, err error, step int) {
	msg := fmt.Sprintf("Browser error: %v", err)
	if needsInstallHint(err) {
		msg += ". " + browserInstallHint
	}
	r.emit(ctx, entities.RunEvent{Type: entities.EventError, Step: step, Message: msg, Fatal: true})
	r.emit(ctx, entities.RunEvent{Type: entities.EventStatus, Status: entities.RunStatusFailed, Message: "Browser unavailable"})
}

func (r *run) cancelled(ctx context.Context, step int) entities.RunStatus {
	r.emit(ctx, entities.RunEvent{Type: entities.EventError, Step: step, Message: "Run cancelled"})
	r.emit(ctx, entities.RunEvent{Type: entities.EventStatus, Status: entities.RunStatusCancelled, Message: "Run cancelled"})
	return entities.RunStatusCancelled
}

func needsInstallHint(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"subprocess", "executable", "launch", "install"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

var _ interfaces.PlanExecutor = (*Dispatcher)(nil)
