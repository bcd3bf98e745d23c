// Package agent ties intent parsing, planning, confirmation and execution into one task.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"browser_agent/domain/entities"
	"browser_agent/domain/interfaces"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrNotConfirmed is returned when a plan with high risk steps was declined
var ErrNotConfirmed = errors.New("plan not confirmed")

// Confirmer is asked before a plan with high risk steps runs
type Confirmer func(ctx context.Context, pending []entities.PendingAction) (bool, error)

type Agent struct {
	parser   interfaces.IntentParser
	planner  interfaces.PlanGenerator
	guard    interfaces.StepGuard
	executor interfaces.PlanExecutor
	store    interfaces.RunStore
	logger   *logrus.Logger
	now      func() time.Time
}

// NewAgent - creates new agent instance. store may be nil, then runs are not kept.
func NewAgent(
	parser interfaces.IntentParser,
	planner interfaces.PlanGenerator,
	guard interfaces.StepGuard,
	executor interfaces.PlanExecutor,
	store interfaces.RunStore,
	logger *logrus.Logger,
) *Agent {
	return &Agent{
		parser:   parser,
		planner:  planner,
		guard:    guard,
		executor: executor,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

// Plan - parses input and builds its plan without running it
func (a *Agent) Plan(ctx context.Context, input string) (entities.Intent, entities.Plan, error) {
	intent, err := a.parser.ParseIntent(ctx, input)
	if err != nil {
		return entities.Intent{}, nil, fmt.Errorf("failed to parse intent: %w", err)
	}
	return intent, a.planner.GeneratePlan(intent), nil
}

// ExecuteTask - plans input, asks confirm when the plan has high risk steps, runs it
// and records the outcome. A nil confirm declines every risky plan.
func (a *Agent) ExecuteTask(ctx context.Context, input string, confirm Confirmer, sink interfaces.EventSink) (entities.Run, error) {
	intent, plan, err := a.Plan(ctx, input)
	if err != nil {
		return entities.Run{Input: input, StartedAt: a.now()}, err
	}
	a.logger.WithFields(logrus.Fields{
		"intent": intent.Kind,
		"steps":  len(plan),
	}).Info("plan ready")
	return a.ExecutePlan(ctx, input, plan, confirm, sink)
}

// ExecutePlan - runs a ready plan with the same confirmation and recording as ExecuteTask
func (a *Agent) ExecutePlan(ctx context.Context, input string, plan entities.Plan, confirm Confirmer, sink interfaces.EventSink) (entities.Run, error) {
	run := entities.Run{Input: input, StepCount: len(plan), StartedAt: a.now()}

	if pending := a.guard.PendingActions(plan); len(pending) > 0 {
		ok := false
		if confirm != nil {
			var err error
			if ok, err = confirm(ctx, pending); err != nil {
				return run, fmt.Errorf("confirmation failed: %w", err)
			}
		}
		if !ok {
			run.ID = uuid.NewString()
			run.Status = entities.RunStatusStopped
			run.FinishedAt = a.now()
			a.save(ctx, run)
			return run, ErrNotConfirmed
		}
	}

	t := &tally{}
	results, execErr := a.executor.Execute(ctx, plan, interfaces.EventSinkFunc(func(ctx context.Context, e entities.RunEvent) {
		t.observe(e)
		if sink != nil {
			sink.Emit(ctx, e)
		}
	}))

	run.ID, run.Status, run.Errors, run.Warnings = t.snapshot()
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	switch {
	case execErr != nil:
		run.Status = entities.RunStatusFailed
	case run.Status == "" && ctx.Err() != nil:
		run.Status = entities.RunStatusCancelled
	case run.Status == "":
		run.Status = entities.RunStatusCompleted
	}
	run.Results = results
	run.FinishedAt = a.now()

	a.save(ctx, run)
	return run, execErr
}

// History - most recent runs, newest first
func (a *Agent) History(ctx context.Context, limit int) ([]entities.Run, error) {
	if a.store == nil {
		return nil, nil
	}
	return a.store.ListRuns(ctx, limit)
}

// save - keeps the run even when ctx was cancelled mid run
func (a *Agent) save(ctx context.Context, run entities.Run) {
	if a.store == nil {
		return
	}
	if err := a.store.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		a.logger.WithError(err).WithField("run_id", run.ID).Warn("failed to save run")
	}
}

// tally - what the event stream says about a run
type tally struct {
	mu       sync.Mutex
	runID    string
	status   entities.RunStatus
	errors   int
	warnings int
}

func (t *tally) observe(e entities.RunEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.runID == "" {
		t.runID = e.RunID
	}
	switch e.Type {
	case entities.EventStatus:
		if e.Status != entities.RunStatusReady {
			t.status = e.Status
		}
	case entities.EventError:
		t.errors++
	case entities.EventWarning:
		t.warnings++
	}
}

func (t *tally) snapshot() (string, entities.RunStatus, int, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runID, t.status, t.errors, t.warnings
}
