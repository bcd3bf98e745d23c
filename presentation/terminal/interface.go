package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"browser_agent/application/agent"
	"browser_agent/application/executor"
	"browser_agent/application/intent"
	"browser_agent/application/planner"
	"browser_agent/domain/entities"
	"browser_agent/domain/interfaces"
	"browser_agent/infrastructure/ai"
	"browser_agent/infrastructure/browser"
	"browser_agent/infrastructure/config"
	"browser_agent/infrastructure/events"
	"browser_agent/infrastructure/security"
	"browser_agent/infrastructure/sites"
	"browser_agent/infrastructure/storage"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

const (
	historyLimit = 10
	eventBuffer  = 256
)

// taskRunner is the part of the agent the terminal drives
type taskRunner interface {
	Plan(ctx context.Context, input string) (entities.Intent, entities.Plan, error)
	ExecuteTask(ctx context.Context, input string, confirm agent.Confirmer, sink interfaces.EventSink) (entities.Run, error)
	ExecutePlan(ctx context.Context, input string, plan entities.Plan, confirm agent.Confirmer, sink interfaces.EventSink) (entities.Run, error)
	History(ctx context.Context, limit int) ([]entities.Run, error)
}

type TerminalInterface struct {
	runner      taskRunner
	guard       interfaces.StepGuard
	logger      *logrus.Logger
	reader      *bufio.Reader
	out         io.Writer
	interactive bool
	closers     []io.Closer
}

func NewTerminalInterface(envFile string) (*TerminalInterface, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	logger := cfg.NewLogger()

	catalog, err := sites.NewBuiltinCatalog()
	if cfg.SiteProfiles != "" {
		catalog, err = sites.LoadCatalog(cfg.SiteProfiles)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load site profiles: %w", err)
	}

	rules := intent.NewRuleParser(catalog.Names())
	var parser interfaces.IntentParser = rules
	if cfg.LLMAPIKey != "" {
		llm, err := ai.NewOpenAIClient(ai.Config{
			APIKey:  cfg.LLMAPIKey,
			BaseURL: cfg.LLMAPIURL,
			Model:   cfg.LLMModel,
		}, rules, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize AI service: %w", err)
		}
		parser = llm
	} else {
		logger.Info("OPENROUTER_API_KEY not set, using rule based intent parsing")
	}

	guard := security.NewSecurityLayer(logger)
	dispatcher := executor.NewDispatcher(browser.NewLauncher(logger), catalog, logger, cfg.ExecutorConfig())

	t := &TerminalInterface{
		guard:       guard,
		logger:      logger,
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}

	var store interfaces.RunStore
	if s, err := storage.NewRunStore(cfg.RunDBPath); err != nil {
		logger.WithError(err).Warn("run history disabled")
	} else {
		store = s
		t.closers = append(t.closers, s)
	}

	t.runner = agent.NewAgent(parser, planner.NewGenerator(catalog, cfg.ComparisonSites, logger), guard, dispatcher, store, logger)
	return t, nil
}

func (t *TerminalInterface) Run() error {
	fmt.Fprintln(t.out, "Browser Agent")
	fmt.Fprintln(t.out, "=============")
	fmt.Fprintln(t.out, "Describe a task, or 'help' for commands.")
	fmt.Fprintln(t.out)

	for {
		input, err := t.readLine("> ")
		if input == "" {
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
			continue
		}

		cmd, rest, _ := strings.Cut(input, " ")
		switch strings.ToLower(cmd) {
		case "quit", "exit", "q":
			fmt.Fprintln(t.out, "Goodbye!")
			return nil
		case "help":
			t.help()
		case "history":
			t.history()
		case "plan":
			t.plan(strings.TrimSpace(rest))
		case "export":
			t.export(strings.TrimSpace(rest))
		case "run":
			t.runFile(strings.TrimSpace(rest))
		default:
			t.runTask(input)
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
	}
}

// readLine - trimmed line; the prompt is shown only on a terminal
func (t *TerminalInterface) readLine(prompt string) (string, error) {
	if t.interactive {
		fmt.Fprint(t.out, prompt)
	}
	line, err := t.reader.ReadString('\n')
	return strings.TrimSpace(line), err
}

func (t *TerminalInterface) help() {
	fmt.Fprintln(t.out, "  <task>                plan and run a task, e.g. Find MacBook Air under 100000")
	fmt.Fprintln(t.out, "  plan <task>           show the plan without running it")
	fmt.Fprintln(t.out, "  export <file> <task>  write the plan as JSON")
	fmt.Fprintln(t.out, "  run <file>            run a JSON plan")
	fmt.Fprintln(t.out, "  history               recent runs")
	fmt.Fprintln(t.out, "  exit                  quit")
}

func (t *TerminalInterface) history() {
	runs, err := t.runner.History(context.Background(), historyLimit)
	if err != nil {
		fmt.Fprintf(t.out, "Failed to load history: %v\n", err)
		return
	}
	printHistory(t.out, runs)
}

func (t *TerminalInterface) plan(input string) {
	if input == "" {
		fmt.Fprintln(t.out, "Usage: plan <task>")
		return
	}
	in, plan, err := t.runner.Plan(context.Background(), input)
	if err != nil {
		fmt.Fprintf(t.out, "Failed to plan: %v\n", err)
		return
	}
	fmt.Fprintf(t.out, "Intent: %s\n", in.Kind)
	printPlan(t.out, plan, t.guard)
}

func (t *TerminalInterface) export(args string) {
	path, task, _ := strings.Cut(args, " ")
	if path == "" || strings.TrimSpace(task) == "" {
		fmt.Fprintln(t.out, "Usage: export <file> <task>")
		return
	}
	_, plan, err := t.runner.Plan(context.Background(), strings.TrimSpace(task))
	if err != nil {
		fmt.Fprintf(t.out, "Failed to plan: %v\n", err)
		return
	}
	data, err := entities.EncodePlan(plan)
	if err == nil {
		err = os.WriteFile(path, data, 0o644)
	}
	if err != nil {
		fmt.Fprintf(t.out, "Failed to export plan: %v\n", err)
		return
	}
	fmt.Fprintf(t.out, "Wrote %d steps to %s\n", len(plan), path)
}

func (t *TerminalInterface) runFile(path string) {
	if path == "" {
		fmt.Fprintln(t.out, "Usage: run <file>")
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(t.out, "Failed to read plan: %v\n", err)
		return
	}
	plan, err := entities.DecodePlan(data)
	if err != nil {
		fmt.Fprintf(t.out, "Invalid plan: %v\n", err)
		return
	}
	t.execute("plan file "+path, func(ctx context.Context, sink interfaces.EventSink) (entities.Run, error) {
		return t.runner.ExecutePlan(ctx, "run "+path, plan, t.confirm, sink)
	})
}

func (t *TerminalInterface) runTask(input string) {
	t.execute(input, func(ctx context.Context, sink interfaces.EventSink) (entities.Run, error) {
		return t.runner.ExecuteTask(ctx, input, t.confirm, sink)
	})
}

// execute - Ctrl+C cancels the running task, not the terminal
func (t *TerminalInterface) execute(label string, fn func(context.Context, interfaces.EventSink) (entities.Run, error)) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sink interfaces.EventSink = NewPrinter(t.out)
	if t.logger.IsLevelEnabled(logrus.DebugLevel) {
		sink = events.Multi{sink, events.NewLogSink(t.logger)}
	}
	async := events.NewAsyncSink(sink, eventBuffer)

	fmt.Fprintf(t.out, "\nStarting task: %s\n", label)
	run, err := fn(ctx, async)
	async.Close()
	if n := async.Dropped(); n > 0 {
		t.logger.WithField("dropped", n).Warn("terminal fell behind, some progress lines were skipped")
	}

	switch {
	case errors.Is(err, agent.ErrNotConfirmed):
		fmt.Fprintln(t.out, "Plan not confirmed, nothing was run.")
		return
	case err != nil:
		fmt.Fprintf(t.out, "\nTask failed: %v\n\n", err)
		return
	}

	fmt.Fprintf(t.out, "\nRun %s %s: %d results, %d warnings, %d errors\n",
		shortID(run.ID), run.Status, len(run.Results), run.Warnings, run.Errors)
	printResults(t.out, run.Results)
	fmt.Fprintln(t.out)
}

// confirm - asks before risky plans; without a terminal the answer is no
func (t *TerminalInterface) confirm(_ context.Context, pending []entities.PendingAction) (bool, error) {
	fmt.Fprintln(t.out, "This plan includes steps that change state on the site:")
	for _, p := range pending {
		fmt.Fprintf(t.out, "  step %d %s: %s\n", p.Step, p.Action, p.Reason)
	}
	if !t.interactive {
		fmt.Fprintln(t.out, "Not running interactively, declining.")
		return false, nil
	}

	answer, err := t.readLine("Proceed? [y/N] ")
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (t *TerminalInterface) Close() error {
	var errs []error
	for _, c := range t.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
