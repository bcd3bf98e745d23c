package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"browser_agent/domain/entities"
)

const enterKey = "Enter"

// navigate - loads the URL; a timeout is a warning since most pages are usable by then
func (r *run) navigate(ctx context.Context, s entities.Navigate) error {
	r.emit(ctx, entities.RunEvent{
		Type:    entities.EventAction,
		Action:  s.Action(),
		Target:  s.URL,
		Message: "Navigating to " + s.URL,
	})

	waitUntil := s.WaitUntil
	if waitUntil == "" {
		waitUntil = entities.LoadStateNetworkIdle
	}

	err := r.page.Goto(ctx, s.URL, waitUntil, r.cfg.NavigationTimeout)
	switch {
	case err == nil:
	case errors.Is(err, entities.ErrTimeout) && ctx.Err() == nil:
		r.warn(ctx, s.Action(), "Navigation timeout, continuing...")
		return nil
	default:
		return fmt.Errorf("navigation to %s failed: %w", s.URL, err)
	}

	title, err := r.page.Title(ctx)
	if err != nil {
		r.logger.WithError(err).Debug("failed to read page title")
	}
	r.action(ctx, s.Action(), "✓ Loaded: "+truncate(title, 50))
	return nil
}

// waitFor - a miss is a warning, never a step error
func (r *run) waitFor(ctx context.Context, s entities.WaitFor) error {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = r.cfg.SelectorTimeout
	}
	el, found, err := r.resolver.Resolve(ctx, s.Selectors, timeout)
	if err != nil {
		return err
	}
	if !found {
		r.warn(ctx, s.Action(), "Element not found: "+truncate(strings.Join(s.Selectors, ", "), 50))
		return nil
	}
	r.action(ctx, s.Action(), "Found: "+truncate(el.Selector(), 50))
	return nil
}

func (r *run) typeText(ctx context.Context, s entities.Type) error {
	el, found, err := r.resolver.Resolve(ctx, s.Selectors, r.cfg.SelectorTimeout)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("input not found: %s", truncate(strings.Join(s.Selectors, ", "), 80))
	}
	selector := el.Selector()

	if s.ClearFirst {
		if err := r.page.Fill(ctx, selector, "", r.cfg.FillTimeout); err != nil {
			return fmt.Errorf("failed to clear input: %w", err)
		}
	}
	if _, err := r.attempt(ctx, "focus click", func(ctx context.Context) error {
		return r.page.Click(ctx, selector, r.cfg.FocusClickTimeout)
	}); err != nil {
		return err
	}
	if err := r.page.Type(ctx, selector, s.Value, r.cfg.TypeDelay); err != nil {
		return fmt.Errorf("failed to type into %s: %w", selector, err)
	}

	r.action(ctx, s.Action(), fmt.Sprintf("Typed: '%s...'", truncate(s.Value, 30)))
	return nil
}

// click - tries each candidate, then presses Enter
func (r *run) click(ctx context.Context, s entities.Click) error {
	chain := make([]strategy, 0, len(s.Selectors)+1)
	for _, selector := range s.Selectors {
		selector := selector // per-iteration copy; go directive is 1.21
		chain = append(chain, strategy{name: selector, run: func(ctx context.Context) error {
			return r.page.Click(ctx, selector, r.cfg.ClickTimeout)
		}})
	}
	chain = append(chain, strategy{name: enterKey, run: func(ctx context.Context) error {
		return r.page.Press(ctx, enterKey)
	}})

	used, err := r.firstSuccess(ctx, chain)
	if err != nil {
		return err
	}
	switch used {
	case "":
		return fmt.Errorf("nothing to click: %s", truncate(strings.Join(s.Selectors, ", "), 80))
	case enterKey:
		r.action(ctx, s.Action(), "Pressed Enter")
	default:
		r.action(ctx, s.Action(), "Clicked")
	}

	if s.WaitAfter != "" {
		warning := fmt.Sprintf("Page did not reach %s after click, continuing...", s.WaitAfter)
		if err := r.waitSoft(ctx, s.Action(), s.WaitAfter, r.cfg.LoadStateTimeout, warning); err != nil {
			return err
		}
		return r.sleep(ctx, r.cfg.SettleDelay)
	}
	return nil
}

// fillFormField - fails the step when no input matches the field name
func (r *run) fillFormField(ctx context.Context, s entities.FillFormField) error {
	value := s.Value
	if value == "" || s.GenerateIfNeeded {
		value = r.values.Generate(s.FieldName)
	}

	el, found, err := r.resolver.Resolve(ctx, fieldCandidates(s.FieldName), r.cfg.SelectorTimeout)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("field not found: %s", s.FieldName)
	}
	if err := r.page.Fill(ctx, el.Selector(), value, r.cfg.FillTimeout); err != nil {
		return fmt.Errorf("failed to fill %s: %w", s.FieldName, err)
	}

	r.action(ctx, s.Action(), fmt.Sprintf("Filled %s: %s", s.FieldName, truncate(value, 30)))
	return nil
}

var submitCandidates = []string{
	"button[type='submit']",
	"input[type='submit']",
	"button:has-text('Submit')",
}

func (r *run) submitForm(ctx context.Context, s entities.SubmitForm) error {
	var chain []strategy
	el, found, err := r.resolver.Resolve(ctx, submitCandidates, r.cfg.SelectorTimeout)
	if err != nil {
		return err
	}
	if found {
		selector := el.Selector()
		chain = append(chain, strategy{name: selector, run: func(ctx context.Context) error {
			return r.page.Click(ctx, selector, r.cfg.ClickTimeout)
		}})
	}
	chain = append(chain, strategy{name: enterKey, run: func(ctx context.Context) error {
		return r.page.Press(ctx, enterKey)
	}})

	used, err := r.firstSuccess(ctx, chain)
	if err != nil {
		return err
	}
	if used == "" {
		return fmt.Errorf("could not submit form")
	}
	r.action(ctx, s.Action(), "Form submitted")

	waitAfter := s.WaitAfter
	if waitAfter == "" {
		waitAfter = entities.LoadStateNetworkIdle
	}
	return r.waitSoft(ctx, s.Action(), waitAfter, r.cfg.LoadStateTimeout, "")
}

// fieldCandidates - selectors that commonly locate an input by its field name
func fieldCandidates(field string) []string {
	quoted := strings.ReplaceAll(field, "'", `\'`)
	candidates := []string{
		fmt.Sprintf("input[name='%s']", quoted),
		fmt.Sprintf("input[id='%s']", quoted),
		fmt.Sprintf("input[placeholder*='%s']", quoted),
	}
	if isPlainIdent(field) {
		candidates = append(candidates, "#"+field)
	}
	return candidates
}

func isPlainIdent(s string) bool {
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		return false
	}
	for _, c := range s {
		if !(c == '-' || c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
