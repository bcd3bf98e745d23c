package browser

import (
	"browser_agent/domain/entities"
	"browser_agent/domain/interfaces"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"
)

// playwrightLauncher starts one playwright driver and chromium process per session
type playwrightLauncher struct {
	logger *logrus.Logger
}

// NewLauncher - creates new playwright browser launcher
func NewLauncher(logger *logrus.Logger) interfaces.BrowserLauncher {
	return &playwrightLauncher{logger: logger}
}

// Launch - starts the playwright driver and a chromium browser
func (l *playwrightLauncher) Launch(ctx context.Context, opts interfaces.LaunchOptions) (interfaces.Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     opts.Args,
	})
	if err != nil {
		if stopErr := pw.Stop(); stopErr != nil {
			l.logger.WithError(stopErr).Debug("failed to stop playwright")
		}
		return nil, fmt.Errorf("failed to launch chromium: %w", err)
	}

	l.logger.WithField("headless", opts.Headless).Debug("chromium launched")
	return &browserSession{pw: pw, browser: browser, logger: l.logger}, nil
}

type browserSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	logger  *logrus.Logger
}

// NewContext - creates an isolated context with the given viewport and user agent
func (b *browserSession) NewContext(ctx context.Context, opts interfaces.ContextOptions) (interfaces.BrowserContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	contextOptions := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
	}
	if opts.UserAgent != "" {
		contextOptions.UserAgent = playwright.String(opts.UserAgent)
	}

	bctx, err := b.browser.NewContext(contextOptions)
	if err != nil {
		return nil, mapError(err)
	}
	return &browserContext{context: bctx, logger: b.logger}, nil
}

// Close - closes the browser and stops the driver
func (b *browserSession) Close() error {
	var closeErr error
	if err := b.browser.Close(); err != nil && !isClosedError(err) {
		closeErr = fmt.Errorf("failed to close browser: %w", err)
	}
	if err := b.pw.Stop(); err != nil {
		closeErr = errors.Join(closeErr, fmt.Errorf("failed to stop playwright: %w", err))
	}
	return closeErr
}

type browserContext struct {
	context playwright.BrowserContext
	logger  *logrus.Logger
}

// NewPage - opens a page that accepts dialogs so alerts never stall a run
func (c *browserContext) NewPage(ctx context.Context) (interfaces.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page, err := c.context.NewPage()
	if err != nil {
		return nil, mapError(err)
	}
	page.OnDialog(func(dialog playwright.Dialog) {
		if err := dialog.Accept(); err != nil {
			c.logger.WithError(err).Debug("failed to accept dialog")
		}
	})
	return &pageController{page: page}, nil
}

// Close - closes the context and its pages
func (c *browserContext) Close() error {
	if err := c.context.Close(); err != nil && !isClosedError(err) {
		return fmt.Errorf("failed to close context: %w", err)
	}
	return nil
}

type element struct {
	selector string
}

func (e element) Selector() string { return e.selector }

// pageController adapts a playwright page. Calls are serialized since playwright
// pages are not meant to be driven from several goroutines at once.
type pageController struct {
	mu   sync.Mutex
	page playwright.Page
}

// Goto - navigates and waits for waitUntil
func (p *pageController) Goto(ctx context.Context, url string, waitUntil entities.LoadState, timeout time.Duration) error {
	return p.do(ctx, func() error {
		_, err := p.page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: waitUntilState(waitUntil),
			Timeout:   millis(timeout),
		})
		return err
	})
}

// WaitForSelector - waits until selector is visible
func (p *pageController) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (interfaces.Element, error) {
	err := p.do(ctx, func() error {
		_, err := p.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: millis(timeout),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return element{selector: selector}, nil
}

// Click - clicks the element matching selector
func (p *pageController) Click(ctx context.Context, selector string, timeout time.Duration) error {
	return p.do(ctx, func() error {
		return p.page.Click(selector, playwright.PageClickOptions{Timeout: millis(timeout)})
	})
}

// Fill - replaces the input value
func (p *pageController) Fill(ctx context.Context, selector, value string, timeout time.Duration) error {
	return p.do(ctx, func() error {
		return p.page.Fill(selector, value, playwright.PageFillOptions{Timeout: millis(timeout)})
	})
}

// Type - types text with a per-character delay
func (p *pageController) Type(ctx context.Context, selector, text string, delay time.Duration) error {
	return p.do(ctx, func() error {
		return p.page.Type(selector, text, playwright.PageTypeOptions{
			Delay: playwright.Float(float64(delay.Milliseconds())),
		})
	})
}

// Press - presses key on the focused element
func (p *pageController) Press(ctx context.Context, key string) error {
	return p.do(ctx, func() error {
		return p.page.Keyboard().Press(key)
	})
}

// WaitForLoadState - waits for the page load state
func (p *pageController) WaitForLoadState(ctx context.Context, state entities.LoadState, timeout time.Duration) error {
	return p.do(ctx, func() error {
		return p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
			State:   loadState(state),
			Timeout: millis(timeout),
		})
	})
}

// Evaluate - runs script in the page
func (p *pageController) Evaluate(ctx context.Context, script string) (any, error) {
	var result any
	err := p.do(ctx, func() error {
		var err error
		result, err = p.page.Evaluate(script)
		return err
	})
	return result, err
}

// Content - returns the page HTML
func (p *pageController) Content(ctx context.Context) (string, error) {
	var html string
	err := p.do(ctx, func() error {
		var err error
		html, err = p.page.Content()
		return err
	})
	return html, err
}

// Title - returns the page title
func (p *pageController) Title(ctx context.Context) (string, error) {
	var title string
	err := p.do(ctx, func() error {
		var err error
		title, err = p.page.Title()
		return err
	})
	return title, err
}

// URL - returns the current page URL
func (p *pageController) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page.URL()
}

// Close - closes the page
func (p *pageController) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.page.Close(); err != nil && !isClosedError(err) {
		return fmt.Errorf("failed to close page: %w", err)
	}
	return nil
}

// do - runs fn under the page lock with driver errors mapped to domain errors
func (p *pageController) do(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return mapError(fn())
}

// mapError - translates playwright failures to domain errors, keeping the original text
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, playwright.ErrTimeout):
		return fmt.Errorf("%w: %v", entities.ErrTimeout, err)
	case isClosedError(err):
		return fmt.Errorf("%w: %v", entities.ErrDriverUnavailable, err)
	default:
		return err
	}
}

func isClosedError(err error) bool {
	if errors.Is(err, playwright.ErrTargetClosed) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Target page, context or browser has been closed") ||
		strings.Contains(msg, "target closed") ||
		strings.Contains(msg, "Browser has been closed") ||
		strings.Contains(msg, "Connection closed")
}

func millis(d time.Duration) *float64 {
	if d <= 0 {
		return nil
	}
	return playwright.Float(float64(d.Milliseconds()))
}

func waitUntilState(state entities.LoadState) *playwright.WaitUntilState {
	switch state {
	case entities.LoadStateLoad:
		return playwright.WaitUntilStateLoad
	case entities.LoadStateDOMContentLoaded:
		return playwright.WaitUntilStateDomcontentloaded
	default:
		return playwright.WaitUntilStateNetworkidle
	}
}

func loadState(state entities.LoadState) *playwright.LoadState {
	switch state {
	case entities.LoadStateLoad:
		return playwright.LoadStateLoad
	case entities.LoadStateDOMContentLoaded:
		return playwright.LoadStateDomcontentloaded
	default:
		return playwright.LoadStateNetworkidle
	}
}

var (
	_ interfaces.BrowserLauncher = (*playwrightLauncher)(nil)
	_ interfaces.Browser         = (*browserSession)(nil)
	_ interfaces.BrowserContext  = (*browserContext)(nil)
	_ interfaces.Page            = (*pageController)(nil)
)
