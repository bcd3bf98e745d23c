package interfaces

import (
	"browser_agent/domain/entities"
	"context"
	"time"
)

// LaunchOptions configures the browser process
type LaunchOptions struct {
	Headless bool
	Args     []string
}

// ContextOptions configures a browsing context
type ContextOptions struct {
	ViewportWidth  int
	ViewportHeight int
	UserAgent      string
}

// BrowserLauncher starts browser processes
type BrowserLauncher interface {
	// Launch starts a new browser process
	Launch(ctx context.Context, opts LaunchOptions) (Browser, error)
}

// Browser is a running browser process
type Browser interface {
	// NewContext creates an isolated browsing context
	NewContext(ctx context.Context, opts ContextOptions) (BrowserContext, error)

	// Close terminates the browser process
	Close() error
}

// BrowserContext is one isolated browsing context
type BrowserContext interface {
	// NewPage opens a page in the context
	NewPage(ctx context.Context) (Page, error)

	// Close closes the context and its pages
	Close() error
}

// Element is a resolved element on the page
type Element interface {
	// Selector returns the selector the element was resolved with
	Selector() string
}

// Page defines the page-level automation surface used by step handlers.
// Implementations return entities.ErrTimeout for timeouts and
// entities.ErrDriverUnavailable once the page can no longer be driven.
type Page interface {
	// Goto navigates to a URL and waits for the load state
	Goto(ctx context.Context, url string, waitUntil entities.LoadState, timeout time.Duration) error

	// WaitForSelector waits for a selector to become visible
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (Element, error)

	// Click clicks on the element matching selector
	Click(ctx context.Context, selector string, timeout time.Duration) error

	// Fill replaces the value of an input
	Fill(ctx context.Context, selector, value string, timeout time.Duration) error

	// Type types text one character at a time
	Type(ctx context.Context, selector, text string, delay time.Duration) error

	// Press sends a key press to the focused element
	Press(ctx context.Context, key string) error

	// WaitForLoadState waits until the page reaches state
	WaitForLoadState(ctx context.Context, state entities.LoadState, timeout time.Duration) error

	// Evaluate runs a script in the page and returns its result
	Evaluate(ctx context.Context, script string) (any, error)

	// Content returns the page HTML
	Content(ctx context.Context) (string, error)

	// Title returns the page title
	Title(ctx context.Context) (string, error)

	// URL returns the current page URL
	URL() string

	// Close closes the page
	Close() error
}
