package executor

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"browser_agent/domain/entities"
	"browser_agent/domain/interfaces"

	"github.com/sirupsen/logrus"
)

type fakeElement string

func (e fakeElement) Selector() string { return string(e) }

// fakePage is a scripted Page. Selectors listed in visibleAfter become visible
// once they have been waited on more times than the given count.
type fakePage struct {
	mu sync.Mutex

	visibleAfter map[string]int
	clickable    map[string]bool
	fillable     map[string]bool
	waitCalls    map[string]int

	html  string
	title string
	url   string

	gotoErr    error
	contentErr error
	pressErr   error
	loadErr    error
	panicOn    string
	cancelOn   string
	cancel     context.CancelFunc

	ops    []string
	closed bool
}

func newFakePage() *fakePage {
	return &fakePage{
		visibleAfter: map[string]int{},
		clickable:    map[string]bool{},
		fillable:     map[string]bool{},
		waitCalls:    map[string]int{},
		title:        "Test Page",
		url:          "https://shop.example.com/search",
	}
}

func (p *fakePage) record(op string) {
	p.ops = append(p.ops, op)
	if p.cancelOn != "" && strings.HasPrefix(op, p.cancelOn) && p.cancel != nil {
		p.cancel()
	}
}

func (p *fakePage) Goto(_ context.Context, url string, waitUntil entities.LoadState, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(fmt.Sprintf("goto %s %s", url, waitUntil))
	if p.gotoErr != nil {
		return p.gotoErr
	}
	p.url = url
	return nil
}

func (p *fakePage) WaitForSelector(_ context.Context, selector string, _ time.Duration) (interfaces.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("wait " + selector)
	p.waitCalls[selector]++
	if n, ok := p.visibleAfter[selector]; ok && p.waitCalls[selector] > n {
		return fakeElement(selector), nil
	}
	return nil, fmt.Errorf("waiting for %s: %w", selector, entities.ErrTimeout)
}

func (p *fakePage) Click(_ context.Context, selector string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.panicOn == "click" {
		panic("click exploded")
	}
	p.record("click " + selector)
	if !p.clickable[selector] {
		return fmt.Errorf("click %s: %w", selector, entities.ErrTimeout)
	}
	return nil
}

func (p *fakePage) Fill(_ context.Context, selector, value string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(fmt.Sprintf("fill %s=%s", selector, value))
	if !p.fillable[selector] {
		return fmt.Errorf("fill %s: %w", selector, entities.ErrTimeout)
	}
	return nil
}

func (p *fakePage) Type(_ context.Context, selector, text string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(fmt.Sprintf("type %s=%s", selector, text))
	return nil
}

func (p *fakePage) Press(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("press " + key)
	return p.pressErr
}

func (p *fakePage) WaitForLoadState(_ context.Context, state entities.LoadState, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("load " + string(state))
	return p.loadErr
}

func (p *fakePage) Evaluate(context.Context, string) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("evaluate")
	return true, nil
}

func (p *fakePage) Content(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("content")
	return p.html, p.contentErr
}

func (p *fakePage) Title(context.Context) (string, error) {
	return p.title, nil
}

func (p *fakePage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.record("close page")
	return nil
}

func (p *fakePage) waits(selector string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waitCalls[selector]
}

func (p *fakePage) did(op string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, o := range p.ops {
		if o == op {
			return true
		}
	}
	return false
}

type fakeLauncher struct {
	page       *fakePage
	launchErr  error
	contextErr error
	launched   []interfaces.LaunchOptions
	closes     []string
}

func (l *fakeLauncher) Launch(_ context.Context, opts interfaces.LaunchOptions) (interfaces.Browser, error) {
	l.launched = append(l.launched, opts)
	if l.launchErr != nil {
		return nil, l.launchErr
	}
	return &fakeBrowser{l: l}, nil
}

type fakeBrowser struct{ l *fakeLauncher }

func (b *fakeBrowser) NewContext(context.Context, interfaces.ContextOptions) (interfaces.BrowserContext, error) {
	if b.l.contextErr != nil {
		return nil, b.l.contextErr
	}
	return &fakeContext{l: b.l}, nil
}

func (b *fakeBrowser) Close() error {
	b.l.closes = append(b.l.closes, "browser")
	return nil
}

type fakeContext struct{ l *fakeLauncher }

func (c *fakeContext) NewPage(context.Context) (interfaces.Page, error) {
	return &closeTracking{fakePage: c.l.page, l: c.l}, nil
}

func (c *fakeContext) Close() error {
	c.l.closes = append(c.l.closes, "context")
	return nil
}

// closeTracking records page closes on the launcher so teardown order is visible
type closeTracking struct {
	*fakePage
	l *fakeLauncher
}

func (c *closeTracking) Close() error {
	c.l.closes = append(c.l.closes, "page")
	return c.fakePage.Close()
}

type fakeCatalog struct {
	profiles map[string]entities.SiteProfile
	fallback entities.SiteProfile
}

func (c fakeCatalog) Profile(name string) (entities.SiteProfile, bool) {
	if p, ok := c.profiles[name]; ok {
		return p, true
	}
	return c.fallback, false
}

func (c fakeCatalog) ProfileForURL(string) (entities.SiteProfile, bool) {
	return c.fallback, false
}

// recordingSink collects events in emission order
type recordingSink struct {
	mu     sync.Mutex
	events []entities.RunEvent
}

func (s *recordingSink) Emit(_ context.Context, e entities.RunEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) ofType(t entities.EventType) []entities.RunEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entities.RunEvent
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// recordingSleeper returns immediately and remembers requested delays
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testCatalog() fakeCatalog {
	product := entities.SiteProfile{
		Name:               "shop",
		Tag:                entities.SiteTagGenericProduct,
		ContainerSelectors: []string{"div.card"},
		Fields: entities.FieldSelectors{
			Name:  []string{"a.title"},
			Price: []string{"span.price"},
			URL:   []string{"a.title"},
		},
		MaxPriceInputs: []string{"input.max-price"},
	}
	listing := entities.SiteProfile{
		Name:               "eats",
		Tag:                entities.SiteTagListing,
		ContainerSelectors: []string{"div.venue"},
		Fields: entities.FieldSelectors{
			Name:   []string{"h4"},
			Rating: []string{"span.rating"},
			URL:    []string{"a"},
		},
		RatingControls: []string{"button[aria-label*='{rating} star']"},
	}
	return fakeCatalog{
		profiles: map[string]entities.SiteProfile{
			"shop":                                 product,
			string(entities.SiteTagGenericProduct): product,
			"eats":                                 listing,
			string(entities.SiteTagListing):        listing,
		},
		fallback: product,
	}
}

func newTestDispatcher(l *fakeLauncher, sleeper *recordingSleeper) *Dispatcher {
	return NewDispatcher(l, testCatalog(), quietLogger(), DefaultConfig(),
		WithSleeper(sleeper.Sleep),
		WithRunIDs(func() string { return "run-1" }),
		WithValueSeed(7),
	)
}

func productCard(name string, price string) string {
	return fmt.Sprintf(`<div class="card"><a class="title" href="/p/%s">%s</a><span class="price">%s</span></div>`,
		strings.ReplaceAll(strings.ToLower(name), " ", "-"), name, price)
}

func venueCard(name, rating string) string {
	return fmt.Sprintf(`<div class="venue"><a href="/r/%s"><h4>%s</h4></a><span class="rating">%s</span></div>`,
		strings.ReplaceAll(strings.ToLower(name), " ", "-"), name, rating)
}

func int64Ptr(v int64) *int64       { return &v }
func float64Ptr(v float64) *float64 { return &v }
