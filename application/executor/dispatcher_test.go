package executor

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"browser_agent/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func searchPage() *fakePage {
	page := newFakePage()
	page.visibleAfter["input.search"] = 0
	page.clickable["input.search"] = true
	page.clickable["button.go"] = true
	page.html = "<html><body>" +
		productCard("MacBook Air M2", "₹89,990") +
		productCard("MacBook Pro 16", "₹1,24,990") +
		productCard("Laptop Sleeve", "₹99") +
		productCard("MacBook Air M1", "₹64,999") +
		productCard("MacBook Air M3", "₹79,999") +
		productCard("MacBook Air 2020", "₹54,999") +
		"</body></html>"
	return page
}

func TestDispatcher_SearchAndExtract(t *testing.T) {
	page := searchPage()
	launcher := &fakeLauncher{page: page}
	sink := &recordingSink{}
	d := newTestDispatcher(launcher, &recordingSleeper{})

	plan := entities.Plan{
		entities.Navigate{URL: "https://shop.example.com"},
		entities.WaitFor{Selectors: []string{"input.search"}},
		entities.Type{Selectors: []string{"input.search"}, Value: "MacBook Air"},
		entities.Click{Selectors: []string{"button.go"}, WaitAfter: entities.LoadStateNetworkIdle},
		entities.ExtractProducts{Count: 3, Site: string(entities.SiteTagGenericProduct), MaxPrice: int64Ptr(100000)},
	}

	results, err := d.Execute(context.Background(), plan, sink)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, item := range results {
		require.NotNil(t, item.Price)
		assert.LessOrEqual(t, *item.Price, int64(100000))
		assert.GreaterOrEqual(t, *item.Price, int64(100))
		assert.Equal(t, entities.SiteTagGenericProduct, item.Site)
	}
	assert.Equal(t, "MacBook Air M2", results[0].Name)
	assert.Equal(t, "https://shop.example.com/p/macbook-air-m2", results[0].URL)

	assert.Empty(t, sink.ofType(entities.EventError))
	assert.Len(t, sink.ofType(entities.EventActionStart), 5)
	assert.Len(t, sink.ofType(entities.EventActionComplete), 5)

	statuses := sink.ofType(entities.EventStatus)
	require.Len(t, statuses, 2)
	assert.Equal(t, entities.RunStatusReady, statuses[0].Status)
	assert.Equal(t, entities.RunStatusCompleted, statuses[1].Status)

	assert.True(t, page.did("goto https://shop.example.com networkidle"))
	assert.True(t, page.did("type input.search=MacBook Air"))
	assert.True(t, page.did("click button.go"))
	assert.Equal(t, []string{"page", "context", "browser"}, launcher.closes)

	for _, e := range sink.events {
		assert.Equal(t, "run-1", e.RunID)
	}
}

func TestDispatcher_EventOrdering(t *testing.T) {
	page := searchPage()
	sink := &recordingSink{}
	d := newTestDispatcher(&fakeLauncher{page: page}, &recordingSleeper{})

	plan := entities.Plan{
		entities.Navigate{URL: "https://shop.example.com"},
		entities.WaitFor{Selectors: []string{"#missing"}},
		entities.ExtractProducts{Count: 2},
	}
	_, err := d.Execute(context.Background(), plan, sink)
	require.NoError(t, err)

	step := 0
	open := false
	for _, e := range sink.events {
		switch e.Type {
		case entities.EventActionStart:
			require.False(t, open, "step %d started before step %d completed", e.Step, step)
			require.Equal(t, step+1, e.Step)
			require.Equal(t, len(plan), e.TotalSteps)
			step, open = e.Step, true
		case entities.EventActionComplete:
			require.True(t, open)
			require.Equal(t, step, e.Step)
			open = false
		case entities.EventAction, entities.EventWarning:
			require.True(t, open, "%s event outside a step", e.Type)
		}
	}
	assert.Equal(t, len(plan), step)

	warnings := sink.ofType(entities.EventWarning)
	require.Len(t, warnings, 1)
	assert.Equal(t, "Element not found: #missing", warnings[0].Message)
}

func TestDispatcher_UnsupportedStopsRun(t *testing.T) {
	sink := &recordingSink{}
	d := newTestDispatcher(&fakeLauncher{page: newFakePage()}, &recordingSleeper{})

	plan := entities.Plan{
		entities.Navigate{URL: "https://shop.example.com"},
		entities.Unsupported{Reason: "Intent 'book_flight' not handled yet."},
		entities.Navigate{URL: "https://a.example.com"},
		entities.Navigate{URL: "https://b.example.com"},
		entities.Navigate{URL: "https://c.example.com"},
	}
	results, err := d.Execute(context.Background(), plan, sink)
	require.NoError(t, err)
	assert.Empty(t, results)

	errs := sink.ofType(entities.EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, 2, errs[0].Step)
	assert.Equal(t, "Intent 'book_flight' not handled yet.", errs[0].Message)

	for _, e := range sink.ofType(entities.EventActionStart) {
		assert.LessOrEqual(t, e.Step, 2)
	}
	for _, e := range sink.ofType(entities.EventActionComplete) {
		assert.NotEqual(t, 2, e.Step)
	}

	statuses := sink.ofType(entities.EventStatus)
	assert.Equal(t, entities.RunStatusStopped, statuses[len(statuses)-1].Status)
}

func TestDispatcher_LaunchFailure(t *testing.T) {
	sink := &recordingSink{}
	launcher := &fakeLauncher{launchErr: errors.New("Executable doesn't exist at /ms-playwright/chromium")}
	d := newTestDispatcher(launcher, &recordingSleeper{})

	results, err := d.Execute(context.Background(), entities.Plan{entities.Navigate{URL: "https://shop.example.com"}}, sink)
	require.Error(t, err)
	require.NotNil(t, results)
	assert.Empty(t, results)

	errs := sink.ofType(entities.EventError)
	require.Len(t, errs, 1)
	assert.True(t, errs[0].Fatal)
	assert.Contains(t, errs[0].Message, "install chromium")
	assert.Empty(t, sink.ofType(entities.EventActionStart))
}

func TestDispatcher_ContextFailureIsFatal(t *testing.T) {
	sink := &recordingSink{}
	launcher := &fakeLauncher{page: newFakePage(), contextErr: errors.New("subprocess exited")}
	d := newTestDispatcher(launcher, &recordingSleeper{})

	results, err := d.Execute(context.Background(), entities.Plan{entities.Navigate{URL: "https://shop.example.com"}}, sink)
	require.NoError(t, err)
	assert.Empty(t, results)

	errs := sink.ofType(entities.EventError)
	require.Len(t, errs, 1)
	assert.True(t, errs[0].Fatal)
	assert.Contains(t, errs[0].Message, "install chromium")
	assert.Empty(t, sink.ofType(entities.EventActionStart))
	assert.Equal(t, []string{"browser"}, launcher.closes)
}

func TestDispatcher_StepErrorDoesNotStopRun(t *testing.T) {
	page := searchPage()
	sink := &recordingSink{}
	d := newTestDispatcher(&fakeLauncher{page: page}, &recordingSleeper{})

	plan := entities.Plan{
		entities.Type{Selectors: []string{"#nope"}, Value: "query"},
		entities.Navigate{URL: "https://shop.example.com/next"},
	}
	_, err := d.Execute(context.Background(), plan, sink)
	require.NoError(t, err)

	errs := sink.ofType(entities.EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, 1, errs[0].Step)
	assert.True(t, strings.HasPrefix(errs[0].Message, "Error in type: "), errs[0].Message)

	assert.Len(t, sink.ofType(entities.EventActionComplete), 2)
	assert.True(t, page.did("goto https://shop.example.com/next networkidle"))
}

func TestDispatcher_NavigationTimeoutIsWarning(t *testing.T) {
	page := newFakePage()
	page.gotoErr = fmt.Errorf("goto: %w", entities.ErrTimeout)
	sink := &recordingSink{}
	d := newTestDispatcher(&fakeLauncher{page: page}, &recordingSleeper{})

	_, err := d.Execute(context.Background(), entities.Plan{entities.Navigate{URL: "https://slow.example.com"}}, sink)
	require.NoError(t, err)

	assert.Empty(t, sink.ofType(entities.EventError))
	warnings := sink.ofType(entities.EventWarning)
	require.Len(t, warnings, 1)
	assert.Equal(t, "Navigation timeout, continuing...", warnings[0].Message)
}

func TestDispatcher_ClickFallsBackToEnter(t *testing.T) {
	page := newFakePage()
	sink := &recordingSink{}
	d := newTestDispatcher(&fakeLauncher{page: page}, &recordingSleeper{})

	_, err := d.Execute(context.Background(), entities.Plan{entities.Click{Selectors: []string{"#a", "#b"}}}, sink)
	require.NoError(t, err)

	assert.True(t, page.did("click #a"))
	assert.True(t, page.did("click #b"))
	assert.True(t, page.did("press Enter"))
	assert.Empty(t, sink.ofType(entities.EventError))

	var messages []string
	for _, e := range sink.ofType(entities.EventAction) {
		messages = append(messages, e.Message)
	}
	assert.Contains(t, messages, "Pressed Enter")
}

func TestDispatcher_PanickingHandlerFailsOnlyItsStep(t *testing.T) {
	page := newFakePage()
	page.panicOn = "click"
	sink := &recordingSink{}
	d := newTestDispatcher(&fakeLauncher{page: page}, &recordingSleeper{})

	plan := entities.Plan{
		entities.Click{Selectors: []string{"#a"}},
		entities.Navigate{URL: "https://shop.example.com"},
	}
	_, err := d.Execute(context.Background(), plan, sink)
	require.NoError(t, err)

	errs := sink.ofType(entities.EventError)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "click exploded")
	assert.True(t, page.did("goto https://shop.example.com networkidle"))
}

func TestDispatcher_DriverLossEndsRun(t *testing.T) {
	page := newFakePage()
	page.gotoErr = fmt.Errorf("target closed: %w", entities.ErrDriverUnavailable)
	sink := &recordingSink{}
	d := newTestDispatcher(&fakeLauncher{page: page}, &recordingSleeper{})

	plan := entities.Plan{
		entities.Navigate{URL: "https://shop.example.com"},
		entities.Navigate{URL: "https://shop.example.com/2"},
	}
	_, err := d.Execute(context.Background(), plan, sink)
	require.NoError(t, err)

	errs := sink.ofType(entities.EventError)
	require.Len(t, errs, 1)
	assert.True(t, errs[0].Fatal)
	assert.Len(t, sink.ofType(entities.EventActionStart), 1)

	statuses := sink.ofType(entities.EventStatus)
	assert.Equal(t, entities.RunStatusFailed, statuses[len(statuses)-1].Status)
}

func TestDispatcher_Cancellation(t *testing.T) {
	page := newFakePage()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	page.cancelOn = "goto"
	page.cancel = cancel

	sink := &recordingSink{}
	sleeper := &recordingSleeper{}
	d := newTestDispatcher(&fakeLauncher{page: page}, sleeper)

	plan := entities.Plan{
		entities.Navigate{URL: "https://shop.example.com"},
		entities.Navigate{URL: "https://shop.example.com/2"},
	}
	results, err := d.Execute(ctx, plan, sink)
	require.NoError(t, err)
	assert.Empty(t, results)

	assert.Len(t, sink.ofType(entities.EventActionStart), 1)
	errs := sink.ofType(entities.EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, "Run cancelled", errs[0].Message)

	statuses := sink.ofType(entities.EventStatus)
	assert.Equal(t, entities.RunStatusCancelled, statuses[len(statuses)-1].Status)
	assert.NotContains(t, sleeper.delays, DefaultConfig().CloseGrace)
}

func TestDispatcher_PriceBoundsCarryIntoExtraction(t *testing.T) {
	page := searchPage()
	page.fillable["input.max-price"] = true
	sink := &recordingSink{}
	d := newTestDispatcher(&fakeLauncher{page: page}, &recordingSleeper{})

	plan := entities.Plan{
		entities.FilterPrice{MaxPrice: int64Ptr(70000)},
		entities.ExtractProducts{Count: 5},
	}
	results, err := d.Execute(context.Background(), plan, sink)
	require.NoError(t, err)

	require.Len(t, results, 2)
	for _, item := range results {
		assert.LessOrEqual(t, *item.Price, int64(70000))
	}
	assert.True(t, page.did("fill input.max-price=70000"))

	var filtered *entities.RunEvent
	for _, e := range sink.ofType(entities.EventAction) {
		if e.Action == entities.ActionFilterPrice && e.Count != nil {
			e := e
			filtered = &e
		}
	}
	require.NotNil(t, filtered)
	assert.Equal(t, "Filtered: 2 items", filtered.Message)
}

func TestDispatcher_RatingFilterOnListing(t *testing.T) {
	page := newFakePage()
	page.html = "<html><body>" +
		venueCard("Spice Route", "4.5") +
		venueCard("Curry House", "3.9") +
		venueCard("Noodle Bar", "4.0") +
		venueCard("Dosa Corner", "3.2") +
		venueCard("Tandoor Nights", "2.8") +
		"</body></html>"
	page.clickable["button[aria-label*='4 star']"] = true
	sink := &recordingSink{}
	d := newTestDispatcher(&fakeLauncher{page: page}, &recordingSleeper{})

	plan := entities.Plan{
		entities.FilterRating{MinRating: float64Ptr(4.0)},
		entities.ExtractProducts{Count: 5, Site: "eats"},
	}
	results, err := d.Execute(context.Background(), plan, sink)
	require.NoError(t, err)
	require.Len(t, results, 2)

	var filterEvent *entities.RunEvent
	for _, e := range sink.ofType(entities.EventAction) {
		if e.Action == entities.ActionFilterRating && e.Count != nil {
			e := e
			filterEvent = &e
		}
	}
	require.NotNil(t, filterEvent)
	assert.Equal(t, 2, *filterEvent.Count)
	assert.Equal(t, "Filtered: 2 restaurants with 4+ rating", filterEvent.Message)
}

func TestDispatcher_EmptyExtractionWarns(t *testing.T) {
	page := newFakePage()
	page.html = "<html><body><p>nothing here</p></body></html>"
	sink := &recordingSink{}
	d := newTestDispatcher(&fakeLauncher{page: page}, &recordingSleeper{})

	results, err := d.Execute(context.Background(), entities.Plan{entities.ExtractProducts{Count: 3}}, sink)
	require.NoError(t, err)
	assert.Empty(t, results)

	warnings := sink.ofType(entities.EventWarning)
	require.Len(t, warnings, 1)
	assert.Equal(t, noResultsWarning, warnings[0].Message)
}

func TestDispatcher_ContentFailureIsExtractionError(t *testing.T) {
	page := newFakePage()
	page.contentErr = errors.New("execution context was destroyed")
	sink := &recordingSink{}
	d := newTestDispatcher(&fakeLauncher{page: page}, &recordingSleeper{})

	results, err := d.Execute(context.Background(), entities.Plan{entities.ExtractProducts{Count: 3}}, sink)
	require.NoError(t, err)
	assert.Empty(t, results)

	errs := sink.ofType(entities.EventError)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "Extraction error: execution context was destroyed")
	assert.Contains(t, errs[0].Message, "Page title: Test Page")
}

func TestDispatcher_FillFormFieldSynthesizesValues(t *testing.T) {
	page := newFakePage()
	page.visibleAfter["input[name='email']"] = 0
	page.visibleAfter["input[id='phone']"] = 0
	page.fillable["input[name='email']"] = true
	page.fillable["input[id='phone']"] = true
	sink := &recordingSink{}
	d := newTestDispatcher(&fakeLauncher{page: page}, &recordingSleeper{})

	plan := entities.Plan{
		entities.FillFormField{FieldName: "email", GenerateIfNeeded: true},
		entities.FillFormField{FieldName: "phone"},
		entities.FillFormField{FieldName: "nickname", Value: "sam"},
	}
	_, err := d.Execute(context.Background(), plan, sink)
	require.NoError(t, err)

	var email, phone string
	for _, op := range page.ops {
		if v, ok := strings.CutPrefix(op, "fill input[name='email']="); ok {
			email = v
		}
		if v, ok := strings.CutPrefix(op, "fill input[id='phone']="); ok {
			phone = v
		}
	}
	assert.Regexp(t, regexp.MustCompile(`^temp_[a-z0-9]{8}@example\.com$`), email)
	assert.Regexp(t, regexp.MustCompile(`^\+91[7-9]\d{9}$`), phone)

	errs := sink.ofType(entities.EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, 3, errs[0].Step)
	assert.Contains(t, errs[0].Message, "field not found: nickname")
}

func TestDispatcher_SubmitForm(t *testing.T) {
	page := newFakePage()
	page.visibleAfter["input[type='submit']"] = 0
	page.clickable["input[type='submit']"] = true
	sink := &recordingSink{}
	d := newTestDispatcher(&fakeLauncher{page: page}, &recordingSleeper{})

	_, err := d.Execute(context.Background(), entities.Plan{entities.SubmitForm{}}, sink)
	require.NoError(t, err)

	assert.True(t, page.did("click input[type='submit']"))
	assert.False(t, page.did("press Enter"))
	assert.True(t, page.did("load networkidle"))
	assert.Empty(t, sink.ofType(entities.EventError))
}

func TestDispatcher_HeadfulLaunchHidesAutomation(t *testing.T) {
	launcher := &fakeLauncher{page: newFakePage()}
	d := newTestDispatcher(launcher, &recordingSleeper{})

	_, err := d.Execute(context.Background(), entities.Plan{}, &recordingSink{})
	require.NoError(t, err)

	require.Len(t, launcher.launched, 1)
	assert.False(t, launcher.launched[0].Headless)
	assert.Contains(t, launcher.launched[0].Args, "--disable-blink-features=AutomationControlled")
}

func TestDispatcher_ResultBound(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 8).Draw(rt, "count")
		cards := rapid.IntRange(0, 12).Draw(rt, "cards")

		var b strings.Builder
		for i := 0; i < cards; i++ {
			price := rapid.Int64Range(1, 500000).Draw(rt, "price")
			b.WriteString(productCard(fmt.Sprintf("Item number %d", i), fmt.Sprintf("₹%d", price)))
		}
		page := newFakePage()
		page.html = "<html><body>" + b.String() + "</body></html>"

		sink := &recordingSink{}
		d := newTestDispatcher(&fakeLauncher{page: page}, &recordingSleeper{})
		results, err := d.Execute(context.Background(), entities.Plan{entities.ExtractProducts{Count: count}}, sink)
		if err != nil {
			rt.Fatalf("execute: %v", err)
		}
		if len(results) > count {
			rt.Fatalf("%d results for count %d", len(results), count)
		}
		for _, item := range results {
			if item.Price == nil || *item.Price < 100 {
				rt.Fatalf("invalid item kept: %+v", item)
			}
		}
	})
}
