package executor

import "time"

// Config holds the execution tunables. It is copied into the dispatcher at
// construction and never mutated afterwards.
type Config struct {
	// Retries is the number of attempts per selector candidate
	Retries int
	// BackoffBase is multiplied by the attempt number between attempts on one candidate
	BackoffBase time.Duration

	SelectorTimeout     time.Duration
	NavigationTimeout   time.Duration
	ClickTimeout        time.Duration
	FocusClickTimeout   time.Duration
	FillTimeout         time.Duration
	UIFilterTimeout     time.Duration
	LoadStateTimeout    time.Duration
	FilterLoadTimeout   time.Duration
	ExtractReadyTimeout time.Duration

	TypeDelay          time.Duration
	SettleDelay        time.Duration
	FilterSettleDelay  time.Duration
	ExtractSettleDelay time.Duration
	CloseGrace         time.Duration

	Headless       bool
	LaunchArgs     []string
	ViewportWidth  int
	ViewportHeight int
	UserAgent      string
}

// DefaultConfig - returns the documented defaults
func DefaultConfig() Config {
	return Config{
		Retries:     3,
		BackoffBase: time.Second,

		SelectorTimeout:     10 * time.Second,
		NavigationTimeout:   30 * time.Second,
		ClickTimeout:        5 * time.Second,
		FocusClickTimeout:   2 * time.Second,
		FillTimeout:         5 * time.Second,
		UIFilterTimeout:     3 * time.Second,
		LoadStateTimeout:    15 * time.Second,
		FilterLoadTimeout:   10 * time.Second,
		ExtractReadyTimeout: 20 * time.Second,

		TypeDelay:          50 * time.Millisecond,
		SettleDelay:        time.Second,
		FilterSettleDelay:  2 * time.Second,
		ExtractSettleDelay: 2 * time.Second,
		CloseGrace:         time.Second,

		ViewportWidth:  1920,
		ViewportHeight: 1080,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
	}
}

// normalized fills unset timeouts, retries and viewport fields with defaults.
// Delays and CloseGrace keep their given value since zero is valid for them.
func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.Retries <= 0 {
		c.Retries = d.Retries
	}
	for _, t := range []struct {
		v   *time.Duration
		def time.Duration
	}{
		{&c.SelectorTimeout, d.SelectorTimeout},
		{&c.NavigationTimeout, d.NavigationTimeout},
		{&c.ClickTimeout, d.ClickTimeout},
		{&c.FocusClickTimeout, d.FocusClickTimeout},
		{&c.FillTimeout, d.FillTimeout},
		{&c.UIFilterTimeout, d.UIFilterTimeout},
		{&c.LoadStateTimeout, d.LoadStateTimeout},
		{&c.FilterLoadTimeout, d.FilterLoadTimeout},
		{&c.ExtractReadyTimeout, d.ExtractReadyTimeout},
	} {
		if *t.v <= 0 {
			*t.v = t.def
		}
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		c.ViewportWidth, c.ViewportHeight = d.ViewportWidth, d.ViewportHeight
	}
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	c.LaunchArgs = append([]string(nil), c.LaunchArgs...)
	return c
}
