package browser

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Default values for launch options
const (
	DefaultViewportWidth  = 1920
	DefaultViewportHeight = 1080
	DefaultTimeout        = 30 * time.Second
)

// EngineSettings are the user-facing knobs that feed BuildLaunchOptions.
type EngineSettings struct {
	Headless    bool
	Timeout     time.Duration
	ExtraArgs   []string
	Preferences map[string]any
}

// LaunchOptions is the fully resolved launch configuration of one engine.
type LaunchOptions struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Viewport is fixed for every session
	Viewport Viewport

	// Timeout is the default bound for navigation and element lookups
	Timeout time.Duration

	// Args are passed to the browser process in order, duplicates included
	Args []string

	// IgnoreDefaultArgs removes library default arguments (automation banners)
	IgnoreDefaultArgs []string

	// Preferences are Firefox user preferences
	Preferences map[string]any

	// Channel selects a browser distribution (msedge)
	Channel string

	// ExecutablePath launches an explicit browser binary
	ExecutablePath string
}

var chromiumArgs = []string{
	"--no-sandbox",
	"--disable-dev-shm-usage",
	"--disable-gpu",
	"--window-size=1920,1080",
	"--disable-extensions",
	"--disable-web-security",
	"--allow-running-insecure-content",
	"--disable-blink-features=AutomationControlled",
	"--disable-background-timer-throttling",
	"--disable-backgrounding-occluded-windows",
	"--disable-renderer-backgrounding",
	"--ignore-certificate-errors",
	"--ignore-ssl-errors",
	"--ignore-certificate-errors-spki-list",
}

var edgeArgs = []string{
	"--no-sandbox",
	"--disable-dev-shm-usage",
	"--disable-gpu",
	"--window-size=1920,1080",
	"--disable-extensions",
	"--disable-blink-features=AutomationControlled",
}

var firefoxArgs = []string{
	"--width=1920",
	"--height=1080",
}

// BuildLaunchOptions resolves the engine-specific launch configuration.
// Extra arguments are appended after the engine defaults without
// deduplication.
func BuildLaunchOptions(engine Engine, s EngineSettings) LaunchOptions {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	opts := LaunchOptions{
		Headless: s.Headless,
		Viewport: Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight},
		Timeout:  timeout,
		Channel:  engine.Channel(),
	}

	switch engine {
	case EnginePrimary:
		opts.Args = append(opts.Args, chromiumArgs...)
		opts.IgnoreDefaultArgs = []string{"--enable-automation"}
	case EngineTertiary:
		opts.Args = append(opts.Args, edgeArgs...)
		opts.IgnoreDefaultArgs = []string{"--enable-automation"}
	case EngineSecondary:
		opts.Args = append(opts.Args, firefoxArgs...)
		opts.Preferences = map[string]any{
			"dom.webdriver.enabled":  false,
			"useAutomationExtension": false,
		}
		for key, value := range s.Preferences {
			opts.Preferences[key] = CoercePreference(value)
		}
	}

	opts.Args = append(opts.Args, s.ExtraArgs...)
	return opts
}

// CoercePreference normalizes a preference value to bool, int or string.
// Values of other types are rendered as text and parsed as bool, then int,
// before falling back to the text itself.
func CoercePreference(value any) any {
	switch v := value.(type) {
	case bool, int, string:
		return v
	case int64:
		return int(v)
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < math.MaxInt32 {
			return int(v)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	}

	text := fmt.Sprint(value)
	if b, err := strconv.ParseBool(text); err == nil {
		return b
	}
	if i, err := strconv.Atoi(text); err == nil {
		return i
	}
	return text
}

// timeoutMillis converts a duration to playwright's millisecond float.
func timeoutMillis(d time.Duration) float64 {
	return float64(d / time.Millisecond)
}
