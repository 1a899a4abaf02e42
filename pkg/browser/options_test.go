package browser

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLaunchOptions_Primary(t *testing.T) {
	opts := BuildLaunchOptions(EnginePrimary, EngineSettings{
		Headless:  true,
		Timeout:   5 * time.Second,
		ExtraArgs: []string{"--lang=en-US", "--no-sandbox"},
	})

	assert.True(t, opts.Headless)
	assert.Equal(t, 5*time.Second, opts.Timeout)
	assert.Equal(t, Viewport{Width: 1920, Height: 1080}, opts.Viewport)
	assert.Contains(t, opts.Args, "--disable-blink-features=AutomationControlled")
	assert.Contains(t, opts.Args, "--window-size=1920,1080")
	assert.Equal(t, []string{"--enable-automation"}, opts.IgnoreDefaultArgs)
	assert.Empty(t, opts.Channel)

	// Extras are appended last and duplicates are kept
	n := len(opts.Args)
	assert.Equal(t, []string{"--lang=en-US", "--no-sandbox"}, opts.Args[n-2:])
	count := 0
	for _, arg := range opts.Args {
		if arg == "--no-sandbox" {
			count++
		}
	}
	assert.Equal(t, 2, count)
}

func TestBuildLaunchOptions_Tertiary(t *testing.T) {
	opts := BuildLaunchOptions(EngineTertiary, EngineSettings{})

	assert.Equal(t, "msedge", opts.Channel)
	assert.Equal(t, DefaultTimeout, opts.Timeout)
	assert.Contains(t, opts.Args, "--disable-blink-features=AutomationControlled")
	assert.NotContains(t, opts.Args, "--disable-web-security")
	assert.Equal(t, []string{"--enable-automation"}, opts.IgnoreDefaultArgs)
}

func TestBuildLaunchOptions_Secondary(t *testing.T) {
	opts := BuildLaunchOptions(EngineSecondary, EngineSettings{
		Preferences: map[string]any{
			"browser.cache.disk.enable":      "false",
			"network.http.max-connections":   float64(64),
			"intl.accept_languages":          "en-US",
			"dom.webdriver.enabled":          true,
			"media.autoplay.blocking_policy": int64(2),
		},
	})

	assert.Equal(t, []string{"--width=1920", "--height=1080"}, opts.Args)
	assert.Empty(t, opts.IgnoreDefaultArgs)
	assert.Equal(t, false, opts.Preferences["useAutomationExtension"])
	// Explicit configuration wins over the built-in anti-detection default
	assert.Equal(t, true, opts.Preferences["dom.webdriver.enabled"])
	assert.Equal(t, "false", opts.Preferences["browser.cache.disk.enable"])
	assert.Equal(t, 64, opts.Preferences["network.http.max-connections"])
	assert.Equal(t, 2, opts.Preferences["media.autoplay.blocking_policy"])
}

func TestBuildLaunchOptions_Native(t *testing.T) {
	opts := BuildLaunchOptions(EngineNative, EngineSettings{ExtraArgs: []string{"--x"}})

	assert.Equal(t, []string{"--x"}, opts.Args)
	assert.Nil(t, opts.Preferences)
	assert.Equal(t, Viewport{Width: 1920, Height: 1080}, opts.Viewport)
}

func TestBuildLaunchOptions_DoesNotAliasDefaults(t *testing.T) {
	a := BuildLaunchOptions(EnginePrimary, EngineSettings{ExtraArgs: []string{"--a"}})
	b := BuildLaunchOptions(EnginePrimary, EngineSettings{ExtraArgs: []string{"--b"}})

	assert.Equal(t, "--a", a.Args[len(a.Args)-1])
	assert.Equal(t, "--b", b.Args[len(b.Args)-1])
	assert.NotContains(t, chromiumArgs, "--a")
}

type stringer struct{ s string }

func (s stringer) String() string { return s.s }

func TestCoercePreference(t *testing.T) {
	tests := []struct {
		in   any
		want any
	}{
		{in: true, want: true},
		{in: 7, want: 7},
		{in: "text", want: "text"},
		{in: "true", want: "true"},
		{in: int64(9), want: 9},
		{in: float64(3), want: 3},
		{in: 1.5, want: "1.5"},
		{in: nil, want: ""},
		{in: stringer{"false"}, want: false},
		{in: stringer{"12"}, want: 12},
		{in: stringer{"abc"}, want: "abc"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v", tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, CoercePreference(tt.in))
		})
	}
}

func TestSplitFlag(t *testing.T) {
	name, values := splitFlag("--window-size=1920,1080")
	assert.Equal(t, "window-size", name)
	assert.Equal(t, []string{"1920,1080"}, values)

	name, values = splitFlag("--no-sandbox")
	assert.Equal(t, "no-sandbox", name)
	assert.Nil(t, values)
}

func TestApplyRodArgs_RepeatedFlags(t *testing.T) {
	opts := LaunchOptions{
		Args: []string{
			"--disable-features=Translate",
			"--no-sandbox",
			"--disable-features=MediaRouter",
		},
		IgnoreDefaultArgs: []string{"--enable-automation"},
	}

	l := applyRodArgs(launcher.New(), opts)

	assert.Equal(t, []string{"Translate", "MediaRouter"}, l.Flags[flags.Flag("disable-features")])
	assert.True(t, l.Has(flags.Flag("no-sandbox")))
	assert.False(t, l.Has(flags.Flag("enable-automation")))
}

func TestWaitTimeoutError(t *testing.T) {
	cause := errors.New("deadline")
	err := fmt.Errorf("login: %w", &WaitTimeoutError{
		Locator:   "#submit",
		Condition: "clickable",
		Timeout:   2 * time.Second,
		Err:       cause,
	})

	assert.True(t, errors.Is(err, ErrElementWaitTimeout))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), `timed out after 2s waiting for "#submit" to be clickable`)
}

func TestPollUntil(t *testing.T) {
	calls := 0
	err := pollUntil(time.Now().Add(time.Second), func() (bool, error) {
		calls++
		return calls == 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	err = pollUntil(time.Now(), func() (bool, error) { return false, nil })
	assert.ErrorIs(t, err, errPollExpired)

	boom := errors.New("boom")
	err = pollUntil(time.Now().Add(time.Second), func() (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)
}
