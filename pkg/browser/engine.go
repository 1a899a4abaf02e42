package browser

import (
	"fmt"
	"runtime"
	"strings"
)

// Engine selects the browser engine of a run.
type Engine int

const (
	// EnginePrimary is Chromium
	EnginePrimary Engine = iota
	// EngineSecondary is Firefox
	EngineSecondary
	// EngineTertiary is Chromium on the Microsoft Edge channel
	EngineTertiary
	// EngineNative is WebKit, the host-native engine on macOS
	EngineNative
)

var engineNames = map[Engine]string{
	EnginePrimary:   "chrome",
	EngineSecondary: "firefox",
	EngineTertiary:  "edge",
	EngineNative:    "safari",
}

var engineAliases = map[string]Engine{
	"chrome":    EnginePrimary,
	"chromium":  EnginePrimary,
	"primary":   EnginePrimary,
	"firefox":   EngineSecondary,
	"secondary": EngineSecondary,
	"edge":      EngineTertiary,
	"msedge":    EngineTertiary,
	"tertiary":  EngineTertiary,
	"safari":    EngineNative,
	"webkit":    EngineNative,
	"native":    EngineNative,
}

// Engines returns every known engine in declaration order.
func Engines() []Engine {
	return []Engine{EnginePrimary, EngineSecondary, EngineTertiary, EngineNative}
}

// ParseEngine resolves a configuration name (case-insensitive) to an Engine.
func ParseEngine(name string) (Engine, error) {
	if e, ok := engineAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return e, nil
	}
	return 0, &UnsupportedEngineError{Name: name}
}

// String returns the canonical configuration name.
func (e Engine) String() string {
	if name, ok := engineNames[e]; ok {
		return name
	}
	return fmt.Sprintf("Engine(%d)", int(e))
}

// Valid reports whether e is one of the declared engines.
func (e Engine) Valid() bool {
	_, ok := engineNames[e]
	return ok
}

// PlaywrightBrowser returns the playwright browser family for the engine.
func (e Engine) PlaywrightBrowser() string {
	switch e {
	case EngineSecondary:
		return "firefox"
	case EngineNative:
		return "webkit"
	default:
		return "chromium"
	}
}

// Channel returns the browser distribution channel, if any.
func (e Engine) Channel() string {
	if e == EngineTertiary {
		return "msedge"
	}
	return ""
}

// RequiredPlatform returns the only GOOS the engine runs on, or "" when the
// engine is available everywhere.
func (e Engine) RequiredPlatform() string {
	if e == EngineNative {
		return "darwin"
	}
	return ""
}

// CheckPlatform returns a *PlatformMismatchError when the engine cannot run
// on goos. An empty goos means the current host.
func (e Engine) CheckPlatform(goos string) error {
	if goos == "" {
		goos = runtime.GOOS
	}
	if required := e.RequiredPlatform(); required != "" && required != goos {
		return &PlatformMismatchError{Engine: e, Platform: goos, Required: required}
	}
	return nil
}
