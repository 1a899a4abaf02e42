package driver

import (
	"github.com/entrhq/e2ekit/pkg/browser"
)

// launchManaged installs the engine's browser build through playwright and
// launches it.
func launchManaged(engine browser.Engine, opts browser.LaunchOptions) (browser.Session, error) {
	return browser.LaunchPlaywright(engine, opts, true)
}

// launchDiscovered starts the discovered binary through go-rod.
func launchDiscovered(_ browser.Engine, opts browser.LaunchOptions) (browser.Session, error) {
	return browser.LaunchRod(opts.ExecutablePath, opts)
}

// launchNative lets the automation library resolve the browser itself.
func launchNative(engine browser.Engine, opts browser.LaunchOptions) (browser.Session, error) {
	if engine == browser.EnginePrimary {
		return browser.LaunchRod("", opts)
	}
	return browser.LaunchPlaywright(engine, opts, false)
}
