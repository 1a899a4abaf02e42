// Package browser defines the browser automation session protocol used by
// e2ekit and provides its two backends.
//
// # Engines
//
// A run targets one of four engines:
//
//   - EnginePrimary (chrome): Chromium
//   - EngineSecondary (firefox): Firefox
//   - EngineTertiary (edge): Chromium on the msedge channel
//   - EngineNative (safari): WebKit, macOS hosts only
//
// # Sessions
//
// Session is the capability set the rest of e2ekit depends on: navigate,
// find elements, bounded waits, screenshots, page metadata and quit. Locators
// are selector strings understood by the backend (CSS for both backends).
//
// Two implementations exist:
//
//   - LaunchPlaywright drives any engine through playwright-go, optionally
//     installing the matching browser build first
//   - LaunchRod drives Chromium through go-rod, either from an explicit
//     binary path or from the binary rod resolves itself
//
// Every wait is bounded. When the bound is exceeded the returned error
// satisfies errors.Is(err, ErrElementWaitTimeout).
//
// # Example Usage
//
//	opts := BuildLaunchOptions(EnginePrimary, EngineSettings{Headless: true, Timeout: 30 * time.Second})
//	session, err := LaunchPlaywright(EnginePrimary, opts, true)
//	if err != nil {
//	    return err
//	}
//	defer session.Quit()
//
//	if err := session.Navigate("https://example.com"); err != nil {
//	    return err
//	}
//	if session.IsDisplayed("#login", 5*time.Second) {
//	    el, _ := session.WaitUntilClickable("#login", 5*time.Second)
//	    _ = el.Click()
//	}
package browser
