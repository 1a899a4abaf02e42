package browser

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/playwright-community/playwright-go"
)

// BackendPlaywright names sessions driven by playwright-go.
const BackendPlaywright = "playwright"

// playwrightSession is a Session backed by one playwright browser, context
// and page. It owns the playwright driver process and stops it on Quit.
type playwrightSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	timeout time.Duration
}

// LaunchPlaywright starts playwright and opens a page on the engine's
// browser. When install is true the driver and the engine's browser build are
// downloaded first; otherwise whatever playwright already resolves is used.
func LaunchPlaywright(engine Engine, opts LaunchOptions, install bool) (Session, error) {
	// Discard driver output, the run log carries everything useful
	runOpts := &playwright.RunOptions{
		Browsers: []string{engine.PlaywrightBrowser()},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if install {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("failed to install playwright %s: %w", engine.PlaywrightBrowser(), err)
		}
	} else {
		runOpts.SkipInstallBrowsers = true
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	session, err := openPlaywrightPage(pw, engine, opts)
	if err != nil {
		_ = pw.Stop()
		return nil, err
	}
	return session, nil
}

func openPlaywrightPage(pw *playwright.Playwright, engine Engine, opts LaunchOptions) (*playwrightSession, error) {
	var browserType playwright.BrowserType
	switch engine {
	case EngineSecondary:
		browserType = pw.Firefox
	case EngineNative:
		browserType = pw.WebKit
	default:
		browserType = pw.Chromium
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     opts.Args,
	}
	if len(opts.IgnoreDefaultArgs) > 0 {
		launchOpts.IgnoreDefaultArgs = opts.IgnoreDefaultArgs
	}
	if opts.Channel != "" {
		launchOpts.Channel = playwright.String(opts.Channel)
	}
	if opts.ExecutablePath != "" {
		launchOpts.ExecutablePath = playwright.String(opts.ExecutablePath)
	}
	if engine == EngineSecondary && len(opts.Preferences) > 0 {
		launchOpts.FirefoxUserPrefs = opts.Preferences
	}

	browser, err := browserType.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch %s: %w", engine, err)
	}

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
		IgnoreHttpsErrors: playwright.Bool(true),
	})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	page.SetDefaultTimeout(timeoutMillis(opts.Timeout))
	page.SetDefaultNavigationTimeout(timeoutMillis(opts.Timeout))

	return &playwrightSession{
		pw:      pw,
		browser: browser,
		context: context,
		page:    page,
		timeout: opts.Timeout,
	}, nil
}

func (s *playwrightSession) Backend() string {
	return BackendPlaywright
}

func (s *playwrightSession) Navigate(url string) error {
	if _, err := s.page.Goto(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (s *playwrightSession) waitFor(locator string, state *playwright.WaitForSelectorState, condition string, timeout time.Duration) (playwright.Locator, error) {
	loc := s.page.Locator(locator).First()
	err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   state,
		Timeout: playwright.Float(timeoutMillis(timeout)),
	})
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return nil, &WaitTimeoutError{Locator: locator, Condition: condition, Timeout: timeout, Err: err}
		}
		return nil, fmt.Errorf("wait for %q failed: %w", locator, err)
	}
	return loc, nil
}

func (s *playwrightSession) FindElement(locator string) (Element, error) {
	loc, err := s.waitFor(locator, playwright.WaitForSelectorStateAttached, "attached", s.timeout)
	if err != nil {
		return nil, err
	}
	return &playwrightElement{loc: loc}, nil
}

func (s *playwrightSession) IsDisplayed(locator string, timeout time.Duration) bool {
	_, err := s.WaitUntilVisible(locator, timeout)
	return err == nil
}

func (s *playwrightSession) WaitUntilVisible(locator string, timeout time.Duration) (Element, error) {
	loc, err := s.waitFor(locator, playwright.WaitForSelectorStateVisible, "visible", timeout)
	if err != nil {
		return nil, err
	}
	return &playwrightElement{loc: loc}, nil
}

func (s *playwrightSession) WaitUntilClickable(locator string, timeout time.Duration) (Element, error) {
	deadline := time.Now().Add(timeout)

	loc, err := s.waitFor(locator, playwright.WaitForSelectorStateVisible, "clickable", timeout)
	if err != nil {
		return nil, err
	}

	err = pollUntil(deadline, func() (bool, error) {
		return loc.IsEnabled()
	})
	if err != nil {
		if errors.Is(err, errPollExpired) {
			return nil, &WaitTimeoutError{Locator: locator, Condition: "clickable", Timeout: timeout}
		}
		return nil, fmt.Errorf("wait for %q failed: %w", locator, err)
	}
	return &playwrightElement{loc: loc}, nil
}

func (s *playwrightSession) WaitUntilInvisible(locator string, timeout time.Duration) error {
	_, err := s.waitFor(locator, playwright.WaitForSelectorStateHidden, "invisible", timeout)
	return err
}

func (s *playwrightSession) Screenshot() ([]byte, error) {
	data, err := s.page.Screenshot()
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return data, nil
}

func (s *playwrightSession) CurrentURL() string {
	return s.page.URL()
}

func (s *playwrightSession) Title() (string, error) {
	return s.page.Title()
}

// Quit closes page, context and browser, then stops the playwright driver.
// Every step runs even if an earlier one fails.
func (s *playwrightSession) Quit() error {
	var errs []error
	if err := s.page.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close page: %w", err))
	}
	if err := s.context.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close context: %w", err))
	}
	if err := s.browser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close browser: %w", err))
	}
	if err := s.pw.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop playwright: %w", err))
	}
	return errors.Join(errs...)
}

type playwrightElement struct {
	loc playwright.Locator
}

func (e *playwrightElement) Click() error {
	if err := e.loc.Click(); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

func (e *playwrightElement) SendKeys(text string) error {
	if err := e.loc.PressSequentially(text); err != nil {
		return fmt.Errorf("send keys failed: %w", err)
	}
	return nil
}

func (e *playwrightElement) Text() (string, error) {
	return e.loc.InnerText()
}

func (e *playwrightElement) IsDisplayed() bool {
	visible, err := e.loc.IsVisible()
	return err == nil && visible
}
