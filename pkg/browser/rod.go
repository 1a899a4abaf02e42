package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

// BackendRod names sessions driven by go-rod.
const BackendRod = "rod"

// applyRodArgs copies opts.Args onto l. The first occurrence of a flag
// replaces rod's default for it; later occurrences append their values.
func applyRodArgs(l *launcher.Launcher, opts LaunchOptions) *launcher.Launcher {
	seen := make(map[string]bool, len(opts.Args))
	for _, arg := range opts.Args {
		name, values := splitFlag(arg)
		if name == "" {
			continue
		}
		if seen[name] {
			l = l.Append(flags.Flag(name), values...)
			continue
		}
		seen[name] = true
		l = l.Set(flags.Flag(name), values...)
	}
	for _, arg := range opts.IgnoreDefaultArgs {
		name, _ := splitFlag(arg)
		l = l.Delete(flags.Flag(name))
	}
	return l
}

// rodSession is a Session backed by a Chromium process launched through
// rod's launcher.
type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	timeout  time.Duration
}

// LaunchRod starts Chromium and opens a blank page. With a non-empty bin the
// given binary is launched; otherwise rod looks the browser up on the host and
// downloads one when none is found.
//
// rod's launcher keys flags by name, so a flag repeated in opts.Args is
// passed once with the values of every occurrence joined by commas.
func LaunchRod(bin string, opts LaunchOptions) (Session, error) {
	l := launcher.New().Headless(opts.Headless)
	if bin != "" {
		l = l.Bin(bin)
	}
	l = applyRodArgs(l, opts)

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch chromium: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to chromium: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.Viewport.Width,
		Height:            opts.Viewport.Height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &rodSession{
		launcher: l,
		browser:  browser,
		page:     page,
		timeout:  timeout,
	}, nil
}

// splitFlag turns "--name=value" into ("name", ["value"]).
func splitFlag(arg string) (string, []string) {
	arg = strings.TrimLeft(arg, "-")
	name, value, found := strings.Cut(arg, "=")
	if !found {
		return name, nil
	}
	return name, []string{value}
}

func (s *rodSession) Backend() string {
	return BackendRod
}

func (s *rodSession) Navigate(url string) error {
	p := s.page.Timeout(s.timeout)
	defer p.CancelTimeout()

	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (s *rodSession) waitErr(locator, condition string, timeout time.Duration, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &WaitTimeoutError{Locator: locator, Condition: condition, Timeout: timeout, Err: err}
	}
	return fmt.Errorf("wait for %q failed: %w", locator, err)
}

func (s *rodSession) FindElement(locator string) (Element, error) {
	el, err := s.page.Timeout(s.timeout).Element(locator)
	if err != nil {
		return nil, s.waitErr(locator, "attached", s.timeout, err)
	}
	return &rodElement{el: el.CancelTimeout()}, nil
}

func (s *rodSession) IsDisplayed(locator string, timeout time.Duration) bool {
	_, err := s.WaitUntilVisible(locator, timeout)
	return err == nil
}

func (s *rodSession) WaitUntilVisible(locator string, timeout time.Duration) (Element, error) {
	el, err := s.page.Timeout(timeout).Element(locator)
	if err != nil {
		return nil, s.waitErr(locator, "visible", timeout, err)
	}
	if err := el.WaitVisible(); err != nil {
		return nil, s.waitErr(locator, "visible", timeout, err)
	}
	return &rodElement{el: el.CancelTimeout()}, nil
}

func (s *rodSession) WaitUntilClickable(locator string, timeout time.Duration) (Element, error) {
	el, err := s.page.Timeout(timeout).Element(locator)
	if err != nil {
		return nil, s.waitErr(locator, "clickable", timeout, err)
	}
	if err := el.WaitVisible(); err != nil {
		return nil, s.waitErr(locator, "clickable", timeout, err)
	}
	if err := el.WaitEnabled(); err != nil {
		return nil, s.waitErr(locator, "clickable", timeout, err)
	}
	return &rodElement{el: el.CancelTimeout()}, nil
}

func (s *rodSession) WaitUntilInvisible(locator string, timeout time.Duration) error {
	has, el, err := s.page.Has(locator)
	if err != nil {
		return fmt.Errorf("wait for %q failed: %w", locator, err)
	}
	if !has {
		return nil
	}

	el = el.Timeout(timeout)
	defer el.CancelTimeout()
	if err := el.WaitInvisible(); err != nil {
		return s.waitErr(locator, "invisible", timeout, err)
	}
	return nil
}

func (s *rodSession) Screenshot() ([]byte, error) {
	data, err := s.page.Screenshot(false, nil)
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return data, nil
}

func (s *rodSession) CurrentURL() string {
	info, err := s.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (s *rodSession) Title() (string, error) {
	info, err := s.page.Info()
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

// Quit closes the browser and removes the launcher's temporary profile.
func (s *rodSession) Quit() error {
	err := s.browser.Close()
	if err != nil {
		s.launcher.Kill()
	}
	s.launcher.Cleanup()
	if err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Click() error {
	if err := e.el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

func (e *rodElement) SendKeys(text string) error {
	if err := e.el.Input(text); err != nil {
		return fmt.Errorf("send keys failed: %w", err)
	}
	return nil
}

func (e *rodElement) Text() (string, error) {
	return e.el.Text()
}

func (e *rodElement) IsDisplayed() bool {
	visible, err := e.el.Visible()
	return err == nil && visible
}
