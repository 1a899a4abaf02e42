// Package browsertest provides an in-memory browser.Session for tests that
// must not start a real browser.
package browsertest

import (
	"errors"
	"sync"
	"time"

	"github.com/entrhq/e2ekit/pkg/browser"
)

// BackendFake names sessions created by this package.
const BackendFake = "fake"

// Session records calls and serves canned responses.
type Session struct {
	mu sync.Mutex

	// Visible holds locators that are displayed; others time out
	Visible map[string]bool

	// ScreenshotData is returned by Screenshot unless ScreenshotErr is set
	ScreenshotData []byte
	ScreenshotErr  error

	// QuitErr is returned by Quit
	QuitErr error

	// QuitPanic makes Quit panic with this value when non-nil
	QuitPanic any

	url       string
	title     string
	quitCount int
	shots     int
	visited   []string
}

// NewSession returns a session whose screenshots are a tiny PNG header.
func NewSession() *Session {
	return &Session{
		Visible:        map[string]bool{},
		ScreenshotData: []byte("\x89PNG\r\n\x1a\n"),
		title:          "fake",
	}
}

func (s *Session) Backend() string { return BackendFake }

func (s *Session) Navigate(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.url = url
	s.visited = append(s.visited, url)
	return nil
}

func (s *Session) FindElement(locator string) (browser.Element, error) {
	return s.WaitUntilVisible(locator, 0)
}

func (s *Session) IsDisplayed(locator string, timeout time.Duration) bool {
	_, err := s.WaitUntilVisible(locator, timeout)
	return err == nil
}

func (s *Session) WaitUntilVisible(locator string, timeout time.Duration) (browser.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Visible[locator] {
		return nil, &browser.WaitTimeoutError{Locator: locator, Condition: "visible", Timeout: timeout}
	}
	return &Element{session: s, locator: locator}, nil
}

func (s *Session) WaitUntilClickable(locator string, timeout time.Duration) (browser.Element, error) {
	return s.WaitUntilVisible(locator, timeout)
}

func (s *Session) WaitUntilInvisible(locator string, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Visible[locator] {
		return &browser.WaitTimeoutError{Locator: locator, Condition: "invisible", Timeout: timeout}
	}
	return nil
}

func (s *Session) Screenshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shots++
	if s.ScreenshotErr != nil {
		return nil, s.ScreenshotErr
	}
	return s.ScreenshotData, nil
}

func (s *Session) CurrentURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

func (s *Session) Title() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title, nil
}

func (s *Session) Quit() error {
	s.mu.Lock()
	s.quitCount++
	p, err := s.QuitPanic, s.QuitErr
	s.mu.Unlock()
	if p != nil {
		panic(p)
	}
	return err
}

// QuitCount returns how many times Quit was called.
func (s *Session) QuitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quitCount
}

// Screenshots returns how many screenshots were requested.
func (s *Session) Screenshots() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shots
}

// Visited returns navigated URLs in order.
func (s *Session) Visited() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.visited...)
}

// Element is a fake element bound to a Session.
type Element struct {
	session *Session
	locator string
	typed   string
}

func (e *Element) Click() error { return nil }

func (e *Element) SendKeys(text string) error {
	e.typed += text
	return nil
}

func (e *Element) Text() (string, error) {
	return e.typed, nil
}

func (e *Element) IsDisplayed() bool {
	e.session.mu.Lock()
	defer e.session.mu.Unlock()
	return e.session.Visible[e.locator]
}

// ErrLaunch is a canned stage failure.
var ErrLaunch = errors.New("launch failed")

// Stage returns a stage function yielding session, counting its calls.
func Stage(session browser.Session, calls *int) func(browser.Engine, browser.LaunchOptions) (browser.Session, error) {
	return func(browser.Engine, browser.LaunchOptions) (browser.Session, error) {
		if calls != nil {
			*calls++
		}
		return session, nil
	}
}

// FailingStage returns a stage function that always fails with err.
func FailingStage(err error, calls *int) func(browser.Engine, browser.LaunchOptions) (browser.Session, error) {
	return func(browser.Engine, browser.LaunchOptions) (browser.Session, error) {
		if calls != nil {
			*calls++
		}
		return nil, err
	}
}
