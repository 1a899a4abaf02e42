package browser

import "time"

// Session is one live browser automation session.
type Session interface {
	// Backend names the automation library driving the session
	Backend() string

	// Navigate loads url in the session's page
	Navigate(url string) error

	// FindElement returns the first element matching locator, waiting up to
	// the session's default timeout for it to be attached
	FindElement(locator string) (Element, error)

	// IsDisplayed reports whether locator becomes visible within timeout.
	// A timeout counts as "not displayed".
	IsDisplayed(locator string, timeout time.Duration) bool

	// WaitUntilVisible waits for locator to become visible
	WaitUntilVisible(locator string, timeout time.Duration) (Element, error)

	// WaitUntilClickable waits for locator to become visible and enabled
	WaitUntilClickable(locator string, timeout time.Duration) (Element, error)

	// WaitUntilInvisible waits for locator to be hidden or detached
	WaitUntilInvisible(locator string, timeout time.Duration) error

	// Screenshot captures the current viewport as PNG
	Screenshot() ([]byte, error)

	// CurrentURL is the URL of the current page
	CurrentURL() string

	// Title is the document title of the current page
	Title() (string, error)

	// Quit terminates the session and releases its transport
	Quit() error
}

// Element is a handle to one element of the current page.
type Element interface {
	Click() error
	SendKeys(text string) error
	Text() (string, error)
	IsDisplayed() bool
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}
