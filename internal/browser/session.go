package browser

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTimeout means a bounded wait elapsed without the element appearing
	ErrTimeout = errors.New("timed out waiting for element")
	// ErrClosed means the session was torn down while the call was in flight
	ErrClosed = errors.New("browser session closed")
	// ErrNotInteractable means the element exists but cannot take a click
	ErrNotInteractable = errors.New("element is not interactable")
	// ErrSession covers any other communication failure with the browser
	ErrSession = errors.New("browser session failure")
)

// IsElementError reports whether err concerns the element itself rather than
// the session: the page is still usable and another strategy may succeed.
func IsElementError(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrNotInteractable)
}

// Query locates one element. Exactly one of CSS or XPath is set.
type Query struct {
	CSS       string
	XPath     string
	Clickable bool // also wait until the element is visible
}

func (q Query) String() string {
	if q.XPath != "" {
		return "xpath " + q.XPath
	}
	return "css " + q.CSS
}

// Element is a resolved control on the current page
type Element interface {
	// Tag returns the lower-cased tag name
	Tag(ctx context.Context) (string, error)
	Click(ctx context.Context) error
	// Fill replaces the control's content with text
	Fill(ctx context.Context, text string) error
}

// Session is one live browser tab driven by the automation task.
// Close may be called from any goroutine, any number of times; calls in
// flight when it happens fail with ErrClosed.
type Session interface {
	Navigate(ctx context.Context, url string) error
	// Find waits at most timeout for the element described by q
	Find(ctx context.Context, q Query, timeout time.Duration) (Element, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// Options configures a launched browser
type Options struct {
	Headless    bool
	KeepOpen    bool // let the browser outlive this process
	Width       int
	Height      int
	UserDataDir string
	Bin         string // browser executable, looked up if empty
}
