package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const closeTimeout = 3 * time.Second

// RodSession drives a Chromium tab through rod
type RodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

// Launch starts a browser and opens a blank tab
func Launch(ctx context.Context, opts Options) (*RodSession, error) {
	l := launcher.New().
		Context(ctx).
		Headless(opts.Headless).
		Leakless(!opts.KeepOpen).
		Set("ignore-certificate-errors")

	bin := opts.Bin
	if bin == "" {
		bin, _ = launcher.LookPath()
	}
	if bin != "" {
		l = l.Bin(bin)
	}
	if opts.Headless {
		l = l.NoSandbox(true).
			Set("disable-dev-shm-usage").
			Set("window-size", fmt.Sprintf("%d,%d", opts.Width, opts.Height))
	}
	if opts.UserDataDir != "" {
		l = l.UserDataDir(opts.UserDataDir)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = b.Close()
		l.Kill()
		return nil, fmt.Errorf("open tab: %w", err)
	}

	if opts.Headless {
		_ = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             opts.Width,
			Height:            opts.Height,
			DeviceScaleFactor: 1,
		})
	} else {
		// Best effort, some window managers refuse
		_ = page.SetWindow(&proto.BrowserBounds{WindowState: proto.BrowserWindowStateMaximized})
	}

	return &RodSession{
		launcher: l,
		browser:  b,
		page:     page,
		closed:   make(chan struct{}),
	}, nil
}

// Page returns the underlying rod page
func (s *RodSession) Page() *rod.Page {
	return s.page
}

func (s *RodSession) Navigate(ctx context.Context, url string) error {
	if err := s.page.Context(ctx).Navigate(url); err != nil {
		return s.classify(err, "navigate "+url)
	}
	return nil
}

func (s *RodSession) Find(ctx context.Context, q Query, timeout time.Duration) (Element, error) {
	p := s.page.Context(ctx).Timeout(timeout)
	defer p.CancelTimeout()

	var el *rod.Element
	var err error
	if q.XPath != "" {
		el, err = p.ElementX(q.XPath)
	} else {
		el, err = p.Element(q.CSS)
	}
	if err != nil {
		return nil, s.classify(err, q.String())
	}

	if q.Clickable {
		if err := el.WaitVisible(); err != nil {
			return nil, s.classify(err, q.String())
		}
	}

	// Detach from the find deadline so later actions use the caller's context
	return &rodElement{el: el.Context(ctx), session: s}, nil
}

func (s *RodSession) Screenshot(ctx context.Context) ([]byte, error) {
	data, err := s.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, s.classify(err, "screenshot")
	}
	return data, nil
}

// Close shuts the browser down and kills its process. Safe to call
// concurrently with any other method.
func (s *RodSession) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.closeErr = s.browser.Timeout(closeTimeout).Close()
		s.launcher.Kill()
	})
	return s.closeErr
}

func (s *RodSession) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *RodSession) classify(err error, what string) error {
	return classify(err, what, s.isClosed())
}

func classify(err error, what string, closed bool) error {
	var notInteractable *rod.NotInteractableError
	var invisible *rod.InvisibleShapeError
	var covered *rod.CoveredError
	switch {
	case closed || errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w: %v", what, ErrClosed, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", what, ErrTimeout)
	case errors.As(err, &notInteractable), errors.As(err, &invisible), errors.As(err, &covered):
		return fmt.Errorf("%s: %w: %v", what, ErrNotInteractable, err)
	default:
		return fmt.Errorf("%s: %w: %v", what, ErrSession, err)
	}
}

type rodElement struct {
	el      *rod.Element
	session *RodSession
}

func (e *rodElement) Tag(ctx context.Context) (string, error) {
	res, err := e.el.Context(ctx).Eval(`() => this.tagName.toLowerCase()`)
	if err != nil {
		return "", e.session.classify(err, "read tag")
	}
	return res.Value.String(), nil
}

func (e *rodElement) Click(ctx context.Context) error {
	if err := e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return e.session.classify(err, "click")
	}
	return nil
}

func (e *rodElement) Fill(ctx context.Context, text string) error {
	el := e.el.Context(ctx)
	if err := el.SelectAllText(); err != nil {
		return e.session.classify(err, "clear")
	}
	if err := el.Input(text); err != nil {
		return e.session.classify(err, "type")
	}
	return nil
}
