package form

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
)

// Stopper is the cross-goroutine stop signal for one run. Requesting a stop
// sets the flag, cancels the run context and tears down the attached
// session so that a wait already blocked inside the browser returns at once.
type Stopper struct {
	parent  context.Context
	ctx     context.Context
	cancel  context.CancelFunc
	unwatch func() bool
	stopped atomic.Bool

	mu      sync.Mutex
	session io.Closer
}

// NewStopper derives the run context from parent. Cancelling parent counts
// as a stop request.
func NewStopper(parent context.Context) *Stopper {
	ctx, cancel := context.WithCancel(parent)
	s := &Stopper{parent: parent, ctx: ctx, cancel: cancel}
	s.unwatch = context.AfterFunc(parent, func() { s.RequestStop() })
	return s
}

// Context is cancelled once a stop is requested
func (s *Stopper) Context() context.Context {
	return s.ctx
}

// Stopped reports whether a stop has been requested. Never reverts to false.
func (s *Stopper) Stopped() bool {
	if s.stopped.Load() {
		return true
	}
	// The AfterFunc watcher runs asynchronously; do not let a cancelled
	// parent go unnoticed until it fires
	if s.parent.Err() != nil {
		s.RequestStop()
		return true
	}
	return false
}

// RequestStop is idempotent; it reports whether this call was the first
func (s *Stopper) RequestStop() bool {
	if !s.stopped.CompareAndSwap(false, true) {
		return false
	}
	s.cancel()

	s.mu.Lock()
	c := s.session
	s.session = nil
	s.mu.Unlock()
	if c != nil {
		_ = c.Close()
	}
	return true
}

// Attach registers the session to tear down on stop. If a stop already
// happened the session is closed immediately.
func (s *Stopper) Attach(c io.Closer) {
	// Stopped may itself request the stop, so it runs before taking the lock
	if !s.Stopped() {
		s.mu.Lock()
		// RequestStop sets the flag before it takes the lock: either it finds
		// the session here or Attach sees the flag and closes it below
		if !s.stopped.Load() {
			s.session = c
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
	}
	_ = c.Close()
}

// Detach forgets the session so a late stop leaves it alone
func (s *Stopper) Detach() {
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
}

// release frees the context once the run is over. It does not count as a stop.
func (s *Stopper) release() {
	s.unwatch()
	s.cancel()
}
