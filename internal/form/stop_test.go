package form

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingCloser struct {
	mu    sync.Mutex
	calls int
}

func (c *countingCloser) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil
}

func (c *countingCloser) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestStopperRequestIsIdempotent(t *testing.T) {
	s := NewStopper(context.Background())
	defer s.release()
	c := &countingCloser{}
	s.Attach(c)

	require.False(t, s.Stopped())
	require.True(t, s.RequestStop())
	require.False(t, s.RequestStop())
	require.True(t, s.Stopped())
	require.Equal(t, 1, c.count())
	require.ErrorIs(t, s.Context().Err(), context.Canceled)
}

func TestStopperConcurrentRequests(t *testing.T) {
	s := NewStopper(context.Background())
	defer s.release()
	c := &countingCloser{}
	s.Attach(c)

	var wg sync.WaitGroup
	var mu sync.Mutex
	first := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.RequestStop() {
				mu.Lock()
				first++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, first)
	require.Equal(t, 1, c.count())
}

func TestStopperAttachAfterStopClosesAtOnce(t *testing.T) {
	s := NewStopper(context.Background())
	defer s.release()
	s.RequestStop()

	c := &countingCloser{}
	s.Attach(c)
	require.Equal(t, 1, c.count())
}

func TestStopperDetachLeavesSessionOpen(t *testing.T) {
	s := NewStopper(context.Background())
	defer s.release()
	c := &countingCloser{}
	s.Attach(c)
	s.Detach()

	s.RequestStop()
	require.Zero(t, c.count())
}

func TestStopperReleaseIsNotAStop(t *testing.T) {
	s := NewStopper(context.Background())
	s.release()
	require.False(t, s.Stopped())
	require.Error(t, s.Context().Err())
}

func TestStopperParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	s := NewStopper(parent)
	defer s.release()
	c := &countingCloser{}
	s.Attach(c)

	cancel()
	require.Eventually(t, func() bool { return c.count() == 1 }, time.Second, time.Millisecond)
	require.True(t, s.Stopped())
}

func TestStopperAttachAfterParentCancel(t *testing.T) {
	for i := 0; i < 100; i++ {
		parent, cancel := context.WithCancel(context.Background())
		s := NewStopper(parent)
		c := &countingCloser{}
		cancel()

		attached := make(chan struct{})
		go func() {
			s.Attach(c)
			close(attached)
		}()
		select {
		case <-attached:
		case <-time.After(time.Second):
			t.Fatalf("attach %d did not return after the parent was cancelled", i)
		}

		require.True(t, s.Stopped())
		require.Eventually(t, func() bool { return c.count() == 1 }, time.Second, time.Millisecond)
		s.release()
	}
}

func TestStopperAttachRacingRequest(t *testing.T) {
	for i := 0; i < 100; i++ {
		s := NewStopper(context.Background())
		c := &countingCloser{}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); s.RequestStop() }()
		go func() { defer wg.Done(); s.Attach(c) }()
		wg.Wait()

		require.Equal(t, 1, c.count(), "iteration %d", i)
		s.release()
	}
}
