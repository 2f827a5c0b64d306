// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package stopper provides the cooperative shutdown signal shared by every
// capture task.
package stopper

import (
	"context"
	"sync"
)

// Stopper broadcasts a one-shot stop request. Share it by pointer.
type Stopper struct {
	mu      sync.Mutex
	stopped bool
	done    chan struct{}
}

// New returns a Stopper that has not been stopped.
func New() *Stopper {
	return &Stopper{done: make(chan struct{})}
}

// Stop sets the flag and wakes every waiter. Extra calls are no-ops.
func (s *Stopper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.done)
}

// Stopped reports whether Stop has been called.
func (s *Stopper) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Done returns a channel closed on Stop, for use in select statements.
func (s *Stopper) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until Stop is called or ctx ends.
func (s *Stopper) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StopOnDone stops s when ctx ends. The returned function releases the hook.
func (s *Stopper) StopOnDone(ctx context.Context) (release func() bool) {
	return context.AfterFunc(ctx, s.Stop)
}
