package logger

import (
	"sync"
)

// Guard keeps the background-flushed sinks alive. It is shared: every holder
// calls Retain when it takes a reference and Release when done. The last
// Release flushes and closes the file sink and shuts the exporter down, after
// which file records are silently dropped.
//
// A nil *Guard is valid and does nothing.
type Guard struct {
	mu      sync.Mutex
	refs    int
	closers []func() error
	closed  bool
	err     error
}

func newGuard(closers ...func() error) *Guard {
	return &Guard{refs: 1, closers: closers}
}

// Retain adds a reference and returns the guard for chaining.
func (g *Guard) Retain() *Guard {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.closed {
		g.refs++
	}
	return g
}

// Release drops a reference. The last one runs the closers in reverse
// registration order and returns the first error.
func (g *Guard) Release() error {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return g.err
	}
	g.refs--
	if g.refs > 0 {
		return nil
	}
	g.closed = true
	for i := len(g.closers) - 1; i >= 0; i-- {
		if err := g.closers[i](); err != nil && g.err == nil {
			g.err = err
		}
	}
	return g.err
}

// Active reports whether the guard still holds its sinks open.
func (g *Guard) Active() bool {
	if g == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.closed
}
