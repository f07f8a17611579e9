package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// DefaultSignals are the interruptions the default trigger listens for.
var DefaultSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// Trigger decides when shutdown begins. Wait blocks until it fires, and
// returns true, or until ctx is done, and returns false.
type Trigger struct {
	Name string
	Wait func(ctx context.Context) bool
}

// Signal fires on the first of sigs delivered to the process, on
// DefaultSignals when none are given.
func Signal(sigs ...os.Signal) Trigger {
	if len(sigs) == 0 {
		sigs = DefaultSignals
	}
	return Trigger{
		Name: "signal",
		Wait: func(ctx context.Context) bool {
			ch := make(chan os.Signal, 1)
			signal.Notify(ch, sigs...)
			defer signal.Stop(ch)

			select {
			case <-ch:
				return true
			case <-ctx.Done():
				return false
			}
		},
	}
}

// Channel fires when ch is closed or receives a value.
func Channel(name string, ch <-chan struct{}) Trigger {
	return Trigger{
		Name: name,
		Wait: func(ctx context.Context) bool {
			select {
			case <-ch:
				return true
			case <-ctx.Done():
				return false
			}
		},
	}
}

// After fires once d has elapsed.
func After(d time.Duration) Trigger {
	return Trigger{
		Name: "timer",
		Wait: func(ctx context.Context) bool {
			t := time.NewTimer(d)
			defer t.Stop()

			select {
			case <-t.C:
				return true
			case <-ctx.Done():
				return false
			}
		},
	}
}
