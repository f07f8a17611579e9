//go:build unix

package shutdown

import (
	"context"
	"syscall"
	"testing"
	"time"
)

func TestSignal_Fires(t *testing.T) {
	// SIGWINCH is ignored by default, so sends before Notify is registered
	// are harmless.
	trigger := Signal(syscall.SIGWINCH)
	fired := make(chan bool, 1)
	go func() { fired <- trigger.Wait(context.Background()) }()

	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ok := <-fired:
			if !ok {
				t.Fatal("expected the signal trigger to fire")
			}
			return
		case <-tick.C:
			_ = syscall.Kill(syscall.Getpid(), syscall.SIGWINCH)
		case <-deadline:
			t.Fatal("signal trigger never fired")
		}
	}
}

func TestSignal_ContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if Signal(syscall.SIGWINCH).Wait(ctx) {
		t.Fatal("expected false on a done context")
	}
}
