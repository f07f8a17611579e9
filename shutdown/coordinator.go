package shutdown

import (
	"context"
	"time"

	"github.com/kbukum/serverkit/logger"
)

// Target is what a Coordinator stops; *server.Handle implements it.
type Target interface {
	Stop(ctx context.Context) error
}

// stoppable is implemented by targets that can stop on their own, such as
// a server that failed. Their triggers become no-ops once Stopped closes.
type stoppable interface {
	Stopped() <-chan struct{}
}

// Coordinator waits for the first of its triggers and gracefully stops the
// target.
type Coordinator struct {
	triggers []Trigger
	noSignal bool
	timeout  time.Duration
	log      *logger.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTrigger adds triggers racing against the default signal trigger.
func WithTrigger(t ...Trigger) Option {
	return func(c *Coordinator) { c.triggers = append(c.triggers, t...) }
}

// WithoutSignal drops the default signal trigger; the caller's triggers,
// including Signal triggers it added, and the context passed to Run are then
// the only ways to start shutdown.
func WithoutSignal() Option {
	return func(c *Coordinator) { c.noSignal = true }
}

// WithTimeout bounds the graceful stop. Without it in-flight work is waited
// for indefinitely.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.timeout = d }
}

// WithLogger sets the logger; the global logger is used otherwise.
func WithLogger(l *logger.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// New returns a Coordinator listening for DefaultSignals plus any triggers
// given as options.
func New(opts ...Option) *Coordinator {
	c := &Coordinator{}
	for _, opt := range opts {
		opt(c)
	}
	if !c.noSignal {
		c.triggers = append([]Trigger{Signal()}, c.triggers...)
	}
	if c.log == nil {
		c.log = logger.GetGlobalLogger()
	}
	c.log = c.log.WithComponent("shutdown")
	return c
}

// Run blocks until a trigger fires or ctx is done, then stops target and
// returns the result of Stop. If target stops by itself first, Run returns
// nil without calling Stop.
func (c *Coordinator) Run(ctx context.Context, target Target) error {
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	fired := make(chan string, len(c.triggers))
	for _, t := range c.triggers {
		go func(t Trigger) {
			if t.Wait(waitCtx) {
				fired <- t.Name
			}
		}(t)
	}

	var stopped <-chan struct{}
	if s, ok := target.(stoppable); ok {
		stopped = s.Stopped()
	}

	var reason string
	select {
	case reason = <-fired:
	case <-ctx.Done():
		reason = "context"
	case <-stopped:
		c.log.Debug("Target stopped before any shutdown trigger")
		return nil
	}
	cancel()

	c.log.Info("Graceful shutdown starting", logger.Fields("trigger", reason))
	stopCtx := context.Background()
	if c.timeout > 0 {
		var stopCancel context.CancelFunc
		stopCtx, stopCancel = context.WithTimeout(stopCtx, c.timeout)
		defer stopCancel()
	}
	return target.Stop(stopCtx)
}

// Attach runs Run in the background with no parent context. The returned
// channel yields its result once.
func (c *Coordinator) Attach(target Target) <-chan error {
	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background(), target) }()
	return done
}
