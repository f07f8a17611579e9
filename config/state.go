package config

import (
	"sync"

	"github.com/kbukum/serverkit/logger"
)

// State is the resolved, ready-to-launch state: the deployment variant and
// the guard of the background log sinks. It never changes after NewState.
//
// Every holder gets its own State through Clone and calls Release when done;
// the file sink keeps flushing while any clone is unreleased.
type State struct {
	variant Variant
	guard   *logger.Guard

	release sync.Once
	err     error
}

// NewState takes ownership of one reference on guard, which may be nil.
func NewState(variant Variant, guard *logger.Guard) *State {
	return &State{variant: variant, guard: guard}
}

// Variant returns the deployment variant.
func (s *State) Variant() Variant { return s.variant }

// FileLogging reports whether a background sink is still alive.
func (s *State) FileLogging() bool { return s.guard.Active() }

// Clone returns a new holder sharing the same sinks.
func (s *State) Clone() *State {
	return &State{variant: s.variant, guard: s.guard.Retain()}
}

// Release drops this holder's reference. The last release closes the file
// sink; later records are dropped without error. Releasing the same holder
// twice is a no-op.
func (s *State) Release() error {
	s.release.Do(func() { s.err = s.guard.Release() })
	return s.err
}
