package logger

import (
	stdlog "log"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kbukum/serverkit/errors"
	"github.com/kbukum/serverkit/observability"
)

// ErrAlreadyInstalled is returned by every Install after the first.
var ErrAlreadyInstalled = errors.New(errors.ErrCodeLogBackendInit, "logging backend already installed")

var installed atomic.Bool

// Install registers the pipeline as the process-wide backend: the package
// global logger, zerolog's global logger and level, the standard library log
// output (as the "stdlog" framework source) and, when telemetry is on, the
// global tracer provider. It succeeds at most once per process.
func (p *Pipeline) Install() error {
	if !installed.CompareAndSwap(false, true) {
		return ErrAlreadyInstalled
	}

	zerolog.SetGlobalLevel(p.minLevel)
	log.Logger = p.root.GetLogger()
	SetGlobalLogger(p.root)

	stdlog.SetFlags(0)
	stdlog.SetOutput(p.Framework("stdlog").LineWriter(zerolog.InfoLevel))

	if p.tp != nil {
		observability.SetGlobal(p.tp)
	}
	return nil
}

// Installed reports whether a pipeline has been installed.
func Installed() bool { return installed.Load() }
