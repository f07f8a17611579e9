package logger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/serverkit/errors"
	"github.com/kbukum/serverkit/observability"
)

// Sink names reported by Sinks.
const (
	SinkConsole   = "console"
	SinkFile      = "file"
	SinkTelemetry = "telemetry"
)

const (
	diodeSize         = 1000
	diodePollInterval = 10 * time.Millisecond
	exporterShutdown  = 5 * time.Second
)

// Pipeline is the assembled logging backend. It is inert until Install
// registers it process-wide.
type Pipeline struct {
	appName  string
	sinks    []sink
	root     *Logger
	fw       *fanout
	fwHook   zerolog.Hook
	tp       *sdktrace.TracerProvider
	guard    *Guard
	infos    []SinkInfo
	minLevel zerolog.Level
}

// Build assembles zero to three sinks from cfg. The console and file sinks
// each have an independent threshold; the telemetry sink follows the console
// threshold. Nothing is registered globally until Install.
func Build(ctx context.Context, cfg Config) (*Pipeline, error) {
	r, err := cfg.resolve()
	if err != nil {
		return nil, err
	}

	p := &Pipeline{appName: cfg.AppName}
	var closers []func() error
	fail := func(err error) (*Pipeline, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
		return nil, err
	}

	if r.console {
		p.sinks = append(p.sinks, sink{
			name:     SinkConsole,
			writer:   newConsoleWriter(r.consoleOut, cfg.NoColor, cfg.AppName),
			level:    r.consoleLevel,
			filtered: !cfg.Unfiltered,
		})
		p.infos = append(p.infos, SinkInfo{Name: SinkConsole, Level: r.consoleLevel})
	}

	if r.file {
		rf, err := openRollingFile(r.dir, cfg.AppName, r.rotation, r.maxFiles)
		if err != nil {
			return fail(err)
		}
		dw := diode.NewWriter(rf, diodeSize, diodePollInterval, func(missed int) {
			fmt.Fprintf(os.Stderr, "logger: file sink dropped %d records\n", missed)
		})
		closers = append(closers, dw.Close)

		detail := fmt.Sprintf("%s rotation=%s keep=%d", filepath.Join(r.dir, fileName(cfg.AppName)), r.rotation, r.maxFiles)
		p.sinks = append(p.sinks, sink{
			name:     SinkFile,
			writer:   dw,
			level:    r.fileLevel,
			filtered: !cfg.Unfiltered,
			detail:   detail,
		})
		p.infos = append(p.infos, SinkInfo{Name: SinkFile, Level: r.fileLevel, Detail: detail})
	}

	var hook zerolog.Hook
	if r.telemetry {
		tp, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName:    cfg.AppName,
			ServiceVersion: cfg.ServiceVersion,
			Endpoint:       *cfg.TelemetryEndpoint,
		})
		if err != nil {
			return fail(errors.LogBackendInit("telemetry exporter", err))
		}
		closers = append(closers, func() error {
			sctx, cancel := context.WithTimeout(context.Background(), exporterShutdown)
			defer cancel()
			return tp.Shutdown(sctx)
		})
		p.tp = tp
		hook = spanEventHook{level: r.telemetryLevel}
		p.infos = append(p.infos, SinkInfo{Name: SinkTelemetry, Level: r.telemetryLevel, Detail: *cfg.TelemetryEndpoint})
	}

	p.minLevel = minLevel(p.sinks)
	if hook != nil && (p.minLevel == zerolog.Disabled || r.telemetryLevel < p.minLevel) {
		p.minLevel = r.telemetryLevel
	}

	zl := zerolog.New(&fanout{sinks: p.sinks}).Level(p.minLevel).With().Timestamp().Logger()
	if hook != nil {
		zl = zl.Hook(hook)
	}
	p.root = newLogger(zl, cfg.AppName)

	var unfiltered []sink
	for _, s := range p.sinks {
		if !s.filtered {
			unfiltered = append(unfiltered, s)
		}
	}
	if len(unfiltered) > 0 {
		p.fw = &fanout{sinks: unfiltered}
	}
	if cfg.Unfiltered {
		p.fwHook = hook
	}

	if len(closers) > 0 {
		p.guard = newGuard(closers...)
	}
	return p, nil
}

func fileName(appName string) string {
	if appName == "" {
		appName = "app"
	}
	return appName + ".log"
}

// Logger returns the application logger writing to every sink.
func (p *Pipeline) Logger() *Logger { return p.root }

// Framework returns the logger for a framework-internal source such as "gin"
// or "net/http". Its records reach only unfiltered sinks; with every sink
// filtered it discards everything.
func (p *Pipeline) Framework(module string) *Logger {
	if p.fw == nil {
		return newLogger(zerolog.Nop(), p.appName)
	}
	zl := zerolog.New(p.fw).Level(minLevel(p.fw.sinks)).With().Timestamp().Str(FieldModule, module).Logger()
	if p.fwHook != nil {
		zl = zl.Hook(p.fwHook)
	}
	return newLogger(zl, p.appName)
}

// Guard returns the lifetime handle of the background sinks, nil when only
// the console sink is active.
func (p *Pipeline) Guard() *Guard { return p.guard }

// Sinks describes the active sinks in build order.
func (p *Pipeline) Sinks() []SinkInfo {
	out := make([]SinkInfo, len(p.infos))
	copy(out, p.infos)
	return out
}

// TracerProvider returns the telemetry provider, nil when telemetry is off.
func (p *Pipeline) TracerProvider() *sdktrace.TracerProvider { return p.tp }
