package logger

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// spanEventHook is the telemetry sink: every record at or above level that is
// logged with a span-carrying context becomes an event on that span.
type spanEventHook struct {
	level zerolog.Level
}

func (h spanEventHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	if !admits(h.level, level) || level == zerolog.NoLevel {
		return
	}
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(msg, trace.WithAttributes(attribute.String("level", level.String())))
	if level >= zerolog.ErrorLevel {
		span.SetStatus(codes.Error, msg)
	}
}
