package logger

import (
	"io"

	"github.com/rs/zerolog"
)

// sink is one output of the pipeline with its own severity threshold.
type sink struct {
	name   string
	writer io.Writer
	level  zerolog.Level
	// filtered sinks never see framework-internal records.
	filtered bool
	detail   string
}

// fanout is a zerolog.LevelWriter that copies every record to the sinks whose
// threshold admits it.
type fanout struct {
	sinks []sink
}

var _ zerolog.LevelWriter = (*fanout)(nil)

func (f *fanout) Write(p []byte) (int, error) {
	return f.WriteLevel(zerolog.NoLevel, p)
}

func (f *fanout) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	var firstErr error
	for _, s := range f.sinks {
		if !admits(s.level, level) {
			continue
		}
		var err error
		if lw, ok := s.writer.(zerolog.LevelWriter); ok {
			_, err = lw.WriteLevel(level, p)
		} else {
			_, err = s.writer.Write(p)
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return len(p), firstErr
}

// admits reports whether a record at level passes threshold. Records without
// a level pass every threshold.
func admits(threshold, level zerolog.Level) bool {
	if threshold == zerolog.Disabled {
		return false
	}
	if level == zerolog.NoLevel {
		return true
	}
	return level >= threshold
}

// minLevel returns the most verbose threshold across sinks.
func minLevel(sinks []sink) zerolog.Level {
	if len(sinks) == 0 {
		return zerolog.Disabled
	}
	lvl := sinks[0].level
	for _, s := range sinks[1:] {
		if s.level < lvl {
			lvl = s.level
		}
	}
	return lvl
}

// SinkInfo describes an active sink for startup summaries.
type SinkInfo struct {
	Name   string
	Level  zerolog.Level
	Detail string
}
