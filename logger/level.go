package logger

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/kbukum/serverkit/errors"
)

// ParseLevel maps the fixed level vocabulary onto zerolog levels. Any other
// string, including the empty string, is rejected.
func ParseLevel(s string) (zerolog.Level, error) {
	switch s {
	case "error":
		return zerolog.ErrorLevel, nil
	case "warn":
		return zerolog.WarnLevel, nil
	case "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "trace":
		return zerolog.TraceLevel, nil
	default:
		return zerolog.Disabled, errors.InvalidLevel(s)
	}
}

// Rotation is the time policy of the file sink.
type Rotation int

const (
	RotationNever Rotation = iota
	RotationDaily
	RotationHourly
	RotationMinutely
)

// ParseRotation maps the fixed rotation vocabulary.
func ParseRotation(s string) (Rotation, error) {
	switch s {
	case "never":
		return RotationNever, nil
	case "daily":
		return RotationDaily, nil
	case "hourly":
		return RotationHourly, nil
	case "minutely":
		return RotationMinutely, nil
	default:
		return RotationNever, errors.InvalidRotation(s)
	}
}

func (r Rotation) String() string {
	switch r {
	case RotationDaily:
		return "daily"
	case RotationHourly:
		return "hourly"
	case RotationMinutely:
		return "minutely"
	default:
		return "never"
	}
}

// next returns the first rotation boundary strictly after t, or the zero
// time for RotationNever.
func (r Rotation) next(t time.Time) time.Time {
	switch r {
	case RotationDaily:
		y, m, d := t.Date()
		return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
	case RotationHourly:
		return t.Truncate(time.Hour).Add(time.Hour)
	case RotationMinutely:
		return t.Truncate(time.Minute).Add(time.Minute)
	default:
		return time.Time{}
	}
}
