package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

const (
	DefaultDir      = "logs"
	DefaultMaxFiles = 5
	// DefaultMaxSizeMB caps a single file even when no time rotation is due.
	DefaultMaxSizeMB = 100
)

// Config contains logging pipeline configuration. Optional fields are
// pointers: nil means the key was absent from the configuration document.
type Config struct {
	AppName string

	// Level enables the console sink.
	Level *string
	// FileLevel enables the rotating file sink.
	FileLevel *string
	Rolling   *string
	MaxFiles  *uint32
	// Dir is the file sink directory, "logs" by default.
	Dir string

	// TelemetryEndpoint enables the telemetry sink when the console level is set.
	TelemetryEndpoint *string
	ServiceVersion    string

	// DebugDefault turns the console sink on at debug when Level is nil.
	DebugDefault bool
	// Unfiltered lets framework-internal records reach every sink.
	Unfiltered bool
	NoColor    bool

	// Console is where the console sink writes; stdout when nil.
	Console io.Writer
}

// resolved is the validated form of Config.
type resolved struct {
	console        bool
	consoleLevel   zerolog.Level
	file           bool
	fileLevel      zerolog.Level
	rotation       Rotation
	maxFiles       int
	dir            string
	telemetry      bool
	telemetryLevel zerolog.Level
	consoleOut     io.Writer
}

// resolve checks every level and rotation string. Rotation is validated even
// when no file sink is configured.
func (c *Config) resolve() (resolved, error) {
	r := resolved{
		consoleLevel:   zerolog.Disabled,
		fileLevel:      zerolog.Disabled,
		telemetryLevel: zerolog.Disabled,
		maxFiles:       DefaultMaxFiles,
		dir:            c.Dir,
		consoleOut:     c.Console,
	}
	if r.dir == "" {
		r.dir = DefaultDir
	}
	if r.consoleOut == nil {
		r.consoleOut = os.Stdout
	}

	switch {
	case c.Level != nil:
		lvl, err := ParseLevel(*c.Level)
		if err != nil {
			return r, err
		}
		r.console, r.consoleLevel = true, lvl
	case c.DebugDefault:
		r.console, r.consoleLevel = true, zerolog.DebugLevel
	}

	if c.FileLevel != nil {
		lvl, err := ParseLevel(*c.FileLevel)
		if err != nil {
			return r, err
		}
		r.file, r.fileLevel = true, lvl
	}

	if c.Rolling != nil {
		rot, err := ParseRotation(*c.Rolling)
		if err != nil {
			return r, err
		}
		r.rotation = rot
	}
	if c.MaxFiles != nil && *c.MaxFiles > 0 {
		r.maxFiles = int(*c.MaxFiles)
	}

	if c.TelemetryEndpoint != nil && *c.TelemetryEndpoint != "" && r.console {
		r.telemetry, r.telemetryLevel = true, r.consoleLevel
	}
	return r, nil
}
