package logger

import (
	"github.com/rs/zerolog"
)

// resetInstall lets tests install more than one pipeline.
func resetInstall() {
	installed.Store(false)
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
}
