// Package log provides the package-level structured logger used across
// the tracking core, mirroring itohio/EasyRobot's pkg/logger: a
// zerolog.Logger with caller info, writing to stderr by default.
package log

import (
	"os"

	"github.com/rs/zerolog"
)

// Log is the default logger. FSM transitions, rejected measurements and
// solver failures are logged through it unless a component is given its
// own *zerolog.Logger explicitly.
var Log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Caller().Logger()

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
}

// SetLevel adjusts the global minimum log level, e.g. for quieting tests.
func SetLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}
