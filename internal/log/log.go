// Package log wires the shared zerolog logger for the service.
package log

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// Init configures the global zerolog logger the way cmd/perpintel does
// at startup: RFC3339 timestamps, console writer to stderr when
// attached to a terminal, plain JSON otherwise (pretty for an operator
// watching a shell, structured for systemd/container log collectors).
func Init(debug bool) {
	Configure(debug, !term.IsTerminal(int(os.Stderr.Fd())))
}

// Configure is Init with an explicit plain flag, so callers that have
// already done their own TTY detection (cmd/perpintel's root command,
// via golang.org/x/term) can skip re-detecting it here.
func Configure(debug, plain bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	if plain {
		log.Logger = log.Output(os.Stderr)
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

// Logger returns the shared logger instance.
func Logger() *zerolog.Logger {
	return &log.Logger
}
