// Package logger constructs the process logger.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Options holds logger construction knobs.
type Options struct {
	Level  string // debug, info, warn, error; unknown values fall back to info
	Pretty bool   // human-readable console output instead of JSON lines
	Out    io.Writer
}

// New builds a zerolog.Logger from opts. Output defaults to stderr so log
// lines never interleave with chat output on stdout.
func New(opts Options) zerolog.Logger {
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
