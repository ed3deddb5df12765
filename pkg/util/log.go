package util

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// NewLogger builds the diagnostic logger. Console output is for humans on a
// terminal; json is for log collectors. verbose lowers the level to debug.
func NewLogger(w io.Writer, format string, verbose bool) (zerolog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	switch format {
	case "", LogFormatConsole:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	case LogFormatJSON:
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q (want %s or %s)", format, LogFormatConsole, LogFormatJSON)
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

type verboseKey struct{}

// WithVerbose records whether user-facing output should include detail such
// as full agent answers. It is separate from the log level.
func WithVerbose(ctx context.Context, verbose bool) context.Context {
	return context.WithValue(ctx, verboseKey{}, verbose)
}

// IsVerbose reports the flag set by WithVerbose.
func IsVerbose(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(verboseKey{}).(bool)
	return v
}
