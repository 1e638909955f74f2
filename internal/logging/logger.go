package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger. format is "console" for human
// readable output or "json" for one JSON object per line.
func NewLogger(level, format string, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parse log level: %w", err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if lvl < zerolog.GlobalLevel() {
		zerolog.SetGlobalLevel(lvl)
	}
	if w == nil {
		w = os.Stderr
	}

	out := w
	switch format {
	case "", "console":
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	case "json":
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", format)
	}

	ctx := zerolog.New(out).Level(lvl).With().Timestamp()
	if lvl == zerolog.TraceLevel {
		ctx = ctx.Caller()
	}
	return ctx.Logger(), nil
}
