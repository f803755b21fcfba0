// Package nblog sets up the engine's structured logger. NodeBrain's trace
// output (cell/axon/timer/hash activity) and the translator's NBnnnC
// diagnostics both flow through it, formatted with log/slog the way the
// teacher's internal/infrastructure/logger package wraps slog rather than
// rolling a bespoke writer.
package nblog

import (
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Format selects the handler used for the root logger.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Options configures New.
type Options struct {
	Level  slog.Level
	Format Format
	Output io.Writer // nil means stderr, colorized when it's a terminal
}

// New builds the process logger. When Output is nil and stderr is a TTY,
// writes are routed through go-colorable, which translates ANSI escape
// sequences for Windows consoles; the slog handlers themselves emit no
// color codes.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		if isatty.IsTerminal(os.Stderr.Fd()) {
			out = colorable.NewColorableStderr()
		} else {
			out = os.Stderr
		}
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.Level}

	var handler slog.Handler
	if opts.Format == FormatJSON {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}
	return slog.New(handler)
}

// ParseLevel maps the engine's -v/--verbose vocabulary onto slog levels.
func ParseLevel(name string) slog.Level {
	switch name {
	case "trace", "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
