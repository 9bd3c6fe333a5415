// Package logging configures the process-wide slog logger from the CLI's
// -l/--log-level and -o/--log-file flags.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Init builds and installs the default logger. level is one of
// off/error/warn/info/debug (matching the CLI's flag values); an empty or
// unrecognised value falls back to "off". When file is non-empty, output
// is appended there instead of stderr.
func Init(level, file string) (*slog.Logger, error) {
	var out io.Writer = os.Stderr
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		out = f
	}

	var slogLevel slog.Level
	enabled := true
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn", "warning":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	case "off", "":
		enabled = false
	default:
		enabled = false
	}

	if !enabled {
		out = io.Discard
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slogLevel}))
	slog.SetDefault(logger)
	return logger, nil
}
