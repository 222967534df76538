package telemetry

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string
	// File receives the logs. Empty means stderr.
	File string
}

// SetupLogger installs the default slog logger. The returned closer releases the log file.
func SetupLogger(c LogConfig) (io.Closer, error) {
	var level slog.Level
	if c.Level != "" {
		if err := level.UnmarshalText([]byte(c.Level)); err != nil {
			return nil, fmt.Errorf("telemetry: log level %q: %w", c.Level, err)
		}
	}

	var (
		w      io.Writer = os.Stderr
		closer io.Closer = io.NopCloser(nil)
	)
	if c.File != "" {
		f, err := os.OpenFile(c.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("telemetry: open log file: %w", err)
		}
		w, closer = f, f
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return closer, nil
}
