// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	slogmulti "github.com/samber/slog-multi"
)

func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup installs the default logger: text records at level to w, and when
// debugPath is set, every record down to debug as JSON lines in that file.
// The returned func closes the debug file.
func Setup(w io.Writer, level, debugPath string) (func() error, error) {
	console := slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	if debugPath == "" {
		slog.SetDefault(slog.New(console))
		return func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(debugPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open debug log: %w", err)
	}

	file := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})
	slog.SetDefault(slog.New(slogmulti.Fanout(console, file)))
	return f.Close, nil
}
