// ABOUTME: Structured logger construction on top of charmbracelet/log
// ABOUTME: CLI commands log to stderr, the TUI logs to a file under XDG state
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

type Options struct {
	Level  string
	Format string
	Output io.Writer
	Caller bool
}

// New returns a prefixed, timestamped logger.
func New(o Options) *log.Logger {
	out := o.Output
	if out == nil {
		out = os.Stderr
	}
	return log.NewWithOptions(out, log.Options{
		Prefix:          "leadlab",
		Level:           ParseLevel(o.Level),
		ReportTimestamp: true,
		ReportCaller:    o.Caller,
		TimeFormat:      time.Kitchen,
		Formatter:       parseFormat(o.Format),
	})
}

// ParseLevel maps a level name to a log level, defaulting to info.
func ParseLevel(s string) log.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func parseFormat(s string) log.Formatter {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}

// OpenFile opens the append-only log file used while the TUI owns the terminal.
func OpenFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// Discard is a logger that writes nowhere, for tests.
func Discard() *log.Logger {
	return New(Options{Output: io.Discard, Level: "error"})
}
