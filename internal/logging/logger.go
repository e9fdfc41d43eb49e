// Package logging builds the slog logger hrconsole commands write to.
// LOG_FORMAT picks json (default) or text; LOG_LEVEL takes any slog level name.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	EnvFormat = "LOG_FORMAT"
	EnvLevel  = "LOG_LEVEL"
)

// Bootstrap builds the logger for command from the environment and installs
// it as the slog default.
func Bootstrap(w io.Writer, command string) (*slog.Logger, error) {
	level, err := levelFromEnv()
	if err != nil {
		return nil, err
	}
	handler, err := newHandler(os.Getenv(EnvFormat), w, level)
	if err != nil {
		return nil, err
	}
	logger := forCommand(slog.New(handler), command)
	slog.SetDefault(logger)
	return logger, nil
}

// OrDefault returns logger, or slog.Default when logger is nil.
func OrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

func forCommand(logger *slog.Logger, command string) *slog.Logger {
	logger = logger.With("app", "hrconsole")
	if command = strings.TrimSpace(command); command != "" && command != "hrconsole" {
		logger = logger.With("command", command)
	}
	return logger
}

func levelFromEnv() (slog.Level, error) {
	raw := strings.TrimSpace(os.Getenv(EnvLevel))
	if raw == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return 0, fmt.Errorf("%s: %w", EnvLevel, err)
	}
	return level, nil
}

func newHandler(format string, w io.Writer, level slog.Level) (slog.Handler, error) {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return slog.NewJSONHandler(w, opts), nil
	case "text":
		return slog.NewTextHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("%s must be json or text, got %q", EnvFormat, format)
	}
}
