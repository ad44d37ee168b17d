package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

func selectedLogLevel(flagLevel, configLevel string) string {
	if strings.TrimSpace(flagLevel) != "" {
		return flagLevel
	}
	return configLevel
}

func parseLogLevel(raw string) (slog.Level, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return slog.LevelInfo, nil
	}
	if strings.EqualFold(value, "warning") {
		value = "warn"
	}
	if numeric, err := strconv.Atoi(value); err == nil {
		return slog.Level(numeric), nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", raw)
	}
	return level, nil
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
