package infra

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults, used when the config leaves them zero.
const (
	defaultLogFile    = "lighter.log"
	defaultMaxSizeMB  = 10
	defaultMaxBackups = 3
	defaultMaxAgeDays = 28
)

// NewLogger creates a JSON slog.Logger writing to stdout and a rotating
// file under logs/. Level and rotation limits come from the config.
func NewLogger(cfg *Config) *slog.Logger {
	logDir := "logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		// Fallback to stderr if directory creation fails
		return slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}

	fileName := cfg.Logging.File
	if fileName == "" {
		fileName = defaultLogFile
	}
	fileLogger := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, fileName),
		MaxSize:    orDefault(cfg.Logging.MaxSizeMB, defaultMaxSizeMB),
		MaxBackups: orDefault(cfg.Logging.MaxBackups, defaultMaxBackups),
		MaxAge:     orDefault(cfg.Logging.MaxAgeDays, defaultMaxAgeDays),
		Compress:   true,
	}

	// Multi-writer: Log to both file and stdout
	writer := io.MultiWriter(os.Stdout, fileLogger)

	opts := &slog.HandlerOptions{
		Level: ParseLogLevel(cfg.Logging.Level),
		// AddSource: true, // Optional: Include file line number (expensive)
	}

	return slog.New(slog.NewJSONHandler(writer, opts))
}

// ParseLogLevel maps a config level string to a slog.Level, defaulting
// to Info for anything unrecognized.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
