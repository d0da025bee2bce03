// Package logging builds the process-wide structured logger.
//
// Every component takes a *slog.Logger by constructor injection, matching
// the donor's mcp.Manager/mcp.Client pattern; this package is only
// responsible for constructing the one logger main() hands out, including
// the optional rotated file sink.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mcphost/host/internal/config"
)

// New builds a *slog.Logger from the logging section of the config. When
// cfg.File is empty, logs go to stderr as JSON, mirroring the donor's
// production logger setup. When cfg.File is set, a zap core fans out to
// both stderr and a lumberjack-rotated file, bridged into slog via
// zapslog so every caller still programs against log/slog.
func New(cfg config.LoggingConfig) *slog.Logger {
	level := parseLevel(cfg.Level)

	if strings.TrimSpace(cfg.File) == "" {
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	rotated := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     28,
		Compress:   true,
	}

	zapLevel := zapLevelFor(level)
	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), zapLevel),
		zapcore.NewCore(encoder, zapcore.AddSync(rotated), zapLevel),
	)

	handler := zapslog.NewHandler(core, zapslog.WithCaller(false), zapslog.WithName("mcphost"))
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func zapLevelFor(level slog.Level) zapcore.LevelEnabler {
	switch {
	case level <= slog.LevelDebug:
		return zapcore.DebugLevel
	case level <= slog.LevelInfo:
		return zapcore.InfoLevel
	case level <= slog.LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// Discard returns a logger that drops everything, for use in unit tests
// that construct components directly.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
