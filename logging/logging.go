// Package logging constructs the zap structured logger used throughout the
// engine, grounded directly on SoySergo-location_microservice's
// internal/pkg/logger package: an atomic level parsed from a string,
// production JSON encoding by default, console encoding with colored levels
// for local debug sessions.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.Logger at the given level ("debug", "info", "warn",
// "error"; an unparseable level falls back to info). json forces JSON
// encoding even at debug level; when false and level is "debug", console
// encoding with colorized levels is used instead, matching local
// development output from the teacher's logger.New.
func New(level string, json bool) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	if level == "debug" && !json {
		cfg.Development = true
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	return cfg.Build()
}

// NewNop returns a no-op logger, for tests and callers that don't want log
// output.
func NewNop() *zap.Logger {
	return zap.NewNop()
}
