package logging

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// Standard field names used in JSON log output.
const (
	FieldTimestamp = "timestamp"
	FieldLevel     = "level"
	FieldSource    = "source"
	FieldCaller    = "caller"
	FieldMessage   = "message"
	FieldStack     = "stacktrace"
)

// newEncoderConfig returns the encoder configuration for JSON output:
// ISO8601 timestamps, lowercase levels, short caller paths.
func newEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:       FieldTimestamp,
		LevelKey:      FieldLevel,
		NameKey:       FieldSource,
		CallerKey:     FieldCaller,
		MessageKey:    FieldMessage,
		StacktraceKey: FieldStack,
		LineEnding:    zapcore.DefaultLineEnding,

		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// newConsoleEncoderConfig returns the encoder configuration for development
// console output: colored levels and compact timestamps.
func newConsoleEncoderConfig() zapcore.EncoderConfig {
	cfg := newEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format("15:04:05.000"))
	}
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	return cfg
}
