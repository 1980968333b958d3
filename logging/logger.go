package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps zap.Logger and provides structured logging for the relay.
//
// Output is teed to the console and a rotating log file:
//   - Development mode: colored, human-readable console output at debug level
//   - Production mode: JSON console output at info level
//   - File output is always JSON, rotated by lumberjack
//
// Example:
//
//	logger, err := NewLogger(true, "relay.log")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("server started", zap.Int("port", 5000))
type Logger struct {
	zap           *zap.Logger
	isDevelopment bool
}

// FileRotationConfig controls log file rotation.
type FileRotationConfig struct {
	// MaxSizeMB is the maximum size in megabytes before rotation (default: 100)
	MaxSizeMB int

	// MaxBackups is the number of rotated files to retain (default: 5)
	MaxBackups int

	// MaxAgeDays is the maximum age in days of retained files (default: 30)
	MaxAgeDays int

	// Compress enables gzip compression of rotated files (default: true)
	Compress bool
}

// DefaultFileRotationConfig returns the default rotation settings.
func DefaultFileRotationConfig() FileRotationConfig {
	return FileRotationConfig{
		MaxSizeMB:  100,
		MaxBackups: 5,
		MaxAgeDays: 30,
		Compress:   true,
	}
}

// NewLogger creates a Logger for the given environment.
//
// Parameters:
//   - isDevelopment: when true, uses colored console output with debug level;
//     when false, uses JSON output with info level
//   - logFilePath: path to the log file; rotation uses the default settings
func NewLogger(isDevelopment bool, logFilePath string) (*Logger, error) {
	return NewLoggerWithRotation(isDevelopment, logFilePath, DefaultFileRotationConfig())
}

// NewLoggerWithRotation creates a Logger with explicit rotation settings.
func NewLoggerWithRotation(isDevelopment bool, logFilePath string, rotation FileRotationConfig) (*Logger, error) {
	var level zapcore.Level
	if isDevelopment {
		level = zapcore.DebugLevel
	} else {
		level = zapcore.InfoLevel
	}

	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    rotation.MaxSizeMB,
		MaxBackups: rotation.MaxBackups,
		MaxAge:     rotation.MaxAgeDays,
		Compress:   rotation.Compress,
	})

	core := newTeeCore(level, zapcore.AddSync(os.Stdout), fileWriter, isDevelopment)

	zapLogger := zap.New(core,
		zap.AddCaller(),
		zap.AddCallerSkip(1),
	)

	return &Logger{
		zap:           zapLogger,
		isDevelopment: isDevelopment,
	}, nil
}

// NewTestLogger returns a Logger that discards all output.
// Useful as a collaborator in unit tests.
func NewTestLogger() *Logger {
	return &Logger{zap: zap.NewNop()}
}

// newTeeCore builds a zapcore.Core writing to both console and file.
// The file side is always JSON; the console side is human-readable in
// development mode.
func newTeeCore(level zapcore.Level, consoleWriter, fileWriter zapcore.WriteSyncer, isDev bool) zapcore.Core {
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(newEncoderConfig()),
		fileWriter,
		level,
	)

	var consoleEncoder zapcore.Encoder
	if isDev {
		consoleEncoder = zapcore.NewConsoleEncoder(newConsoleEncoderConfig())
	} else {
		consoleEncoder = zapcore.NewJSONEncoder(newEncoderConfig())
	}

	consoleCore := zapcore.NewCore(consoleEncoder, consoleWriter, level)

	return zapcore.NewTee(consoleCore, fileCore)
}

// Sync flushes any buffered log entries. Call before exiting.
func (l *Logger) Sync() error {
	if err := l.zap.Sync(); err != nil {
		// Sync on stdout is expected to fail on some platforms; surface
		// everything else.
		return fmt.Errorf("failed to sync logger: %w", err)
	}
	return nil
}

// Debug logs a message at debug level with structured fields.
func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.zap.Debug(msg, fields...)
}

// Info logs a message at info level with structured fields.
func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.zap.Info(msg, fields...)
}

// Warn logs a message at warn level with structured fields.
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.zap.Warn(msg, fields...)
}

// Error logs a message at error level with structured fields.
func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.zap.Error(msg, fields...)
}

// Fatal logs a message at fatal level and then exits the process.
func (l *Logger) Fatal(msg string, fields ...zap.Field) {
	l.zap.Fatal(msg, fields...)
}

// With returns a child logger with the given fields attached to every entry.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{
		zap:           l.zap.With(fields...),
		isDevelopment: l.isDevelopment,
	}
}

// Named returns a child logger with the given name segment appended.
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		zap:           l.zap.Named(name),
		isDevelopment: l.isDevelopment,
	}
}

// Zap exposes the underlying zap.Logger for collaborators that want it directly.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

// IsDevelopment reports whether the logger runs in development mode.
func (l *Logger) IsDevelopment() bool {
	return l.isDevelopment
}
