// ============================================================================
// SignSpeak - Gesture-to-Speech Companion
// ============================================================================
//
// Package:     logging
// Description: Factory functions for creating zerolog-backed loggers
// Author:      Mike Stoffels
// Created:     2025-12-06
// License:     MIT
// ============================================================================

package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Package defaults used by New
	defaultsMu     sync.RWMutex
	defaultConfig  = DefaultLoggerConfig("")
	defaultOutput  io.Writer
	rotatingWriter *lumberjack.Logger
)

// LoggerConfig holds configuration for creating loggers
type LoggerConfig struct {
	// Service name
	ServiceName string

	// Log level (debug, info, warn, error)
	Level string

	// Output format
	Format string // "json" or "text" (default: json)

	// Optional log file, rotated by size
	File string

	// Additional outputs (besides stderr and File)
	AdditionalOutputs []io.Writer
}

// DefaultLoggerConfig returns a default configuration
func DefaultLoggerConfig(serviceName string) LoggerConfig {
	return LoggerConfig{
		ServiceName: serviceName,
		Level:       "info",
		Format:      "json",
	}
}

// Configure sets the package-wide defaults picked up by New.
// It is typically called once from the command layer after config load.
func Configure(cfg LoggerConfig) error {
	out, err := buildOutput(cfg)
	if err != nil {
		return err
	}

	defaultsMu.Lock()
	defer defaultsMu.Unlock()
	defaultConfig = cfg
	defaultOutput = out
	return nil
}

// Close releases the rotating log file, if any
func Close() error {
	defaultsMu.Lock()
	defer defaultsMu.Unlock()

	if rotatingWriter != nil {
		err := rotatingWriter.Close()
		rotatingWriter = nil
		defaultOutput = nil
		return err
	}
	return nil
}

// NewLogger creates a new zerolog logger from cfg
func NewLogger(cfg LoggerConfig) zerolog.Logger {
	out, err := buildOutput(cfg)
	if err != nil {
		out = os.Stderr
	}
	return newZerolog(cfg, out)
}

// NewSimpleLogger creates a logger with the default configuration
func NewSimpleLogger(serviceName string) zerolog.Logger {
	return NewLogger(DefaultLoggerConfig(serviceName))
}

func newZerolog(cfg LoggerConfig, out io.Writer) zerolog.Logger {
	if cfg.Format == "text" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	ctx := zerolog.New(out).Level(parseLevel(cfg.Level)).With().Timestamp()
	if cfg.ServiceName != "" {
		ctx = ctx.Str("logger", cfg.ServiceName)
	}
	return ctx.Logger()
}

// buildOutput assembles stderr, the optional rotating file and extras
func buildOutput(cfg LoggerConfig) (io.Writer, error) {
	writers := []io.Writer{os.Stderr}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, err
		}
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    20, // MB
			MaxBackups: 3,
			MaxAge:     14, // days
			Compress:   true,
		}
		defaultsMu.Lock()
		if rotatingWriter != nil {
			rotatingWriter.Close()
		}
		rotatingWriter = rotator
		defaultsMu.Unlock()
		writers = append(writers, rotator)
	}

	writers = append(writers, cfg.AdditionalOutputs...)
	if len(writers) == 1 {
		return writers[0], nil
	}
	return io.MultiWriter(writers...), nil
}

// parseLevel converts a string level to zerolog.Level
func parseLevel(level string) zerolog.Level {
	switch level {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Logger is the key-value logger used throughout the application
type Logger struct {
	zl   zerolog.Logger
	name string
}

// New creates a named logger using the package defaults
func New(name string) *Logger {
	defaultsMu.RLock()
	cfg := defaultConfig
	out := defaultOutput
	defaultsMu.RUnlock()

	cfg.ServiceName = name
	if out == nil {
		out = os.Stderr
	}

	return &Logger{
		zl:   newZerolog(cfg, out),
		name: name,
	}
}

// FromZerolog wraps an existing zerolog logger
func FromZerolog(name string, zl zerolog.Logger) *Logger {
	return &Logger{zl: zl, name: name}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop(), name: "nop"}
}

// Name returns the logger name
func (l *Logger) Name() string {
	return l.name
}

// WithLevel returns a new logger with the specified level
func (l *Logger) WithLevel(level Level) *Logger {
	zlLevel := zerolog.InfoLevel
	switch level {
	case LevelDebug:
		zlLevel = zerolog.DebugLevel
	case LevelInfo:
		zlLevel = zerolog.InfoLevel
	case LevelWarn:
		zlLevel = zerolog.WarnLevel
	case LevelError:
		zlLevel = zerolog.ErrorLevel
	}

	return &Logger{
		zl:   l.zl.Level(zlLevel),
		name: l.name,
	}
}

// With returns a child logger carrying the given key-value pairs
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{
		zl:   l.zl.With().Fields(toFields(keysAndValues...)).Logger(),
		name: l.name,
	}
}

// Debug logs a debug message with key-value pairs
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.zl.Debug().Fields(toFields(keysAndValues...)).Msg(msg)
}

// Info logs an info message with key-value pairs
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.zl.Info().Fields(toFields(keysAndValues...)).Msg(msg)
}

// Warn logs a warning message with key-value pairs
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.zl.Warn().Fields(toFields(keysAndValues...)).Msg(msg)
}

// Error logs an error message with key-value pairs
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.zl.Error().Fields(toFields(keysAndValues...)).Msg(msg)
}

// toFields converts key-value pairs to a field map
func toFields(keysAndValues ...interface{}) map[string]interface{} {
	if len(keysAndValues) == 0 {
		return nil
	}

	fields := make(map[string]interface{})
	for i := 0; i < len(keysAndValues)-1; i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, isErr := keysAndValues[i+1].(error); isErr && err != nil {
			fields[key] = err.Error()
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}
