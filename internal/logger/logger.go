// Package logger builds the zap loggers used by the runner and the demo.
// Loggers are passed explicitly; nothing here replaces zap's globals.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogFormat selects the encoder.
type LogFormat string

const (
	// FormatConsole is human-readable, one line per entry.
	FormatConsole LogFormat = "CONSOLE"
	// FormatJSON is structured JSON.
	FormatJSON LogFormat = "JSON"
)

// Component names passed to For.
const (
	ComponentRunner    = "Runner"
	ComponentMachine   = "Machine"
	ComponentDiskQueue = "DiskQueue"
	ComponentPersister = "Persister"
	ComponentDemo      = "Demo"
)

// ParseLevel converts DEBUG, INFO, WARN or ERROR into a zap level. Anything
// else is INFO.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseFormat falls back to FormatConsole for unknown formats.
func ParseFormat(format string) LogFormat {
	if LogFormat(strings.ToUpper(format)) == FormatJSON {
		return FormatJSON
	}
	return FormatConsole
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05 MST"))
}

// New creates a logger writing to stdout.
func New(level string, format LogFormat) *zap.Logger {
	return NewWithWriter(level, format, os.Stdout)
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(level string, format LogFormat, w io.Writer) *zap.Logger {
	cfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "component",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if format == FormatJSON {
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(cfg)
	} else {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncodeTime = timeEncoder
		cfg.ConsoleSeparator = " | "
		encoder = zapcore.NewConsoleEncoder(cfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), zap.NewAtomicLevelAt(ParseLevel(level)))
	return zap.New(core, zap.AddCaller())
}

// For returns a sugared logger named after component.
func For(base *zap.Logger, component string) *zap.SugaredLogger {
	if base == nil {
		base = zap.NewNop()
	}
	return base.Sugar().Named(component)
}
