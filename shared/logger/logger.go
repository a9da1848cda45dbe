// Copyright 2025 AxonFlow
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logger

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity of a log entry
type LogLevel string

const (
	DEBUG LogLevel = "DEBUG"
	INFO  LogLevel = "INFO"
	WARN  LogLevel = "WARN"
	ERROR LogLevel = "ERROR"
)

// TimeLayout is the timestamp format used by the console encoder.
const TimeLayout = "2006-01-02 15:04:05"

// Options controls the process-wide log output.
type Options struct {
	JSON    bool      // JSON entries instead of console lines
	Verbose bool      // include DEBUG entries
	Output  io.Writer // defaults to stdout
}

var (
	mu   sync.RWMutex
	root = zap.NewNop()
)

// Configure builds the shared zap core used by every Logger created with New.
func Configure(opts Options) {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	level := zapcore.InfoLevel
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "message"
	encCfg.NameKey = "component"

	var enc zapcore.Encoder
	if opts.JSON {
		encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(TimeLayout)
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(out)), level)

	mu.Lock()
	root = zap.New(core)
	mu.Unlock()
}

// Logger is a component-scoped logger. Safe for concurrent use.
type Logger struct {
	Component string
	RunID     string
	z         *zap.Logger
}

// New creates a new Logger for the specified component
func New(component string) *Logger {
	mu.RLock()
	z := root
	mu.RUnlock()
	return &Logger{Component: component, z: z.Named(component)}
}

// NewWithCore creates a Logger writing to the given core. Used by tests
// together with zaptest/observer.
func NewWithCore(component string, core zapcore.Core) *Logger {
	return &Logger{Component: component, z: zap.New(core).Named(component)}
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return &Logger{Component: "nop", z: zap.NewNop()}
}

// WithRun returns a copy of the logger tagging every entry with runID.
func (l *Logger) WithRun(runID string) *Logger {
	return &Logger{
		Component: l.Component,
		RunID:     runID,
		z:         l.z.With(zap.String("run_id", runID)),
	}
}

// Log writes one entry at the given level
func (l *Logger) Log(level LogLevel, message string, fields map[string]interface{}) {
	zf := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}

	switch level {
	case DEBUG:
		l.z.Debug(message, zf...)
	case WARN:
		l.z.Warn(message, zf...)
	case ERROR:
		l.z.Error(message, zf...)
	default:
		l.z.Info(message, zf...)
	}
}

// Info logs an informational message
func (l *Logger) Info(message string, fields map[string]interface{}) {
	l.Log(INFO, message, fields)
}

// Error logs an error message
func (l *Logger) Error(message string, fields map[string]interface{}) {
	l.Log(ERROR, message, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, fields map[string]interface{}) {
	l.Log(WARN, message, fields)
}

// Debug logs a debug message
func (l *Logger) Debug(message string, fields map[string]interface{}) {
	l.Log(DEBUG, message, fields)
}

// Enabled reports whether entries at level would be written.
func (l *Logger) Enabled(level LogLevel) bool {
	switch level {
	case DEBUG:
		return l.z.Core().Enabled(zapcore.DebugLevel)
	case WARN:
		return l.z.Core().Enabled(zapcore.WarnLevel)
	case ERROR:
		return l.z.Core().Enabled(zapcore.ErrorLevel)
	}
	return l.z.Core().Enabled(zapcore.InfoLevel)
}

// InfoWithDuration logs an info message with duration field
func (l *Logger) InfoWithDuration(message string, durationMS float64, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["duration_ms"] = durationMS
	l.Info(message, fields)
}

// WarnWithError logs a warning carrying the error text
func (l *Logger) WarnWithError(message string, err error, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	l.Warn(message, fields)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.z.Sync()
}
