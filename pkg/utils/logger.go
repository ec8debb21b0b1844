// Package utils holds small shared helpers, chiefly logging.
package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevel is the severity of a log line.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l LogLevel) String() string {
	if l < LevelDebug || l > LevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLogLevel maps a config value to a level. Unknown values mean info.
func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	}
	return LevelInfo
}

// Logger is the printf-style logger every package writes through.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	// Named returns a logger whose lines are tagged with component.
	// Nested names are joined with a dot.
	Named(component string) Logger

	// With returns a logger that appends key=value to every line.
	With(key string, value interface{}) Logger
}

// DefaultLogger writes lines of the form
//
//	2006-01-02 15:04:05.000 WARN  trace: message source=rank0.log
//
// Children made by Named and With share the parent's writer and lock.
type DefaultLogger struct {
	mu        *sync.Mutex
	level     LogLevel
	output    io.Writer
	component string
	suffix    string
}

// NewDefaultLogger logs at level and above to output.
func NewDefaultLogger(level LogLevel, output io.Writer) *DefaultLogger {
	return &DefaultLogger{
		mu:     &sync.Mutex{},
		level:  level,
		output: output,
	}
}

// NewFileLogger appends to logPath, creating its directory.
func NewFileLogger(level LogLevel, logPath string) (*DefaultLogger, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return NewDefaultLogger(level, file), nil
}

func (l *DefaultLogger) Debug(msg string, args ...interface{}) { l.log(LevelDebug, msg, args) }
func (l *DefaultLogger) Info(msg string, args ...interface{})  { l.log(LevelInfo, msg, args) }
func (l *DefaultLogger) Warn(msg string, args ...interface{})  { l.log(LevelWarn, msg, args) }
func (l *DefaultLogger) Error(msg string, args ...interface{}) { l.log(LevelError, msg, args) }

func (l *DefaultLogger) Named(component string) Logger {
	child := *l
	if child.component == "" {
		child.component = component
	} else {
		child.component += "." + component
	}
	return &child
}

func (l *DefaultLogger) With(key string, value interface{}) Logger {
	child := *l
	child.suffix += fmt.Sprintf(" %s=%v", key, value)
	return &child
}

func (l *DefaultLogger) log(level LogLevel, msg string, args []interface{}) {
	if level < l.level {
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().Format("2006-01-02 15:04:05.000"))
	fmt.Fprintf(&b, " %-5s ", level)
	if l.component != "" {
		b.WriteString(l.component)
		b.WriteString(": ")
	}
	// A message without args is printed as is so a stray % survives.
	if len(args) > 0 {
		fmt.Fprintf(&b, msg, args...)
	} else {
		b.WriteString(msg)
	}
	b.WriteString(l.suffix)
	b.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.output, b.String())
}

// NullLogger discards everything.
type NullLogger struct{}

func (NullLogger) Debug(string, ...interface{}) {}
func (NullLogger) Info(string, ...interface{})  {}
func (NullLogger) Warn(string, ...interface{})  {}
func (NullLogger) Error(string, ...interface{}) {}

func (n NullLogger) Named(string) Logger             { return n }
func (n NullLogger) With(string, interface{}) Logger { return n }

// OrNull returns logger, or a NullLogger when logger is nil.
func OrNull(logger Logger) Logger {
	if logger == nil {
		return NullLogger{}
	}
	return logger
}
