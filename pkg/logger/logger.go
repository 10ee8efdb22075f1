// Package logger provides the file logger used by the command-line layer.
// Library packages never log; they return diagnostics and errors instead.
package logger

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// Level orders log messages by importance.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

type state struct {
	mu    sync.Mutex
	out   *log.Logger
	file  *os.File
	level Level
}

var std = &state{level: LevelInfo}

// Init opens logPath for appending and directs all messages there.
// A previously opened log file is closed.
func Init(logPath string) error {
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	std.mu.Lock()
	defer std.mu.Unlock()
	if std.file != nil {
		std.file.Close()
	}
	std.file = f
	std.out = log.New(f, "", log.Ltime|log.Lmicroseconds)
	return nil
}

// Close closes the log file. Later messages are dropped until Init.
func Close() {
	std.mu.Lock()
	defer std.mu.Unlock()

	if std.file != nil {
		std.file.Close()
		std.file = nil
	}
	std.out = nil
}

// SetDebug lowers the threshold to debug, or restores it to info.
func SetDebug(enabled bool) {
	std.mu.Lock()
	defer std.mu.Unlock()
	if enabled {
		std.level = LevelDebug
	} else {
		std.level = LevelInfo
	}
}

func (s *state) logf(l Level, format string, v ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.out == nil || l < s.level {
		return
	}
	s.out.Printf("["+l.String()+"] "+format, v...)
}

// Debug logs a debug message. Dropped unless SetDebug(true) was called.
func Debug(format string, v ...interface{}) { std.logf(LevelDebug, format, v...) }

// Info logs an info message.
func Info(format string, v ...interface{}) { std.logf(LevelInfo, format, v...) }

// Warn logs a warning message.
func Warn(format string, v ...interface{}) { std.logf(LevelWarn, format, v...) }

// Error logs an error message.
func Error(format string, v ...interface{}) { std.logf(LevelError, format, v...) }
