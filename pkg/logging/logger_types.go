package logging

import "strings"

// Level orders log severities; a logger drops entries below its level.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < DebugLevel || l > ErrorLevel {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel reads a level name case-insensitively. WARNING is accepted
// for WARN; anything unrecognised is INFO.
func ParseLevel(s string) Level {
	s = strings.ToUpper(s)
	if s == "WARNING" {
		return WarnLevel
	}
	for i, name := range levelNames {
		if s == name {
			return Level(i)
		}
	}
	return InfoLevel
}

// Field is one structured key/value attached to an entry
type Field struct {
	Key   string
	Value any
}

// Logger writes leveled, structured entries
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// With returns a child that adds fields to every entry
	With(fields ...Field) Logger
}

// NopLogger discards everything
type NopLogger struct{}

func (NopLogger) Debug(string, ...Field)  {}
func (NopLogger) Info(string, ...Field)   {}
func (NopLogger) Warn(string, ...Field)   {}
func (NopLogger) Error(string, ...Field)  {}
func (n NopLogger) With(...Field) Logger { return n }

// NewNopLogger returns a Logger for tests and library callers that want silence
func NewNopLogger() Logger {
	return NopLogger{}
}
