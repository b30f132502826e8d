package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// JSONLogger writes one JSON object per line. Level and preset fields are
// fixed at construction; children from With share the parent's write lock,
// so lines never interleave.
type JSONLogger struct {
	w      io.Writer
	level  Level
	fields []Field
	mu     *sync.Mutex
}

// logEntry is the line format
type logEntry struct {
	Time    string         `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"msg"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// NewJSONLogger creates a logger writing entries at or above level to w
func NewJSONLogger(w io.Writer, level Level) *JSONLogger {
	return &JSONLogger{w: w, level: level, mu: &sync.Mutex{}}
}

func (l *JSONLogger) log(level Level, msg string, fields []Field) {
	if level < l.level {
		return
	}
	entry := logEntry{
		Time:    time.Now().Format(time.RFC3339Nano),
		Level:   level.String(),
		Message: msg,
	}
	if n := len(l.fields) + len(fields); n > 0 {
		entry.Fields = make(map[string]any, n)
		for _, f := range l.fields {
			entry.Fields[f.Key] = f.Value
		}
		// call-site fields win over presets
		for _, f := range fields {
			entry.Fields[f.Key] = f.Value
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"level":"ERROR","msg":"unencodable log entry: %v"}`, err))
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(data)
}

func (l *JSONLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }
func (l *JSONLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields) }
func (l *JSONLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields) }
func (l *JSONLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }

// With returns a child logger carrying fields in addition to the parent's
func (l *JSONLogger) With(fields ...Field) Logger {
	child := *l
	child.fields = append(l.fields[:len(l.fields):len(l.fields)], fields...)
	return &child
}

var (
	defaultLogger Logger
	defaultMu     sync.Mutex
)

// DefaultLogger returns the process-wide logger. Unless replaced with
// SetDefaultLogger it writes to stderr at the level named by LOG_LEVEL.
func DefaultLogger() Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewJSONLogger(os.Stderr, ParseLevel(os.Getenv("LOG_LEVEL")))
	}
	return defaultLogger
}

// SetDefaultLogger replaces the process-wide logger
func SetDefaultLogger(logger Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

// OrDefault returns logger, or the default logger when logger is nil
func OrDefault(logger Logger) Logger {
	if logger == nil {
		return DefaultLogger()
	}
	return logger
}

// TimedOperation logs how long an operation took when it ends
type TimedOperation struct {
	logger Logger
	msg    string
	start  time.Time
	fields []Field
}

// StartTimer begins timing an operation
func StartTimer(logger Logger, msg string, fields ...Field) *TimedOperation {
	return &TimedOperation{logger: logger, msg: msg, start: time.Now(), fields: fields}
}

// End logs the operation at INFO with its latency and returns the latency
func (t *TimedOperation) End(fields ...Field) time.Duration {
	elapsed := time.Since(t.start)
	all := append(append(t.fields[:len(t.fields):len(t.fields)], fields...), Latency(elapsed))
	t.logger.Info(t.msg, all...)
	return elapsed
}

// EndError logs the operation at ERROR with its latency and err
func (t *TimedOperation) EndError(err error) time.Duration {
	elapsed := time.Since(t.start)
	all := append(t.fields[:len(t.fields):len(t.fields)], Latency(elapsed), Error(err))
	t.logger.Error(t.msg, all...)
	return elapsed
}
