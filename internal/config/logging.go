package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// LogLevel represents logging verbosity levels.
type LogLevel int

// Log level constants.
const (
	LogLevelOff LogLevel = iota
	LogLevelError
	LogLevelDebug
)

// ParseLogLevel parses a log level string.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none":
		return LogLevelOff
	case "error":
		return LogLevelError
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelError
	}
}

// String returns the string representation of a log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelOff:
		return "off"
	case LogLevelError:
		return "error"
	case LogLevelDebug:
		return "debug"
	default:
		return "error"
	}
}

// logSink is the file shared by a logger and its component children.
type logSink struct {
	mu    sync.Mutex
	level LogLevel
	file  *os.File
}

func (s *logSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return len(p), nil
	}
	return s.file.Write(p)
}

func (s *logSink) enabled(level LogLevel) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file != nil && s.level != LogLevelOff && level <= s.level
}

// Logger writes JSON lines to a log file.
type Logger struct {
	sink     *logSink
	zl       zerolog.Logger
	filePath string
}

// NewLogger creates a logger writing to filePath. LogLevelOff or an empty
// path yields a logger that writes nothing.
func NewLogger(level LogLevel, filePath string) (*Logger, error) {
	sink := &logSink{level: level}

	if level != LogLevelOff && filePath != "" {
		filePath = ExpandHome(filePath)
		if err := os.MkdirAll(filepath.Dir(filePath), 0o750); err != nil {
			return nil, err
		}
		// #nosec G304 -- log file path is from validated config
		f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, err
		}
		sink.file = f
	}

	return &Logger{
		sink:     sink,
		zl:       zerolog.New(sink).With().Timestamp().Logger(),
		filePath: filePath,
	}, nil
}

// Component returns a child logger tagging every line with name. It
// shares the parent's file and level.
func (l *Logger) Component(name string) *Logger {
	return &Logger{
		sink:     l.sink,
		zl:       l.zl.With().Str("component", name).Logger(),
		filePath: l.filePath,
	}
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	if l.sink.file != nil {
		err := l.sink.file.Close()
		l.sink.file = nil
		return err
	}
	return nil
}

// SetLevel changes the log level for the logger and its components.
func (l *Logger) SetLevel(level LogLevel) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.level = level
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	return l.sink.level
}

// Path returns the log file path.
func (l *Logger) Path() string {
	return l.filePath
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) {
	if l.sink.enabled(LogLevelDebug) {
		l.zl.Debug().Msg(fmt.Sprintf(format, args...))
	}
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...any) {
	if l.sink.enabled(LogLevelError) {
		l.zl.Error().Msg(fmt.Sprintf(format, args...))
	}
}

// NullLogger returns a logger that discards all output.
func NullLogger() *Logger {
	sink := &logSink{level: LogLevelOff}
	return &Logger{sink: sink, zl: zerolog.Nop()}
}
