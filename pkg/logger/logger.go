package logger

import (
	"io"
	"log"
	"os"
	"strings"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps LOG_LEVEL values; anything unknown means info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger is a printf-style leveled logger. Components tag their messages
// with a bracketed prefix, e.g. "[FCM] ...".
type Logger struct {
	level Level
	debug *log.Logger
	info  *log.Logger
	warn  *log.Logger
	error *log.Logger
}

func New() *Logger {
	return NewWithWriter(os.Stdout, LevelInfo)
}

func NewWithWriter(w io.Writer, level Level) *Logger {
	flags := log.Ldate | log.Ltime | log.Lmicroseconds
	return &Logger{
		level: level,
		debug: log.New(w, "DEBUG: ", flags),
		info:  log.New(w, "INFO: ", flags),
		warn:  log.New(w, "WARN: ", flags),
		error: log.New(w, "ERROR: ", flags),
	}
}

// Discard returns a logger that drops everything; used by tests.
func Discard() *Logger {
	return NewWithWriter(io.Discard, LevelError+1)
}

func (l *Logger) Debug(format string, v ...any) {
	if l.level <= LevelDebug {
		l.debug.Printf(format, v...)
	}
}

func (l *Logger) Info(format string, v ...any) {
	if l.level <= LevelInfo {
		l.info.Printf(format, v...)
	}
}

func (l *Logger) Warn(format string, v ...any) {
	if l.level <= LevelWarn {
		l.warn.Printf(format, v...)
	}
}

func (l *Logger) Error(format string, v ...any) {
	if l.level <= LevelError {
		l.error.Printf(format, v...)
	}
}

// Printf lets the logger stand in where a log.Logger-shaped sink is expected.
func (l *Logger) Printf(format string, v ...any) {
	l.Info(format, v...)
}
