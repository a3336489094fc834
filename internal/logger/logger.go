// Package logger provides leveled logging on top of the standard log package.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Level represents a logging level.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// ParseLevel maps a config string to a Level. Unknown values map to InfoLevel.
func ParseLevel(level string) Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

type leveled struct {
	level  Level
	logger *log.Logger
}

var std = &leveled{
	level:  InfoLevel,
	logger: log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile),
}

// Init configures the default logger. Format "text" adds file:line to each line.
func Init(level, format string) {
	InitWriter(os.Stderr, level, format)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, level, format string) {
	flags := log.LstdFlags | log.Lmicroseconds
	if strings.ToLower(format) == "text" {
		flags |= log.Lshortfile
	}
	std = &leveled{level: ParseLevel(level), logger: log.New(w, "", flags)}
}

func output(l Level, prefix, format string, args ...interface{}) {
	if std.level > l {
		return
	}
	_ = std.logger.Output(3, fmt.Sprintf(prefix+format, args...))
}

func Debug(format string, args ...interface{}) { output(DebugLevel, "[DEBUG] ", format, args...) }
func Info(format string, args ...interface{})  { output(InfoLevel, "[INFO] ", format, args...) }
func Warn(format string, args ...interface{})  { output(WarnLevel, "[WARN] ", format, args...) }
func Error(format string, args ...interface{}) { output(ErrorLevel, "[ERROR] ", format, args...) }

// Fatal logs unconditionally and exits the process.
func Fatal(format string, args ...interface{}) {
	_ = std.logger.Output(2, fmt.Sprintf("[FATAL] "+format, args...))
	os.Exit(1)
}

// Printer adapts a level to the Printf interface expected by third-party
// libraries (cron job logging, for example).
type Printer Level

func (p Printer) Printf(format string, args ...interface{}) {
	switch Level(p) {
	case DebugLevel:
		output(DebugLevel, "[DEBUG] ", format, args...)
	case WarnLevel:
		output(WarnLevel, "[WARN] ", format, args...)
	case ErrorLevel:
		output(ErrorLevel, "[ERROR] ", format, args...)
	default:
		output(InfoLevel, "[INFO] ", format, args...)
	}
}
