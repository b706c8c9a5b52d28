package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// LogLevel is the severity of a log message.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[LogLevel]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

var (
	currentLevel LogLevel
	levelOnce    sync.Once
)

// initLevel resolves the level from the environment once. DEBUG is a
// shortcut that wins over LOG_LEVEL.
func initLevel() {
	levelOnce.Do(func() {
		switch strings.ToLower(os.Getenv("DEBUG")) {
		case "1", "true", "yes", "on":
			currentLevel = LevelDebug
			return
		}

		switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
		case "debug":
			currentLevel = LevelDebug
		case "warn", "warning":
			currentLevel = LevelWarn
		case "error":
			currentLevel = LevelError
		default:
			currentLevel = LevelInfo
		}
	})
}

// GetLevel returns the active log level.
func GetLevel() LogLevel {
	initLevel()
	return currentLevel
}

// IsDebugEnabled reports whether debug messages will be emitted.
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

func emit(level LogLevel, format string, args []interface{}) {
	if GetLevel() > level {
		return
	}
	log.Printf("["+levelNames[level]+"] "+format, args...)
}

// Debug logs at debug level.
func Debug(format string, args ...interface{}) { emit(LevelDebug, format, args) }

// Info logs at info level.
func Info(format string, args ...interface{}) { emit(LevelInfo, format, args) }

// Warn logs at warning level.
func Warn(format string, args ...interface{}) { emit(LevelWarn, format, args) }

// Error logs at error level.
func Error(format string, args ...interface{}) { emit(LevelError, format, args) }

// Fatal logs the message and exits. Never filtered.
func Fatal(format string, args ...interface{}) {
	log.Fatalf("[FATAL] "+format, args...)
}

// String returns the lowercase name of the level.
func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return strings.ToLower(name)
	}
	return fmt.Sprintf("unknown(%d)", l)
}
