// Package logging provides categorized file-based debug logging for clsync.
// Logs are written under the configured directory with one file per category
// and day. When debug mode is off every call is a no-op, so callers never
// guard their log statements.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/subsystem.
type Category string

const (
	CategoryBoot    Category = "boot"    // Startup, config, CLI wiring
	CategoryBrowser Category = "browser" // CDP connection, navigation, page waits
	CategoryExtract Category = "extract" // DOM extraction strategies
	CategoryModal   Category = "modal"   // File preview open/extract/close lifecycle
	CategorySync    Category = "sync"    // Orchestration, retries, progress
	CategoryStore   Category = "store"   // Local persistence, sync state
)

// Log levels.
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Options controls logger behavior. Zero value means disabled.
type Options struct {
	Enabled    bool
	Dir        string
	Level      string          // debug, info, warn, error
	Categories map[string]bool // nil = all categories enabled
}

// Logger wraps a standard logger with a category and file output.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	mu       sync.RWMutex
	opts     Options
	logLevel = LevelInfo
	loggers  = make(map[Category]*Logger)
)

// Initialize configures the logging system. Safe to call once at startup;
// with Enabled false (or an empty Dir) all loggers are no-ops.
func Initialize(o Options) error {
	mu.Lock()
	defer mu.Unlock()

	opts = o
	switch o.Level {
	case "debug":
		logLevel = LevelDebug
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}

	if !o.Enabled || o.Dir == "" {
		return nil
	}
	if err := os.MkdirAll(o.Dir, 0o755); err != nil {
		return fmt.Errorf("create logs directory: %w", err)
	}
	return nil
}

func categoryEnabled(c Category) bool {
	if !opts.Enabled || opts.Dir == "" {
		return false
	}
	if opts.Categories == nil {
		return true
	}
	enabled, ok := opts.Categories[string(c)]
	if !ok {
		return true
	}
	return enabled
}

// Get returns (or creates) the logger for a category. A no-op logger is
// returned when the category is disabled, which keeps call sites branch-free.
func Get(c Category) *Logger {
	mu.RLock()
	if !categoryEnabled(c) {
		mu.RUnlock()
		return &Logger{category: c}
	}
	if l, ok := loggers[c]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[c]; ok {
		return l
	}

	date := time.Now().Format("2006-01-02")
	path := filepath.Join(opts.Dir, fmt.Sprintf("%s_%s.log", date, c))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] could not open %s: %v\n", path, err)
		return &Logger{category: c}
	}

	l := &Logger{
		category: c,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[c] = l
	return l
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelDebug {
		return
	}
	l.logger.Printf("[DEBUG] %s", fmt.Sprintf(format, args...))
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelInfo {
		return
	}
	l.logger.Printf("[INFO] %s", fmt.Sprintf(format, args...))
}

// Warn logs a warning.
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelWarn {
		return
	}
	l.logger.Printf("[WARN] %s", fmt.Sprintf(format, args...))
}

// Error logs an error. Errors are always written when the logger exists.
func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Printf("[ERROR] %s", fmt.Sprintf(format, args...))
}

// CloseAll closes all open log files. Call at shutdown.
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// Convenience functions. No-ops when the category is disabled.

func Boot(format string, args ...interface{})    { Get(CategoryBoot).Info(format, args...) }
func Browser(format string, args ...interface{}) { Get(CategoryBrowser).Info(format, args...) }
func Extract(format string, args ...interface{}) { Get(CategoryExtract).Info(format, args...) }
func Modal(format string, args ...interface{})   { Get(CategoryModal).Info(format, args...) }
func Sync(format string, args ...interface{})    { Get(CategorySync).Info(format, args...) }
func Store(format string, args ...interface{})   { Get(CategoryStore).Info(format, args...) }

func BrowserDebug(format string, args ...interface{}) { Get(CategoryBrowser).Debug(format, args...) }
func ExtractDebug(format string, args ...interface{}) { Get(CategoryExtract).Debug(format, args...) }
func ModalDebug(format string, args ...interface{})   { Get(CategoryModal).Debug(format, args...) }
func SyncDebug(format string, args ...interface{})    { Get(CategorySync).Debug(format, args...) }
func StoreDebug(format string, args ...interface{})   { Get(CategoryStore).Debug(format, args...) }

func BrowserWarn(format string, args ...interface{}) { Get(CategoryBrowser).Warn(format, args...) }
func ModalWarn(format string, args ...interface{})   { Get(CategoryModal).Warn(format, args...) }
func SyncWarn(format string, args ...interface{})    { Get(CategorySync).Warn(format, args...) }

func BrowserError(format string, args ...interface{}) { Get(CategoryBrowser).Error(format, args...) }
func ModalError(format string, args ...interface{})   { Get(CategoryModal).Error(format, args...) }
func SyncError(format string, args ...interface{})    { Get(CategorySync).Error(format, args...) }
func StoreError(format string, args ...interface{})   { Get(CategoryStore).Error(format, args...) }

// Timer helps measure operation duration.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(c Category, operation string) *Timer {
	return &Timer{category: c, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}
