package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Logger provides leveled logging for headline components.
// All loggers created during one process run append to the same
// run-specific file in ~/.headline/logs/.
type Logger struct {
	runID     string
	component string
	file      *os.File
	logger    *log.Logger
	logPath   string
	closeOnce sync.Once
}

var (
	// Global run ID for the current process
	runID     string
	runIDOnce sync.Once

	// logDir is the directory where log files are stored
	logDir string

	// initOnce ensures directory initialization happens once
	initOnce sync.Once

	// initErr stores any error from directory initialization
	initErr error

	levelMu      sync.RWMutex
	defaultLevel = log.InfoLevel
)

// getRunID returns or creates the run ID for this process
func getRunID() string {
	runIDOnce.Do(func() {
		runID = uuid.New().String()
	})
	return runID
}

// initLogDirectory ensures the log directory exists
func initLogDirectory() error {
	initOnce.Do(func() {
		if logDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				initErr = fmt.Errorf("failed to get home directory: %w", err)
				return
			}
			logDir = filepath.Join(homeDir, ".headline", "logs")
		}
		if err := os.MkdirAll(logDir, 0750); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
			return
		}
	})
	return initErr
}

// SetDirectory overrides the log directory. It only has an effect before the
// first logger is created.
func SetDirectory(dir string) {
	if dir != "" {
		logDir = dir
	}
}

// SetLevel sets the level used by loggers created afterwards.
// Accepted values: debug, info, warn, error.
func SetLevel(level string) error {
	parsed, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	levelMu.Lock()
	defaultLevel = parsed
	levelMu.Unlock()
	return nil
}

func currentLevel() log.Level {
	levelMu.RLock()
	defer levelMu.RUnlock()
	return defaultLevel
}

// NewLogger creates a new logger for a specific component.
// The logger writes to ~/.headline/logs/<run-id>-headline.log
//
// If the log directory cannot be created or the log file cannot be opened,
// it returns a fallback logger that writes to stderr along with the error.
func NewLogger(component string) (*Logger, error) {
	if err := initLogDirectory(); err != nil {
		return newFallbackLogger(component, err), err
	}

	id := getRunID()
	logPath := filepath.Join(logDir, fmt.Sprintf("%s-headline.log", id))

	// Append mode: every component shares the run file
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return newFallbackLogger(component, fmt.Errorf("failed to open log file: %w", err)), err
	}

	return &Logger{
		runID:     id,
		component: component,
		file:      file,
		logger:    newCharmLogger(file, component),
		logPath:   logPath,
	}, nil
}

// New creates a logger writing to w. Used for console output and tests.
func New(component string, w io.Writer) *Logger {
	return &Logger{
		runID:     getRunID(),
		component: component,
		logger:    newCharmLogger(w, component),
	}
}

// Discard returns a logger that drops every entry.
func Discard() *Logger {
	return New("discard", io.Discard)
}

// MustLogger returns the file logger for component, or the stderr fallback
// when file logging is unavailable.
func MustLogger(component string) *Logger {
	l, _ := NewLogger(component)
	return l
}

// newFallbackLogger creates a logger that writes to stderr when file logging fails
func newFallbackLogger(component string, err error) *Logger {
	l := New(component, os.Stderr)
	l.Warnf("failed to initialize file logging: %v", err)
	l.Warnf("falling back to stderr logging")
	return l
}

func newCharmLogger(w io.Writer, component string) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Prefix:          component,
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02 15:04:05.000",
		Level:           currentLevel(),
	})
}

// With returns a child logger for a sub-component sharing the same output.
func (l *Logger) With(sub string) *Logger {
	name := l.component + "/" + sub
	child := l.logger.WithPrefix(name)
	return &Logger{
		runID:     l.runID,
		component: name,
		logger:    child,
		logPath:   l.logPath,
	}
}

// SetLevel changes this logger's level.
func (l *Logger) SetLevel(level string) error {
	parsed, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	l.logger.SetLevel(parsed)
	return nil
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.logger.Debugf(format, v...)
}

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) {
	l.logger.Infof(format, v...)
}

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.logger.Warnf(format, v...)
}

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.logger.Errorf(format, v...)
}

// Writer returns the writer backing this logger
func (l *Logger) Writer() io.Writer {
	if l.file != nil {
		return l.file
	}
	return os.Stderr
}

// RunID returns the current run ID
func (l *Logger) RunID() string {
	return l.runID
}

// LogPath returns the path to the log file
func (l *Logger) LogPath() string {
	return l.logPath
}

// Close closes the log file. Safe to call multiple times.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}

// GetRunID returns the current global run ID
func GetRunID() string {
	return getRunID()
}

// GetLogDirectory returns the directory where logs are stored
func GetLogDirectory() (string, error) {
	if err := initLogDirectory(); err != nil {
		return "", err
	}
	return logDir, nil
}

// Elapsed formats the time since start for progress messages.
func Elapsed(start time.Time) string {
	return time.Since(start).Truncate(time.Millisecond).String()
}
