package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"
)

// LogDirEnv overrides the default log directory (~/.pagepilot/logs).
const LogDirEnv = "PAGEPILOT_LOG_DIR"

// Logger provides component-scoped logging for pagepilot.
// All components of one process write to a session-specific file in the
// log directory. When the file cannot be opened the logger falls back to
// colored stderr output.
type Logger struct {
	sessionID string
	component string
	file      *os.File
	slog      *slog.Logger
	logPath   string
	closeOnce sync.Once
}

var (
	// Global session ID for the current execution
	sessionID     string
	sessionIDOnce sync.Once

	// logDir is the directory where log files are stored
	logDir   string
	initOnce sync.Once
	initErr  error

	// level is shared by every logger in the process
	level slog.LevelVar
)

// getSessionID returns or creates the session ID for this execution
func getSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

// initLogDirectory ensures the log directory exists
func initLogDirectory() error {
	initOnce.Do(func() {
		dir := os.Getenv(LogDirEnv)
		if dir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				initErr = fmt.Errorf("failed to get home directory: %w", err)
				return
			}
			dir = filepath.Join(homeDir, ".pagepilot", "logs")
		}

		if err := os.MkdirAll(dir, 0750); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
			return
		}
		logDir = dir
	})
	return initErr
}

// SetLevel sets the minimum level for all loggers.
// Accepted values: debug, info, warn, error.
func SetLevel(name string) error {
	switch strings.ToLower(name) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info", "":
		level.Set(slog.LevelInfo)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level %q", name)
	}
	return nil
}

// NewLogger creates a new logger for a specific component.
// The logger writes to <log dir>/<session-id>-pagepilot.log.
//
// If the log directory cannot be created or the log file cannot be opened,
// it returns a fallback logger that writes to stderr along with the error.
func NewLogger(component string) (*Logger, error) {
	if err := initLogDirectory(); err != nil {
		return newFallbackLogger(component), err
	}

	sessID := getSessionID()
	logPath := filepath.Join(logDir, fmt.Sprintf("%s-pagepilot.log", sessID))

	// Multiple components append to the same file
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return newFallbackLogger(component), fmt.Errorf("failed to open log file: %w", err)
	}

	handler := slog.NewTextHandler(file, &slog.HandlerOptions{Level: &level})

	return &Logger{
		sessionID: sessID,
		component: component,
		file:      file,
		slog:      slog.New(handler).With("component", component, "session", sessID),
		logPath:   logPath,
	}, nil
}

var fallbackWarned atomic.Bool

// newFallbackLogger creates a logger that writes to stderr when file logging fails
func newFallbackLogger(component string) *Logger {
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      &level,
		TimeFormat: "15:04:05.000",
	})
	l := &Logger{
		sessionID: getSessionID(),
		component: component,
		slog:      slog.New(handler).With("component", component),
	}
	if fallbackWarned.CompareAndSwap(false, true) {
		l.slog.Warn("file logging unavailable, falling back to stderr")
	}
	return l
}

// Printf logs a formatted message at info level
func (l *Logger) Printf(format string, v ...interface{}) {
	l.slog.Info(fmt.Sprintf(format, v...))
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.slog.Debug(fmt.Sprintf(format, v...))
}

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) {
	l.slog.Info(fmt.Sprintf(format, v...))
}

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.slog.Warn(fmt.Sprintf(format, v...))
}

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.slog.Error(fmt.Sprintf(format, v...))
}

// Slog returns the underlying structured logger.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// SessionID returns the current session ID
func (l *Logger) SessionID() string {
	return l.sessionID
}

// LogPath returns the path to the log file, empty for non-file loggers
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

// GetSessionID returns the current global session ID
func GetSessionID() string {
	return getSessionID()
}

// GetLogDirectory returns the directory where logs are stored
func GetLogDirectory() (string, error) {
	if err := initLogDirectory(); err != nil {
		return "", err
	}
	return logDir, nil
}
