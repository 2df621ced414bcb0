package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logDirName  = ".flowsync/logs"
	logFileName = "flowsync.log"
	maxSizeMB   = 1    // 1MB per file
	maxAgeDays  = 14   // Keep 2 weeks
	maxBackups  = 20   // Max old log files
	compressOld = true // Compress rotated logs

	// LogDirEnv overrides the log directory (used by tests)
	LogDirEnv = "FLOWSYNC_LOG_DIR"
)

// Level represents the log level
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) logrus() logrus.Level {
	switch l {
	case DEBUG:
		return logrus.DebugLevel
	case WARN:
		return logrus.WarnLevel
	case ERROR:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// ParseLevel converts a flag value such as "debug" into a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG, nil
	case "info", "":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level %q", s)
	}
}

// lineFormatter writes one line per entry:
// [2025-01-02 15:04:05] INFO: Pulled flow 42 (3 placeholders)
type lineFormatter struct{}

func (f *lineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	level := strings.ToUpper(entry.Level.String())
	if entry.Level == logrus.WarnLevel {
		level = "WARN"
	}
	line := fmt.Sprintf("[%s] %s: %s\n", entry.Time.Format("2006-01-02 15:04:05"), level, entry.Message)
	return []byte(line), nil
}

// Logger manages logging to file and optionally stderr
type Logger struct {
	file       io.WriteCloser
	out        *logrus.Logger
	logPath    string
	level      Level
	mu         sync.Mutex
	alsoStderr bool
}

var (
	instance *Logger
	once     sync.Once
)

func newLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&lineFormatter{})
	l.SetLevel(logrus.InfoLevel)
	return l
}

func logDir() (string, error) {
	if dir := os.Getenv(LogDirEnv); dir != "" {
		return dir, nil
	}
	if home := os.Getenv("FLOWSYNC_HOME"); home != "" {
		return filepath.Join(home, "logs"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, logDirName), nil
}

// Init initializes the logger (creates log directory and file)
func Init() error {
	var err error
	once.Do(func() {
		dir, dirErr := logDir()
		if dirErr != nil {
			err = dirErr
			return
		}

		if mkdirErr := os.MkdirAll(dir, 0700); mkdirErr != nil {
			err = fmt.Errorf("failed to create log directory: %w", mkdirErr)
			return
		}

		logPath := filepath.Join(dir, logFileName)

		rotator := &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    maxSizeMB,
			MaxAge:     maxAgeDays,
			MaxBackups: maxBackups,
			Compress:   compressOld,
			LocalTime:  true,
		}

		instance = &Logger{
			file:    rotator,
			out:     newLogger(rotator),
			logPath: logPath,
			level:   INFO,
		}
	})
	return err
}

// Get returns the logger instance (initializes if needed)
func Get() *Logger {
	if instance == nil {
		if err := Init(); err != nil || instance == nil {
			// Fallback to stderr-only logger
			instance = &Logger{
				out:   newLogger(os.Stderr),
				level: INFO,
			}
		}
	}
	return instance
}

// Close closes the log file
func Close() error {
	if instance != nil && instance.file != nil {
		return instance.file.Close()
	}
	return nil
}

// Reset closes the current logger so the next Init picks up a new
// log directory. Used by tests.
func Reset() {
	Close()
	instance = nil
	once = sync.Once{}
}

// LogDir returns the directory holding the current and rotated log files
func LogDir() (string, error) {
	return logDir()
}

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
	l.out.SetLevel(level.logrus())
}

// SetAlsoStderr sets whether to also write to stderr
func (l *Logger) SetAlsoStderr(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.alsoStderr = enabled
}

// LogPath returns the path to the log file
func (l *Logger) LogPath() string {
	return l.logPath
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	message := fmt.Sprintf(format, args...)
	entry := logrus.NewEntry(l.out)

	switch level {
	case DEBUG:
		entry.Debug(message)
	case WARN:
		entry.Warn(message)
	case ERROR:
		entry.Error(message)
	default:
		entry.Info(message)
	}

	if l.alsoStderr && l.file != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", level, message)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(DEBUG, format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(INFO, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(WARN, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(ERROR, format, args...)
}

// ErrorPrint logs an error and also shows it to the user on stderr
func (l *Logger) ErrorPrint(format string, args ...interface{}) {
	l.log(ERROR, format, args...)
	if l.file != nil && !l.alsoStderr {
		fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	}
}

// Package-level convenience functions
func Debug(format string, args ...interface{}) {
	Get().Debug(format, args...)
}

func Info(format string, args ...interface{}) {
	Get().Info(format, args...)
}

func Warn(format string, args ...interface{}) {
	Get().Warn(format, args...)
}

func Error(format string, args ...interface{}) {
	Get().Error(format, args...)
}

func ErrorPrint(format string, args ...interface{}) {
	Get().ErrorPrint(format, args...)
}
