// Package debuglog configures logrus for the bayesnet binaries: UTC
// timestamps with subsecond precision, caller file and line, and a level
// taken from configuration.
package debuglog

import (
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// Options control the logger. The zero value logs at info level to the
// standard logrus logger.
type Options struct {
	// Level is a logrus level name such as "debug" or "warn". Empty means
	// "info".
	Level string

	// If true, output is colored even when not writing to a terminal.
	ForceColors bool

	// If not nil, log here instead of the logger's current output.
	Output io.Writer

	// If not nil, this logger is configured instead of
	// logrus.StandardLogger(). Used by tests.
	Logger *logrus.Logger
}

// Configure sets up the logger. It's safe to call more than once but not
// concurrently.
func Configure(opts Options) (*logrus.Logger, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(strings.TrimSpace(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		level = parsed
	}
	logger.SetLevel(level)

	if opts.Output != nil {
		logger.SetOutput(opts.Output)
	}
	logger.SetReportCaller(true)
	logger.ReplaceHooks(make(logrus.LevelHooks))
	logger.AddHook(utcHook{})
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:             true,
		TimestampFormat:           "2006-01-02 15:04:05.000000 MST",
		ForceColors:               opts.ForceColors,
		EnvironmentOverrideColors: true,
		CallerPrettyfier:          shortCaller,
	})
	return logger, nil
}

// Discard returns a logger that drops everything, for library defaults
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// utcHook implements logrus.Hook. Its purpose is to convert the timestamp to
// UTC.
type utcHook struct{}

func (utcHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (utcHook) Fire(entry *logrus.Entry) error {
	entry.Time = entry.Time.UTC()
	return nil
}

// shortCaller trims the caller to "dir/file.go:line" and drops the
// function name, which is repeated in almost every message otherwise.
func shortCaller(frame *runtime.Frame) (function string, file string) {
	dir := filepath.Base(filepath.Dir(frame.File))
	return "", fmt.Sprintf("%s/%s:%d", dir, filepath.Base(frame.File), frame.Line)
}
