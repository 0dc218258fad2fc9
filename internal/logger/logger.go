// Package logger owns the process-wide structured logger. Background
// invocations (tick, fire, boot) write only to the rotating file so a cron
// or systemd host sees nothing on stderr unless debugging.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/julianstephens/devotional/internal/constants"
)

// Logger is the global logger instance
var Logger *log.Logger

type Config struct {
	Debug     bool
	ConfigDir string
	// Level overrides the default info level (debug, info, warn, error)
	Level string
	// JSON switches to one JSON object per line for log shippers
	JSON bool
	// Output replaces the rotating file writer when set
	Output io.Writer
}

func (c Config) level() (log.Level, error) {
	if c.Debug {
		return log.DebugLevel, nil
	}
	if c.Level == "" {
		return log.InfoLevel, nil
	}
	lvl, err := log.ParseLevel(c.Level)
	if err != nil {
		return log.InfoLevel, fmt.Errorf("invalid log level %q", c.Level)
	}
	return lvl, nil
}

// LogPath is the rotating log file under configDir
func LogPath(configDir string) string {
	return filepath.Join(configDir, "logs", constants.AppName+".log")
}

// Init builds the global logger. An invalid level is reported after the
// logger has been set up at info level.
func Init(cfg Config) error {
	writer := cfg.Output
	if writer == nil {
		path := LogPath(cfg.ConfigDir)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		writer = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
	}
	if cfg.Debug {
		writer = io.MultiWriter(os.Stderr, writer)
	}

	level, levelErr := cfg.level()
	opts := log.Options{
		ReportCaller:    cfg.Debug,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          constants.AppName,
	}
	if cfg.JSON {
		opts.Formatter = log.JSONFormatter
	}
	Logger = log.NewWithOptions(writer, opts)
	return levelErr
}

// Component returns a child logger tagged with the component name.
// It falls back to a discarding logger when Init has not run.
func Component(name string) *log.Logger {
	if Logger == nil {
		return log.NewWithOptions(io.Discard, log.Options{})
	}
	return Logger.With("component", name)
}

func Debug(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Debug(msg, keyvals...)
	}
}

func Info(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Info(msg, keyvals...)
	}
}

func Warn(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Warn(msg, keyvals...)
	}
}

func Error(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Error(msg, keyvals...)
	}
}
