/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: logger.go
Description: Logging system for irscope. Provides structured logging with timestamped
files, text, JSON and custom output formats, and helpers for analysis and decode events.
*/

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/lestrrat-go/strftime"
	"github.com/sirupsen/logrus"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warn"
	LogLevelError   LogLevel = "error"
	LogLevelFatal   LogLevel = "fatal"
)

// LogFormat represents the logging format
type LogFormat string

const (
	LogFormatJSON   LogFormat = "json"
	LogFormatText   LogFormat = "text"
	LogFormatCustom LogFormat = "custom"
)

// Log files are named filePrefix + strftime(TimeFormat) + fileSuffix.
const (
	filePrefix        = "irscope_"
	fileSuffix        = ".log"
	DefaultTimeFormat = "%Y-%m-%d_%H-%M-%S"
)

// LoggerConfig holds the configuration for the logger
type LoggerConfig struct {
	Level  LogLevel  `json:"level" mapstructure:"level"`
	Format LogFormat `json:"format" mapstructure:"format"`
	// OutputDir receives one log file per run; empty logs to the console only.
	OutputDir  string `json:"output_dir" mapstructure:"output_dir"`
	MaxFiles   int    `json:"max_files" mapstructure:"max_files"`
	TimeFormat string `json:"time_format" mapstructure:"time_format"`
	Timestamp  bool   `json:"timestamp" mapstructure:"timestamp"`
	Caller     bool   `json:"caller" mapstructure:"caller"`
	Colors     bool   `json:"colors" mapstructure:"colors"`
	// Compress gzips the log file when the logger is closed.
	Compress bool `json:"compress" mapstructure:"compress"`

	// Console defaults to stderr so that command output on stdout stays clean.
	Console io.Writer `json:"-" mapstructure:"-"`
}

// DefaultLoggerConfig logs at info level to the console with the custom formatter.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:      LogLevelInfo,
		Format:     LogFormatCustom,
		MaxFiles:   10,
		TimeFormat: DefaultTimeFormat,
		Timestamp:  true,
		Colors:     true,
	}
}

// Validate checks the LoggerConfig for invalid or missing values.
func (c *LoggerConfig) Validate() error {
	if c.OutputDir != "" && c.MaxFiles <= 0 {
		return fmt.Errorf("max_files must be positive")
	}
	switch c.Format {
	case LogFormatJSON, LogFormatText, LogFormatCustom:
	default:
		return fmt.Errorf("unsupported log format: %s", c.Format)
	}
	switch c.Level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError, LogLevelFatal:
	default:
		return fmt.Errorf("unsupported log level: %s", c.Level)
	}
	if c.TimeFormat != "" {
		if _, err := strftime.New(c.TimeFormat); err != nil {
			return fmt.Errorf("invalid time_format %q: %w", c.TimeFormat, err)
		}
	}
	return nil
}

// Logger wraps a logrus logger together with its log file.
type Logger struct {
	config     *LoggerConfig
	logger     *logrus.Logger
	fileHandle *os.File
	filePath   string
	startTime  time.Time
}

// NewLogger creates a new logger instance
func NewLogger(config *LoggerConfig) (*Logger, error) {
	if config == nil {
		config = DefaultLoggerConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	l := &Logger{
		config:    config,
		logger:    logrus.New(),
		startTime: time.Now(),
	}

	if err := l.setup(); err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	return l, nil
}

// setup configures the logger with the given configuration
func (l *Logger) setup() error {
	level, err := logrus.ParseLevel(string(l.config.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.logger.SetLevel(level)
	l.logger.SetReportCaller(l.config.Caller)

	if err := l.setFormatter(); err != nil {
		return err
	}

	console := l.config.Console
	if console == nil {
		console = os.Stderr
	}
	l.logger.SetOutput(console)

	return l.setupFileOutput(console)
}

// setFormatter configures the log formatter
func (l *Logger) setFormatter() error {
	callerPrettyfier := func(f *runtime.Frame) (string, string) {
		return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
	}

	switch l.config.Format {
	case LogFormatJSON:
		l.logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat:  time.RFC3339,
			DisableTimestamp: !l.config.Timestamp,
			CallerPrettyfier: callerPrettyfier,
		})

	case LogFormatText:
		l.logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    l.config.Timestamp,
			DisableTimestamp: !l.config.Timestamp,
			TimestampFormat:  time.RFC3339,
			ForceColors:      l.config.Colors,
			DisableColors:    !l.config.Colors,
			CallerPrettyfier: callerPrettyfier,
		})

	case LogFormatCustom:
		l.logger.SetFormatter(&CustomFormatter{
			Timestamp: l.config.Timestamp,
			Caller:    l.config.Caller,
			Colors:    l.config.Colors,
		})

	default:
		return fmt.Errorf("unsupported log format: %s", l.config.Format)
	}

	return nil
}

// setupFileOutput opens the timestamped log file and tees the console into it
func (l *Logger) setupFileOutput(console io.Writer) error {
	if l.config.OutputDir == "" {
		return nil
	}

	if err := os.MkdirAll(l.config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	name, err := LogFileName(l.config.TimeFormat, l.startTime)
	if err != nil {
		return err
	}
	path := filepath.Join(l.config.OutputDir, name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	l.fileHandle = file
	l.filePath = path

	l.logger.SetOutput(io.MultiWriter(console, file))

	l.logger.WithFields(logrus.Fields{
		"component": "logging",
		"log_file":  path,
		"level":     l.config.Level,
		"format":    l.config.Format,
	}).Debug("Logging initialized")

	return nil
}

// LogFileName returns the file name of a log started at t.
func LogFileName(timeFormat string, t time.Time) (string, error) {
	if timeFormat == "" {
		timeFormat = DefaultTimeFormat
	}
	stamp, err := strftime.Format(timeFormat, t)
	if err != nil {
		return "", fmt.Errorf("invalid time_format %q: %w", timeFormat, err)
	}
	return filePrefix + stamp + fileSuffix, nil
}

// FilePath is the path of the current log file, or "" when logging to the console only.
func (l *Logger) FilePath() string {
	return l.filePath
}

// LogAnalysis logs the outcome of one strategy on one input.
func (l *Logger) LogAnalysis(run string, input int, strategy string, weight int, protocol string) {
	l.logger.WithFields(logrus.Fields{
		"component": "analyze",
		"run":       run,
		"input":     input,
		"strategy":  strategy,
		"weight":    weight,
	}).Info(protocol)
}

// LogDecode logs a decode.
func (l *Logger) LogDecode(session string, protocol string, params map[string]int64, begin, end int) {
	l.logger.WithFields(logrus.Fields{
		"component": "decode",
		"session":   session,
		"protocol":  protocol,
		"params":    params,
		"begin":     begin,
		"end":       end,
	}).Info("Signal decoded")
}

// LogWarning logs a non-fatal problem reported by the engine.
func (l *Logger) LogWarning(component string, warning string) {
	l.logger.WithField("component", component).Warn(warning)
}

// Close closes the log file, compresses it when configured and removes old files.
func (l *Logger) Close() error {
	if l.fileHandle == nil {
		return nil
	}
	l.logger.SetOutput(io.Discard)
	if err := l.fileHandle.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	l.fileHandle = nil

	manager := NewLogManager(l.config.OutputDir, l.config.MaxFiles, l.config.Compress)
	if l.config.Compress {
		if err := manager.compressFile(l.filePath); err != nil {
			return fmt.Errorf("failed to compress log file: %w", err)
		}
	}
	if err := manager.CleanupOldLogs(); err != nil {
		return fmt.Errorf("failed to cleanup log files: %w", err)
	}
	return nil
}

// GetLogger returns the underlying logrus logger
func (l *Logger) GetLogger() *logrus.Logger {
	return l.logger
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields map[string]interface{}) {
	l.logger.WithFields(fields).Debug(msg)
}

// Info logs an info message
func (l *Logger) Info(msg string, fields map[string]interface{}) {
	l.logger.WithFields(fields).Info(msg)
}

