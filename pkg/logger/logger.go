package logger

import (
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Fields is the structured payload attached to a log line.
type Fields = map[string]interface{}

// Logger wraps zerolog.Logger with additional context
type Logger struct {
	logger zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level       string // debug, info, warn, error, fatal
	Format      string // json, console
	Output      io.Writer
	EnableColor bool
}

var (
	globalLogger *Logger
	initOnce     sync.Once
	mu           sync.RWMutex
)

// Initialize replaces the global logger with one built from cfg
func Initialize(cfg Config) {
	zerolog.SetGlobalLevel(parseLogLevel(cfg.Level))

	var output io.Writer = os.Stdout
	if cfg.Output != nil {
		output = cfg.Output
	}
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
			NoColor:    !cfg.EnableColor,
		}
	}

	l := zerolog.New(output).With().Timestamp().Logger()

	mu.Lock()
	globalLogger = &Logger{logger: l}
	mu.Unlock()
	log.Logger = l
}

func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get returns the global logger, creating a console logger on first use
func Get() *Logger {
	mu.RLock()
	l := globalLogger
	mu.RUnlock()
	if l != nil {
		return l
	}

	initOnce.Do(func() {
		mu.RLock()
		initialized := globalLogger != nil
		mu.RUnlock()
		if !initialized {
			Initialize(Config{Level: "info", Format: "console", EnableColor: true})
		}
	})

	mu.RLock()
	defer mu.RUnlock()
	return globalLogger
}

// WithContext returns a child logger carrying the given fields on every line
func (l *Logger) WithContext(fields Fields) *Logger {
	ctx := l.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{logger: ctx.Logger()}
}

func (l *Logger) Debug(msg string, fields ...Fields) {
	l.emit(l.logger.Debug(), caller(), msg, fields)
}

func (l *Logger) Info(msg string, fields ...Fields) {
	l.emit(l.logger.Info(), caller(), msg, fields)
}

func (l *Logger) Warn(msg string, fields ...Fields) {
	l.emit(l.logger.Warn(), caller(), msg, fields)
}

func (l *Logger) Error(msg string, err error, fields ...Fields) {
	l.emit(l.logger.Error().Err(err), caller(), msg, fields)
}

// Fatal logs and exits the process
func (l *Logger) Fatal(msg string, err error, fields ...Fields) {
	l.emit(l.logger.Fatal().Err(err), caller(), msg, fields)
}

func (l *Logger) emit(event *zerolog.Event, at string, msg string, fields []Fields) {
	if event == nil {
		return
	}
	event = event.Str("caller", at)
	if len(fields) > 0 {
		for k, v := range fields[0] {
			event = event.Interface(k, v)
		}
	}
	event.Msg(msg)
}

// caller reports the file:line of the function that called a logging method.
func caller() string {
	pc, file, line, _ := runtime.Caller(2)
	return zerolog.CallerMarshalFunc(pc, file, line)
}

// Package-level convenience functions

func Debug(msg string, fields ...Fields) {
	Get().emit(Get().logger.Debug(), caller(), msg, fields)
}

func Info(msg string, fields ...Fields) {
	Get().emit(Get().logger.Info(), caller(), msg, fields)
}

func Warn(msg string, fields ...Fields) {
	Get().emit(Get().logger.Warn(), caller(), msg, fields)
}

func Error(msg string, err error, fields ...Fields) {
	Get().emit(Get().logger.Error().Err(err), caller(), msg, fields)
}

func Fatal(msg string, err error, fields ...Fields) {
	Get().emit(Get().logger.Fatal().Err(err), caller(), msg, fields)
}

// WithContext returns a child of the global logger
func WithContext(fields Fields) *Logger {
	return Get().WithContext(fields)
}
