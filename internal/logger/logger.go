package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/funnyzak/reqloop/internal/config"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger logging interface
type Logger interface {
	// Debug logs a Debug event.
	Debug(msg string, fields ...interface{})
	// Info logs an Info event.
	Info(msg string, fields ...interface{})
	// Warn logs a Warn event.
	Warn(msg string, fields ...interface{})
	// Error logs an Error event.
	Error(msg string, fields ...interface{})
	// Fatal logs a Fatal event and terminates the program.
	Fatal(msg string, fields ...interface{})
	// With returns a child logger that always carries the given key/value pairs.
	With(fields ...interface{}) Logger
}

// zerologAdapter zerolog adapter
type zerologAdapter struct {
	logger *zerolog.Logger
}

func appendField(ctx zerolog.Context, key string, value interface{}) zerolog.Context {
	switch v := value.(type) {
	case string:
		return ctx.Str(key, v)
	case int:
		return ctx.Int(key, v)
	case bool:
		return ctx.Bool(key, v)
	default:
		return ctx.Interface(key, v)
	}
}

// addFields adds key/value pairs to a zerolog event
func (z *zerologAdapter) addFields(event *zerolog.Event, fields ...interface{}) *zerolog.Event {
	for i := 0; i < len(fields)-1; i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}

		switch v := fields[i+1].(type) {
		case string:
			event = event.Str(key, v)
		case int:
			event = event.Int(key, v)
		case int64:
			event = event.Int64(key, v)
		case uint64:
			event = event.Uint64(key, v)
		case float64:
			event = event.Float64(key, v)
		case bool:
			event = event.Bool(key, v)
		case time.Duration:
			event = event.Dur(key, v)
		case error:
			event = event.AnErr(key, v)
		case []string:
			event = event.Strs(key, v)
		default:
			event = event.Interface(key, v)
		}
	}

	return event
}

// Debug implements Logger
func (z *zerologAdapter) Debug(msg string, fields ...interface{}) {
	z.addFields(z.logger.Debug(), fields...).Msg(msg)
}

// Info implements Logger
func (z *zerologAdapter) Info(msg string, fields ...interface{}) {
	z.addFields(z.logger.Info(), fields...).Msg(msg)
}

// Warn implements Logger
func (z *zerologAdapter) Warn(msg string, fields ...interface{}) {
	z.addFields(z.logger.Warn(), fields...).Msg(msg)
}

// Error implements Logger
func (z *zerologAdapter) Error(msg string, fields ...interface{}) {
	z.addFields(z.logger.Error(), fields...).Msg(msg)
}

// Fatal implements Logger
func (z *zerologAdapter) Fatal(msg string, fields ...interface{}) {
	z.addFields(z.logger.Fatal(), fields...).Msg(msg)
}

// With implements Logger
func (z *zerologAdapter) With(fields ...interface{}) Logger {
	ctx := z.logger.With()
	for i := 0; i < len(fields)-1; i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		ctx = appendField(ctx, key, fields[i+1])
	}
	child := ctx.Logger()
	return &zerologAdapter{logger: &child}
}

// NewLogger creates new logger instance.
// Log lines go to stderr so stdout stays reserved for command output.
func NewLogger(cfg *config.LogConfig, outputMode string) Logger {
	return newLogger(cfg, outputMode, os.Stderr)
}

func newLogger(cfg *config.LogConfig, outputMode string, out io.Writer) Logger {
	logLevel, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}

	var writers []io.Writer
	if strings.ToLower(outputMode) == "json" {
		writers = append(writers, out)
	} else {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "2006-01-02 15:04:05",
		})
	}

	if cfg.FileLogging.Enable {
		// file sink always receives JSON lines
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.FileLogging.Path,
			MaxSize:    cfg.FileLogging.MaxSizeMB,
			MaxBackups: cfg.FileLogging.MaxBackups,
			MaxAge:     cfg.FileLogging.MaxAgeDays,
			Compress:   cfg.FileLogging.Compress,
		})
	}

	logger := zerolog.New(io.MultiWriter(writers...)).Level(logLevel).With().Timestamp().Logger()
	return &zerologAdapter{logger: &logger}
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	logger := zerolog.Nop()
	return &zerologAdapter{logger: &logger}
}
