// Package logger builds the zap loggers used by the catalog binaries.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the encoding and level of a logger
type Options struct {
	// Service is attached to every entry as the service field. Empty omits it.
	Service string
	Debug   bool
	// Console writes human readable lines instead of JSON
	Console bool
}

// New builds a logger for opts. JSON output has stack traces from error level up.
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}

	config := zap.NewProductionConfig()
	if opts.Console {
		config = zap.NewDevelopmentConfig()
	} else {
		config.Encoding = "json"
		config.EncoderConfig = zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		}
		config.DisableStacktrace = false
	}
	config.Level = zap.NewAtomicLevelAt(level)

	var fields []zap.Option
	if opts.Service != "" {
		fields = append(fields, zap.Fields(zap.String("service", opts.Service)))
	}
	return config.Build(fields...)
}

// NewProductionLogger is the JSON logger of a long-running catalog process
func NewProductionLogger(service string, debugMode bool) (*zap.Logger, error) {
	return New(Options{Service: service, Debug: debugMode})
}

// NewDevelopmentLogger is the console logger used by tagctl --debug
func NewDevelopmentLogger(debugMode bool) (*zap.Logger, error) {
	return New(Options{Debug: debugMode, Console: true})
}

// Sync flushes buffered entries. Safe on a nil logger and safe to repeat.
func Sync(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}
	return logger.Sync()
}

// Entity groups the identity of a catalog entity under one entity key
func Entity(entityType, fqn string) zap.Field {
	return zap.Dict("entity",
		zap.String("type", entityType),
		zap.String("fqn", SanitizeString(fqn, MaxFQNLength)),
	)
}
