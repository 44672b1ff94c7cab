package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/brizzai/searchkit/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var globalLogger = zap.NewNop()

func consoleEncoderConfig(cfg *config.LoggingConfig) zapcore.EncoderConfig {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	if cfg.Color {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	return encoderConfig
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeDuration = zapcore.MillisDurationEncoder
	return encoderConfig
}

// InitLogger builds a logger from cfg and installs it as the global logger.
func InitLogger(cfg *config.LoggingConfig) error {
	l, err := NewLogger(cfg)
	if err != nil {
		return err
	}
	globalLogger = l
	return nil
}

// NewLogger creates a zap logger. Output goes to stdout/stderr unless
// DisableConsole is set, plus OutputPath when given.
func NewLogger(cfg *config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %v", err)
	}

	encoding := "console"
	encoderConfig := consoleEncoderConfig(cfg)
	switch cfg.Format {
	case "json":
		encoding = "json"
		encoderConfig = jsonEncoderConfig()
	case "console", "":
	default:
		return nil, fmt.Errorf("invalid log format: %s", cfg.Format)
	}

	var outputPaths, errorOutputPaths []string
	if !cfg.DisableConsole {
		// stdout may carry MCP stdio frames, so console logs go to stderr.
		outputPaths = append(outputPaths, "stderr")
		errorOutputPaths = append(errorOutputPaths, "stderr")
	}

	if cfg.OutputPath != "" {
		dir := filepath.Dir(cfg.OutputPath)
		if dir != "." && dir != "" {
			if err = os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}
		if !cfg.AppendToFile {
			_ = os.Remove(cfg.OutputPath)
		}
		outputPaths = append(outputPaths, cfg.OutputPath)
		errorOutputPaths = append(errorOutputPaths, cfg.OutputPath)
	}

	if len(outputPaths) == 0 {
		outputPaths = append(outputPaths, "stderr")
	}
	if len(errorOutputPaths) == 0 {
		errorOutputPaths = append(errorOutputPaths, "stderr")
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      encoding == "console",
		Encoding:         encoding,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: errorOutputPaths,
		EncoderConfig:    encoderConfig,
	}

	opts := []zap.Option{zap.AddCallerSkip(1)}
	if !cfg.DisableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	l, err := zapConfig.Build(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %v", err)
	}
	return l, nil
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	return globalLogger
}

// Named returns a child of the global logger scoped to a component.
func Named(component string) *zap.Logger {
	return globalLogger.WithOptions(zap.AddCallerSkip(-1)).Named(component)
}

func Debug(msg string, fields ...zap.Field) {
	globalLogger.Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	globalLogger.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	globalLogger.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	globalLogger.Error(msg, fields...)
}

// Fatal logs a fatal message and exits
func Fatal(msg string, fields ...zap.Field) {
	globalLogger.Fatal(msg, fields...)
}

// Sync flushes any buffered log entries
func Sync() error {
	return globalLogger.Sync()
}
