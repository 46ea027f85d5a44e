package config

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func parseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return lvl, fmt.Errorf("log level: %w", err)
	}
	return lvl, nil
}

// NewLogger builds a console logger on stderr. When a file is configured the
// same entries are also written as JSON to a rotated log file. cleanup
// flushes the logger and closes the file.
func NewLogger(cfg Log) (logger *zap.Logger, cleanup func(), err error) {
	lvl, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	console := zap.NewDevelopmentEncoderConfig()
	console.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(console), zapcore.Lock(os.Stderr), lvl),
	}

	var rotated *lumberjack.Logger
	if cfg.File != "" {
		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		rotated = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    maxSize, // MB
			MaxBackups: cfg.MaxBackups,
			MaxAge:     28, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(rotated),
			lvl,
		))
	}

	logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	cleanup = func() {
		_ = logger.Sync()
		if rotated != nil {
			_ = rotated.Close()
		}
	}
	return logger, cleanup, nil
}
