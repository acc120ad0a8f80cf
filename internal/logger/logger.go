package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/erazemk/storeroom/internal/config"
)

// New builds a logger from cfg. Records at INFO/WARN go to stdout and ERROR+
// to stderr. If cfg.File is set, every enabled record is also appended to that
// file. The returned function syncs the logger and closes the file.
func New(cfg config.LogConfig) (*zap.Logger, func(), error) {
	var file zapcore.WriteSyncer
	closeFile := func() {}

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		file = zapcore.AddSync(f)
		closeFile = func() { f.Close() }
	}

	core, err := newCore(cfg, zapcore.Lock(os.Stdout), zapcore.Lock(os.Stderr), file)
	if err != nil {
		closeFile()
		return nil, nil, err
	}

	log := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	cleanup := func() {
		_ = log.Sync()
		closeFile()
	}
	return log, cleanup, nil
}

func newCore(cfg config.LogConfig, stdout, stderr, file zapcore.WriteSyncer) (zapcore.Core, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	low := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= level && l < zapcore.ErrorLevel
	})
	high := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= level && l >= zapcore.ErrorLevel
	})

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, stdout, low),
		zapcore.NewCore(encoder, stderr, high),
	}
	if file != nil {
		// Files never get colour codes.
		fileConfig := encoderConfig
		fileConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileConfig), file, level))
	}

	return zapcore.NewTee(cores...), nil
}
