package utils

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const loggerName = "clinsev"

var logger *zap.Logger

// Logger returns the process-wide named zap logger. When LOG_FILE is set
// the output is teed to that file and stdout as JSON.
func Logger() *zap.Logger {
	if logger != nil {
		return logger
	}
	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logger = production()
		return logger
	}
	_ = os.MkdirAll(filepath.Dir(logFile), 0o755)
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		logger = production()
		return logger
	}
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	lvl := zapcore.InfoLevel
	logger = zap.New(zapcore.NewTee(
		zapcore.NewCore(enc, zapcore.AddSync(f), lvl),
		zapcore.NewCore(enc, zapcore.AddSync(os.Stdout), lvl),
	)).Named(loggerName)
	return logger
}

func production() *zap.Logger {
	l, _ := zap.NewProduction()
	return l.Named(loggerName)
}
