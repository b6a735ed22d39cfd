package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the rotating log file written under the log directory.
const FileName = "liveprobe.log"

// NewLogger logs JSON to stdout and to a rotating file in logDir. An empty
// logDir logs to stdout only.
func NewLogger(logDir string, level zapcore.Level) (*zap.Logger, error) {
	return newLogger(logDir, level, zapcore.Lock(os.Stdout))
}

func newLogger(logDir string, level zapcore.Level, console zapcore.WriteSyncer) (*zap.Logger, error) {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	enc := zapcore.NewJSONEncoder(cfg)

	cores := []zapcore.Core{zapcore.NewCore(enc, console, level)}
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, err
		}
		w := zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(logDir, FileName),
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(enc, w, level))
	}
	return zap.New(zapcore.NewTee(cores...)), nil
}
