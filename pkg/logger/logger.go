package logger

import (
	"os"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Handroo/elasticsearch-oai/pkg/settings"
)

const (
	defaultMaxSize    = 100 // Megabytes
	defaultMaxBackups = 3
	defaultMaxAge     = 28 // Days
)

// New builds a zap logger from the logger settings.
// When FileLogName is set, output is rotated with lumberjack; otherwise
// logs go to stdout.
func New(cfg settings.Logger) *zap.Logger {
	level := zapcore.InfoLevel
	if cfg.LogLevel != "" {
		if parsed, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
			level = parsed
		}
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	var sink zapcore.WriteSyncer
	if cfg.FileLogName != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.FileLogName,
			MaxSize:    orDefault(cfg.MaxSize, defaultMaxSize),
			MaxBackups: orDefault(cfg.MaxBackups, defaultMaxBackups),
			MaxAge:     orDefault(cfg.MaxAge, defaultMaxAge),
			Compress:   cfg.Compress,
		})
	} else {
		sink = zapcore.AddSync(os.Stdout)
	}

	core := zapcore.NewCore(encoder, sink, level)
	return zap.New(core, zap.AddCaller())
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
