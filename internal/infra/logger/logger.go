package logger

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jose-valero/lavamusic-bot/internal/infra/config"
)

// New arma el logger raíz: stdout siempre, archivo rotado si cfg.File no está vacío.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	level := ParseLevel(cfg.Level)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.RFC3339TimeEncoder
	encCfg.EncodeDuration = zapcore.StringDurationEncoder

	var console zapcore.Encoder
	if cfg.Pretty {
		dev := zap.NewDevelopmentEncoderConfig()
		dev.EncodeLevel = zapcore.CapitalColorLevelEncoder
		console = zapcore.NewConsoleEncoder(dev)
	} else {
		console = zapcore.NewJSONEncoder(encCfg)
	}
	cores := []zapcore.Core{zapcore.NewCore(console, zapcore.Lock(os.Stdout), level)}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, err
		}
		w := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), w, level))
	}

	return zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

// ParseLevel: desconocido → info.
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
