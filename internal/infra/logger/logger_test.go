package logger

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/jose-valero/lavamusic-bot/internal/infra/config"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bot.log")
	log, err := New(config.LogConfig{Level: "debug", File: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !log.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug level not enabled")
	}
	log.Info("hello")
}
