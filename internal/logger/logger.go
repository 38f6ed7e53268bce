// Package logger создаёт zap-логгер клиента.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New возвращает production-логгер с уровнем level (debug, info, warn, error).
// Пустой уровень означает warn. Сообщения пишутся в stderr, чтобы не
// смешиваться с выводом команд.
func New(level string) (*zap.SugaredLogger, error) {
	if level == "" {
		level = "warn"
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.Sampling = nil
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

// Nop логгер, который ничего не пишет.
func Nop() *zap.SugaredLogger { return zap.NewNop().Sugar() }
