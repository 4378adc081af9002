package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var base *zap.Logger

// Init инициализирует глобальный логгер. isDev включает удобный консольный вывод.
func Init(isDev bool) error {
	var cfg zap.Config
	if isDev {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}

	l, err := cfg.Build(zap.AddCallerSkip(0))
	if err != nil {
		return err
	}
	base = l
	return nil
}

func L() *zap.Logger {
	if base == nil {
		return zap.NewNop()
	}
	return base
}

func Sync() {
	if base != nil {
		_ = base.Sync()
	}
}
