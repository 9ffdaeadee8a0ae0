package main

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func initLogger(cfg *appConfig) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Log.Pretty {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}

	level := new(zapcore.Level)
	if err := level.Set(cfg.Log.Level); err != nil {
		*level = zapcore.InfoLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(*level)
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zcfg.Build(zap.Fields(zap.String("service", "libauth-server")))
}
