package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gromdron/bitrix-push-workspace/internal/config"
)

// NewLogger builds a zap logger from cfg. Sampling thresholds and the
// service-name field it stamps onto every log line are driven by
// cfg.Log rather than fixed constants, since a fan-out broker under load
// needs its sampling tunable without a rebuild.
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level := zap.InfoLevel
	if err := level.Set(cfg.Level); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	sampleInitial, sampleThereafter := cfg.SampleInitial, cfg.SampleThereafter
	if sampleInitial <= 0 {
		sampleInitial = 100
	}
	if sampleThereafter <= 0 {
		sampleThereafter = 100
	}

	zapCfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(level),
		Development: cfg.Development,
		Sampling: &zap.SamplingConfig{
			Initial:    sampleInitial,
			Thereafter: sampleThereafter,
		},
		Encoding: "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stack",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "bitrix-push-server"
	}

	return zapCfg.Build(
		zap.AddCallerSkip(0),
		zap.Fields(zap.String("service", serviceName)),
	)
}
