package runtime

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a JSON production logger on Lambda, where CloudWatch
// collects stdout, and a console development logger locally
func NewLogger(cfg *Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zc zap.Config
	if cfg.OnLambda {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}

	fields := []zap.Field{zap.String("stage", cfg.Stage)}
	if cfg.Function != "" {
		fields = append(fields, zap.String("function", cfg.Function))
	}
	return logger.With(fields...), nil
}
