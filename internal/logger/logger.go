package logger

import (
	"os"
	"strings"

	"github.com/burncare/apiserver/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FromConfig initializes the process logger from the application config.
func FromConfig(cfg config.LogConfig) (*zap.Logger, error) {
	level := cfg.Level
	if level == "" {
		if cfg.Dev {
			level = "debug"
		} else {
			level = "info"
		}
	}
	return build(levelFromString(level), cfg.Dev)
}

func levelFromString(l string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func build(lvl zapcore.Level, dev bool) (*zap.Logger, error) {
	if dev {
		c := zap.NewDevelopmentConfig()
		c.Level = zap.NewAtomicLevelAt(lvl)
		return c.Build()
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(os.Stdout), lvl)
	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	return zap.New(core, opts...), nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
