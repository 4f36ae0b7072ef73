package polcount

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a development logger writing to stderr. An empty level
// keeps the development default (debug).
func NewLogger(level string) (*zap.SugaredLogger, error) {
	cfg := zap.NewDevelopmentConfig()
	if level != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

func shorten(s string) string {
	if len(s) <= 32 {
		return s
	}
	return s[:32] + "..."
}

func minInt(a, b int) int {
	if a >= b {
		return b
	} else {
		return a
	}
}
