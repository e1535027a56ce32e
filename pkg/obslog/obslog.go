// Package obslog provides the runtime's operational (textual) logger,
// distinct from the durable JSONL audit trail in pkg/logging. It wraps
// go.uber.org/zap the way the rest of this stack's CLIs configure it:
// JSON-encoded production output by default (console output in debug
// mode), structured fields for every warning and error the lifecycle
// surfaces.
package obslog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-shaped logger writing to stderr. debug enables
// zap's development encoder (caller info, colorized level) for local runs.
func New(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return cfg.Build()
}

// Noop returns a logger that discards everything, for tests and for
// callers that haven't configured observability yet.
func Noop() *zap.Logger {
	return zap.NewNop()
}
