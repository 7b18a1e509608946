// Package logger constructs the structured zap logger shared by every
// ember subsystem. Subsystems never build their own loggers; they receive
// this one through their Config structs so a single service name and
// encoding govern all output.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a SugaredLogger tagged with the given service name.
// Output goes to stdout in the production JSON encoding with ISO8601
// timestamps; the caller owns Sync on shutdown.
func New(service string) *zap.SugaredLogger {
	config := zap.NewProductionEncoderConfig()
	config.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(config),
		zapcore.Lock(os.Stdout),
		zapcore.InfoLevel,
	)

	return zap.New(core).Named(service).Sugar()
}

// NewNop returns a logger that discards everything. Tests and benchmarks
// that don't care about output pass this instead of nil.
func NewNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
