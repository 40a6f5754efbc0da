// Package telemetry provides the single structured-logging sink used
// throughout the module. All components log through L() rather than
// constructing their own zap.Logger, so every log line from every
// goroutine serializes through one sink instead of racing for stdout.
package telemetry

import (
	"sync"

	"go.uber.org/zap"
)

var (
	once   sync.Once
	logger *zap.Logger
)

// L returns the process-wide logger, constructing it on first use.
func L() *zap.Logger {
	once.Do(func() {
		l, err := zap.NewProduction()
		if err != nil {
			l = zap.NewNop()
		}
		logger = l
	})
	return logger
}

// SetForTesting installs l as the process-wide logger and returns a
// restore function. Intended for use in tests that want to assert on
// emitted log lines via an observer core.
func SetForTesting(l *zap.Logger) func() {
	once.Do(func() {}) // ensure Do never fires later and clobbers l
	prev := logger
	logger = l
	return func() { logger = prev }
}
