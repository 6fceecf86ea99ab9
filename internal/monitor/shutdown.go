package monitor

import (
	"time"

	"go.uber.org/zap"
)

// AwaitShutdown waits up to grace for done to close. If it does not, force
// is called and AwaitShutdown returns false.
func AwaitShutdown(done <-chan struct{}, grace time.Duration, force func(), logger *zap.Logger) bool {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := time.NewTimer(grace)
	defer t.Stop()
	select {
	case <-done:
		return true
	case <-t.C:
		logger.Warn("shutdown grace window elapsed, forcing exit", zap.Duration("grace", grace))
		if force != nil {
			force()
		}
		return false
	}
}
