package goroutine

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"ioclens/metrics"

	"go.uber.org/zap"
)

// StackTraceBufferSize is the buffer size for stack trace collection
const StackTraceBufferSize = 4096

// Recover recovers from a panic in a background goroutine, logs it and counts it.
// Use it as the first deferred call. A nil logger writes to stderr.
func Recover(name string, logger *zap.SugaredLogger) {
	r := recover()
	if r == nil {
		return
	}

	buf := make([]byte, StackTraceBufferSize)
	n := runtime.Stack(buf, false)
	metrics.GoroutinePanics.WithLabelValues(name).Inc()

	if logger == nil {
		fmt.Fprintf(os.Stderr, "PANIC in goroutine %s (no logger): %v\n%s\n", name, r, string(buf[:n]))
		return
	}
	logger.Errorw("Goroutine panic recovered",
		"goroutine", name,
		"panic", r,
		"stack", string(buf[:n]))
}

// Go runs fn in a new goroutine guarded by Recover. When wg is not nil it is
// incremented before the goroutine starts and released when fn returns.
func Go(name string, logger *zap.SugaredLogger, wg *sync.WaitGroup, fn func()) {
	if wg != nil {
		wg.Add(1)
	}
	go func() {
		if wg != nil {
			defer wg.Done()
		}
		defer Recover(name, logger)
		fn()
	}()
}
