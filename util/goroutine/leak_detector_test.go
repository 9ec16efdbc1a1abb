package goroutine

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWaitForCount(t *testing.T) {
	baseline := runtime.NumGoroutine()
	release := make(chan struct{})
	go func() { <-release }()

	assert.False(t, WaitForCount(baseline, 50*time.Millisecond, 10*time.Millisecond))

	close(release)
	assert.True(t, WaitForCount(baseline, 2*time.Second, 10*time.Millisecond))
}

func TestAssertNoLeaks_FinishedGoroutine(t *testing.T) {
	AssertNoLeaks(t)

	done := make(chan struct{})
	go func() { close(done) }()
	<-done
}
