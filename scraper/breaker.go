package scraper

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// BreakerState is the state of a tier breaker
type BreakerState string

const (
	// BreakerClosed lets requests through to the tier
	BreakerClosed BreakerState = "closed"
	// BreakerOpen skips the tier until the cooldown has passed
	BreakerOpen BreakerState = "open"
	// BreakerHalfOpen lets a single probe through after the cooldown
	BreakerHalfOpen BreakerState = "half_open"
)

// ErrBreakerOpen is returned by Allow while the tier is being skipped
var ErrBreakerOpen = errors.New("scrape tier breaker is open")

// BreakerConfig configures a tier breaker
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the breaker
	MaxFailures int
	// Cooldown is how long the tier is skipped before a probe is allowed
	Cooldown time.Duration
}

// DefaultBreakerConfig returns the breaker settings used when none are configured
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures: 5,
		Cooldown:    30 * time.Second,
	}
}

func (c BreakerConfig) validate() error {
	if c.MaxFailures <= 0 {
		return errors.New("max failures must be greater than 0")
	}
	if c.Cooldown <= 0 {
		return errors.New("cooldown must be greater than 0")
	}
	return nil
}

// Breaker stops calling a failing scrape tier for a cooldown period.
// Only one probe is in flight while half open.
type Breaker struct {
	config   BreakerConfig
	now      func() time.Time
	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker creates a closed breaker
func NewBreaker(cfg BreakerConfig) (*Breaker, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid breaker config: %w", err)
	}
	return &Breaker{config: cfg, now: time.Now, state: BreakerClosed}, nil
}

// Allow reports whether the tier may be called now
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.config.Cooldown {
			return ErrBreakerOpen
		}
		b.state = BreakerHalfOpen
		b.probing = true
		return nil
	case BreakerHalfOpen:
		if b.probing {
			return ErrBreakerOpen
		}
		b.probing = true
		return nil
	default:
		return nil
	}
}

// Success closes the breaker and clears the failure count.
// It returns the state before the call.
func (b *Breaker) Success() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	old := b.state
	b.state = BreakerClosed
	b.failures = 0
	b.probing = false
	return old
}

// Failure counts a failed call. A failed probe reopens the breaker at once.
// It returns the state after the call.
func (b *Breaker) Failure() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.state == BreakerHalfOpen || b.failures >= b.config.MaxFailures {
		b.state = BreakerOpen
		b.openedAt = b.now()
	}
	b.probing = false
	return b.state
}

// Release gives up a call that ended without an outcome, such as a cancelled
// caller. A released probe puts the breaker back to open with its original
// open time, so the next caller may probe at once. No failure is counted.
func (b *Breaker) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerHalfOpen && b.probing {
		b.state = BreakerOpen
	}
	b.probing = false
}

// State returns the current state
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
