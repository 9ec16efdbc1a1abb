package scraper

import (
	"context"
	"errors"
	"fmt"

	"ioclens/core"
	"ioclens/metrics"

	"go.uber.org/zap"
)

// Fetcher retrieves content for a URL. The primary tier returns clean text;
// fallback tiers return raw markup.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, url string) (string, error)
}

// Retriever implements core.ContentRetriever with a primary and a fallback tier
type Retriever struct {
	primary  Fetcher
	fallback Fetcher
	breaker  *Breaker
	logger   *zap.SugaredLogger
}

// RetrieverOption configures a Retriever
type RetrieverOption func(*Retriever)

// WithPrimaryBreaker skips the primary tier while it keeps failing
func WithPrimaryBreaker(b *Breaker) RetrieverOption {
	return func(r *Retriever) {
		r.breaker = b
	}
}

var _ core.ContentRetriever = (*Retriever)(nil)

// NewRetriever creates a two-tier retriever. primary may be nil, in which case
// every retrieval goes straight to the fallback tier.
func NewRetriever(primary, fallback Fetcher, logger *zap.SugaredLogger, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns the text of url. A primary-tier failure of any kind falls
// through to the fallback tier; a fallback failure is an upstream error.
func (r *Retriever) Retrieve(ctx context.Context, url string) (string, error) {
	const op = "scraper.Retrieve"

	if r.primary != nil && r.primaryAllowed(url) {
		text, err := r.primary.Fetch(ctx, url)
		if err == nil {
			metrics.ScrapeAttempts.WithLabelValues(r.primary.Name(), "success").Inc()
			r.recordPrimarySuccess()
			return text, nil
		}
		metrics.ScrapeAttempts.WithLabelValues(r.primary.Name(), "failure").Inc()
		r.logger.Warnw("Primary scrape failed, using fallback",
			"tier", r.primary.Name(),
			"fallback", r.fallback.Name(),
			"url", url,
			"error", err)

		// a cancelled caller should not start a second fetch
		if ctxErr := ctx.Err(); ctxErr != nil {
			r.releasePrimary()
			return "", core.NewUpstreamError(op, "content retrieval cancelled", errors.Join(err, ctxErr))
		}
		r.recordPrimaryFailure()
	}

	markup, err := r.fallback.Fetch(ctx, url)
	if err != nil {
		metrics.ScrapeAttempts.WithLabelValues(r.fallback.Name(), "failure").Inc()
		return "", core.NewUpstreamError(op, fmt.Sprintf("failed to retrieve content from %s", url), err)
	}

	text, err := StripHTML(markup)
	if err != nil {
		metrics.ScrapeAttempts.WithLabelValues(r.fallback.Name(), "failure").Inc()
		return "", core.NewUpstreamError(op, "failed to extract text from page", err)
	}

	metrics.ScrapeAttempts.WithLabelValues(r.fallback.Name(), "success").Inc()
	r.logger.Debugw("Content retrieved by fallback tier",
		"tier", r.fallback.Name(),
		"url", url,
		"chars", len(text))
	return text, nil
}

func (r *Retriever) primaryAllowed(url string) bool {
	if r.breaker == nil {
		return true
	}
	if err := r.breaker.Allow(); err != nil {
		metrics.ScrapeAttempts.WithLabelValues(r.primary.Name(), "skipped").Inc()
		r.logger.Debugw("Primary tier breaker open, using fallback",
			"tier", r.primary.Name(),
			"url", url)
		return false
	}
	return true
}

func (r *Retriever) recordPrimarySuccess() {
	if r.breaker == nil {
		return
	}
	if old := r.breaker.Success(); old != BreakerClosed {
		r.logger.Infow("Primary tier recovered", "tier", r.primary.Name())
	}
}

func (r *Retriever) releasePrimary() {
	if r.breaker != nil {
		r.breaker.Release()
	}
}

func (r *Retriever) recordPrimaryFailure() {
	if r.breaker == nil {
		return
	}
	if r.breaker.Failure() == BreakerOpen {
		r.logger.Warnw("Primary tier breaker open",
			"tier", r.primary.Name(),
			"cooldown", r.breaker.config.Cooldown)
	}
}
