package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// HeadlessConfig configures the headless Chrome fetcher
type HeadlessConfig struct {
	Timeout   time.Duration
	UserAgent string
	// ExecPath overrides the Chrome binary; empty searches the usual locations
	ExecPath string
}

// HeadlessFetcher renders a page in headless Chrome and returns the resulting markup.
// It is used instead of HTTPFetcher for pages that build their content with JavaScript.
type HeadlessFetcher struct {
	timeout time.Duration
	opts    []chromedp.ExecAllocatorOption
}

// NewHeadlessFetcher creates a fetcher; Chrome is started per fetch
func NewHeadlessFetcher(cfg HeadlessConfig) *HeadlessFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(cfg.UserAgent),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	return &HeadlessFetcher{timeout: cfg.Timeout, opts: opts}
}

// Name returns the tier name used in logs and metrics
func (f *HeadlessFetcher) Name() string {
	return "headless"
}

// Fetch navigates to targetURL and returns the rendered document's outer HTML
func (f *HeadlessFetcher) Fetch(ctx context.Context, targetURL string) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, f.opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, f.timeout)
	defer cancelTimeout()

	var markup string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &markup, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("headless fetch of %s failed: %w", targetURL, err)
	}
	return markup, nil
}
