package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"ioclens/config"
	"ioclens/llm"
	"ioclens/scraper"
	"ioclens/service"
	"ioclens/storage"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// Services bundles the store, upstream clients and services shared by the
// HTTP server and the CLI.
type Services struct {
	Store     *storage.SQLStore
	Retriever *scraper.Retriever
	Reasoner  *llm.Client
	Analysis  *service.AnalysisService
	Queries   *service.QueryService
	History   *service.HistoryService
	Tracer    *sdktrace.TracerProvider
}

// InitServices opens the store and builds every service on top of it
func InitServices(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) (*Services, error) {
	store, err := InitStore(ctx, cfg, sugar)
	if err != nil {
		return nil, err
	}

	tracer := InitTracing(cfg.Tracing, sugar)
	var opts []service.Option
	if tracer != nil {
		opts = append(opts, service.WithTracerProvider(tracer))
		sugar.Infow("Tracing enabled", "service_name", cfg.Tracing.ServiceName, "sample_ratio", cfg.Tracing.SampleRatio)
	}

	retriever := InitRetriever(cfg.Scraper, sugar)
	reasoner := InitReasoner(cfg.LLM, sugar)

	return &Services{
		Store:     store,
		Retriever: retriever,
		Reasoner:  reasoner,
		Analysis:  service.NewAnalysisService(store, retriever, reasoner, sugar, opts...),
		Queries:   service.NewQueryService(store, reasoner, sugar, opts...),
		History:   service.NewHistoryService(store, sugar, opts...),
		Tracer:    tracer,
	}, nil
}

// InitRetriever builds the two-tier content retriever. Firecrawl is the primary
// tier when an API key is configured; the fallback tier is headless Chrome when
// enabled and a plain HTTP fetch otherwise.
func InitRetriever(cfg config.ScraperConfig, sugar *zap.SugaredLogger) *scraper.Retriever {
	var (
		primary scraper.Fetcher
		opts    []scraper.RetrieverOption
	)
	firecrawl := scraper.NewFirecrawlClient(scraper.FirecrawlConfig{
		BaseURL: cfg.Firecrawl.BaseURL,
		APIKey:  cfg.Firecrawl.APIKey,
		Timeout: cfg.Firecrawl.Timeout,
	})
	if firecrawl.Configured() {
		primary = firecrawl
		breakerCfg := scraper.DefaultBreakerConfig()
		if cfg.Firecrawl.BreakerFailures > 0 {
			breakerCfg.MaxFailures = cfg.Firecrawl.BreakerFailures
		}
		if cfg.Firecrawl.BreakerCooldown > 0 {
			breakerCfg.Cooldown = cfg.Firecrawl.BreakerCooldown
		}
		breaker, err := scraper.NewBreaker(breakerCfg)
		if err != nil {
			sugar.Warnw("Invalid breaker settings, primary tier runs without a breaker", "error", err)
		} else {
			opts = append(opts, scraper.WithPrimaryBreaker(breaker))
		}
	} else {
		sugar.Warn("Firecrawl API key not set, pages are fetched directly")
	}

	var fallback scraper.Fetcher
	if cfg.Headless.Enabled {
		fallback = scraper.NewHeadlessFetcher(scraper.HeadlessConfig{
			Timeout:   cfg.Headless.Timeout,
			UserAgent: cfg.Fallback.UserAgent,
			ExecPath:  cfg.Headless.ExecPath,
		})
	} else {
		fallback = scraper.NewHTTPFetcher(scraper.FallbackConfig{
			Timeout:   cfg.Fallback.Timeout,
			UserAgent: cfg.Fallback.UserAgent,
			MaxBytes:  cfg.Fallback.MaxBytes,
		})
	}

	sugar.Infow("Content retriever ready", "fallback", fallback.Name(), "primary_enabled", primary != nil)
	return scraper.NewRetriever(primary, fallback, sugar, opts...)
}

// InitReasoner builds the LLM client
func InitReasoner(cfg config.LLMConfig, sugar *zap.SugaredLogger) *llm.Client {
	if cfg.APIKey == "" {
		sugar.Warn("LLM API key not set, extraction requests will be rejected upstream")
	}
	return llm.NewClient(llm.Config{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	}, sugar)
}

// Close flushes spans and closes the store
func (s *Services) Close(ctx context.Context) error {
	var errs []error
	if s.Tracer != nil {
		if err := s.Tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down tracer: %w", err))
		}
	}
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close store: %w", err))
		}
	}
	return errors.Join(errs...)
}
