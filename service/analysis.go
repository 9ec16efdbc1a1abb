package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ioclens/core"
	"ioclens/metrics"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// AnalysisStore defines the record operations needed by AnalysisService.
// Defined here (consumer package) so tests can supply a narrow fake.
type AnalysisStore interface {
	GetRecordByURL(ctx context.Context, url string) (*core.AnalysisRecord, error)
	CreateRecord(ctx context.Context, url string, rawContent *string, indicators core.IOCResult, ownerUserID *int64) (*core.AnalysisRecord, error)
}

// AnalysisResult is the outcome of one Analyze call
type AnalysisResult struct {
	Record    *core.AnalysisRecord
	IOCResult core.IOCResult
	Origin    core.Origin
	// Message is set for cache hits only
	Message string
}

// AnalysisService turns a URL into a persisted, validated IOC record.
// A URL that already has a record is served from the store without any
// upstream call; records never expire.
type AnalysisService struct {
	store     AnalysisStore
	retriever core.ContentRetriever
	reasoner  core.Reasoner
	tracer    trace.Tracer
	logger    *zap.SugaredLogger
}

// NewAnalysisService creates an AnalysisService. All collaborators are required.
func NewAnalysisService(
	store AnalysisStore,
	retriever core.ContentRetriever,
	reasoner core.Reasoner,
	logger *zap.SugaredLogger,
	opts ...Option,
) *AnalysisService {
	if store == nil {
		panic("store is required")
	}
	if retriever == nil {
		panic("retriever is required")
	}
	if reasoner == nil {
		panic("reasoner is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	o := applyOptions(opts)
	return &AnalysisService{
		store:     store,
		retriever: retriever,
		reasoner:  reasoner,
		tracer:    o.tracer,
		logger:    logger,
	}
}

// Analyze returns the IOC record for url, creating it on first sight.
//
// ERRORS:
//   - KindUpstream: both scrape tiers failed or the LLM call failed
//   - KindValidation (Upstream=true): the LLM output did not match the IOC schema
//   - KindStorage: the store failed
func (s *AnalysisService) Analyze(ctx context.Context, url string, ownerUserID *int64) (result *AnalysisResult, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "AnalysisService.Analyze",
		trace.WithAttributes(attribute.String("ioclens.url", url)))
	defer func() {
		metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.AnalysesTotal.WithLabelValues("error").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, string(core.KindOf(err)))
		} else {
			metrics.AnalysesTotal.WithLabelValues(string(result.Origin)).Inc()
			span.SetAttributes(
				attribute.String("ioclens.origin", string(result.Origin)),
				attribute.Int64("ioclens.record_id", result.Record.ID),
			)
		}
		span.End()
	}()

	if url == "" {
		return nil, core.NewValidationError("analysis.Analyze", "url is required", "url")
	}

	existing, err := s.lookup(ctx, url)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.logger.Infow("Serving analysis from cache",
			"url", url,
			"record_id", existing.ID)
		return &AnalysisResult{
			Record:    existing,
			IOCResult: existing.Indicators,
			Origin:    core.OriginCache,
			Message:   core.CacheHitMessage,
		}, nil
	}

	content, err := s.retriever.Retrieve(ctx, url)
	if err != nil {
		s.logger.Warnw("Content retrieval failed", "url", url, "error", err)
		return nil, err
	}

	iocs, err := s.extract(ctx, url, content)
	if err != nil {
		return nil, err
	}

	record, err := s.store.CreateRecord(ctx, url, &content, *iocs, ownerUserID)
	if err != nil {
		return nil, err
	}

	for _, ind := range iocs.Indicators {
		metrics.IndicatorsExtracted.WithLabelValues(string(ind.RiskLevel)).Inc()
	}
	s.logger.Infow("Analysis stored",
		"url", url,
		"record_id", record.ID,
		"indicators", len(iocs.Indicators),
		"categories", len(iocs.Categories))

	return &AnalysisResult{
		Record:    record,
		IOCResult: record.Indicators,
		Origin:    core.OriginFresh,
	}, nil
}

// lookup returns the existing record for url, or nil when there is none
func (s *AnalysisService) lookup(ctx context.Context, url string) (*core.AnalysisRecord, error) {
	record, err := s.store.GetRecordByURL(ctx, url)
	if err == nil {
		return record, nil
	}
	if core.IsNotFound(err) {
		return nil, nil
	}
	return nil, err
}

// extract runs the reasoner and validates its output against the IOC schema
func (s *AnalysisService) extract(ctx context.Context, url, content string) (*core.IOCResult, error) {
	ctx, span := s.tracer.Start(ctx, "AnalysisService.extract",
		trace.WithAttributes(attribute.Int("ioclens.content_length", len(content))))
	defer span.End()

	raw, err := s.reasoner.ExtractIndicators(ctx, content)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	iocs, err := core.ParseIOCResult(s.logger, raw)
	if err != nil {
		metrics.ValidationFailures.WithLabelValues("ioc_result").Inc()
		s.logger.Warnw("LLM returned an invalid IOC payload",
			"url", url,
			"error", err)
		span.RecordError(err)
		return nil, markUpstream("analysis.Analyze", err)
	}
	return iocs, nil
}

// markUpstream flags a validation failure as caused by an upstream payload
func markUpstream(op string, err error) error {
	var verr *core.Error
	if errors.As(err, &verr) && verr.Kind == core.KindValidation {
		verr.Upstream = true
		return verr
	}
	return &core.Error{
		Kind:     core.KindValidation,
		Op:       op,
		Msg:      "upstream response failed validation",
		Path:     core.RootPath,
		Upstream: true,
		Err:      fmt.Errorf("failed to validate upstream payload: %w", err),
	}
}
