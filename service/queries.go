package service

import (
	"context"
	"strconv"

	"ioclens/core"
	"ioclens/metrics"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// QueryStore defines the operations needed to persist generated queries.
type QueryStore interface {
	GetRecordByID(ctx context.Context, id int64) (*core.AnalysisRecord, error)
	CreateSearchQueries(ctx context.Context, iocID int64, qradar, sentinel []core.QueryPair) (*core.SearchQueryRecord, error)
}

// QueryService generates QRadar and Sentinel searches for a set of indicators.
// Results are never cached; every call reaches the reasoner.
type QueryService struct {
	store    QueryStore
	reasoner core.Reasoner
	tracer   trace.Tracer
	logger   *zap.SugaredLogger
}

// NewQueryService creates a QueryService. All collaborators are required.
func NewQueryService(store QueryStore, reasoner core.Reasoner, logger *zap.SugaredLogger, opts ...Option) *QueryService {
	if store == nil {
		panic("store is required")
	}
	if reasoner == nil {
		panic("reasoner is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	o := applyOptions(opts)
	return &QueryService{
		store:    store,
		reasoner: reasoner,
		tracer:   o.tracer,
		logger:   logger,
	}
}

// Generate produces search queries for indicators. When iocID is set the result
// is stored against that analysis record, which must exist.
//
// ERRORS:
//   - KindNotFound: iocID names no record
//   - KindUpstream / KindValidation (Upstream=true): the LLM failed or returned an invalid payload
//   - KindStorage: the store failed
func (s *QueryService) Generate(ctx context.Context, indicators []core.Indicator, iocID *int64) (result *core.SearchQueryResult, err error) {
	persist := iocID != nil
	ctx, span := s.tracer.Start(ctx, "QueryService.Generate",
		trace.WithAttributes(
			attribute.Int("ioclens.indicators", len(indicators)),
			attribute.Bool("ioclens.persist", persist),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(core.KindOf(err)))
		} else {
			metrics.QueryGenerations.WithLabelValues(strconv.FormatBool(persist)).Inc()
		}
		span.End()
	}()

	// an empty list is still sent so the model answers with empty query sets
	if indicators == nil {
		indicators = []core.Indicator{}
	}

	if persist {
		span.SetAttributes(attribute.Int64("ioclens.record_id", *iocID))
		if err := s.ensureRecord(ctx, *iocID); err != nil {
			return nil, err
		}
	}

	raw, err := s.reasoner.GenerateQueries(ctx, indicators)
	if err != nil {
		s.logger.Warnw("Query generation failed", "indicators", len(indicators), "error", err)
		return nil, err
	}

	result, err = core.ParseSearchQueryResult(raw)
	if err != nil {
		metrics.ValidationFailures.WithLabelValues("search_query_result").Inc()
		s.logger.Warnw("LLM returned an invalid search query payload", "error", err)
		return nil, markUpstream("queries.Generate", err)
	}

	if persist {
		saved, err := s.store.CreateSearchQueries(ctx, *iocID, result.QRadar, result.Sentinel)
		if err != nil {
			return nil, err
		}
		s.logger.Infow("Search queries stored",
			"ioc_id", *iocID,
			"query_set_id", saved.ID,
			"qradar", len(result.QRadar),
			"sentinel", len(result.Sentinel))
	}

	return result, nil
}

func (s *QueryService) ensureRecord(ctx context.Context, id int64) error {
	_, err := s.store.GetRecordByID(ctx, id)
	return err
}
