package service

import (
	"context"

	"ioclens/core"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// HistoryStore defines the read operations behind the history view.
type HistoryStore interface {
	GetRecordByID(ctx context.Context, id int64) (*core.AnalysisRecord, error)
	ListRecordsByOwner(ctx context.Context, ownerUserID int64) ([]*core.AnalysisRecord, error)
	GetSearchQueriesByRecordID(ctx context.Context, iocID int64) (*core.SearchQueryRecord, error)
}

// HistoryService serves a user's past analyses and the queries stored for them.
// Reads through GetRecord and GetSearchQueries are limited to the record owner.
type HistoryService struct {
	store  HistoryStore
	tracer trace.Tracer
	logger *zap.SugaredLogger
}

// NewHistoryService creates a HistoryService.
func NewHistoryService(store HistoryStore, logger *zap.SugaredLogger, opts ...Option) *HistoryService {
	if store == nil {
		panic("store is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	o := applyOptions(opts)
	return &HistoryService{store: store, tracer: o.tracer, logger: logger}
}

// List returns summaries of the user's analyses in insertion order
func (s *HistoryService) List(ctx context.Context, userID int64) ([]core.HistorySummary, error) {
	ctx, span := s.tracer.Start(ctx, "HistoryService.List",
		trace.WithAttributes(attribute.Int64("ioclens.user_id", userID)))
	defer span.End()

	records, err := s.store.ListRecordsByOwner(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return core.SummarizeAll(records), nil
}

// Lookup returns a record without an ownership check. Operator tooling only.
func (s *HistoryService) Lookup(ctx context.Context, id int64) (*core.AnalysisRecord, error) {
	return s.store.GetRecordByID(ctx, id)
}

// GetRecord returns the record with id if it belongs to userID.
// A record owned by someone else, or by nobody, is a KindForbidden error.
func (s *HistoryService) GetRecord(ctx context.Context, id, userID int64) (*core.AnalysisRecord, error) {
	ctx, span := s.tracer.Start(ctx, "HistoryService.GetRecord",
		trace.WithAttributes(
			attribute.Int64("ioclens.record_id", id),
			attribute.Int64("ioclens.user_id", userID),
		))
	defer span.End()

	record, err := s.Lookup(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !record.OwnedBy(userID) {
		s.logger.Warnw("Rejected access to another user's record",
			"record_id", id,
			"user_id", userID)
		err := core.NewForbiddenError("history.GetRecord", "record belongs to another user")
		span.RecordError(err)
		return nil, err
	}
	return record, nil
}

// GetSearchQueries returns the latest query set stored for the user's record
func (s *HistoryService) GetSearchQueries(ctx context.Context, recordID, userID int64) (*core.SearchQueryRecord, error) {
	if _, err := s.GetRecord(ctx, recordID, userID); err != nil {
		return nil, err
	}
	return s.LookupSearchQueries(ctx, recordID)
}

// LookupSearchQueries returns the latest query set for a record without an ownership check
func (s *HistoryService) LookupSearchQueries(ctx context.Context, recordID int64) (*core.SearchQueryRecord, error) {
	return s.store.GetSearchQueriesByRecordID(ctx, recordID)
}
