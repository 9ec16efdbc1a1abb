package service

import (
	"context"
	"errors"
	"testing"

	"ioclens/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestNewAnalysisService_PanicsOnMissingDependencies(t *testing.T) {
	logger := zap.NewNop().Sugar()
	store := &MockIndicatorStore{}
	retriever := &MockRetriever{}
	reasoner := &MockReasoner{}

	assert.Panics(t, func() { NewAnalysisService(nil, retriever, reasoner, logger) })
	assert.Panics(t, func() { NewAnalysisService(store, nil, reasoner, logger) })
	assert.Panics(t, func() { NewAnalysisService(store, retriever, nil, logger) })
	assert.Panics(t, func() { NewAnalysisService(store, retriever, reasoner, nil) })
}

func TestAnalyze_FreshThenCache(t *testing.T) {
	store := newSQLiteStore(t)
	retriever := &MockRetriever{}
	reasoner := &MockReasoner{}
	svc := NewAnalysisService(store, retriever, reasoner, zaptest.NewLogger(t).Sugar())

	const url = "https://reports.test/apt-42"
	retriever.On("Retrieve", mock.Anything, url).Return("page text mentioning 203.0.113.7", nil).Once()
	reasoner.On("ExtractIndicators", mock.Anything, "page text mentioning 203.0.113.7").
		Return([]byte(validIOCPayload), nil).Once()

	owner := int64Ptr(3)
	first, err := svc.Analyze(context.Background(), url, owner)
	require.NoError(t, err)
	assert.Equal(t, core.OriginFresh, first.Origin)
	assert.Empty(t, first.Message)
	assert.NotZero(t, first.Record.ID)
	assert.Len(t, first.IOCResult.Indicators, 2)
	require.NotNil(t, first.Record.RawContent)
	assert.Equal(t, "page text mentioning 203.0.113.7", *first.Record.RawContent)

	second, err := svc.Analyze(context.Background(), url, owner)
	require.NoError(t, err)
	assert.Equal(t, core.OriginCache, second.Origin)
	assert.Equal(t, "Retrieved from cache", second.Message)
	assert.Equal(t, first.Record.ID, second.Record.ID)
	assert.Equal(t, first.IOCResult, second.IOCResult)

	retriever.AssertNumberOfCalls(t, "Retrieve", 1)
	reasoner.AssertNumberOfCalls(t, "ExtractIndicators", 1)
}

func TestAnalyze_CacheHitSkipsUpstream(t *testing.T) {
	store := &MockIndicatorStore{}
	retriever := &MockRetriever{}
	reasoner := &MockReasoner{}
	svc := NewAnalysisService(store, retriever, reasoner, zap.NewNop().Sugar())

	stored := &core.AnalysisRecord{
		ID:  9,
		URL: "https://a.test",
		Indicators: core.IOCResult{
			Indicators: sampleIndicators(),
			Categories: []core.Category{core.NewCategory("ip", sampleIndicators())},
		},
		CreatedAt: "2024-05-13T10:00:00Z",
	}
	store.On("GetRecordByURL", mock.Anything, "https://a.test").Return(stored, nil)

	result, err := svc.Analyze(context.Background(), "https://a.test", nil)
	require.NoError(t, err)
	assert.Equal(t, core.OriginCache, result.Origin)
	assert.Equal(t, core.CacheHitMessage, result.Message)
	assert.Same(t, stored, result.Record)

	retriever.AssertNotCalled(t, "Retrieve", mock.Anything, mock.Anything)
	reasoner.AssertNotCalled(t, "ExtractIndicators", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "CreateRecord", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAnalyze_InvalidLLMOutputIsUpstreamValidation(t *testing.T) {
	store := newSQLiteStore(t)
	retriever := &MockRetriever{}
	reasoner := &MockReasoner{}
	svc := NewAnalysisService(store, retriever, reasoner, zap.NewNop().Sugar())

	payload := `{"indicators":[{"value":"1.2.3.4","category":"ip","riskLevel":"critical","description":"x"}],"categories":[]}`
	retriever.On("Retrieve", mock.Anything, "https://bad.test").Return("text", nil)
	reasoner.On("ExtractIndicators", mock.Anything, "text").Return([]byte(payload), nil)

	_, err := svc.Analyze(context.Background(), "https://bad.test", nil)
	require.Error(t, err)

	var cerr *core.Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, core.KindValidation, cerr.Kind)
	assert.True(t, cerr.Upstream)
	assert.Equal(t, "indicators.0.riskLevel", cerr.Path)

	// nothing was persisted
	_, err = store.GetRecordByURL(context.Background(), "https://bad.test")
	assert.True(t, core.IsNotFound(err))
}

func TestAnalyze_NonJSONLLMOutput(t *testing.T) {
	store := &MockIndicatorStore{}
	retriever := &MockRetriever{}
	reasoner := &MockReasoner{}
	svc := NewAnalysisService(store, retriever, reasoner, zap.NewNop().Sugar())

	store.On("GetRecordByURL", mock.Anything, "https://a.test").
		Return(nil, core.NewNotFoundError("test", "missing", nil))
	retriever.On("Retrieve", mock.Anything, "https://a.test").Return("text", nil)
	reasoner.On("ExtractIndicators", mock.Anything, "text").Return([]byte("sorry, I cannot help"), nil)

	_, err := svc.Analyze(context.Background(), "https://a.test", nil)
	var cerr *core.Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, core.KindValidation, cerr.Kind)
	assert.True(t, cerr.Upstream)
	assert.Equal(t, core.RootPath, cerr.Path)
}

func TestAnalyze_ErrorPropagation(t *testing.T) {
	upstream := core.NewUpstreamError("scraper.Retrieve", "all tiers failed", errors.New("boom"))
	storageErr := core.NewStorageError("storage.GetRecordByURL", errors.New("disk full"))

	tests := []struct {
		name     string
		setup    func(store *MockIndicatorStore, retriever *MockRetriever, reasoner *MockReasoner)
		wantKind core.Kind
	}{
		{
			name: "lookup failure",
			setup: func(store *MockIndicatorStore, _ *MockRetriever, _ *MockReasoner) {
				store.On("GetRecordByURL", mock.Anything, mock.Anything).Return(nil, storageErr)
			},
			wantKind: core.KindStorage,
		},
		{
			name: "retrieval failure",
			setup: func(store *MockIndicatorStore, retriever *MockRetriever, _ *MockReasoner) {
				store.On("GetRecordByURL", mock.Anything, mock.Anything).
					Return(nil, core.NewNotFoundError("test", "missing", nil))
				retriever.On("Retrieve", mock.Anything, mock.Anything).Return("", upstream)
			},
			wantKind: core.KindUpstream,
		},
		{
			name: "reasoner failure",
			setup: func(store *MockIndicatorStore, retriever *MockRetriever, reasoner *MockReasoner) {
				store.On("GetRecordByURL", mock.Anything, mock.Anything).
					Return(nil, core.NewNotFoundError("test", "missing", nil))
				retriever.On("Retrieve", mock.Anything, mock.Anything).Return("text", nil)
				reasoner.On("ExtractIndicators", mock.Anything, mock.Anything).
					Return(nil, core.NewUpstreamError("llm", "timeout", context.DeadlineExceeded))
			},
			wantKind: core.KindUpstream,
		},
		{
			name: "persist failure",
			setup: func(store *MockIndicatorStore, retriever *MockRetriever, reasoner *MockReasoner) {
				store.On("GetRecordByURL", mock.Anything, mock.Anything).
					Return(nil, core.NewNotFoundError("test", "missing", nil))
				retriever.On("Retrieve", mock.Anything, mock.Anything).Return("text", nil)
				reasoner.On("ExtractIndicators", mock.Anything, mock.Anything).
					Return([]byte(validIOCPayload), nil)
				store.On("CreateRecord", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(nil, storageErr)
			},
			wantKind: core.KindStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockIndicatorStore{}
			retriever := &MockRetriever{}
			reasoner := &MockReasoner{}
			tt.setup(store, retriever, reasoner)

			svc := NewAnalysisService(store, retriever, reasoner, zap.NewNop().Sugar())
			result, err := svc.Analyze(context.Background(), "https://a.test", nil)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.Equal(t, tt.wantKind, core.KindOf(err))
		})
	}
}

func TestAnalyze_EmptyURL(t *testing.T) {
	store := &MockIndicatorStore{}
	svc := NewAnalysisService(store, &MockRetriever{}, &MockReasoner{}, zap.NewNop().Sugar())

	_, err := svc.Analyze(context.Background(), "", nil)
	assert.Equal(t, core.KindValidation, core.KindOf(err))
	store.AssertNotCalled(t, "GetRecordByURL", mock.Anything, mock.Anything)
}

func TestAnalyze_RecordsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	store := newSQLiteStore(t)
	retriever := &MockRetriever{}
	reasoner := &MockReasoner{}
	retriever.On("Retrieve", mock.Anything, "https://spans.test").Return("text", nil)
	reasoner.On("ExtractIndicators", mock.Anything, "text").Return([]byte(validIOCPayload), nil)

	svc := NewAnalysisService(store, retriever, reasoner, zap.NewNop().Sugar(), WithTracerProvider(tp))
	_, err := svc.Analyze(context.Background(), "https://spans.test", nil)
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	// child ends first
	assert.Equal(t, "AnalysisService.extract", spans[0].Name)
	assert.Equal(t, "AnalysisService.Analyze", spans[1].Name)
	assert.Equal(t, spans[1].SpanContext.TraceID(), spans[0].SpanContext.TraceID())
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())

	var origin string
	for _, attr := range spans[1].Attributes {
		if attr.Key == "ioclens.origin" {
			origin = attr.Value.AsString()
		}
	}
	assert.Equal(t, "fresh", origin)
}
