package service

import (
	"context"
	"path/filepath"
	"testing"

	"ioclens/core"
	"ioclens/storage"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// MockIndicatorStore is a mock implementation of core.IndicatorStore.
type MockIndicatorStore struct {
	mock.Mock
}

func (m *MockIndicatorStore) CreateRecord(ctx context.Context, url string, rawContent *string, indicators core.IOCResult, ownerUserID *int64) (*core.AnalysisRecord, error) {
	args := m.Called(ctx, url, rawContent, indicators, ownerUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.AnalysisRecord), args.Error(1)
}

func (m *MockIndicatorStore) GetRecordByID(ctx context.Context, id int64) (*core.AnalysisRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.AnalysisRecord), args.Error(1)
}

func (m *MockIndicatorStore) GetRecordByURL(ctx context.Context, url string) (*core.AnalysisRecord, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.AnalysisRecord), args.Error(1)
}

func (m *MockIndicatorStore) ListRecordsByOwner(ctx context.Context, ownerUserID int64) ([]*core.AnalysisRecord, error) {
	args := m.Called(ctx, ownerUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*core.AnalysisRecord), args.Error(1)
}

func (m *MockIndicatorStore) CreateSearchQueries(ctx context.Context, iocID int64, qradar, sentinel []core.QueryPair) (*core.SearchQueryRecord, error) {
	args := m.Called(ctx, iocID, qradar, sentinel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.SearchQueryRecord), args.Error(1)
}

func (m *MockIndicatorStore) GetSearchQueriesByRecordID(ctx context.Context, iocID int64) (*core.SearchQueryRecord, error) {
	args := m.Called(ctx, iocID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.SearchQueryRecord), args.Error(1)
}

// MockRetriever is a mock implementation of core.ContentRetriever.
type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) Retrieve(ctx context.Context, url string) (string, error) {
	args := m.Called(ctx, url)
	return args.String(0), args.Error(1)
}

// MockReasoner is a mock implementation of core.Reasoner.
type MockReasoner struct {
	mock.Mock
}

func (m *MockReasoner) ExtractIndicators(ctx context.Context, content string) ([]byte, error) {
	args := m.Called(ctx, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockReasoner) GenerateQueries(ctx context.Context, indicators []core.Indicator) ([]byte, error) {
	args := m.Called(ctx, indicators)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// ============================================================================
// Fixtures
// ============================================================================

const validIOCPayload = `{
  "indicators": [
    {"value": "203.0.113.7", "category": "ip", "riskLevel": "high", "description": "C2 server"},
    {"value": "evil.test", "category": "domain", "riskLevel": "medium", "description": "phishing domain"}
  ],
  "categories": [
    {"name": "ip", "count": 1, "indicators": [
      {"value": "203.0.113.7", "category": "ip", "riskLevel": "high", "description": "C2 server"}
    ]},
    {"name": "domain", "count": 1, "indicators": [
      {"value": "evil.test", "category": "domain", "riskLevel": "medium", "description": "phishing domain"}
    ]}
  ]
}`

const validQueryPayload = `{
  "qradar": [{"name": "C2 traffic", "query": "SELECT * FROM events WHERE destinationip = '203.0.113.7'"}],
  "sentinel": [{"name": "C2 traffic", "query": "CommonSecurityLog | where DestinationIP == \"203.0.113.7\""}]
}`

func sampleIndicators() []core.Indicator {
	return []core.Indicator{
		{Value: "203.0.113.7", Category: "ip", RiskLevel: core.RiskLevelHigh, Description: "C2 server"},
	}
}

func int64Ptr(v int64) *int64 { return &v }

// newSQLiteStore returns a real store backed by a temporary SQLite file
func newSQLiteStore(t *testing.T) *storage.SQLStore {
	t.Helper()

	db, err := storage.NewSQLite(filepath.Join(t.TempDir(), "service.db"), zap.NewNop().Sugar())
	require.NoError(t, err)

	store := storage.NewSQLStore(db, zap.NewNop().Sugar())
	t.Cleanup(func() { _ = store.Close() })
	return store
}
