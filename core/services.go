package core

import (
	"context"
)

// ============================================================================
// Storage Interfaces
// ============================================================================

// IndicatorStore persists analysis records and their generated search queries.
// Consumers: service.AnalysisService, service.QueryService, service.HistoryService
type IndicatorStore interface {
	// CreateRecord persists a new analysis and returns it with its assigned id and timestamp.
	// It does not check for an existing record with the same URL.
	CreateRecord(ctx context.Context, url string, rawContent *string, indicators IOCResult, ownerUserID *int64) (*AnalysisRecord, error)

	// GetRecordByID returns a not-found error when no record has the id.
	GetRecordByID(ctx context.Context, id int64) (*AnalysisRecord, error)

	// GetRecordByURL matches url exactly, without normalization.
	GetRecordByURL(ctx context.Context, url string) (*AnalysisRecord, error)

	// ListRecordsByOwner returns the owner's records in insertion order.
	ListRecordsByOwner(ctx context.Context, ownerUserID int64) ([]*AnalysisRecord, error)

	CreateSearchQueries(ctx context.Context, iocID int64, qradar, sentinel []QueryPair) (*SearchQueryRecord, error)

	// GetSearchQueriesByRecordID returns the most recently created query set for the record.
	GetSearchQueriesByRecordID(ctx context.Context, iocID int64) (*SearchQueryRecord, error)
}

// UserStore persists accounts created from external identities.
// Consumers: api OAuth callback and session middleware
type UserStore interface {
	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, user *User) (*User, error)
}

// ============================================================================
// External Capabilities
// ============================================================================

// ContentRetriever turns a URL into plain page text.
// Implementations: scraper.Retriever
type ContentRetriever interface {
	Retrieve(ctx context.Context, url string) (string, error)
}

// Reasoner is the LLM-backed extraction capability. Both methods return the raw
// JSON text produced by the model; validation is the caller's job.
// Implementations: llm.Client
type Reasoner interface {
	ExtractIndicators(ctx context.Context, content string) ([]byte, error)
	GenerateQueries(ctx context.Context, indicators []Indicator) ([]byte, error)
}
