package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ioclens/core"
	"ioclens/metrics"
	"ioclens/util/goroutine"

	"go.uber.org/zap"
)

// maxJSONColumnSize bounds the JSON documents decoded from a row
const maxJSONColumnSize = 16 * 1024 * 1024

// SQLStore implements core.IndicatorStore and core.UserStore over any Database
type SQLStore struct {
	db      Database
	dialect Dialect
	logger  *zap.SugaredLogger

	prevWaitCount map[string]int64
}

var (
	_ core.IndicatorStore = (*SQLStore)(nil)
	_ core.UserStore      = (*SQLStore)(nil)
)

// NewSQLStore wraps an open database
func NewSQLStore(db Database, logger *zap.SugaredLogger) *SQLStore {
	return &SQLStore{
		db:            db,
		dialect:       db.Dialect(),
		logger:        logger,
		prevWaitCount: make(map[string]int64),
	}
}

// Close releases the underlying connection pools
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// HealthCheck verifies the database connection is alive
func (s *SQLStore) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, core.DBOperationTimeout)
	defer cancel()
	return s.db.Writer().PingContext(ctx)
}

// Dialect returns the SQL flavour of the backing database
func (s *SQLStore) Dialect() Dialect {
	return s.dialect
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// =============================================================================
// Analysis Records
// =============================================================================

const recordColumns = `id, url, raw_content, indicators, user_id, created_at`

// CreateRecord persists a new analysis record
func (s *SQLStore) CreateRecord(ctx context.Context, url string, rawContent *string, indicators core.IOCResult, ownerUserID *int64) (*core.AnalysisRecord, error) {
	const op = "storage.CreateRecord"
	ctx, cancel := context.WithTimeout(ctx, core.DBOperationTimeout)
	defer cancel()

	indicatorsJSON, err := json.Marshal(indicators)
	if err != nil {
		return nil, core.NewStorageError(op, fmt.Errorf("failed to marshal indicators: %w", err))
	}

	record := &core.AnalysisRecord{
		URL:        url,
		RawContent: rawContent,
		Indicators: indicators,
		UserID:     ownerUserID,
		CreatedAt:  now(),
	}

	query := s.dialect.Rebind(`
		INSERT INTO iocs (url, raw_content, indicators, user_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)
	err = s.db.Writer().QueryRowContext(ctx, query,
		url, nullString(rawContent), string(indicatorsJSON), nullInt64(ownerUserID), record.CreatedAt,
	).Scan(&record.ID)
	if err != nil {
		return nil, storageFailure(op, fmt.Errorf("failed to insert record: %w", err))
	}

	s.logger.Infow("Analysis record created",
		"record_id", record.ID,
		"url", url,
		"indicators", len(indicators.Indicators))

	return record, nil
}

// GetRecordByID returns the record with the given id
func (s *SQLStore) GetRecordByID(ctx context.Context, id int64) (*core.AnalysisRecord, error) {
	const op = "storage.GetRecordByID"
	ctx, cancel := context.WithTimeout(ctx, core.DBOperationTimeout)
	defer cancel()

	query := s.dialect.Rebind(`SELECT ` + recordColumns + ` FROM iocs WHERE id = ?`)
	record, err := s.scanRecord(s.db.Reader().QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(op, ErrRecordNotFound)
	}
	if err != nil {
		return nil, storageFailure(op, err)
	}
	return record, nil
}

// GetRecordByURL returns the oldest record whose url matches exactly
func (s *SQLStore) GetRecordByURL(ctx context.Context, url string) (*core.AnalysisRecord, error) {
	const op = "storage.GetRecordByURL"
	ctx, cancel := context.WithTimeout(ctx, core.DBOperationTimeout)
	defer cancel()

	query := s.dialect.Rebind(`SELECT ` + recordColumns + ` FROM iocs WHERE url = ? ORDER BY id ASC LIMIT 1`)
	record, err := s.scanRecord(s.db.Reader().QueryRowContext(ctx, query, url))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(op, ErrRecordNotFound)
	}
	if err != nil {
		return nil, storageFailure(op, err)
	}
	return record, nil
}

// ListRecordsByOwner returns the owner's records in insertion order
func (s *SQLStore) ListRecordsByOwner(ctx context.Context, ownerUserID int64) ([]*core.AnalysisRecord, error) {
	const op = "storage.ListRecordsByOwner"
	ctx, cancel := context.WithTimeout(ctx, core.DBOperationTimeout)
	defer cancel()

	query := s.dialect.Rebind(`SELECT ` + recordColumns + ` FROM iocs WHERE user_id = ? ORDER BY id ASC`)
	rows, err := s.db.Reader().QueryContext(ctx, query, ownerUserID)
	if err != nil {
		return nil, storageFailure(op, fmt.Errorf("failed to query records: %w", err))
	}
	defer rows.Close()

	records := make([]*core.AnalysisRecord, 0)
	for rows.Next() {
		record, err := s.scanRecord(rows)
		if err != nil {
			return nil, storageFailure(op, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, storageFailure(op, fmt.Errorf("error iterating records: %w", err))
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *SQLStore) scanRecord(row rowScanner) (*core.AnalysisRecord, error) {
	var record core.AnalysisRecord
	var rawContent sql.NullString
	var indicatorsJSON string
	var userID sql.NullInt64

	if err := row.Scan(&record.ID, &record.URL, &rawContent, &indicatorsJSON, &userID, &record.CreatedAt); err != nil {
		return nil, err
	}

	if err := decodeJSONColumn(indicatorsJSON, &record.Indicators); err != nil {
		return nil, fmt.Errorf("record %d has corrupt indicators: %w", record.ID, err)
	}
	if rawContent.Valid {
		record.RawContent = &rawContent.String
	}
	if userID.Valid {
		record.UserID = &userID.Int64
	}
	return &record, nil
}

// =============================================================================
// Search Queries
// =============================================================================

// CreateSearchQueries persists a generated query set for a record
func (s *SQLStore) CreateSearchQueries(ctx context.Context, iocID int64, qradar, sentinel []core.QueryPair) (*core.SearchQueryRecord, error) {
	const op = "storage.CreateSearchQueries"
	ctx, cancel := context.WithTimeout(ctx, core.DBOperationTimeout)
	defer cancel()

	qradarJSON, err := json.Marshal(qradar)
	if err != nil {
		return nil, core.NewStorageError(op, fmt.Errorf("failed to marshal qradar queries: %w", err))
	}
	sentinelJSON, err := json.Marshal(sentinel)
	if err != nil {
		return nil, core.NewStorageError(op, fmt.Errorf("failed to marshal sentinel queries: %w", err))
	}

	record := &core.SearchQueryRecord{
		IOCID:           iocID,
		QRadarQueries:   qradar,
		SentinelQueries: sentinel,
		CreatedAt:       now(),
	}

	query := s.dialect.Rebind(`
		INSERT INTO search_queries (ioc_id, qradar_queries, sentinel_queries, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`)
	err = s.db.Writer().QueryRowContext(ctx, query,
		iocID, string(qradarJSON), string(sentinelJSON), record.CreatedAt,
	).Scan(&record.ID)
	if err != nil {
		return nil, storageFailure(op, fmt.Errorf("failed to insert search queries: %w", err))
	}

	s.logger.Infow("Search queries stored",
		"search_query_id", record.ID,
		"record_id", iocID,
		"qradar", len(qradar),
		"sentinel", len(sentinel))

	return record, nil
}

// GetSearchQueriesByRecordID returns the most recently stored query set for a record
func (s *SQLStore) GetSearchQueriesByRecordID(ctx context.Context, iocID int64) (*core.SearchQueryRecord, error) {
	const op = "storage.GetSearchQueriesByRecordID"
	ctx, cancel := context.WithTimeout(ctx, core.DBOperationTimeout)
	defer cancel()

	query := s.dialect.Rebind(`
		SELECT id, ioc_id, qradar_queries, sentinel_queries, created_at
		FROM search_queries WHERE ioc_id = ?
		ORDER BY id DESC LIMIT 1
	`)

	var record core.SearchQueryRecord
	var qradarJSON, sentinelJSON string
	err := s.db.Reader().QueryRowContext(ctx, query, iocID).Scan(
		&record.ID, &record.IOCID, &qradarJSON, &sentinelJSON, &record.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(op, ErrSearchQueriesNotFound)
	}
	if err != nil {
		return nil, storageFailure(op, err)
	}

	if err := decodeJSONColumn(qradarJSON, &record.QRadarQueries); err != nil {
		return nil, storageFailure(op, fmt.Errorf("corrupt qradar queries: %w", err))
	}
	if err := decodeJSONColumn(sentinelJSON, &record.SentinelQueries); err != nil {
		return nil, storageFailure(op, fmt.Errorf("corrupt sentinel queries: %w", err))
	}
	return &record, nil
}

// =============================================================================
// Helpers
// =============================================================================

func decodeJSONColumn(data string, v interface{}) error {
	if len(data) > maxJSONColumnSize {
		return fmt.Errorf("JSON column exceeds %d bytes", maxJSONColumnSize)
	}
	return json.Unmarshal([]byte(data), v)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// =============================================================================
// Pool Metrics
// =============================================================================

// StartMetricsCollection periodically publishes connection pool stats until ctx is done
func (s *SQLStore) StartMetricsCollection(ctx context.Context, interval time.Duration) {
	s.updatePoolMetrics()

	go func() {
		defer goroutine.Recover("db-pool-metrics", s.logger)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Debug("Database metrics collection stopped")
				return
			case <-ticker.C:
				s.updatePoolMetrics()
			}
		}
	}()
}

func (s *SQLStore) updatePoolMetrics() {
	s.updatePoolMetricsForType("write", s.db.Writer().Stats())
	if s.db.Reader() != s.db.Writer() {
		s.updatePoolMetricsForType("read", s.db.Reader().Stats())
	}
}

// updatePoolMetricsForType publishes gauges and adds the wait-count delta to the counter
func (s *SQLStore) updatePoolMetricsForType(pool string, stats sql.DBStats) {
	metrics.DBPoolOpenConnections.WithLabelValues(pool).Set(float64(stats.OpenConnections))
	metrics.DBPoolInUse.WithLabelValues(pool).Set(float64(stats.InUse))
	metrics.DBPoolIdle.WithLabelValues(pool).Set(float64(stats.Idle))

	if delta := stats.WaitCount - s.prevWaitCount[pool]; delta > 0 {
		metrics.DBPoolWaitCount.WithLabelValues(pool).Add(float64(delta))
		s.prevWaitCount[pool] = stats.WaitCount
	}
}
