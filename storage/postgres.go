package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresConfig holds connection settings for the PostgreSQL backend
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Postgres holds a single PostgreSQL pool used for both reads and writes
type Postgres struct {
	DB     *sql.DB
	Logger *zap.SugaredLogger
}

// NewPostgres connects to PostgreSQL and creates the schema
func NewPostgres(ctx context.Context, cfg PostgresConfig, logger *zap.SugaredLogger) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres DSN cannot be empty")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schemaFor(DialectPostgres)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Infow("PostgreSQL database initialized", "max_open_conns", cfg.MaxOpenConns)
	return &Postgres{DB: db, Logger: logger}, nil
}

func (p *Postgres) Writer() *sql.DB { return p.DB }
func (p *Postgres) Reader() *sql.DB { return p.DB }
func (p *Postgres) Dialect() Dialect { return DialectPostgres }

// Close closes the connection pool
func (p *Postgres) Close() error {
	if p.DB == nil {
		return nil
	}
	return p.DB.Close()
}
