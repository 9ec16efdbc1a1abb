package storage

import (
	"database/sql"
	"strconv"
	"strings"
)

// Dialect selects the SQL flavour used by SQLStore
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Database is an open set of connection pools for one dialect.
// Reader and Writer may return the same pool.
type Database interface {
	Writer() *sql.DB
	Reader() *sql.DB
	Dialect() Dialect
	Close() error
}

// Rebind rewrites ? placeholders into the dialect's bind syntax
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// schemaFor returns the DDL for the users, iocs and search_queries tables
func schemaFor(d Dialect) string {
	idType, jsonType := "INTEGER PRIMARY KEY AUTOINCREMENT", "TEXT"
	refType := "INTEGER"
	if d == DialectPostgres {
		idType, jsonType = "BIGSERIAL PRIMARY KEY", "JSONB"
		refType = "BIGINT"
	}

	r := strings.NewReplacer("{{id}}", idType, "{{json}}", jsonType, "{{ref}}", refType)
	return r.Replace(`
	CREATE TABLE IF NOT EXISTS users (
		id {{id}},
		email TEXT NOT NULL,
		username TEXT,
		google_id TEXT UNIQUE,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

	-- user_id is a soft reference; records outlive their owners
	CREATE TABLE IF NOT EXISTS iocs (
		id {{id}},
		url TEXT NOT NULL,
		raw_content TEXT,
		indicators {{json}} NOT NULL,
		user_id {{ref}},
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_iocs_url ON iocs(url);
	CREATE INDEX IF NOT EXISTS idx_iocs_user_id ON iocs(user_id);

	CREATE TABLE IF NOT EXISTS search_queries (
		id {{id}},
		ioc_id {{ref}} NOT NULL REFERENCES iocs(id) ON DELETE CASCADE,
		qradar_queries {{json}} NOT NULL,
		sentinel_queries {{json}} NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_search_queries_ioc_id ON search_queries(ioc_id);
	`)
}
