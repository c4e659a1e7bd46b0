package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// SQLStore is a SQL-backed Store.
// It works with any database/sql compatible driver (PostgreSQL, MySQL, SQLite).
// Column names avoid reserved words so the same statements work unquoted
// across all three dialects. Requires a table with schema:
//
//	CREATE TABLE custodesk_kv (
//	    kv_key VARCHAR(255) PRIMARY KEY,
//	    kv_value TEXT NOT NULL,
//	    updated_at TIMESTAMP NOT NULL
//	);
type SQLStore struct {
	db        *sql.DB
	tableName string
	dialect   SQLDialect

	mu     sync.RWMutex
	closed bool
}

// SQLDialect represents the SQL dialect for query generation.
type SQLDialect int

const (
	// DialectPostgreSQL uses PostgreSQL syntax ($1, $2 placeholders).
	DialectPostgreSQL SQLDialect = iota
	// DialectMySQL uses MySQL syntax (? placeholders).
	DialectMySQL
	// DialectSQLite uses SQLite syntax (? placeholders).
	DialectSQLite
)

// SQLStoreOption configures SQLStore behavior.
type SQLStoreOption func(*sqlStoreConfig)

type sqlStoreConfig struct {
	tableName string
	dialect   SQLDialect
}

// WithSQLTableName sets the table name for key/value storage.
// Default: "custodesk_kv".
func WithSQLTableName(name string) SQLStoreOption {
	return func(c *sqlStoreConfig) {
		c.tableName = name
	}
}

// WithSQLDialect sets the SQL dialect for query generation.
// Default: DialectPostgreSQL.
func WithSQLDialect(dialect SQLDialect) SQLStoreOption {
	return func(c *sqlStoreConfig) {
		c.dialect = dialect
	}
}

// NewSQLStore creates a new SQL-backed store. The caller owns db; Close
// marks the store closed without closing the underlying pool.
func NewSQLStore(db *sql.DB, opts ...SQLStoreOption) *SQLStore {
	cfg := &sqlStoreConfig{
		tableName: "custodesk_kv",
		dialect:   DialectPostgreSQL,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &SQLStore{
		db:        db,
		tableName: cfg.tableName,
		dialect:   cfg.dialect,
	}
}

// placeholder returns the placeholder syntax for the dialect.
func (s *SQLStore) placeholder(n int) string {
	switch s.dialect {
	case DialectPostgreSQL:
		return fmt.Sprintf("$%d", n)
	default:
		return "?"
	}
}

func (s *SQLStore) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Get returns the value for key if present.
func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s.isClosed() {
		return "", false, ErrStoreClosed{}
	}

	query := fmt.Sprintf(`SELECT kv_value FROM %s WHERE kv_key = %s`,
		s.tableName, s.placeholder(1))

	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("storage: get %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, overwriting any existing value.
func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	if s.isClosed() {
		return ErrStoreClosed{}
	}

	var query string
	switch s.dialect {
	case DialectPostgreSQL:
		query = fmt.Sprintf(`
			INSERT INTO %s (kv_key, kv_value, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (kv_key) DO UPDATE
			SET kv_value = EXCLUDED.kv_value, updated_at = NOW()`,
			s.tableName)
	case DialectMySQL:
		query = fmt.Sprintf(`
			INSERT INTO %s (kv_key, kv_value, updated_at)
			VALUES (?, ?, NOW())
			ON DUPLICATE KEY UPDATE kv_value = VALUES(kv_value), updated_at = NOW()`,
			s.tableName)
	case DialectSQLite:
		query = fmt.Sprintf(`
			INSERT INTO %s (kv_key, kv_value, updated_at)
			VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT (kv_key) DO UPDATE
			SET kv_value = excluded.kv_value, updated_at = CURRENT_TIMESTAMP`,
			s.tableName)
	}

	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("storage: set %q: %w", key, err)
	}
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (s *SQLStore) Remove(ctx context.Context, key string) error {
	if s.isClosed() {
		return ErrStoreClosed{}
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE kv_key = %s`,
		s.tableName, s.placeholder(1))

	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("storage: remove %q: %w", key, err)
	}
	return nil
}

// Keys lists all keys in the store.
func (s *SQLStore) Keys(ctx context.Context) ([]string, error) {
	if s.isClosed() {
		return nil, ErrStoreClosed{}
	}

	query := fmt.Sprintf(`SELECT kv_key FROM %s`, s.tableName)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("storage: keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("storage: keys: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Close marks the store closed. The *sql.DB is owned by the caller and is
// left open.
func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
