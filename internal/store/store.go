// Package store persists enrichment runs and hybrid tables in DuckDB.
// Tables are append-only; every run gets a new run_id.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for result tables.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database path, "" for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id BIGINT PRIMARY KEY,
			name VARCHAR,
			method VARCHAR,
			genome VARCHAR,
			locus VARCHAR,
			mappability VARCHAR,
			randomization VARCHAR,
			seed UBIGINT,
			min_geneset_size BIGINT,
			max_geneset_size BIGINT,
			tested BIGINT,
			skipped BIGINT,
			failed BIGINT,
			created_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS enrichment_results (
			run_id BIGINT,
			geneset_type VARCHAR,
			geneset_id VARCHAR,
			description VARCHAR,
			p_value DOUBLE,
			fdr DOUBLE,
			status VARCHAR,
			effect DOUBLE,
			n_geneset_genes BIGINT,
			n_geneset_peak_genes BIGINT,
			PRIMARY KEY (run_id, geneset_id)
		)`,
		`CREATE TABLE IF NOT EXISTS fit_failures (
			run_id BIGINT,
			geneset_type VARCHAR,
			geneset_id VARCHAR,
			reason VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS hybrid_results (
			run_id BIGINT,
			geneset_id VARCHAR,
			p_value_x DOUBLE,
			p_value_y DOUBLE,
			p_value_hybrid DOUBLE,
			fdr_hybrid DOUBLE,
			status_x VARCHAR,
			status_y VARCHAR,
			status_hybrid VARCHAR,
			PRIMARY KEY (run_id, geneset_id)
		)`,
		`CREATE TABLE IF NOT EXISTS run_inputs (
			run_id BIGINT,
			role VARCHAR,
			path VARCHAR,
			size BIGINT,
			mod_time TIMESTAMP
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// nextRunID returns one more than the largest run_id in use.
func (s *Store) nextRunID() (int64, error) {
	var id int64
	if err := s.db.QueryRow("SELECT COALESCE(MAX(run_id), 0) + 1 FROM runs").Scan(&id); err != nil {
		return 0, fmt.Errorf("next run id: %w", err)
	}
	return id, nil
}
