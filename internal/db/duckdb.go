// Package db opens the embedded DuckDB database that backs offline
// datasets (duckdb:// URLs).
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
)

var (
	instance *sql.DB
	once     sync.Once
	initErr  error
)

// Config holds database configuration. An empty DataDir opens an
// in-memory database.
type Config struct {
	DataDir string
	DBName  string
}

// Path returns the database file path, or "" for in-memory.
func (c Config) Path() string {
	if c.DataDir == "" {
		return ""
	}
	name := c.DBName
	if name == "" {
		name = "paser"
	}
	return filepath.Join(c.DataDir, "duckdb", name+".duckdb")
}

// Open opens a new connection pool and ensures the domain table exists.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	path := cfg.Path()
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create duckdb directory: %w", err)
		}
	}

	conn, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("opening duckdb %q: %w", path, err)
	}
	if err := Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// Get returns the process-wide DuckDB connection.
func Get(cfg Config) (*sql.DB, error) {
	once.Do(func() {
		instance, initErr = Open(context.Background(), cfg)
	})
	return instance, initErr
}

// Close closes the process-wide connection.
func Close() error {
	if instance != nil {
		return instance.Close()
	}
	return nil
}

// DomainsTable stores coded-value domains for local tables.
const DomainsTable = "coded_value_domains"

// Migrate creates the tables every local dataset relies on.
func Migrate(ctx context.Context, conn *sql.DB) error {
	_, err := conn.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+DomainsTable+` (
		table_name VARCHAR NOT NULL,
		field_name VARCHAR NOT NULL,
		code       VARCHAR NOT NULL,
		name       VARCHAR NOT NULL,
		ordinal    INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("creating %s: %w", DomainsTable, err)
	}
	return nil
}
