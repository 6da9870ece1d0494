package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/xiaoyuanzhu-com/project-chat/log"
)

var logger = log.GetLogger("DB")

// DB wraps the SQLite connection holding chat transcripts
type DB struct {
	conn       *sql.DB
	logQueries bool
}

// Open opens (creating if needed) the database at cfg.Path and runs pending
// migrations.
func Open(cfg Config) (*DB, error) {
	if err := ensureDatabaseDirectory(cfg.Path); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL, foreign keys and a busy timeout so readers never block the writer
	dsn := cfg.Path + "?_foreign_keys=1&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 1 // SQLite works best with single writer
	}
	conn.SetMaxOpenConns(maxOpen)
	conn.SetMaxIdleConns(max(cfg.MaxIdleConns, 1))
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info().Str("path", cfg.Path).Msg("database initialized")
	return &DB{conn: conn, logQueries: cfg.LogQueries}, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	if d == nil || d.conn == nil {
		return nil
	}
	return d.conn.Close()
}

// ensureDatabaseDirectory creates the directory for the database file if it doesn't exist
func ensureDatabaseDirectory(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		logger.Info().Str("dir", dir).Msg("created database directory")
	}
	return nil
}

// Transaction executes a function within a database transaction
func (d *DB) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (d *DB) logQuery(kind string, query string, args ...any) {
	if !d.logQueries {
		return
	}
	logger.Debug().
		Str("kind", kind).
		Str("sql", query).
		Interface("params", args).
		Msg("db query")
}
