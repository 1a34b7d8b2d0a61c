// Package sqlite stores snapshots in a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ldi/planner/internal/storage"
	"github.com/ldi/planner/pkg/models"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

type Store struct {
	*sql.DB
}

// Open opens a SQLite database at the given path.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)

	return &Store{DB: db}, nil
}

// Init creates the items table if it does not exist.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (*models.Snapshot, error) {
	rows, err := s.QueryContext(ctx, "SELECT "+storage.Columns+" FROM items ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var out []storage.Row
	for rows.Next() {
		var r storage.Row
		if err := rows.Scan(&r.ID, &r.Type, &r.Title, &r.Status, &r.Description, &r.EpicID, &r.StartTime, &r.Duration); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return storage.Build(out)
}

// Save replaces the table contents with snap in a single transaction.
func (s *Store) Save(ctx context.Context, snap *models.Snapshot) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM items"); err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO items ("+storage.Columns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range storage.Rows(snap) {
		if _, err := stmt.ExecContext(ctx, r.Args()...); err != nil {
			return fmt.Errorf("failed to insert %s %d: %w", r.Type, r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}
