// Package postgres stores snapshots in a PostgreSQL table.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ldi/planner/internal/storage"
	"github.com/ldi/planner/pkg/models"
)

type Store struct {
	pool *pgxpool.Pool
}

// New connects to the database named by dsn.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// EnsureTable creates the items table if it doesn't exist.
func (s *Store) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS items (
			id               BIGINT PRIMARY KEY,
			type             TEXT   NOT NULL,
			title            TEXT   NOT NULL,
			status           TEXT   NOT NULL,
			description      TEXT   NOT NULL DEFAULT '',
			epic_id          BIGINT,
			start_time       TEXT,
			duration_minutes BIGINT NOT NULL DEFAULT 0 CHECK (duration_minutes >= 0)
		)`)
	if err != nil {
		return fmt.Errorf("create items table: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (*models.Snapshot, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+storage.Columns+" FROM items ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var out []storage.Row
	for rows.Next() {
		var r storage.Row
		if err := rows.Scan(&r.ID, &r.Type, &r.Title, &r.Status, &r.Description, &r.EpicID, &r.StartTime, &r.Duration); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return storage.Build(out)
}

// Save replaces the table contents with snap. The inserts are sent as one
// batch inside the transaction.
func (s *Store) Save(ctx context.Context, snap *models.Snapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	batch.Queue("DELETE FROM items")
	for _, r := range storage.Rows(snap) {
		batch.Queue("INSERT INTO items ("+storage.Columns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8)", r.Args()...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("write items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
