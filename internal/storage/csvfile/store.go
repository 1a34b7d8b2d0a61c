package csvfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ldi/planner/pkg/models"
)

// Store keeps the snapshot in a single file, rewritten in full on every save.
type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Load reads the file. A missing or empty file is an empty snapshot.
func (s *Store) Load(ctx context.Context) (*models.Snapshot, error) {
	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &models.Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer file.Close()

	return Decode(file)
}

// Save writes snap to a temporary file next to the target and renames it
// into place, so readers never observe a partial file.
func (s *Store) Save(ctx context.Context, snap *models.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, "tasks-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempFile.Name())
		}
	}()

	if err := Encode(tempFile, snap); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	filename := tempFile.Name()
	tempFile = nil

	if err := os.Rename(filename, s.path); err != nil {
		os.Remove(filename)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// CheckFields rejects text the unquoted format cannot round-trip.
func (s *Store) CheckFields(c models.Common) error {
	if strings.ContainsAny(c.Title, ",\r\n") {
		return errors.New("title must not contain commas or line breaks")
	}
	if strings.ContainsAny(c.Description, ",\r\n") {
		return errors.New("description must not contain commas or line breaks")
	}
	return nil
}
