package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/mkravets/inventar/internal/model"
)

// schema is the full database schema. AUTOINCREMENT keeps deleted ids from
// being reassigned to later items.
const schema = `
CREATE TABLE IF NOT EXISTS items (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT NOT NULL CHECK (name <> ''),
    description TEXT NOT NULL DEFAULT '',
    photo_path  TEXT NOT NULL DEFAULT '',
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLite is a Repository backed by a SQLite database file.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path, configures pragmas,
// and ensures the schema exists. Use ":memory:" for an ephemeral database.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set pragmas for performance and correctness.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Create stores a new item and returns it with its assigned id.
func (s *SQLite) Create(ctx context.Context, name, description string) (*model.Item, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("name must not be empty: %w", model.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO items (name, description) VALUES (?, ?)`,
		name, description,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return s.Get(ctx, id)
}

// Get returns an item by ID.
func (s *SQLite) Get(ctx context.Context, id int64) (*model.Item, error) {
	item := &model.Item{}
	var description, photoPath sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, photo_path, created_at, updated_at
		 FROM items WHERE id = ?`, id,
	).Scan(&item.ID, &item.Name, &description, &photoPath, &item.CreatedAt, &item.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("item %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	item.Description = description.String
	item.PhotoPath = photoPath.String
	return item, nil
}

// List returns all items in creation order.
func (s *SQLite) List(ctx context.Context) ([]model.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, photo_path, created_at, updated_at
		 FROM items ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var item model.Item
		var description, photoPath sql.NullString
		if err := rows.Scan(&item.ID, &item.Name, &description, &photoPath, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		item.Description = description.String
		item.PhotoPath = photoPath.String
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateFields merges the given fields into the stored item. An empty
// field keeps its prior value; both empty is an error.
func (s *SQLite) UpdateFields(ctx context.Context, id int64, name, description string) (*model.Item, error) {
	if name == "" && description == "" {
		return nil, fmt.Errorf("no fields to update: %w", model.ErrInvalidInput)
	}

	// COALESCE over NULLIF keeps the merge inside a single UPDATE, so
	// concurrent readers never observe a half-merged row.
	result, err := s.db.ExecContext(ctx,
		`UPDATE items
		 SET name        = COALESCE(NULLIF(?, ''), name),
		     description = COALESCE(NULLIF(?, ''), description),
		     updated_at  = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		name, description, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("item %d: %w", id, model.ErrNotFound)
	}

	return s.Get(ctx, id)
}

// SetPhotoPath overwrites the item's photo reference.
func (s *SQLite) SetPhotoPath(ctx context.Context, id int64, path string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE items SET photo_path = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		path, id,
	)
	if err != nil {
		return fmt.Errorf("setting photo path: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("item %d: %w", id, model.ErrNotFound)
	}
	return nil
}

// Delete removes the item record.
func (s *SQLite) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("item %d: %w", id, model.ErrNotFound)
	}
	return nil
}
