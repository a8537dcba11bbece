// Package store persists inventory items. Two backends satisfy the same
// Repository contract: SQLite for durable single-file databases and a flat
// JSON document for zero-dependency deployments. Handlers only ever see
// the interface.
package store

import (
	"context"

	"github.com/mkravets/inventar/internal/model"
)

// Repository is the persistence contract for inventory items.
//
// All methods return model.ErrNotFound for missing ids and
// model.ErrInvalidInput for constraint violations, so callers can map
// errors without knowing the backend.
type Repository interface {
	// Create stores a new item and assigns it a unique id. Ids are never
	// reused, even after deletion. Fails with model.ErrInvalidInput if
	// name is empty.
	Create(ctx context.Context, name, description string) (*model.Item, error)

	// Get returns the item with the given id.
	Get(ctx context.Context, id int64) (*model.Item, error)

	// List returns all items in creation order.
	List(ctx context.Context) ([]model.Item, error)

	// UpdateFields merges non-empty name/description into the stored item
	// and returns the result. Fails with model.ErrInvalidInput if both
	// are empty.
	UpdateFields(ctx context.Context, id int64, name, description string) (*model.Item, error)

	// SetPhotoPath overwrites the item's photo reference.
	SetPhotoPath(ctx context.Context, id int64, path string) error

	// Delete removes the item record. The caller is responsible for
	// cleaning up any photo file the record referenced.
	Delete(ctx context.Context, id int64) error

	Close() error
}
