package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mkravets/inventar/internal/model"
)

// document is the on-disk shape of the JSON store. NextID is persisted so
// ids survive deletion of the highest item and are never reused.
type document struct {
	NextID int64        `json:"next_id"`
	Items  []model.Item `json:"items"`
}

// JSONFile is a Repository backed by a single JSON document. Every
// mutation rewrites the whole file under the mutex, via a temp file and
// rename so readers of the file never see a torn write.
type JSONFile struct {
	mu    sync.Mutex
	path  string
	doc   document
	clock func() time.Time
}

// NewJSONFile opens the document at path, creating an empty one if it
// does not exist yet.
func NewJSONFile(path string) (*JSONFile, error) {
	s := &JSONFile{path: path, clock: time.Now}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		s.doc = document{NextID: 1}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading store file: %w", err)
	}

	if err := json.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("parsing store file: %w", err)
	}
	if s.doc.NextID < 1 {
		s.doc.NextID = 1
		for _, item := range s.doc.Items {
			if item.ID >= s.doc.NextID {
				s.doc.NextID = item.ID + 1
			}
		}
	}
	return s, nil
}

// Close is a no-op; the file is only held open during writes.
func (s *JSONFile) Close() error { return nil }

// flush rewrites the whole document. Callers must hold the mutex.
func (s *JSONFile) flush() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding store file: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing store file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing store file: %w", err)
	}
	return nil
}

// indexOf returns the slice index of the item with the given id, or -1.
// Callers must hold the mutex.
func (s *JSONFile) indexOf(id int64) int {
	for i := range s.doc.Items {
		if s.doc.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// Create stores a new item and returns it with its assigned id.
func (s *JSONFile) Create(ctx context.Context, name, description string) (*model.Item, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("name must not be empty: %w", model.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock().UTC()
	item := model.Item{
		ID:          s.doc.NextID,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.doc.Items = append(s.doc.Items, item)
	s.doc.NextID++

	if err := s.flush(); err != nil {
		// Roll back the in-memory state so a reread matches the file.
		s.doc.Items = s.doc.Items[:len(s.doc.Items)-1]
		s.doc.NextID--
		return nil, err
	}
	return &item, nil
}

// Get returns an item by ID.
func (s *JSONFile) Get(ctx context.Context, id int64) (*model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("item %d: %w", id, model.ErrNotFound)
	}
	item := s.doc.Items[i]
	return &item, nil
}

// List returns all items in creation order.
func (s *JSONFile) List(ctx context.Context) ([]model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]model.Item, len(s.doc.Items))
	copy(items, s.doc.Items)
	return items, nil
}

// UpdateFields merges the given fields into the stored item. An empty
// field keeps its prior value; both empty is an error.
func (s *JSONFile) UpdateFields(ctx context.Context, id int64, name, description string) (*model.Item, error) {
	if name == "" && description == "" {
		return nil, fmt.Errorf("no fields to update: %w", model.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("item %d: %w", id, model.ErrNotFound)
	}

	updated := s.doc.Items[i]
	if name != "" {
		updated.Name = name
	}
	if description != "" {
		updated.Description = description
	}
	updated.UpdatedAt = s.clock().UTC()

	prev := s.doc.Items[i]
	s.doc.Items[i] = updated
	if err := s.flush(); err != nil {
		s.doc.Items[i] = prev
		return nil, err
	}
	return &updated, nil
}

// SetPhotoPath overwrites the item's photo reference.
func (s *JSONFile) SetPhotoPath(ctx context.Context, id int64, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("item %d: %w", id, model.ErrNotFound)
	}

	prev := s.doc.Items[i]
	s.doc.Items[i].PhotoPath = path
	s.doc.Items[i].UpdatedAt = s.clock().UTC()
	if err := s.flush(); err != nil {
		s.doc.Items[i] = prev
		return err
	}
	return nil
}

// Delete removes the item record.
func (s *JSONFile) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("item %d: %w", id, model.ErrNotFound)
	}

	prev := s.doc.Items
	s.doc.Items = append(s.doc.Items[:i:i], s.doc.Items[i+1:]...)
	if err := s.flush(); err != nil {
		s.doc.Items = prev
		return err
	}
	return nil
}
