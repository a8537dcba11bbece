// Package photo stores item photos as files under a cache directory,
// keyed by item id. Items only ever hold the returned path; the bytes
// live here.
package photo

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/mkravets/inventar/internal/model"
)

// defaultContentType is served when the extension is unknown.
const defaultContentType = "image/jpeg"

// Store writes and reads photo files under a cache directory.
type Store struct {
	dir string
}

// NewStore creates the cache directory if needed and returns a store
// rooted there.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the photo bytes for the given item id and returns the file
// path to record on the item. The file is named from the id plus the
// extension of the original filename (default .jpg), so re-uploading for
// the same id overwrites the previous file of the same extension. The
// write goes through a temp file and rename; on failure the temp file is
// removed and no path is returned. Empty uploads are accepted.
func (s *Store) Save(id int64, r io.Reader, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	path := filepath.Join(s.dir, fmt.Sprintf("%d%s", id, ext))

	tmp, err := os.CreateTemp(s.dir, "upload-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("writing photo: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("closing photo file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("storing photo: %w", err)
	}
	return path, nil
}

// Open returns a reader over the photo bytes at path and the content type
// inferred from its extension. A missing file or empty path is
// model.ErrNotFound, never a crash on stale references.
func (s *Store) Open(path string) (io.ReadCloser, string, error) {
	if path == "" {
		return nil, "", fmt.Errorf("no photo reference: %w", model.ErrNotFound)
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", fmt.Errorf("photo file %s: %w", path, model.ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("opening photo: %w", err)
	}

	return f, ContentType(path), nil
}

// Exists reports whether path refers to a readable photo file.
func (s *Store) Exists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Delete removes the photo file at path. Best-effort: callers log the
// returned error and carry on, an orphaned file is not fatal.
func (s *Store) Delete(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing photo: %w", err)
	}
	return nil
}

// ContentType infers an image content type from the file extension,
// defaulting to JPEG.
func ContentType(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); strings.HasPrefix(ct, "image/") {
		return ct
	}
	return defaultContentType
}
