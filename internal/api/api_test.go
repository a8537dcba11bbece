package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/mkravets/inventar/internal/photo"
	"github.com/mkravets/inventar/internal/store"
)

type testEnv struct {
	server   *httptest.Server
	repo     store.Repository
	photos   *photo.Store
	cacheDir string
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	repo, err := store.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	cacheDir := t.TempDir()
	photos, err := photo.NewStore(cacheDir)
	if err != nil {
		t.Fatalf("opening photo store: %v", err)
	}

	server := httptest.NewServer(NewRouter(repo, photos, nil))
	t.Cleanup(server.Close)

	return &testEnv{server: server, repo: repo, photos: photos, cacheDir: cacheDir}
}

// multipartBody builds a multipart form with the given fields and an
// optional photo file.
func multipartBody(t *testing.T, fields map[string]string, filename string, file []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("writing form field: %v", err)
		}
	}
	if filename != "" {
		fw, err := w.CreateFormFile("photo", filename)
		if err != nil {
			t.Fatalf("creating form file: %v", err)
		}
		fw.Write(file)
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
}

func TestRegisterAndGetItem(t *testing.T) {
	env := setupTestServer(t)

	body, contentType := multipartBody(t, map[string]string{
		"inventory_name": "Hammer",
		"description":    "16oz claw hammer",
	}, "", nil)
	resp, err := http.Post(env.server.URL+"/register", contentType, body)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var created struct {
		ID          int64   `json:"id"`
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Photo       *string `json:"photo"`
	}
	decodeBody(t, resp, &created)
	if created.ID != 1 || created.Name != "Hammer" || created.Description != "16oz claw hammer" {
		t.Errorf("unexpected created item: %+v", created)
	}
	if created.Photo != nil {
		t.Errorf("expected null photo, got %v", *created.Photo)
	}

	resp, err = http.Get(env.server.URL + "/inventory/1")
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var got struct {
		ID    int64   `json:"id"`
		Name  string  `json:"name"`
		Photo *string `json:"photo"`
	}
	decodeBody(t, resp, &got)
	if got.ID != 1 || got.Name != "Hammer" || got.Photo != nil {
		t.Errorf("unexpected item: %+v", got)
	}
}

func TestRegisterMissingName(t *testing.T) {
	env := setupTestServer(t)

	for _, name := range []string{"", "   "} {
		body, contentType := multipartBody(t, map[string]string{
			"inventory_name": name,
			"description":    "nameless",
		}, "", nil)
		resp, _ := http.Post(env.server.URL+"/register", contentType, body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400 for name %q, got %d", name, resp.StatusCode)
		}
		resp.Body.Close()
	}

	// Nothing must be persisted by rejected registrations.
	items, _ := env.repo.List(context.Background())
	if len(items) != 0 {
		t.Errorf("expected no items after rejected registrations, got %d", len(items))
	}
}

func TestRegisterWithPhoto(t *testing.T) {
	env := setupTestServer(t)

	// Occupy id 1 so the photo item gets id 2.
	env.repo.Create(context.Background(), "Hammer", "")

	photoBytes := make([]byte, 2048)
	rand.Read(photoBytes)

	body, contentType := multipartBody(t, map[string]string{
		"inventory_name": "Drill",
	}, "drill.jpg", photoBytes)
	resp, err := http.Post(env.server.URL+"/register", contentType, body)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var created struct {
		ID    int64   `json:"id"`
		Photo *string `json:"photo"`
	}
	decodeBody(t, resp, &created)
	if created.Photo == nil || *created.Photo != "/inventory/2/photo" {
		t.Fatalf("expected photo link /inventory/2/photo, got %v", created.Photo)
	}

	resp, err = http.Get(env.server.URL + *created.Photo)
	if err != nil {
		t.Fatalf("get photo: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		t.Errorf("expected image content type, got %s", ct)
	}
	got, _ := io.ReadAll(resp.Body)
	if !bytes.Equal(got, photoBytes) {
		t.Errorf("photo bytes differ: sent %d bytes, got %d", len(photoBytes), len(got))
	}
}

func TestListItems(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	env.repo.Create(ctx, "One", "first")
	env.repo.Create(ctx, "Two", "second")

	resp, err := http.Get(env.server.URL + "/inventory")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var items []map[string]any
	decodeBody(t, resp, &items)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0]["name"] != "One" || items[1]["name"] != "Two" {
		t.Errorf("unexpected list order: %v", items)
	}
	if _, ok := items[0]["photo"]; ok {
		t.Error("list entries should not carry a photo field")
	}
}

func TestUpdateFields(t *testing.T) {
	env := setupTestServer(t)

	env.repo.Create(context.Background(), "Drill", "cordless")

	// Only description: name preserved.
	resp := doJSON(t, http.MethodPut, env.server.URL+"/inventory/1", map[string]string{
		"description": "hammer drill",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var updated struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	decodeBody(t, resp, &updated)
	if updated.Name != "Drill" || updated.Description != "hammer drill" {
		t.Errorf("unexpected update result: %+v", updated)
	}

	// Neither field: 400.
	resp = doJSON(t, http.MethodPut, env.server.URL+"/inventory/1", map[string]string{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for empty update, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Non-existent item with a valid body: 404.
	resp = doJSON(t, http.MethodPut, env.server.URL+"/inventory/999", map[string]string{
		"name": "Ghost",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Invalid id: 400.
	resp = doJSON(t, http.MethodPut, env.server.URL+"/inventory/abc", map[string]string{
		"name": "Ghost",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for non-numeric id, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSearch(t *testing.T) {
	env := setupTestServer(t)

	env.repo.Create(context.Background(), "Socket Set", "72 pieces")

	resp, _ := http.Get(env.server.URL + "/search?id=1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var got struct {
		Name string `json:"name"`
	}
	decodeBody(t, resp, &got)
	if got.Name != "Socket Set" {
		t.Errorf("unexpected search result: %+v", got)
	}

	// Non-numeric id is rejected before any lookup.
	resp, _ = http.Get(env.server.URL + "/search?id=abc")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for id=abc, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, _ = http.Get(env.server.URL + "/search")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for missing id, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, _ = http.Get(env.server.URL + "/search?id=42")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown id, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestDeleteTwice(t *testing.T) {
	env := setupTestServer(t)

	env.repo.Create(context.Background(), "Ladder", "")

	resp := doJSON(t, http.MethodDelete, env.server.URL+"/inventory/1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on first delete, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, http.MethodDelete, env.server.URL+"/inventory/1", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestDeleteRemovesPhotoFile(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	item, _ := env.repo.Create(ctx, "Camera", "")
	path, err := env.photos.Save(item.ID, bytes.NewReader([]byte("photo")), "c.jpg")
	if err != nil {
		t.Fatalf("saving photo: %v", err)
	}
	env.repo.SetPhotoPath(ctx, item.ID, path)

	resp := doJSON(t, http.MethodDelete, env.server.URL+"/inventory/1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	if env.photos.Exists(path) {
		t.Error("photo file should be removed with its item")
	}
}

func TestUpdatePhoto(t *testing.T) {
	env := setupTestServer(t)

	env.repo.Create(context.Background(), "Projector", "")

	body, contentType := multipartBody(t, nil, "p.png", []byte("new photo"))
	req, _ := http.NewRequest(http.MethodPut, env.server.URL+"/inventory/1/photo", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("update photo: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var confirm map[string]string
	decodeBody(t, resp, &confirm)
	if confirm["photo"] != "/inventory/1/photo" {
		t.Errorf("unexpected confirmation: %v", confirm)
	}

	resp, err = http.Get(env.server.URL + "/inventory/1/photo")
	if err != nil {
		t.Fatalf("get photo: %v", err)
	}
	defer resp.Body.Close()
	got, _ := io.ReadAll(resp.Body)
	if string(got) != "new photo" {
		t.Errorf("expected replaced photo bytes, got %q", got)
	}
}

func TestUpdatePhotoMissingFile(t *testing.T) {
	env := setupTestServer(t)

	env.repo.Create(context.Background(), "Scanner", "")

	body, contentType := multipartBody(t, map[string]string{"unrelated": "field"}, "", nil)
	req, _ := http.NewRequest(http.MethodPut, env.server.URL+"/inventory/1/photo", body)
	req.Header.Set("Content-Type", contentType)
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for missing file, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUpdatePhotoMissingItemLeavesNoFile(t *testing.T) {
	env := setupTestServer(t)

	body, contentType := multipartBody(t, nil, "p.jpg", []byte("orphan"))
	req, _ := http.NewRequest(http.MethodPut, env.server.URL+"/inventory/42/photo", body)
	req.Header.Set("Content-Type", contentType)
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	entries, _ := os.ReadDir(env.cacheDir)
	if len(entries) != 0 {
		t.Errorf("expected no files after rejected upload, found %d", len(entries))
	}
}

func TestGetPhotoNotFound(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	// Item without a photo.
	env.repo.Create(ctx, "No Photo", "")
	resp, _ := http.Get(env.server.URL + "/inventory/1/photo")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for item without photo, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Stale reference: file removed behind the store's back.
	item, _ := env.repo.Create(ctx, "Stale", "")
	path, _ := env.photos.Save(item.ID, bytes.NewReader([]byte("x")), "s.jpg")
	env.repo.SetPhotoPath(ctx, item.ID, path)
	os.Remove(path)

	resp, _ = http.Get(env.server.URL + "/inventory/2/photo")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for stale photo reference, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// The item itself must still be readable, with a null photo link.
	resp, _ = http.Get(env.server.URL + "/inventory/2")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for item with stale photo, got %d", resp.StatusCode)
	}
	var got struct {
		Photo *string `json:"photo"`
	}
	decodeBody(t, resp, &got)
	if got.Photo != nil {
		t.Errorf("expected null photo for stale reference, got %v", *got.Photo)
	}

	// Missing item entirely.
	resp, _ = http.Get(env.server.URL + "/inventory/99/photo")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for missing item, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestGetThumbnail(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	// A real decodable image, larger than the thumbnail bound.
	img := image.NewRGBA(image.Rect(0, 0, 512, 512))
	for x := 0; x < 512; x++ {
		for y := 0; y < 512; y++ {
			img.Set(x, y, color.RGBA{0, 128, 0, 255})
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)

	item, _ := env.repo.Create(ctx, "Poster", "")
	path, _ := env.photos.Save(item.ID, &buf, "poster.png")
	env.repo.SetPhotoPath(ctx, item.ID, path)

	resp, err := http.Get(env.server.URL + "/inventory/1/photo/thumb")
	if err != nil {
		t.Fatalf("get thumbnail: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", ct)
	}

	thumb, _, err := image.Decode(resp.Body)
	if err != nil {
		t.Fatalf("decoding thumbnail: %v", err)
	}
	if thumb.Bounds().Dx() > 256 || thumb.Bounds().Dy() > 256 {
		t.Errorf("thumbnail too large: %v", thumb.Bounds())
	}
}

func TestInvalidIDFormats(t *testing.T) {
	env := setupTestServer(t)

	for _, path := range []string{"/inventory/abc", "/inventory/0", "/inventory/-1"} {
		resp, _ := http.Get(env.server.URL + path)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("GET %s: expected 400, got %d", path, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := setupTestServer(t)

	resp := doJSON(t, http.MethodDelete, env.server.URL+"/inventory", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, _ = http.Get(env.server.URL + "/register")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET /register, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
