package api

import (
	"io/fs"
	"net/http"

	"github.com/mkravets/inventar/internal/photo"
	"github.com/mkravets/inventar/internal/store"
)

// NewRouter creates the router with all endpoints registered. pages is
// the embedded static HTML filesystem; pass nil to skip the form pages.
func NewRouter(repo store.Repository, photos *photo.Store, pages fs.FS) http.Handler {
	mux := http.NewServeMux()

	h := &InventoryHandler{Repo: repo, Photos: photos}

	mux.HandleFunc("GET /inventory", h.List)
	mux.HandleFunc("GET /inventory/{id}", h.Get)
	mux.HandleFunc("PUT /inventory/{id}", h.Update)
	mux.HandleFunc("DELETE /inventory/{id}", h.Delete)
	mux.HandleFunc("GET /inventory/{id}/photo", h.GetPhoto)
	mux.HandleFunc("PUT /inventory/{id}/photo", h.UpdatePhoto)
	mux.HandleFunc("GET /inventory/{id}/photo/thumb", h.GetThumbnail)
	mux.HandleFunc("POST /register", h.Register)
	mux.HandleFunc("GET /search", h.Search)

	if pages != nil {
		mux.HandleFunc("GET /{$}", servePage(pages, "index.html"))
		mux.HandleFunc("GET /register-form", servePage(pages, "register.html"))
		mux.HandleFunc("GET /search-form", servePage(pages, "search.html"))
	}

	return RecoverMiddleware(mux)
}

// servePage serves a single embedded HTML page.
func servePage(pages fs.FS, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := fs.ReadFile(pages, name)
		if err != nil {
			textError(w, http.StatusInternalServerError, "server error")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(data)
	}
}
