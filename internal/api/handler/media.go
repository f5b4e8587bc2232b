package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/artscan/internal/api/response"
	"github.com/kiranshivaraju/artscan/internal/blob"
)

// MediaReader reads objects kept in process. blob.MemoryStore implements it.
type MediaReader interface {
	Get(key string) (blob.Object, bool)
}

// NewMediaHandler serves GET /media/* when no object storage is configured.
func NewMediaHandler(m MediaReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		obj, ok := m.Get(chi.URLParam(r, "*"))
		if !ok {
			response.NotFound(w, "Media not found")
			return
		}
		w.Header().Set("Content-Type", obj.ContentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
		w.WriteHeader(http.StatusOK)
		w.Write(obj.Data)
	}
}
