package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/artscan/internal/api/response"
	"github.com/kiranshivaraju/artscan/pkg/models"
)

// Encyclopedia defines the lookup the handler depends on.
type Encyclopedia interface {
	Lookup(ctx context.Context, title, artist string) (*models.Reference, bool)
}

// NewEncyclopediaHandler returns an http.HandlerFunc for
// GET /api/v1/encyclopedia?title=&artist=.
func NewEncyclopediaHandler(e Encyclopedia) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		title := strings.TrimSpace(r.URL.Query().Get("title"))
		if title == "" {
			response.BadRequest(w, "title is required", nil)
			return
		}
		ref, ok := e.Lookup(r.Context(), title, strings.TrimSpace(r.URL.Query().Get("artist")))
		if !ok {
			response.NotFound(w, "No encyclopedia entry found")
			return
		}
		response.JSON(w, ref)
	}
}
