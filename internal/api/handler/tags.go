package handler

import (
	"encoding/json"
	"net/http"

	"github.com/kiranshivaraju/artscan/internal/api/response"
	"github.com/kiranshivaraju/artscan/internal/tags"
	"github.com/kiranshivaraju/artscan/pkg/models"
)

// DeriveTags handles POST /api/v1/tags.
func DeriveTags(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body", nil)
		return
	}
	mode, err := models.ParseMode(req.Mode)
	if err != nil {
		response.BadRequest(w, err.Error(), nil)
		return
	}
	response.JSON(w, map[string]any{
		"mode": mode,
		"tags": tags.Derive(req.Text, mode),
	})
}

// TagVocabulary handles GET /api/v1/tags/vocabulary?mode=.
func TagVocabulary(w http.ResponseWriter, r *http.Request) {
	mode, err := models.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		response.BadRequest(w, err.Error(), nil)
		return
	}
	response.JSON(w, map[string]any{
		"mode":       mode,
		"vocabulary": tags.Vocabulary(mode),
		"defaults":   tags.Defaults(mode),
	})
}
