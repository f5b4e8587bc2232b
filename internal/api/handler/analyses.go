package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/artscan/internal/api/response"
	"github.com/kiranshivaraju/artscan/internal/store"
	"github.com/kiranshivaraju/artscan/pkg/models"
)

// Invalidator drops cached lookups for a record. cache.Records implements it.
type Invalidator interface {
	Invalidate(ctx context.Context, a *models.ImageAnalysis) error
}

// Analyses serves the image analysis CRUD endpoints.
type Analyses struct {
	store store.Store
	cache Invalidator
}

// NewAnalyses creates the CRUD handlers. cache may be nil.
func NewAnalyses(s store.Store, cache Invalidator) *Analyses {
	return &Analyses{store: s, cache: cache}
}

type analysisBody struct {
	ImageName    *string                  `json:"image_name"`
	AnalysisType *string                  `json:"analysis_type"`
	Descriptions []string                 `json:"descriptions"`
	Metadata     *models.AnalysisMetadata `json:"metadata"`
}

// Create handles POST /api/v1/analyses.
func (h *Analyses) Create(w http.ResponseWriter, r *http.Request) {
	var body analysisBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.BadRequest(w, "Invalid JSON body", nil)
		return
	}
	if body.ImageName == nil || strings.TrimSpace(*body.ImageName) == "" {
		response.BadRequest(w, "image_name is required", nil)
		return
	}
	if body.AnalysisType == nil {
		response.BadRequest(w, "analysis_type is required", nil)
		return
	}
	if _, err := models.ParseMode(*body.AnalysisType); err != nil {
		response.BadRequest(w, "analysis_type: "+err.Error(), nil)
		return
	}

	now := time.Now().UTC()
	a := &models.ImageAnalysis{
		ID:           uuid.New(),
		ImageName:    strings.TrimSpace(*body.ImageName),
		AnalysisType: *body.AnalysisType,
		Descriptions: body.Descriptions,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if a.Descriptions == nil {
		a.Descriptions = []string{}
	}
	if body.Metadata != nil {
		a.Metadata = *body.Metadata
	}

	if err := h.store.CreateAnalysis(r.Context(), a); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			response.Error(w, http.StatusConflict, "CONFLICT", "Analysis already exists", nil)
			return
		}
		slog.Error("create analysis failed", "error", err)
		response.Internal(w, "Failed to create analysis")
		return
	}
	response.Created(w, a)
}

// List handles GET /api/v1/analyses?analysis_type=&limit=.
func (h *Analyses) List(w http.ResponseWriter, r *http.Request) {
	filter := store.AnalysisFilter{AnalysisType: r.URL.Query().Get("analysis_type")}
	if filter.AnalysisType != "" {
		if _, err := models.ParseMode(filter.AnalysisType); err != nil {
			response.BadRequest(w, "analysis_type: "+err.Error(), nil)
			return
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.BadRequest(w, "limit must be a positive integer", nil)
			return
		}
		filter.Limit = n
	}

	items, err := h.store.ListAnalyses(r.Context(), filter)
	if err != nil {
		slog.Error("list analyses failed", "error", err)
		response.Internal(w, "Failed to list analyses")
		return
	}
	response.List(w, items, response.ListMeta{Count: len(items), Limit: filter.Limit})
}

// Get handles GET /api/v1/analyses/{id}.
func (h *Analyses) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	a, err := h.store.GetAnalysis(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "get")
		return
	}
	response.JSON(w, a)
}

// Search handles GET /api/v1/analyses/search/{name}.
func (h *Analyses) Search(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" {
		response.BadRequest(w, "name is required", nil)
		return
	}
	items, err := h.store.SearchAnalysesByName(r.Context(), name)
	if err != nil {
		slog.Error("search analyses failed", "error", err)
		response.Internal(w, "Failed to search analyses")
		return
	}
	response.List(w, items, response.ListMeta{Count: len(items)})
}

// Update handles PUT /api/v1/analyses/{id}. Absent fields are unchanged.
func (h *Analyses) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var body analysisBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.BadRequest(w, "Invalid JSON body", nil)
		return
	}
	upd := store.AnalysisUpdate{
		ImageName:    body.ImageName,
		AnalysisType: body.AnalysisType,
		Descriptions: body.Descriptions,
		Metadata:     body.Metadata,
	}
	if upd.Empty() {
		response.BadRequest(w, "at least one field must be provided", nil)
		return
	}
	if upd.ImageName != nil && strings.TrimSpace(*upd.ImageName) == "" {
		response.BadRequest(w, "image_name must not be empty", nil)
		return
	}
	if upd.AnalysisType != nil {
		if _, err := models.ParseMode(*upd.AnalysisType); err != nil {
			response.BadRequest(w, "analysis_type: "+err.Error(), nil)
			return
		}
	}

	before, err := h.store.GetAnalysis(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "update")
		return
	}
	after, err := h.store.UpdateAnalysis(r.Context(), id, upd)
	if err != nil {
		writeStoreError(w, err, "update")
		return
	}
	h.invalidate(r.Context(), before, after)
	response.JSON(w, after)
}

// Delete handles DELETE /api/v1/analyses/{id}.
func (h *Analyses) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	deleted, err := h.store.DeleteAnalysis(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "delete")
		return
	}
	h.invalidate(r.Context(), deleted)
	response.NoContent(w)
}

func (h *Analyses) invalidate(ctx context.Context, records ...*models.ImageAnalysis) {
	if h.cache == nil {
		return
	}
	for _, a := range records {
		if err := h.cache.Invalidate(ctx, a); err != nil {
			slog.Warn("cache invalidation failed", "id", a.ID, "error", err)
		}
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "id must be a valid UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

func writeStoreError(w http.ResponseWriter, err error, op string) {
	if errors.Is(err, store.ErrNotFound) {
		response.NotFound(w, "Analysis not found")
		return
	}
	slog.Error(op+" analysis failed", "error", err)
	response.Internal(w, "Failed to "+op+" analysis")
}
