package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kiranshivaraju/artscan/internal/ai"
	"github.com/kiranshivaraju/artscan/internal/analysis"
	"github.com/kiranshivaraju/artscan/internal/api/response"
	"github.com/kiranshivaraju/artscan/pkg/models"
)

// Analyzer defines the interface the analyze handler depends on.
type Analyzer interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error)
}

// NewAnalyzeHandler returns an http.HandlerFunc for POST /api/v1/analyze.
// The request runs to completion, including music generation.
func NewAnalyzeHandler(svc Analyzer, images *ImageLoader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, MaxImageBytes*2)

		var req struct {
			Mode string `json:"mode"`
			ImageInput
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

		identity, image, fetch, err := images.Resolve(req.ImageInput)
		if err != nil {
			writeImageError(w, err)
			return
		}

		result, err := svc.Analyze(r.Context(), models.AnalysisRequest{
			ImageIdentity: identity,
			Mode:          mode,
			Image:         image,
			FetchImage:    fetch,
		})
		if err != nil {
			writeAnalysisError(w, err)
			return
		}

		response.JSON(w, result)
	}
}

func writeImageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrImageTooLarge):
		response.Error(w, http.StatusRequestEntityTooLarge, "IMAGE_TOO_LARGE", err.Error(), nil)
	case errors.Is(err, ErrImageFetch):
		response.Error(w, http.StatusBadGateway, "IMAGE_FETCH_FAILED", err.Error(), nil)
	default:
		response.BadRequest(w, err.Error(), nil)
	}
}

func isImageError(err error) bool {
	return errors.Is(err, ErrImageFetch) || errors.Is(err, ErrImageTooLarge) ||
		errors.Is(err, ErrNotAnImage) || errors.Is(err, ErrNoImage)
}

func writeAnalysisError(w http.ResponseWriter, err error) {
	if isImageError(err) {
		writeImageError(w, err)
		return
	}
	if errors.Is(err, analysis.ErrInvalidMode) {
		response.BadRequest(w, err.Error(), nil)
		return
	}

	details := map[string]string{}
	var failed *analysis.AnalysisFailedError
	if errors.As(err, &failed) {
		details["mode"] = string(failed.Mode)
	}
	var step *ai.StepError
	if errors.As(err, &step) {
		details["step"] = step.Step
	}

	switch {
	case errors.Is(err, ai.ErrInferenceTimeout):
		response.Error(w, http.StatusGatewayTimeout, "AI_TIMEOUT",
			"The vision provider timed out", details)
	case errors.Is(err, ai.ErrProviderUnavailable):
		response.Error(w, http.StatusBadGateway, "AI_PROVIDER_UNAVAILABLE",
			"The vision provider is not available", details)
	case errors.Is(err, ai.ErrProviderRejected), errors.Is(err, ai.ErrInvalidResponse):
		response.Error(w, http.StatusBadGateway, "ANALYSIS_FAILED",
			"The vision provider could not analyze the image", details)
	case errors.Is(err, context.Canceled):
		response.Error(w, http.StatusServiceUnavailable, "CANCELLED", "Request cancelled", nil)
	default:
		response.Internal(w, "Analysis failed")
	}
}
