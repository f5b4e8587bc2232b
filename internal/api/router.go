package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	mw "github.com/kiranshivaraju/artscan/internal/api/middleware"
	"github.com/kiranshivaraju/artscan/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
// Nil handlers answer 501.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	AllowedOrigins  []string
	RequestObserver mw.RequestObserver
	MetricsHandler  http.Handler

	HealthHandler http.HandlerFunc
	MediaHandler  http.HandlerFunc

	AnalyzeHandler    http.HandlerFunc
	TaskStatusHandler http.HandlerFunc

	CreateAnalysis  http.HandlerFunc
	ListAnalyses    http.HandlerFunc
	GetAnalysis     http.HandlerFunc
	SearchAnalyses  http.HandlerFunc
	UpdateAnalysis  http.HandlerFunc
	DeleteAnalysis  http.HandlerFunc
	DeriveTags      http.HandlerFunc
	TagVocabulary   http.HandlerFunc
	Encyclopedia    http.HandlerFunc
	CreateNarration http.HandlerFunc
	StopNarration   http.HandlerFunc
	NarrationQuota  http.HandlerFunc
	NarrationVoices http.HandlerFunc

	LiveKitToken      http.HandlerFunc
	LiveKitAgentToken http.HandlerFunc
	LiveKitRoomName   http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(mw.Observe(deps.RequestObserver))
	r.Use(mw.Recovery)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:         300,
	}))

	// Public
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	if deps.MediaHandler != nil {
		r.Get("/media/*", deps.MediaHandler)
	}

	// Protected routes
	r.Group(func(r chi.Router) {
		if deps.Auth != nil {
			r.Use(deps.Auth.Authenticate)
		}
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}

		r.Post("/api/v1/analyze", orNotImplemented(deps.AnalyzeHandler))
		r.Get("/api/v1/music/tasks/{taskID}", orNotImplemented(deps.TaskStatusHandler))

		r.Route("/api/v1/analyses", func(r chi.Router) {
			r.Post("/", orNotImplemented(deps.CreateAnalysis))
			r.Get("/", orNotImplemented(deps.ListAnalyses))
			r.Get("/search/{name}", orNotImplemented(deps.SearchAnalyses))
			r.Get("/{id}", orNotImplemented(deps.GetAnalysis))
			r.Put("/{id}", orNotImplemented(deps.UpdateAnalysis))
			r.Delete("/{id}", orNotImplemented(deps.DeleteAnalysis))
		})

		r.Post("/api/v1/tags", orNotImplemented(deps.DeriveTags))
		r.Get("/api/v1/tags/vocabulary", orNotImplemented(deps.TagVocabulary))
		r.Get("/api/v1/encyclopedia", orNotImplemented(deps.Encyclopedia))

		r.Route("/api/v1/narrations", func(r chi.Router) {
			r.Post("/", orNotImplemented(deps.CreateNarration))
			r.Get("/quota", orNotImplemented(deps.NarrationQuota))
			r.Get("/voices", orNotImplemented(deps.NarrationVoices))
			r.Delete("/{sessionID}", orNotImplemented(deps.StopNarration))
		})

		r.Post("/api/v1/livekit/token", orNotImplemented(deps.LiveKitToken))
		r.Post("/api/v1/livekit/agent-token", orNotImplemented(deps.LiveKitAgentToken))
		r.Post("/api/v1/livekit/rooms", orNotImplemented(deps.LiveKitRoomName))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
