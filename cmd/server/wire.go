package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kiranshivaraju/artscan/internal/ai"
	"github.com/kiranshivaraju/artscan/internal/analysis"
	"github.com/kiranshivaraju/artscan/internal/api"
	"github.com/kiranshivaraju/artscan/internal/api/handler"
	mw "github.com/kiranshivaraju/artscan/internal/api/middleware"
	"github.com/kiranshivaraju/artscan/internal/blob"
	"github.com/kiranshivaraju/artscan/internal/cache"
	"github.com/kiranshivaraju/artscan/internal/config"
	"github.com/kiranshivaraju/artscan/internal/livekit"
	"github.com/kiranshivaraju/artscan/internal/metrics"
	"github.com/kiranshivaraju/artscan/internal/music"
	"github.com/kiranshivaraju/artscan/internal/playback"
	"github.com/kiranshivaraju/artscan/internal/prompts"
	"github.com/kiranshivaraju/artscan/internal/speech"
	"github.com/kiranshivaraju/artscan/internal/store"
	"github.com/kiranshivaraju/artscan/internal/wiki"
)

// buildDependencies wires every service on top of an open store and cache.
func buildDependencies(ctx context.Context, cfg *config.Config, st store.Store, c cache.Cache) (api.Dependencies, error) {
	m := metrics.New()
	catalog := prompts.Default()
	records := cache.NewRecords(c, cfg.Redis.RecordTTL)

	// Vision
	provider, err := ai.NewProvider(cfg.Vision)
	if err != nil {
		return api.Dependencies{}, fmt.Errorf("create vision provider: %w", err)
	}
	slog.Info("vision provider initialized", "provider", provider.Name(), "model", cfg.Vision.Model)
	extractor := ai.NewExtractor(provider, catalog, cfg.Vision.Timeout)

	// Music
	musicClient := music.NewHTTPClient(cfg.Music.BaseURL, cfg.Music.APIKey, cfg.Music.RequestTimeout)
	poller := music.NewPoller(musicClient,
		music.WithMaxAttempts(cfg.Music.MaxPollAttempts),
		music.WithInterval(cfg.Music.PollInterval),
		music.WithRecorder(cache.NewTaskRecorder(c, cfg.Music.StatusTTL)),
		music.WithObserver(m),
	)
	generator := music.NewGenerator(musicClient, poller, catalog, music.Settings{
		Model:       cfg.Music.Model,
		AudioWeight: cfg.Music.AudioWeight,
		CallbackURL: cfg.Music.CallbackURL,
	}, m)
	if cfg.Music.APIKey == "" {
		slog.Warn("MUSIC_API_KEY not set, background music will be skipped by the provider")
	}

	// Encyclopedia
	encyclopedia := wiki.NewClient(cfg.Wiki.Lang, cfg.Wiki.Timeout, cfg.Wiki.CacheSize, cfg.Wiki.CacheTTL)

	analyzer := analysis.NewAnalyzer(st, extractor, catalog,
		analysis.WithCache(records),
		analysis.WithEnricher(encyclopedia),
		analysis.WithMusic(generator),
		analysis.WithObserver(m),
	)

	// Media storage
	var (
		blobs blob.Store
		media *blob.MemoryStore
	)
	if cfg.Storage.Endpoint != "" {
		s, err := blob.NewMinIO(ctx, cfg.Storage.Endpoint, cfg.Storage.Region, cfg.Storage.Bucket,
			cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.UseSSL)
		if err != nil {
			return api.Dependencies{}, fmt.Errorf("connect object storage: %w", err)
		}
		blobs = s
		slog.Info("object storage connected", "endpoint", cfg.Storage.Endpoint, "bucket", cfg.Storage.Bucket)
	} else {
		media = blob.NewMemoryStore(strings.TrimRight(cfg.Server.PublicURL, "/") + "/media")
		blobs = media
		slog.Warn("STORAGE_ENDPOINT not set, narrations are kept in memory")
	}

	// Narration
	speechClient := speech.NewClient(cfg.Speech.BaseURL, cfg.Speech.APIKey, cfg.Speech.Model, cfg.Speech.Voice, cfg.Speech.Timeout)
	narrator := speech.NewNarrator(speechClient, blobs, playback.NewChannels(m))

	// Voice agent
	issuer := livekit.NewIssuer(cfg.LiveKit.APIKey, cfg.LiveKit.APISecret, cfg.LiveKit.TokenTTL)
	if !issuer.Configured() {
		slog.Warn("LiveKit credentials not set, token endpoints will answer 503")
	}

	auth := mw.NewAuth(cfg.Auth.APIKeyHashes)
	if !auth.Enabled() {
		slog.Warn("AUTH_API_KEY_HASHES not set, API is open and rate limited per client IP")
	}

	analyses := handler.NewAnalyses(st, records)
	narrations := handler.NewNarrations(narrator, speechClient)
	lk := handler.NewLiveKit(issuer, cfg.LiveKit.URL)

	deps := api.Dependencies{
		Auth:      auth,
		RateLimit: mw.NewRateLimit(c, cfg.Auth.RequestsPerMinute),

		AllowedOrigins:  cfg.Server.AllowedOrigins,
		RequestObserver: m,
		MetricsHandler:  m.Handler(),

		HealthHandler: handler.NewHealthHandler(st, c),

		AnalyzeHandler:    handler.NewAnalyzeHandler(analyzer, handler.NewImageLoader(cfg.Vision.Timeout)),
		TaskStatusHandler: handler.NewTaskStatusHandler(c),

		CreateAnalysis: analyses.Create,
		ListAnalyses:   analyses.List,
		GetAnalysis:    analyses.Get,
		SearchAnalyses: analyses.Search,
		UpdateAnalysis: analyses.Update,
		DeleteAnalysis: analyses.Delete,

		DeriveTags:    handler.DeriveTags,
		TagVocabulary: handler.TagVocabulary,
		Encyclopedia:  handler.NewEncyclopediaHandler(encyclopedia),

		CreateNarration: narrations.Create,
		StopNarration:   narrations.Stop,
		NarrationQuota:  narrations.Quota,
		NarrationVoices: narrations.Voices,

		LiveKitToken:      lk.Token,
		LiveKitAgentToken: lk.AgentToken,
		LiveKitRoomName:   lk.RoomName,
	}
	if media != nil {
		deps.MediaHandler = handler.NewMediaHandler(media)
	}
	return deps, nil
}
