// Package server wires the HTTP surface: echo routing, the matching pipeline
// construction, health and metrics endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/skillswap/ai"
	"github.com/hrygo/skillswap/ai/judge"
	"github.com/hrygo/skillswap/ai/metrics"
	"github.com/hrygo/skillswap/internal/profile"
	"github.com/hrygo/skillswap/matching"
	apiv1 "github.com/hrygo/skillswap/server/router/api/v1"
	"github.com/hrygo/skillswap/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	apiV1      *apiv1.APIV1Service
}

// NewServer builds the HTTP server and the matching pipeline behind it.
// All collaborators are constructed here and injected; nothing is global.
func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(requestLogger())

	m := metrics.New(nil)

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	matcher, detector := buildMatching(profile, store, m)

	apiV1 := apiv1.NewAPIV1Service(profile, store, matcher, detector)
	apiV1.RegisterRoutes(e.Group("/api/v1"))

	return &Server{
		Profile:    profile,
		Store:      store,
		echoServer: e,
		apiV1:      apiV1,
	}, nil
}

// buildMatching constructs the matching service and the barter detector from
// the profile. The detector has no provider dependency and always works; the
// matcher is nil when the embedding provider cannot be configured, which
// degrades the match endpoints to 503 instead of failing startup.
func buildMatching(p *profile.Profile, st *store.Store, m *metrics.Metrics) (*matching.Service, *matching.BarterDetector) {
	keywords := matching.DefaultSynonymTable()
	if p.KeywordTablePath != "" {
		loaded, err := matching.LoadSynonymTable(p.KeywordTablePath)
		if err != nil {
			slog.Warn("failed to load keyword table, using defaults", "path", p.KeywordTablePath, "error", err)
		} else {
			keywords = loaded
			slog.Info("keyword table loaded", "path", p.KeywordTablePath, "groups", len(loaded))
		}
	}

	detector := matching.NewBarterDetector(st, keywords, p.MatchCandidateLimit)

	aiConfig := ai.NewConfigFromProfile(p)
	if err := aiConfig.Validate(); err != nil {
		slog.Warn("matching disabled: embedding provider not configured", "error", err)
		return nil, detector
	}

	embeddingService, err := ai.NewEmbeddingService(&aiConfig.Embedding)
	if err != nil {
		slog.Warn("matching disabled: failed to initialize embedding service", "error", err)
		return nil, detector
	}
	slog.Info("embedding service initialized",
		"provider", aiConfig.Embedding.Provider, "model", aiConfig.Embedding.Model)

	var judgeService judge.Service
	if aiConfig.Enabled {
		judgeService, err = judge.NewService(&judge.Config{
			Provider:    aiConfig.Judge.Provider,
			Model:       aiConfig.Judge.Model,
			APIKey:      aiConfig.Judge.APIKey,
			BaseURL:     aiConfig.Judge.BaseURL,
			MaxTokens:   aiConfig.Judge.MaxTokens,
			Temperature: aiConfig.Judge.Temperature,
			Timeout:     aiConfig.Judge.Timeout,
		})
		if err != nil {
			slog.Warn("judge unavailable, matching runs embedding-only", "error", err)
			judgeService = nil
		} else {
			slog.Info("judge initialized",
				"provider", aiConfig.Judge.Provider, "model", aiConfig.Judge.Model)
		}
	}

	embedder := matching.NewEmbedder(st, embeddingService, m)
	matcher := matching.NewService(st, embedder, judgeService, keywords, m, matching.Options{
		TopK:           p.MatchTopK,
		MinSimilarity:  float32(p.MatchMinSimilarity),
		CandidateLimit: p.MatchCandidateLimit,
		JudgeParallel:  p.MatchJudgeParallel,
	})
	return matcher, detector
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogMethod: true,
		LogStatus: true,
		LogError:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				slog.Warn("http request", "method", v.Method, "uri", v.URI, "status", v.Status, "error", v.Error)
			} else {
				slog.Debug("http request", "method", v.Method, "uri", v.URI, "status", v.Status)
			}
			return nil
		},
	})
}

// Start begins serving. Blocks until the listener stops.
func (s *Server) Start(_ context.Context) error {
	return s.echoServer.Start(fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port))
}

// Shutdown drains in-flight requests and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
	slog.Info("server stopped")
}
