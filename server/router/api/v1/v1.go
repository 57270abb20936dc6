// Package v1 exposes the REST API: user upsert and lookup, match finding and
// status transitions, and barter cycle discovery.
package v1

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/skillswap/internal/profile"
	"github.com/hrygo/skillswap/matching"
	"github.com/hrygo/skillswap/store"
)

// Matcher runs the matching pipeline for one seeker.
type Matcher interface {
	FindMatchesForUser(ctx context.Context, userID string, topK int, useLLM bool) ([]*store.Match, error)
}

// CycleDetector searches for three-party barter cycles.
type CycleDetector interface {
	DetectThreeWayCycles(ctx context.Context, userID string) ([]*matching.BarterCycle, error)
}

type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store

	// Matcher is nil when no embedding provider could be configured; the
	// match endpoints answer 503 in that case.
	Matcher Matcher
	Cycles  CycleDetector
}

func NewAPIV1Service(profile *profile.Profile, store *store.Store, matcher Matcher, cycles CycleDetector) *APIV1Service {
	return &APIV1Service{
		Profile: profile,
		Store:   store,
		Matcher: matcher,
		Cycles:  cycles,
	}
}

// RegisterRoutes mounts the API on the given group.
func (s *APIV1Service) RegisterRoutes(g *echo.Group) {
	g.POST("/users", s.UpsertUser)
	g.GET("/users/:id", s.GetUser)
	g.GET("/users/:id/matches", s.GetUserMatches)
	g.GET("/users/:id/barter/cycles", s.GetBarterCycles)
	g.GET("/matches", s.ListMatches)
	g.POST("/matches/:id/status", s.UpdateMatchStatus)
}
