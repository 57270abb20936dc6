package v1

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/skillswap/matching"
	"github.com/hrygo/skillswap/store"
)

const maxTopK = 50

var errInvalidTopK = errors.New("top_k must be a positive integer")

type matchResponse struct {
	ID             string         `json:"id,omitempty"`
	SeekerID       string         `json:"seeker_id"`
	HelperID       string         `json:"helper_id"`
	HelperUsername string         `json:"helper_username,omitempty"`
	SkillOffered   string         `json:"skill_offered"`
	SkillNeeded    string         `json:"skill_needed"`
	MatchScore     float32        `json:"match_score"`
	Confidence     float32        `json:"confidence"`
	Explanation    string         `json:"explanation"`
	IsReciprocal   bool           `json:"is_reciprocal"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Status         string         `json:"status"`
	CreatedTs      int64          `json:"created_ts"`
}

type matchListResponse struct {
	Matches []*matchResponse `json:"matches"`
	Count   int              `json:"count"`
}

func convertMatch(match *store.Match) *matchResponse {
	return &matchResponse{
		ID:           match.ID,
		SeekerID:     match.SeekerID,
		HelperID:     match.HelperID,
		SkillOffered: match.SkillOffered,
		SkillNeeded:  match.SkillNeeded,
		MatchScore:   match.MatchScore,
		Confidence:   match.Confidence,
		Explanation:  match.Explanation,
		IsReciprocal: match.IsReciprocal,
		Metadata:     match.Metadata,
		Status:       string(match.Status),
		CreatedTs:    match.CreatedTs,
	}
}

// usernames may be nil; matches without a resolved helper keep the field empty.
func convertMatchList(matches []*store.Match, usernames map[string]string) *matchListResponse {
	list := make([]*matchResponse, 0, len(matches))
	for _, match := range matches {
		resp := convertMatch(match)
		resp.HelperUsername = usernames[match.HelperID]
		list = append(list, resp)
	}
	return &matchListResponse{Matches: list, Count: len(list)}
}

// GetUserMatches runs the matching pipeline for the user and returns ranked
// matches. Query params: top_k (1..50, default configured), use_llm
// (default true).
func (s *APIV1Service) GetUserMatches(c echo.Context) error {
	ctx := c.Request().Context()

	if s.Matcher == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "matching service unavailable: no embedding provider configured")
	}

	topK, err := parseTopK(c.QueryParam("top_k"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	useLLM, err := parseBoolParam(c.QueryParam("use_llm"), true)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "use_llm must be a boolean")
	}

	matches, err := s.Matcher.FindMatchesForUser(ctx, c.Param("id"), topK, useLLM)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to find matches").SetInternal(err)
	}

	s.persistMatches(ctx, matches)
	return c.JSON(http.StatusOK, convertMatchList(matches, s.helperUsernames(ctx, matches)))
}

// helperUsernames batch-resolves helper display names for the response.
// Best-effort: a failed lookup leaves the names out.
func (s *APIV1Service) helperUsernames(ctx context.Context, matches []*store.Match) map[string]string {
	if s.Store == nil || len(matches) == 0 {
		return nil
	}

	seen := map[string]bool{}
	ids := make([]string, 0, len(matches))
	for _, match := range matches {
		if !seen[match.HelperID] {
			seen[match.HelperID] = true
			ids = append(ids, match.HelperID)
		}
	}

	users, err := s.Store.GetUsersByIDs(ctx, ids)
	if err != nil {
		slog.Warn("failed to resolve helper usernames", "error", err)
		return nil
	}
	names := make(map[string]string, len(users))
	for _, user := range users {
		names[user.ID] = user.Username
	}
	return names
}

// persistMatches saves freshly computed matches, skipping pairs that already
// carry a non-rejected match. Persistence failures are logged, not surfaced:
// the computed matches are still worth returning.
func (s *APIV1Service) persistMatches(ctx context.Context, matches []*store.Match) {
	if s.Store == nil {
		return
	}
	for _, match := range matches {
		existing, err := s.Store.GetExistingMatch(ctx, match.SeekerID, match.HelperID)
		if err != nil {
			slog.Warn("failed to look up existing match", "seeker", match.SeekerID, "helper", match.HelperID, "error", err)
			continue
		}
		if existing != nil {
			match.ID = existing.ID
			match.Status = existing.Status
			continue
		}
		if _, err := s.Store.CreateMatch(ctx, match); err != nil {
			slog.Warn("failed to persist match", "seeker", match.SeekerID, "helper", match.HelperID, "error", err)
		}
	}
}

// ListMatches lists persisted matches. Query params: seeker_id, helper_id,
// status, limit.
func (s *APIV1Service) ListMatches(c echo.Context) error {
	ctx := c.Request().Context()

	find := &store.FindMatch{}
	if v := c.QueryParam("seeker_id"); v != "" {
		find.SeekerID = &v
	}
	if v := c.QueryParam("helper_id"); v != "" {
		find.HelperID = &v
	}
	if v := c.QueryParam("status"); v != "" {
		status := store.MatchStatus(v)
		find.Status = &status
	}
	if v := c.QueryParam("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		find.Limit = limit
	}

	matches, err := s.Store.ListMatches(ctx, find)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list matches").SetInternal(err)
	}
	return c.JSON(http.StatusOK, convertMatchList(matches, s.helperUsernames(ctx, matches)))
}

type updateMatchStatusRequest struct {
	Status string `json:"status"`
}

// UpdateMatchStatus transitions a persisted match between lifecycle states.
func (s *APIV1Service) UpdateMatchStatus(c echo.Context) error {
	ctx := c.Request().Context()

	var req updateMatchStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}
	if req.Status == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "status is required")
	}

	match, err := s.Store.UpdateMatchStatus(ctx, c.Param("id"), store.MatchStatus(req.Status))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	if match == nil {
		return echo.NewHTTPError(http.StatusNotFound, "match not found")
	}
	return c.JSON(http.StatusOK, convertMatch(match))
}

type cycleListResponse struct {
	Cycles []*matching.BarterCycle `json:"cycles"`
	Count  int                     `json:"count"`
}

// GetBarterCycles returns three-party barter cycles the user could join.
func (s *APIV1Service) GetBarterCycles(c echo.Context) error {
	ctx := c.Request().Context()

	cycles, err := s.Cycles.DetectThreeWayCycles(ctx, c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to detect barter cycles").SetInternal(err)
	}
	return c.JSON(http.StatusOK, &cycleListResponse{Cycles: cycles, Count: len(cycles)})
}

func parseTopK(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	topK, err := strconv.Atoi(raw)
	if err != nil || topK <= 0 {
		return 0, errInvalidTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}
	return topK, nil
}

func parseBoolParam(raw string, fallback bool) (bool, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseBool(raw)
}
