package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/skillswap/matching"
	"github.com/hrygo/skillswap/store"
)

func TestParseTopK(t *testing.T) {
	topK, err := parseTopK("")
	require.NoError(t, err)
	assert.Equal(t, 0, topK)

	topK, err = parseTopK("5")
	require.NoError(t, err)
	assert.Equal(t, 5, topK)

	// Capped, not rejected.
	topK, err = parseTopK("500")
	require.NoError(t, err)
	assert.Equal(t, maxTopK, topK)

	_, err = parseTopK("0")
	assert.Error(t, err)
	_, err = parseTopK("-3")
	assert.Error(t, err)
	_, err = parseTopK("many")
	assert.Error(t, err)
}

func TestParseBoolParam(t *testing.T) {
	v, err := parseBoolParam("", true)
	require.NoError(t, err)
	assert.True(t, v)

	v, err = parseBoolParam("false", true)
	require.NoError(t, err)
	assert.False(t, v)

	_, err = parseBoolParam("maybe", true)
	assert.Error(t, err)
}

type stubDetector struct {
	cycles []*matching.BarterCycle
}

func (d *stubDetector) DetectThreeWayCycles(_ context.Context, _ string) ([]*matching.BarterCycle, error) {
	return d.cycles, nil
}

func TestGetBarterCycles(t *testing.T) {
	svc := &APIV1Service{
		Cycles: &stubDetector{cycles: []*matching.BarterCycle{
			{FairnessScore: 0.85, Explanation: "anna helps cleo, ben helps anna, cleo helps ben"},
		}},
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/anna/barter/cycles", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("anna")

	require.NoError(t, svc.GetBarterCycles(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp cycleListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Cycles, 1)
	assert.Equal(t, float32(0.85), resp.Cycles[0].FairnessScore)
}

type stubMatcher struct {
	matches []*store.Match
}

func (m *stubMatcher) FindMatchesForUser(_ context.Context, _ string, _ int, _ bool) ([]*store.Match, error) {
	return m.matches, nil
}

func TestGetUserMatches(t *testing.T) {
	svc := &APIV1Service{
		Matcher: &stubMatcher{matches: []*store.Match{
			{SeekerID: "seeker", HelperID: "alice", SkillOffered: "React", SkillNeeded: "React", MatchScore: 0.9, Confidence: 0.7, Status: store.MatchStatusPending},
		}},
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/seeker/matches?top_k=5&use_llm=false", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("seeker")

	require.NoError(t, svc.GetUserMatches(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp matchListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "alice", resp.Matches[0].HelperID)
	assert.Equal(t, "pending", resp.Matches[0].Status)
}

func TestGetUserMatches_NoMatcherConfigured(t *testing.T) {
	svc := &APIV1Service{}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/seeker/matches", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("seeker")

	err := svc.GetUserMatches(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.Code)
}

func TestGetUserMatches_InvalidParams(t *testing.T) {
	svc := &APIV1Service{Matcher: &stubMatcher{}}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/seeker/matches?top_k=nope", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := svc.GetUserMatches(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}
