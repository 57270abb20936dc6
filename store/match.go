package store

import (
	"context"

	"github.com/pkg/errors"
)

// MatchStatus is the lifecycle state of a persisted match. Transitions are
// driven by user action through the API layer; the matching core only ever
// creates matches in the pending state.
type MatchStatus string

const (
	MatchStatusPending  MatchStatus = "pending"
	MatchStatusAccepted MatchStatus = "accepted"
	MatchStatusRejected MatchStatus = "rejected"
	MatchStatusExpired  MatchStatus = "expired"
)

// Match is one proposed pairing: a helper whose offered skill matches the
// seeker's need. MatchScore and Confidence are in [0, 1].
type Match struct {
	ID           string
	SeekerID     string
	HelperID     string
	SkillOffered string
	SkillNeeded  string
	MatchScore   float32
	Confidence   float32
	Explanation  string
	IsReciprocal bool
	Metadata     map[string]any
	Status       MatchStatus
	CreatedTs    int64
	UpdatedTs    int64
}

// FindMatch is the find condition for matches.
type FindMatch struct {
	ID       *string
	SeekerID *string
	HelperID *string
	Status   *MatchStatus
	Limit    int
}

// CreateMatch persists a match produced by the matching pipeline.
func (s *Store) CreateMatch(ctx context.Context, create *Match) (*Match, error) {
	if create.SeekerID == "" || create.HelperID == "" {
		return nil, errors.New("match requires seeker and helper ids")
	}
	if create.Status == "" {
		create.Status = MatchStatusPending
	}
	return s.driver.CreateMatch(ctx, create)
}

// GetExistingMatch returns a non-rejected match between the two users, or nil.
func (s *Store) GetExistingMatch(ctx context.Context, seekerID, helperID string) (*Match, error) {
	return s.driver.GetExistingMatch(ctx, seekerID, helperID)
}

// ListMatches lists matches by condition.
func (s *Store) ListMatches(ctx context.Context, find *FindMatch) ([]*Match, error) {
	return s.driver.ListMatches(ctx, find)
}

// UpdateMatchStatus transitions a match's status. Returns the updated match,
// or nil if the match does not exist.
func (s *Store) UpdateMatchStatus(ctx context.Context, matchID string, status MatchStatus) (*Match, error) {
	switch status {
	case MatchStatusPending, MatchStatusAccepted, MatchStatusRejected, MatchStatusExpired:
	default:
		return nil, errors.Errorf("invalid match status: %s", status)
	}
	return s.driver.UpdateMatchStatus(ctx, matchID, status)
}
