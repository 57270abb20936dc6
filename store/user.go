package store

import (
	"context"
)

// Proficiency is the ordered 4-level skill proficiency scale.
type Proficiency string

const (
	ProficiencyBeginner     Proficiency = "beginner"
	ProficiencyIntermediate Proficiency = "intermediate"
	ProficiencyAdvanced     Proficiency = "advanced"
	ProficiencyExpert       Proficiency = "expert"
)

var proficiencyRank = map[Proficiency]int{
	ProficiencyBeginner:     0,
	ProficiencyIntermediate: 1,
	ProficiencyAdvanced:     2,
	ProficiencyExpert:       3,
}

// Rank returns the numeric position on the scale. Unknown or empty
// proficiency ranks as beginner.
func (p Proficiency) Rank() int {
	return proficiencyRank[p]
}

// Gap returns helper − seeker on the proficiency scale. A helper is
// sufficiently proficient iff the gap is >= 0.
func Gap(helper, seeker Proficiency) int {
	return helper.Rank() - seeker.Rank()
}

// Skill describes one skill a user offers or needs. Immutable value.
type Skill struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Category    string      `json:"category,omitempty"`
	Proficiency Proficiency `json:"proficiency_level,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
}

// EmbeddingText is the canonical text embedded for a skill or need:
// the name followed by the free-form description.
func (s Skill) EmbeddingText() string {
	return s.Name + ". " + s.Description
}

// User represents a member of the skill exchange.
type User struct {
	ID            string
	Username      string
	SkillsOffered []Skill
	SkillsNeeded  []Skill
	IsActive      bool
	CreatedTs     int64
	UpdatedTs     int64
}

// FindUser is the find condition for users.
type FindUser struct {
	ID         *string
	IDs        []string
	OnlyActive bool
	ExcludeID  string
	Limit      int
}

// GetUserByID returns the user with the given id, or nil if not found.
func (s *Store) GetUserByID(ctx context.Context, id string) (*User, error) {
	list, err := s.driver.ListUsers(ctx, &FindUser{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// ListActiveUsers returns up to limit active users, optionally excluding one id.
func (s *Store) ListActiveUsers(ctx context.Context, limit int, excludeID string) ([]*User, error) {
	return s.driver.ListUsers(ctx, &FindUser{
		OnlyActive: true,
		ExcludeID:  excludeID,
		Limit:      limit,
	})
}

// GetUsersByIDs returns the users matching the given ids. Missing ids are
// silently absent from the result.
func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) ([]*User, error) {
	if len(ids) == 0 {
		return []*User{}, nil
	}
	return s.driver.ListUsers(ctx, &FindUser{IDs: ids})
}

// UpsertUser inserts or updates a user and their declared skills.
func (s *Store) UpsertUser(ctx context.Context, user *User) (*User, error) {
	return s.driver.UpsertUser(ctx, user)
}
