package matching

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/hrygo/skillswap/store"
)

// placeholderFairness is reported for every cycle until fairness is actually
// computed. TODO: derive fairness from proficiency gap symmetry across the
// three exchange legs.
const placeholderFairness float32 = 0.85

// CycleParticipant is one member of a barter cycle with the skill they give
// and the need that gets covered for them.
type CycleParticipant struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Gives    string `json:"gives"`
	Receives string `json:"receives"`
}

// Exchange is one directed leg of a cycle: from teaches to.
type Exchange struct {
	FromUserID string `json:"from_user_id"`
	ToUserID   string `json:"to_user_id"`
	Skill      string `json:"skill"`
}

// BarterCycle is a closed three-party exchange in which every participant
// both gives and receives a skill.
type BarterCycle struct {
	Participants  []CycleParticipant `json:"participants"`
	Exchanges     []Exchange         `json:"exchanges"`
	FairnessScore float32            `json:"fairness_score"`
	Explanation   string             `json:"explanation"`
}

// BarterDetector searches the active population for three-party cycles
// anchored at one user. Compatibility between a need and an offered skill is
// the lexical test shared with reciprocity checks.
type BarterDetector struct {
	directory       Directory
	keywords        SynonymTable
	populationLimit int
}

// NewBarterDetector creates a detector. keywords may be nil to use the
// defaults; populationLimit <= 0 uses the standard candidate cap.
func NewBarterDetector(directory Directory, keywords SynonymTable, populationLimit int) *BarterDetector {
	if keywords == nil {
		keywords = DefaultSynonymTable()
	}
	if populationLimit <= 0 {
		populationLimit = 200
	}
	return &BarterDetector{
		directory:       directory,
		keywords:        keywords,
		populationLimit: populationLimit,
	}
}

// DetectThreeWayCycles finds cycles of the shape: B helps A with one of A's
// needs, C helps B with one of B's needs, and A closes the loop by helping C
// with one of C's needs. The anchor user must both need and offer something;
// otherwise no cycle through them can close. Every qualifying (need, B, C)
// combination yields its own cycle; overlapping cycles are not deduplicated.
func (d *BarterDetector) DetectThreeWayCycles(ctx context.Context, userID string) ([]*BarterCycle, error) {
	anchor, err := d.directory.GetUserByID(ctx, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load user %s", userID)
	}
	if anchor == nil || len(anchor.SkillsNeeded) == 0 || len(anchor.SkillsOffered) == 0 {
		return []*BarterCycle{}, nil
	}

	population, err := d.directory.ListActiveUsers(ctx, d.populationLimit, anchor.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list barter population")
	}

	var cycles []*BarterCycle
	for _, anchorNeed := range anchor.SkillsNeeded {
		for _, b := range population {
			bSkill, ok := d.matchingSkill(b, anchorNeed)
			if !ok {
				continue
			}

			for _, bNeed := range b.SkillsNeeded {
				for _, c := range population {
					if c.ID == b.ID || c.ID == anchor.ID {
						continue
					}
					cSkill, ok := d.matchingSkill(c, bNeed)
					if !ok {
						continue
					}

					// Close the loop: the anchor must cover one of C's needs.
					for _, cNeed := range c.SkillsNeeded {
						aSkill, ok := d.matchingSkill(anchor, cNeed)
						if !ok {
							continue
						}
						cycles = append(cycles, d.buildCycle(
							anchor, b, c,
							anchorNeed, bNeed, cNeed,
							aSkill, bSkill, cSkill,
						))
						break
					}
				}
			}
		}
	}

	slog.Debug("barter: cycle search complete", "anchor", userID, "population", len(population), "cycles", len(cycles))
	return cycles, nil
}

// matchingSkill returns the first offered skill of the user compatible with
// the need.
func (d *BarterDetector) matchingSkill(user *store.User, need store.Skill) (store.Skill, bool) {
	for _, skill := range user.SkillsOffered {
		if d.keywords.Compatible(skill.Name, need.Name) {
			return skill, true
		}
	}
	return store.Skill{}, false
}

func (d *BarterDetector) buildCycle(a, b, c *store.User, aNeed, bNeed, cNeed store.Skill, aSkill, bSkill, cSkill store.Skill) *BarterCycle {
	return &BarterCycle{
		Participants: []CycleParticipant{
			{UserID: a.ID, Username: a.Username, Gives: aSkill.Name, Receives: aNeed.Name},
			{UserID: b.ID, Username: b.Username, Gives: bSkill.Name, Receives: bNeed.Name},
			{UserID: c.ID, Username: c.Username, Gives: cSkill.Name, Receives: cNeed.Name},
		},
		Exchanges: []Exchange{
			{FromUserID: a.ID, ToUserID: c.ID, Skill: aSkill.Name},
			{FromUserID: b.ID, ToUserID: a.ID, Skill: bSkill.Name},
			{FromUserID: c.ID, ToUserID: b.ID, Skill: cSkill.Name},
		},
		FairnessScore: placeholderFairness,
		Explanation: fmt.Sprintf("%s helps %s, %s helps %s, %s helps %s",
			a.Username, c.Username, b.Username, a.Username, c.Username, b.Username),
	}
}
