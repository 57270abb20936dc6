package matching

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/skillswap/ai/judge"
	"github.com/hrygo/skillswap/ai/metrics"
	"github.com/hrygo/skillswap/ai/vector"
	"github.com/hrygo/skillswap/store"
)

// Directory is the user lookup surface the matching core depends on.
// *store.Store satisfies it.
type Directory interface {
	GetUserByID(ctx context.Context, id string) (*store.User, error)
	ListActiveUsers(ctx context.Context, limit int, excludeID string) ([]*store.User, error)
}

// Options tunes the matching pipeline. Zero values fall back to defaults.
type Options struct {
	// TopK is the default number of matches returned per request.
	TopK int
	// MinSimilarity is the cosine similarity floor for candidates.
	MinSimilarity float32
	// CandidateLimit caps how many active users one request considers.
	CandidateLimit int
	// JudgeParallel bounds concurrent judgment evaluations.
	JudgeParallel int
}

func (o Options) withDefaults() Options {
	if o.TopK <= 0 {
		o.TopK = 10
	}
	if o.MinSimilarity <= 0 {
		o.MinSimilarity = 0.4
	}
	if o.CandidateLimit <= 0 {
		o.CandidateLimit = 200
	}
	if o.JudgeParallel <= 0 {
		o.JudgeParallel = 4
	}
	return o
}

// Candidate is one (need, helper, offered skill) triple that cleared the
// similarity floor during retrieval.
type Candidate struct {
	Helper         *store.User
	Skill          store.Skill
	Need           store.Skill
	EmbeddingScore float32
}

// Service runs the matching pipeline for one seeker at a time: retrieval
// over cached embeddings, optional judgment re-ranking, and reciprocity
// annotation. All collaborators are injected.
type Service struct {
	directory Directory
	embedder  *Embedder
	judge     judge.Service
	keywords  SynonymTable
	metrics   *metrics.Metrics
	opts      Options
}

// NewService creates a matching Service. judgeSvc may be nil, in which case
// every request runs embedding-only. keywords may be nil to use the defaults.
func NewService(directory Directory, embedder *Embedder, judgeSvc judge.Service, keywords SynonymTable, m *metrics.Metrics, opts Options) *Service {
	if keywords == nil {
		keywords = DefaultSynonymTable()
	}
	return &Service{
		directory: directory,
		embedder:  embedder,
		judge:     judgeSvc,
		keywords:  keywords,
		metrics:   m,
		opts:      opts.withDefaults(),
	}
}

// FindMatchesForUser returns up to topK ranked matches for the seeker.
// topK <= 0 uses the configured default. With useLLM false (or no judgment
// service wired), results carry the raw embedding score and a fixed 0.7
// confidence, and the judgment provider is never called.
//
// Returned matches are unsaved and always pending; persistence is the
// caller's decision.
func (s *Service) FindMatchesForUser(ctx context.Context, userID string, topK int, useLLM bool) ([]*store.Match, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveMatchDuration(time.Since(start).Seconds())
	}()

	if topK <= 0 {
		topK = s.opts.TopK
	}

	seeker, err := s.directory.GetUserByID(ctx, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load seeker %s", userID)
	}
	if seeker == nil || len(seeker.SkillsNeeded) == 0 {
		return []*store.Match{}, nil
	}

	// Retrieval pool is twice the requested size so re-ranking has room to
	// promote and discard.
	candidates, err := s.retrieveCandidates(ctx, seeker, 2*topK)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []*store.Match{}, nil
	}

	var matches []*store.Match
	if useLLM && s.judge != nil {
		matches = s.rerankWithJudge(ctx, seeker, candidates, topK)
	} else {
		matches = s.convertCandidates(seeker, candidates, topK)
	}

	s.checkReciprocity(ctx, seeker, matches)

	slog.Debug("matching: request complete",
		"seeker", userID, "candidates", len(candidates), "matches", len(matches), "llm", useLLM && s.judge != nil)
	return matches, nil
}

// retrieveCandidates scores every (need, active helper, offered skill)
// triple by cosine similarity and keeps those at or above the floor, sorted
// by score descending and truncated to poolSize. Embedding failures abort
// the request: a partially scored pool would silently misrank.
func (s *Service) retrieveCandidates(ctx context.Context, seeker *store.User, poolSize int) ([]Candidate, error) {
	helpers, err := s.directory.ListActiveUsers(ctx, s.opts.CandidateLimit, seeker.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list candidate helpers")
	}

	var candidates []Candidate
	for _, need := range seeker.SkillsNeeded {
		needVec, err := s.embedder.GetOrCreate(ctx, seeker.ID, store.ItemTypeNeed, need.Name, need.EmbeddingText())
		if err != nil {
			return nil, errors.Wrapf(err, "failed to embed need %q", need.Name)
		}

		for _, helper := range helpers {
			for _, skill := range helper.SkillsOffered {
				skillVec, err := s.embedder.GetOrCreate(ctx, helper.ID, store.ItemTypeSkill, skill.Name, skill.EmbeddingText())
				if err != nil {
					return nil, errors.Wrapf(err, "failed to embed skill %q of %s", skill.Name, helper.ID)
				}

				score, err := vector.CosineSimilarity(needVec, skillVec)
				if err != nil {
					return nil, errors.Wrapf(err, "failed to score %q against %q", skill.Name, need.Name)
				}
				if score >= s.opts.MinSimilarity {
					candidates = append(candidates, Candidate{
						Helper:         helper,
						Skill:          skill,
						Need:           need,
						EmbeddingScore: score,
					})
				}
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].EmbeddingScore > candidates[j].EmbeddingScore
	})
	if len(candidates) > poolSize {
		candidates = candidates[:poolSize]
	}
	return candidates, nil
}

// rerankWithJudge evaluates each candidate with the judgment service, bounded
// by JudgeParallel. Judgment never aborts the batch: provider and parse
// failures already degrade inside the service, and the rare pre-call error
// degrades here to an embedding-only result. Candidates the judge rejects
// (CanHelp false) are dropped.
func (s *Service) rerankWithJudge(ctx context.Context, seeker *store.User, candidates []Candidate, topK int) []*store.Match {
	results := make([]*store.Match, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.JudgeParallel)
	for i, cand := range candidates {
		i, cand := i, cand
		g.Go(func() error {
			s.metrics.RecordJudgeCall()
			verdict, err := s.judge.AnalyzeMatch(gctx, s.buildJudgeRequest(cand))
			if err != nil {
				slog.Warn("matching: judgment unavailable for candidate, keeping embedding score",
					"seeker", seeker.ID, "helper", cand.Helper.ID, "skill", cand.Skill.Name, "error", err)
				s.metrics.RecordJudgeFallback()
				results[i] = s.embeddingOnlyMatch(seeker, cand, 0.5,
					fmt.Sprintf("This helper has skills in %s which may help with your need.", cand.Skill.Name))
				return nil
			}
			if verdict.Model == "fallback" {
				s.metrics.RecordJudgeFallback()
			}
			if !verdict.CanHelp {
				return nil
			}
			results[i] = s.judgedMatch(seeker, cand, verdict)
			return nil
		})
	}
	// Worker closures always return nil; Wait only orders the slot writes.
	_ = g.Wait()

	matches := make([]*store.Match, 0, len(results))
	for _, m := range results {
		if m != nil {
			matches = append(matches, m)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchScore > matches[j].MatchScore
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// convertCandidates maps the top candidates straight to matches with a fixed
// moderate confidence. The pool is already sorted by score.
func (s *Service) convertCandidates(seeker *store.User, candidates []Candidate, topK int) []*store.Match {
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	matches := make([]*store.Match, 0, len(candidates))
	for _, cand := range candidates {
		matches = append(matches, s.embeddingOnlyMatch(seeker, cand, 0.7,
			fmt.Sprintf("%s offers %s which matches your need for %s.",
				cand.Helper.Username, cand.Skill.Name, cand.Need.Name)))
	}
	return matches
}

func (s *Service) buildJudgeRequest(cand Candidate) *judge.Request {
	helperSkills := make([]string, 0, len(cand.Helper.SkillsOffered))
	for _, skill := range cand.Helper.SkillsOffered {
		helperSkills = append(helperSkills, fmt.Sprintf("%s (%s)", skill.Name, skill.Proficiency))
	}

	return &judge.Request{
		SeekerNeed:   cand.Need.Name + ": " + cand.Need.Description,
		HelperSkills: helperSkills,
		SeekerContext: map[string]any{
			"need_level": string(cand.Need.Proficiency),
			"category":   cand.Need.Category,
		},
		HelperContext: map[string]any{
			"matched_skill": cand.Skill.Name,
			"proficiency":   string(cand.Skill.Proficiency),
			"description":   cand.Skill.Description,
		},
		EmbeddingScore: cand.EmbeddingScore,
	}
}

func (s *Service) judgedMatch(seeker *store.User, cand Candidate, verdict *judge.Verdict) *store.Match {
	return &store.Match{
		SeekerID:     seeker.ID,
		HelperID:     cand.Helper.ID,
		SkillOffered: cand.Skill.Name,
		SkillNeeded:  cand.Need.Name,
		MatchScore:   verdict.AdjustedScore,
		Confidence:   verdict.Confidence,
		Explanation:  verdict.Explanation,
		Status:       store.MatchStatusPending,
		Metadata: map[string]any{
			"embedding_score":    cand.EmbeddingScore,
			"helper_proficiency": string(cand.Skill.Proficiency),
			"seeker_level":       string(cand.Need.Proficiency),
			"llm_reasoning":      verdict.Reasoning,
			"llm_model":          verdict.Model,
			"prerequisites_met":  verdict.PrerequisitesMet,
			"skill_level_match":  verdict.SkillLevelMatch,
		},
	}
}

func (s *Service) embeddingOnlyMatch(seeker *store.User, cand Candidate, confidence float32, explanation string) *store.Match {
	return &store.Match{
		SeekerID:     seeker.ID,
		HelperID:     cand.Helper.ID,
		SkillOffered: cand.Skill.Name,
		SkillNeeded:  cand.Need.Name,
		MatchScore:   cand.EmbeddingScore,
		Confidence:   confidence,
		Explanation:  explanation,
		Status:       store.MatchStatusPending,
		Metadata: map[string]any{
			"embedding_score":    cand.EmbeddingScore,
			"helper_proficiency": string(cand.Skill.Proficiency),
			"seeker_level":       string(cand.Need.Proficiency),
		},
	}
}

// checkReciprocity flags matches where the helper in turn needs something
// the seeker offers. Purely informational: scores and ranking are untouched.
// Lookup failures skip the annotation rather than failing the request.
func (s *Service) checkReciprocity(ctx context.Context, seeker *store.User, matches []*store.Match) {
	if len(seeker.SkillsOffered) == 0 {
		return
	}

	for _, match := range matches {
		helper, err := s.directory.GetUserByID(ctx, match.HelperID)
		if err != nil {
			slog.Warn("matching: reciprocity lookup failed", "helper", match.HelperID, "error", err)
			continue
		}
		if helper == nil || len(helper.SkillsNeeded) == 0 {
			continue
		}

	reverse:
		for _, helperNeed := range helper.SkillsNeeded {
			for _, offered := range seeker.SkillsOffered {
				if s.keywords.Compatible(offered.Name, helperNeed.Name) {
					match.IsReciprocal = true
					if match.Metadata == nil {
						match.Metadata = map[string]any{}
					}
					match.Metadata["reverse_match"] = map[string]any{
						"helper_need":    helperNeed.Name,
						"seeker_offers":  offered.Name,
						"helper_becomes": "seeker",
					}
					break reverse
				}
			}
		}
	}
}
