// Package judge evaluates a single candidate pairing with a natural-language
// reasoning provider and returns a structured verdict. The provider response
// is treated as near-free text: markdown fencing is stripped, the remainder
// must parse into a JSON object carrying five mandatory fields. Any provider
// or parse failure degrades to a deterministic fallback verdict so that one
// bad candidate can never abort a ranking batch.
package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Request describes one candidate pairing to evaluate.
type Request struct {
	// SeekerNeed is the need being matched, "name: description".
	SeekerNeed string

	// HelperSkills is the helper's full offered-skill list, with proficiency
	// annotations. The full list gives the judge more context than the single
	// matched skill.
	HelperSkills []string

	// SeekerContext and HelperContext carry proficiency levels and
	// descriptions for the matched pair.
	SeekerContext map[string]any
	HelperContext map[string]any

	// EmbeddingScore is the cosine similarity baseline the judge adjusts from.
	EmbeddingScore float32
}

// Verdict is the structured judgment for one pairing. AdjustedScore and
// Confidence are clamped to [0, 1]. CanHelp is the deciding flag: candidates
// it rejects are dropped from ranked results entirely.
type Verdict struct {
	AdjustedScore    float32   `json:"adjusted_score"`
	CanHelp          bool      `json:"can_help"`
	Confidence       float32   `json:"confidence"`
	Reasoning        string    `json:"reasoning"`
	Explanation      string    `json:"explanation"`
	PrerequisitesMet bool      `json:"prerequisites_met"`
	SkillLevelMatch  bool      `json:"skill_level_match"`
	Model            string    `json:"model"`
	Timestamp        time.Time `json:"timestamp"`
}

// Service is the judgment service interface.
type Service interface {
	// AnalyzeMatch evaluates whether the helper can assist with the seeker's
	// need. Provider and parse failures are absorbed into a fallback verdict
	// with a nil error; a non-nil error is returned only when the call could
	// not be attempted at all (cancelled context, nil request).
	AnalyzeMatch(ctx context.Context, req *Request) (*Verdict, error)
}

// Config represents judgment service configuration.
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 1024
	Temperature float32 // default: 0.3
	Timeout     int     // request timeout in seconds (default: 30)
}

type service struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
}

// NewService creates a new judgment Service over an OpenAI-compatible provider.
func NewService(cfg *Config) (Service, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("judge model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:    100,
			IdleConnTimeout: 90 * time.Second,
		},
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = 0.3
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &service{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: temperature,
		timeout:     timeout,
	}, nil
}

const systemPrompt = "You are a helpful assistant that evaluates skill matches for peer learning. Always respond with valid JSON only."

func (s *service) AnalyzeMatch(ctx context.Context, req *Request) (*Verdict, error) {
	if req == nil {
		return nil, fmt.Errorf("nil judge request")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt := buildPrompt(req)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		slog.Warn("judge: provider call failed, using fallback verdict", "error", err)
		return Fallback(req.EmbeddingScore), nil
	}
	if len(resp.Choices) == 0 {
		slog.Warn("judge: empty provider response, using fallback verdict")
		return Fallback(req.EmbeddingScore), nil
	}

	verdict, err := parseVerdict(resp.Choices[0].Message.Content)
	if err != nil {
		slog.Warn("judge: failed to parse provider response, using fallback verdict", "error", err)
		return Fallback(req.EmbeddingScore), nil
	}

	verdict.Model = s.model
	verdict.Timestamp = time.Now().UTC()
	return verdict, nil
}

func buildPrompt(req *Request) string {
	var b strings.Builder

	b.WriteString("Analyze if this helper can assist with the seeker's learning need.\n\n")
	b.WriteString("SEEKER'S NEED:\n")
	b.WriteString(req.SeekerNeed)
	b.WriteString("\n\nHELPER'S SKILLS:\n")
	for _, skill := range req.HelperSkills {
		fmt.Fprintf(&b, "  - %s\n", skill)
	}
	fmt.Fprintf(&b, "\nEMBEDDING SIMILARITY: %.3f\n", req.EmbeddingScore)

	b.WriteString("\nSEEKER CONTEXT:\n")
	b.WriteString(contextJSON(req.SeekerContext))
	b.WriteString("\n\nHELPER CONTEXT:\n")
	b.WriteString(contextJSON(req.HelperContext))

	b.WriteString(`

Evaluate this match and respond with ONLY a JSON object (no markdown, no extra text):

{
  "adjusted_score": <float 0.0-1.0>,
  "can_help": <boolean>,
  "confidence": <float 0.0-1.0>,
  "reasoning": "<brief explanation of your evaluation>",
  "explanation": "<2-3 sentence explanation for the user about why this is a good/bad match>",
  "prerequisites_met": <boolean>,
  "skill_level_match": <boolean>
}

Consider:
- Skill relevance and overlap
- Proficiency levels (helper should be equal or higher)
- Prerequisites and dependencies
- Specificity of need vs breadth of skills
- Practical applicability

Adjusted score should:
- Start with the embedding similarity as baseline
- Increase (+0.1 to +0.3) if strong contextual match
- Decrease (-0.1 to -0.3) if prerequisites missing or skill level mismatch
- Stay between 0.0 and 1.0
`)

	return b.String()
}

func contextJSON(m map[string]any) string {
	if len(m) == 0 {
		return "No additional context"
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "No additional context"
	}
	return string(data)
}

// rawVerdict uses pointer fields so missing mandatory keys are detectable.
type rawVerdict struct {
	AdjustedScore    *float64 `json:"adjusted_score"`
	CanHelp          *bool    `json:"can_help"`
	Confidence       *float64 `json:"confidence"`
	Reasoning        *string  `json:"reasoning"`
	Explanation      *string  `json:"explanation"`
	PrerequisitesMet *bool    `json:"prerequisites_met"`
	SkillLevelMatch  *bool    `json:"skill_level_match"`
}

// parseVerdict parses the provider response, tolerating markdown fencing but
// requiring the five mandatory fields.
func parseVerdict(content string) (*Verdict, error) {
	content = stripFences(content)

	var raw rawVerdict
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("judge response is not valid JSON: %w", err)
	}

	switch {
	case raw.AdjustedScore == nil:
		return nil, fmt.Errorf("judge response missing required field: adjusted_score")
	case raw.CanHelp == nil:
		return nil, fmt.Errorf("judge response missing required field: can_help")
	case raw.Confidence == nil:
		return nil, fmt.Errorf("judge response missing required field: confidence")
	case raw.Reasoning == nil:
		return nil, fmt.Errorf("judge response missing required field: reasoning")
	case raw.Explanation == nil:
		return nil, fmt.Errorf("judge response missing required field: explanation")
	}

	verdict := &Verdict{
		AdjustedScore:    clamp01(float32(*raw.AdjustedScore)),
		CanHelp:          *raw.CanHelp,
		Confidence:       clamp01(float32(*raw.Confidence)),
		Reasoning:        *raw.Reasoning,
		Explanation:      *raw.Explanation,
		PrerequisitesMet: true,
		SkillLevelMatch:  true,
	}
	if raw.PrerequisitesMet != nil {
		verdict.PrerequisitesMet = *raw.PrerequisitesMet
	}
	if raw.SkillLevelMatch != nil {
		verdict.SkillLevelMatch = *raw.SkillLevelMatch
	}

	return verdict, nil
}

func stripFences(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// Fallback is the deterministic verdict used when the provider fails or
// returns malformed output: the embedding score stands, capability is a
// simple threshold on it, confidence is fixed at 0.5.
func Fallback(embeddingScore float32) *Verdict {
	return &Verdict{
		AdjustedScore:    clamp01(embeddingScore),
		CanHelp:          embeddingScore > 0.4,
		Confidence:       0.5,
		Reasoning:        "judgment unavailable, using embedding score only",
		Explanation:      "This match is based on semantic similarity. The helper's skills appear relevant to your need.",
		PrerequisitesMet: true,
		SkillLevelMatch:  true,
		Model:            "fallback",
		Timestamp:        time.Now().UTC(),
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
