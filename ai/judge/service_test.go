package judge

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerdict(t *testing.T) {
	content := `{
		"adjusted_score": 0.82,
		"can_help": true,
		"confidence": 0.9,
		"reasoning": "strong overlap",
		"explanation": "The helper knows this well.",
		"prerequisites_met": true,
		"skill_level_match": false
	}`

	v, err := parseVerdict(content)
	require.NoError(t, err)

	assert.InDelta(t, 0.82, float64(v.AdjustedScore), 1e-6)
	assert.True(t, v.CanHelp)
	assert.InDelta(t, 0.9, float64(v.Confidence), 1e-6)
	assert.Equal(t, "strong overlap", v.Reasoning)
	assert.True(t, v.PrerequisitesMet)
	assert.False(t, v.SkillLevelMatch)
}

func TestParseVerdict_StripsMarkdownFences(t *testing.T) {
	fenced := "```json\n" + `{"adjusted_score": 0.5, "can_help": false, "confidence": 0.6, "reasoning": "r", "explanation": "e"}` + "\n```"

	v, err := parseVerdict(fenced)
	require.NoError(t, err)
	assert.False(t, v.CanHelp)
	assert.InDelta(t, 0.5, float64(v.AdjustedScore), 1e-6)

	plainFence := "```\n" + `{"adjusted_score": 0.5, "can_help": true, "confidence": 0.6, "reasoning": "r", "explanation": "e"}` + "\n```"
	v, err = parseVerdict(plainFence)
	require.NoError(t, err)
	assert.True(t, v.CanHelp)
}

func TestParseVerdict_MissingMandatoryField(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing adjusted_score", `{"can_help": true, "confidence": 0.6, "reasoning": "r", "explanation": "e"}`},
		{"missing can_help", `{"adjusted_score": 0.5, "confidence": 0.6, "reasoning": "r", "explanation": "e"}`},
		{"missing confidence", `{"adjusted_score": 0.5, "can_help": true, "reasoning": "r", "explanation": "e"}`},
		{"missing reasoning", `{"adjusted_score": 0.5, "can_help": true, "confidence": 0.6, "explanation": "e"}`},
		{"missing explanation", `{"adjusted_score": 0.5, "can_help": true, "confidence": 0.6, "reasoning": "r"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseVerdict(tt.content)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "missing required field")
		})
	}
}

func TestParseVerdict_NotJSON(t *testing.T) {
	_, err := parseVerdict("I think they would be a great match!")
	assert.Error(t, err)
}

func TestParseVerdict_ClampsScores(t *testing.T) {
	content := `{"adjusted_score": 1.7, "can_help": true, "confidence": -0.2, "reasoning": "r", "explanation": "e"}`

	v, err := parseVerdict(content)
	require.NoError(t, err)
	assert.Equal(t, float32(1.0), v.AdjustedScore)
	assert.Equal(t, float32(0.0), v.Confidence)
}

func TestParseVerdict_OptionalFlagsDefaultTrue(t *testing.T) {
	content := `{"adjusted_score": 0.5, "can_help": true, "confidence": 0.6, "reasoning": "r", "explanation": "e"}`

	v, err := parseVerdict(content)
	require.NoError(t, err)
	assert.True(t, v.PrerequisitesMet)
	assert.True(t, v.SkillLevelMatch)
}

func TestFallback(t *testing.T) {
	t.Run("above threshold can help", func(t *testing.T) {
		v := Fallback(0.6)
		assert.InDelta(t, 0.6, float64(v.AdjustedScore), 1e-6)
		assert.True(t, v.CanHelp)
		assert.Equal(t, float32(0.5), v.Confidence)
		assert.Equal(t, "fallback", v.Model)
	})

	t.Run("at threshold cannot help", func(t *testing.T) {
		v := Fallback(0.4)
		assert.False(t, v.CanHelp)
	})

	t.Run("below threshold cannot help", func(t *testing.T) {
		v := Fallback(0.1)
		assert.False(t, v.CanHelp)
		assert.Equal(t, float32(0.5), v.Confidence)
	})

	t.Run("negative score clamped", func(t *testing.T) {
		v := Fallback(-0.3)
		assert.Equal(t, float32(0), v.AdjustedScore)
		assert.False(t, v.CanHelp)
	})
}

func TestAnalyzeMatch_ProviderFailureFallsBack(t *testing.T) {
	// Point the client at a dead endpoint; the provider call fails and the
	// service must degrade to the fallback verdict without an error.
	svc, err := NewService(&Config{
		Model:   "test-model",
		APIKey:  "test-key",
		BaseURL: "http://127.0.0.1:1/v1",
		Timeout: 1,
	})
	require.NoError(t, err)

	v, err := svc.AnalyzeMatch(context.Background(), &Request{
		SeekerNeed:     "React: frontend help",
		HelperSkills:   []string{"React (expert)"},
		EmbeddingScore: 0.72,
	})
	require.NoError(t, err)
	require.NotNil(t, v)

	assert.Equal(t, float32(0.5), v.Confidence)
	assert.True(t, v.CanHelp)
	assert.InDelta(t, 0.72, float64(v.AdjustedScore), 1e-6)
	assert.Equal(t, "fallback", v.Model)
}

func TestAnalyzeMatch_CancelledContextIsAnError(t *testing.T) {
	svc, err := NewService(&Config{
		Model:   "test-model",
		APIKey:  "test-key",
		BaseURL: "http://127.0.0.1:1/v1",
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = svc.AnalyzeMatch(ctx, &Request{EmbeddingScore: 0.5})
	assert.Error(t, err)
}

func TestNewService_RequiresModel(t *testing.T) {
	_, err := NewService(&Config{APIKey: "k"})
	assert.Error(t, err)
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt(&Request{
		SeekerNeed:     "Python: data pipelines",
		HelperSkills:   []string{"Python (expert)", "SQL (advanced)"},
		SeekerContext:  map[string]any{"need_level": "beginner"},
		EmbeddingScore: 0.612,
	})

	assert.Contains(t, prompt, "Python: data pipelines")
	assert.Contains(t, prompt, "- Python (expert)")
	assert.Contains(t, prompt, "- SQL (advanced)")
	assert.Contains(t, prompt, "0.612")
	assert.Contains(t, prompt, "need_level")
	// Helper context absent: documented placeholder instead.
	assert.True(t, strings.Contains(prompt, "No additional context"))
}
