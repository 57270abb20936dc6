package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// Embedding provider configuration (OpenAI-compatible protocol).
	AIEmbeddingProvider   string // openai, openrouter, siliconflow, ollama
	AIEmbeddingModel      string
	AIEmbeddingAPIKey     string
	AIEmbeddingBaseURL    string
	AIEmbeddingDimensions int

	// Judgment LLM configuration (OpenAI-compatible protocol).
	AIJudgeProvider string
	AIJudgeModel    string
	AIJudgeAPIKey   string
	AIJudgeBaseURL  string
	AIJudgeTimeout  int // Request timeout in seconds (default: 30)

	// Matching knobs. These are quality/performance trade-offs, not
	// hidden constants; see matching.Options.
	MatchMinSimilarity  float64 // minimum embedding similarity for a candidate (default: 0.4)
	MatchCandidateLimit int     // active-helper population cap per retrieval (default: 200)
	MatchTopK           int     // default number of matches returned (default: 10)
	MatchJudgeParallel  int     // concurrent judgment calls (default: 4)
	KeywordTablePath    string  // optional YAML synonym table override

	Mode      string
	Addr      string
	Port      int
	Data      string
	Driver    string
	DSN       string
	Version   string
	AIEnabled bool
}

// Provider default configurations for the judgment LLM.
// Used when the base URL is not explicitly set.
var judgeProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-mini",
	},
	"openrouter": {
		BaseURL: "https://openrouter.ai/api/v1",
		Model:   "google/gemini-2.0-flash-exp:free",
	},
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "Qwen/Qwen2.5-72B-Instruct",
	},
	"ollama": {
		BaseURL: "http://localhost:11434",
		Model:   "llama3.1",
	},
}

var embeddingProviderDefaults = map[string]struct {
	BaseURL    string
	Model      string
	Dimensions int
}{
	"openai": {
		BaseURL:    "https://api.openai.com/v1",
		Model:      "text-embedding-3-small",
		Dimensions: 1536,
	},
	"openrouter": {
		BaseURL:    "https://openrouter.ai/api/v1",
		Model:      "openai/text-embedding-3-small",
		Dimensions: 1536,
	},
	"siliconflow": {
		BaseURL:    "https://api.siliconflow.cn/v1",
		Model:      "BAAI/bge-m3",
		Dimensions: 1024,
	},
	"ollama": {
		BaseURL:    "http://localhost:11434",
		Model:      "nomic-embed-text",
		Dimensions: 768,
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if the judgment LLM is configured. Embedding-only
// matching still works without it (useLLM=false path).
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.AIEmbeddingProvider = getEnvOrDefault("SKILLSWAP_AI_EMBEDDING_PROVIDER", "openai")
	p.AIEmbeddingModel = getEnvOrDefault("SKILLSWAP_AI_EMBEDDING_MODEL", "")
	p.AIEmbeddingAPIKey = getEnvOrDefault("SKILLSWAP_AI_EMBEDDING_API_KEY", "")
	p.AIEmbeddingBaseURL = getEnvOrDefault("SKILLSWAP_AI_EMBEDDING_BASE_URL", "")
	p.AIEmbeddingDimensions = getEnvOrDefaultInt("SKILLSWAP_AI_EMBEDDING_DIMENSIONS", 0)

	p.AIJudgeProvider = getEnvOrDefault("SKILLSWAP_AI_JUDGE_PROVIDER", "openrouter")
	p.AIJudgeModel = getEnvOrDefault("SKILLSWAP_AI_JUDGE_MODEL", "")
	p.AIJudgeAPIKey = getEnvOrDefault("SKILLSWAP_AI_JUDGE_API_KEY", "")
	p.AIJudgeBaseURL = getEnvOrDefault("SKILLSWAP_AI_JUDGE_BASE_URL", "")
	p.AIJudgeTimeout = getEnvOrDefaultInt("SKILLSWAP_AI_JUDGE_TIMEOUT_SECONDS", 30)

	p.MatchMinSimilarity = getEnvOrDefaultFloat("SKILLSWAP_MATCH_MIN_SIMILARITY", 0.4)
	p.MatchCandidateLimit = getEnvOrDefaultInt("SKILLSWAP_MATCH_CANDIDATE_LIMIT", 200)
	p.MatchTopK = getEnvOrDefaultInt("SKILLSWAP_MATCH_TOP_K", 10)
	p.MatchJudgeParallel = getEnvOrDefaultInt("SKILLSWAP_MATCH_JUDGE_PARALLEL", 4)
	p.KeywordTablePath = getEnvOrDefault("SKILLSWAP_MATCH_KEYWORD_TABLE", "")

	// LLM re-ranking is enabled when the judge API key is configured.
	p.AIEnabled = p.AIJudgeAPIKey != "" || p.AIJudgeProvider == "ollama"

	if p.AIJudgeProvider != "" {
		if _, ok := judgeProviderDefaults[p.AIJudgeProvider]; !ok {
			slog.Warn("unknown judge provider, using default: openrouter", "provider", p.AIJudgeProvider)
			p.AIJudgeProvider = "openrouter"
		}
	}
	if defaults, ok := judgeProviderDefaults[p.AIJudgeProvider]; ok {
		if p.AIJudgeBaseURL == "" {
			p.AIJudgeBaseURL = defaults.BaseURL
		}
		if p.AIJudgeModel == "" {
			p.AIJudgeModel = defaults.Model
		}
	}

	if p.AIEmbeddingProvider != "" {
		if _, ok := embeddingProviderDefaults[p.AIEmbeddingProvider]; !ok {
			slog.Warn("unknown embedding provider, using default: openai", "provider", p.AIEmbeddingProvider)
			p.AIEmbeddingProvider = "openai"
		}
	}
	if defaults, ok := embeddingProviderDefaults[p.AIEmbeddingProvider]; ok {
		if p.AIEmbeddingBaseURL == "" {
			p.AIEmbeddingBaseURL = defaults.BaseURL
		}
		if p.AIEmbeddingModel == "" {
			p.AIEmbeddingModel = defaults.Model
		}
		if p.AIEmbeddingDimensions == 0 {
			p.AIEmbeddingDimensions = defaults.Dimensions
		}
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies.
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported database driver: %s", p.Driver)
	}

	if p.Driver == "sqlite" {
		if p.Data == "" {
			p.Data = "."
		}
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
			return err
		}
		p.Data = dataDir
		if p.DSN == "" {
			dbFile := fmt.Sprintf("skillswap_%s.db", p.Mode)
			p.DSN = filepath.Join(dataDir, dbFile)
		}
	}

	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("postgres driver requires a DSN")
	}

	if p.MatchMinSimilarity < -1 || p.MatchMinSimilarity > 1 {
		return errors.Errorf("match min similarity out of range: %f", p.MatchMinSimilarity)
	}

	return nil
}
