package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CorpusConfig points at the corpus data file.
type CorpusConfig struct {
	Path string `yaml:"path"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
	MaxRetries  int    `yaml:"max_retries"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type      string                `yaml:"type"`
	CacheSize int                   `yaml:"cache_size"`
	OpenAI    *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// RetrievalConfig holds the candidate aggregation weights. Zero values are
// replaced by defaults.
type RetrievalConfig struct {
	TargetWeight           float64 `yaml:"target_weight"`
	EvidenceWeight         float64 `yaml:"evidence_weight"`
	ConceptWeight          float64 `yaml:"concept_weight"`
	ConceptBoost           float64 `yaml:"concept_boost"`
	SupportStep            float64 `yaml:"support_step"`
	SupportCap             float64 `yaml:"support_cap"`
	CandidateMultiplier    int     `yaml:"candidate_multiplier"`
	DisableLexicalFallback bool    `yaml:"disable_lexical_fallback"`
}

// ExcerptConfig bounds the grounding bundle.
type ExcerptConfig struct {
	MaxExcerpts            int     `yaml:"max_excerpts"`
	MaxPerSchool           int     `yaml:"max_per_school"`
	MaxSnippetTokens       int     `yaml:"max_snippet_tokens"`
	LowSimilarityThreshold float64 `yaml:"low_similarity_threshold"`
	LowSimilarityTake      int     `yaml:"low_similarity_take"`
	FallbackChars          int     `yaml:"fallback_chars"`
}

// CircuitBreakerConfig configures the optional breaker around the reasoner.
type CircuitBreakerConfig struct {
	Enabled          bool    `yaml:"enabled"`
	MaxRequests      uint32  `yaml:"max_requests"`
	IntervalSecs     int     `yaml:"interval_secs"`
	TimeoutSecs      int     `yaml:"timeout_secs"`
	ReadyToTripRatio float64 `yaml:"ready_to_trip_ratio"`
}

// ReasonerConfig configures the external reasoning service.
type ReasonerConfig struct {
	BaseURL           string                `yaml:"base_url"`
	APIKeyEnv         string                `yaml:"api_key_env"`
	Model             string                `yaml:"model"`
	MaxTokens         int                   `yaml:"max_tokens"`
	TimeoutSecs       int                   `yaml:"timeout_secs"`
	PromptTokenBudget int                   `yaml:"prompt_token_budget"`
	ShrinkTo          int                   `yaml:"shrink_to"`
	CircuitBreaker    *CircuitBreakerConfig `yaml:"circuit_breaker,omitempty"`
}

// AuditConfig locates the append-only synthesis audit log. An empty path disables it.
type AuditConfig struct {
	Path string `yaml:"path"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Corpus      CorpusConfig      `yaml:"corpus"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Excerpts    ExcerptConfig     `yaml:"excerpts"`
	Reasoner    ReasonerConfig    `yaml:"reasoner"`
	Audit       AuditConfig       `yaml:"audit"`
	Log         LogConfig         `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/exegesis/config.yaml.
// If neither exists, it writes defaults to ~/.config/exegesis/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "exegesis", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Corpus:      CorpusConfig{Path: "corpus.json"},
		Embedder:    EmbedderConfig{Type: "tfidf"},
		VectorStore: VectorStoreConfig{Type: "memory"},
		Audit:       AuditConfig{Path: "synthesis_audit.jsonl"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.CacheSize == 0 {
		cfg.Embedder.CacheSize = 4096
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.BatchSize == 0 {
			cfg.Embedder.OpenAI.BatchSize = 32
		}
	}
	if cfg.VectorStore.Type == "qdrant" && cfg.VectorStore.Qdrant != nil {
		if cfg.VectorStore.Qdrant.Collection == "" {
			cfg.VectorStore.Qdrant.Collection = "exegesis_nodes"
		}
		if cfg.VectorStore.Qdrant.TimeoutSecs == 0 {
			cfg.VectorStore.Qdrant.TimeoutSecs = 15
		}
	}

	r := &cfg.Retrieval
	if r.TargetWeight == 0 {
		r.TargetWeight = 1.0
	}
	if r.EvidenceWeight == 0 {
		r.EvidenceWeight = 0.9
	}
	if r.ConceptWeight == 0 {
		r.ConceptWeight = 0.8
	}
	if r.ConceptBoost == 0 {
		r.ConceptBoost = 0.1
	}
	if r.SupportStep == 0 {
		r.SupportStep = 0.05
	}
	if r.SupportCap == 0 {
		r.SupportCap = 0.2
	}
	if r.CandidateMultiplier == 0 {
		r.CandidateMultiplier = 3
	}

	e := &cfg.Excerpts
	if e.MaxExcerpts == 0 {
		e.MaxExcerpts = 16
	}
	if e.MaxPerSchool == 0 {
		e.MaxPerSchool = 6
	}
	if e.MaxSnippetTokens == 0 {
		e.MaxSnippetTokens = 200
	}
	if e.LowSimilarityThreshold == 0 {
		e.LowSimilarityThreshold = 0.1
	}
	if e.LowSimilarityTake == 0 {
		e.LowSimilarityTake = 8
	}
	if e.FallbackChars == 0 {
		e.FallbackChars = 500
	}

	rs := &cfg.Reasoner
	if rs.BaseURL == "" {
		rs.BaseURL = "https://api.groq.com/openai/v1"
	}
	if rs.APIKeyEnv == "" {
		rs.APIKeyEnv = "GROQ_API_KEY"
	}
	if rs.Model == "" {
		rs.Model = "llama-3.1-8b-instant"
	}
	if rs.MaxTokens == 0 {
		rs.MaxTokens = 400
	}
	if rs.TimeoutSecs == 0 {
		rs.TimeoutSecs = 15
	}
	if rs.PromptTokenBudget == 0 {
		rs.PromptTokenBudget = 2800
	}
	if rs.ShrinkTo == 0 {
		rs.ShrinkTo = 6
	}
	if cb := rs.CircuitBreaker; cb != nil && cb.Enabled {
		if cb.MaxRequests == 0 {
			cb.MaxRequests = 1
		}
		if cb.IntervalSecs == 0 {
			cb.IntervalSecs = 60
		}
		if cb.TimeoutSecs == 0 {
			cb.TimeoutSecs = 30
		}
		if cb.ReadyToTripRatio == 0 {
			cb.ReadyToTripRatio = 0.6
		}
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
