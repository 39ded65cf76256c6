package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "tfidf", cfg.Embedder.Type)
	assert.Equal(t, "memory", cfg.VectorStore.Type)
	assert.Equal(t, 0.9, cfg.Retrieval.EvidenceWeight)
	assert.Equal(t, 0.8, cfg.Retrieval.ConceptWeight)
	assert.Equal(t, 0.1, cfg.Retrieval.ConceptBoost)
	assert.Equal(t, 0.05, cfg.Retrieval.SupportStep)
	assert.Equal(t, 0.2, cfg.Retrieval.SupportCap)
	assert.Equal(t, 16, cfg.Excerpts.MaxExcerpts)
	assert.Equal(t, 6, cfg.Excerpts.MaxPerSchool)
	assert.Equal(t, 15, cfg.Reasoner.TimeoutSecs)
	assert.Equal(t, 2800, cfg.Reasoner.PromptTokenBudget)
	assert.Equal(t, "synthesis_audit.jsonl", cfg.Audit.Path)
}

func TestLoadAppliesDefaultsAroundOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
corpus:
  path: data/gita.json
embedder:
  type: openai
  openai:
    model: nomic-embed-text
retrieval:
  concept_boost: 0.25
excerpts:
  max_per_school: 2
reasoner:
  model: llama-3.3-70b-versatile
  circuit_breaker:
    enabled: true
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "data/gita.json", cfg.Corpus.Path)
	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, "nomic-embed-text", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, 32, cfg.Embedder.OpenAI.BatchSize)
	assert.Equal(t, 0.25, cfg.Retrieval.ConceptBoost)
	assert.Equal(t, 0.8, cfg.Retrieval.ConceptWeight)
	assert.Equal(t, 2, cfg.Excerpts.MaxPerSchool)
	assert.Equal(t, 16, cfg.Excerpts.MaxExcerpts)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.Reasoner.Model)
	assert.Equal(t, "GROQ_API_KEY", cfg.Reasoner.APIKeyEnv)
	require.NotNil(t, cfg.Reasoner.CircuitBreaker)
	assert.Equal(t, 0.6, cfg.Reasoner.CircuitBreaker.ReadyToTripRatio)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retrieval: [unterminated"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Corpus.Path = "elsewhere.json"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
