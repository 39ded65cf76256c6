package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"exegesis/internal/config"
	"exegesis/internal/corpus"
	"exegesis/internal/domain"
	"exegesis/internal/embedding"
	"exegesis/internal/embedding/openai"
	"exegesis/internal/embedding/tfidf"
	"exegesis/internal/excerpt"
	"exegesis/internal/lexical"
	"exegesis/internal/reasoner"
	"exegesis/internal/retrieval"
	"exegesis/internal/service"
	"exegesis/internal/summarizer"
	"exegesis/internal/synthesis"
	"exegesis/internal/vectorstore"
)

// app holds the assembled pipeline and what must be released on exit.
type app struct {
	cfg      *config.AppConfig
	logger   *slog.Logger
	pipeline *service.Pipeline
	lexical  *lexical.Index
}

func (a *app) Close() {
	if a.lexical != nil {
		_ = a.lexical.Close()
	}
}

// newApp loads config and corpus, assembles components and builds the index.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Log)

	store, err := corpus.Load(cfg.Corpus.Path)
	if err != nil {
		return nil, err
	}
	stats := store.Stats()
	logger.Info("corpus loaded", "path", cfg.Corpus.Path, "targets", stats.Targets, "concepts", stats.Concepts, "evidence", stats.Evidence)

	emb, err := newEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}
	index, err := vectorstore.New(cfg.VectorStore)
	if err != nil {
		return nil, err
	}
	lex, err := lexical.New()
	if err != nil {
		return nil, err
	}

	reasonerClient, err := newReasoner(cfg.Reasoner, logger)
	if err != nil {
		_ = lex.Close()
		return nil, err
	}

	r := cfg.Retrieval
	weights := retrieval.Weights{
		Target:       r.TargetWeight,
		Evidence:     r.EvidenceWeight,
		Concept:      r.ConceptWeight,
		ConceptBoost: r.ConceptBoost,
		SupportStep:  r.SupportStep,
		SupportCap:   r.SupportCap,
	}
	e := cfg.Excerpts
	deps := service.Deps{
		Store:      store,
		Embedder:   emb,
		Index:      index,
		Lexical:    lex,
		Aggregator: retrieval.NewAggregator(store, weights, logger),
		Selector: excerpt.NewSelector(emb, excerpt.Options{
			MaxExcerpts:            e.MaxExcerpts,
			MaxPerSchool:           e.MaxPerSchool,
			MaxSnippetTokens:       e.MaxSnippetTokens,
			LowSimilarityThreshold: e.LowSimilarityThreshold,
			LowSimilarityTake:      e.LowSimilarityTake,
			FallbackChars:          e.FallbackChars,
		}, logger),
		Validator: synthesis.NewValidator(reasonerClient, synthesis.NewAuditLog(cfg.Audit.Path), synthesis.Options{
			Model:             cfg.Reasoner.Model,
			MaxTokens:         cfg.Reasoner.MaxTokens,
			Timeout:           time.Duration(cfg.Reasoner.TimeoutSecs) * time.Second,
			PromptTokenBudget: cfg.Reasoner.PromptTokenBudget,
			ShrinkTo:          cfg.Reasoner.ShrinkTo,
		}, logger),
		Digest:        summarizer.NewFrequencySummarizer(),
		ReasonerReady: reasonerClient != nil,
	}
	if b, ok := reasonerClient.(*reasoner.Breaker); ok {
		deps.Breaker = b
	}
	pipeline := service.New(deps, service.Options{
		CandidateMultiplier:    r.CandidateMultiplier,
		DisableLexicalFallback: r.DisableLexicalFallback,
		VectorStore:            cfg.VectorStore.Type,
		Model:                  cfg.Reasoner.Model,
	}, logger)
	if err := pipeline.BuildIndex(ctx); err != nil {
		_ = lex.Close()
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, pipeline: pipeline, lexical: lex}, nil
}

func newEmbedder(cfg config.EmbedderConfig) (domain.Embedder, error) {
	var emb domain.Embedder
	switch cfg.Type {
	case "tfidf", "":
		emb = tfidf.NewEmbedder()
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKeyEnv:  cfg.OpenAI.APIKeyEnv,
			Model:      cfg.OpenAI.Model,
			Timeout:    time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			BatchSize:  cfg.OpenAI.BatchSize,
			MaxRetries: cfg.OpenAI.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		emb = client
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
	if cfg.CacheSize < 0 {
		return emb, nil
	}
	return embedding.NewCached(emb, cfg.CacheSize)
}

// newReasoner returns a nil Reasoner when no API key is set, which makes
// every synthesis short-circuit to the insufficient-evidence result.
func newReasoner(cfg config.ReasonerConfig, logger *slog.Logger) (domain.Reasoner, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		logger.Info("reasoning service disabled, no API key", "env", cfg.APIKeyEnv)
		return nil, nil
	}
	client, err := reasoner.NewClient(reasoner.Config{
		BaseURL:   cfg.BaseURL,
		APIKey:    key,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		Timeout:   time.Duration(cfg.TimeoutSecs) * time.Second,
	}, logger)
	if err != nil {
		return nil, err
	}
	if cb := cfg.CircuitBreaker; cb != nil && cb.Enabled {
		return reasoner.NewBreaker(client, reasoner.BreakerConfig{
			MaxRequests:      cb.MaxRequests,
			Interval:         time.Duration(cb.IntervalSecs) * time.Second,
			Timeout:          time.Duration(cb.TimeoutSecs) * time.Second,
			ReadyToTripRatio: cb.ReadyToTripRatio,
		}, logger), nil
	}
	return client, nil
}
