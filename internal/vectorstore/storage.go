// Package vectorstore selects the vector index implementation from config.
package vectorstore

import (
	"fmt"
	"time"

	"exegesis/internal/config"
	"exegesis/internal/domain"
	"exegesis/internal/vectorstore/memory"
	"exegesis/internal/vectorstore/qdrant"
)

// New builds the vector index named by cfg.Type.
func New(cfg config.VectorStoreConfig) (domain.VectorIndex, error) {
	switch cfg.Type {
	case "", "memory":
		return memory.NewStorage(), nil
	case "qdrant":
		if cfg.Qdrant == nil || cfg.Qdrant.URL == "" {
			return nil, fmt.Errorf("qdrant vector store requires vector_store.qdrant.url")
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown vector store type %q", cfg.Type)
	}
}
