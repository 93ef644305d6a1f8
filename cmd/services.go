package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/skillbridge-matcher/internal/ai"
	aigemini "github.com/spigell/skillbridge-matcher/internal/ai/gemini"
	"github.com/spigell/skillbridge-matcher/internal/config"
	"github.com/spigell/skillbridge-matcher/internal/embedding"
	"github.com/spigell/skillbridge-matcher/internal/embedding/cache"
	embgemini "github.com/spigell/skillbridge-matcher/internal/embedding/gemini"
	"github.com/spigell/skillbridge-matcher/internal/embedding/hashing"
	"github.com/spigell/skillbridge-matcher/internal/embedding/ollama"
	"github.com/spigell/skillbridge-matcher/internal/matching"
	"github.com/spigell/skillbridge-matcher/internal/scoring"
	"github.com/spigell/skillbridge-matcher/internal/secrets"
	"github.com/spigell/skillbridge-matcher/internal/vectorindex"
	"github.com/spigell/skillbridge-matcher/internal/vectorindex/memory"
	"github.com/spigell/skillbridge-matcher/internal/vectorindex/pgvector"
	"github.com/spigell/skillbridge-matcher/internal/vectorindex/qdrant"
)

// services holds everything a command may need. Fields are built lazily
// by the need* helpers so a command only connects to what it uses.
type services struct {
	cfg    *config.Config
	logger *zap.Logger

	genai     *genai.Client
	embedder  *embedding.Generator
	index     vectorindex.Index
	scorer    *scoring.Scorer
	explainer ai.Explainer

	closers []io.Closer
}

func newServices(cfg *config.Config, l *zap.Logger) *services {
	return &services{cfg: cfg, logger: l}
}

// Close releases every connection opened so far.
func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			s.logger.Warn("closing a service", zap.Error(err))
		}
	}
	s.closers = nil
}

func (s *services) needGenAI(ctx context.Context, secret config.SecretConfig, env string) (*genai.Client, error) {
	if s.genai != nil {
		return s.genai, nil
	}
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: secret.APIKey,
		File:  secret.APIKeyFile,
		Env:   env,
	})
	if err != nil {
		return nil, err
	}
	client, err := aigemini.NewClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	s.genai = client
	return client, nil
}

func (s *services) needEmbedder(ctx context.Context) (*embedding.Generator, error) {
	if s.embedder != nil {
		return s.embedder, nil
	}
	cfg := s.cfg.Embedding

	var backend embedding.Backend
	switch cfg.Provider {
	case config.EmbeddingHashing:
		b, err := hashing.New(cfg.Dimension)
		if err != nil {
			return nil, err
		}
		backend = b
	case config.EmbeddingOllama:
		b, err := ollama.New(cfg.OllamaURL, cfg.Model, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		backend = b
	case config.EmbeddingGemini:
		client, err := s.needGenAI(ctx, cfg.Gemini, "GEMINI_API_KEY")
		if err != nil {
			return nil, fmt.Errorf("%w (set embedding.gemini.api-key-file or GEMINI_API_KEY)", err)
		}
		b, err := embgemini.New(client.Models, cfg.Model, cfg.Dimension)
		if err != nil {
			return nil, err
		}
		backend = b
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	if cfg.Cache.Enabled {
		rdb, err := cache.Connect(ctx, cfg.Cache.RedisURL)
		if err != nil {
			// Embeddings still work without the cache.
			s.logger.Warn("embedding cache disabled", zap.Error(err))
		} else {
			s.closers = append(s.closers, rdb)
			backend = cache.New(backend, cache.NewRedisStore(rdb), cfg.Cache.TTL, s.logger)
		}
	}

	gen, err := embedding.New(backend, cfg.Dimension, embedding.Options{
		Timeout:      cfg.Timeout,
		MaxLogLength: cfg.MaxLogLength,
	}, s.logger)
	if err != nil {
		return nil, err
	}
	s.embedder = gen
	return gen, nil
}

func (s *services) needIndex(ctx context.Context) (vectorindex.Index, error) {
	if s.index != nil {
		return s.index, nil
	}
	cfg := s.cfg.Index

	var backend vectorindex.Backend
	switch cfg.Backend {
	case config.IndexMemory:
		s.logger.Warn("using the in-memory index, points are lost when the process exits")
		backend = memory.New()
	case config.IndexQdrant:
		apiKey, err := secrets.Optional(secrets.Source{
			Name:  "qdrant api key",
			Value: cfg.Qdrant.APIKey,
			File:  cfg.Qdrant.APIKeyFile,
			Env:   "QDRANT_API_KEY",
		})
		if err != nil {
			return nil, err
		}
		b, err := qdrant.Dial(qdrant.Config{
			Host:   cfg.Qdrant.Host,
			Port:   cfg.Qdrant.Port,
			APIKey: apiKey,
			UseTLS: cfg.Qdrant.UseTLS,
			Prefix: cfg.Qdrant.CollectionPrefix,
		}, s.logger)
		if err != nil {
			return nil, err
		}
		backend = b
	case config.IndexPgvector:
		dsn, err := secrets.Load(secrets.Source{
			Name:  "postgres dsn",
			Value: cfg.Pgvector.DSN,
			File:  cfg.Pgvector.DSNFile,
			Env:   "DATABASE_URL",
		})
		if err != nil {
			return nil, err
		}
		b, err := pgvector.Connect(ctx, pgvector.Config{
			DSN:         dsn,
			TablePrefix: cfg.Pgvector.TablePrefix,
			MaxConns:    cfg.Pgvector.MaxConns,
		}, s.logger)
		if err != nil {
			return nil, err
		}
		backend = b
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.Backend)
	}

	idx, err := vectorindex.Validate(backend, s.cfg.Embedding.Dimension, s.logger)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	// Nothing survives a process exit, so init-collections cannot help here.
	if cfg.Backend == config.IndexMemory {
		if err := idx.InitializeCollections(ctx); err != nil {
			_ = idx.Close()
			return nil, err
		}
	}
	s.closers = append(s.closers, idx)
	s.index = idx
	return idx, nil
}

func (s *services) needScorer() (*scoring.Scorer, error) {
	if s.scorer != nil {
		return s.scorer, nil
	}
	scorer, err := scoring.New(s.cfg.Scoring.Policy())
	if err != nil {
		return nil, err
	}
	s.scorer = scorer
	return scorer, nil
}

// needExplainer returns nil without an error when explanations are disabled.
func (s *services) needExplainer(ctx context.Context) (ai.Explainer, error) {
	if s.explainer != nil || !s.cfg.AI.Enabled {
		return s.explainer, nil
	}
	cfg := s.cfg.AI
	if p := strings.ToLower(strings.TrimSpace(cfg.Provider)); p != "" && p != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	client, err := s.needGenAI(ctx, cfg.Gemini.SecretConfig, "GEMINI_API_KEY")
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
	}
	generator, err := aigemini.NewGenerator(client, cfg.Gemini.Model, aigemini.RetryPolicy{
		MaxRetries: cfg.Gemini.MaxRetries,
		BaseDelay:  cfg.Gemini.BaseDelay,
		MaxDelay:   cfg.Gemini.MaxDelay,
	}, s.logger.With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries)))
	if err != nil {
		return nil, err
	}
	s.explainer = aigemini.NewExplainer(generator, s.logger, cfg.Gemini.MaxLogLength)
	return s.explainer, nil
}

func (s *services) needIndexer(ctx context.Context) (*matching.Indexer, error) {
	emb, err := s.needEmbedder(ctx)
	if err != nil {
		return nil, err
	}
	idx, err := s.needIndex(ctx)
	if err != nil {
		return nil, err
	}
	return matching.NewIndexer(emb, idx, s.logger), nil
}

// needOrchestrator builds the orchestrator. A failing explainer only
// disables explanations.
func (s *services) needOrchestrator(ctx context.Context, explain bool) (*matching.Orchestrator, error) {
	idx, err := s.needIndex(ctx)
	if err != nil {
		return nil, err
	}
	return s.orchestrator(ctx, idx, explain)
}

// needPairScorer builds an orchestrator without a vector index; only
// ScorePair may be used on it.
func (s *services) needPairScorer(ctx context.Context, explain bool) (*matching.Orchestrator, error) {
	return s.orchestrator(ctx, nil, explain)
}

func (s *services) orchestrator(ctx context.Context, idx matching.Searcher, explain bool) (*matching.Orchestrator, error) {
	scorer, err := s.needScorer()
	if err != nil {
		return nil, err
	}
	var explainer ai.Explainer
	if explain {
		explainer, err = s.needExplainer(ctx)
		if err != nil {
			s.logger.Warn("explanations disabled", zap.Error(err))
			explainer = nil
		} else if explainer == nil {
			s.logger.Warn("explanations requested but ai.enabled is false")
		}
	}
	steps, err := s.cfg.Matching.Steps()
	if err != nil {
		return nil, err
	}
	return matching.New(matching.Config{
		Index:     idx,
		Scorer:    scorer,
		Options:   s.cfg.Matching.Options,
		Steps:     steps,
		Explainer: explainer,
		Logger:    s.logger,
	})
}
