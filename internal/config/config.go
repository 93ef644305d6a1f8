// Package config loads the matcher configuration from a yaml file, the
// environment and bound command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/spigell/skillbridge-matcher/internal/matching"
	"github.com/spigell/skillbridge-matcher/internal/scoring"
)

const (
	AppName   = "skillbridge"
	EnvPrefix = "SKILLBRIDGE"
)

const (
	EmbeddingHashing = "hashing"
	EmbeddingOllama  = "ollama"
	EmbeddingGemini  = "gemini"

	IndexMemory   = "memory"
	IndexQdrant   = "qdrant"
	IndexPgvector = "pgvector"
)

type Config struct {
	Debug     bool            `mapstructure:"debug"`
	JSON      bool            `mapstructure:"json"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Index     IndexConfig     `mapstructure:"index"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	AI        AIConfig        `mapstructure:"ai"`
}

type EmbeddingConfig struct {
	Provider     string        `mapstructure:"provider"`
	Model        string        `mapstructure:"model"`
	Dimension    int           `mapstructure:"dimension"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxLogLength int           `mapstructure:"max-log-length"`
	OllamaURL    string        `mapstructure:"ollama-url"`
	Gemini       SecretConfig  `mapstructure:"gemini"`
	Cache        CacheConfig   `mapstructure:"cache"`
}

// SecretConfig holds an inline credential and a file to read it from.
// The file wins when both are set.
type SecretConfig struct {
	APIKey     string `mapstructure:"api-key" json:"-"`
	APIKeyFile string `mapstructure:"api-key-file"`
}

type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	RedisURL string        `mapstructure:"redis-url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type IndexConfig struct {
	Backend  string         `mapstructure:"backend"`
	Qdrant   QdrantConfig   `mapstructure:"qdrant"`
	Pgvector PgvectorConfig `mapstructure:"pgvector"`
}

type QdrantConfig struct {
	Host             string `mapstructure:"host"`
	Port             int    `mapstructure:"port"`
	UseTLS           bool   `mapstructure:"use-tls"`
	CollectionPrefix string `mapstructure:"collection-prefix"`
	SecretConfig     `mapstructure:",squash"`
}

type PgvectorConfig struct {
	DSN         string `mapstructure:"dsn" json:"-"`
	DSNFile     string `mapstructure:"dsn-file"`
	TablePrefix string `mapstructure:"table-prefix"`
	MaxConns    int32  `mapstructure:"max-conns"`
}

type ScoringConfig struct {
	Weights               scoring.Weights `mapstructure:"weights"`
	ExperienceDivisor     float64         `mapstructure:"experience-divisor"`
	MismatchLocationScore float64         `mapstructure:"mismatch-location-score"`
	SkillAliases          bool            `mapstructure:"skill-aliases"`
}

// Policy converts the section into a scoring policy.
func (s ScoringConfig) Policy() scoring.Policy {
	return scoring.Policy{
		Weights:               s.Weights,
		ExperienceDivisor:     s.ExperienceDivisor,
		MismatchLocationScore: s.MismatchLocationScore,
		CanonicalSkills:       s.SkillAliases,
	}
}

type MatchingConfig struct {
	matching.Options `mapstructure:",squash"`
	MinimumScore     float64  `mapstructure:"minimum-score"`
	HistoryBoost     float64  `mapstructure:"history-boost"`
	ExcludeFile      string   `mapstructure:"exclude-file"`
	ExcludeCompanies []string `mapstructure:"exclude-companies"`
}

// Steps returns the rerank pipeline described by the section.
func (m MatchingConfig) Steps() ([]matching.Step, error) {
	var steps []matching.Step
	if path := strings.TrimSpace(m.ExcludeFile); path != "" {
		excluded, err := matching.LoadExclusions(path)
		if err != nil {
			return nil, fmt.Errorf("getting excluded counterparts from file: %w", err)
		}
		steps = append(steps, matching.ExcludeIDs(excluded.IDs()))
	}
	if len(m.ExcludeCompanies) > 0 {
		steps = append(steps, matching.ExcludeCompanies(m.ExcludeCompanies))
	}
	steps = append(steps, matching.HistoryBoost(m.HistoryBoost))
	if m.MinimumScore > 0 {
		steps = append(steps, matching.MinimumScore(m.MinimumScore))
	}
	return steps, nil
}

type AIConfig struct {
	Enabled  bool         `mapstructure:"enabled"`
	Provider string       `mapstructure:"provider"`
	Gemini   GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	SecretConfig `mapstructure:",squash"`
	Model        string        `mapstructure:"model"`
	MaxRetries   int           `mapstructure:"max-retries"`
	BaseDelay    time.Duration `mapstructure:"base-delay"`
	MaxDelay     time.Duration `mapstructure:"max-delay"`
	MaxLogLength int           `mapstructure:"max-log-length"`
}

// SetDefaults registers every known key so environment variables can
// override keys missing from the config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("json", false)

	v.SetDefault("embedding.provider", EmbeddingHashing)
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.dimension", 768)
	v.SetDefault("embedding.timeout", 30*time.Second)
	v.SetDefault("embedding.max-log-length", 200)
	v.SetDefault("embedding.ollama-url", "http://localhost:11434")
	v.SetDefault("embedding.gemini.api-key", "")
	v.SetDefault("embedding.gemini.api-key-file", "")
	v.SetDefault("embedding.cache.enabled", false)
	v.SetDefault("embedding.cache.redis-url", "redis://localhost:6379/0")
	v.SetDefault("embedding.cache.ttl", 7*24*time.Hour)

	v.SetDefault("index.backend", IndexQdrant)
	v.SetDefault("index.qdrant.host", "localhost")
	v.SetDefault("index.qdrant.port", 6334)
	v.SetDefault("index.qdrant.use-tls", false)
	v.SetDefault("index.qdrant.collection-prefix", "")
	v.SetDefault("index.qdrant.api-key", "")
	v.SetDefault("index.qdrant.api-key-file", "")
	v.SetDefault("index.pgvector.dsn", "")
	v.SetDefault("index.pgvector.dsn-file", "")
	v.SetDefault("index.pgvector.table-prefix", "skillbridge_")
	v.SetDefault("index.pgvector.max-conns", 10)

	v.SetDefault("scoring.weights.skills", scoring.DefaultSkillsWeight)
	v.SetDefault("scoring.weights.experience", scoring.DefaultExperienceWeight)
	v.SetDefault("scoring.weights.location", scoring.DefaultLocationWeight)
	v.SetDefault("scoring.experience-divisor", scoring.DefaultExperienceDivisor)
	v.SetDefault("scoring.mismatch-location-score", scoring.DefaultMismatchLocationScore)
	v.SetDefault("scoring.skill-aliases", false)

	defaults := matching.DefaultOptions()
	v.SetDefault("matching.over-fetch", defaults.OverFetch)
	v.SetDefault("matching.scan-limit", defaults.ScanLimit)
	v.SetDefault("matching.fallback", string(defaults.Fallback))
	v.SetDefault("matching.explain-top", 5)
	v.SetDefault("matching.minimum-score", 0.0)
	v.SetDefault("matching.history-boost", 0.0)
	v.SetDefault("matching.exclude-file", "")
	v.SetDefault("matching.exclude-companies", []string{})

	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.gemini.api-key", "")
	v.SetDefault("ai.gemini.api-key-file", "")
	v.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	v.SetDefault("ai.gemini.max-retries", 3)
	v.SetDefault("ai.gemini.base-delay", time.Second)
	v.SetDefault("ai.gemini.max-delay", 30*time.Second)
	v.SetDefault("ai.gemini.max-log-length", 200)
}

// Load reads configuration into v and decodes it. An empty file means the
// optional skillbridge.yaml in the working directory. Variables from a .env
// file are exported first when envFile exists; an explicitly named envFile
// must exist.
func Load(v *viper.Viper, file, envFile string) (*Config, error) {
	if err := loadDotEnv(envFile); err != nil {
		return nil, err
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func loadDotEnv(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %q: %w", path, err)
	}
	return nil
}

// Validate rejects configurations the services cannot be built from.
func (c *Config) Validate() error {
	var errs []error

	switch c.Embedding.Provider {
	case EmbeddingHashing, EmbeddingOllama, EmbeddingGemini:
	default:
		errs = append(errs, fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider))
	}
	if c.Embedding.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("embedding dimension must be positive, got %d", c.Embedding.Dimension))
	}
	if c.Embedding.Cache.Enabled && strings.TrimSpace(c.Embedding.Cache.RedisURL) == "" {
		errs = append(errs, errors.New("embedding cache requires redis-url"))
	}

	switch c.Index.Backend {
	case IndexMemory, IndexQdrant, IndexPgvector:
	default:
		errs = append(errs, fmt.Errorf("unknown index backend %q", c.Index.Backend))
	}
	if c.Index.Backend == IndexQdrant && strings.TrimSpace(c.Index.Qdrant.Host) == "" {
		errs = append(errs, errors.New("qdrant host is required"))
	}

	if err := c.Scoring.Policy().Validate(); err != nil {
		errs = append(errs, err)
	}

	m := c.Matching
	if m.OverFetch < 1 {
		errs = append(errs, fmt.Errorf("over-fetch must be at least 1, got %d", m.OverFetch))
	}
	if m.ScanLimit < 1 {
		errs = append(errs, fmt.Errorf("scan-limit must be at least 1, got %d", m.ScanLimit))
	}
	if _, err := matching.ParseFallbackPolicy(string(m.Fallback)); err != nil {
		errs = append(errs, err)
	}
	if m.MinimumScore < 0 || m.MinimumScore > 1 {
		errs = append(errs, fmt.Errorf("minimum-score must be within [0, 1], got %v", m.MinimumScore))
	}
	if m.HistoryBoost < 0 || m.HistoryBoost > 1 {
		errs = append(errs, fmt.Errorf("history-boost must be within [0, 1], got %v", m.HistoryBoost))
	}

	if c.AI.Enabled {
		if p := strings.ToLower(strings.TrimSpace(c.AI.Provider)); p != "" && p != "gemini" {
			errs = append(errs, fmt.Errorf("unsupported ai provider: %s", c.AI.Provider))
		}
		if c.AI.Gemini.MaxRetries < 0 {
			errs = append(errs, fmt.Errorf("ai max-retries must not be negative, got %d", c.AI.Gemini.MaxRetries))
		}
	}

	return errors.Join(errs...)
}
