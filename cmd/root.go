package cmd

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/skillbridge-matcher/internal/config"
	"github.com/spigell/skillbridge-matcher/internal/logger"
)

const (
	app = "skillbridge"
)

var (
	// Used for flags.
	cfgFile string
	envFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "skillbridge matches candidates and jobs by vector similarity and an explainable score",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is skillbridge.yaml in current directory)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "a dotenv file to export before reading the config (default is .env if present)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("index-backend", "", "vector index backend: memory, qdrant or pgvector")
	rootCmd.PersistentFlags().String("embedding-provider", "", "embedding provider: hashing, ollama or gemini")

	bindFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	bindFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	bindFlag("index.backend", rootCmd.PersistentFlags().Lookup("index-backend"))
	bindFlag("embedding.provider", rootCmd.PersistentFlags().Lookup("embedding-provider"))
}

func bindFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		log.Fatalf("binding %s flag: %v", key, err)
	}
}

// getConfig loads and validates the configuration.
func getConfig() (*config.Config, error) {
	return config.Load(viper.GetViper(), cfgFile, envFile)
}

// setup loads the config and builds the process logger. Failures are fatal.
func setup() (*config.Config, *zap.Logger) {
	cfg, err := getConfig()
	if err != nil {
		log.Fatalf("getting a config: %s", err)
	}

	l, err := logger.New(cfg.JSON, cfg.Debug)
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	l.Debug("starting with config",
		zap.String("version", version),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("index_backend", cfg.Index.Backend),
		zap.Bool("ai_enabled", cfg.AI.Enabled),
	)
	return cfg, l
}
