package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/skillbridge-matcher/internal/vectorindex"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "Show status and size of the collections",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		runCollections(cmd)
	},
}

func init() {
	collectionsCmd.Flags().StringP("output", "o", outputTable, "output format: table or json")
	rootCmd.AddCommand(collectionsCmd)
}

func runCollections(cmd *cobra.Command) {
	ctx := context.Background()
	cfg, logger := setup()
	svc := newServices(cfg, logger)
	defer svc.Close()

	output, _ := cmd.Flags().GetString("output")

	idx, err := svc.needIndex(ctx)
	if err != nil {
		logger.Fatal("opening the vector index", zap.Error(err))
	}

	infos := make([]vectorindex.Info, 0, len(vectorindex.Collections))
	missing := 0
	for _, c := range vectorindex.Collections {
		info, err := idx.CollectionInfo(ctx, c)
		if errors.Is(err, vectorindex.ErrCollectionNotInitialized) {
			missing++
			infos = append(infos, vectorindex.Info{Name: string(c), Status: "missing"})
			continue
		}
		if err != nil {
			logger.Fatal("reading collection info", zap.String("collection", string(c)), zap.Error(err))
		}
		infos = append(infos, info)
	}

	switch output {
	case outputJSON:
		if err := writeJSON(os.Stdout, infos); err != nil {
			logger.Fatal("writing the result", zap.Error(err))
		}
	case outputTable:
		renderInfo(os.Stdout, infos)
	default:
		logger.Fatal("unknown output format", zap.String("output", output))
	}

	if missing > 0 {
		logger.Warn("collections are not initialized", zap.Int("missing", missing),
			zap.String("hint", "run init-collections"))
	}
}
