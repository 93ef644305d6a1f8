package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/skillbridge-matcher/internal/matching"
	"github.com/spigell/skillbridge-matcher/internal/profile"
	"github.com/spigell/skillbridge-matcher/internal/vectorindex"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed a profile and store it in the vector index",
}

var indexResumeCmd = &cobra.Command{
	Use:   "resume <file>",
	Short: "Index a candidate résumé from a json or yaml file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runIndex(cmd, vectorindex.CollectionResumes, args[0])
	},
}

var indexJobCmd = &cobra.Command{
	Use:   "job <file>",
	Short: "Index a job posting from a json or yaml file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runIndex(cmd, vectorindex.CollectionJobs, args[0])
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <resume|job> <vector-id>",
	Short: "Delete a stored point",
	Args:  cobra.ExactArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		runDelete(args[0], args[1])
	},
}

func init() {
	for _, c := range []*cobra.Command{indexResumeCmd, indexJobCmd} {
		c.Flags().String("replace", "", "vector id of a previous point to delete after a successful upsert")
		indexCmd.AddCommand(c)
	}
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(deleteCmd)
}

func runIndex(cmd *cobra.Command, collection vectorindex.Collection, file string) {
	ctx := context.Background()
	cfg, logger := setup()
	svc := newServices(cfg, logger)
	defer svc.Close()

	previous, _ := cmd.Flags().GetString("replace")

	indexer, err := svc.needIndexer(ctx)
	if err != nil {
		logger.Fatal("preparing the indexer", zap.Error(err))
	}

	var res matching.IndexResult
	switch collection {
	case vectorindex.CollectionResumes:
		c, err := profile.LoadCandidate(file)
		if err != nil {
			logger.Fatal("loading the résumé", zap.Error(err))
		}
		res, err = indexer.IndexCandidate(ctx, c, previous)
		if err != nil {
			logger.Fatal("indexing the résumé", zap.Error(err))
		}
	case vectorindex.CollectionJobs:
		j, err := profile.LoadJob(file)
		if err != nil {
			logger.Fatal("loading the job", zap.Error(err))
		}
		res, err = indexer.IndexJob(ctx, j, previous)
		if err != nil {
			logger.Fatal("indexing the job", zap.Error(err))
		}
	}

	fmt.Fprintf(os.Stdout, "%s %s -> %s\n", collection, boldCyan(res.EntityID), boldGreen(res.VectorID))
	if res.ReplacedVectorID != "" {
		fmt.Fprintf(os.Stdout, "%s\n", faint("replaced "+res.ReplacedVectorID))
	}
}

func runDelete(kind, vectorID string) {
	ctx := context.Background()
	cfg, logger := setup()
	svc := newServices(cfg, logger)
	defer svc.Close()

	collection, err := collectionFromArg(kind)
	if err != nil {
		logger.Fatal("parsing arguments", zap.Error(err))
	}
	idx, err := svc.needIndex(ctx)
	if err != nil {
		logger.Fatal("opening the vector index", zap.Error(err))
	}
	// Remove never embeds.
	indexer := matching.NewIndexer(nil, idx, logger)
	if err := indexer.Remove(ctx, collection, vectorID); err != nil {
		logger.Fatal("deleting the point", zap.Error(err))
	}
}

func collectionFromArg(kind string) (vectorindex.Collection, error) {
	switch kind {
	case "resume", "resumes", "candidate":
		return vectorindex.CollectionResumes, nil
	case "job", "jobs":
		return vectorindex.CollectionJobs, nil
	default:
		return "", fmt.Errorf("unknown collection %q, expected resume or job", kind)
	}
}
