package cmd

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/skillbridge-matcher/internal/matching"
	"github.com/spigell/skillbridge-matcher/internal/profile"
	"github.com/spigell/skillbridge-matcher/internal/vectorindex"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank stored counterparts for a profile",
}

var matchJobsCmd = &cobra.Command{
	Use:   "jobs <candidate-file>",
	Short: "Rank stored jobs for a candidate",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runMatch(cmd, matching.JobsForCandidate, args[0])
	},
}

var matchCandidatesCmd = &cobra.Command{
	Use:   "candidates <job-file>",
	Short: "Rank stored candidates for a job",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runMatch(cmd, matching.CandidatesForJob, args[0])
	},
}

func init() {
	for _, c := range []*cobra.Command{matchJobsCmd, matchCandidatesCmd} {
		c.Flags().IntP("limit", "n", 10, "number of matches to return")
		c.Flags().String("location", "", "only counterparts in this location (exact match)")
		c.Flags().Bool("explain", false, "ask the ai provider to explain each returned match")
		c.Flags().StringP("output", "o", outputTable, "output format: table or json")
		c.Flags().StringSlice("history-category", nil, "categories or industries the requester interacted with")
		c.Flags().StringSlice("history-company", nil, "companies the requester interacted with")
		c.Flags().StringSlice("history-skill", nil, "skills of counterparts the requester interacted with")
		c.Flags().StringP("exclude-file", "e", "", "json file with counterparts to exclude")
		c.Flags().Bool("append-excluded", false, "append the returned matches to the exclude file")
		matchCmd.AddCommand(c)
	}
	matchJobsCmd.Flags().String("employment-type", "", "only jobs with this employment type")
	matchJobsCmd.Flags().Int("min-salary", 0, "only jobs whose salary_min is at least this value")
	matchCandidatesCmd.Flags().Int("min-experience", 0, "only candidates with at least this many years of experience")

	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, direction matching.Direction, file string) {
	ctx := context.Background()
	// Bound here because both subcommands define the flag.
	if err := viper.BindPFlag("matching.exclude-file", cmd.Flags().Lookup("exclude-file")); err != nil {
		log.Fatalf("binding the exclude-file flag: %v", err)
	}
	cfg, logger := setup()
	svc := newServices(cfg, logger)
	defer svc.Close()

	flags := cmd.Flags()
	limit, _ := flags.GetInt("limit")
	explain, _ := flags.GetBool("explain")
	output, _ := flags.GetString("output")
	location, _ := flags.GetString("location")

	var history matching.History
	history.Categories, _ = flags.GetStringSlice("history-category")
	history.Companies, _ = flags.GetStringSlice("history-company")
	history.Skills, _ = flags.GetStringSlice("history-skill")

	opts := []matching.CallOption{matching.WithHistory(history)}
	if explain {
		opts = append(opts, matching.WithExplanations())
	}

	embedder, err := svc.needEmbedder(ctx)
	if err != nil {
		logger.Fatal("preparing the embedding generator", zap.Error(err))
	}
	orchestrator, err := svc.needOrchestrator(ctx, explain)
	if err != nil {
		logger.Fatal("preparing the orchestrator", zap.Error(err))
	}

	var ranking matching.Ranking
	switch direction {
	case matching.JobsForCandidate:
		c, err := profile.LoadCandidate(file)
		if err != nil {
			logger.Fatal("loading the résumé", zap.Error(err))
		}
		employment, _ := flags.GetString("employment-type")
		minSalary, _ := flags.GetInt("min-salary")
		filter := vectorindex.JobFilters{Location: location, EmploymentType: employment, MinSalary: minSalary}.Filter()

		ranking, err = orchestrator.MatchJobsForCandidate(ctx, c, embedder.Embed(ctx, c.Normalize().EmbeddingText()), filter, limit, opts...)
		if err != nil {
			logger.Fatal("matching jobs", zap.Error(err))
		}
	case matching.CandidatesForJob:
		j, err := profile.LoadJob(file)
		if err != nil {
			logger.Fatal("loading the job", zap.Error(err))
		}
		minExperience, _ := flags.GetInt("min-experience")
		filter := vectorindex.CandidateFilters{Location: location, MinExperience: minExperience}.Filter()

		ranking, err = orchestrator.MatchCandidatesForJob(ctx, j, embedder.Embed(ctx, j.Normalize().EmbeddingText()), filter, limit, opts...)
		if err != nil {
			logger.Fatal("matching candidates", zap.Error(err))
		}
	}

	if appendExcluded, _ := flags.GetBool("append-excluded"); appendExcluded {
		if err := appendExclusions(cfg.Matching.ExcludeFile, ranking); err != nil {
			logger.Fatal("appending to the exclude file", zap.Error(err))
		}
		logger.Info("appended to exclude file", zap.String("filename", cfg.Matching.ExcludeFile), zap.Int("count", len(ranking.Matches)))
	}

	switch output {
	case outputJSON:
		if err := writeJSON(os.Stdout, ranking); err != nil {
			logger.Fatal("writing the result", zap.Error(err))
		}
	case outputTable:
		renderRanking(os.Stdout, ranking)
	default:
		logger.Fatal("unknown output format", zap.String("output", output))
	}
}

func appendExclusions(path string, r matching.Ranking) error {
	if path == "" {
		return errors.New("exclude file is not configured (set --exclude-file or matching.exclude-file)")
	}
	excluded, err := matching.LoadExclusions(path)
	if errors.Is(err, os.ErrNotExist) {
		excluded, err = &matching.Exclusions{}, nil
	}
	if err != nil {
		return err
	}
	excluded.Append(matching.ExclusionsFrom(r, time.Now()))
	return excluded.ToFile(path)
}

var scoreCmd = &cobra.Command{
	Use:   "score <candidate-file> <job-file>",
	Short: "Score one candidate against one job without touching the index",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runScore(cmd, args[0], args[1])
	},
}

func init() {
	scoreCmd.Flags().Bool("explain", false, "ask the ai provider to explain the match")
	scoreCmd.Flags().StringP("output", "o", outputTable, "output format: table or json")
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, candidateFile, jobFile string) {
	ctx := context.Background()
	cfg, logger := setup()
	svc := newServices(cfg, logger)
	defer svc.Close()

	explain, _ := cmd.Flags().GetBool("explain")
	output, _ := cmd.Flags().GetString("output")

	c, err := profile.LoadCandidate(candidateFile)
	if err != nil {
		logger.Fatal("loading the résumé", zap.Error(err))
	}
	j, err := profile.LoadJob(jobFile)
	if err != nil {
		logger.Fatal("loading the job", zap.Error(err))
	}

	orchestrator, err := svc.needPairScorer(ctx, explain)
	if err != nil {
		logger.Fatal("preparing the scorer", zap.Error(err))
	}
	res := orchestrator.ScorePair(ctx, c, j, explain)

	switch output {
	case outputJSON:
		if err := writeJSON(os.Stdout, res); err != nil {
			logger.Fatal("writing the result", zap.Error(err))
		}
	case outputTable:
		renderPair(os.Stdout, res)
	default:
		logger.Fatal("unknown output format", zap.String("output", output))
	}
}
