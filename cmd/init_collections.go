package cmd

import (
	"context"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var initCollectionsCmd = &cobra.Command{
	Use:   "init-collections",
	Short: "Drop and recreate the resumes and jobs collections",
	Long:  "Drop and recreate the resumes and jobs collections. Every stored point is deleted.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		initCollections(cmd)
	},
}

func init() {
	rootCmd.AddCommand(initCollectionsCmd)

	initCollectionsCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
}

var confirmPrompt = promptui.Select{
	Label: "All stored vectors will be deleted. Proceed?",
	Items: []string{PromptNo, PromptYes},
}

func initCollections(cmd *cobra.Command) {
	ctx := context.Background()
	cfg, logger := setup()
	svc := newServices(cfg, logger)
	defer svc.Close()

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		_, answer, err := confirmPrompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		if answer != PromptYes {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	idx, err := svc.needIndex(ctx)
	if err != nil {
		logger.Fatal("opening the vector index", zap.Error(err))
	}
	if err := idx.InitializeCollections(ctx); err != nil {
		logger.Fatal("initializing collections", zap.Error(err))
	}
	logger.Info("collections initialized", zap.Int("dimension", cfg.Embedding.Dimension))
}
