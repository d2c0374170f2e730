package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randysalars/dreamweaving-publisher/internal/schedule"
	"github.com/randysalars/dreamweaving-publisher/internal/store"
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload the next eligible session to the platform",
	Long: `Upload picks the best unpublished session under the configured strategy
and publishes it. An empty queue exits successfully; a failed upload is
recorded and the session stays eligible for the next run.`,
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().String("strategy", "", "candidate ordering: quality, fifo or priority")
	uploadCmd.Flags().Bool("dry-run", false, "select a candidate but do not upload")
	uploadCmd.Flags().Bool("force", false, "skip the publish-window check")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	force, _ := cmd.Flags().GetBool("force")

	strategyName, _ := cmd.Flags().GetString("strategy")
	if strategyName == "" {
		strategyName = GetConfigString("strategy", "quality")
	}
	strategy, err := store.ParseStrategy(strategyName)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	logger := newEventLogger()
	defer logger.Close()

	client, err := newYouTubeClient(cmd.Context())
	if err != nil {
		return err
	}

	var advisor schedule.Advisor
	if !force {
		advisor = newOptimizer(st, client)
	}

	scheduler := schedule.New(st, client, advisor, logger, schedule.Config{
		Strategy: strategy,
		Privacy:  GetConfigString("privacy", "public"),
		DryRun:   dryRun,
	})

	result, err := scheduler.RunOnce(cmd.Context())
	if err != nil {
		return err
	}

	switch {
	case result.EmptyQueue:
		fmt.Println("Nothing to upload")
	case result.DryRun:
		fmt.Printf("Would upload session %q\n", result.Session)
	default:
		fmt.Printf("Uploaded session %q: %s\n", result.Session, result.URL)
	}
	return nil
}
