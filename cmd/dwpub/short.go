package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/randysalars/dreamweaving-publisher/internal/shorts"
)

var shortCmd = &cobra.Command{
	Use:   "short",
	Short: "Create and upload a short for the next eligible session",
	Long: `Short picks the best session that is public on the site but not yet on
the platform, selects the most engaging segment from its transcript,
renders a vertical clip and uploads it.`,
	RunE: runShort,
}

func init() {
	shortCmd.Flags().Bool("dry-run", false, "select the segment but render and upload nothing")
	shortCmd.Flags().Bool("force", false, "skip the publish-window check")
	rootCmd.AddCommand(shortCmd)
}

func runShort(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	force, _ := cmd.Flags().GetBool("force")

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

	var advisor shorts.Advisor
	if !force {
		advisor = newOptimizer(st, client)
	}

	runner := shorts.NewRunner(st, newPipeline(), client, advisor, logger, shorts.RunnerConfig{
		Selector: selectorConfig(),
		DryRun:   dryRun,
	})

	result, err := runner.RunOnce(cmd.Context())
	if err != nil {
		return err
	}

	switch {
	case result.EmptyQueue:
		fmt.Println("No sessions eligible for shorts")
	case result.DryRun:
		fmt.Printf("Would render %s from %v-%v of session %q\n",
			result.ShortPath,
			result.Window.Start.Round(time.Second), result.Window.End.Round(time.Second),
			result.Session)
	default:
		fmt.Printf("Short uploaded for session %q: %s\n", result.Session, result.URL)
	}
	return nil
}
