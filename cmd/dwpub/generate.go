package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/randysalars/dreamweaving-publisher/internal/generate"
	"github.com/randysalars/dreamweaving-publisher/internal/report"
)

var generateCmd = &cobra.Command{
	Use:   "generate <topic>",
	Short: "Generate a new session for a topic",
	Long: `Generate claims the topic against the dedup ledger, runs the external
generator command and records the produced artifacts. A topic already
consumed for the same source is rejected before any work starts.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().String("name", "", "session name (default: slug of the topic)")
	generateCmd.Flags().String("source", "default", "topic source for dedup tracking")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	topic := args[0]
	name, _ := cmd.Flags().GetString("name")
	source, _ := cmd.Flags().GetString("source")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	logger := newEventLogger()
	defer logger.Close()

	command := viper.GetStringSlice("generator.command")
	if len(command) == 0 {
		return fmt.Errorf("generator.command is not configured")
	}

	gen, err := generate.New(st, newPipeline(), generate.Config{
		SessionsDir: GetConfigString("sessions_dir", "sessions"),
		Command:     command,
		Timeout:     time.Duration(GetConfigInt("generator.timeout_min", 30)) * time.Minute,
	})
	if err != nil {
		return err
	}

	session, err := gen.Run(cmd.Context(), name, topic, source)
	if err != nil {
		logger.Log(report.Event{Event: report.EventError, Session: name, Reason: err.Error()})
		return err
	}

	logger.Log(report.Event{Event: report.EventGenerate, Session: session.Name})
	fmt.Printf("Generated session %q (quality %.1f, %s)\n",
		session.Name, session.QualityScore,
		(time.Duration(session.DurationSec) * time.Second).Round(time.Second))
	return nil
}
