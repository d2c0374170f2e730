package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Inspect and manage the topic dedup ledger",
}

var topicsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List consumed topics for a source",
	RunE:  runTopicsList,
}

var topicsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the ledger for a source so its topic pool can be reused",
	RunE:  runTopicsReset,
}

func init() {
	topicsListCmd.Flags().String("source", "default", "topic source")
	topicsResetCmd.Flags().String("source", "default", "topic source")

	topicsCmd.AddCommand(topicsListCmd)
	topicsCmd.AddCommand(topicsResetCmd)
	rootCmd.AddCommand(topicsCmd)
}

func runTopicsList(cmd *cobra.Command, args []string) error {
	source, _ := cmd.Flags().GetString("source")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	topics, err := st.UsedTopics(source)
	if err != nil {
		return err
	}

	if len(topics) == 0 {
		fmt.Printf("No topics consumed for source %q\n", source)
		return nil
	}

	fmt.Printf("Topics consumed for source %q:\n", source)
	for _, t := range topics {
		fmt.Printf("  %s  (%s)\n", t.Topic, t.CreatedAt.Format("2006-01-02"))
	}
	return nil
}

func runTopicsReset(cmd *cobra.Command, args []string) error {
	source, _ := cmd.Flags().GetString("source")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	removed, err := st.ResetTopicSource(source)
	if err != nil {
		return err
	}

	fmt.Printf("Reset %d topics for source %q\n", removed, source)
	return nil
}
