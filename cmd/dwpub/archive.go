package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var archiveAllCmd = &cobra.Command{
	Use:   "archive-all",
	Short: "Move all fully-published sessions to archival storage",
	Long: `Archive-all moves every session that has been uploaded to the platform
out of hot storage, continuing past individual failures.`,
	RunE: runArchiveAll,
}

var restoreCmd = &cobra.Command{
	Use:   "restore <session>",
	Short: "Move an archived session back to hot storage",
	Args:  cobra.ExactArgs(1),
	RunE:  runRestore,
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete on-disk directories of stale failed sessions",
	Long: `Cleanup deletes the session directories of failed generations whose last
update is older than the threshold. Database rows are kept for the audit
trail; only disk space is reclaimed.`,
	RunE: runCleanup,
}

func init() {
	archiveAllCmd.Flags().Bool("dry-run", false, "report what would be archived")
	restoreCmd.Flags().Bool("dry-run", false, "report what would be restored")
	cleanupCmd.Flags().Int("older-than", 7, "age threshold in days")
	cleanupCmd.Flags().Bool("dry-run", false, "report what would be deleted")

	rootCmd.AddCommand(archiveAllCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(cleanupCmd)
}

func runArchiveAll(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	logger := newEventLogger()
	defer logger.Close()

	manager, err := newArchiveManager(st, logger, dryRun)
	if err != nil {
		return err
	}

	result, err := manager.ArchiveAll(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Archived %d of %d sessions (%d failed)\n",
		result.Succeeded, result.Processed, result.Failed)
	if result.Failed > 0 {
		return fmt.Errorf("%d sessions failed to archive", result.Failed)
	}
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	logger := newEventLogger()
	defer logger.Close()

	manager, err := newArchiveManager(st, logger, dryRun)
	if err != nil {
		return err
	}

	if err := manager.Restore(args[0]); err != nil {
		return err
	}
	fmt.Printf("Restored session %q\n", args[0])
	return nil
}

func runCleanup(cmd *cobra.Command, args []string) error {
	olderThan, _ := cmd.Flags().GetInt("older-than")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	logger := newEventLogger()
	defer logger.Close()

	manager, err := newArchiveManager(st, logger, dryRun)
	if err != nil {
		return err
	}

	result, err := manager.CleanupIncomplete(cmd.Context(), olderThan)
	if err != nil {
		return err
	}

	fmt.Printf("Cleaned up %d of %d stale sessions (%d failed)\n",
		result.Succeeded, result.Processed, result.Failed)
	return nil
}
