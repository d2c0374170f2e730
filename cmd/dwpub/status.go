package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/randysalars/dreamweaving-publisher/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline state and the upload queue",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().Int("queue", 5, "number of queued sessions to preview")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	queueSize, _ := cmd.Flags().GetInt("queue")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	counts, err := st.CountByStatus()
	if err != nil {
		return err
	}

	fmt.Println("Sessions by status:")
	for _, status := range []store.SessionStatus{
		store.StatusPending, store.StatusGenerating, store.StatusComplete, store.StatusFailed,
	} {
		if n := counts[status]; n > 0 {
			fmt.Printf("  %-11s %d\n", status, n)
		}
	}

	longTotal, longFailed, err := st.CountUploads(store.KindLong)
	if err != nil {
		return err
	}
	shortTotal, shortFailed, err := st.CountUploads(store.KindShort)
	if err != nil {
		return err
	}
	fmt.Printf("\nUpload attempts: %d long-form (%d failed), %d shorts (%d failed)\n",
		longTotal, longFailed, shortTotal, shortFailed)

	sessions, err := st.ListSessions()
	if err != nil {
		return err
	}

	var published, archived int
	var hotBytes int64
	for _, sn := range sessions {
		if sn.UploadedToPlatform {
			published++
		}
		if sn.Archived {
			archived++
		}
		if !sn.Archived && sn.VideoPath != "" {
			if info, err := os.Stat(sn.VideoPath); err == nil {
				hotBytes += info.Size()
			}
		}
	}
	fmt.Printf("Published: %d   Archived: %d   Hot storage: %s\n",
		published, archived, humanize.Bytes(uint64(hotBytes)))

	strategy, err := store.ParseStrategy(GetConfigString("strategy", "quality"))
	if err != nil {
		return err
	}

	var queue []*store.Session
	for _, sn := range sessions {
		if eligibleForUpload(sn) {
			queue = append(queue, sn)
		}
	}
	sort.SliceStable(queue, func(i, j int) bool {
		return before(queue[i], queue[j], strategy)
	})

	fmt.Printf("\nUpload queue (strategy: %s):\n", strategy)
	if len(queue) == 0 {
		fmt.Println("  (empty)")
		return nil
	}
	for i, sn := range queue {
		if i >= queueSize {
			fmt.Printf("  ... and %d more\n", len(queue)-queueSize)
			break
		}
		fmt.Printf("  %d. %-30s quality %.1f  created %s\n",
			i+1, sn.Name, sn.QualityScore, humanize.Time(sn.CreatedAt))
	}
	return nil
}

func eligibleForUpload(sn *store.Session) bool {
	return sn.Status == store.StatusComplete && sn.VideoPath != "" && !sn.UploadedToPlatform
}

func before(a, b *store.Session, strategy store.Strategy) bool {
	switch strategy {
	case store.StrategyFIFO:
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
	case store.StrategyPriority:
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		fallthrough
	default:
		if a.QualityScore != b.QualityScore {
			return a.QualityScore > b.QualityScore
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	return a.ID < b.ID
}
