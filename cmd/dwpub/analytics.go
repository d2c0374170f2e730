package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/randysalars/dreamweaving-publisher/internal/analytics"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Show optimal publish times",
	Long: `Analytics prints the publish-timing advice derived from channel
viewership. A cached snapshot younger than the TTL is used without any
network call; --refresh forces a fresh fetch.`,
	RunE: runAnalytics,
}

func init() {
	analyticsCmd.Flags().Bool("refresh", false, "fetch fresh analytics regardless of cache age")
	rootCmd.AddCommand(analyticsCmd)
}

func runAnalytics(cmd *cobra.Command, args []string) error {
	refresh, _ := cmd.Flags().GetBool("refresh")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	client, err := newYouTubeClient(cmd.Context())
	if err != nil {
		return err
	}

	optimizer := newOptimizer(st, client)

	var times *analytics.Times
	if refresh {
		times = optimizer.Refresh(cmd.Context())
	} else {
		times = optimizer.OptimalTimes(cmd.Context())
	}

	fmt.Printf("Best long-form hour: %02d:00\n", times.LongHour)
	fmt.Printf("Best shorts hour:    %02d:00\n", times.ShortHour)
	fmt.Printf("Best day:            %s\n", times.Weekday)

	switch {
	case times.Fallback:
		fmt.Println("Source: fallback defaults (no analytics available)")
	case times.FromCache:
		fmt.Printf("Source: cache, fetched %s\n", humanize.Time(times.FetchedAt))
	default:
		fmt.Println("Source: fresh fetch")
	}
	return nil
}
