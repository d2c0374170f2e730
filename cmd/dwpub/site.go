package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/randysalars/dreamweaving-publisher/internal/store"
	"github.com/randysalars/dreamweaving-publisher/internal/util"
)

var siteCmd = &cobra.Command{
	Use:   "site <session> <url>",
	Short: "Record that a session is live on the website",
	Long: `Site marks a session as published on the website at the given URL.
Website publication makes the session eligible for shorts, which drive
traffic to the full upload later.`,
	Args: cobra.ExactArgs(2),
	RunE: runSite,
}

func init() {
	rootCmd.AddCommand(siteCmd)
}

func runSite(cmd *cobra.Command, args []string) error {
	name, url := args[0], args[1]

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	session, err := st.GetSession(name)
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("%w: session %s", util.ErrNotFound, name)
	}
	if session.Status != store.StatusComplete {
		return fmt.Errorf("session %s is %s, not complete", name, session.Status)
	}

	uploaded := true
	now := time.Now()
	if err := st.Transition(name, store.SessionUpdate{
		UploadedToSite: &uploaded,
		SiteURL:        &url,
		SiteUploadedAt: &now,
	}); err != nil {
		return err
	}

	fmt.Printf("Session %q marked live on site: %s\n", name, url)
	return nil
}
