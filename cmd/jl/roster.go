package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var rosterCmd = &cobra.Command{
	Use:     "roster",
	Short:   "Show workers seen recently and the jobs they hold",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stale, _ := cmd.Flags().GetDuration("stale")
		workers, err := jobsClient.Roster(context.Background(), stale)
		if err != nil {
			return fmt.Errorf("getting roster: %w", err)
		}
		printRoster(workers)
		return nil
	},
}

func init() {
	rosterCmd.Flags().Duration("stale", 10*time.Minute, "hide workers idle longer than this (0 = show all)")
}
