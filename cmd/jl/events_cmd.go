package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var showEventsCmd = &cobra.Command{
	Use:     "show-events <job-id>",
	Short:   "Show the recorded lane moves of a job",
	GroupID: "lanes",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		evts, err := jobsClient.GetEvents(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("getting events: %w", err)
		}
		printEvents(args[0], evts)
		return nil
	},
}
