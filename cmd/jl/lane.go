package main

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/jobline/internal/model"
	"github.com/spf13/cobra"
)

var laneCmd = &cobra.Command{
	Use:     "lane [pending|active|completed]",
	Short:   "List the jobs in a lane (all lanes when none is given)",
	GroupID: "lanes",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		if len(args) == 1 {
			lane, ok := model.ParseLane(args[0])
			if !ok {
				return fmt.Errorf("unknown lane %q (must be pending, active, or completed)", args[0])
			}
			jobs, err := jobsClient.ListLane(ctx, lane.String())
			if err != nil {
				return fmt.Errorf("listing %s: %w", lane, err)
			}
			printJobTable(lane, jobs)
			return nil
		}

		all := make(map[model.Lane][]*model.Job, len(model.Lanes))
		for _, lane := range model.Lanes {
			jobs, err := jobsClient.ListLane(ctx, lane.String())
			if err != nil {
				return fmt.Errorf("listing %s: %w", lane, err)
			}
			all[lane] = jobs
		}
		if jsonOutput {
			printJSON(all)
			return nil
		}
		for i, lane := range model.Lanes {
			if i > 0 {
				fmt.Println()
			}
			printJobTable(lane, all[lane])
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:     "show <id>",
	Short:   "Show a job and the lane it sits in",
	GroupID: "lanes",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lj, err := jobsClient.GetJob(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("getting job %s: %w", args[0], err)
		}
		printJob(lj.Lane, lj.Job)
		return nil
	},
}
