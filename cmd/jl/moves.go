package main

import (
	"context"
	"fmt"
	"time"

	"github.com/alfredjeanlab/jobline/internal/model"
	"github.com/alfredjeanlab/jobline/internal/ui"
	"github.com/spf13/cobra"
)

var claimCmd = &cobra.Command{
	Use:     "claim <id>",
	Short:   "Accept a pending job (pending -> active)",
	GroupID: "lanes",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := jobsClient.ClaimJob(context.Background(), args[0], actor)
		if err != nil {
			return fmt.Errorf("claiming %s: %w", args[0], err)
		}
		if jsonOutput {
			printJSON(job)
			return nil
		}
		fmt.Printf("Claimed %s (%s) -> %s\n", job.ID, job.CustomerName, ui.RenderLane(model.LaneActive.String()))
		return nil
	},
}

var rejectCmd = &cobra.Command{
	Use:     "reject <id>",
	Short:   "Decline a pending job, removing it from the lanes",
	GroupID: "lanes",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := jobsClient.RejectJob(context.Background(), args[0], actor); err != nil {
			return fmt.Errorf("rejecting %s: %w", args[0], err)
		}
		if jsonOutput {
			printJSON(map[string]string{"id": args[0], "status": "rejected"})
			return nil
		}
		fmt.Printf("Rejected %s\n", args[0])
		return nil
	},
}

var completeCmd = &cobra.Command{
	Use:     "complete <id>",
	Short:   "Finish an active job (active -> completed)",
	GroupID: "lanes",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var completedAt *time.Time
		if s, _ := cmd.Flags().GetString("completed-at"); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return fmt.Errorf("invalid --completed-at %q (want RFC3339): %w", s, err)
			}
			completedAt = &t
		}
		job, err := jobsClient.CompleteJob(context.Background(), args[0], completedAt, actor)
		if err != nil {
			return fmt.Errorf("completing %s: %w", args[0], err)
		}
		if jsonOutput {
			printJSON(job)
			return nil
		}
		fmt.Printf("Completed %s (%s) -> %s\n", job.ID, job.CustomerName, ui.RenderLane(model.LaneCompleted.String()))
		return nil
	},
}

func init() {
	completeCmd.Flags().String("completed-at", "", "completion time in RFC3339 (defaults to now on the server)")
}
