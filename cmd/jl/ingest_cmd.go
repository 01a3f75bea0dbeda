package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alfredjeanlab/jobline/internal/client"
	"github.com/alfredjeanlab/jobline/internal/ingest"
	"github.com/alfredjeanlab/jobline/internal/model"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:     "ingest",
	Short:   "Add a job to the pending lane, or load many from a file",
	GroupID: "lanes",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		if file, _ := cmd.Flags().GetString("file"); file != "" {
			jobs, err := ingest.LoadSeedFile(file)
			if err != nil {
				return err
			}
			var added, skipped int
			for _, j := range jobs {
				if _, err := jobsClient.IngestJob(ctx, j); err != nil {
					if client.IsAlreadyExists(err) {
						skipped++
						continue
					}
					return fmt.Errorf("ingesting %s: %w", j.ID, err)
				}
				added++
			}
			if jsonOutput {
				printJSON(map[string]int{"added": added, "skipped": skipped})
			} else {
				fmt.Printf("Ingested %d jobs (%d already present)\n", added, skipped)
			}
			return nil
		}

		job, err := jobFromFlags(cmd)
		if err != nil {
			return err
		}
		created, err := jobsClient.IngestJob(ctx, job)
		if err != nil {
			return fmt.Errorf("ingesting job: %w", err)
		}
		if jsonOutput {
			printJSON(created)
			return nil
		}
		fmt.Printf("Ingested %s into pending\n", created.ID)
		return nil
	},
}

func jobFromFlags(cmd *cobra.Command) (*model.Job, error) {
	id, _ := cmd.Flags().GetString("id")
	customer, _ := cmd.Flags().GetString("customer")
	jobType, _ := cmd.Flags().GetString("type")
	scheduled, _ := cmd.Flags().GetString("scheduled-at")
	location, _ := cmd.Flags().GetString("location")
	notes, _ := cmd.Flags().GetString("notes")

	if customer == "" || jobType == "" || scheduled == "" {
		return nil, errors.New("--customer, --type, and --scheduled-at are required (or use --file)")
	}
	at, err := time.Parse(time.RFC3339, scheduled)
	if err != nil {
		return nil, fmt.Errorf("invalid --scheduled-at %q (want RFC3339): %w", scheduled, err)
	}
	return &model.Job{
		ID:           id,
		CustomerName: customer,
		JobType:      jobType,
		ScheduledAt:  at,
		Location:     location,
		Notes:        notes,
	}, nil
}

func init() {
	ingestCmd.Flags().String("id", "", "job id (generated when empty)")
	ingestCmd.Flags().String("customer", "", "customer name")
	ingestCmd.Flags().String("type", "", "job type")
	ingestCmd.Flags().String("scheduled-at", "", "scheduled time in RFC3339")
	ingestCmd.Flags().String("location", "", "job location")
	ingestCmd.Flags().String("notes", "", "free-form notes")
	ingestCmd.Flags().StringP("file", "f", "", "TOML or YAML file with a [[jobs]] list")
}
