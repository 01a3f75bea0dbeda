package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/alfredjeanlab/jobline/internal/client"
	"github.com/alfredjeanlab/jobline/internal/model"
	"github.com/alfredjeanlab/jobline/internal/presence"
	"github.com/alfredjeanlab/jobline/internal/ui"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

func printJob(lane model.Lane, j *model.Job) {
	if jsonOutput {
		printJSON(model.LaneJob{Lane: lane, Job: j})
		return
	}
	fmt.Printf("ID:          %s\n", j.ID)
	if lane != "" {
		fmt.Printf("Lane:        %s\n", ui.RenderLane(lane.String()))
	}
	fmt.Printf("Customer:    %s\n", j.CustomerName)
	fmt.Printf("Type:        %s\n", j.JobType)
	fmt.Printf("Scheduled:   %s\n", formatTime(j.ScheduledAt))
	if j.Location != "" {
		fmt.Printf("Location:    %s\n", j.Location)
	}
	if j.Notes != "" {
		fmt.Printf("Notes:       %s\n", j.Notes)
	}
	if j.ClaimedBy != "" {
		fmt.Printf("Claimed By:  %s\n", j.ClaimedBy)
	}
	if j.ClaimedAt != nil {
		fmt.Printf("Claimed At:  %s\n", formatTime(*j.ClaimedAt))
	}
	if j.CompletedAt != nil {
		fmt.Printf("Completed:   %s\n", formatTime(*j.CompletedAt))
	}
}

func printJobTable(lane model.Lane, jobs []*model.Job) {
	if jsonOutput {
		printJSON(map[string]any{"lane": lane, "jobs": jobs})
		return
	}
	fmt.Println(ui.RenderLane(lane.String()))
	if len(jobs) == 0 {
		fmt.Println(ui.RenderMuted("  (empty)"))
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tCUSTOMER\tTYPE\tSCHEDULED\tWORKER")
	for _, j := range jobs {
		customer := j.CustomerName
		if len(customer) > 30 {
			customer = customer[:27] + "..."
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n", j.ID, customer, j.JobType, formatTime(j.ScheduledAt), j.ClaimedBy)
	}
	w.Flush()
}

func printSession(s *model.Session) {
	if jsonOutput {
		printJSON(s)
		return
	}
	fmt.Printf("Session:     %s\n", s.ID)
	fmt.Printf("Identity:    %s\n", s.Identity)
	fmt.Printf("State:       %s\n", ui.RenderState(s.State.String()))
	if s.Reason != "" {
		fmt.Printf("Reason:      %s\n", s.Reason)
	}
	if s.LastError != "" {
		fmt.Printf("Last Error:  %s\n", s.LastError)
	}
}

func printEvents(jobID string, evts []*model.Event) {
	if jsonOutput {
		printJSON(evts)
		return
	}
	if len(evts) == 0 {
		fmt.Printf("No events for %s\n", jobID)
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTOPIC\tACTOR")
	for _, e := range evts {
		fmt.Fprintf(w, "%s\t%s\t%s\n", formatTime(e.CreatedAt), e.Topic, e.Actor)
	}
	w.Flush()
}

func printRoster(workers []presence.Entry) {
	if jsonOutput {
		printJSON(workers)
		return
	}
	if len(workers) == 0 {
		fmt.Println("No active workers")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WORKER\tLAST ACTION\tIDLE\tACTIVE JOBS\tSTATUS")
	for _, e := range workers {
		status := ""
		if e.Reaped {
			status = ui.RenderMuted("reaped")
		}
		idle := time.Duration(e.IdleSecs * float64(time.Second)).Round(time.Second)
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", e.Actor, e.LastAction, idle, len(e.ActiveJobs), status)
	}
	w.Flush()
}

func isNotFound(err error) bool {
	return client.IsNotFound(err)
}

// explain turns gate and lane errors into hints a worker can act on.
func explain(err error) string {
	if !client.IsAccessDenied(err) {
		return err.Error()
	}
	var apiErr *client.APIError
	loading := status.Code(err) == codes.FailedPrecondition ||
		(errors.As(err, &apiErr) && apiErr.State == string(model.SessionLoading))
	if loading {
		return err.Error() + " (entitlement check still running; try 'jl session status --wait 10s')"
	}
	return err.Error() + " (run 'jl session activate <identity>')"
}
