package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/alfredjeanlab/jobline/internal/client"
	"github.com/alfredjeanlab/jobline/internal/ui"
	"github.com/spf13/cobra"
)

var (
	serverAddr string
	httpURL    string
	transport  string
	token      string
	sessionID  string
	jsonOutput bool
	actor      string

	jobsClient client.JobsClient
)

func defaultActor() string {
	if s := os.Getenv("JOBS_ACTOR"); s != "" {
		return s
	}
	out, err := exec.Command("git", "config", "user.name").Output()
	if err == nil {
		name := strings.TrimSpace(string(out))
		if name != "" {
			return name
		}
	}
	return "unknown"
}

func defaultHTTPURL() string {
	if s := os.Getenv("JOBS_HTTP_URL"); s != "" {
		return s
	}
	if r := activeRemote(); r.HTTPURL != "" {
		return r.HTTPURL
	}
	return "http://localhost:8080"
}

func defaultServer() string {
	if s := os.Getenv("JOBS_SERVER"); s != "" {
		return s
	}
	if r := activeRemote(); r.URL != "" {
		return r.URL
	}
	return "localhost:9090"
}

func defaultToken() string {
	if s := os.Getenv("JOBS_TOKEN"); s != "" {
		return s
	}
	return activeRemote().Token
}

// newClient builds the client for the selected transport.
func newClient() (client.JobsClient, error) {
	switch transport {
	case "http":
		return client.NewHTTPClient(httpURL, token), nil
	case "grpc":
		c, err := client.NewGRPCClient(serverAddr, token)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to server: %w", err)
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown transport %q (must be http or grpc)", transport)
}

var rootCmd = &cobra.Command{
	Use:           "jl <command>",
	Short:         "CLI client for the jobs service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		jobsClient = c
		var identity string
		if sessionID == "" {
			if st, err := loadSessionState(); err == nil {
				sessionID, identity = st.ID, st.Identity
			}
		}
		if sessionID != "" {
			jobsClient.SetSession(sessionID)
			// Gated moves act as the session identity; an empty actor lets
			// the server fill it in.
			if f := cmd.Flag("actor"); f == nil || !f.Changed {
				actor = identity
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if jobsClient != nil {
			jobsClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "http-url", defaultHTTPURL(), "HTTP server URL")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", defaultServer(), "gRPC server address")
	rootCmd.PersistentFlags().StringVar(&transport, "transport", "http", "transport protocol (http or grpc)")
	rootCmd.PersistentFlags().StringVar(&token, "token", defaultToken(), "bearer token for the server")
	rootCmd.PersistentFlags().StringVar(&sessionID, "session", os.Getenv("JOBS_SESSION"), "session id (defaults to the one saved by 'jl session activate')")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", defaultActor(), "worker name recorded on lane moves")

	rootCmd.AddGroup(
		&cobra.Group{ID: "lanes", Title: "Lanes:"},
		&cobra.Group{ID: "sessions", Title: "Sessions:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Lanes
	rootCmd.AddCommand(laneCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(claimCmd)
	rootCmd.AddCommand(rejectCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(showEventsCmd)

	// Sessions
	rootCmd.AddCommand(sessionCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(rosterCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(remoteCmd)
}

func main() {
	ui.Init()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", explain(err))
		os.Exit(1)
	}
}
