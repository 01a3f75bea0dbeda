package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/alfredjeanlab/jobline/internal/model"
	"github.com/spf13/cobra"
)

// sessionState is the session remembered between jl invocations.
type sessionState struct {
	ID       string `toml:"id"`
	Identity string `toml:"identity"`
}

func sessionStatePath() (string, error) { return statePath("session.toml") }

func loadSessionState() (sessionState, error) {
	path, err := sessionStatePath()
	if err != nil {
		return sessionState{}, err
	}
	var st sessionState
	if err := readTOML(path, &st); err != nil {
		return sessionState{}, err
	}
	return st, nil
}

func saveSessionState(st sessionState) error {
	path, err := sessionStatePath()
	if err != nil {
		return err
	}
	return writeTOML(path, st)
}

func clearSessionState() error {
	path, err := sessionStatePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

var sessionCmd = &cobra.Command{
	Use:     "session",
	Short:   "Activate, inspect, or end the gated session",
	GroupID: "sessions",
}

var sessionActivateCmd = &cobra.Command{
	Use:   "activate <identity>",
	Short: "Start a session for an identity and wait for its entitlement check",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		identity := args[0]
		wait, _ := cmd.Flags().GetDuration("wait")
		ctx := context.Background()

		var sess *model.Session
		var err error
		if sessionID != "" {
			sess, err = jobsClient.ActivateSession(ctx, sessionID, identity)
		}
		if sessionID == "" || isNotFound(err) {
			sess, err = jobsClient.CreateSession(ctx, identity)
		}
		if err != nil {
			return fmt.Errorf("activating session: %w", err)
		}
		if err := saveSessionState(sessionState{ID: sess.ID, Identity: identity}); err != nil {
			return fmt.Errorf("saving session: %w", err)
		}

		if wait > 0 && sess.State == model.SessionLoading {
			if sess, err = jobsClient.GetSession(ctx, sess.ID, wait); err != nil {
				return fmt.Errorf("waiting for verification: %w", err)
			}
		}
		printSession(sess)
		if sess.State == model.SessionDenied {
			return fmt.Errorf("access denied (%s)", sess.Reason)
		}
		return nil
	},
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if sessionID == "" {
			return errors.New("no session; run 'jl session activate <identity>'")
		}
		wait, _ := cmd.Flags().GetDuration("wait")
		sess, err := jobsClient.GetSession(context.Background(), sessionID, wait)
		if err != nil {
			return fmt.Errorf("getting session: %w", err)
		}
		printSession(sess)
		return nil
	},
}

var sessionLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session here and at the identity provider",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if sessionID == "" {
			return errors.New("no session to log out of")
		}
		err := jobsClient.Logout(context.Background(), sessionID)
		if err != nil && !isNotFound(err) {
			return fmt.Errorf("logging out: %w", err)
		}
		if err := clearSessionState(); err != nil {
			return fmt.Errorf("clearing saved session: %w", err)
		}
		if !jsonOutput {
			fmt.Printf("Logged out of %s\n", sessionID)
		}
		return nil
	},
}

func init() {
	sessionActivateCmd.Flags().Duration("wait", 10*time.Second, "how long to wait for the entitlement check (0 = return immediately)")
	sessionStatusCmd.Flags().Duration("wait", 0, "block until a pending check settles, up to this long")

	sessionCmd.AddCommand(sessionActivateCmd)
	sessionCmd.AddCommand(sessionStatusCmd)
	sessionCmd.AddCommand(sessionLogoutCmd)
}
