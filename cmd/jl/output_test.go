package main

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"testing"

	"github.com/alfredjeanlab/jobline/internal/client"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestExplain(t *testing.T) {
	tests := []struct {
		name string
		err  error
		hint string // empty means no hint appended
	}{
		{"plain", errors.New("boom"), ""},
		{"not found", &client.APIError{StatusCode: http.StatusNotFound, Message: "job not found"}, ""},
		{"duplicate", &client.APIError{StatusCode: http.StatusConflict, Message: "job already exists"}, ""},
		{"no session", &client.APIError{StatusCode: http.StatusUnauthorized, Message: "session required"}, "jl session activate"},
		{"denied", &client.APIError{StatusCode: http.StatusForbidden, Message: "access denied", State: "denied", Reason: "expired"}, "jl session activate"},
		{"loading http", fmt.Errorf("claiming 1: %w", &client.APIError{StatusCode: http.StatusConflict, Message: "verifying", State: "loading"}), "still running"},
		{"loading grpc", status.Error(codes.FailedPrecondition, "verifying"), "still running"},
		{"denied grpc", status.Error(codes.PermissionDenied, "access denied"), "jl session activate"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := explain(tc.err)
			if !strings.HasPrefix(got, tc.err.Error()) {
				t.Errorf("explain() = %q, should start with the error text", got)
			}
			if tc.hint == "" {
				if got != tc.err.Error() {
					t.Errorf("explain() = %q, want no hint", got)
				}
				return
			}
			if !strings.Contains(got, tc.hint) {
				t.Errorf("explain() = %q, want hint containing %q", got, tc.hint)
			}
		})
	}
}

var reANSI = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func TestColorizeHelpOutput(t *testing.T) {
	in := "Usage:\n  jl lane [pending|active|completed]\n\nLanes:\n  claim       Accept a pending job\n\nFlags:\n      --wait duration   how long (default \"10s\")\n"
	out := colorizeHelpOutput(in)

	if out == in {
		t.Fatal("expected styling to be applied")
	}
	if plain := reANSI.ReplaceAllString(out, ""); plain != in {
		t.Errorf("stripped output differs from input:\n got %q\nwant %q", plain, in)
	}
}

func TestWriteHelpPlain(t *testing.T) {
	var buf strings.Builder
	writeHelp(&buf, "Lanes:\n  claim  Accept a pending job\n", false)
	if strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("plain help contains ANSI codes: %q", buf.String())
	}
}
