package main

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/alfredjeanlab/jobline/internal/ui"
	"github.com/spf13/cobra"
)

var (
	// Unindented lines ending in ":" ("Lanes:", "Flags:").
	reGroupHeader = regexp.MustCompile(`(?m)^([A-Z][^\n]*:)[ \t]*$`)

	// Two-space indent, a command name, then at least two spaces.
	reCommand = regexp.MustCompile(`(?m)^(  )(\S+)(  )`)

	// Flag value types: "--server string", "--wait duration".
	reFlagType = regexp.MustCompile(`(--?\S+\s+)(string|int|duration|stringSlice)`)

	reDefault = regexp.MustCompile(`\(default "[^"]*"\)`)

	// Lane names in usage strings such as "lane [pending|active|completed]".
	reLaneArg = regexp.MustCompile(`\b(pending|active|completed)\b`)
)

// colorizedHelpFunc prints the command's long description and usage, styled
// when the terminal supports color.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		var buf bytes.Buffer
		if desc := strings.TrimSpace(cmd.Long); desc != "" {
			fmt.Fprintf(&buf, "%s\n\n", desc)
		} else if cmd.Short != "" {
			fmt.Fprintf(&buf, "%s\n\n", cmd.Short)
		}

		orig := cmd.OutOrStdout()
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(orig)

		writeHelp(orig, buf.String(), ui.ShouldUseColor())
	}
}

func writeHelp(w io.Writer, text string, color bool) {
	if color {
		text = colorizeHelpOutput(text)
	}
	fmt.Fprint(w, text)
}

// colorizeHelpOutput applies ANSI styling to Cobra's plain-text help.
func colorizeHelpOutput(s string) string {
	s = reGroupHeader.ReplaceAllStringFunc(s, func(match string) string {
		return ui.RenderAccent(strings.TrimSpace(match))
	})
	s = reCommand.ReplaceAllStringFunc(s, func(match string) string {
		parts := reCommand.FindStringSubmatch(match)
		return parts[1] + ui.RenderCommand(parts[2]) + parts[3]
	})
	s = reFlagType.ReplaceAllStringFunc(s, func(match string) string {
		parts := reFlagType.FindStringSubmatch(match)
		return parts[1] + ui.RenderMuted(parts[2])
	})
	s = reLaneArg.ReplaceAllStringFunc(s, ui.RenderLane)
	return reDefault.ReplaceAllStringFunc(s, ui.RenderMuted)
}
