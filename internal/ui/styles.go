// Package ui holds the terminal styling used by the jl CLI.
package ui

import "fmt"

// ANSI256 color codes.
const (
	colorAccent  = 74  // blue
	colorCmd     = 250 // light gray
	colorMuted   = 245 // medium gray
	colorPending = 179 // amber
	colorActive  = 74  // blue
	colorDone    = 114 // green
	colorDenied  = 167 // red
)

var noColor bool

func render(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return render(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return render(colorMuted, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return render(colorCmd, s) }

// RenderLane colors a lane name: pending amber, active blue, completed green.
func RenderLane(lane string) string {
	switch lane {
	case "pending":
		return render(colorPending, lane)
	case "active":
		return render(colorActive, lane)
	case "completed":
		return render(colorDone, lane)
	}
	return lane
}

// RenderState colors a session state: granted green, denied red, loading muted.
func RenderState(state string) string {
	switch state {
	case "granted":
		return render(colorDone, state)
	case "denied":
		return render(colorDenied, state)
	case "loading":
		return render(colorMuted, state)
	}
	return state
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
