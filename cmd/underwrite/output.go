package main

import (
	"fmt"
	"os"

	"github.com/kalambet/underwrite/internal/validate"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := colorize(colorBold, label+":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", l, val)
}

// statusColor maps a check status to its display color.
func statusColor(s validate.Status) string {
	switch s {
	case validate.StatusPass:
		return colorGreen
	case validate.StatusFail:
		return colorRed
	case validate.StatusError:
		return colorYellow
	default:
		return colorCyan
	}
}

// printRun renders a whole validation run, one line per check.
func printRun(run *validate.Run) {
	header := fmt.Sprintf("Run %s  contact %s  %s", run.ID, run.ContactID,
		colorize(statusColor(run.Overall), string(run.Overall)))
	if run.Cached {
		header += colorize(colorCyan, "  (cached)")
	}
	fmt.Println(colorize(colorBold, header))

	for _, r := range run.Results {
		fmt.Printf("  %-28s %-8s %s\n",
			r.CheckID,
			colorize(statusColor(r.Status), string(r.Status)),
			r.Message,
		)
	}
}
