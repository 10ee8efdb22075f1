package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/devicelab-dev/cutscene-compiler/pkg/core"
	"github.com/devicelab-dev/cutscene-compiler/pkg/report"
	"github.com/devicelab-dev/cutscene-compiler/pkg/validator"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// colorsEnabled determines if ANSI colors should be used
var colorsEnabled = true

func init() {
	// Respect NO_COLOR environment variable
	if os.Getenv("NO_COLOR") != "" {
		colorsEnabled = false
		return
	}
	// Check if stdout is a terminal
	if fileInfo, err := os.Stdout.Stat(); err == nil {
		if (fileInfo.Mode() & os.ModeCharDevice) == 0 {
			colorsEnabled = false
		}
	}
}

// color returns the color code if colors are enabled, empty string otherwise
func color(c string) string {
	if colorsEnabled {
		return c
	}
	return ""
}

// printReport prints document-by-document diagnostics followed by a summary.
func printReport(w io.Writer, idx *report.Index) {
	for i, doc := range idx.Documents {
		label := doc.Title
		if label == "" {
			label = doc.CutsceneID
		}
		if label == "" {
			label = doc.SourceFile
		}
		fmt.Fprintf(w, "\n  %s[%d/%d]%s %s%s%s (%s)\n",
			color(colorCyan), i+1, len(idx.Documents), color(colorReset),
			color(colorBold), label, color(colorReset), doc.SourceFile)
		fmt.Fprintln(w, "  "+strings.Repeat("─", 60))

		if doc.Error != nil {
			fmt.Fprintf(w, "    %s✗%s %s\n", color(colorRed), color(colorReset), *doc.Error)
			continue
		}
		for _, d := range doc.Diagnostics {
			printDiagnostic(w, d)
		}

		counts := fmt.Sprintf("%d errors, %d warnings, %d tips", doc.Counts.Errors, doc.Counts.Warnings, doc.Counts.Tips)
		if doc.Status == report.StatusPassed {
			fmt.Fprintf(w, "  %s✓ passed%s %s(%s)%s\n", color(colorGreen), color(colorReset), color(colorGray), counts, color(colorReset))
		} else {
			fmt.Fprintf(w, "  %s✗ failed%s %s(%s)%s\n", color(colorRed), color(colorReset), color(colorGray), counts, color(colorReset))
		}
	}

	s := idx.Summary
	fmt.Fprintln(w)
	statusColor := color(colorGreen)
	if idx.Status.IsFailure() {
		statusColor = color(colorRed)
	}
	fmt.Fprintf(w, "  %s%d documents: %d passed, %d failed, %d invalid%s\n",
		statusColor, s.Total, s.Passed, s.Failed, s.Invalid, color(colorReset))
}

// printDiagnostic prints a single diagnostic line.
func printDiagnostic(w io.Writer, d validator.Diagnostic) {
	symbol, symbolColor := "ℹ", color(colorCyan)
	switch d.Severity {
	case core.SeverityError:
		symbol, symbolColor = "✗", color(colorRed)
	case core.SeverityWarn:
		symbol, symbolColor = "⚠", color(colorYellow)
	}

	fmt.Fprintf(w, "    %s%s%s %-5s %s: %s", symbolColor, symbol, color(colorReset), d.Severity, d.Rule, d.Message)
	if d.NodeID != "" {
		fmt.Fprintf(w, " %s(node: %s)%s", color(colorGray), d.NodeID, color(colorReset))
	}
	if d.EdgeID != "" {
		fmt.Fprintf(w, " %s(edge: %s)%s", color(colorGray), d.EdgeID, color(colorReset))
	}
	fmt.Fprintln(w)
}
