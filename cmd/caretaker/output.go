package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// renderMarkdown renders content for the terminal, falling back to the raw
// text when rendering fails.
func renderMarkdown(content string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return out
}

func printCost(w io.Writer, cost, monthly decimal.Decimal) {
	if cost.IsZero() && monthly.IsZero() {
		return
	}
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("💰 cost $%s, month to date $%s", cost.StringFixed(4), monthly.StringFixed(2))))
}

func printWarnings(w io.Writer, warnings []string) {
	for _, warning := range warnings {
		fmt.Fprintln(w, warnStyle.Render("⚠️  "+warning))
	}
}

func printSkipped(w io.Writer, filename, reason string) {
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("⏭️  skipped %s (%s)", filename, reason)))
}
