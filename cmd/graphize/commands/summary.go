package commands

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-graphize/pkg/pipeline"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF"))

	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(0, 2).
			MarginRight(2)

	typesBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(0, 2)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFF00"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

// renderSummary formats a finished run for the terminal
func renderSummary(r *pipeline.Report) string {
	var stats strings.Builder
	fmt.Fprintf(&stats, "Nodes written:  %d\n", r.Written.Nodes)
	fmt.Fprintf(&stats, "Edges written:  %d\n", r.Written.Edges)
	if r.Bytes > 0 {
		fmt.Fprintf(&stats, "Bytes:          %d\n", r.Bytes)
	}
	fmt.Fprintf(&stats, "Duration:       %s", r.Duration.Round(time.Millisecond))
	if r.Dangling > 0 {
		stats.WriteString("\n" + warnStyle.Render(fmt.Sprintf("Dangling refs:  %d", r.Dangling)))
	}
	if r.Written.Dropped > 0 {
		stats.WriteString("\n" + warnStyle.Render(fmt.Sprintf("Unmapped edges: %d", r.Written.Dropped)))
	}

	names := make([]string, 0, len(r.Records))
	for name := range r.Records {
		names = append(names, name)
	}
	sort.Strings(names)

	var types strings.Builder
	types.WriteString("Records by type")
	for _, name := range names {
		fmt.Fprintf(&types, "\n%-16s %d", name, r.Records[name])
		if n := r.Filtered[name]; n > 0 {
			types.WriteString(helpStyle.Render(fmt.Sprintf(" (%d filtered)", n)))
		}
	}

	title := titleStyle.Render(fmt.Sprintf("graphize %s -> %s", r.Output, r.Destination))
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		statsBoxStyle.Render(stats.String()),
		typesBoxStyle.Render(types.String()))
	return lipgloss.JoinVertical(lipgloss.Left, title, body, helpStyle.Render("run "+r.RunID))
}
