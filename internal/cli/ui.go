package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/vizframe/pkg/pose"
	"github.com/matzehuels/vizframe/pkg/render/dot"
	"github.com/matzehuels/vizframe/pkg/store"
	"github.com/matzehuels/vizframe/pkg/transform"
	"github.com/matzehuels/vizframe/pkg/view"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleHeader    = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	styleReference = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
	styleInactive  = lipgloss.NewStyle().Foreground(colorDim)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printError(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// printFile prints a file output line.
func printFile(w io.Writer, path string) {
	fmt.Fprintln(w, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(w io.Writer, key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Fprintln(w, keyStyle.Render(key)+" "+StyleValue.Render(value))
}

// printReplay summarizes a replay on one line.
func printReplay(w io.Writer, res store.ReplayResult) {
	line := fmt.Sprintf("replayed %d samples", res.Pushed)
	if res.Rejected > 0 {
		line += StyleDim.Render(" · ") + StyleWarning.Render(fmt.Sprintf("%d rejected", res.Rejected))
	}
	if res.Skipped > 0 {
		line += StyleDim.Render(fmt.Sprintf(" · %d after --at", res.Skipped))
	}
	printInfo(w, "%s", line)
}

// =============================================================================
// Tables
// =============================================================================

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...)
}

// edgesTable renders the edges of a snapshot.
func edgesTable(s *view.Snapshot) string {
	rows := make([][]string, 0, len(s.Edges))
	for _, e := range s.Edges {
		latest := "—"
		if e.Kind == transform.KindDynamic && e.Samples > 0 {
			latest = e.Latest.Format(dot.TimeFormat)
		}
		rows = append(rows, []string{e.Source, e.Target, e.Kind.String(), strconv.Itoa(e.Samples), latest})
	}
	return newTable("Source", "Target", "Kind", "Samples", "Latest").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			e := s.Edges[row]
			if (col == 0 && e.Source == s.Reference) || (col == 1 && e.Target == s.Reference) {
				return styleReference
			}
			if e.Kind == transform.KindDynamic && e.Samples == 0 {
				return styleInactive
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

// pluginsTable renders the plugin states of a snapshot.
func pluginsTable(s *view.Snapshot) string {
	rows := make([][]string, 0, len(s.Plugins))
	for _, p := range s.Plugins {
		frame := p.DataFrame
		if frame == "" {
			frame = "—"
		}
		status := "unbound"
		if p.Bound {
			status = "bound"
		}
		rows = append(rows, []string{p.Name, frame, status, formatPose(p.Pose)})
	}
	return newTable("Plugin", "Data frame", "Status", "Pose in "+orDash(s.Reference)).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			if !s.Plugins[row].Bound {
				return styleInactive
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

// formatPose renders a translation and a w,x,y,z quaternion.
func formatPose(p pose.Pose) string {
	t, q := p.Translation, p.Rotation
	return fmt.Sprintf("[%.3f %.3f %.3f] (%.3f %.3f %.3f %.3f)", t[0], t[1], t[2], q.W, q.V[0], q.V[1], q.V[2])
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
