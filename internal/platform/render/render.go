// Package render draws triage queues as terminal tables.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ordenaclinic/ordenaclinic/internal/domain/triage"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	metricsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	borderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// column holding the triage label, colored per level
const triageColumn = 3

// Age formats an age as "70y" or "2y 3m".
func Age(years, months int) string {
	if months == 0 {
		return strconv.Itoa(years) + "y"
	}
	return fmt.Sprintf("%dy %dm", years, months)
}

// Priority lists the legal-priority categories of p, or "-" when none apply.
func Priority(p triage.Patient) string {
	parts := make([]string, 0, 3)
	if p.IsElderly() {
		parts = append(parts, "elderly")
	}
	parts = append(parts, p.Flags().Names()...)
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

// QueueTable renders patients in the given order, numbered from 1.
func QueueTable(patients []triage.Patient) string {
	rows := make([][]string, 0, len(patients))
	for i, p := range patients {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			strconv.Itoa(p.ArrivalSeq()),
			p.Name(),
			p.TriageLevel().Label(),
			Age(p.AgeYears(), p.AgeMonths()),
			Priority(p),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("#", "Arrival", "Name", "Triage", "Age", "Priority").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == triageColumn && row >= 0 && row < len(patients) {
				return cellStyle.Foreground(lipgloss.Color(patients[row].TriageLevel().Color()))
			}
			return cellStyle
		})
	return t.String()
}

// MetricsLine summarizes a sort run on one line.
func MetricsLine(m triage.Metrics) string {
	stability := "unstable"
	if m.Stable {
		stability = "stable"
	}
	return metricsStyle.Render(fmt.Sprintf("%s: %d comparisons in %.3f ms (%s)",
		m.Algorithm, m.Comparisons, m.ElapsedMillis(), stability))
}

// Levels renders the triage scale legend.
func Levels() string {
	var sb strings.Builder
	for _, info := range triage.Levels() {
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(info.Color)).Render("●")
		fmt.Fprintf(&sb, "%s %d %s\n", swatch, info.Level, info.Label)
	}
	return sb.String()
}

// Report shows the queue in arrival order next to the sorted attendance
// order and its metrics.
func Report(arrival []triage.Patient, res triage.Result) string {
	if len(arrival) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Queue is empty"),
			MetricsLine(res.Metrics),
		) + "\n"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Arrival order"),
		QueueTable(arrival),
		"",
		titleStyle.Render("Attendance order"),
		QueueTable(res.Patients),
		MetricsLine(res.Metrics),
	) + "\n"
}
