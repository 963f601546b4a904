package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/himanishpuri/sargam/pkg/models"
	"github.com/himanishpuri/sargam/pkg/sargam/raaga"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")).Bold(true)

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#333333"))
)

// octaveMarks suffix a swaram with its register: "Sa." is mandra and
// "Sa'" is tara.
var octaveMarks = map[models.Octave]string{
	models.Mandra: ".",
	models.Madhya: "",
	models.Tara:   "'",
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

func renderTranscription(t *models.Transcription) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Transcription") + "\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("Source: %s   Sa: %.2f Hz   Duration: %s   Request: %s",
		t.Source, t.Tonic, formatTime(t.DurationSec), t.RequestID)) + "\n\n")

	if len(t.Swarams) == 0 {
		b.WriteString("No swarams detected. The recording may be silent, noisy or outside the tracked range.\n")
		return b.String()
	}

	tbl := newTable("#", "Start", "End", "Swaram", "Octave", "Gamakam", "Confidence")
	for i, e := range t.Swarams {
		tbl.Row(
			fmt.Sprint(i+1),
			formatTime(e.Start),
			formatTime(e.End),
			string(e.Swaram)+octaveMarks[e.Octave],
			string(e.Octave),
			string(e.Gamakam),
			fmt.Sprintf("%.0f%%", e.Confidence*100),
		)
	}
	b.WriteString(tbl.String() + "\n\n")
	b.WriteString("Sequence: " + formatSequence(t.Swarams) + "\n\n")
	b.WriteString(renderMatch(t.Raaga))

	if len(t.Lyrics) > 0 {
		b.WriteString("\n" + titleStyle.Render("Lyrics") + "\n")
		for _, l := range t.Lyrics {
			fmt.Fprintf(&b, "  %s  %s\n", infoStyle.Render(formatTime(l.Start)), l.Text)
		}
	}
	return b.String()
}

func renderMatch(m *models.RaagaMatch) string {
	if m == nil {
		return "Raaga: no match\n"
	}
	var b strings.Builder
	b.WriteString(successStyle.Render(fmt.Sprintf("Raaga: %s (%s) %.1f%%", m.Name, m.Tradition, m.Confidence*100)) + "\n")
	fmt.Fprintf(&b, "   Arohana:   %s\n", formatPattern(m.Arohana))
	fmt.Fprintf(&b, "   Avarohana: %s\n", formatPattern(m.Avarohana))
	if m.Description != "" {
		b.WriteString(infoStyle.Render("   "+m.Description) + "\n")
	}
	return b.String()
}

func renderScores(scores []raaga.Score) string {
	tbl := newTable("Raaga", "Type", "Overlap", "Arohana", "Avarohana", "Total")
	for _, s := range scores {
		tbl.Row(
			s.Name,
			string(s.Tradition),
			fmt.Sprintf("%.3f", s.Overlap),
			fmt.Sprintf("%.3f", s.Ascending),
			fmt.Sprintf("%.3f", s.Descending),
			fmt.Sprintf("%.3f", s.Total),
		)
	}
	return tbl.String()
}

func renderRaagas(defs []models.RaagaDefinition) string {
	tbl := newTable("#", "Raaga", "Type", "Arohana", "Avarohana")
	for i, d := range defs {
		tbl.Row(fmt.Sprint(i+1), d.Name, string(d.Tradition), formatPattern(d.Arohana), formatPattern(d.Avarohana))
	}
	return tbl.String()
}

func renderDefinition(d models.RaagaDefinition) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(d.Name) + " " + infoStyle.Render(string(d.Tradition)) + "\n")
	fmt.Fprintf(&b, "   Arohana:   %s\n", formatPattern(d.Arohana))
	fmt.Fprintf(&b, "   Avarohana: %s\n", formatPattern(d.Avarohana))
	if d.Description != "" {
		fmt.Fprintf(&b, "   %s\n", d.Description)
	}
	return b.String()
}

func formatPattern(p []models.SwaramName) string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = string(s)
	}
	return strings.Join(parts, " ")
}

func formatSequence(events []models.NoteEvent) string {
	parts := make([]string, len(events))
	for i, e := range events {
		parts[i] = string(e.Swaram) + octaveMarks[e.Octave]
	}
	return strings.Join(parts, " ")
}

// formatTime renders seconds as m:ss.cc.
func formatTime(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	cs := int(sec*100 + 0.5)
	return fmt.Sprintf("%d:%02d.%02d", cs/6000, (cs/100)%60, cs%100)
}
