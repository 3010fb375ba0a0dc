package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Field is one key/value row. Rows render in the order given.
type Field struct {
	Key   string
	Value string
}

// Header is the banner above command output: the fridge name, how it is
// reached, and optional extra rows
type Header struct {
	Title    string  // e.g. "Camper fridge"
	Subtitle string  // e.g. "serial /dev/ttyUSB0"
	Fields   []Field // e.g. {"State", "bound"}
	Width    int     // Terminal width for responsive rendering
}

// NewHeader creates a new header with the given values
func NewHeader(title, subtitle string, fields ...Field) *Header {
	return &Header{
		Title:    title,
		Subtitle: subtitle,
		Fields:   fields,
		Width:    GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (h *Header) SetWidth(width int) *Header {
	h.Width = width
	return h
}

// Render returns the styled header as a string
func (h *Header) Render() string {
	width := h.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	sections := []string{TitleStyle.Render(h.Title)}
	if h.Subtitle != "" {
		sections = append(sections, SubtitleStyle.Render(h.Subtitle))
	}

	if len(h.Fields) > 0 {
		dividerWidth := width - 6 // Account for border and padding
		if dividerWidth < 10 {
			dividerWidth = 10
		}
		divider := lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Render(strings.Repeat("─", dividerWidth))
		sections = append(sections, divider, renderFields(h.Fields))
	}

	return boxStyle(PrimaryColor, width).Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// String implements fmt.Stringer
func (h *Header) String() string {
	return h.Render()
}

func renderFields(fields []Field) string {
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		lines = append(lines, KeyStyle.Render(" "+f.Key+":")+" "+ValueStyle.Render(f.Value))
	}
	return strings.Join(lines, "\n")
}
