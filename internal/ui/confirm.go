package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Confirm displays a warning box and asks the user to type word to proceed.
// Returns true only if the typed line matches word, ignoring case.
func Confirm(in io.Reader, out io.Writer, title string, warnings []string, word string) bool {
	var lines []string
	lines = append(lines, WarnStyle.Bold(true).Render(fmt.Sprintf("%s  %s", WarningMarker, title)), "")
	for _, warning := range warnings {
		lines = append(lines, ValueStyle.Render("• "+warning))
	}

	fmt.Fprintln(out, boxStyle(WarningColor, GetTerminalWidth()).Render(strings.Join(lines, "\n")))
	fmt.Fprint(out, WarnStyle.Bold(true).Render(fmt.Sprintf("Type %q to proceed: ", word)))

	input, err := bufio.NewReader(in).ReadString('\n')
	fmt.Fprintln(out)
	if err != nil && input == "" {
		return false
	}

	if strings.EqualFold(strings.TrimSpace(input), word) {
		return true
	}

	fmt.Fprintln(out, lipgloss.NewStyle().Foreground(MutedColor).Render("Cancelled."))
	return false
}

// ConfirmReset asks before restoring factory settings
func ConfirmReset(in io.Reader, out io.Writer, fridge string) bool {
	return Confirm(in, out,
		"RESET "+strings.ToUpper(fridge),
		[]string{
			"Every setting returns to its factory value",
			"Target temperatures, battery protection and corrections are lost",
		},
		"reset",
	)
}
