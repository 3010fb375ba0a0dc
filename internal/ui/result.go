package ui

import (
	"fmt"
	"strings"
)

// ResultType indicates success or failure
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
	ResultWarning
)

// Result is the box printed after a command that changes the fridge
type Result struct {
	Type            ResultType // Success, failure, or warning
	Title           string     // e.g. "Target set"
	Details         []Field    // Rows to display, in order
	Error           error      // Error (for failure results)
	Troubleshooting []string   // Hints (for failure results)
	Width           int        // Terminal width
}

// NewSuccessResult creates a success result box
func NewSuccessResult(title string, details ...Field) *Result {
	return &Result{Type: ResultSuccess, Title: title, Details: details, Width: GetTerminalWidth()}
}

// NewFailureResult creates a failure result box. Hints are derived from err
// when troubleshooting is empty.
func NewFailureResult(title string, err error, troubleshooting ...string) *Result {
	if len(troubleshooting) == 0 {
		troubleshooting = Hints(err)
	}
	return &Result{
		Type:            ResultFailure,
		Title:           title,
		Error:           err,
		Troubleshooting: troubleshooting,
		Width:           GetTerminalWidth(),
	}
}

// NewWarningResult creates a warning result box
func NewWarningResult(title string, details ...Field) *Result {
	return &Result{Type: ResultWarning, Title: title, Details: details, Width: GetTerminalWidth()}
}

// SetWidth sets the terminal width for responsive rendering
func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

// AddDetail appends a row
func (r *Result) AddDetail(key, value string) *Result {
	r.Details = append(r.Details, Field{Key: key, Value: value})
	return r
}

// Render returns the styled result box as a string
func (r *Result) Render() string {
	var lines []string

	switch r.Type {
	case ResultFailure:
		lines = append(lines, ErrorTitleStyle.Render(fmt.Sprintf("%s  FAILED  ─  %s", FailureMarker, r.Title)))
		if r.Error != nil {
			lines = append(lines, "", ErrorMessageStyle.Render("Error: "+r.Error.Error()))
		}
		if len(r.Troubleshooting) > 0 {
			lines = append(lines, "", SectionStyle.Render("Troubleshooting:"))
			for _, tip := range r.Troubleshooting {
				lines = append(lines, HintStyle.Render("  • "+tip))
			}
		}
		return boxStyle(ErrorColor, r.Width).Render(strings.Join(lines, "\n"))

	case ResultWarning:
		lines = append(lines, WarnStyle.Bold(true).Render(fmt.Sprintf("%s  WARNING  ─  %s", WarningMarker, r.Title)))
		if len(r.Details) > 0 {
			lines = append(lines, "", renderFields(r.Details))
		}
		return boxStyle(WarningColor, r.Width).Render(strings.Join(lines, "\n"))

	default:
		lines = append(lines, SuccessTitleStyle.Render(fmt.Sprintf("%s  %s", SuccessMarker, r.Title)))
		if len(r.Details) > 0 {
			lines = append(lines, "", renderFields(r.Details))
		}
		return boxStyle(SuccessColor, r.Width).Render(strings.Join(lines, "\n"))
	}
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}

// RenderSuccess renders a success box with the given title and details
func RenderSuccess(title string, details ...Field) string {
	return NewSuccessResult(title, details...).Render()
}

// RenderFailure renders a failure box for err
func RenderFailure(title string, err error) string {
	return NewFailureResult(title, err).Render()
}
