package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/icebox/internal/protocol"
)

// Format selects how a status is printed
type Format string

const (
	FormatDetailed Format = "detailed" // Boxed panels for terminals
	FormatCompact  Format = "compact"  // One line per status, for watch
	FormatJSON     Format = "json"     // One JSON report per line
)

// ParseFormat validates a --format value
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatDetailed, FormatCompact, FormatJSON:
		return f, nil
	case "":
		return FormatDetailed, nil
	}
	return "", fmt.Errorf("unknown format %q (want detailed, compact or json)", s)
}

// WriteStatus prints s to w in the given format. name labels the fridge in
// detailed and compact output.
func WriteStatus(w io.Writer, format Format, name string, s *protocol.Status) error {
	switch format {
	case FormatJSON:
		return json.NewEncoder(w).Encode(s.Report())
	case FormatCompact:
		_, err := fmt.Fprintln(w, CompactStatus(name, s))
		return err
	default:
		_, err := fmt.Fprintln(w, NewStatusView(name, s).Render())
		return err
	}
}

// CompactStatus renders s on a single line
func CompactStatus(name string, s *protocol.Status) string {
	sym := s.Unit.Symbol()
	parts := []string{
		TitleStyle.UnsetPaddingLeft().Render(name),
		powerText(s.PoweredOn),
		fmt.Sprintf("L %s", TempStyle.Render(fmt.Sprintf("%d%s→%d%s", s.LeftCurrent, sym, s.LeftTarget, sym))),
	}
	if s.Right != nil {
		parts = append(parts, fmt.Sprintf("R %s", TempStyle.Render(fmt.Sprintf("%d%s→%d%s", s.Right.Current, sym, s.Right.Target, sym))))
	}
	parts = append(parts,
		s.RunMode.String(),
		batteryText(s),
	)
	if s.Locked {
		parts = append(parts, WarnStyle.Render("locked"))
	}
	return strings.Join(parts, "  ")
}

// StatusView is the detailed rendering of one status
type StatusView struct {
	Name   string
	Status *protocol.Status
	Width  int
}

// NewStatusView creates a view sized to the terminal
func NewStatusView(name string, s *protocol.Status) *StatusView {
	return &StatusView{Name: name, Status: s, Width: GetTerminalWidth()}
}

// SetWidth sets the terminal width for responsive rendering
func (v *StatusView) SetWidth(width int) *StatusView {
	v.Width = width
	return v
}

// Render returns the styled status panels
func (v *StatusView) Render() string {
	s := v.Status
	sym := s.Unit.Symbol()

	header := NewHeader(v.Name, "", Field{"Power", powerText(s.PoweredOn)},
		Field{"Mode", s.RunMode.String()},
		Field{"Keypad", lockText(s.Locked)},
		Field{"Unit", s.Unit.String()},
	).SetWidth(v.Width).Render()

	leftZone := zonePanel("Left zone", sym, s.LeftCurrent, s.LeftTarget, s.LeftHysteresis, s.LeftCorrection)
	zones := []string{leftZone}
	if s.Right != nil {
		zones = append(zones, zonePanel("Right zone", sym, s.Right.Current, s.Right.Target, s.Right.Hysteresis, s.Right.Correction))
	}

	limits := []Field{
		{"Range", fmt.Sprintf("%d%s to %d%s", s.TempMin, sym, s.TempMax, sym)},
		{"Start delay", fmt.Sprintf("%d min", s.StartDelay)},
	}
	if s.RunningStatus != nil {
		limits = append(limits, Field{"Running", fmt.Sprintf("0x%02X", *s.RunningStatus)})
	}

	battery := []Field{
		{"Voltage", s.BatteryVoltage.String()},
		{"Charge", batteryPercentText(s.Battery)},
		{"Protection", s.BatterySaver.String()},
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		strings.Join(zones, "\n\n"),
		"",
		SectionStyle.Render("Limits"),
		renderFields(limits),
		"",
		SectionStyle.Render("Battery"),
		renderFields(battery),
	)
	return lipgloss.JoinVertical(lipgloss.Left, header, boxStyle(MutedColor, v.Width).Render(body))
}

// String implements fmt.Stringer
func (v *StatusView) String() string {
	return v.Render()
}

func zonePanel(title, sym string, current, target, hysteresis int8, c protocol.Corrections) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		SectionStyle.Render(title),
		renderFields([]Field{
			{"Current", TempStyle.Render(fmt.Sprintf("%d%s", current, sym))},
			{"Target", fmt.Sprintf("%d%s", target, sym)},
			{"Hysteresis", fmt.Sprintf("%d%s", hysteresis, sym)},
			{"Corrections", fmt.Sprintf("hot %d  mid %d  cold %d  halt %d", c.Hot, c.Mid, c.Cold, c.Halt)},
		}),
	)
}

func powerText(on bool) string {
	if on {
		return OnStyle.Render("on")
	}
	return OffStyle.Render("off")
}

func lockText(locked bool) string {
	if locked {
		return WarnStyle.Render("locked")
	}
	return "unlocked"
}

func batteryPercentText(c protocol.BatteryCharge) string {
	if c.Known() && uint8(c) <= lowBatteryPercent {
		return WarnStyle.Render(c.String())
	}
	return c.String()
}

func batteryText(s *protocol.Status) string {
	if !s.Battery.Known() {
		return s.BatteryVoltage.String()
	}
	return fmt.Sprintf("%s %s", s.BatteryVoltage, batteryPercentText(s.Battery))
}
