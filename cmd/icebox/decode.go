package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/icebox/internal/logging"
	"github.com/muurk/icebox/internal/protocol"
	"github.com/muurk/icebox/internal/ui"
)

func init() {
	rootCmd.AddCommand(decodeCmd)
}

// decodeCmd analyses captured frames without a fridge
var decodeCmd = &cobra.Command{
	Use:   "decode HEX...",
	Short: "Decode a captured frame",
	Long: `Decode a frame captured from a bridge log or a BLE sniffer and show what
it carries. Arguments are joined; spaces, colons and 0x prefixes are
ignored.`,
	Example: `  icebox decode FE FE 03 01 02 00
  icebox decode fefe1501000101...
  icebox decode --lenient FE:FE:03:01:04:00`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := parseHex(strings.Join(args, ""))
		if err != nil {
			return err
		}
		d, err := decodeCapture(raw, lenient)
		if err != nil {
			return fail("Decode failed", err)
		}
		return d.write(cmd.OutOrStdout(), format())
	},
}

// parseHex accepts "FE FE 03", "fe:fe:03", "0xFE 0xFE" and "fefe03"
func parseHex(s string) ([]byte, error) {
	s = strings.ReplaceAll(strings.ToLower(s), "0x", "")
	s = strings.NewReplacer(" ", "", ":", "", "-", "", "\t", "", "\n", "").Replace(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return b, nil
}

// decoded is a frame and its interpretation
type decoded struct {
	Frame    protocol.Frame
	Kind     string // empty, bind, target, settings, status or unknown
	Status   *protocol.Status
	Settings *protocol.Settings
	Target   *int8
}

// decodeCapture decodes raw and guesses the payload type from the code and
// length. A set frame of exactly settings size is a request; any other
// payload of status size is a status.
func decodeCapture(raw []byte, lenient bool) (*decoded, error) {
	decode := protocol.Decode
	if lenient {
		decode = protocol.DecodeLenient
	}
	f, err := decode(raw)
	if err != nil {
		return nil, err
	}

	d := &decoded{Frame: f, Kind: "empty"}
	n := len(f.Payload)

	switch {
	case n == 0:
	case f.Code == protocol.CmdBind && n == 1:
		d.Kind = "bind"
	case (f.Code == protocol.CmdSetLeft || f.Code == protocol.CmdSetRight) && n == 1:
		t := int8(f.Payload[0])
		d.Kind, d.Target = "target", &t
	case f.Code == protocol.CmdSet && (n == protocol.SettingsSingleZoneSize || n == protocol.SettingsDualZoneSize):
		s, err := protocol.DecodeSettings(f.Payload)
		if err != nil {
			return nil, err
		}
		d.Kind, d.Settings = "settings", s
	case n >= protocol.StatusSingleZoneSize:
		s, err := protocol.DecodeStatus(f.Payload)
		if err != nil {
			return nil, err
		}
		d.Kind, d.Status = "status", s
	default:
		d.Kind = "unknown"
	}
	return d, nil
}

func (d *decoded) write(w io.Writer, format ui.Format) error {
	if format == ui.FormatJSON {
		return writeJSON(w, map[string]interface{}{
			"code":     d.Frame.Code.String(),
			"payload":  hex.EncodeToString(d.Frame.Payload),
			"kind":     d.Kind,
			"status":   d.Status,
			"settings": d.Settings,
			"target":   d.Target,
		})
	}

	fields := []ui.Field{
		{Key: "Code", Value: fmt.Sprintf("%s (0x%02X)", d.Frame.Code, byte(d.Frame.Code))},
		{Key: "Payload", Value: fmt.Sprintf("%d bytes", len(d.Frame.Payload))},
		{Key: "Carries", Value: d.Kind},
	}
	if d.Target != nil {
		fields = append(fields, ui.Field{Key: "Target", Value: fmt.Sprint(*d.Target)})
	}
	if d.Settings != nil {
		fields = append(fields, ui.Field{Key: "Zones", Value: zonesText(d.Settings.Right != nil)})
	}
	fmt.Fprintln(w, ui.NewHeader("Frame", logging.HexDump(d.Frame.Payload), fields...).Render())

	switch {
	case d.Status != nil:
		return ui.WriteStatus(w, format, "Status", d.Status)
	case d.Settings != nil:
		return writeJSON(w, d.Settings)
	}
	return nil
}

func zonesText(dual bool) string {
	if dual {
		return "dual"
	}
	return "single"
}
