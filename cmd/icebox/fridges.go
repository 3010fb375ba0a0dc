package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/muurk/icebox/internal/config"
	"github.com/muurk/icebox/internal/ui"
)

func init() {
	fridgesCmd.AddCommand(fridgesListCmd)
	fridgesCmd.AddCommand(fridgesAddCmd)
	fridgesCmd.AddCommand(fridgesRemoveCmd)
	fridgesCmd.AddCommand(fridgesDefaultCmd)
	rootCmd.AddCommand(fridgesCmd)
}

// fridgesCmd manages the saved fridges in the config file
var fridgesCmd = &cobra.Command{
	Use:   "fridges",
	Short: "Manage saved fridges",
	Long: `List, add and remove the fridges saved in the config file.
Saved fridges are picked with --fridge NAME; the default fridge is used when
neither --fridge, --port nor --url is given.`,
	Args: cobra.NoArgs,
	RunE: runFridgesList,
}

var fridgesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved fridges",
	Args:  cobra.NoArgs,
	RunE:  runFridgesList,
}

func runFridgesList(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format() == ui.FormatJSON {
		return writeJSON(out, reg.Fridges)
	}

	names := reg.FridgeNames()
	if len(names) == 0 {
		fmt.Fprintln(out, "No fridges saved.")
		fmt.Fprintln(out, "Add one with 'icebox fridges add NAME --port /dev/ttyUSB0' or '--url ws://...'")
		return nil
	}

	for _, name := range names {
		f := reg.Fridges[name]
		marker := " "
		if name == reg.Preferences.DefaultFridge {
			marker = ui.OnlineMarker
		}
		fields := []ui.Field{
			{Key: "Transport", Value: f.Transport},
			{Key: "Address", Value: f.Address},
		}
		if f.BLEAddr != "" {
			fields = append(fields, ui.Field{Key: "BLE address", Value: f.BLEAddr})
		}
		if !f.LastSeen.IsZero() {
			fields = append(fields, ui.Field{Key: "Last seen", Value: f.LastSeen.Local().Format("2006-01-02 15:04")})
		}
		if format() == ui.FormatCompact {
			fmt.Fprintf(out, "%s %-12s %-9s %s\n", marker, name, f.Transport, f.Address)
			continue
		}
		fmt.Fprintln(out, ui.NewHeader(marker+" "+name, f.Nickname, fields...).Render())
	}
	return nil
}

// add flags
var (
	addNickname string
	addBLEAddr  string
	addDefault  bool
	addDualZone bool
)

var fridgesAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Save a fridge",
	Long: `Save the fridge reached through --port or --url under NAME. Saving an
existing NAME replaces it. Global flags --baud, --user, --insecure, --lenient
and --bind are stored with the fridge.`,
	Example: `  icebox fridges add camper --port /dev/ttyUSB0 --ble-addr C8:47:8C:00:00:01 --default
  icebox fridges add garage --url wss://gw.local/fridge --user admin --bind`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}

		f := &config.Fridge{
			Nickname: addNickname,
			BLEAddr:  addBLEAddr,
			Baud:     baudRate,
			Username: gatewayUser,
			Insecure: insecureTLS,
			Lenient:  lenient,
			Bind:     bindFirst,
			DualZone: addDualZone,
		}
		switch {
		case serialPort != "" && gatewayURL != "":
			return fmt.Errorf("--port and --url are mutually exclusive")
		case serialPort != "":
			f.Transport, f.Address = config.TransportSerial, serialPort
		case gatewayURL != "":
			f.Transport, f.Address = config.TransportWebSocket, gatewayURL
		default:
			return fmt.Errorf("--port or --url is required")
		}

		name := args[0]
		if err := reg.SetFridge(name, f); err != nil {
			return err
		}
		if addDefault || len(reg.Fridges) == 1 {
			reg.Preferences.DefaultFridge = name
		}
		if err := reg.Save(); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderSuccess("Fridge saved",
			ui.Field{Key: "Name", Value: name},
			ui.Field{Key: "Transport", Value: f.Transport},
			ui.Field{Key: "Address", Value: f.Address},
			ui.Field{Key: "Config", Value: reg.Path()},
		))
		return nil
	},
}

func init() {
	fridgesAddCmd.Flags().StringVar(&addNickname, "nickname", "", "Display name")
	fridgesAddCmd.Flags().StringVar(&addBLEAddr, "ble-addr", "", "Fridge BLE address, used in MQTT topics")
	fridgesAddCmd.Flags().BoolVar(&addDefault, "default", false, "Make this the default fridge")
	fridgesAddCmd.Flags().BoolVar(&addDualZone, "dual-zone", false, "Note the fridge has two zones")
}

var fridgesRemoveCmd = &cobra.Command{
	Use:     "remove NAME",
	Aliases: []string{"rm"},
	Short:   "Forget a saved fridge",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		if !reg.RemoveFridge(args[0]) {
			return fmt.Errorf("fridge %q is not saved", args[0])
		}
		if err := reg.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
		return nil
	},
}

var fridgesDefaultCmd = &cobra.Command{
	Use:   "default NAME",
	Short: "Set the default fridge",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		if reg.GetFridge(args[0]) == nil {
			return fmt.Errorf("fridge %q is not saved", args[0])
		}
		reg.Preferences.DefaultFridge = args[0]
		if err := reg.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Default fridge is now %s\n", args[0])
		return nil
	},
}
