package main

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/icebox/internal/protocol"
	"github.com/muurk/icebox/internal/session"
	"github.com/muurk/icebox/internal/ui"
)

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(bindCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(targetCmd)
	rootCmd.AddCommand(resetCmd)
}

func format() ui.Format {
	f, _ := ui.ParseFormat(outputFormat)
	return f
}

// fail renders err in a failure box on detailed output and returns it so
// the exit status is non-zero
func fail(title string, err error) error {
	if format() == ui.FormatDetailed {
		fmt.Fprintln(errOut, ui.RenderFailure(title, err))
	}
	return err
}

// statusCmd queries the fridge once
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the fridge status",
	Long: `Query the fridge once and print its status: power, temperatures per zone,
limits, battery voltage and protection level.`,
	Example: `  # Saved default fridge
  icebox status

  # Serial bridge, JSON for scripting
  icebox status --port /dev/ttyUSB0 --format json

  # WebSocket gateway
  icebox status --url ws://gateway.local/fridge`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := connect(cmd.Context())
	if err != nil {
		return fail("Connection failed", err)
	}
	defer c.Close()

	status, err := c.session.Query(cmd.Context())
	if err != nil {
		return fail("Status failed", err)
	}
	c.touch()
	return ui.WriteStatus(cmd.OutOrStdout(), format(), c.label, status)
}

var watchInterval time.Duration

// watchCmd polls until interrupted
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the fridge and print each status",
	Long: `Query the fridge every --interval until interrupted. Output defaults to one
compact line per poll. Failed polls are reported and polling continues; a
lost link ends the command.`,
	Example: `  # Every 10 seconds (preferences.poll_interval)
  icebox watch

  # Bind first, poll every 30 seconds, JSON lines
  icebox watch --bind --interval 30s --format json`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Poll interval (default preferences.poll_interval)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if !cmd.Flags().Changed("format") {
		outputFormat = string(ui.FormatCompact)
	}

	c, err := connect(cmd.Context())
	if err != nil {
		return fail("Connection failed", err)
	}
	defer c.Close()

	interval := watchInterval
	if interval <= 0 {
		interval = c.registry.Preferences.PollInterval
	}

	out := cmd.OutOrStdout()
	touched := false
	err = c.session.PollLoop(cmd.Context(), interval, func(status *protocol.Status, err error) {
		if err != nil {
			fmt.Fprintf(errOut, "%s %s %v\n", time.Now().Format("15:04:05"), ui.FailureMarker, err)
			return
		}
		if !touched {
			c.touch()
			touched = true
		}
		if werr := ui.WriteStatus(out, format(), c.label, status); werr != nil {
			fmt.Fprintf(errOut, "write failed: %v\n", werr)
		}
	})
	if err != nil {
		return fail("Watch stopped", err)
	}
	return nil
}

// bindCmd binds and reports the fridge's answer
var bindCmd = &cobra.Command{
	Use:   "bind",
	Short: "Bind to the fridge",
	Long: `Send a bind request and wait for the bind button on the fridge to be
pressed (preferences.bind_timeout, default 30s).

Binding is advisory: most fridges answer status and settings commands
without it, but some only do after a bind.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bindFirst = false
		c, err := connect(cmd.Context())
		if err != nil {
			return fail("Connection failed", err)
		}
		defer c.Close()

		fmt.Fprintf(errOut, "Binding %s: press the bind button on the fridge...\n", c.label)
		res, err := c.session.Bind(cmd.Context())
		if err != nil {
			return fail("Bind failed", err)
		}
		c.touch()

		if format() == ui.FormatJSON {
			return writeJSON(cmd.OutOrStdout(), map[string]interface{}{"bound": true, "response": res.Response})
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderSuccess("Bound",
			ui.Field{Key: "Fridge", Value: c.label},
			ui.Field{Key: "Link", Value: c.link.Describe()},
			ui.Field{Key: "Response", Value: fmt.Sprintf("0x%02X", res.Response)},
		))
		return nil
	},
}

// setCmd changes settings relative to the current status
var setCmd = &cobra.Command{
	Use:   "set field=value...",
	Short: "Change fridge settings",
	Long: `Change one or more settings. The current status is read first and every
field not named keeps its current value.

Fields:
` + fieldHelp() + `

Booleans accept on/off, true/false, yes/no or 1/0. Enums accept a name,
its first letter or its number.`,
	Example: `  # Switch on, eco mode, -18
  icebox set on=on mode=eco target=-18

  # Dual-zone fridge, right compartment
  icebox set right_target=4

  # Battery protection high
  icebox set battery_saver=high`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSet,
}

func fieldHelp() string {
	var b strings.Builder
	for _, f := range protocol.Fields() {
		fmt.Fprintf(&b, "  %s\n", f)
	}
	b.WriteString("\nShort names: on, power, lock, mode, saver, target, max, min, delay,\nleft, right, hyst, r_hyst, units")
	return b.String()
}

func runSet(cmd *cobra.Command, args []string) error {
	overrides := make([]protocol.Override, 0, len(args))
	for _, arg := range args {
		o, err := protocol.ParseOverride(arg)
		if err != nil {
			return fail("Invalid setting", err)
		}
		overrides = append(overrides, o)
	}

	c, err := connect(cmd.Context())
	if err != nil {
		return fail("Connection failed", err)
	}
	defer c.Close()

	if _, err := c.session.Query(cmd.Context()); err != nil {
		return fail("Reading current settings failed", err)
	}
	status, err := c.session.ApplySettings(cmd.Context(), overrides...)
	if err != nil {
		return fail("Set failed", err)
	}
	c.touch()

	if format() == ui.FormatDetailed {
		result := ui.NewSuccessResult("Settings applied")
		for _, o := range overrides {
			result.AddDetail(string(o.Field), fmt.Sprint(o.Value))
		}
		fmt.Fprintln(errOut, result.Render())
	}
	return ui.WriteStatus(cmd.OutOrStdout(), format(), c.label, status)
}

var (
	targetZone string
	targetTemp int
)

// targetCmd sets one zone's target without reading the baseline first
var targetCmd = &cobra.Command{
	Use:   "target",
	Short: "Set a zone's target temperature",
	Long: `Set the target temperature of one zone using the dedicated per-zone command.
Unlike 'set', no status is read first. The temperature is in the fridge's
own unit.`,
	Example: `  icebox target --temp -18
  icebox target --zone right --temp 4`,
	Args: cobra.NoArgs,
	RunE: runTarget,
}

func init() {
	targetCmd.Flags().StringVar(&targetZone, "zone", "left", "Zone: left (1) or right (2)")
	targetCmd.Flags().IntVar(&targetTemp, "temp", 0, "Target temperature")
	_ = targetCmd.MarkFlagRequired("temp")
}

func runTarget(cmd *cobra.Command, args []string) error {
	zone, err := session.ParseZone(targetZone)
	if err != nil {
		return err
	}
	if targetTemp < math.MinInt8 || targetTemp > math.MaxInt8 {
		return fmt.Errorf("temperature %d out of range %d..%d", targetTemp, math.MinInt8, math.MaxInt8)
	}

	c, err := connect(cmd.Context())
	if err != nil {
		return fail("Connection failed", err)
	}
	defer c.Close()

	if _, err := c.session.SetTarget(cmd.Context(), zone, int8(targetTemp)); err != nil {
		return fail("Set target failed", err)
	}
	c.touch()

	if format() == ui.FormatJSON {
		return writeJSON(cmd.OutOrStdout(), map[string]interface{}{"zone": zone.String(), "target": targetTemp})
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.RenderSuccess("Target set",
		ui.Field{Key: "Zone", Value: zone.String()},
		ui.Field{Key: "Target", Value: fmt.Sprint(targetTemp)},
	))
	return nil
}

var resetYes bool

// resetCmd restores factory settings
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore factory settings",
	Long: `Restore the fridge's factory settings and print the resulting status.
Asks for confirmation unless --yes is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context())
		if err != nil {
			return fail("Connection failed", err)
		}
		defer c.Close()

		if !resetYes && !ui.ConfirmReset(os.Stdin, errOut, c.label) {
			return nil
		}

		status, err := c.session.Reset(cmd.Context())
		if err != nil {
			return fail("Reset failed", err)
		}
		c.touch()
		return ui.WriteStatus(cmd.OutOrStdout(), format(), c.label, status)
	},
}

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Do not ask for confirmation")
}
