// Icebox talks to Alpicool-style 12V compressor fridges.
//
// It reaches the fridge's BLE radio through a bridge: a serial BLE adapter
// (--port) or a WebSocket gateway (--url). From there it can read the status,
// change settings, poll in a loop, and mirror readings to MQTT or Prometheus.
//
// Usage:
//
//	icebox [command] [flags]
//
// See 'icebox --help' for available commands.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/icebox/internal/logging"
	"github.com/muurk/icebox/internal/transport"
	"github.com/muurk/icebox/internal/ui"
	"github.com/muurk/icebox/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// errOut receives progress and warnings so stdout stays parseable
var errOut io.Writer = os.Stderr

// Global flags
var (
	fridgeName   string
	serialPort   string
	baudRate     int
	gatewayURL   string
	gatewayUser  string
	insecureTLS  bool
	configPath   string
	outputFormat string
	logLevel     string
	lenient      bool
	bindFirst    bool
)

var rootCmd = &cobra.Command{
	Use:   "icebox",
	Short: "Control Alpicool-style BLE compressor fridges",
	Long: `Read and control 12V compressor fridges that speak the Alpicool BLE protocol
(Alpicool, Brass Monkey, Cooluli, Iceco and many rebrands).

icebox does not talk Bluetooth itself. It needs a bridge:
  --port /dev/ttyUSB0      a serial BLE adapter that forwards raw frames
  --url  ws://gw/fridge    a WebSocket gateway, one binary message per frame

Fridges used often can be saved with 'icebox fridges add' and picked
with --fridge.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Initialize(logLevel); err != nil {
			return err
		}
		if _, err := ui.ParseFormat(outputFormat); err != nil {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&fridgeName, "fridge", "f", "", "Saved fridge to use (default: preferences.default_fridge)")
	pf.StringVar(&serialPort, "port", "", "Serial BLE bridge device, e.g. /dev/ttyUSB0")
	pf.IntVar(&baudRate, "baud", 0, "Serial baud rate (default 9600)")
	pf.StringVar(&gatewayURL, "url", "", "WebSocket gateway URL, e.g. ws://gateway.local/fridge")
	pf.StringVar(&gatewayUser, "user", "", "Gateway username for Basic auth (password from "+transport.PasswordEnvVar+" or prompt)")
	pf.BoolVar(&insecureTLS, "insecure", false, "Skip TLS certificate verification for wss:// gateways")
	pf.StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/icebox/config.yaml)")
	pf.StringVar(&outputFormat, "format", "detailed", "Output format (detailed, compact, json)")
	pf.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); default silent or "+logging.LogLevelEnvVar)
	pf.BoolVar(&lenient, "lenient", false, "Accept frames whose checksum is doubled (some firmware)")
	pf.BoolVar(&bindFirst, "bind", false, "Bind before the command (press the fridge's bind button)")

	rootCmd.AddCommand(versionCmd)
}

var versionJSON bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Get()
		if versionJSON {
			return writeJSON(cmd.OutOrStdout(), info)
		}
		fmt.Fprintln(cmd.OutOrStdout(), info)
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Print as JSON")
}
