// Package ui renders icebox command output for the terminal.
//
// Components are plain lipgloss renderers that follow a "print once and
// exit" pattern; nothing here reads the keyboard except Confirm.
//
//   - Header: fridge name, connection and summary rows
//   - StatusView: detailed status panels (zones, limits, battery)
//   - CompactStatus: one-line status for watch output
//   - Result: success / failure boxes with troubleshooting hints
//   - Confirm: typed confirmation before destructive commands
//
// WriteStatus picks between detailed, compact and JSON output. The JSON form
// is one report per line, the same shape the MQTT publisher sends.
//
// # Logging Integration
//
// zap logging is controlled by ICEBOX_LOG_LEVEL and goes to stderr, so it
// never interleaves with the rendered output on stdout.
package ui
