// Package config provides user configuration management for icebox.
//
// This package manages a YAML file listing the fridges a user talks to and
// application preferences such as the poll interval, request timeouts and
// MQTT and exporter settings.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/icebox/config.yaml or $HOME/.config/icebox/config.yaml
//   - macOS: $HOME/.config/icebox/config.yaml
//   - Windows: %LOCALAPPDATA%\icebox\config.yaml
//
// The --config flag overrides the location.
//
// # File Format
//
//	version: 1
//	fridges:
//	  camper:
//	    nickname: Camper fridge
//	    transport: serial
//	    address: /dev/ttyUSB0
//	    baud: 9600
//	    ble_addr: "C8:47:8C:00:00:01"
//	preferences:
//	  default_fridge: camper
//	  poll_interval: 10s
//	  bind_timeout: 30s
//	  response_timeout: 5s
//	  mqtt:
//	    broker: tcp://localhost:1883
//	    topic_prefix: fridge
//
// # Security
//
// Passwords are never stored. Gateway and broker passwords come from the
// environment or a prompt.
//
// # Thread Safety
//
// File operations are protected by a mutex to ensure atomic writes. A
// Registry value itself is not safe for concurrent mutation.
package config
