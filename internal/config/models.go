package config

import (
	"fmt"
	"sort"
	"time"
)

// Transport kinds
const (
	TransportSerial    = "serial"
	TransportWebSocket = "websocket"
)

// Default preference values
const (
	DefaultPollInterval    = 10 * time.Second
	DefaultBindTimeout     = 30 * time.Second
	DefaultResponseTimeout = 5 * time.Second
	DefaultTopicPrefix     = "fridge"
	DefaultExporterListen  = ":9465"
)

// Registry represents the entire user configuration file.
// It stores the fridges the user has set up and application preferences.
type Registry struct {
	Version     int                `yaml:"version"`
	Fridges     map[string]*Fridge `yaml:"fridges,omitempty"` // Keyed by user-chosen name
	Preferences *Preferences       `yaml:"preferences,omitempty"`

	path string
}

// Fridge describes how to reach one fridge
type Fridge struct {
	Nickname  string    `yaml:"nickname,omitempty"`  // Display name
	Transport string    `yaml:"transport"`           // "serial" or "websocket"
	Address   string    `yaml:"address"`             // Serial device path or ws:// URL
	Baud      int       `yaml:"baud,omitempty"`      // Serial only
	BLEAddr   string    `yaml:"ble_addr,omitempty"`  // MAC shown in topics and labels
	Username  string    `yaml:"username,omitempty"`  // Gateway Basic auth user; password is prompted
	Insecure  bool      `yaml:"insecure,omitempty"`  // Skip TLS verification for wss://
	Bind      bool      `yaml:"bind,omitempty"`      // Bind on every connect
	Lenient   bool      `yaml:"lenient,omitempty"`   // Accept doubled checksums
	DualZone  bool      `yaml:"dual_zone,omitempty"` // Informational; detected from status
	LastSeen  time.Time `yaml:"last_seen,omitempty"` // Last successful connection
}

// Label returns the best name for display: nickname, BLE address or the key
func (f *Fridge) Label(key string) string {
	switch {
	case f.Nickname != "":
		return f.Nickname
	case f.BLEAddr != "":
		return f.BLEAddr
	default:
		return key
	}
}

// Validate checks the transport settings
func (f *Fridge) Validate() error {
	switch f.Transport {
	case TransportSerial, TransportWebSocket:
	default:
		return fmt.Errorf("unknown transport %q (want %s or %s)", f.Transport, TransportSerial, TransportWebSocket)
	}
	if f.Address == "" {
		return fmt.Errorf("address is required")
	}
	if f.Baud < 0 {
		return fmt.Errorf("baud must be positive, got %d", f.Baud)
	}
	return nil
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DefaultFridge   string         `yaml:"default_fridge,omitempty"` // Used when --fridge is not given
	PollInterval    time.Duration  `yaml:"poll_interval"`
	BindTimeout     time.Duration  `yaml:"bind_timeout"`
	ResponseTimeout time.Duration  `yaml:"response_timeout"`
	MQTT            *MQTTPrefs     `yaml:"mqtt,omitempty"`
	Exporter        *ExporterPrefs `yaml:"exporter,omitempty"`
}

// MQTTPrefs configures the state publisher.
// Note: the broker password is never stored; it comes from the environment.
type MQTTPrefs struct {
	Broker      string `yaml:"broker,omitempty"` // e.g. tcp://localhost:1883
	ClientID    string `yaml:"client_id,omitempty"`
	Username    string `yaml:"username,omitempty"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
	Retain      bool   `yaml:"retain"`
}

// ExporterPrefs configures the Prometheus exporter
type ExporterPrefs struct {
	Listen string `yaml:"listen"`
}

// DefaultPreferences returns preferences with every field set
func DefaultPreferences() *Preferences {
	return &Preferences{
		PollInterval:    DefaultPollInterval,
		BindTimeout:     DefaultBindTimeout,
		ResponseTimeout: DefaultResponseTimeout,
		MQTT: &MQTTPrefs{
			TopicPrefix: DefaultTopicPrefix,
			Retain:      true,
		},
		Exporter: &ExporterPrefs{
			Listen: DefaultExporterListen,
		},
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Fridges:     make(map[string]*Fridge),
		Preferences: DefaultPreferences(),
	}
}

// applyDefaults fills zero preferences loaded from an older or partial file
func (r *Registry) applyDefaults() {
	if r.Fridges == nil {
		r.Fridges = make(map[string]*Fridge)
	}
	if r.Preferences == nil {
		r.Preferences = DefaultPreferences()
		return
	}

	p, d := r.Preferences, DefaultPreferences()
	if p.PollInterval <= 0 {
		p.PollInterval = d.PollInterval
	}
	if p.BindTimeout <= 0 {
		p.BindTimeout = d.BindTimeout
	}
	if p.ResponseTimeout <= 0 {
		p.ResponseTimeout = d.ResponseTimeout
	}
	if p.MQTT == nil {
		p.MQTT = d.MQTT
	} else if p.MQTT.TopicPrefix == "" {
		p.MQTT.TopicPrefix = d.MQTT.TopicPrefix
	}
	if p.Exporter == nil {
		p.Exporter = d.Exporter
	} else if p.Exporter.Listen == "" {
		p.Exporter.Listen = d.Exporter.Listen
	}
}

// GetFridge retrieves a fridge by name.
// Returns nil if the fridge doesn't exist in the registry.
func (r *Registry) GetFridge(name string) *Fridge {
	return r.Fridges[name]
}

// ResolveFridge returns the named fridge, or the default fridge when name is
// empty. The returned name is the registry key.
func (r *Registry) ResolveFridge(name string) (string, *Fridge, error) {
	if name == "" {
		name = r.Preferences.DefaultFridge
	}
	if name == "" {
		if len(r.Fridges) == 1 {
			for only, f := range r.Fridges {
				return only, f, nil
			}
		}
		return "", nil, fmt.Errorf("no fridge selected: use --fridge, --port or --url, or set preferences.default_fridge")
	}
	f, ok := r.Fridges[name]
	if !ok {
		return "", nil, fmt.Errorf("fridge %q is not in %s", name, r.Path())
	}
	return name, f, nil
}

// SetFridge validates and stores a fridge under name
func (r *Registry) SetFridge(name string, f *Fridge) error {
	if name == "" {
		return fmt.Errorf("fridge name is required")
	}
	if err := f.Validate(); err != nil {
		return fmt.Errorf("fridge %q: %w", name, err)
	}
	if r.Fridges == nil {
		r.Fridges = make(map[string]*Fridge)
	}
	r.Fridges[name] = f
	return nil
}

// RemoveFridge deletes a fridge and reports whether it existed
func (r *Registry) RemoveFridge(name string) bool {
	if _, ok := r.Fridges[name]; !ok {
		return false
	}
	delete(r.Fridges, name)
	if r.Preferences != nil && r.Preferences.DefaultFridge == name {
		r.Preferences.DefaultFridge = ""
	}
	return true
}

// TouchFridge records a successful connection
func (r *Registry) TouchFridge(name string, at time.Time) {
	if f := r.Fridges[name]; f != nil {
		f.LastSeen = at
	}
}

// FridgeNames returns registry keys, sorted
func (r *Registry) FridgeNames() []string {
	names := make([]string, 0, len(r.Fridges))
	for name := range r.Fridges {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
