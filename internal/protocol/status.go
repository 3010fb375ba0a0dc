package protocol

import (
	"encoding/json"
	"fmt"
)

// Status payload layout (query, set and reset responses)
//
//	[0]     locked         Keypad lock (bool)
//	[1]     powered_on     Soft power state (bool)
//	[2]     run_mode       0 = Max, 1 = Eco
//	[3]     battery_saver  Low voltage cutout: 0 = Low, 1 = Mid, 2 = High
//	[4]     left_target    int8
//	[5]     temp_max       int8, highest selectable target
//	[6]     temp_min       int8, lowest selectable target
//	[7]     left_hyst      int8
//	[8]     start_delay    Minutes
//	[9]     unit           0 = Celsius, 1 = Fahrenheit
//	[10-13] left_corr      int8 x4: hot, mid, cold, halt
//	[14]    left_current   int8
//	[15]    battery        Percent, 0x7F = unknown
//	[16]    volt_int
//	[17]    volt_frac      Tenths
//	--- dual-zone only (payload >= 28) ---
//	[18]    right_target   int8
//	[19-20]                Unknown
//	[21]    right_hyst     int8
//	[22-25] right_corr     int8 x4
//	[26]    right_current  int8
//	[27]                   Unknown
//	[28]    running_status Present only on payloads of 29+ bytes
const (
	StatusSingleZoneSize = 18
	StatusDualZoneSize   = 28

	statusRunningOffset = 28
)

// RunMode is the compressor run mode
type RunMode uint8

const (
	RunModeMax RunMode = 0
	RunModeEco RunMode = 1
)

func (m RunMode) String() string {
	switch m {
	case RunModeMax:
		return "Max"
	case RunModeEco:
		return "Eco"
	default:
		return fmt.Sprintf("RunMode(%d)", uint8(m))
	}
}

// BatterySaver is the low voltage cutout level
type BatterySaver uint8

const (
	BatterySaverLow  BatterySaver = 0
	BatterySaverMid  BatterySaver = 1
	BatterySaverHigh BatterySaver = 2
)

func (b BatterySaver) String() string {
	switch b {
	case BatterySaverLow:
		return "Low"
	case BatterySaverMid:
		return "Mid"
	case BatterySaverHigh:
		return "High"
	default:
		return fmt.Sprintf("BatterySaver(%d)", uint8(b))
	}
}

// TemperatureUnit is the unit every temperature field is expressed in.
// Values are never converted; a Fahrenheit fridge reports Fahrenheit.
type TemperatureUnit uint8

const (
	Celsius    TemperatureUnit = 0
	Fahrenheit TemperatureUnit = 1
)

func (u TemperatureUnit) String() string {
	switch u {
	case Celsius:
		return "Celsius"
	case Fahrenheit:
		return "Fahrenheit"
	default:
		return fmt.Sprintf("TemperatureUnit(%d)", uint8(u))
	}
}

// Symbol returns the short unit suffix
func (u TemperatureUnit) Symbol() string {
	if u == Fahrenheit {
		return "°F"
	}
	return "°C"
}

// BatteryCharge is a battery percentage or BatteryChargeUnknown
type BatteryCharge uint8

// BatteryChargeUnknown is reported when the fridge cannot measure its battery
const BatteryChargeUnknown BatteryCharge = 0x7F

// Known reports whether the charge is a real percentage
func (c BatteryCharge) Known() bool {
	return c != BatteryChargeUnknown
}

func (c BatteryCharge) String() string {
	if !c.Known() {
		return "unknown"
	}
	return fmt.Sprintf("%d%%", uint8(c))
}

// MarshalJSON encodes an unknown charge as null
func (c BatteryCharge) MarshalJSON() ([]byte, error) {
	if !c.Known() {
		return []byte("null"), nil
	}
	return json.Marshal(uint8(c))
}

// Voltage is a battery voltage in tenths of a volt
type Voltage uint16

// NewVoltage combines the integer and decimal bytes of a status payload
func NewVoltage(whole, tenths uint8) Voltage {
	return Voltage(uint16(whole)*10 + uint16(tenths))
}

// Volts returns the voltage as a float with one decimal of precision
func (v Voltage) Volts() float64 {
	return float64(v) / 10
}

func (v Voltage) String() string {
	return fmt.Sprintf("%d.%dV", v/10, v%10)
}

// MarshalJSON encodes the voltage in volts
func (v Voltage) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%d.%d", v/10, v%10)), nil
}

// Corrections are the four temperature compensation values of a zone
type Corrections struct {
	Hot  int8 `json:"hot"`
	Mid  int8 `json:"mid"`
	Cold int8 `json:"cold"`
	Halt int8 `json:"halt"`
}

func decodeCorrections(b []byte) Corrections {
	return Corrections{Hot: int8(b[0]), Mid: int8(b[1]), Cold: int8(b[2]), Halt: int8(b[3])}
}

func (c Corrections) put(b []byte) {
	b[0] = byte(c.Hot)
	b[1] = byte(c.Mid)
	b[2] = byte(c.Cold)
	b[3] = byte(c.Halt)
}

// ZoneStatus is the right-zone block of a dual-zone status
type ZoneStatus struct {
	Target     int8        `json:"target"`
	Hysteresis int8        `json:"hysteresis"`
	Correction Corrections `json:"correction"`
	Current    int8        `json:"current"`
}

// Status is a snapshot decoded from a status-bearing notification
type Status struct {
	Locked         bool            `json:"locked"`
	PoweredOn      bool            `json:"powered_on"`
	RunMode        RunMode         `json:"run_mode"`
	BatterySaver   BatterySaver    `json:"battery_saver"`
	LeftTarget     int8            `json:"left_target"`
	TempMax        int8            `json:"temp_max"`
	TempMin        int8            `json:"temp_min"`
	LeftHysteresis int8            `json:"left_hysteresis"`
	StartDelay     uint8           `json:"start_delay_minutes"`
	Unit           TemperatureUnit `json:"unit"`
	LeftCorrection Corrections     `json:"left_correction"`
	LeftCurrent    int8            `json:"left_current"`
	Battery        BatteryCharge   `json:"battery_percent"`
	BatteryVoltage Voltage         `json:"battery_voltage"`

	// Right is nil on single-zone fridges
	Right *ZoneStatus `json:"right,omitempty"`

	// RunningStatus is nil when the payload does not carry it
	RunningStatus *uint8 `json:"running_status,omitempty"`
}

// DualZone reports whether the status came from a dual-zone fridge
func (s *Status) DualZone() bool {
	return s.Right != nil
}

// DecodeStatus interprets a status payload. Bytes beyond the known layout
// are ignored.
func DecodeStatus(payload []byte) (*Status, error) {
	if len(payload) < StatusSingleZoneSize {
		return nil, newError(KindPayloadTooShort, "%d bytes (min %d)", len(payload), StatusSingleZoneSize)
	}

	s := &Status{
		Locked:         payload[0] != 0,
		PoweredOn:      payload[1] != 0,
		RunMode:        RunMode(payload[2]),
		BatterySaver:   BatterySaver(payload[3]),
		LeftTarget:     int8(payload[4]),
		TempMax:        int8(payload[5]),
		TempMin:        int8(payload[6]),
		LeftHysteresis: int8(payload[7]),
		StartDelay:     payload[8],
		Unit:           TemperatureUnit(payload[9]),
		LeftCorrection: decodeCorrections(payload[10:14]),
		LeftCurrent:    int8(payload[14]),
		Battery:        BatteryCharge(payload[15]),
		BatteryVoltage: NewVoltage(payload[16], payload[17]),
	}

	if len(payload) >= StatusDualZoneSize {
		s.Right = &ZoneStatus{
			Target:     int8(payload[18]),
			Hysteresis: int8(payload[21]),
			Correction: decodeCorrections(payload[22:26]),
			Current:    int8(payload[26]),
		}
	}

	if len(payload) > statusRunningOffset {
		running := payload[statusRunningOffset]
		s.RunningStatus = &running
	}

	return s, nil
}

// String returns a one-line summary of the status
func (s *Status) String() string {
	power := "off"
	if s.PoweredOn {
		power = "on"
	}
	out := fmt.Sprintf("Status{power=%s, mode=%s, left=%d/%d%s, battery=%s @ %s",
		power, s.RunMode, s.LeftCurrent, s.LeftTarget, s.Unit.Symbol(), s.Battery, s.BatteryVoltage)
	if s.Right != nil {
		out += fmt.Sprintf(", right=%d/%d%s", s.Right.Current, s.Right.Target, s.Unit.Symbol())
	}
	return out + "}"
}
