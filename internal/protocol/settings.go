package protocol

// Set payload layout
//
//	[0-13]  Same fields and offsets as status bytes 0-13
//	--- dual-zone only ---
//	[14]    right_target
//	[15-16] Reserved, always zero
//	[17]    right_hyst
//	[18-21] right_corr x4
//	[22-24] Reserved, always zero
const (
	SettingsSingleZoneSize = 14
	SettingsDualZoneSize   = 25
)

// ZoneSettings is the writable right-zone block
type ZoneSettings struct {
	Target     int8
	Hysteresis int8
	Correction Corrections
}

// Settings is the writable subset of Status
type Settings struct {
	Locked         bool
	PoweredOn      bool
	RunMode        RunMode
	BatterySaver   BatterySaver
	LeftTarget     int8
	TempMax        int8
	TempMin        int8
	LeftHysteresis int8
	StartDelay     uint8
	Unit           TemperatureUnit
	LeftCorrection Corrections

	// Right is nil on single-zone fridges
	Right *ZoneSettings
}

// SettingsFromStatus copies every writable field of s
func SettingsFromStatus(s *Status) *Settings {
	out := &Settings{
		Locked:         s.Locked,
		PoweredOn:      s.PoweredOn,
		RunMode:        s.RunMode,
		BatterySaver:   s.BatterySaver,
		LeftTarget:     s.LeftTarget,
		TempMax:        s.TempMax,
		TempMin:        s.TempMin,
		LeftHysteresis: s.LeftHysteresis,
		StartDelay:     s.StartDelay,
		Unit:           s.Unit,
		LeftCorrection: s.LeftCorrection,
	}
	if s.Right != nil {
		out.Right = &ZoneSettings{
			Target:     s.Right.Target,
			Hysteresis: s.Right.Hysteresis,
			Correction: s.Right.Correction,
		}
	}
	return out
}

// Equal reports whether two settings would encode to the same payload
func (s *Settings) Equal(o *Settings) bool {
	if s == nil || o == nil {
		return s == o
	}
	a, b := *s, *o
	a.Right, b.Right = nil, nil
	if a != b {
		return false
	}
	if (s.Right == nil) != (o.Right == nil) {
		return false
	}
	return s.Right == nil || *s.Right == *o.Right
}

// EncodeSettings lays out a set payload. Single-zone settings produce the
// short form with no right-zone bytes at all.
func EncodeSettings(s *Settings) []byte {
	size := SettingsSingleZoneSize
	if s.Right != nil {
		size = SettingsDualZoneSize
	}

	b := make([]byte, size)
	b[0] = boolByte(s.Locked)
	b[1] = boolByte(s.PoweredOn)
	b[2] = byte(s.RunMode)
	b[3] = byte(s.BatterySaver)
	b[4] = byte(s.LeftTarget)
	b[5] = byte(s.TempMax)
	b[6] = byte(s.TempMin)
	b[7] = byte(s.LeftHysteresis)
	b[8] = s.StartDelay
	b[9] = byte(s.Unit)
	s.LeftCorrection.put(b[10:14])

	if s.Right != nil {
		b[14] = byte(s.Right.Target)
		b[17] = byte(s.Right.Hysteresis)
		s.Right.Correction.put(b[18:22])
		// 15-16 and 22-24 stay zero
	}

	return b
}

// DecodeSettings interprets a set payload, as echoed back by some firmware
func DecodeSettings(payload []byte) (*Settings, error) {
	if len(payload) < SettingsSingleZoneSize {
		return nil, newError(KindPayloadTooShort, "%d bytes (min %d)", len(payload), SettingsSingleZoneSize)
	}

	s := &Settings{
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
	}

	if len(payload) >= SettingsDualZoneSize {
		s.Right = &ZoneSettings{
			Target:     int8(payload[14]),
			Hysteresis: int8(payload[17]),
			Correction: decodeCorrections(payload[18:22]),
		}
	}

	return s, nil
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
