package protocol

// Report is the compact JSON shape published for a status snapshot.
// Zone keys are "1" (left) and "2" (right).
type Report struct {
	On                   bool                  `json:"on"`
	RunMode              string                `json:"runMode"`
	LowVoltageLevel      string                `json:"lowVoltageLevel"`
	BatteryVoltage       Voltage               `json:"batteryVoltage"`
	BatteryChargePercent BatteryCharge         `json:"batteryChargePercent"`
	TemperatureUnit      string                `json:"temperatureUnit"`
	Units                map[string]ZoneReport `json:"units"`
}

// ZoneReport is the per-zone part of a Report
type ZoneReport struct {
	Temperature int8 `json:"temperature"`
	Target      int8 `json:"target"`
}

// Report returns the compact representation of s
func (s *Status) Report() Report {
	r := Report{
		On:                   s.PoweredOn,
		RunMode:              s.RunMode.String(),
		LowVoltageLevel:      s.BatterySaver.String(),
		BatteryVoltage:       s.BatteryVoltage,
		BatteryChargePercent: s.Battery,
		TemperatureUnit:      s.Unit.String(),
		Units: map[string]ZoneReport{
			"1": {Temperature: s.LeftCurrent, Target: s.LeftTarget},
		},
	}
	if s.Right != nil {
		r.Units["2"] = ZoneReport{Temperature: s.Right.Current, Target: s.Right.Target}
	}
	return r
}
