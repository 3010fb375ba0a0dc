package protocol

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Field names a settable field
type Field string

// Settable fields
const (
	FieldLocked              Field = "locked"
	FieldPoweredOn           Field = "powered_on"
	FieldRunMode             Field = "run_mode"
	FieldBatterySaver        Field = "battery_saver"
	FieldLeftTarget          Field = "left_target"
	FieldTempMax             Field = "temp_max"
	FieldTempMin             Field = "temp_min"
	FieldLeftHysteresis      Field = "left_hysteresis"
	FieldStartDelay          Field = "start_delay"
	FieldUnit                Field = "unit"
	FieldLeftCorrectionHot   Field = "left_correction_hot"
	FieldLeftCorrectionMid   Field = "left_correction_mid"
	FieldLeftCorrectionCold  Field = "left_correction_cold"
	FieldLeftCorrectionHalt  Field = "left_correction_halt"
	FieldRightTarget         Field = "right_target"
	FieldRightHysteresis     Field = "right_hysteresis"
	FieldRightCorrectionHot  Field = "right_correction_hot"
	FieldRightCorrectionMid  Field = "right_correction_mid"
	FieldRightCorrectionCold Field = "right_correction_cold"
	FieldRightCorrectionHalt Field = "right_correction_halt"
)

type valueKind int

const (
	valueBool valueKind = iota
	valueSigned
	valueUnsigned
	valueEnum
)

type fieldSpec struct {
	kind  valueKind
	names []string // Enum names, indexed by value
	right bool     // Only present on dual-zone fridges
	apply func(s *Settings, v int)
}

func (f fieldSpec) bounds() (int, int) {
	switch f.kind {
	case valueBool:
		return 0, 1
	case valueUnsigned:
		return 0, 255
	case valueEnum:
		return 0, len(f.names) - 1
	default:
		return -128, 127
	}
}

var fieldSpecs = map[Field]fieldSpec{
	FieldLocked:       {kind: valueBool, apply: func(s *Settings, v int) { s.Locked = v != 0 }},
	FieldPoweredOn:    {kind: valueBool, apply: func(s *Settings, v int) { s.PoweredOn = v != 0 }},
	FieldRunMode:      {kind: valueEnum, names: []string{"max", "eco"}, apply: func(s *Settings, v int) { s.RunMode = RunMode(v) }},
	FieldBatterySaver: {kind: valueEnum, names: []string{"low", "mid", "high"}, apply: func(s *Settings, v int) { s.BatterySaver = BatterySaver(v) }},
	FieldUnit:         {kind: valueEnum, names: []string{"celsius", "fahrenheit"}, apply: func(s *Settings, v int) { s.Unit = TemperatureUnit(v) }},
	FieldStartDelay:   {kind: valueUnsigned, apply: func(s *Settings, v int) { s.StartDelay = uint8(v) }},

	FieldLeftTarget:         {kind: valueSigned, apply: func(s *Settings, v int) { s.LeftTarget = int8(v) }},
	FieldTempMax:            {kind: valueSigned, apply: func(s *Settings, v int) { s.TempMax = int8(v) }},
	FieldTempMin:            {kind: valueSigned, apply: func(s *Settings, v int) { s.TempMin = int8(v) }},
	FieldLeftHysteresis:     {kind: valueSigned, apply: func(s *Settings, v int) { s.LeftHysteresis = int8(v) }},
	FieldLeftCorrectionHot:  {kind: valueSigned, apply: func(s *Settings, v int) { s.LeftCorrection.Hot = int8(v) }},
	FieldLeftCorrectionMid:  {kind: valueSigned, apply: func(s *Settings, v int) { s.LeftCorrection.Mid = int8(v) }},
	FieldLeftCorrectionCold: {kind: valueSigned, apply: func(s *Settings, v int) { s.LeftCorrection.Cold = int8(v) }},
	FieldLeftCorrectionHalt: {kind: valueSigned, apply: func(s *Settings, v int) { s.LeftCorrection.Halt = int8(v) }},

	FieldRightTarget:         {kind: valueSigned, right: true, apply: func(s *Settings, v int) { s.Right.Target = int8(v) }},
	FieldRightHysteresis:     {kind: valueSigned, right: true, apply: func(s *Settings, v int) { s.Right.Hysteresis = int8(v) }},
	FieldRightCorrectionHot:  {kind: valueSigned, right: true, apply: func(s *Settings, v int) { s.Right.Correction.Hot = int8(v) }},
	FieldRightCorrectionMid:  {kind: valueSigned, right: true, apply: func(s *Settings, v int) { s.Right.Correction.Mid = int8(v) }},
	FieldRightCorrectionCold: {kind: valueSigned, right: true, apply: func(s *Settings, v int) { s.Right.Correction.Cold = int8(v) }},
	FieldRightCorrectionHalt: {kind: valueSigned, right: true, apply: func(s *Settings, v int) { s.Right.Correction.Halt = int8(v) }},
}

// Short names accepted on the command line
var fieldAliases = map[string]Field{
	"on":     FieldPoweredOn,
	"power":  FieldPoweredOn,
	"lock":   FieldLocked,
	"mode":   FieldRunMode,
	"saver":  FieldBatterySaver,
	"target": FieldLeftTarget,
	"max":    FieldTempMax,
	"min":    FieldTempMin,
	"delay":  FieldStartDelay,
	"left":   FieldLeftTarget,
	"right":  FieldRightTarget,
	"hyst":   FieldLeftHysteresis,
	"r_hyst": FieldRightHysteresis,
	"units":  FieldUnit,
}

// Fields returns every settable field name, sorted
func Fields() []Field {
	out := make([]Field, 0, len(fieldSpecs))
	for f := range fieldSpecs {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Override replaces one field of a baseline
type Override struct {
	Field Field
	Value int
}

func (o Override) String() string {
	return fmt.Sprintf("%s=%d", o.Field, o.Value)
}

// ParseOverride parses "field=value". Booleans accept on/off, true/false,
// yes/no and 1/0; enum fields accept their names or numeric values.
func ParseOverride(s string) (Override, error) {
	key, raw, ok := strings.Cut(s, "=")
	if !ok {
		return Override{}, newError(KindUnknownField, "expected field=value, got %q", s)
	}
	return ParseOverrideValue(strings.TrimSpace(key), strings.TrimSpace(raw))
}

// ParseOverrideValue parses a value for the named field
func ParseOverrideValue(name, raw string) (Override, error) {
	field, spec, err := lookupField(name)
	if err != nil {
		return Override{}, err
	}

	lower := strings.ToLower(raw)
	switch spec.kind {
	case valueBool:
		switch lower {
		case "on", "true", "yes":
			return Override{Field: field, Value: 1}, nil
		case "off", "false", "no":
			return Override{Field: field, Value: 0}, nil
		}
	case valueEnum:
		for i, n := range spec.names {
			if lower == n || (len(lower) == 1 && lower[0] == n[0]) {
				return Override{Field: field, Value: i}, nil
			}
		}
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return Override{}, &Error{
			Kind:    KindValueOutOfRange,
			Message: fmt.Sprintf("%s: %q is not a valid value", field, raw),
			Err:     err,
		}
	}

	o := Override{Field: field, Value: v}
	if err := o.validate(spec); err != nil {
		return Override{}, err
	}
	return o, nil
}

func lookupField(name string) (Field, fieldSpec, error) {
	key := strings.ToLower(strings.ReplaceAll(name, "-", "_"))
	field := Field(key)
	if alias, ok := fieldAliases[key]; ok {
		field = alias
	}
	spec, ok := fieldSpecs[field]
	if !ok {
		return "", fieldSpec{}, newError(KindUnknownField, "%q is not a settable field", name)
	}
	return field, spec, nil
}

func (o Override) validate(spec fieldSpec) error {
	lo, hi := spec.bounds()
	if o.Value < lo || o.Value > hi {
		return newError(KindValueOutOfRange, "%s: %d outside [%d, %d]", o.Field, o.Value, lo, hi)
	}
	return nil
}

// SettingsBuilder builds a settings update on top of a baseline status.
// Every field not explicitly set is carried over from the baseline.
//
// Example usage:
//
//	settings, err := protocol.NewSettingsBuilder(status).
//	    SetPoweredOn(true).
//	    SetRunMode(protocol.RunModeEco).
//	    SetLeftTarget(-18).
//	    Build()
type SettingsBuilder struct {
	settings *Settings
	changed  []Field
	err      error
}

// NewSettingsBuilder starts from status. A nil status starts from zeroed
// single-zone settings, so every field must then be set explicitly.
func NewSettingsBuilder(status *Status) *SettingsBuilder {
	b := &SettingsBuilder{settings: &Settings{}}
	if status != nil {
		b.settings = SettingsFromStatus(status)
	}
	return b
}

// Apply applies overrides in order. The first invalid override is kept and
// returned by Build; later overrides are ignored.
func (b *SettingsBuilder) Apply(overrides ...Override) *SettingsBuilder {
	for _, o := range overrides {
		if b.err != nil {
			return b
		}
		spec, ok := fieldSpecs[o.Field]
		if !ok {
			b.err = newError(KindUnknownField, "%q is not a settable field", string(o.Field))
			return b
		}
		if spec.right && b.settings.Right == nil {
			b.err = newError(KindUnknownField, "%s is only settable on dual-zone fridges", o.Field)
			return b
		}
		if err := o.validate(spec); err != nil {
			b.err = err
			return b
		}
		spec.apply(b.settings, o.Value)
		b.changed = append(b.changed, o.Field)
	}
	return b
}

// SetLocked sets the keypad lock
func (b *SettingsBuilder) SetLocked(locked bool) *SettingsBuilder {
	return b.Apply(Override{Field: FieldLocked, Value: int(boolByte(locked))})
}

// SetPoweredOn sets the soft power state
func (b *SettingsBuilder) SetPoweredOn(on bool) *SettingsBuilder {
	return b.Apply(Override{Field: FieldPoweredOn, Value: int(boolByte(on))})
}

// SetRunMode sets Max or Eco mode
func (b *SettingsBuilder) SetRunMode(mode RunMode) *SettingsBuilder {
	return b.Apply(Override{Field: FieldRunMode, Value: int(mode)})
}

// SetBatterySaver sets the low voltage cutout level
func (b *SettingsBuilder) SetBatterySaver(level BatterySaver) *SettingsBuilder {
	return b.Apply(Override{Field: FieldBatterySaver, Value: int(level)})
}

// SetUnit sets the display unit. Temperatures already in the baseline are
// not converted.
func (b *SettingsBuilder) SetUnit(unit TemperatureUnit) *SettingsBuilder {
	return b.Apply(Override{Field: FieldUnit, Value: int(unit)})
}

// SetStartDelay sets the soft start delay in minutes
func (b *SettingsBuilder) SetStartDelay(minutes uint8) *SettingsBuilder {
	return b.Apply(Override{Field: FieldStartDelay, Value: int(minutes)})
}

// SetLeftTarget sets the left zone target temperature
func (b *SettingsBuilder) SetLeftTarget(t int8) *SettingsBuilder {
	return b.Apply(Override{Field: FieldLeftTarget, Value: int(t)})
}

// SetRightTarget sets the right zone target temperature
func (b *SettingsBuilder) SetRightTarget(t int8) *SettingsBuilder {
	return b.Apply(Override{Field: FieldRightTarget, Value: int(t)})
}

// SetTargetRange sets the selectable target bounds
func (b *SettingsBuilder) SetTargetRange(min, max int8) *SettingsBuilder {
	return b.Apply(
		Override{Field: FieldTempMin, Value: int(min)},
		Override{Field: FieldTempMax, Value: int(max)},
	)
}

// Changed returns the fields set so far, in order
func (b *SettingsBuilder) Changed() []Field {
	return append([]Field(nil), b.changed...)
}

// Build returns the settings or the first error encountered
func (b *SettingsBuilder) Build() (*Settings, error) {
	if b.err != nil {
		return nil, b.err
	}
	out := *b.settings
	if b.settings.Right != nil {
		right := *b.settings.Right
		out.Right = &right
	}
	return &out, nil
}

// BuildSettingsFromStatus copies every writable field from status and then
// applies overrides
func BuildSettingsFromStatus(status *Status, overrides ...Override) (*Settings, error) {
	return NewSettingsBuilder(status).Apply(overrides...).Build()
}
