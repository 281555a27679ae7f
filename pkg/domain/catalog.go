package domain

import (
	"fmt"
	"slices"
	"strconv"
)

// DeviceKind identifies a category of peripheral.
type DeviceKind string

const (
	KindMotorDC       DeviceKind = "motor_dc"
	KindServo         DeviceKind = "servo"
	KindLED           DeviceKind = "led"
	KindRelay         DeviceKind = "relay"
	KindBuzzer        DeviceKind = "buzzer"
	KindButton        DeviceKind = "button"
	KindSwitch        DeviceKind = "switch"
	KindPotentiometer DeviceKind = "potentiometer"
	KindSensorTemp    DeviceKind = "sensor_temp"
	KindSensorLight   DeviceKind = "sensor_light"
)

// Direction tells whether a device drives the pin or reads it.
type Direction string

const (
	DirectionOutput Direction = "output"
	DirectionInput  Direction = "input"
)

// ActionID identifies an action within a device kind.
type ActionID string

const (
	ActionSpeed      ActionID = "speed"
	ActionDirection  ActionID = "direction"
	ActionStop       ActionID = "stop"
	ActionRamp       ActionID = "ramp"
	ActionAngle      ActionID = "angle"
	ActionSweep      ActionID = "sweep"
	ActionCenter     ActionID = "center"
	ActionOn         ActionID = "on"
	ActionOff        ActionID = "off"
	ActionBlink      ActionID = "blink"
	ActionFade       ActionID = "fade"
	ActionBrightness ActionID = "brightness"
	ActionToggle     ActionID = "toggle"
	ActionPulse      ActionID = "pulse"
	ActionBeep       ActionID = "beep"
	ActionMelody     ActionID = "melody"
)

// ParamKind is the input type of an action parameter.
type ParamKind string

const (
	ParamRange  ParamKind = "range"  // Bounded slider
	ParamNumber ParamKind = "number" // Bounded integer
	ParamChoice ParamKind = "select" // One of Options
)

// ParamDef declares one typed parameter of an action.
type ParamDef struct {
	Name    string    `json:"name" yaml:"name"`
	Label   string    `json:"label" yaml:"label"`
	Kind    ParamKind `json:"kind" yaml:"kind"`
	Min     int       `json:"min,omitempty" yaml:"min,omitempty"`
	Max     int       `json:"max,omitempty" yaml:"max,omitempty"`
	Options []string  `json:"options,omitempty" yaml:"options,omitempty"`
	// Default is used by code generation when the user never set a value.
	Default string `json:"default,omitempty" yaml:"default,omitempty"`
}

// Validate checks a raw value against the parameter's bounds or options.
func (p ParamDef) Validate(value string) error {
	switch p.Kind {
	case ParamRange, ParamNumber:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer: %w", p.Name, value, ErrInvalidParam)
		}
		if n < p.Min || n > p.Max {
			return fmt.Errorf("%s: %d outside [%d, %d]: %w", p.Name, n, p.Min, p.Max, ErrInvalidParam)
		}
	case ParamChoice:
		if !slices.Contains(p.Options, value) {
			return fmt.Errorf("%s: %q is not one of %v: %w", p.Name, value, p.Options, ErrInvalidParam)
		}
	default:
		return fmt.Errorf("%s: unsupported parameter kind %q: %w", p.Name, p.Kind, ErrInvalidParam)
	}
	return nil
}

// Fallback returns the value used when none was set: Default, else Min or first option.
func (p ParamDef) Fallback() string {
	if p.Default != "" {
		return p.Default
	}
	if p.Kind == ParamChoice {
		if len(p.Options) > 0 {
			return p.Options[0]
		}
		return ""
	}
	return strconv.Itoa(p.Min)
}

// ActionDef declares an action supported by a device kind.
type ActionDef struct {
	ID     ActionID   `json:"id" yaml:"id"`
	Label  string     `json:"label" yaml:"label"`
	Params []ParamDef `json:"params,omitempty" yaml:"params,omitempty"`
}

// Param looks up a parameter definition by name.
func (a ActionDef) Param(name string) (ParamDef, bool) {
	for _, p := range a.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamDef{}, false
}

// DeviceKindDef is a catalog entry.
type DeviceKindDef struct {
	Kind           DeviceKind `json:"kind" yaml:"kind"`
	Label          string     `json:"label" yaml:"label"`
	Direction      Direction  `json:"direction" yaml:"direction"`
	RequiresPWM    bool       `json:"requires_pwm" yaml:"requires_pwm"`
	RequiresAnalog bool       `json:"requires_analog" yaml:"requires_analog"`
	// PullUp marks contact inputs (buttons, switches) read digitally with the internal pull-up.
	PullUp  bool        `json:"pull_up,omitempty" yaml:"pull_up,omitempty"`
	Actions []ActionDef `json:"actions,omitempty" yaml:"actions,omitempty"`
	// Extra lists static per-pin parameters stored on the PinConfig (servo angle bounds).
	Extra []ParamDef `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Action looks up an action definition by id.
func (d DeviceKindDef) Action(id ActionID) (ActionDef, bool) {
	for _, a := range d.Actions {
		if a.ID == id {
			return a, true
		}
	}
	return ActionDef{}, false
}

// CheckPin reports whether the kind can be attached to the pin.
func (d DeviceKindDef) CheckPin(p PinCapability) error {
	switch {
	case p.Reserved:
		return fmt.Errorf("GPIO%d is reserved: %w", p.ID, ErrIncompatiblePin)
	case d.RequiresPWM && !p.PWM:
		return fmt.Errorf("%s needs PWM, GPIO%d has none: %w", d.Kind, p.ID, ErrIncompatiblePin)
	case d.RequiresAnalog && !p.AnalogInput:
		return fmt.Errorf("%s needs ADC, GPIO%d has none: %w", d.Kind, p.ID, ErrIncompatiblePin)
	case p.InputOnly && d.Direction != DirectionInput:
		return fmt.Errorf("GPIO%d is input-only, %s is an output: %w", p.ID, d.Kind, ErrIncompatiblePin)
	}
	return nil
}

// Catalog is the static registry of device kinds.
type Catalog struct {
	kinds map[DeviceKind]DeviceKindDef
	order []DeviceKind
}

// NewCatalog builds a catalog preserving definition order.
func NewCatalog(defs ...DeviceKindDef) *Catalog {
	c := &Catalog{kinds: make(map[DeviceKind]DeviceKindDef, len(defs))}
	for _, d := range defs {
		if _, dup := c.kinds[d.Kind]; !dup {
			c.order = append(c.order, d.Kind)
		}
		c.kinds[d.Kind] = d
	}
	return c
}

// Lookup returns the definition of a kind.
func (c *Catalog) Lookup(kind DeviceKind) (DeviceKindDef, bool) {
	d, ok := c.kinds[kind]
	return d, ok
}

// Kinds returns every definition in catalog order.
func (c *Catalog) Kinds() []DeviceKindDef {
	out := make([]DeviceKindDef, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.kinds[k])
	}
	return out
}

// CompatibleKinds lists the kinds that may be attached to a pin.
func (c *Catalog) CompatibleKinds(p PinCapability) []DeviceKindDef {
	var out []DeviceKindDef
	for _, d := range c.Kinds() {
		if d.CheckPin(p) == nil {
			out = append(out, d)
		}
	}
	return out
}

func percent(name, label string) ParamDef {
	return ParamDef{Name: name, Label: label, Kind: ParamRange, Min: 0, Max: 100}
}

func millis(name, label string, min, max int) ParamDef {
	return ParamDef{Name: name, Label: label, Kind: ParamNumber, Min: min, Max: max}
}

func withDefault(p ParamDef, def string) ParamDef {
	p.Default = def
	return p
}

// DefaultCatalog returns the built-in device catalog.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		DeviceKindDef{
			Kind: KindMotorDC, Label: "DC motor", Direction: DirectionOutput, RequiresPWM: true,
			Actions: []ActionDef{
				{ID: ActionSpeed, Label: "Set speed", Params: []ParamDef{
					withDefault(percent("speed", "Speed (%)"), "0"),
				}},
				{ID: ActionDirection, Label: "Reverse direction"},
				{ID: ActionStop, Label: "Stop"},
				{ID: ActionRamp, Label: "Ramp speed", Params: []ParamDef{
					withDefault(percent("from", "From (%)"), "0"),
					withDefault(percent("to", "To (%)"), "100"),
					withDefault(millis("duration", "Duration (ms)", 100, 10000), "1000"),
				}},
			},
		},
		DeviceKindDef{
			Kind: KindServo, Label: "Servo", Direction: DirectionOutput, RequiresPWM: true,
			Actions: []ActionDef{
				{ID: ActionAngle, Label: "Rotate to angle", Params: []ParamDef{
					{Name: "angle", Label: "Angle (deg)", Kind: ParamRange, Min: 0, Max: 180, Default: "90"},
				}},
				{ID: ActionSweep, Label: "Sweep", Params: []ParamDef{
					{Name: "from", Label: "From (deg)", Kind: ParamRange, Min: 0, Max: 180},
					{Name: "to", Label: "To (deg)", Kind: ParamRange, Min: 0, Max: 180, Default: "180"},
					{Name: "speed", Label: "Speed", Kind: ParamRange, Min: 1, Max: 10},
				}},
				{ID: ActionCenter, Label: "Center (90 deg)"},
			},
			Extra: []ParamDef{
				{Name: "min_angle", Label: "Minimum angle", Kind: ParamNumber, Min: 0, Max: 180, Default: "0"},
				{Name: "max_angle", Label: "Maximum angle", Kind: ParamNumber, Min: 0, Max: 180, Default: "180"},
			},
		},
		DeviceKindDef{
			Kind: KindLED, Label: "LED", Direction: DirectionOutput,
			Actions: []ActionDef{
				{ID: ActionOn, Label: "Turn on"},
				{ID: ActionOff, Label: "Turn off"},
				{ID: ActionBlink, Label: "Blink", Params: []ParamDef{
					withDefault(millis("interval", "Interval (ms)", 50, 5000), "500"),
				}},
				{ID: ActionFade, Label: "Fade out", Params: []ParamDef{
					withDefault(millis("duration", "Duration (ms)", 100, 5000), "1000"),
				}},
				{ID: ActionBrightness, Label: "Brightness", Params: []ParamDef{
					withDefault(percent("level", "Brightness (%)"), "50"),
				}},
			},
		},
		DeviceKindDef{
			Kind: KindRelay, Label: "Relay", Direction: DirectionOutput,
			Actions: []ActionDef{
				{ID: ActionOn, Label: "Switch on"},
				{ID: ActionOff, Label: "Switch off"},
				{ID: ActionToggle, Label: "Toggle"},
				{ID: ActionPulse, Label: "Pulse", Params: []ParamDef{
					withDefault(millis("duration", "Duration (ms)", 100, 10000), "1000"),
				}},
			},
		},
		DeviceKindDef{
			Kind: KindBuzzer, Label: "Buzzer", Direction: DirectionOutput, RequiresPWM: true,
			Actions: []ActionDef{
				{ID: ActionBeep, Label: "Beep", Params: []ParamDef{
					withDefault(millis("frequency", "Frequency (Hz)", 100, 5000), "1000"),
					withDefault(millis("duration", "Duration (ms)", 50, 5000), "500"),
				}},
				{ID: ActionMelody, Label: "Melody", Params: []ParamDef{
					{Name: "tune", Label: "Tune", Kind: ParamChoice, Options: []string{"siren", "bell", "alarm"}},
				}},
				{ID: ActionOff, Label: "Silence"},
			},
		},
		DeviceKindDef{Kind: KindButton, Label: "Button", Direction: DirectionInput, PullUp: true},
		DeviceKindDef{Kind: KindSwitch, Label: "Switch", Direction: DirectionInput, PullUp: true},
		DeviceKindDef{Kind: KindPotentiometer, Label: "Potentiometer", Direction: DirectionInput, RequiresAnalog: true},
		DeviceKindDef{Kind: KindSensorTemp, Label: "Temperature sensor", Direction: DirectionInput, RequiresAnalog: true},
		DeviceKindDef{Kind: KindSensorLight, Label: "Light sensor", Direction: DirectionInput, RequiresAnalog: true},
	)
}
