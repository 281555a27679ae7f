package domain

import "fmt"

// PinConfig is the device assigned to a pin.
type PinConfig struct {
	Pin   int        `json:"pin" yaml:"pin"`
	Kind  DeviceKind `json:"device" yaml:"device"`
	Label string     `json:"label" yaml:"label"`
	// Params holds the kind's Extra parameters (servo angle bounds), keyed by ParamDef.Name.
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
}

// DefaultLabel is the label given to a pin configured without one.
func DefaultLabel(pin int) string {
	return fmt.Sprintf("GPIO%d", pin)
}

// Clone returns a deep copy.
func (c PinConfig) Clone() PinConfig {
	c.Params = cloneParams(c.Params)
	return c
}

func cloneParams(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
