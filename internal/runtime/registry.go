package runtime

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/robotpit/pinsmith/pkg/domain"
)

// Extra parameter names bounding a servo's travel.
const (
	ParamMinAngle = "min_angle"
	ParamMaxAngle = "max_angle"
)

// SelectPin returns the capability of pin and its current configuration, if any.
func (e *Editor) SelectPin(pin int) (domain.PinCapability, *domain.PinConfig, error) {
	c, err := e.usablePin("select_pin", pin)
	if err != nil {
		return c, nil, err
	}
	cfg, ok := e.snap.Configs[pin]
	if !ok {
		return c, nil, nil
	}
	cfg = cfg.Clone()
	return c, &cfg, nil
}

// ApplyConfig attaches a device to pin, replacing any previous configuration.
// The pin's action sequence is discarded only when the device kind changes.
// It returns the stored configuration with its resolved label.
func (e *Editor) ApplyConfig(pin int, kind domain.DeviceKind, label string, extra map[string]string) (domain.PinConfig, error) {
	const op = "apply_config"

	c, err := e.usablePin(op, pin)
	if err != nil {
		return domain.PinConfig{}, err
	}
	if kind == "" {
		return domain.PinConfig{}, domain.Invalid(op, domain.ErrMissingDeviceKind, "device", "a device kind is required")
	}
	def, ok := e.catalog.Lookup(kind)
	if !ok {
		return domain.PinConfig{}, domain.Invalid(op, domain.ErrUnknownDeviceKind, "device", string(kind))
	}
	if err := def.CheckPin(c); err != nil {
		return domain.PinConfig{}, fmt.Errorf("%s: %w", op, err)
	}
	params, err := resolveExtra(op, def, extra)
	if err != nil {
		return domain.PinConfig{}, err
	}

	label = strings.TrimSpace(label)
	if label == "" {
		label = domain.DefaultLabel(pin)
	}
	cfg := domain.PinConfig{Pin: pin, Kind: kind, Label: label, Params: params}

	if prev, ok := e.snap.Configs[pin]; ok && prev.Kind != kind {
		delete(e.snap.Actions, pin)
	}
	e.snap.Configs[pin] = cfg
	return cfg.Clone(), nil
}

// resolveExtra validates the kind's static parameters and fills in defaults.
func resolveExtra(op string, def domain.DeviceKindDef, extra map[string]string) (map[string]string, error) {
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !hasParam(def.Extra, k) {
			return nil, domain.Invalid(op, domain.ErrInvalidParam, k, fmt.Sprintf("not a parameter of %s", def.Kind))
		}
	}
	if len(def.Extra) == 0 {
		return nil, nil
	}

	out := make(map[string]string, len(def.Extra))
	for _, p := range def.Extra {
		v := strings.TrimSpace(extra[p.Name])
		if v == "" {
			v = p.Fallback()
		} else if err := p.Validate(v); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out[p.Name] = v
	}

	lo, loOK := out[ParamMinAngle]
	hi, hiOK := out[ParamMaxAngle]
	if loOK && hiOK {
		l, _ := strconv.Atoi(lo)
		h, _ := strconv.Atoi(hi)
		if l > h {
			return nil, domain.Invalid(op, domain.ErrInvalidParam, ParamMinAngle, fmt.Sprintf("%d is above %s %d", l, ParamMaxAngle, h))
		}
	}
	return out, nil
}

func hasParam(defs []domain.ParamDef, name string) bool {
	for _, p := range defs {
		if p.Name == name {
			return true
		}
	}
	return false
}

// RemovePin deletes a single pin configuration together with its sequence.
func (e *Editor) RemovePin(pin int) error {
	if _, ok := e.snap.Configs[pin]; !ok {
		return domain.Invalid("remove_pin", domain.ErrPinNotConfigured, "pin", fmt.Sprintf("GPIO%d has no device", pin))
	}
	delete(e.snap.Configs, pin)
	delete(e.snap.Actions, pin)
	return nil
}

// RemoveAll clears every configuration, every sequence and the block program.
func (e *Editor) RemoveAll() {
	e.snap = domain.NewSnapshot()
}

// Config returns the configuration of pin.
func (e *Editor) Config(pin int) (domain.PinConfig, bool) {
	cfg, ok := e.snap.Configs[pin]
	return cfg.Clone(), ok
}

// Configs returns every configuration in ascending pin order.
func (e *Editor) Configs() []domain.PinConfig {
	out := make([]domain.PinConfig, 0, len(e.snap.Configs))
	for _, pin := range e.snap.Pins() {
		out = append(out, e.snap.Configs[pin].Clone())
	}
	return out
}
