// Package runtime holds the editing core of a project: the pin configuration
// registry, the per-pin action sequencer and the block program list.
//
// An Editor owns exactly one snapshot. Every operation validates its input
// before touching the snapshot, so a rejected call leaves the model as it was.
// The Editor does no I/O and is not safe for concurrent use; callers that share
// one across goroutines serialize access themselves.
package runtime

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/robotpit/pinsmith/pkg/domain"
)

// Editor mutates a single project snapshot.
type Editor struct {
	snap    *domain.Snapshot
	catalog *domain.Catalog
	pins    *domain.PinTable
	strict  bool
	newID   func() string
}

// Option configures an Editor.
type Option func(*Editor)

// WithCatalog replaces the built-in device catalog.
func WithCatalog(c *domain.Catalog) Option {
	return func(e *Editor) {
		if c != nil {
			e.catalog = c
		}
	}
}

// WithPins replaces the built-in ESP32 pin table.
func WithPins(t *domain.PinTable) Option {
	return func(e *Editor) {
		if t != nil {
			e.pins = t
		}
	}
}

// WithStrictParams makes SetStepParam check values against their definition.
func WithStrictParams(strict bool) Option {
	return func(e *Editor) {
		e.strict = strict
	}
}

// WithIDGenerator overrides how block IDs are minted.
func WithIDGenerator(fn func() string) Option {
	return func(e *Editor) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// NewEditor creates an Editor over snap. A nil snap starts an empty project.
func NewEditor(snap *domain.Snapshot, opts ...Option) *Editor {
	e := &Editor{
		catalog: domain.DefaultCatalog(),
		pins:    domain.ESP32Pins(),
		newID:   newBlockID,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.Reset(snap)
	return e
}

// newBlockID returns a time-ordered identifier.
func newBlockID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Reset replaces the edited snapshot, typically with one just loaded from storage.
// Configurations that ApplyConfig would refuse on this board and catalog are
// dropped together with their sequences; Reset returns their pins in ascending order.
func (e *Editor) Reset(snap *domain.Snapshot) []int {
	if snap == nil {
		e.snap = domain.NewSnapshot()
		return nil
	}
	s := snap.Clone()
	s.Normalize()

	var dropped []int
	for _, pin := range s.Pins() {
		cfg := s.Configs[pin]
		if err := e.admit(pin, cfg); err != nil {
			delete(s.Configs, pin)
			delete(s.Actions, pin)
			dropped = append(dropped, pin)
			continue
		}
		cfg.Pin = pin
		s.Configs[pin] = cfg
	}
	e.snap = s
	return dropped
}

// admit checks a stored configuration the way ApplyConfig checks a new one.
func (e *Editor) admit(pin int, cfg domain.PinConfig) error {
	const op = "reset"

	c, err := e.usablePin(op, pin)
	if err != nil {
		return err
	}
	def, ok := e.catalog.Lookup(cfg.Kind)
	if !ok {
		return domain.Invalid(op, domain.ErrUnknownDeviceKind, "device", string(cfg.Kind))
	}
	if err := def.CheckPin(c); err != nil {
		return err
	}
	_, err = resolveExtra(op, def, cfg.Params)
	return err
}

// Snapshot returns a deep copy of the current model.
func (e *Editor) Snapshot() *domain.Snapshot {
	return e.snap.Clone()
}

// Catalog returns the device catalog in use.
func (e *Editor) Catalog() *domain.Catalog {
	return e.catalog
}

// Pins returns the pin table in use.
func (e *Editor) Pins() *domain.PinTable {
	return e.pins
}

// Strict reports whether step parameters are validated on write.
func (e *Editor) Strict() bool {
	return e.strict
}

// usablePin resolves a pin that exists on the board and is not reserved.
func (e *Editor) usablePin(op string, pin int) (domain.PinCapability, error) {
	c, ok := e.pins.Lookup(pin)
	if !ok {
		return c, domain.Invalid(op, domain.ErrInvalidPin, "pin", fmt.Sprintf("GPIO%d does not exist on %s", pin, e.pins.Board))
	}
	if c.Reserved {
		return c, domain.Invalid(op, domain.ErrInvalidPin, "pin", fmt.Sprintf("GPIO%d is reserved", pin))
	}
	return c, nil
}

// configured resolves a configured pin and its catalog definition.
func (e *Editor) configured(op string, pin int) (domain.PinConfig, domain.DeviceKindDef, error) {
	cfg, ok := e.snap.Configs[pin]
	if !ok {
		return cfg, domain.DeviceKindDef{}, domain.Invalid(op, domain.ErrPinNotConfigured, "pin", fmt.Sprintf("GPIO%d has no device", pin))
	}
	def, ok := e.catalog.Lookup(cfg.Kind)
	if !ok {
		return cfg, def, domain.Invalid(op, domain.ErrUnknownDeviceKind, "device", string(cfg.Kind))
	}
	return cfg, def, nil
}

// swap exchanges list[index] with its neighbour in the direction of delta.
// It reports false and leaves list untouched when either position is out of range.
func swap[T any](list []T, index, delta int) bool {
	switch {
	case delta > 0:
		delta = 1
	case delta < 0:
		delta = -1
	default:
		return false
	}
	target := index + delta
	if index < 0 || index >= len(list) || target < 0 || target >= len(list) {
		return false
	}
	list[index], list[target] = list[target], list[index]
	return true
}

func outOfRange(op, field string, index, length int) error {
	return domain.Invalid(op, domain.ErrIndexOutOfRange, field, fmt.Sprintf("%d not in [0, %d)", index, length))
}
