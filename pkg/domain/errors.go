package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPin is returned when a pin does not exist on the board or is reserved.
	ErrInvalidPin = errors.New("invalid pin")

	// ErrIncompatiblePin is returned when a device kind's requirements are not met by a pin.
	ErrIncompatiblePin = errors.New("incompatible pin")

	// ErrMissingDeviceKind is returned when a configuration is applied without a device kind.
	ErrMissingDeviceKind = errors.New("missing device kind")

	// ErrUnknownDeviceKind is returned when a device kind is not in the catalog.
	ErrUnknownDeviceKind = errors.New("unknown device kind")

	// ErrUnknownAction is returned when an action id is not defined for a device kind.
	ErrUnknownAction = errors.New("unknown action")

	// ErrUnknownBlockType is returned for block types outside condition/action/loop/delay.
	ErrUnknownBlockType = errors.New("unknown block type")

	// ErrIndexOutOfRange is returned when a step, parameter or block index does not exist.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrPinNotConfigured is returned when an operation needs a configured pin.
	ErrPinNotConfigured = errors.New("pin not configured")

	// ErrNoActionsForKind is returned when steps are added to an input-only device kind.
	ErrNoActionsForKind = errors.New("device kind has no actions")

	// ErrInvalidParam is returned when a parameter value violates its definition.
	ErrInvalidParam = errors.New("invalid parameter")

	// ErrInvalidBlockParam is returned when a block parameter name or value does not fit the block's shape.
	ErrInvalidBlockParam = errors.New("invalid block parameter")

	// ErrProjectNotFound is returned when a project ID cannot be found in the store.
	ErrProjectNotFound = errors.New("project not found")
)

// ValidationError describes a rejected operation in detail.
// It wraps one of the sentinel errors above so callers can use errors.Is.
type ValidationError struct {
	Op     string // Operation that rejected the input (e.g. "apply_config")
	Field  string // Offending field, if any
	Reason string // Human-readable reason
	Err    error  // Sentinel
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v: %s", e.Op, e.Err, e.Reason)
	}
	return fmt.Sprintf("%s: %v: %s: %s", e.Op, e.Err, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Invalid builds a ValidationError.
func Invalid(op string, err error, field, reason string) error {
	return &ValidationError{Op: op, Field: field, Reason: reason, Err: err}
}
