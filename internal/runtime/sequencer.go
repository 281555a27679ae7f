package runtime

import (
	"fmt"
	"strings"

	"github.com/robotpit/pinsmith/pkg/domain"
)

// Steps returns a copy of the action sequence of pin.
func (e *Editor) Steps(pin int) []domain.ActionStep {
	steps := e.snap.Actions[pin]
	out := make([]domain.ActionStep, len(steps))
	for i, s := range steps {
		out[i] = s.Clone()
	}
	return out
}

// AddStep appends a step running the kind's first action and returns its index.
func (e *Editor) AddStep(pin int) (int, error) {
	const op = "add_step"

	cfg, def, err := e.configured(op, pin)
	if err != nil {
		return 0, err
	}
	if len(def.Actions) == 0 {
		return 0, domain.Invalid(op, domain.ErrNoActionsForKind, "device", fmt.Sprintf("%s is an input", cfg.Kind))
	}

	e.snap.Actions[pin] = append(e.snap.Actions[pin], domain.ActionStep{Type: def.Actions[0].ID})
	return len(e.snap.Actions[pin]) - 1, nil
}

// SetStepType changes the action of a step. Parameter values are dropped.
func (e *Editor) SetStepType(pin, index int, action domain.ActionID) error {
	const op = "set_step_type"

	steps, def, err := e.step(op, pin, index)
	if err != nil {
		return err
	}
	if _, ok := def.Action(action); !ok {
		return domain.Invalid(op, domain.ErrUnknownAction, "action", fmt.Sprintf("%q is not an action of %s", action, def.Kind))
	}

	steps[index] = domain.ActionStep{Type: action}
	return nil
}

// SetStepParam sets the paramIndex-th parameter of a step's action.
// Values are stored as given unless the Editor runs with strict parameters.
func (e *Editor) SetStepParam(pin, index, paramIndex int, value string) error {
	const op = "set_step_param"

	steps, def, err := e.step(op, pin, index)
	if err != nil {
		return err
	}
	action, err := stepAction(op, def, steps[index])
	if err != nil {
		return err
	}
	if paramIndex < 0 || paramIndex >= len(action.Params) {
		return outOfRange(op, "param", paramIndex, len(action.Params))
	}
	return e.setParam(op, &steps[index], action.Params[paramIndex], value)
}

// SetStepParamByName sets a step parameter addressed by its name.
func (e *Editor) SetStepParamByName(pin, index int, name, value string) error {
	const op = "set_step_param"

	steps, def, err := e.step(op, pin, index)
	if err != nil {
		return err
	}
	action, err := stepAction(op, def, steps[index])
	if err != nil {
		return err
	}
	p, ok := action.Param(name)
	if !ok {
		return domain.Invalid(op, domain.ErrInvalidParam, name, fmt.Sprintf("not a parameter of %s", action.ID))
	}
	return e.setParam(op, &steps[index], p, value)
}

func (e *Editor) setParam(op string, step *domain.ActionStep, p domain.ParamDef, value string) error {
	value = strings.TrimSpace(value)
	if e.strict {
		if err := p.Validate(value); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	params := make(map[string]string, len(step.Params)+1)
	for k, v := range step.Params {
		params[k] = v
	}
	params[p.Name] = value
	step.Params = params
	return nil
}

// MoveStep swaps a step with its neighbour; delta is -1 (up) or +1 (down).
// It reports whether anything moved. Out-of-range positions are not an error.
func (e *Editor) MoveStep(pin, index, delta int) (bool, error) {
	if _, _, err := e.configured("move_step", pin); err != nil {
		return false, err
	}
	return swap(e.snap.Actions[pin], index, delta), nil
}

// DeleteStep removes a step, shifting later steps down.
func (e *Editor) DeleteStep(pin, index int) error {
	steps, _, err := e.step("delete_step", pin, index)
	if err != nil {
		return err
	}
	e.snap.Actions[pin] = append(steps[:index:index], steps[index+1:]...)
	return nil
}

// step resolves the sequence of a configured pin and checks index against it.
func (e *Editor) step(op string, pin, index int) ([]domain.ActionStep, domain.DeviceKindDef, error) {
	_, def, err := e.configured(op, pin)
	if err != nil {
		return nil, def, err
	}
	steps := e.snap.Actions[pin]
	if index < 0 || index >= len(steps) {
		return nil, def, outOfRange(op, "index", index, len(steps))
	}
	return steps, def, nil
}

func stepAction(op string, def domain.DeviceKindDef, step domain.ActionStep) (domain.ActionDef, error) {
	action, ok := def.Action(step.Type)
	if !ok {
		return action, domain.Invalid(op, domain.ErrUnknownAction, "action", fmt.Sprintf("%q is not an action of %s", step.Type, def.Kind))
	}
	return action, nil
}
