package runtime

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/robotpit/pinsmith/pkg/domain"
)

// Blocks returns a copy of the block program.
func (e *Editor) Blocks() []domain.Block {
	out := make([]domain.Block, len(e.snap.Blocks))
	for i, b := range e.snap.Blocks {
		out[i] = b.Clone()
	}
	return out
}

// AddBlock appends a block of type t initialised with its defaults.
func (e *Editor) AddBlock(t domain.BlockType) (domain.Block, error) {
	b, err := domain.NewBlock(e.newID(), t)
	if err != nil {
		return domain.Block{}, domain.Invalid("add_block", domain.ErrUnknownBlockType, "type", string(t))
	}
	e.snap.Blocks = append(e.snap.Blocks, b)
	return b.Clone(), nil
}

// SetBlockParam sets one named parameter of a block.
//
// The value is decoded loosely into the block's parameter shape, so "5" and 5
// are both accepted for a pin. An empty or nil pin clears the reference.
// References are not checked against the registry here; code generation skips
// blocks that point at nothing usable.
func (e *Editor) SetBlockParam(index int, name string, value any) error {
	const op = "set_block_param"

	if index < 0 || index >= len(e.snap.Blocks) {
		return outOfRange(op, "index", index, len(e.snap.Blocks))
	}

	b := e.snap.Blocks[index].Clone()
	name = strings.ToLower(strings.TrimSpace(name))

	var err error
	switch b.Type {
	case domain.BlockCondition:
		if b.Condition == nil {
			b.Condition = &domain.ConditionParams{Operator: domain.OpGreater, Value: "0"}
		}
		if clearsPin(name, value) {
			b.Condition.Pin = nil
			break
		}
		err = decodeParam(b.Condition, name, value)
		switch {
		case err != nil:
		case !b.Condition.Operator.Valid():
			err = fmt.Errorf("operator %q is not one of >, <, ==, !=", b.Condition.Operator)
		case name == "value" && !domain.NumericValue(b.Condition.Value):
			err = fmt.Errorf("value %q is not a number", b.Condition.Value)
		}
	case domain.BlockAction:
		if b.Action == nil {
			b.Action = &domain.ActionParams{}
		}
		if clearsPin(name, value) {
			b.Action.Pin = nil
			break
		}
		err = decodeParam(b.Action, name, value)
	case domain.BlockLoop:
		if b.Loop == nil {
			b.Loop = &domain.LoopParams{Count: domain.DefaultLoopCount}
		}
		err = decodeParam(b.Loop, name, value)
		if err == nil && b.Loop.Count <= 0 {
			err = fmt.Errorf("count must be positive, got %d", b.Loop.Count)
		}
	case domain.BlockDelay:
		if b.Delay == nil {
			b.Delay = &domain.DelayParams{Time: domain.DefaultDelayMillis}
		}
		err = decodeParam(b.Delay, name, value)
		if err == nil && b.Delay.Time <= 0 {
			err = fmt.Errorf("time must be positive, got %d", b.Delay.Time)
		}
	default:
		return domain.Invalid(op, domain.ErrUnknownBlockType, "type", string(b.Type))
	}
	if err != nil {
		return domain.Invalid(op, domain.ErrInvalidBlockParam, name, err.Error())
	}

	e.snap.Blocks[index] = b
	return nil
}

func clearsPin(name string, value any) bool {
	if name != "pin" {
		return false
	}
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case *int:
		return v == nil
	}
	return false
}

// decodeParam writes {name: value} into target, rejecting names the shape does not have.
func decodeParam(target any, name string, value any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if s, ok := value.(string); ok {
		value = strings.TrimSpace(s)
	}
	return dec.Decode(map[string]any{name: value})
}

// MoveBlock swaps a block with its neighbour; delta is -1 (up) or +1 (down).
// It reports whether anything moved.
func (e *Editor) MoveBlock(index, delta int) bool {
	return swap(e.snap.Blocks, index, delta)
}

// DeleteBlock removes a block, shifting later blocks down.
func (e *Editor) DeleteBlock(index int) error {
	if index < 0 || index >= len(e.snap.Blocks) {
		return outOfRange("delete_block", "index", index, len(e.snap.Blocks))
	}
	e.snap.Blocks = append(e.snap.Blocks[:index:index], e.snap.Blocks[index+1:]...)
	return nil
}

// ClearBlocks empties the block program. It reports false when there was nothing to clear.
func (e *Editor) ClearBlocks() bool {
	if len(e.snap.Blocks) == 0 {
		return false
	}
	e.snap.Blocks = []domain.Block{}
	return true
}
