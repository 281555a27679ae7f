package domain

import "fmt"

// BlockType is the kind of a block program unit.
type BlockType string

const (
	BlockCondition BlockType = "condition"
	BlockAction    BlockType = "action"
	BlockLoop      BlockType = "loop"
	BlockDelay     BlockType = "delay"
)

// Operator is a comparison used by condition blocks.
type Operator string

const (
	OpGreater  Operator = ">"
	OpLess     Operator = "<"
	OpEqual    Operator = "=="
	OpNotEqual Operator = "!="
)

// Valid reports whether o is one of the supported comparisons.
func (o Operator) Valid() bool {
	switch o {
	case OpGreater, OpLess, OpEqual, OpNotEqual:
		return true
	}
	return false
}

// NumericValue reports whether v is a plain decimal literal such as 500, -3 or 2.5,
// the only form a condition compares a reading against.
func NumericValue(v string) bool {
	if v != "" && (v[0] == '-' || v[0] == '+') {
		v = v[1:]
	}
	digits, dot := 0, false
	for i := 0; i < len(v); i++ {
		switch c := v[i]; {
		case c >= '0' && c <= '9':
			digits++
		case c == '.' && !dot && digits > 0 && i < len(v)-1:
			dot = true
		default:
			return false
		}
	}
	return digits > 0
}

// Block defaults.
const (
	DefaultLoopCount   = 10
	DefaultDelayMillis = 1000
)

// ConditionParams branches on a reading of an input pin.
type ConditionParams struct {
	Pin      *int     `json:"pin,omitempty" yaml:"pin,omitempty" mapstructure:"pin"`
	Operator Operator `json:"operator" yaml:"operator" mapstructure:"operator"`
	Value    string   `json:"value" yaml:"value" mapstructure:"value"`
}

// ActionParams runs a single action of an output pin.
type ActionParams struct {
	Pin    *int     `json:"pin,omitempty" yaml:"pin,omitempty" mapstructure:"pin"`
	Action ActionID `json:"action,omitempty" yaml:"action,omitempty" mapstructure:"action"`
}

// LoopParams is a counted loop shell.
type LoopParams struct {
	Count int `json:"count" yaml:"count" mapstructure:"count"`
}

// DelayParams is a fixed wait in milliseconds.
type DelayParams struct {
	Time int `json:"time" yaml:"time" mapstructure:"time"`
}

// Block is one unit of the flat block program.
// Exactly one of the parameter pointers is set, matching Type.
type Block struct {
	ID        string           `json:"id" yaml:"id"`
	Type      BlockType        `json:"type" yaml:"type"`
	Condition *ConditionParams `json:"condition,omitempty" yaml:"condition,omitempty"`
	Action    *ActionParams    `json:"action,omitempty" yaml:"action,omitempty"`
	Loop      *LoopParams      `json:"loop,omitempty" yaml:"loop,omitempty"`
	Delay     *DelayParams     `json:"delay,omitempty" yaml:"delay,omitempty"`
}

// NewBlock creates a block of type t with default parameters.
func NewBlock(id string, t BlockType) (Block, error) {
	b := Block{ID: id, Type: t}
	switch t {
	case BlockCondition:
		b.Condition = &ConditionParams{Operator: OpGreater, Value: "0"}
	case BlockAction:
		b.Action = &ActionParams{}
	case BlockLoop:
		b.Loop = &LoopParams{Count: DefaultLoopCount}
	case BlockDelay:
		b.Delay = &DelayParams{Time: DefaultDelayMillis}
	default:
		return Block{}, fmt.Errorf("%q: %w", t, ErrUnknownBlockType)
	}
	return b, nil
}

// Clone returns a deep copy.
func (b Block) Clone() Block {
	if b.Condition != nil {
		c := *b.Condition
		c.Pin = clonePin(c.Pin)
		b.Condition = &c
	}
	if b.Action != nil {
		a := *b.Action
		a.Pin = clonePin(a.Pin)
		b.Action = &a
	}
	if b.Loop != nil {
		l := *b.Loop
		b.Loop = &l
	}
	if b.Delay != nil {
		d := *b.Delay
		b.Delay = &d
	}
	return b
}

func clonePin(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
