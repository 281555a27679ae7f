package domain

import "sort"

// Snapshot is the full state of a project: pin configurations,
// per-pin action sequences and the block program.
type Snapshot struct {
	Configs map[int]PinConfig    `json:"configs" yaml:"configs"`
	Actions map[int][]ActionStep `json:"actions" yaml:"actions"`
	Blocks  []Block              `json:"blocks" yaml:"blocks"`
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Configs: make(map[int]PinConfig),
		Actions: make(map[int][]ActionStep),
		Blocks:  []Block{},
	}
}

// Normalize replaces nil collections with empty ones and drops
// sequences whose pin is no longer configured.
func (s *Snapshot) Normalize() *Snapshot {
	if s.Configs == nil {
		s.Configs = make(map[int]PinConfig)
	}
	if s.Actions == nil {
		s.Actions = make(map[int][]ActionStep)
	}
	if s.Blocks == nil {
		s.Blocks = []Block{}
	}
	for pin := range s.Actions {
		if _, ok := s.Configs[pin]; !ok {
			delete(s.Actions, pin)
		}
	}
	return s
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{
		Configs: make(map[int]PinConfig, len(s.Configs)),
		Actions: make(map[int][]ActionStep, len(s.Actions)),
		Blocks:  make([]Block, 0, len(s.Blocks)),
	}
	for pin, cfg := range s.Configs {
		out.Configs[pin] = cfg.Clone()
	}
	for pin, steps := range s.Actions {
		cp := make([]ActionStep, len(steps))
		for i, st := range steps {
			cp[i] = st.Clone()
		}
		out.Actions[pin] = cp
	}
	for _, b := range s.Blocks {
		out.Blocks = append(out.Blocks, b.Clone())
	}
	return out
}

// Pins returns the configured pins in ascending order.
func (s *Snapshot) Pins() []int {
	pins := make([]int, 0, len(s.Configs))
	for pin := range s.Configs {
		pins = append(pins, pin)
	}
	sort.Ints(pins)
	return pins
}

// Empty reports whether nothing is configured.
func (s *Snapshot) Empty() bool {
	return len(s.Configs) == 0 && len(s.Actions) == 0 && len(s.Blocks) == 0
}

// HasKind reports whether any configured pin uses kind.
func (s *Snapshot) HasKind(kind DeviceKind) bool {
	for _, cfg := range s.Configs {
		if cfg.Kind == kind {
			return true
		}
	}
	return false
}
