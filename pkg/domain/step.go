package domain

// ActionStep is one entry of a pin's action sequence.
// Params is keyed by ParamDef.Name; a key is present only once the user set it.
type ActionStep struct {
	Type   ActionID          `json:"type" yaml:"type"`
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
}

// Value returns the stored value for p, or p's fallback when unset.
func (s ActionStep) Value(p ParamDef) string {
	if v, ok := s.Params[p.Name]; ok && v != "" {
		return v
	}
	return p.Fallback()
}

// Clone returns a deep copy.
func (s ActionStep) Clone() ActionStep {
	s.Params = cloneParams(s.Params)
	return s
}
