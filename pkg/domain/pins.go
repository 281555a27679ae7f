package domain

import (
	"fmt"
	"sort"
	"strings"
)

// PinCapability describes what a single GPIO line can do.
type PinCapability struct {
	ID          int  `json:"id" yaml:"id"`
	Digital     bool `json:"digital" yaml:"digital"`
	AnalogInput bool `json:"analog_input" yaml:"analog_input"`
	PWM         bool `json:"pwm" yaml:"pwm"`
	Reserved    bool `json:"reserved" yaml:"reserved"`
	InputOnly   bool `json:"input_only" yaml:"input_only"`
}

// String renders the capability tags, e.g. "GPIO34 [adc input-only]".
func (p PinCapability) String() string {
	var tags []string
	if p.Digital {
		tags = append(tags, "digital")
	}
	if p.AnalogInput {
		tags = append(tags, "adc")
	}
	if p.PWM {
		tags = append(tags, "pwm")
	}
	if p.InputOnly {
		tags = append(tags, "input-only")
	}
	if p.Reserved {
		tags = append(tags, "reserved")
	}
	return fmt.Sprintf("GPIO%d [%s]", p.ID, strings.Join(tags, " "))
}

// PinTable is the static description of a board's pins.
type PinTable struct {
	Board string
	pins  map[int]PinCapability
	ids   []int
}

// NewPinTable builds a table from explicit capabilities.
// Later entries with a duplicate ID replace earlier ones.
func NewPinTable(board string, caps ...PinCapability) *PinTable {
	t := &PinTable{
		Board: board,
		pins:  make(map[int]PinCapability, len(caps)),
	}
	for _, c := range caps {
		t.pins[c.ID] = c
	}
	t.ids = make([]int, 0, len(t.pins))
	for id := range t.pins {
		t.ids = append(t.ids, id)
	}
	sort.Ints(t.ids)
	return t
}

// Lookup returns the capability of a pin.
func (t *PinTable) Lookup(id int) (PinCapability, bool) {
	c, ok := t.pins[id]
	return c, ok
}

// IDs returns all pin IDs in ascending order, reserved ones included.
func (t *PinTable) IDs() []int {
	out := make([]int, len(t.ids))
	copy(out, t.ids)
	return out
}

// All returns every capability in ascending pin order.
func (t *PinTable) All() []PinCapability {
	out := make([]PinCapability, 0, len(t.ids))
	for _, id := range t.ids {
		out = append(out, t.pins[id])
	}
	return out
}

// ESP32 pin groups for the classic ESP32-WROOM module.
var (
	esp32Digital   = []int{2, 4, 5, 12, 13, 14, 15, 16, 17, 18, 19, 21, 22, 23, 25, 26, 27, 32, 33}
	esp32ADC       = []int{32, 33, 34, 35, 36, 39}
	esp32PWM       = []int{2, 4, 5, 12, 13, 14, 15, 16, 17, 18, 19, 21, 22, 23, 25, 26, 27}
	esp32Reserved  = []int{0, 1, 3, 6, 7, 8, 9, 10, 11}
	esp32InputOnly = []int{34, 35, 36, 39}
)

// ESP32Pins returns the pin table of an ESP32-WROOM board.
// Flash and boot-strapping lines are present but reserved.
func ESP32Pins() *PinTable {
	caps := make(map[int]*PinCapability)
	get := func(id int) *PinCapability {
		c, ok := caps[id]
		if !ok {
			c = &PinCapability{ID: id}
			caps[id] = c
		}
		return c
	}
	for _, id := range esp32Digital {
		get(id).Digital = true
	}
	for _, id := range esp32ADC {
		get(id).AnalogInput = true
	}
	for _, id := range esp32PWM {
		get(id).PWM = true
	}
	for _, id := range esp32Reserved {
		get(id).Reserved = true
	}
	for _, id := range esp32InputOnly {
		get(id).InputOnly = true
	}

	list := make([]PinCapability, 0, len(caps))
	for _, c := range caps {
		list = append(list, *c)
	}
	return NewPinTable("esp32", list...)
}
