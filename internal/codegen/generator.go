// Package codegen renders a project snapshot as an Arduino sketch.
//
// Generation is a pure function of the snapshot, the device catalog, the pin
// table and a clock. Two runs over the same model differ only in the
// "Generated:" header line.
package codegen

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robotpit/pinsmith/pkg/domain"
)

const (
	indent    = "    "
	rule      = "// =========================================="
	stampForm = "2006-01-02 15:04:05"
)

// RampSteps is the number of intervals motorRamp divides a transition into.
const RampSteps = 50

// Generator turns snapshots into sketch source.
type Generator struct {
	catalog *domain.Catalog
	pins    *domain.PinTable
	now     func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithCatalog sets the device catalog used to resolve parameter defaults.
func WithCatalog(c *domain.Catalog) Option {
	return func(g *Generator) {
		if c != nil {
			g.catalog = c
		}
	}
}

// WithPins sets the pin table used to pick analog or digital reads.
func WithPins(t *domain.PinTable) Option {
	return func(g *Generator) {
		if t != nil {
			g.pins = t
		}
	}
}

// WithClock sets the clock stamped into the header.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// New creates a Generator for the ESP32 board and the default catalog.
func New(opts ...Option) *Generator {
	g := &Generator{
		catalog: domain.DefaultCatalog(),
		pins:    domain.ESP32Pins(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate renders snap. It never modifies snap.
func (g *Generator) Generate(snap *domain.Snapshot) string {
	w := &writer{}
	names := Identifiers(snap)
	pins := snap.Pins()

	g.header(w)
	g.definitions(w, snap, pins, names)
	g.setup(w, snap, pins, names)
	g.loop(w, snap, pins, names)
	if snap.HasKind(domain.KindMotorDC) {
		motorHelpers(w)
	}
	return w.String()
}

func (g *Generator) header(w *writer) {
	w.line("// Generated by pinsmith")
	w.line("// Board: " + g.pins.Board)
	w.line("// Generated: " + g.now().Format(stampForm))
	w.blank()
	w.line("#include <Arduino.h>")
	w.blank()
}

func (g *Generator) definitions(w *writer, snap *domain.Snapshot, pins []int, names map[int]string) {
	section(w, "PIN DEFINITIONS")
	if len(pins) == 0 {
		w.line("// No pins configured")
	}
	for _, pin := range pins {
		w.line(fmt.Sprintf("#define %s %d  // %s", names[pin], pin, snap.Configs[pin].Kind))
	}
	w.blank()
}

func (g *Generator) setup(w *writer, snap *domain.Snapshot, pins []int, names map[int]string) {
	section(w, "SETUP")
	w.line("void setup() {")
	w.stmt(1, "Serial.begin(115200);")
	w.stmt(1, `Serial.println("pinsmith sketch started");`)

	if len(pins) > 0 {
		w.blank()
		w.stmt(1, "// Initialize pins")
	}
	for _, pin := range pins {
		cfg := snap.Configs[pin]
		def, ok := g.catalog.Lookup(cfg.Kind)
		if !ok {
			continue
		}
		w.stmt(1, fmt.Sprintf("pinMode(%s, %s);", names[pin], pinMode(def)))
	}

	if snap.HasKind(domain.KindServo) {
		w.blank()
		w.stmt(1, "// Initialize servos")
		w.stmt(1, "// Servo library setup is not generated: attach each servo_<NAME> here")
	}
	w.line("}")
	w.blank()
}

func pinMode(def domain.DeviceKindDef) string {
	switch {
	case def.Direction == domain.DirectionOutput:
		return "OUTPUT"
	case def.PullUp:
		return "INPUT_PULLUP"
	default:
		return "INPUT"
	}
}

func (g *Generator) loop(w *writer, snap *domain.Snapshot, pins []int, names map[int]string) {
	section(w, "MAIN LOOP")
	w.line("void loop() {")

	if len(snap.Blocks) > 0 {
		w.stmt(1, "// Block diagram logic")
		for _, b := range snap.Blocks {
			g.block(w, snap, names, b)
		}
	}

	sequences := false
	for _, pin := range pins {
		steps := snap.Actions[pin]
		if len(steps) == 0 {
			continue
		}
		if !sequences {
			w.blank()
			w.stmt(1, "// Action sequences")
			sequences = true
		}
		cfg := snap.Configs[pin]
		w.blank()
		w.stmt(1, fmt.Sprintf("// %s - GPIO %d", oneLine(cfg.Label), pin))
		for _, step := range steps {
			g.action(w, 1, cfg, names[pin], step)
		}
	}

	if !sequences && len(snap.Blocks) == 0 {
		w.stmt(1, "// Add your code here")
		w.stmt(1, "delay(1000);")
	}
	w.line("}")
}

// block translates one block. Blocks pointing at an unconfigured pin produce
// nothing, and so do conditions on output devices.
func (g *Generator) block(w *writer, snap *domain.Snapshot, names map[int]string, b domain.Block) {
	switch b.Type {
	case domain.BlockCondition:
		c := b.Condition
		if c == nil || c.Pin == nil {
			return
		}
		cfg, ok := snap.Configs[*c.Pin]
		if !ok {
			return
		}
		if def, ok := g.catalog.Lookup(cfg.Kind); !ok || def.Direction != domain.DirectionInput {
			return
		}
		op := c.Operator
		if !op.Valid() {
			op = domain.OpGreater
		}
		value := strings.TrimSpace(c.Value)
		if !domain.NumericValue(value) {
			value = "0"
		}
		w.stmt(1, fmt.Sprintf("if (%s %s %s) {", g.read(cfg, names[cfg.Pin]), op, value))
		w.stmt(2, "// Add action here")
		w.stmt(1, "}")

	case domain.BlockAction:
		a := b.Action
		if a == nil || a.Pin == nil || a.Action == "" {
			return
		}
		cfg, ok := snap.Configs[*a.Pin]
		if !ok {
			return
		}
		g.action(w, 1, cfg, names[cfg.Pin], domain.ActionStep{Type: a.Action})

	case domain.BlockLoop:
		count := domain.DefaultLoopCount
		if b.Loop != nil && b.Loop.Count > 0 {
			count = b.Loop.Count
		}
		w.stmt(1, "for (int i = 0; i < "+strconv.Itoa(count)+"; i++) {")
		w.stmt(2, "// Add loop content")
		w.stmt(1, "}")

	case domain.BlockDelay:
		ms := domain.DefaultDelayMillis
		if b.Delay != nil && b.Delay.Time > 0 {
			ms = b.Delay.Time
		}
		w.stmt(1, "delay("+strconv.Itoa(ms)+");")
	}
}

// read picks the call that samples an input pin: contact inputs are digital,
// anything else on an ADC-capable pin is analog.
func (g *Generator) read(cfg domain.PinConfig, name string) string {
	def, _ := g.catalog.Lookup(cfg.Kind)
	if def.PullUp {
		return "digitalRead(" + name + ")"
	}
	if c, ok := g.pins.Lookup(cfg.Pin); ok && c.AnalogInput {
		return "analogRead(" + name + ")"
	}
	return "digitalRead(" + name + ")"
}

func (g *Generator) action(w *writer, depth int, cfg domain.PinConfig, name string, step domain.ActionStep) {
	def, ok := g.catalog.Lookup(cfg.Kind)
	if !ok {
		return
	}
	actionDef, ok := def.Action(step.Type)
	if !ok {
		return
	}
	stmts, ok := translate(cfg.Kind, step.Type, name, args{def: actionDef, step: step})
	if !ok {
		return
	}
	for _, s := range stmts {
		w.stmt(depth, s)
	}
}

func motorHelpers(w *writer) {
	w.blank()
	w.blank()
	section(w, "HELPER FUNCTIONS")
	w.line("void setMotorSpeed(int pin, int speed) {")
	w.stmt(1, "// Speed: 0-100%")
	w.stmt(1, "int pwmValue = map(speed, 0, 100, 0, 255);")
	w.stmt(1, "analogWrite(pin, pwmValue);")
	w.line("}")
	w.blank()
	w.line("void motorRamp(int pin, int speedFrom, int speedTo, int duration) {")
	w.stmt(1, "int steps = "+strconv.Itoa(RampSteps)+";")
	w.stmt(1, "int delayTime = duration / steps;")
	w.stmt(1, "for (int i = 0; i <= steps; i++) {")
	w.stmt(2, "int speed = map(i, 0, steps, speedFrom, speedTo);")
	w.stmt(2, "setMotorSpeed(pin, speed);")
	w.stmt(2, "delay(delayTime);")
	w.stmt(1, "}")
	w.line("}")
}

func section(w *writer, title string) {
	w.line(rule)
	w.line("// " + title)
	w.line(rule)
}

// oneLine keeps user text from breaking out of a line comment.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

type writer struct {
	b strings.Builder
}

func (w *writer) line(s string) {
	w.b.WriteString(s)
	w.b.WriteByte('\n')
}

func (w *writer) stmt(depth int, s string) {
	w.line(strings.Repeat(indent, depth) + s)
}

func (w *writer) blank() {
	w.b.WriteByte('\n')
}

func (w *writer) String() string {
	return w.b.String()
}
