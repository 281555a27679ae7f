package codegen

import (
	"fmt"
	"math"
	"strconv"

	"github.com/robotpit/pinsmith/pkg/domain"
)

// args resolves step parameter values, falling back to the catalog defaults.
type args struct {
	def  domain.ActionDef
	step domain.ActionStep
}

// num returns a numeric parameter. Values that are not integers use the default,
// so a loosely edited step still yields compilable code.
func (a args) num(name string) int {
	p, ok := a.def.Param(name)
	if !ok {
		return 0
	}
	if n, err := strconv.Atoi(a.step.Value(p)); err == nil {
		return n
	}
	n, _ := strconv.Atoi(p.Fallback())
	return n
}

// translate renders one action of one device kind as statements.
// It reports false for pairs that deliberately produce no code.
func translate(kind domain.DeviceKind, action domain.ActionID, name string, a args) ([]string, bool) {
	f := fmt.Sprintf

	switch kind {
	case domain.KindLED:
		switch action {
		case domain.ActionOn:
			return []string{f("digitalWrite(%s, HIGH);", name)}, true
		case domain.ActionOff:
			return []string{f("digitalWrite(%s, LOW);", name)}, true
		case domain.ActionBlink:
			interval := a.num("interval")
			return []string{
				f("digitalWrite(%s, HIGH);", name),
				f("delay(%d);", interval),
				f("digitalWrite(%s, LOW);", name),
				f("delay(%d);", interval),
			}, true
		case domain.ActionBrightness:
			return []string{f("analogWrite(%s, %d);", name, dutyCycle(a.num("level")))}, true
		case domain.ActionFade:
			return skipUnsupported()
		}

	case domain.KindMotorDC:
		switch action {
		case domain.ActionSpeed:
			return []string{f("setMotorSpeed(%s, %d);", name, a.num("speed"))}, true
		case domain.ActionStop:
			return []string{f("analogWrite(%s, 0);", name)}, true
		case domain.ActionRamp:
			return []string{f("motorRamp(%s, %d, %d, %d);", name, a.num("from"), a.num("to"), a.num("duration"))}, true
		case domain.ActionDirection:
			return skipUnsupported()
		}

	case domain.KindRelay:
		switch action {
		case domain.ActionOn:
			return []string{f("digitalWrite(%s, HIGH);", name)}, true
		case domain.ActionOff:
			return []string{f("digitalWrite(%s, LOW);", name)}, true
		case domain.ActionToggle:
			return []string{f("digitalWrite(%s, !digitalRead(%s));", name, name)}, true
		case domain.ActionPulse:
			return []string{
				f("digitalWrite(%s, HIGH);", name),
				f("delay(%d);", a.num("duration")),
				f("digitalWrite(%s, LOW);", name),
			}, true
		}

	case domain.KindBuzzer:
		switch action {
		case domain.ActionBeep:
			freq, duration := a.num("frequency"), a.num("duration")
			return []string{
				f("tone(%s, %d, %d);", name, freq, duration),
				f("delay(%d);", duration),
			}, true
		case domain.ActionOff:
			return []string{f("noTone(%s);", name)}, true
		case domain.ActionMelody:
			return skipUnsupported()
		}

	case domain.KindServo:
		// Servo output needs a library the model does not carry, so only a hint is emitted.
		switch action {
		case domain.ActionAngle:
			return []string{f("// servo_%s.write(%d);", name, a.num("angle"))}, true
		case domain.ActionCenter:
			return []string{f("// servo_%s.write(90);", name)}, true
		case domain.ActionSweep:
			return skipUnsupported()
		}

	case domain.KindButton, domain.KindSwitch, domain.KindPotentiometer,
		domain.KindSensorTemp, domain.KindSensorLight:
		// Inputs have no actions.
		return skipUnsupported()
	}

	return skipUnsupported()
}

// skipUnsupported is the explicit fallback for (kind, action) pairs without a translation.
// Generation carries on without them instead of failing.
func skipUnsupported() ([]string, bool) {
	return nil, false
}

// dutyCycle maps a 0..100 percentage onto the 8-bit PWM range, rounding half up.
func dutyCycle(percent int) int {
	return int(math.Floor(float64(percent)*255/100 + 0.5))
}
