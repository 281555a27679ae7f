package codegen_test

import (
	"strings"
	"testing"
	"time"

	"github.com/robotpit/pinsmith/internal/codegen"
	"github.com/robotpit/pinsmith/internal/runtime"
	"github.com/robotpit/pinsmith/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixed = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

func generator() *codegen.Generator {
	return codegen.New(codegen.WithClock(func() time.Time { return fixed }))
}

// assertInOrder checks that every fragment occurs in code after the previous one.
func assertInOrder(t *testing.T, code string, fragments ...string) {
	t.Helper()
	rest := code
	for _, f := range fragments {
		i := strings.Index(rest, f)
		if !assert.GreaterOrEqual(t, i, 0, "missing %q (in order) in:\n%s", f, code) {
			return
		}
		rest = rest[i+len(f):]
	}
}

func loopBody(t *testing.T, code string) string {
	t.Helper()
	start := strings.Index(code, "void loop() {")
	require.GreaterOrEqual(t, start, 0)
	end := strings.Index(code[start:], "\n}\n")
	require.Greater(t, end, 0)
	return code[start : start+end]
}

func TestGenerate_LEDBlinkScenario(t *testing.T) {
	ed := runtime.NewEditor(nil)
	_, err := ed.ApplyConfig(5, domain.KindLED, "Status", nil)
	require.NoError(t, err)
	_, err = ed.AddStep(5)
	require.NoError(t, err)
	require.NoError(t, ed.SetStepType(5, 0, domain.ActionBlink))
	require.NoError(t, ed.SetStepParam(5, 0, 0, "250"))

	code := generator().Generate(ed.Snapshot())

	assert.Contains(t, code, "#define STATUS 5  // led")
	assert.Contains(t, code, "pinMode(STATUS, OUTPUT);")
	assertInOrder(t, loopBody(t, code),
		"// Status - GPIO 5",
		"digitalWrite(STATUS, HIGH);",
		"delay(250);",
		"digitalWrite(STATUS, LOW);",
		"delay(250);",
	)
	assert.NotContains(t, code, "motorRamp")
}

func TestGenerate_AnalogConditionScenario(t *testing.T) {
	ed := runtime.NewEditor(nil)
	_, err := ed.ApplyConfig(34, domain.KindSensorTemp, "", nil)
	require.NoError(t, err)
	_, err = ed.AddBlock(domain.BlockCondition)
	require.NoError(t, err)
	require.NoError(t, ed.SetBlockParam(0, "pin", 34))
	require.NoError(t, ed.SetBlockParam(0, "operator", ">"))
	require.NoError(t, ed.SetBlockParam(0, "value", "500"))

	code := generator().Generate(ed.Snapshot())

	assert.Contains(t, code, "pinMode(GPIO34, INPUT);")
	assert.Contains(t, code, "if (analogRead(GPIO34) > 500) {")
	assert.NotContains(t, code, "digitalRead(GPIO34)")
}

func TestGenerate_MotorRampScenario(t *testing.T) {
	ed := runtime.NewEditor(nil)
	_, err := ed.ApplyConfig(25, domain.KindMotorDC, "Left Wheel", nil)
	require.NoError(t, err)
	_, err = ed.AddStep(25)
	require.NoError(t, err)
	require.NoError(t, ed.SetStepType(25, 0, domain.ActionRamp))
	for i, v := range []string{"0", "100", "2000"} {
		require.NoError(t, ed.SetStepParam(25, 0, i, v))
	}

	code := generator().Generate(ed.Snapshot())

	assert.Contains(t, code, "void setMotorSpeed(int pin, int speed) {")
	assert.Contains(t, code, "void motorRamp(int pin, int speedFrom, int speedTo, int duration) {")
	assert.Contains(t, code, "int steps = 50;")
	assert.Contains(t, loopBody(t, code), "motorRamp(LEFT_WHEEL, 0, 100, 2000);")

	// Helpers follow the loop
	assert.Greater(t, strings.Index(code, "void motorRamp("), strings.Index(code, "void loop() {"))
}

func TestGenerate_Idempotent(t *testing.T) {
	ed := runtime.NewEditor(nil)
	_, err := ed.ApplyConfig(5, domain.KindLED, "Status", nil)
	require.NoError(t, err)
	_, err = ed.AddStep(5)
	require.NoError(t, err)
	_, err = ed.AddBlock(domain.BlockDelay)
	require.NoError(t, err)
	snap := ed.Snapshot()
	before := snap.Clone()

	g := generator()
	first := g.Generate(snap)
	second := g.Generate(snap)
	assert.Equal(t, first, second)
	assert.Equal(t, before, snap, "generation must not touch the model")

	// Only the timestamp line differs across clocks
	later := codegen.New(codegen.WithClock(func() time.Time { return fixed.Add(time.Hour) })).Generate(snap)
	a, b := strings.Split(first, "\n"), strings.Split(later, "\n")
	require.Equal(t, len(a), len(b))
	var diff []string
	for i := range a {
		if a[i] != b[i] {
			diff = append(diff, a[i])
		}
	}
	assert.Equal(t, []string{"// Generated: 2026-03-14 15:09:26"}, diff)
}

func TestGenerate_SectionOrder(t *testing.T) {
	ed := runtime.NewEditor(nil)
	_, err := ed.ApplyConfig(26, domain.KindMotorDC, "Fan", nil)
	require.NoError(t, err)

	code := generator().Generate(ed.Snapshot())
	assertInOrder(t, code,
		"// Generated by pinsmith",
		"#include <Arduino.h>",
		"// PIN DEFINITIONS",
		"#define FAN 26",
		"void setup() {",
		"void loop() {",
		"// HELPER FUNCTIONS",
	)
}

func TestGenerate_EmptyModel(t *testing.T) {
	code := generator().Generate(domain.NewSnapshot())

	assert.Contains(t, code, "// No pins configured")
	body := loopBody(t, code)
	assert.Contains(t, body, "// Add your code here")
	assert.Contains(t, body, "delay(1000);")
	assert.NotContains(t, code, "HELPER FUNCTIONS")
	assert.NotContains(t, code, "// Initialize pins")
}

func TestGenerate_PinModes(t *testing.T) {
	ed := runtime.NewEditor(nil)
	for pin, kind := range map[int]domain.DeviceKind{
		5:  domain.KindRelay,
		13: domain.KindButton,
		14: domain.KindSwitch,
		18: domain.KindServo,
		19: domain.KindBuzzer,
		32: domain.KindPotentiometer,
		39: domain.KindSensorLight,
	} {
		_, err := ed.ApplyConfig(pin, kind, "", nil)
		require.NoError(t, err)
	}

	code := generator().Generate(ed.Snapshot())
	assertInOrder(t, code,
		"pinMode(GPIO5, OUTPUT);",
		"pinMode(GPIO13, INPUT_PULLUP);",
		"pinMode(GPIO14, INPUT_PULLUP);",
		"pinMode(GPIO18, OUTPUT);",
		"pinMode(GPIO19, OUTPUT);",
		"pinMode(GPIO32, INPUT);",
		"pinMode(GPIO39, INPUT);",
		"// Initialize servos",
	)
}

func TestGenerate_Blocks(t *testing.T) {
	ed := runtime.NewEditor(nil)
	_, err := ed.ApplyConfig(4, domain.KindButton, "Start", nil)
	require.NoError(t, err)
	_, err = ed.ApplyConfig(5, domain.KindLED, "Status", nil)
	require.NoError(t, err)

	add := func(bt domain.BlockType, params map[string]any) {
		_, err := ed.AddBlock(bt)
		require.NoError(t, err)
		idx := len(ed.Blocks()) - 1
		for k, v := range params {
			require.NoError(t, ed.SetBlockParam(idx, k, v))
		}
	}
	add(domain.BlockCondition, map[string]any{"pin": 4, "operator": "==", "value": "0"})
	add(domain.BlockAction, map[string]any{"pin": 5, "action": "blink"})
	add(domain.BlockLoop, map[string]any{"count": 3})
	add(domain.BlockDelay, map[string]any{"time": 750})
	// Unresolved references produce no code
	add(domain.BlockCondition, nil)
	add(domain.BlockAction, map[string]any{"pin": 27, "action": "on"})
	add(domain.BlockAction, map[string]any{"pin": 5})

	body := loopBody(t, generator().Generate(ed.Snapshot()))
	assertInOrder(t, body,
		"// Block diagram logic",
		"if (digitalRead(START) == 0) {",
		"// Add action here",
		"digitalWrite(STATUS, HIGH);",
		"delay(500);",
		"digitalWrite(STATUS, LOW);",
		"delay(500);",
		"for (int i = 0; i < 3; i++) {",
		"delay(750);",
	)
	assert.Equal(t, 1, strings.Count(body, "if ("))
	assert.NotContains(t, body, "GPIO27")
	assert.NotContains(t, body, "// Action sequences")
}

func TestGenerate_ConditionGuards(t *testing.T) {
	sensor, lamp := 34, 32
	snap := domain.NewSnapshot()
	snap.Configs[sensor] = domain.PinConfig{Pin: sensor, Kind: domain.KindSensorTemp, Label: "Temp"}
	snap.Configs[lamp] = domain.PinConfig{Pin: lamp, Kind: domain.KindLED, Label: "Lamp"}
	// Stored snapshots may carry values the editor would refuse
	snap.Blocks = []domain.Block{
		{ID: "c1", Type: domain.BlockCondition, Condition: &domain.ConditionParams{Pin: &sensor, Operator: domain.OpGreater, Value: "0) {} while (1) {} if (1"}},
		{ID: "c2", Type: domain.BlockCondition, Condition: &domain.ConditionParams{Pin: &lamp, Operator: domain.OpEqual, Value: "1"}},
	}

	body := loopBody(t, generator().Generate(snap))

	assert.Contains(t, body, "if (analogRead(TEMP) > 0) {")
	assert.NotContains(t, body, "while (1)")
	assert.NotContains(t, body, "LAMP)")
	assert.Equal(t, 1, strings.Count(body, "if ("))
}

func TestGenerate_BlocksBeforeSequences(t *testing.T) {
	ed := runtime.NewEditor(nil)
	_, err := ed.ApplyConfig(23, domain.KindRelay, "Pump", nil)
	require.NoError(t, err)
	_, err = ed.AddStep(23)
	require.NoError(t, err)
	require.NoError(t, ed.SetStepType(23, 0, domain.ActionToggle))
	_, err = ed.AddBlock(domain.BlockDelay)
	require.NoError(t, err)

	assertInOrder(t, loopBody(t, generator().Generate(ed.Snapshot())),
		"// Block diagram logic",
		"delay(1000);",
		"// Action sequences",
		"// Pump - GPIO 23",
		"digitalWrite(PUMP, !digitalRead(PUMP));",
	)
}

func TestGenerate_ActionTranslations(t *testing.T) {
	tests := []struct {
		name   string
		pin    int
		kind   domain.DeviceKind
		action domain.ActionID
		params []string
		want   []string
	}{
		{"LEDOn", 5, domain.KindLED, domain.ActionOn, nil, []string{"digitalWrite(DEV, HIGH);"}},
		{"LEDOff", 5, domain.KindLED, domain.ActionOff, nil, []string{"digitalWrite(DEV, LOW);"}},
		{"LEDBlinkDefault", 5, domain.KindLED, domain.ActionBlink, nil, []string{"delay(500);"}},
		{"LEDBrightness", 5, domain.KindLED, domain.ActionBrightness, []string{"75"}, []string{"analogWrite(DEV, 191);"}},
		{"LEDBrightnessDefault", 5, domain.KindLED, domain.ActionBrightness, nil, []string{"analogWrite(DEV, 128);"}},
		{"MotorSpeed", 25, domain.KindMotorDC, domain.ActionSpeed, []string{"40"}, []string{"setMotorSpeed(DEV, 40);"}},
		{"MotorStop", 25, domain.KindMotorDC, domain.ActionStop, nil, []string{"analogWrite(DEV, 0);"}},
		{"MotorRampDefault", 25, domain.KindMotorDC, domain.ActionRamp, nil, []string{"motorRamp(DEV, 0, 100, 1000);"}},
		{"RelayPulse", 23, domain.KindRelay, domain.ActionPulse, []string{"300"}, []string{"digitalWrite(DEV, HIGH);", "delay(300);", "digitalWrite(DEV, LOW);"}},
		{"BuzzerBeep", 19, domain.KindBuzzer, domain.ActionBeep, []string{"2000", "100"}, []string{"tone(DEV, 2000, 100);", "delay(100);"}},
		{"BuzzerOff", 19, domain.KindBuzzer, domain.ActionOff, nil, []string{"noTone(DEV);"}},
		{"ServoAngle", 18, domain.KindServo, domain.ActionAngle, []string{"45"}, []string{"// servo_DEV.write(45);"}},
		{"ServoAngleDefault", 18, domain.KindServo, domain.ActionAngle, nil, []string{"// servo_DEV.write(90);"}},
		{"ServoCenter", 18, domain.KindServo, domain.ActionCenter, nil, []string{"// servo_DEV.write(90);"}},
		{"NonNumericFallsBack", 25, domain.KindMotorDC, domain.ActionSpeed, []string{"fast"}, []string{"setMotorSpeed(DEV, 0);"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ed := runtime.NewEditor(nil)
			_, err := ed.ApplyConfig(tt.pin, tt.kind, "dev", nil)
			require.NoError(t, err)
			_, err = ed.AddStep(tt.pin)
			require.NoError(t, err)
			require.NoError(t, ed.SetStepType(tt.pin, 0, tt.action))
			for i, v := range tt.params {
				require.NoError(t, ed.SetStepParam(tt.pin, 0, i, v))
			}

			assertInOrder(t, loopBody(t, generator().Generate(ed.Snapshot())), tt.want...)
		})
	}
}

func TestGenerate_SkippedActionsEmitNothing(t *testing.T) {
	ed := runtime.NewEditor(nil)
	_, err := ed.ApplyConfig(5, domain.KindLED, "Status", nil)
	require.NoError(t, err)
	_, err = ed.AddStep(5)
	require.NoError(t, err)
	require.NoError(t, ed.SetStepType(5, 0, domain.ActionFade))

	body := loopBody(t, generator().Generate(ed.Snapshot()))
	assert.Contains(t, body, "// Status - GPIO 5")
	assert.NotContains(t, body, "STATUS")
}
