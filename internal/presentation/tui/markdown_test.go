package tui_test

import (
	"bytes"
	"testing"

	"github.com/robotpit/pinsmith/internal/presentation/tui"
	"github.com/robotpit/pinsmith/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogMarkdown(t *testing.T) {
	md := tui.CatalogMarkdown(domain.DefaultCatalog())

	assert.Contains(t, md, "# Device catalog")
	assert.Contains(t, md, "| `led` | LED | output | - | on, off, blink, fade, brightness |")
	assert.Contains(t, md, "| `servo` | Servo | output | PWM |")
	assert.Contains(t, md, "| `sensor_temp` | Temperature sensor | input | ADC | - |")
	assert.Contains(t, md, "## Servo")
	assert.Contains(t, md, "_pin settings_: `min_angle` 0..180, `max_angle` 0..180")
	assert.NotContains(t, md, "## Button", "kinds without actions get no section")
}

func TestPinsMarkdown(t *testing.T) {
	snap := domain.NewSnapshot()
	snap.Configs[5] = domain.PinConfig{Pin: 5, Kind: domain.KindLED, Label: "A|B"}

	md := tui.PinsMarkdown(domain.ESP32Pins(), snap)

	assert.Contains(t, md, "# ESP32 pins")
	assert.Contains(t, md, "| GPIO5 | yes | - | yes | - | A\\|B (`led`) |")
	assert.Contains(t, md, "| GPIO34 | - | yes | - | input only | - |")
	assert.Contains(t, md, "| GPIO6 |")
	assert.Contains(t, md, "reserved")

	bare := tui.PinsMarkdown(domain.ESP32Pins(), nil)
	assert.NotContains(t, bare, "`led`")
}

func TestProjectMarkdown(t *testing.T) {
	catalog := domain.DefaultCatalog()

	t.Run("Empty", func(t *testing.T) {
		md := tui.ProjectMarkdown("demo", domain.NewSnapshot(), catalog)
		assert.Contains(t, md, "# Project demo")
		assert.Contains(t, md, "_Nothing configured yet._")
	})

	t.Run("Full", func(t *testing.T) {
		sensor, led, ghost := 34, 5, 4
		snap := domain.NewSnapshot()
		snap.Configs[5] = domain.PinConfig{Pin: 5, Kind: domain.KindLED, Label: "Status"}
		snap.Configs[18] = domain.PinConfig{Pin: 18, Kind: domain.KindServo, Label: "Arm",
			Params: map[string]string{"min_angle": "10", "max_angle": "170"}}
		snap.Configs[34] = domain.PinConfig{Pin: 34, Kind: domain.KindSensorTemp, Label: "Temp"}
		snap.Actions[5] = []domain.ActionStep{
			{Type: domain.ActionBlink, Params: map[string]string{"interval": "250"}},
			{Type: domain.ActionOff},
		}
		snap.Blocks = []domain.Block{
			{ID: "1", Type: domain.BlockCondition, Condition: &domain.ConditionParams{Pin: &sensor, Operator: domain.OpGreater, Value: "500"}},
			{ID: "2", Type: domain.BlockAction, Action: &domain.ActionParams{Pin: &led, Action: domain.ActionOn}},
			{ID: "3", Type: domain.BlockAction, Action: &domain.ActionParams{Pin: &ghost}},
			{ID: "4", Type: domain.BlockLoop, Loop: &domain.LoopParams{Count: 3}},
			{ID: "5", Type: domain.BlockDelay, Delay: &domain.DelayParams{Time: 200}},
		}

		md := tui.ProjectMarkdown("demo", snap, catalog)

		assert.Contains(t, md, "| GPIO5 | Status | LED | - |")
		assert.Contains(t, md, "| GPIO18 | Arm | Servo | max_angle=170 min_angle=10 |")
		assert.Contains(t, md, "### Status (GPIO5)")
		assert.Contains(t, md, "1. `blink` interval=250\n2. `off`\n")
		assert.Contains(t, md, "1. **if** Temp > 500")
		assert.Contains(t, md, "2. **do** Status `on`")
		assert.Contains(t, md, "3. **do** GPIO4 _(not configured)_ `?`")
		assert.Contains(t, md, "4. **repeat** 3 times")
		assert.Contains(t, md, "5. **wait** 200 ms")
	})
}

func TestRenderer_Plain(t *testing.T) {
	render := tui.NewRenderer(80, true)
	out, err := render("# Title\n\nSome **bold** text.")
	require.NoError(t, err)
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "bold")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf)
	assert.Contains(t, buf.String(), "|_|   |_|_| |_|___/_|")
}
