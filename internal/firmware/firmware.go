// Package firmware renders the companion sketch that lets a board be driven
// over the device link: it joins WiFi and serves JSON commands on a WebSocket.
package firmware

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/robotpit/pinsmith/pkg/domain"
)

// Version is reported by the firmware in its "connected" greeting.
const Version = "1.0"

// DefaultPort is the WebSocket port the firmware listens on.
const DefaultPort = 81

//go:embed templates/esp32.ino.tmpl
var esp32Source string

var esp32 = template.Must(template.New("esp32").Funcs(template.FuncMap{
	"cstring":         cString,
	"comment":         comment,
	"analogCondition": analogCondition,
}).Parse(esp32Source))

// ErrMissingSSID is returned when no network name is given.
var ErrMissingSSID = errors.New("wifi ssid is required")

// Options configures the rendered firmware.
type Options struct {
	SSID     string
	Password string // Empty for open networks
	Port     int
	// StatusInterval is how often connected clients receive a status message.
	StatusInterval time.Duration
	PWMFrequency   int
	Pins           *domain.PinTable
}

type data struct {
	Options
	Version              string
	MaxPins              int
	StatusIntervalMillis int64
	AnalogPins           []int
}

// Render produces the firmware source.
func Render(opts Options) (string, error) {
	if strings.TrimSpace(opts.SSID) == "" {
		return "", ErrMissingSSID
	}
	if opts.Port <= 0 {
		opts.Port = DefaultPort
	}
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = 5 * time.Second
	}
	if opts.PWMFrequency <= 0 {
		opts.PWMFrequency = 5000
	}
	if opts.Pins == nil {
		opts.Pins = domain.ESP32Pins()
	}

	d := data{
		Options:              opts,
		Version:              Version,
		StatusIntervalMillis: opts.StatusInterval.Milliseconds(),
	}
	for _, c := range opts.Pins.All() {
		if c.ID+1 > d.MaxPins {
			d.MaxPins = c.ID + 1
		}
		if c.AnalogInput {
			d.AnalogPins = append(d.AnalogPins, c.ID)
		}
	}

	var b strings.Builder
	if err := esp32.Execute(&b, d); err != nil {
		return "", fmt.Errorf("failed to render firmware: %w", err)
	}
	return b.String(), nil
}

// cString escapes s for use inside a C string literal.
func cString(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '?':
			// Avoid trigraphs
			b.WriteString(`\?`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\x%02x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// comment keeps s on one line and away from the block comment terminator.
func comment(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "*/", "* /")
}

// analogCondition builds the C test for "pin is ADC-capable".
func analogCondition(pins []int) string {
	if len(pins) == 0 {
		return "false"
	}
	parts := make([]string, len(pins))
	for i, p := range pins {
		parts[i] = fmt.Sprintf("pin == %d", p)
	}
	return strings.Join(parts, " || ")
}
