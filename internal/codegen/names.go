package codegen

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/robotpit/pinsmith/pkg/domain"
)

// reserved are Arduino and ESP32 core names a pin constant must not shadow.
var reserved = func() map[string]bool {
	m := map[string]bool{
		"HIGH": true, "LOW": true, "INPUT": true, "OUTPUT": true, "INPUT_PULLUP": true,
		"INPUT_PULLDOWN": true, "LED_BUILTIN": true, "SERIAL": true, "DEFAULT": true,
		"TX": true, "RX": true, "SDA": true, "SCL": true, "SS": true, "MOSI": true,
		"MISO": true, "SCK": true, "DAC1": true, "DAC2": true,
	}
	for i := 0; i <= 19; i++ {
		m["A"+strconv.Itoa(i)] = true
	}
	for i := 0; i <= 9; i++ {
		m["T"+strconv.Itoa(i)] = true
	}
	return m
}()

// Identifier turns a pin label into a constant name: upper-cased,
// whitespace runs become underscores and other symbols are replaced.
// An empty label falls back to GPIO<n>.
func Identifier(label string, pin int) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return domain.DefaultLabel(pin)
	}
	upper := strings.ToUpper(strings.Join(strings.Fields(label), "_"))

	var b strings.Builder
	for _, r := range upper {
		if r == '_' || (r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	name := b.String()
	if name[0] >= '0' && name[0] <= '9' {
		name = "PIN_" + name
	}
	return name
}

// Identifiers names every configured pin. Names are unique: on a clash, or
// when a name would shadow a core macro, the pin number is appended, then a
// counter until the name is free.
func Identifiers(snap *domain.Snapshot) map[int]string {
	names := make(map[int]string, len(snap.Configs))
	taken := make(map[string]bool, len(snap.Configs))
	for _, pin := range snap.Pins() {
		base := Identifier(snap.Configs[pin].Label, pin)
		name := base
		if taken[name] || reserved[name] {
			name = base + "_" + strconv.Itoa(pin)
		}
		for n := 2; taken[name] || reserved[name]; n++ {
			name = base + "_" + strconv.Itoa(pin) + "_" + strconv.Itoa(n)
		}
		taken[name] = true
		names[pin] = name
	}
	return names
}
