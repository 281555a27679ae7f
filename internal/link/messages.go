// Package link talks to a board running the companion firmware.
//
// The link is observational: the editing model never waits on it, and a
// missing or dropped connection only changes what Connected reports.
package link

import (
	"strconv"

	"github.com/robotpit/pinsmith/pkg/domain"
)

// MessageType discriminates link messages.
type MessageType string

const (
	TypePing    MessageType = "ping"
	TypeDigital MessageType = "digital"
	TypePWM     MessageType = "pwm"
	TypeRead    MessageType = "read"
	TypeConfig  MessageType = "config"

	TypePong            MessageType = "pong"
	TypeStatus          MessageType = "status"
	TypeConnected       MessageType = "connected"
	TypeDigitalResponse MessageType = "digital_response"
	TypePWMResponse     MessageType = "pwm_response"
	TypeReadResponse    MessageType = "read_response"
	TypeConfigResponse  MessageType = "config_response"
)

// Pin modes understood by the firmware's config handler.
const (
	ModeDigitalOut = "digital_out"
	ModePWM        = "pwm"
	ModeDigitalIn  = "digital_in"
	ModeADC        = "adc"
)

// Message is the JSON envelope exchanged with the board.
// Only the fields relevant to Type are set.
type Message struct {
	Type MessageType `json:"type"`

	Pin       *int   `json:"pin,omitempty"`
	Value     *int   `json:"value,omitempty"`
	Channel   *int   `json:"channel,omitempty"`
	Frequency *int   `json:"frequency,omitempty"`
	ReadType  string `json:"readType,omitempty"`

	Config map[string]PinSetup `json:"config,omitempty"`

	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Version string `json:"version,omitempty"`
	Uptime  *int64 `json:"uptime,omitempty"`
	Heap    *int64 `json:"heap,omitempty"`
	RSSI    *int   `json:"rssi,omitempty"`
}

// PinSetup is one entry of a config message.
type PinSetup struct {
	Type   string `json:"type"`
	Device string `json:"device"`
	Name   string `json:"name"`
}

// responseTo maps a command to the message type that answers it.
var responseTo = map[MessageType]MessageType{
	TypePing:    TypePong,
	TypeDigital: TypeDigitalResponse,
	TypePWM:     TypePWMResponse,
	TypeRead:    TypeReadResponse,
	TypeConfig:  TypeConfigResponse,
}

// ConfigFromSnapshot derives the firmware pin setup from the model.
// Pins whose kind is not in the catalog are left out.
func ConfigFromSnapshot(snap *domain.Snapshot, catalog *domain.Catalog) map[string]PinSetup {
	out := make(map[string]PinSetup, len(snap.Configs))
	for _, pin := range snap.Pins() {
		cfg := snap.Configs[pin]
		def, ok := catalog.Lookup(cfg.Kind)
		if !ok {
			continue
		}
		out[strconv.Itoa(pin)] = PinSetup{
			Type:   Mode(def),
			Device: string(cfg.Kind),
			Name:   cfg.Label,
		}
	}
	return out
}

// Mode is the firmware pin mode for a device kind.
func Mode(def domain.DeviceKindDef) string {
	switch {
	case def.Direction == domain.DirectionOutput && def.RequiresPWM:
		return ModePWM
	case def.Direction == domain.DirectionOutput:
		return ModeDigitalOut
	case def.RequiresAnalog:
		return ModeADC
	default:
		return ModeDigitalIn
	}
}

func intPtr(v int) *int {
	return &v
}
