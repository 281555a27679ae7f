package link_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/robotpit/pinsmith/internal/link"
	"github.com/robotpit/pinsmith/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBoard mimics the firmware's command handlers.
type fakeBoard struct {
	configs chan map[string]link.PinSetup
	pwm     chan link.Message
	hangup  chan struct{}
}

func newFakeBoard(t *testing.T) (*fakeBoard, *httptest.Server) {
	t.Helper()
	b := &fakeBoard{
		configs: make(chan map[string]link.PinSetup, 1),
		pwm:     make(chan link.Message, 1),
		hangup:  make(chan struct{}),
	}
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-b.hangup:
				_ = conn.Close()
			case <-done:
			}
		}()
		b.serve(conn)
	}))
	t.Cleanup(srv.Close)
	return b, srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func (b *fakeBoard) serve(conn *websocket.Conn) {
	uptime, heap, rssi := int64(42), int64(180000), -61
	_ = conn.WriteJSON(link.Message{Type: link.TypeConnected, Message: "ready", Version: "1.0"})
	_ = conn.WriteJSON(link.Message{Type: link.TypeStatus, Uptime: &uptime, Heap: &heap, RSSI: &rssi})

	for {
		var msg link.Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		var resp link.Message
		switch msg.Type {
		case link.TypePing:
			resp = link.Message{Type: link.TypePong, Uptime: &uptime}
		case link.TypeDigital:
			resp = link.Message{Type: link.TypeDigitalResponse, Pin: msg.Pin, Value: msg.Value}
		case link.TypePWM:
			b.pwm <- msg
			resp = link.Message{Type: link.TypePWMResponse, Pin: msg.Pin, Value: msg.Value}
		case link.TypeRead:
			v := 1
			if msg.ReadType == "analog" {
				v = 2048
			}
			resp = link.Message{Type: link.TypeReadResponse, Pin: msg.Pin, Value: &v}
		case link.TypeConfig:
			b.configs <- msg.Config
			resp = link.Message{Type: link.TypeConfigResponse, Status: "ok"}
		default:
			continue
		}
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}

func TestClient_Commands(t *testing.T) {
	board, srv := newFakeBoard(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := link.Dial(ctx, wsURL(srv))
	require.NoError(t, err)
	defer c.Close()
	assert.True(t, c.Connected())

	uptime, err := c.Ping(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42*time.Second, uptime)

	require.NoError(t, c.Digital(ctx, 5, true))

	require.NoError(t, c.PWM(ctx, 25, 128, 2))
	sent := <-board.pwm
	assert.Equal(t, 25, *sent.Pin)
	assert.Equal(t, 128, *sent.Value)
	assert.Equal(t, 2, *sent.Channel)
	assert.ErrorIs(t, c.PWM(ctx, 25, 300, 0), domain.ErrInvalidParam)

	v, err := c.Read(ctx, 34, true)
	require.NoError(t, err)
	assert.Equal(t, 2048, v)
	v, err = c.Read(ctx, 4, false)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	assert.Eventually(t, func() bool {
		_, ok := c.Status()
		return ok
	}, time.Second, 10*time.Millisecond)
	status, _ := c.Status()
	assert.Equal(t, -61, *status.RSSI)
	assert.Equal(t, "1.0", c.Version())
}

func TestClient_ApplyConfig(t *testing.T) {
	board, srv := newFakeBoard(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := link.Dial(ctx, wsURL(srv))
	require.NoError(t, err)
	defer c.Close()

	snap := domain.NewSnapshot()
	snap.Configs[5] = domain.PinConfig{Pin: 5, Kind: domain.KindLED, Label: "Status"}
	snap.Configs[18] = domain.PinConfig{Pin: 18, Kind: domain.KindServo, Label: "Arm"}
	snap.Configs[4] = domain.PinConfig{Pin: 4, Kind: domain.KindButton, Label: "Start"}
	snap.Configs[34] = domain.PinConfig{Pin: 34, Kind: domain.KindSensorTemp, Label: "Temp"}

	require.NoError(t, c.ApplyConfig(ctx, snap, domain.DefaultCatalog()))
	assert.Equal(t, map[string]link.PinSetup{
		"4":  {Type: link.ModeDigitalIn, Device: "button", Name: "Start"},
		"5":  {Type: link.ModeDigitalOut, Device: "led", Name: "Status"},
		"18": {Type: link.ModePWM, Device: "servo", Name: "Arm"},
		"34": {Type: link.ModeADC, Device: "sensor_temp", Name: "Temp"},
	}, <-board.configs)
}

func TestClient_DisconnectIsObserved(t *testing.T) {
	board, srv := newFakeBoard(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := link.Dial(ctx, wsURL(srv))
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Ping(ctx)
	require.NoError(t, err)

	// Board resets: the client notices without being asked
	close(board.hangup)

	assert.Eventually(t, func() bool { return !c.Connected() }, time.Second, 10*time.Millisecond)
	_, err = c.Ping(ctx)
	assert.ErrorIs(t, err, link.ErrClosed)
}

func TestClient_RequestHonoursContext(t *testing.T) {
	_, srv := newFakeBoard(t)
	c, err := link.Dial(context.Background(), wsURL(srv))
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Ping(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDial_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := link.Dial(ctx, "127.0.0.1:1")
	assert.Error(t, err)
}

func TestAddress(t *testing.T) {
	tests := map[string]string{
		"192.168.1.40":         "ws://192.168.1.40:81/",
		"board.local:8081":     "ws://board.local:8081/",
		"ws://10.0.0.2:81/":    "ws://10.0.0.2:81/",
		"wss://gateway/boards": "wss://gateway/boards",
	}
	for in, want := range tests {
		got, err := link.Address(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := link.Address("")
	assert.Error(t, err)
}
