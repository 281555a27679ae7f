package link

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/robotpit/pinsmith/internal/logging"
	"github.com/robotpit/pinsmith/pkg/domain"
)

const (
	// DefaultPort is the firmware's WebSocket port.
	DefaultPort = 81

	// Time allowed to write a message to the board
	writeWait = 10 * time.Second

	// Maximum message size accepted from the board
	maxMessageSize = 8192
)

// ErrClosed is returned by requests made after the connection dropped.
var ErrClosed = errors.New("link closed")

// Client is a connection to one board.
// Requests are sent one at a time; status broadcasts are tracked in the background.
type Client struct {
	conn   *websocket.Conn
	logger *slog.Logger

	reqMu     sync.Mutex
	writeMu   sync.Mutex
	responses chan Message
	done      chan struct{}
	closeOnce sync.Once

	connected atomic.Bool
	mu        sync.RWMutex
	status    *Message
	greeting  *Message
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger for connection events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Address turns "192.168.1.40", "board.local:8081" or a ws:// URL into a dialable URL.
func Address(addr string) (string, error) {
	if u, err := url.Parse(addr); err == nil && (u.Scheme == "ws" || u.Scheme == "wss") {
		return u.String(), nil
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		host, port = addr, strconv.Itoa(DefaultPort)
	}
	if host == "" {
		return "", fmt.Errorf("invalid board address %q", addr)
	}
	return (&url.URL{Scheme: "ws", Host: net.JoinHostPort(host, port), Path: "/"}).String(), nil
}

// Dial connects to the board at addr.
func Dial(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	target, err := Address(addr)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", target, err)
	}
	return newClient(conn, opts...), nil
}

func newClient(conn *websocket.Conn, opts ...Option) *Client {
	c := &Client{
		conn:      conn,
		logger:    logging.NewNop(),
		responses: make(chan Message, 1),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.connected.Store(true)
	conn.SetReadLimit(maxMessageSize)
	go c.readPump()
	return c
}

// readPump routes incoming messages until the connection fails.
func (c *Client) readPump() {
	defer c.shutdown()

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) && !errors.Is(err, net.ErrClosed) {
				c.logger.Warn("link read failed", "err", err)
			}
			return
		}

		switch msg.Type {
		case TypeStatus:
			c.mu.Lock()
			c.status = &msg
			c.mu.Unlock()
		case TypeConnected:
			c.mu.Lock()
			c.greeting = &msg
			c.mu.Unlock()
			c.logger.Info("board connected", "version", msg.Version)
		default:
			select {
			case c.responses <- msg:
			default:
				c.logger.Debug("dropping unsolicited message", "type", msg.Type)
			}
		}
	}
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		c.connected.Store(false)
		close(c.done)
		_ = c.conn.Close()
	})
}

// Connected reports whether the connection is still up.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Status returns the last status broadcast, if one arrived.
func (c *Client) Status() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.status == nil {
		return Message{}, false
	}
	return *c.status, true
}

// Version returns the firmware version announced on connect.
func (c *Client) Version() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.greeting == nil {
		return ""
	}
	return c.greeting.Version
}

// Close shuts the connection down.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	c.shutdown()
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return err
	}
	return nil
}

// request sends msg and waits for its typed response.
func (c *Client) request(ctx context.Context, msg Message) (Message, error) {
	want, ok := responseTo[msg.Type]
	if !ok {
		return Message{}, fmt.Errorf("%q is not a command", msg.Type)
	}

	if err := ctx.Err(); err != nil {
		return Message{}, err
	}

	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	// Drop a late answer to an earlier, abandoned request
	select {
	case <-c.responses:
	default:
	}

	if err := c.send(msg); err != nil {
		return Message{}, err
	}

	for {
		select {
		case <-ctx.Done():
			return Message{}, ctx.Err()
		case <-c.done:
			return Message{}, ErrClosed
		case resp := <-c.responses:
			if resp.Type == want {
				return resp, nil
			}
			c.logger.Debug("skipping unexpected response", "want", want, "got", resp.Type)
		}
	}
}

func (c *Client) send(msg Message) error {
	if !c.Connected() {
		return ErrClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to send %s: %w", msg.Type, err)
	}
	return nil
}

// Ping returns the board uptime.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	resp, err := c.request(ctx, Message{Type: TypePing})
	if err != nil {
		return 0, err
	}
	if resp.Uptime == nil {
		return 0, nil
	}
	return time.Duration(*resp.Uptime) * time.Second, nil
}

// Digital drives pin high or low.
func (c *Client) Digital(ctx context.Context, pin int, high bool) error {
	value := 0
	if high {
		value = 1
	}
	_, err := c.request(ctx, Message{Type: TypeDigital, Pin: intPtr(pin), Value: intPtr(value)})
	return err
}

// PWM writes an 8-bit duty cycle to pin on the given LEDC channel.
func (c *Client) PWM(ctx context.Context, pin, value, channel int) error {
	if value < 0 || value > 255 {
		return fmt.Errorf("duty %d outside [0, 255]: %w", value, domain.ErrInvalidParam)
	}
	_, err := c.request(ctx, Message{Type: TypePWM, Pin: intPtr(pin), Value: intPtr(value), Channel: intPtr(channel)})
	return err
}

// Read samples pin. Analog reads return the raw ADC value.
func (c *Client) Read(ctx context.Context, pin int, analog bool) (int, error) {
	readType := "digital"
	if analog {
		readType = "analog"
	}
	resp, err := c.request(ctx, Message{Type: TypeRead, Pin: intPtr(pin), ReadType: readType})
	if err != nil {
		return 0, err
	}
	if resp.Value == nil {
		return 0, fmt.Errorf("read_response for GPIO%d carried no value", pin)
	}
	return *resp.Value, nil
}

// ApplyConfig pushes the pin modes of snap to the board.
func (c *Client) ApplyConfig(ctx context.Context, snap *domain.Snapshot, catalog *domain.Catalog) error {
	resp, err := c.request(ctx, Message{Type: TypeConfig, Config: ConfigFromSnapshot(snap, catalog)})
	if err != nil {
		return err
	}
	if resp.Status != "" && resp.Status != "ok" {
		return fmt.Errorf("board rejected config: %s", resp.Status)
	}
	return nil
}
