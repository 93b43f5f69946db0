package conn

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

var ErrNotOpen = errors.New("channel not open")

const writeWait = 10 * time.Second

// Channel supervises one WebSocket connection: it dials, reads, and
// redials according to its Machine until the policy runs out.
type Channel struct {
	name    string
	url     string
	dialer  *websocket.Dialer
	machine *Machine
	logger  *log.Logger

	onMessage    func(messageType int, data []byte)
	onTransition func(name string, t Transition)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	conn    *websocket.Conn
	timer   *time.Timer
	stopped bool

	writeMu sync.Mutex
}

type ChannelConfig struct {
	Name   string
	URL    string
	Policy Policy
	Dialer *websocket.Dialer
	Logger *log.Logger
	// OnMessage runs on the channel's read goroutine for every frame.
	OnMessage func(messageType int, data []byte)
	// OnTransition runs after every state change, including no-ops.
	OnTransition func(name string, t Transition)
}

func NewChannel(cfg ChannelConfig) *Channel {
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	onMessage := cfg.OnMessage
	if onMessage == nil {
		onMessage = func(int, []byte) {}
	}
	onTransition := cfg.OnTransition
	if onTransition == nil {
		onTransition = func(string, Transition) {}
	}
	return &Channel{
		name:         cfg.Name,
		url:          cfg.URL,
		dialer:       dialer,
		machine:      NewMachine(cfg.Policy),
		logger:       cfg.Logger.With("channel", cfg.Name),
		onMessage:    onMessage,
		onTransition: onTransition,
	}
}

func (c *Channel) Name() string { return c.name }

func (c *Channel) Status() Status { return c.machine.Status() }

func (c *Channel) Failures() int { return c.machine.Failures() }

// Start dials in the background. It must be called once.
func (c *Channel) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.connect()
}

func (c *Channel) connect() {
	defer c.wg.Done()

	c.fire(Dial)
	conn, _, err := c.dialer.DialContext(c.ctx, c.url, nil)
	if err != nil {
		if c.ctx.Err() != nil {
			return
		}
		c.logger.Error("dial", "url", c.url, "error", err)
		c.fire(Errored)
		c.fire(Closed)
		return
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.mu.Unlock()

	c.logger.Info("open", "url", c.url)
	c.fire(Opened)
	c.readLoop(conn)
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
			}
			c.mu.Unlock()
			conn.Close()

			if c.ctx.Err() != nil {
				return
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Error("read", "error", err)
				c.fire(Errored)
			} else {
				c.logger.Info("closed", "reason", err)
			}
			c.fire(Closed)
			return
		}
		c.onMessage(messageType, data)
	}
}

func (c *Channel) fire(ev Event) {
	t := c.machine.Fire(ev)
	c.logger.Debug("transition", "event", ev, "from", t.From, "to", t.To, "failures", t.Failures)
	if t.Action == Reconnect {
		c.scheduleReconnect()
	}
	c.onTransition(c.name, t)
}

func (c *Channel) scheduleReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}

	delay := c.machine.policy.ReconnectDelay
	c.logger.Info("reconnect", "in", delay, "attempt", c.machine.Failures())
	c.wg.Add(1)
	c.timer = time.AfterFunc(delay, c.connect)
}

// IsOpen reports whether a live connection is established.
func (c *Channel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *Channel) WriteText(msg string) error {
	return c.write(websocket.TextMessage, []byte(msg))
}

func (c *Channel) WriteBinary(data []byte) error {
	return c.write(websocket.BinaryMessage, data)
}

func (c *Channel) write(messageType int, data []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotOpen
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(messageType, data); err != nil {
		return fmt.Errorf("write %s: %w", c.name, err)
	}
	return nil
}

// Close stops any pending redial, closes the socket and waits for the
// channel's goroutines to finish. It is safe to call more than once.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	if c.cancel != nil {
		c.cancel()
	}
	if c.timer != nil && c.timer.Stop() {
		c.wg.Done()
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		c.writeMu.Lock()
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()
		// The read loop may already have closed it.
		_ = conn.Close()
	}

	c.wg.Wait()
	c.fire(Teardown)
	return nil
}
