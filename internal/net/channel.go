package net

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"CanvasBoard/internal/state"
)

const (
	DefaultEndpoint             = "ws://localhost:8080"
	DefaultReconnectInterval    = 5 * time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultDialTimeout          = 10 * time.Second
	DefaultWriteTimeout         = 5 * time.Second
	DefaultSendQueueSize        = 256
	DefaultMaxFrameSize         = 1 << 20

	roomQueryParam = "roomId"
)

// Conn is the part of *websocket.Conn the channel needs.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	Close() error
}

// Dialer opens a connection to a room URL.
type Dialer interface {
	Dial(ctx context.Context, target string) (Conn, error)
}

// WebSocketDialer dials with gorilla/websocket.
type WebSocketDialer struct {
	dialer *websocket.Dialer
}

func NewDialer(handshakeTimeout time.Duration) *WebSocketDialer {
	d := *websocket.DefaultDialer
	d.HandshakeTimeout = handshakeTimeout
	return &WebSocketDialer{dialer: &d}
}

func (d *WebSocketDialer) Dial(ctx context.Context, target string) (Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", target, err)
	}
	return conn, nil
}

type Options struct {
	Endpoint             string
	ReconnectInterval    time.Duration
	MaxReconnectAttempts int
	DialTimeout          time.Duration
	WriteTimeout         time.Duration
	// SendQueueSize bounds the events waiting for the writer; more are dropped.
	SendQueueSize int
	// MaxFrameSize bounds one inbound frame. A larger frame closes the
	// connection and the reconnect policy applies.
	MaxFrameSize int64
}

func (o Options) withDefaults() Options {
	if o.Endpoint == "" {
		o.Endpoint = DefaultEndpoint
	}
	if o.ReconnectInterval <= 0 {
		o.ReconnectInterval = DefaultReconnectInterval
	}
	if o.MaxReconnectAttempts <= 0 {
		o.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = DefaultDialTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	if o.SendQueueSize <= 0 {
		o.SendQueueSize = DefaultSendQueueSize
	}
	if o.MaxFrameSize <= 0 {
		o.MaxFrameSize = DefaultMaxFrameSize
	}
	return o
}

// RoomURL scopes endpoint to a room through the roomId query parameter.
func RoomURL(endpoint, roomID string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	q := u.Query()
	q.Set(roomQueryParam, roomID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Channel keeps a best-effort connection to a room-scoped event stream and
// reconnects at a fixed interval until the retry budget runs out.
//
// Every dial, timer and reader goroutine carries the generation it was
// started for; once gen moves on they exit without touching state. Each
// connection has one writer goroutine, so no caller ever waits on the
// network.
type Channel struct {
	log    zerolog.Logger
	dialer Dialer
	opts   Options

	mu         sync.Mutex
	state      state.ConnectionState
	conn       Conn
	writer     *writer
	roomID     string
	retries    int
	timer      *time.Timer
	dialCancel context.CancelFunc
	gen        uint64
	onEvent    func(state.DrawEvent)
	onState    func(state.ConnectionState)

	// transitions not yet delivered to onState, in the order they happened
	pending  []state.ConnectionState
	flushing bool
}

func NewChannel(log zerolog.Logger, dialer Dialer, opts Options) *Channel {
	return &Channel{
		log:    log.With().Str("component", "sync").Logger(),
		dialer: dialer,
		opts:   opts.withDefaults(),
		state:  state.Disconnected,
	}
}

// OnEvent registers the handler for inbound draw events. It runs on the
// reader goroutine without the channel lock held.
func (c *Channel) OnEvent(fn func(state.DrawEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvent = fn
}

// OnStateChange registers an observer for connection state changes. States
// are delivered one at a time in the order they happened, without the channel
// lock held.
func (c *Channel) OnStateChange(fn func(state.ConnectionState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = fn
}

func (c *Channel) State() state.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect opens a connection scoped to roomID. It is a no-op while connected
// or connecting. Connecting from the failed state starts a fresh retry
// budget.
func (c *Channel) Connect(roomID string) {
	c.mu.Lock()
	switch c.state {
	case state.Connected, state.Connecting:
		c.mu.Unlock()
		c.log.Debug().Str("room", roomID).Msg("already connected")
		return
	case state.Failed:
		c.retries = 0
	}
	c.roomID = roomID
	c.stopTimerLocked()
	gen, ctx, cancel := c.beginDialLocked()
	c.mu.Unlock()

	c.flush()
	go c.dial(ctx, cancel, gen, roomID)
}

// Send queues ev for the room and returns immediately. Events are dropped
// with a log line when not connected or when the send queue is full.
func (c *Channel) Send(ev state.DrawEvent) {
	if ev.Timestamp == 0 {
		ev.Timestamp = state.Timestamp(time.Now())
	}
	data, err := EncodeEvent(ev)
	if err != nil {
		c.log.Error().Err(err).Msg("dropping event")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != state.Connected || c.writer == nil {
		c.log.Warn().Str("kind", string(ev.Kind)).Str("state", string(c.state)).Msg("not connected, dropping event")
		return
	}
	select {
	case c.writer.queue <- data:
		c.log.Debug().Str("kind", string(ev.Kind)).Msg("event queued")
	default:
		c.log.Warn().Str("kind", string(ev.Kind)).Int("queued", len(c.writer.queue)).Msg("send queue full, dropping event")
	}
}

// Disconnect closes the connection with a normal closure and cancels any
// pending reconnect or in-flight dial.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.gen++
	c.stopTimerLocked()
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}
	if c.writer != nil {
		// the writer sends the close frame and closes the connection
		c.writer.stop(true)
		c.writer = nil
	}
	c.conn = nil
	c.retries = 0
	prev, roomID := c.state, c.roomID
	if prev != state.Disconnected {
		c.setStateLocked(state.Disconnected)
	}
	c.mu.Unlock()

	if prev != state.Disconnected {
		c.log.Info().Str("room", roomID).Msg("disconnected")
		c.flush()
	}
}

func (c *Channel) beginDialLocked() (uint64, context.Context, context.CancelFunc) {
	c.gen++
	c.setStateLocked(state.Connecting)
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.DialTimeout)
	c.dialCancel = cancel
	return c.gen, ctx, cancel
}

func (c *Channel) dial(ctx context.Context, cancel context.CancelFunc, gen uint64, roomID string) {
	defer cancel()
	target, err := RoomURL(c.opts.Endpoint, roomID)
	var conn Conn
	if err == nil {
		c.log.Info().Str("url", target).Msg("connecting")
		conn, err = c.dialer.Dial(ctx, target)
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	c.dialCancel = nil
	if err != nil {
		c.log.Warn().Err(err).Str("room", roomID).Msg("connection failed")
		c.closedLocked()
		c.mu.Unlock()
		c.flush()
		return
	}
	conn.SetReadLimit(c.opts.MaxFrameSize)
	w := newWriter(c.opts.SendQueueSize)
	c.conn = conn
	c.writer = w
	c.retries = 0
	c.setStateLocked(state.Connected)
	c.mu.Unlock()

	c.log.Info().Str("room", roomID).Msg("connected")
	c.flush()
	go c.writeLoop(conn, w)
	c.readLoop(gen, conn)
}

// writeLoop owns every write on conn. A failed write closes conn, which ends
// the reader and triggers the reconnect policy.
func (c *Channel) writeLoop(conn Conn, w *writer) {
	defer conn.Close()
	for {
		select {
		case p := <-w.queue:
			_ = conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, p); err != nil {
				c.log.Error().Err(err).Msg("failed to send event")
				return
			}
		case <-w.quit:
			if w.farewell {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "normal closure")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.opts.WriteTimeout))
			}
			return
		}
	}
}

func (c *Channel) readLoop(gen uint64, conn Conn) {
	for {
		_, p, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(gen, err)
			return
		}
		ev, err := DecodeEvent(p)
		if err != nil {
			c.log.Warn().Err(err).Msg("dropping inbound payload")
			continue
		}
		c.mu.Lock()
		fn := c.onEvent
		c.mu.Unlock()
		if fn != nil {
			fn(ev)
		}
	}
}

func (c *Channel) handleClose(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	if c.writer != nil {
		c.writer.stop(false)
		c.writer = nil
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		c.conn = nil
		c.setStateLocked(state.Disconnected)
		c.mu.Unlock()
		c.log.Info().Msg("closed normally by peer")
		c.flush()
		return
	}
	c.log.Warn().Err(err).Msg("connection lost")
	c.closedLocked()
	c.mu.Unlock()
	c.flush()
}

// closedLocked applies the reconnect policy after an unplanned closure.
func (c *Channel) closedLocked() {
	c.conn = nil
	if c.retries >= c.opts.MaxReconnectAttempts {
		c.setStateLocked(state.Failed)
		c.log.Error().Int("attempts", c.retries).Msg("reconnect attempts exhausted")
		return
	}
	c.retries++
	c.setStateLocked(state.Disconnected)
	gen := c.gen
	c.log.Info().
		Int("attempt", c.retries).
		Int("max", c.opts.MaxReconnectAttempts).
		Dur("in", c.opts.ReconnectInterval).
		Msg("scheduling reconnect")
	c.timer = time.AfterFunc(c.opts.ReconnectInterval, func() { c.reconnect(gen) })
}

func (c *Channel) reconnect(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.state != state.Disconnected {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	roomID := c.roomID
	next, ctx, cancel := c.beginDialLocked()
	c.mu.Unlock()

	c.flush()
	c.dial(ctx, cancel, next, roomID)
}

func (c *Channel) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Channel) setStateLocked(s state.ConnectionState) {
	c.state = s
	c.pending = append(c.pending, s)
}

// flush delivers pending transitions. Only one goroutine delivers at a time;
// the others leave their transitions to it, so the observer sees them in
// order and its last value is the current state.
func (c *Channel) flush() {
	c.mu.Lock()
	if c.flushing {
		c.mu.Unlock()
		return
	}
	c.flushing = true
	for len(c.pending) > 0 {
		s := c.pending[0]
		c.pending = c.pending[1:]
		fn := c.onState
		c.mu.Unlock()
		if fn != nil {
			fn(s)
		}
		c.mu.Lock()
	}
	c.flushing = false
	c.mu.Unlock()
}

// writer is the outbound side of one connection.
type writer struct {
	queue    chan []byte
	quit     chan struct{}
	once     sync.Once
	farewell bool
}

func newWriter(size int) *writer {
	return &writer{
		queue: make(chan []byte, size),
		quit:  make(chan struct{}),
	}
}

// stop ends the writer; farewell sends a normal closure first.
func (w *writer) stop(farewell bool) {
	w.once.Do(func() {
		w.farewell = farewell
		close(w.quit)
	})
}
