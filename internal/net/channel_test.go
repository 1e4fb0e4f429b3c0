package net

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"CanvasBoard/internal/state"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// relay is an in-process room endpoint. Every accepted connection is handed
// to the test through conns; frames sent by the client land in received.
type relay struct {
	server   *httptest.Server
	conns    chan *websocket.Conn
	received chan []byte
	rooms    chan string
	closes   chan int
	accepted atomic.Int32
}

func newRelay(t *testing.T) *relay {
	t.Helper()
	r := &relay{
		conns:    make(chan *websocket.Conn, 8),
		received: make(chan []byte, 32),
		rooms:    make(chan string, 8),
		closes:   make(chan int, 8),
	}
	upgrader := websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024}
	r.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		r.accepted.Add(1)
		r.rooms <- req.URL.Query().Get("roomId")
		r.conns <- conn
		for {
			_, p, err := conn.ReadMessage()
			if err != nil {
				var ce *websocket.CloseError
				if errors.As(err, &ce) {
					r.closes <- ce.Code
				}
				return
			}
			r.received <- p
		}
	}))
	t.Cleanup(r.server.Close)
	return r
}

func (r *relay) endpoint() string {
	return "ws" + strings.TrimPrefix(r.server.URL, "http")
}

func (r *relay) nextConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-r.conns:
		return conn
	case <-time.After(waitFor):
		t.Fatal("relay never accepted a connection")
		return nil
	}
}

// newSilentRelay accepts connections and never reads from them, so the
// client's socket buffers fill up.
func newSilentRelay(t *testing.T) *relay {
	t.Helper()
	r := &relay{conns: make(chan *websocket.Conn, 8)}
	release := make(chan struct{})
	upgrader := websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024}
	r.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		r.accepted.Add(1)
		r.conns <- conn
		<-release
	}))
	t.Cleanup(r.server.Close)
	t.Cleanup(func() { close(release) })
	return r
}

type failingDialer struct {
	calls atomic.Int32
}

func (d *failingDialer) Dial(context.Context, string) (Conn, error) {
	d.calls.Add(1)
	return nil, errors.New("connection refused")
}

func newTestChannel(endpoint string, dialer Dialer, interval time.Duration, attempts int) *Channel {
	return newTestChannelWith(dialer, Options{
		Endpoint:             endpoint,
		ReconnectInterval:    interval,
		MaxReconnectAttempts: attempts,
	})
}

func newTestChannelWith(dialer Dialer, opts Options) *Channel {
	if opts.DialTimeout == 0 {
		opts.DialTimeout = time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = time.Second
	}
	return NewChannel(zerolog.Nop(), dialer, opts)
}

func waitState(t *testing.T, c *Channel, want state.ConnectionState) {
	t.Helper()
	require.Eventually(t, func() bool { return c.State() == want }, waitFor, tick, "state never became %s", want)
}

func TestChannel_ConnectSendsRoomAndPublishesEnvelope(t *testing.T) {
	req := require.New(t)
	r := newRelay(t)
	c := newTestChannel(r.endpoint(), NewDialer(time.Second), 10*time.Millisecond, 3)
	defer c.Disconnect()

	var states []state.ConnectionState
	var mu sync.Mutex
	c.OnStateChange(func(s state.ConnectionState) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s)
	})

	// When connecting to a room
	c.Connect("room-42")
	waitState(t, c, state.Connected)
	req.Equal("room-42", <-r.rooms)
	r.nextConn(t)

	// Then events are sent in the draw envelope
	c.Send(state.DrawEvent{Kind: state.KindClear, OriginID: "local-1"})
	select {
	case p := <-r.received:
		req.Contains(string(p), `"action":"draw"`)
		req.Contains(string(p), `"kind":"clear"`)
		req.Contains(string(p), `"originId":"local-1"`)
		req.NotContains(string(p), `"timestamp":0`)
	case <-time.After(waitFor):
		req.Fail("relay never received the event")
	}

	mu.Lock()
	req.Equal([]state.ConnectionState{state.Connecting, state.Connected}, states)
	mu.Unlock()
}

func TestChannel_ConnectIsNoOpWhenConnected(t *testing.T) {
	r := newRelay(t)
	c := newTestChannel(r.endpoint(), NewDialer(time.Second), 10*time.Millisecond, 3)
	defer c.Disconnect()

	c.Connect("room")
	waitState(t, c, state.Connected)
	c.Connect("room")
	c.Connect("other")

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, int32(1), r.accepted.Load())
	require.Equal(t, state.Connected, c.State())
}

func TestChannel_InboundEventsAreDecodedAndMalformedDropped(t *testing.T) {
	req := require.New(t)
	r := newRelay(t)
	c := newTestChannel(r.endpoint(), NewDialer(time.Second), 10*time.Millisecond, 3)
	defer c.Disconnect()

	events := make(chan state.DrawEvent, 4)
	c.OnEvent(func(ev state.DrawEvent) { events <- ev })

	c.Connect("room")
	server := r.nextConn(t)
	waitState(t, c, state.Connected)

	// Given a malformed frame followed by a valid bare event
	req.NoError(server.WriteMessage(websocket.TextMessage, []byte(`{not json`)))
	req.NoError(server.WriteMessage(websocket.TextMessage, []byte(`{"kind":"paint"}`)))
	req.NoError(server.WriteMessage(websocket.TextMessage, []byte(`{"kind":"clear","originId":"peer","timestamp":3}`)))

	// Then only the valid event is delivered and the connection survives
	select {
	case ev := <-events:
		req.Equal(state.DrawEvent{Kind: state.KindClear, OriginID: "peer", Timestamp: 3}, ev)
	case <-time.After(waitFor):
		req.Fail("event never delivered")
	}
	req.Empty(events)
	req.Equal(state.Connected, c.State())
}

func TestChannel_ReconnectsAfterAbnormalClose(t *testing.T) {
	req := require.New(t)
	r := newRelay(t)
	c := newTestChannel(r.endpoint(), NewDialer(time.Second), 10*time.Millisecond, 3)
	defer c.Disconnect()

	c.Connect("room")
	first := r.nextConn(t)
	waitState(t, c, state.Connected)

	// When the server goes away uncleanly
	req.NoError(first.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "boom"), time.Now().Add(time.Second)))
	_ = first.Close()

	// Then the channel dials again and resets its budget
	r.nextConn(t)
	waitState(t, c, state.Connected)
	req.Equal(int32(2), r.accepted.Load())
	c.mu.Lock()
	req.Equal(0, c.retries)
	c.mu.Unlock()
}

func TestChannel_NormalCloseFromPeerDoesNotReconnect(t *testing.T) {
	req := require.New(t)
	r := newRelay(t)
	c := newTestChannel(r.endpoint(), NewDialer(time.Second), 10*time.Millisecond, 3)
	defer c.Disconnect()

	c.Connect("room")
	server := r.nextConn(t)
	waitState(t, c, state.Connected)

	req.NoError(server.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second)))

	waitState(t, c, state.Disconnected)
	time.Sleep(100 * time.Millisecond)
	req.Equal(int32(1), r.accepted.Load())
	req.Equal(state.Disconnected, c.State())
}

func TestChannel_FailsAfterRetryBudget(t *testing.T) {
	req := require.New(t)
	dialer := &failingDialer{}
	c := newTestChannel("ws://127.0.0.1:1", dialer, 5*time.Millisecond, 3)
	defer c.Disconnect()

	c.Connect("room")
	waitState(t, c, state.Failed)

	// the first dial plus three reconnects, then nothing more
	req.Equal(int32(4), dialer.calls.Load())
	time.Sleep(50 * time.Millisecond)
	req.Equal(int32(4), dialer.calls.Load())
	req.Equal(state.Failed, c.State())
	c.mu.Lock()
	req.Nil(c.timer)
	c.mu.Unlock()
}

func TestChannel_ConnectFromFailedStartsFreshBudget(t *testing.T) {
	dialer := &failingDialer{}
	c := newTestChannel("ws://127.0.0.1:1", dialer, 5*time.Millisecond, 2)
	defer c.Disconnect()

	c.Connect("room")
	waitState(t, c, state.Failed)
	require.Equal(t, int32(3), dialer.calls.Load())

	c.Connect("room")
	waitState(t, c, state.Failed)
	require.Equal(t, int32(6), dialer.calls.Load())
}

func TestChannel_DisconnectCancelsPendingReconnect(t *testing.T) {
	req := require.New(t)
	dialer := &failingDialer{}
	c := newTestChannel("ws://127.0.0.1:1", dialer, 100*time.Millisecond, 5)

	// Given a failed dial with a reconnect scheduled
	c.Connect("room")
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.timer != nil && c.state == state.Disconnected
	}, waitFor, tick)

	// When disconnecting explicitly
	c.Disconnect()

	// Then the reconnect never fires
	time.Sleep(250 * time.Millisecond)
	req.Equal(int32(1), dialer.calls.Load())
	req.Equal(state.Disconnected, c.State())
}

func TestChannel_DisconnectSendsNormalClosure(t *testing.T) {
	req := require.New(t)
	r := newRelay(t)
	c := newTestChannel(r.endpoint(), NewDialer(time.Second), 10*time.Millisecond, 3)

	c.Connect("room")
	r.nextConn(t)
	waitState(t, c, state.Connected)

	c.Disconnect()
	req.Equal(state.Disconnected, c.State())

	select {
	case code := <-r.closes:
		req.Equal(websocket.CloseNormalClosure, code)
	case <-time.After(waitFor):
		req.Fail("relay never saw the close frame")
	}
	time.Sleep(50 * time.Millisecond)
	req.Equal(int32(1), r.accepted.Load())
}

func TestChannel_SendWhileDisconnectedIsDropped(t *testing.T) {
	c := newTestChannel("ws://127.0.0.1:1", &failingDialer{}, time.Second, 1)
	require.NotPanics(t, func() {
		c.Send(state.DrawEvent{Kind: state.KindClear})
	})
	require.Equal(t, state.Disconnected, c.State())
}

func TestChannel_SendNeverBlocksOnStalledPeer(t *testing.T) {
	req := require.New(t)
	r := newSilentRelay(t)
	c := newTestChannelWith(NewDialer(time.Second), Options{
		Endpoint:             r.endpoint(),
		ReconnectInterval:    time.Minute,
		MaxReconnectAttempts: 1,
		WriteTimeout:         2 * time.Second,
		SendQueueSize:        4,
	})

	c.Connect("room")
	r.nextConn(t)
	waitState(t, c, state.Connected)

	// Given strokes big enough to fill the socket buffers of a peer that
	// never reads
	points := make([]state.Point, 20000)
	for i := range points {
		points[i] = state.Point{X: float64(i), Y: float64(i)}
	}
	ev := state.DrawEvent{Kind: state.KindDraw, Points: points, Color: "#ff0000", Width: 2, OriginID: "local-1"}

	// When sending many of them
	var worst time.Duration
	for i := 0; i < 60; i++ {
		start := time.Now()
		c.Send(ev)
		worst = max(worst, time.Since(start))
	}

	// Then the caller never waits on the network
	req.Less(worst, 100*time.Millisecond)

	start := time.Now()
	c.Disconnect()
	req.Less(time.Since(start), 100*time.Millisecond)
	req.Equal(state.Disconnected, c.State())
}

func TestChannel_StateObserverEndsOnCurrentState(t *testing.T) {
	r := newRelay(t)
	c := newTestChannel(r.endpoint(), NewDialer(time.Second), time.Minute, 3)

	var mu sync.Mutex
	var last state.ConnectionState
	c.OnStateChange(func(s state.ConnectionState) {
		// calling back into the channel from the observer must not deadlock
		_ = c.State()
		mu.Lock()
		defer mu.Unlock()
		last = s
	})

	// When connects race with disconnects
	for i := 0; i < 20; i++ {
		c.Connect("room")
		if i%2 == 0 {
			time.Sleep(time.Millisecond)
		}
		c.Disconnect()
	}

	// Then the last observed state is the real one
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return last == state.Disconnected && c.State() == state.Disconnected
	}, waitFor, tick)
}

func TestChannel_OversizedFrameCountsAsClosure(t *testing.T) {
	req := require.New(t)
	r := newRelay(t)
	c := newTestChannelWith(NewDialer(time.Second), Options{
		Endpoint:             r.endpoint(),
		ReconnectInterval:    10 * time.Millisecond,
		MaxReconnectAttempts: 3,
		MaxFrameSize:         1024,
	})
	defer c.Disconnect()

	events := make(chan state.DrawEvent, 1)
	c.OnEvent(func(ev state.DrawEvent) { events <- ev })

	c.Connect("room")
	server := r.nextConn(t)
	waitState(t, c, state.Connected)

	// When the peer sends a frame over the limit
	big := `{"kind":"clear","originId":"` + strings.Repeat("x", 4096) + `"}`
	go func() { _ = server.WriteMessage(websocket.TextMessage, []byte(big)) }()

	// Then the connection is dropped and re-established
	r.nextConn(t)
	waitState(t, c, state.Connected)
	req.Equal(int32(2), r.accepted.Load())
	req.Empty(events)
}
