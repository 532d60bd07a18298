package livesync

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"cellbench/backend/libs/clock"
)

// Reconnect and keepalive timing. Backoff doubles per consecutive
// failure and resets to base the instant a connection opens.
const (
	baseBackoff  = time.Second
	maxBackoff   = 30 * time.Second
	pingInterval = 25 * time.Second
)

// Bare text keepalive frames. Never JSON, never passed to the registry.
const (
	pingFrame = "ping"
	pongFrame = "pong"
)

// LivePath is the server's live feed endpoint.
const LivePath = "/api/ws/live"

// LiveURL turns the dashboard's base HTTP URL into the live feed
// websocket URL, keeping any path prefix the base carries.
func LiveURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("livesync: parse base url: %w", err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("livesync: unsupported scheme %q", u.Scheme)
	}

	u.Path = strings.TrimRight(u.Path, "/") + LivePath
	u.RawQuery = ""
	return u.String(), nil
}

// wsConn is the slice of *websocket.Conn the client uses. Tests
// substitute a fake.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client owns the live feed connection: at most one at a time, redialed
// forever with capped backoff, kept alive with periodic text pings.
// Decoded frames flow into the store; the connected flag flips on
// open and close. Timers come from the injected clock so the schedule
// is testable without waiting.
type Client struct {
	url    string
	store  *Store
	clk    clock.Clock
	logger *zap.Logger

	dial  func(ctx context.Context) (wsConn, error)
	state atomic.Int32
}

func NewClient(url string, store *Store, clk clock.Clock, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{url: url, store: store, clk: clk, logger: logger}
	c.dial = c.dialWebsocket
	return c
}

// State reports the connection lifecycle state.
func (c *Client) State() ConnState {
	return ConnState(c.state.Load())
}

func (c *Client) setState(s ConnState) {
	c.state.Store(int32(s))
	c.store.SetConnected(s == StateOpen)
}

// Run drives the connection until ctx is cancelled: dial, serve, tear
// down, wait out the backoff, dial again. The loop is strictly
// sequential, so a second connection can never open while one is live.
// Cancellation closes the active connection and stops every timer.
func (c *Client) Run(ctx context.Context) {
	defer c.setState(StateDisconnected)

	delay := baseBackoff
	for ctx.Err() == nil {
		c.setState(StateConnecting)
		conn, err := c.dial(ctx)
		if err != nil {
			c.setState(StateDisconnected)
			c.logger.Debug("live feed dial failed",
				zap.Error(err),
				zap.Duration("retry_in", delay))
			if !c.sleep(ctx, delay) {
				return
			}
			delay = nextDelay(delay)
			continue
		}

		c.setState(StateOpen)
		delay = baseBackoff
		c.logger.Info("live feed connected", zap.String("url", c.url))

		c.serve(ctx, conn)

		c.setState(StateDisconnected)
		c.logger.Info("live feed disconnected", zap.Duration("retry_in", delay))
		if ctx.Err() != nil {
			return
		}
		if !c.sleep(ctx, delay) {
			return
		}
		delay = nextDelay(delay)
	}
}

func (c *Client) dialWebsocket(ctx context.Context) (wsConn, error) {
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	return ws, nil
}

// serve pumps frames from conn into the store until the transport
// closes or errors (handled identically) or ctx is cancelled. It
// returns only after the keepalive loop has stopped and the connection
// is closed.
func (c *Client) serve(ctx context.Context, conn wsConn) {
	defer conn.Close()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.keepalive(conn, stop)
	}()
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			break
		}
		c.handleFrame(frame)
	}

	close(stop)
	wg.Wait()
}

// keepalive sends the bare text frame "ping" every pingInterval while
// the connection is open. A failed write ends the loop; the reader
// sees the same dead transport and tears the connection down.
func (c *Client) keepalive(conn wsConn, stop <-chan struct{}) {
	ticker := c.clk.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.TextMessage, []byte(pingFrame)); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}

func (c *Client) handleFrame(frame []byte) {
	if string(frame) == pongFrame {
		return
	}
	if err := c.store.Apply(frame); err != nil {
		c.logger.Debug("discarding live frame", zap.Error(err))
	}
}

// sleep waits d on the injected clock. It reports false when ctx was
// cancelled first.
func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	timer := c.clk.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func nextDelay(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
