package livesync

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"cellbench/backend/libs/clock"
)

type fakeConn struct {
	frames chan []byte
	writes chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan []byte, 16),
		writes: make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case frame := <-f.frames:
		return websocket.TextMessage, frame, nil
	case <-f.closed:
		return 0, nil, errors.New("connection closed")
	}
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	select {
	case <-f.closed:
		return errors.New("connection closed")
	default:
	}
	f.writes <- data
	return nil
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func waitFor(t *testing.T, timeout time.Duration, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func nextAttempt(t *testing.T, attempts <-chan int) int {
	t.Helper()
	select {
	case n := <-attempts:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("expected a dial attempt")
		return 0
	}
}

func noAttempt(t *testing.T, attempts <-chan int) {
	t.Helper()
	select {
	case n := <-attempts:
		t.Fatalf("dial attempt %d fired before the backoff elapsed", n)
	case <-time.After(50 * time.Millisecond):
	}
}

func expectWrite(t *testing.T, conn *fakeConn, want string) {
	t.Helper()
	select {
	case data := <-conn.writes:
		if string(data) != want {
			t.Fatalf("expected frame %q on the wire, got %q", want, data)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected frame %q on the wire", want)
	}
}

func expectNoWrite(t *testing.T, conn *fakeConn) {
	t.Helper()
	select {
	case data := <-conn.writes:
		t.Fatalf("unexpected frame %q on the wire", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func startClient(t *testing.T, c *Client) (context.CancelFunc, chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("client did not stop after cancel")
		}
	})
	return cancel, done
}

func TestClientBackoffSequence(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	store := NewStore(1)
	client := NewClient("ws://bench.local"+LivePath, store, clk, zap.NewNop())

	attempts := make(chan int, 1)
	var n int
	client.dial = func(ctx context.Context) (wsConn, error) {
		n++
		attempts <- n
		return nil, errors.New("connection refused")
	}

	startClient(t, client)

	nextAttempt(t, attempts)

	delays := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}
	for i, want := range delays {
		clk.WaitForTimers(1)
		clk.Advance(want - time.Millisecond)
		noAttempt(t, attempts)
		clk.Advance(time.Millisecond)
		if got := nextAttempt(t, attempts); got != i+2 {
			t.Fatalf("expected attempt %d after %s, got %d", i+2, want, got)
		}
	}
}

func TestClientBackoffResetsAfterOpen(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	store := NewStore(1)
	client := NewClient("ws://bench.local"+LivePath, store, clk, zap.NewNop())

	conn := newFakeConn()
	attempts := make(chan int, 1)
	var n int
	client.dial = func(ctx context.Context) (wsConn, error) {
		n++
		attempts <- n
		if n == 3 {
			return conn, nil
		}
		return nil, errors.New("connection refused")
	}

	startClient(t, client)

	nextAttempt(t, attempts) // fails, schedules 1s
	clk.WaitForTimers(1)
	clk.Advance(time.Second)
	nextAttempt(t, attempts) // fails, schedules 2s
	clk.WaitForTimers(1)
	clk.Advance(2 * time.Second)
	nextAttempt(t, attempts) // succeeds
	waitFor(t, 2*time.Second, store.Connected)

	// Losing the connection now must schedule the base delay again,
	// not continue doubling from 4s.
	conn.Close()
	waitFor(t, 2*time.Second, func() bool { return !store.Connected() })

	clk.WaitForTimers(1)
	clk.Advance(time.Second - time.Millisecond)
	noAttempt(t, attempts)
	clk.Advance(time.Millisecond)
	if got := nextAttempt(t, attempts); got != 4 {
		t.Fatalf("expected attempt 4 one second after the drop, got %d", got)
	}
}

func TestClientKeepalivePings(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	store := NewStore(1)
	client := NewClient("ws://bench.local"+LivePath, store, clk, zap.NewNop())

	conn := newFakeConn()
	var dials int
	client.dial = func(ctx context.Context) (wsConn, error) {
		dials++
		if dials == 1 {
			return conn, nil
		}
		return nil, errors.New("connection refused")
	}

	startClient(t, client)

	waitFor(t, 2*time.Second, store.Connected)
	clk.WaitForTimers(1)

	clk.Advance(24 * time.Second)
	expectNoWrite(t, conn)
	clk.Advance(time.Second) // t=25s
	expectWrite(t, conn, pingFrame)

	clk.Advance(25 * time.Second) // t=50s
	expectWrite(t, conn, pingFrame)
	clk.Advance(25 * time.Second) // t=75s
	expectWrite(t, conn, pingFrame)

	// Once the connection closes, no further pings, even as the
	// reconnect schedule keeps the clock busy.
	conn.Close()
	waitFor(t, 2*time.Second, func() bool { return !store.Connected() })
	clk.WaitForTimers(1)
	clk.Advance(30 * time.Second)
	expectNoWrite(t, conn)
}

func TestClientPongUpdatesNothing(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	store := NewStore(1)
	client := NewClient("ws://bench.local"+LivePath, store, clk, zap.NewNop())

	conn := newFakeConn()
	client.dial = func(ctx context.Context) (wsConn, error) { return conn, nil }

	startClient(t, client)
	waitFor(t, 2*time.Second, store.Connected)

	conn.frames <- []byte(`{"type":"update","data":[{"station_id":1,"state":"ready"}]}`)
	waitFor(t, 2*time.Second, func() bool { return len(store.View().Stations) == 1 })

	conn.frames <- []byte(pongFrame)
	conn.frames <- []byte(`{"type":"update","data":[{"station_id":1,"state":"running"}]}`)
	waitFor(t, 2*time.Second, func() bool {
		v := store.View()
		return len(v.Stations) == 1 && v.Stations[0].State == StationRunning
	})
}

func TestClientTeardownCancelsTimers(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	store := NewStore(1)
	client := NewClient("ws://bench.local"+LivePath, store, clk, zap.NewNop())

	conn := newFakeConn()
	client.dial = func(ctx context.Context) (wsConn, error) { return conn, nil }

	cancel, done := startClient(t, client)

	waitFor(t, 2*time.Second, store.Connected)
	clk.WaitForTimers(1) // keepalive armed

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("client did not stop after cancel")
	}

	if got := clk.Pending(); got != 0 {
		t.Fatalf("expected no armed timers after teardown, got %d", got)
	}
	select {
	case <-conn.closed:
	default:
		t.Fatal("connection left open after teardown")
	}
	if store.Connected() {
		t.Fatal("connected flag still set after teardown")
	}
	if got := client.State(); got != StateDisconnected {
		t.Fatalf("expected disconnected state after teardown, got %s", got)
	}
}

func TestClientTeardownDuringBackoff(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	store := NewStore(1)
	client := NewClient("ws://bench.local"+LivePath, store, clk, zap.NewNop())

	attempts := make(chan int, 1)
	var n int
	client.dial = func(ctx context.Context) (wsConn, error) {
		n++
		attempts <- n
		return nil, errors.New("connection refused")
	}

	cancel, done := startClient(t, client)

	nextAttempt(t, attempts)
	clk.WaitForTimers(1) // reconnect timer armed

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("client did not stop after cancel")
	}

	if got := clk.Pending(); got != 0 {
		t.Fatalf("expected no armed timers after teardown, got %d", got)
	}
}

// newLiveServer serves a real websocket endpoint that pushes frames on
// connect, then answers pings until the peer goes away.
func newLiveServer(t *testing.T, frames ...[]byte) (*httptest.Server, string) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for _, frame := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		}
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if string(msg) == pingFrame {
				if err := conn.WriteMessage(websocket.TextMessage, []byte(pongFrame)); err != nil {
					return
				}
			}
		}
	}))
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClientLiveFeedEndToEnd(t *testing.T) {
	frames := [][]byte{
		[]byte(`{"type":"initial","data":[{"station_id":1,"state":"empty"}]}`),
		[]byte(`{"type":"task_awaiting_input","station_id":1,
			"task":{"task_id":7,"task_number":3,"label":"Measure pack voltage","step_type":"measure"}}`),
		[]byte(`{not json`),
		[]byte(`{"type":"alert","severity":"info","message":"shift change"}`),
		[]byte(`{"type":"update","data":[
			{"station_id":1,"state":"running"},
			{"station_id":2,"state":"ready"}]}`),
	}
	srv, wsURL := newLiveServer(t, frames...)
	defer srv.Close()

	store := NewStore(4)
	client := NewClient(wsURL, store, clock.New(), zap.NewNop())

	cancel, done := startClient(t, client)

	waitFor(t, 2*time.Second, func() bool {
		v := store.View()
		return v.Connected && len(v.Stations) == 2
	})

	v := store.View()
	if v.Stations[0].StationID != 1 || v.Stations[0].State != StationRunning {
		t.Fatalf("expected station 1 running, got %+v", v.Stations[0])
	}
	if v.Stations[1].StationID != 2 || v.Stations[1].State != StationReady {
		t.Fatalf("expected station 2 ready, got %+v", v.Stations[1])
	}
	task, ok := v.AwaitingByStation[1]
	if !ok {
		t.Fatal("awaiting entry for station 1 missing after snapshot updates")
	}
	if task.TaskID != 7 || task.Label != "Measure pack voltage" || task.StepType != "measure" {
		t.Fatalf("unexpected awaiting task: %+v", task)
	}

	grid := store.Grid()
	if len(grid) != 4 {
		t.Fatalf("expected a 4-slot grid, got %d", len(grid))
	}
	if grid[2].StationID != 3 || grid[2].State != StationEmpty {
		t.Fatalf("expected placeholder for station 3, got %+v", grid[2])
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("client did not stop after cancel")
	}
	if store.Connected() {
		t.Fatal("connected flag still set after teardown")
	}
}

func TestLiveURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"http://localhost:8000", "ws://localhost:8000/api/ws/live"},
		{"https://bench.example.com", "wss://bench.example.com/api/ws/live"},
		{"http://bench.example.com/shop/", "ws://bench.example.com/shop/api/ws/live"},
		{"ws://localhost:8000", "ws://localhost:8000/api/ws/live"},
	}
	for _, tc := range cases {
		got, err := LiveURL(tc.base)
		if err != nil {
			t.Fatalf("LiveURL(%q): %v", tc.base, err)
		}
		if got != tc.want {
			t.Fatalf("LiveURL(%q) = %q, want %q", tc.base, got, tc.want)
		}
	}

	if _, err := LiveURL("ftp://bench.example.com"); err == nil {
		t.Fatal("expected an error for an unsupported scheme")
	}
}
