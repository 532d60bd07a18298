package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"cellbench/backend/services/bench-server/internal/models"
)

func newLiveServer(t *testing.T, snapshot SnapshotFunc) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub()
	srv := NewServer(hub, snapshot, 16, time.Second, zap.NewNop())
	ts := httptest.NewServer(http.HandlerFunc(srv.HandleLive))
	t.Cleanup(ts.Close)
	return hub, ts
}

func dialLive(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial live feed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
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

func TestLiveFeedSendsInitialSnapshot(t *testing.T) {
	voltage := 7400
	hub, ts := newLiveServer(t, func() []models.StationStatus {
		return []models.StationStatus{
			{StationID: 1, State: models.StateRunning, VoltageMV: &voltage},
			{StationID: 2, State: models.StateEmpty},
		}
	})

	conn := dialLive(t, ts)

	var msg struct {
		Type string                 `json:"type"`
		Data []models.StationStatus `json:"data"`
	}
	if err := json.Unmarshal(readFrame(t, conn), &msg); err != nil {
		t.Fatalf("decode initial frame: %v", err)
	}
	if msg.Type != MessageInitial {
		t.Fatalf("expected %s frame, got %s", MessageInitial, msg.Type)
	}
	if len(msg.Data) != 2 {
		t.Fatalf("expected 2 stations, got %d", len(msg.Data))
	}
	if msg.Data[0].VoltageMV == nil || *msg.Data[0].VoltageMV != 7400 {
		t.Fatalf("expected voltage 7400, got %v", msg.Data[0].VoltageMV)
	}

	waitFor(t, time.Second, func() bool { return hub.Count() == 1 })
}

func TestLiveFeedBroadcastReachesClients(t *testing.T) {
	hub, ts := newLiveServer(t, func() []models.StationStatus { return nil })

	conn := dialLive(t, ts)
	readFrame(t, conn) // initial snapshot

	waitFor(t, time.Second, func() bool { return hub.Count() == 1 })

	payload, err := MarshalUpdate([]models.StationStatus{{StationID: 3, State: models.StateReady}})
	if err != nil {
		t.Fatalf("marshal update: %v", err)
	}
	hub.Broadcast(MessageUpdate, payload)

	var msg struct {
		Type string                 `json:"type"`
		Data []models.StationStatus `json:"data"`
	}
	if err := json.Unmarshal(readFrame(t, conn), &msg); err != nil {
		t.Fatalf("decode update frame: %v", err)
	}
	if msg.Type != MessageUpdate {
		t.Fatalf("expected %s frame, got %s", MessageUpdate, msg.Type)
	}
	if len(msg.Data) != 1 || msg.Data[0].StationID != 3 {
		t.Fatalf("unexpected update payload %+v", msg.Data)
	}
}

func TestLiveFeedAnswersTextPing(t *testing.T) {
	_, ts := newLiveServer(t, func() []models.StationStatus { return nil })

	conn := dialLive(t, ts)
	readFrame(t, conn) // initial snapshot

	if err := conn.WriteMessage(websocket.TextMessage, []byte(framePing)); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	frame := readFrame(t, conn)
	if string(frame) != framePong {
		t.Fatalf("expected %q, got %q", framePong, frame)
	}
}

func TestLiveFeedDropsClientOnDisconnect(t *testing.T) {
	hub, ts := newLiveServer(t, func() []models.StationStatus { return nil })

	conn := dialLive(t, ts)
	readFrame(t, conn) // initial snapshot

	waitFor(t, time.Second, func() bool { return hub.Count() == 1 })
	conn.Close()
	waitFor(t, 2*time.Second, func() bool { return hub.Count() == 0 })
}

func TestConnSendDropsWhenBufferFull(t *testing.T) {
	// No write pump draining: the second frame meets a full buffer.
	conn := NewConn("slow", nil, 1, time.Second, zap.NewNop(), nil)

	conn.Send([]byte("first"))

	done := make(chan struct{})
	go func() {
		conn.Send([]byte("second"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("send blocked on a full buffer")
	}
	if queued := len(conn.send); queued != 1 {
		t.Fatalf("expected 1 queued frame, got %d", queued)
	}
}

func TestMarshalAwaitingInputShape(t *testing.T) {
	payload, err := MarshalAwaitingInput(3, models.AwaitingTask{
		TaskID:     11,
		TaskNumber: 2,
		Label:      "Check electrolyte level",
		StepType:   "operator_action",
	})
	if err != nil {
		t.Fatalf("marshal awaiting input: %v", err)
	}

	var msg struct {
		Type      string              `json:"type"`
		StationID int                 `json:"station_id"`
		Task      models.AwaitingTask `json:"task"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if msg.Type != MessageAwaitingInput {
		t.Fatalf("expected %s, got %s", MessageAwaitingInput, msg.Type)
	}
	if msg.StationID != 3 || msg.Task.TaskID != 11 || msg.Task.Label != "Check electrolyte level" {
		t.Fatalf("unexpected frame %+v", msg)
	}
}
