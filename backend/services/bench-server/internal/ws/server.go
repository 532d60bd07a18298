package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"cellbench/backend/services/bench-server/internal/metrics"
	"cellbench/backend/services/bench-server/internal/models"
)

// SnapshotFunc supplies the current fleet snapshot for the initial frame.
type SnapshotFunc func() []models.StationStatus

// Server upgrades dashboard clients onto the live feed.
type Server struct {
	hub          *Hub
	snapshot     SnapshotFunc
	logger       *zap.Logger
	sendBuffer   int
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
}

// NewServer builds the websocket endpoint handler.
func NewServer(hub *Hub, snapshot SnapshotFunc, sendBuffer int, writeTimeout time.Duration, logger *zap.Logger) *Server {
	return &Server{
		hub:          hub,
		snapshot:     snapshot,
		logger:       logger,
		sendBuffer:   sendBuffer,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Bench LAN tool; dashboards connect from any origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleLive serves GET /api/ws/live.
func (s *Server) HandleLive(w http.ResponseWriter, r *http.Request) {
	socket, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	conn := NewConn(id, socket, s.sendBuffer, s.writeTimeout, s.logger, func(connID string) {
		s.hub.Remove(connID)
		cancel()
		s.logger.Info("dashboard disconnected", zap.String("conn_id", connID), zap.Int("clients", s.hub.Count()))
	})
	s.hub.Add(conn)

	initial, err := MarshalInitial(s.snapshot())
	if err != nil {
		s.logger.Error("marshal initial snapshot", zap.Error(err))
	} else {
		conn.Send(initial)
		metrics.WSMessages.WithLabelValues(MessageInitial).Inc()
	}

	go conn.Start(ctx)
	s.logger.Info("dashboard connected", zap.String("conn_id", id), zap.Int("clients", s.hub.Count()))
}
