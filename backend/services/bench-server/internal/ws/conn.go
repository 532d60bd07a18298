package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	readLimit    = 512 * 1024
	readDeadline = 60 * time.Second
	pingPeriod   = 30 * time.Second
)

// Conn wraps one attached dashboard client. Outbound frames flow
// through a buffered send channel; a full buffer drops the frame
// rather than stalling the broadcaster.
type Conn struct {
	id           string
	ws           *websocket.Conn
	send         chan []byte
	logger       *zap.Logger
	writeTimeout time.Duration
	onClose      func(id string)
}

// NewConn builds a connection wrapper around an upgraded socket.
func NewConn(id string, ws *websocket.Conn, sendBuffer int, writeTimeout time.Duration, logger *zap.Logger, onClose func(string)) *Conn {
	if sendBuffer <= 0 {
		sendBuffer = 32
	}
	return &Conn{
		id:           id,
		ws:           ws,
		send:         make(chan []byte, sendBuffer),
		logger:       logger,
		writeTimeout: writeTimeout,
		onClose:      onClose,
	}
}

// ID returns the connection identifier.
func (c *Conn) ID() string {
	return c.id
}

// Start launches the write pump and runs the read pump until the
// client goes away.
func (c *Conn) Start(ctx context.Context) {
	go c.writePump(ctx)
	c.readPump(ctx)
}

// readPump consumes inbound frames. Dashboards only ever send the bare
// text keepalive "ping"; it is answered with "pong" and everything
// else inbound is dropped.
func (c *Conn) readPump(ctx context.Context) {
	defer c.cleanup()
	c.ws.SetReadLimit(readLimit)
	c.ws.SetReadDeadline(time.Now().Add(readDeadline))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgType, message, err := c.ws.ReadMessage()
		if err != nil {
			c.logger.Debug("client read closed", zap.String("conn_id", c.id), zap.Error(err))
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(readDeadline))

		if msgType == websocket.TextMessage && string(message) == framePing {
			c.Send([]byte(framePong))
		}
	}
}

func (c *Conn) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				_ = c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Send enqueues a frame for the write pump, dropping it when the
// buffer is full or the connection is tearing down.
func (c *Conn) Send(msg []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Debug("send on closing connection", zap.String("conn_id", c.id))
		}
	}()
	select {
	case c.send <- msg:
	default:
		c.logger.Warn("dropping frame, send buffer full", zap.String("conn_id", c.id))
	}
}

// Close tears down the socket. The read pump observes the closed
// transport and runs its normal cleanup exactly once.
func (c *Conn) Close() {
	_ = c.ws.Close()
}

func (c *Conn) write(messageType int, data []byte) error {
	c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteMessage(messageType, data)
}

func (c *Conn) cleanup() {
	close(c.send)
	_ = c.ws.Close()
	if c.onClose != nil {
		c.onClose(c.id)
	}
}
