package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"scrumpoker/internal/app"
	"scrumpoker/internal/domain"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Size of the send channel buffer
	sendBufferSize = 256
)

// route decodes one inbound message type and applies it
type route func(ctx context.Context, c *Client, payload json.RawMessage) error

// command builds a route that decodes the payload into T before applying it
func command[T any](apply func(*app.Connection, context.Context, T) error) route {
	return func(ctx context.Context, c *Client, payload json.RawMessage) error {
		var cmd T
		if err := c.decode(payload, &cmd); err != nil {
			return err
		}
		return apply(c.handler, ctx, cmd)
	}
}

var routes = map[MessageType]route{
	MsgJoinRoom:        command((*app.Connection).Join),
	MsgVoteSubmitted:   command((*app.Connection).SubmitVote),
	MsgRevealVotes:     command((*app.Connection).RevealVotes),
	MsgResetVoting:     command((*app.Connection).ResetVoting),
	MsgSequenceChanged: command((*app.Connection).ChangeSequence),
	MsgLeaveRoom:       command((*app.Connection).Leave),
	MsgSyncRequest:     command((*app.Connection).Sync),
	MsgPing: func(_ context.Context, c *Client, _ json.RawMessage) error {
		c.Send(domain.NewEvent(domain.EventPong, "", nil))
		return nil
	},
}

// Client is one WebSocket connection. It implements app.ClientConnection
// and feeds inbound messages to its protocol handler.
type Client struct {
	conn    *websocket.Conn
	connID  string
	handler *app.Connection
	send    chan []byte
	done    chan struct{}
	logger  *slog.Logger
	mu      sync.Mutex
	closed  bool
}

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, connID string, logger *slog.Logger) *Client {
	return &Client{
		conn:   conn,
		connID: connID,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
		logger: logger.With("connID", connID),
	}
}

// GetConnID implements app.ClientConnection interface
func (c *Client) GetConnID() string {
	return c.connID
}

// Send queues an event for the write pump. A client too slow to drain its
// buffer is disconnected rather than skipped, so it never holds a silently
// diverged view; it resynchronises by joining again.
func (c *Client) Send(event *domain.RoomEvent) error {
	data, err := json.Marshal(NewServerMessage(event))
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return app.ErrConnectionClosed
	}
	select {
	case c.send <- data:
		c.mu.Unlock()
		return nil
	default:
	}
	c.mu.Unlock()

	c.logger.Warn("send buffer full, disconnecting slow client", "type", event.Type)
	c.Close()
	return app.ErrConnectionClosed
}

// Close implements app.ClientConnection interface
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.done)
	return c.conn.Close()
}

// Run starts the write pump and reads until the connection ends
func (c *Client) Run(ctx context.Context) {
	go c.writePump()
	c.readPump(ctx)
}

// readPump pumps messages from the WebSocket connection
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		if err := c.handler.Disconnect(ctx); err != nil {
			c.logger.Debug("disconnect", "error", err)
		}
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.logger.Debug("websocket read error", "error", err)
			}
			return
		}

		c.handleMessage(ctx, message)
	}
}

// writePump writes queued messages, one JSON message per frame
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage decodes an incoming message and hands it to the protocol handler
func (c *Client) handleMessage(ctx context.Context, data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(app.ErrCodeInvalidMessage, "Invalid message format")
		return
	}

	handle, ok := routes[msg.Type]
	if !ok {
		c.sendError(app.ErrCodeInvalidMessage, "Unknown message type")
		return
	}
	if err := handle(ctx, c, msg.Payload); err != nil {
		c.logger.Debug("message not applied", "type", msg.Type, "error", err)
	}
}

// decode unmarshals a payload, replying with an error when it is malformed
func (c *Client) decode(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		c.sendError(app.ErrCodeInvalidMessage, "Invalid payload")
		return errInvalidPayload
	}
	if err := json.Unmarshal(payload, v); err != nil {
		c.sendError(app.ErrCodeInvalidMessage, "Invalid payload")
		return err
	}
	return nil
}

// sendError sends an error message to the client
func (c *Client) sendError(code, message string) {
	c.Send(domain.NewEvent(domain.EventError, "", &domain.ErrorPayload{
		Code:    code,
		Message: message,
	}))
}
