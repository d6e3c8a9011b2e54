package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"scrumpoker/internal/app"
	"scrumpoker/internal/domain"
	"scrumpoker/internal/transport/ws"
)

const (
	writeWait         = 10 * time.Second
	minReconnectDelay = 500 * time.Millisecond
	maxReconnectDelay = 30 * time.Second
	handshakeTimeout  = 10 * time.Second
)

var ErrNotConnected = errors.New("not connected")

// Options configures a Client
type Options struct {
	URL      string
	Username string
	RoomID   string
	Role     domain.Role
	Logger   *slog.Logger

	// OnNotice is called from the read loop for every applied event
	OnNotice func(Notice)
}

// Client is a WebSocket client that keeps a Mirror in step with the server
// and rejoins its room after a reconnect.
type Client struct {
	url    string
	mirror *Mirror
	logger *slog.Logger
	notify func(Notice)
	dialer *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

// New creates a client; call Connect before sending
func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notify := opts.OnNotice
	if notify == nil {
		notify = func(Notice) {}
	}
	return &Client{
		url:    opts.URL,
		mirror: NewMirror(opts.Username, opts.RoomID, opts.Role),
		logger: logger.With("roomCode", opts.RoomID, "username", opts.Username),
		notify: notify,
		dialer: &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
	}
}

// Mirror returns the local replica
func (c *Client) Mirror() *Mirror {
	return c.mirror
}

// Connect dials the server and joins the room
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = conn
	c.mu.Unlock()

	c.mirror.SetConnected(true)
	return c.Join()
}

// Run reads server messages into the mirror until ctx is done, reconnecting
// with exponential backoff whenever the connection drops
func (c *Client) Run(ctx context.Context) error {
	delay := minReconnectDelay
	for {
		err := c.readLoop()
		c.mirror.SetConnected(false)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("connection lost", "error", err, "retryIn", delay)

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			if err := c.Connect(ctx); err != nil {
				delay = min(delay*2, maxReconnectDelay)
				c.logger.Warn("reconnect failed", "error", err, "retryIn", delay)
				continue
			}
			c.logger.Info("reconnected")
			delay = minReconnectDelay
			break
		}
	}
}

func (c *Client) readLoop() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var msg ws.InboundServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Debug("ignoring malformed message", "error", err)
			continue
		}
		notice, err := c.mirror.Apply(msg)
		if err != nil {
			c.logger.Debug("event not applied", "type", msg.Type, "error", err)
			continue
		}
		c.notify(notice)
	}
}

// Join (re)sends join_room for the mirror's identity
func (c *Client) Join() error {
	username, roomID, role := c.mirror.Identity()
	return c.send(ws.MsgJoinRoom, app.JoinRoom{Username: username, RoomID: roomID, Role: string(role)})
}

// Vote selects card locally and submits it
func (c *Client) Vote(card string) error {
	if err := c.mirror.Select(card); err != nil {
		return err
	}
	return c.Submit()
}

// Submit sends the locally selected card
func (c *Client) Submit() error {
	card, err := c.mirror.Selection()
	if err != nil {
		return err
	}
	username, roomID, _ := c.mirror.Identity()
	return c.send(ws.MsgVoteSubmitted, app.SubmitVote{Username: username, RoomID: roomID, Vote: card})
}

// Reveal asks the server to reveal all votes
func (c *Client) Reveal() error {
	username, roomID, _ := c.mirror.Identity()
	return c.send(ws.MsgRevealVotes, app.RoomAction{RoomID: roomID, Username: username})
}

// Reset asks the server to start a new round
func (c *Client) Reset() error {
	username, roomID, _ := c.mirror.Identity()
	return c.send(ws.MsgResetVoting, app.RoomAction{RoomID: roomID, Username: username})
}

// ChangeSequence asks the server to switch the card sequence
func (c *Client) ChangeSequence(seq domain.SequenceID) error {
	username, roomID, _ := c.mirror.Identity()
	return c.send(ws.MsgSequenceChanged, app.ChangeSequence{RoomID: roomID, Sequence: string(seq), Username: username})
}

// Sync requests a fresh snapshot
func (c *Client) Sync() error {
	_, roomID, _ := c.mirror.Identity()
	return c.send(ws.MsgSyncRequest, app.SyncRequest{RoomID: roomID})
}

// Ping sends an application-level ping
func (c *Client) Ping() error {
	return c.send(ws.MsgPing, nil)
}

// Leave sends leave_room; the connection stays open
func (c *Client) Leave() error {
	username, roomID, _ := c.mirror.Identity()
	return c.send(ws.MsgLeaveRoom, app.LeaveRoom{Username: username, RoomID: roomID})
}

// Close closes the connection with a normal closure frame
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) send(msgType ws.MessageType, payload any) error {
	msg, err := ws.NewClientMessage(msgType, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}
