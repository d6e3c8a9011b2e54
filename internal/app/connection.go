package app

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"scrumpoker/internal/domain"
)

const tracerName = "scrumpoker/internal/app"

// ConnState is the protocol state of one connection
type ConnState int

const (
	StateUnbound ConnState = iota
	StateBound
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateBound:
		return "bound"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Client commands

// JoinRoom is the payload of join_room
type JoinRoom struct {
	Username string `json:"username"`
	RoomID   string `json:"roomId"`
	Role     string `json:"role"`
}

// SubmitVote is the payload of vote_submitted
type SubmitVote struct {
	Username string `json:"username"`
	RoomID   string `json:"roomId"`
	Vote     string `json:"vote"`
}

// RoomAction is the payload of reveal_votes and reset_voting
type RoomAction struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

// ChangeSequence is the payload of sequence_changed
type ChangeSequence struct {
	RoomID   string `json:"roomId"`
	Sequence string `json:"sequence"`
	Username string `json:"username"`
}

// LeaveRoom is the payload of leave_room
type LeaveRoom struct {
	Username string `json:"username"`
	RoomID   string `json:"roomId"`
}

// SyncRequest is the payload of sync_request
type SyncRequest struct {
	RoomID string `json:"roomId"`
}

// ConnectionOptions tunes per-connection validation
type ConnectionOptions struct {
	MaxUsernameLength int
}

// Connection is the protocol handler for one client connection. It tracks
// which room and identity the connection is bound to and rejects messages
// that claim any other identity.
//
// A Connection is driven by its transport's read loop and is not safe for
// concurrent use.
type Connection struct {
	id     string
	out    ClientConnection
	store  *RoomStore
	opts   ConnectionOptions
	logger *slog.Logger
	tracer trace.Tracer

	state    ConnState
	session  *RoomSession
	roomID   string
	username string
	role     domain.Role
}

// NewConnection creates an unbound protocol handler for out
func NewConnection(out ClientConnection, store *RoomStore, opts ConnectionOptions, logger *slog.Logger) *Connection {
	return &Connection{
		id:     out.GetConnID(),
		out:    out,
		store:  store,
		opts:   opts,
		logger: logger.With("connID", out.GetConnID()),
		tracer: otel.Tracer(tracerName),
		state:  StateUnbound,
	}
}

// State returns the current protocol state
func (c *Connection) State() ConnState {
	return c.state
}

// Identity returns the bound room, username and role
func (c *Connection) Identity() (roomID, username string, role domain.Role) {
	return c.roomID, c.username, c.role
}

// Join binds the connection to a room, leaving any previous room first
func (c *Connection) Join(ctx context.Context, cmd JoinRoom) (err error) {
	_, span := c.startSpan(ctx, "room.join")
	defer func() { endSpan(span, err) }()

	if c.state == StateClosed {
		return ErrConnectionClosed
	}

	username, err := domain.NormalizeUsername(cmd.Username, c.opts.MaxUsernameLength)
	if err != nil {
		c.sendError("", ErrCodeInvalidMessage, "Username and room ID are required")
		return err
	}
	roomID, err := domain.NormalizeRoomID(cmd.RoomID)
	if err != nil {
		c.sendError("", ErrCodeInvalidMessage, "Username and room ID are required")
		return err
	}
	role := domain.ParseRole(cmd.Role)
	span.SetAttributes(attribute.String("room.id", roomID), attribute.String("room.role", role.String()))

	// Rejoining the same room under the same name keeps the room alive
	if c.state == StateBound && (c.roomID != roomID || c.username != username) {
		c.leaveCurrent()
	}

	session, err := c.store.Join(roomID, c.out, username, role)
	if err != nil {
		c.sendError(roomID, ErrCodeInternalError, err.Error())
		return err
	}

	c.session = session
	c.roomID = roomID
	c.username = username
	c.role = role
	c.state = StateBound
	return nil
}

// SubmitVote records a vote for the bound identity
func (c *Connection) SubmitVote(ctx context.Context, cmd SubmitVote) (err error) {
	_, span := c.startSpan(ctx, "room.vote")
	defer func() { endSpan(span, err) }()

	if err := c.checkIdentity(cmd.RoomID, cmd.Username); err != nil {
		return err
	}
	return c.apply(c.session.SubmitVote(c.id, c.username, cmd.Vote))
}

// RevealVotes reveals the votes of the bound room
func (c *Connection) RevealVotes(ctx context.Context, cmd RoomAction) (err error) {
	_, span := c.startSpan(ctx, "room.reveal")
	defer func() { endSpan(span, err) }()

	if err := c.checkIdentity(cmd.RoomID, cmd.Username); err != nil {
		return err
	}
	return c.apply(c.session.RevealVotes(c.id, c.username))
}

// ResetVoting starts a new round in the bound room
func (c *Connection) ResetVoting(ctx context.Context, cmd RoomAction) (err error) {
	_, span := c.startSpan(ctx, "room.reset")
	defer func() { endSpan(span, err) }()

	if err := c.checkIdentity(cmd.RoomID, cmd.Username); err != nil {
		return err
	}
	return c.apply(c.session.ResetVoting(c.id, c.username))
}

// ChangeSequence switches the card sequence of the bound room
func (c *Connection) ChangeSequence(ctx context.Context, cmd ChangeSequence) (err error) {
	_, span := c.startSpan(ctx, "room.change_sequence")
	defer func() { endSpan(span, err) }()

	if err := c.checkIdentity(cmd.RoomID, cmd.Username); err != nil {
		return err
	}
	span.SetAttributes(attribute.String("room.sequence", cmd.Sequence))
	return c.apply(c.session.ChangeSequence(c.id, c.username, domain.SequenceID(cmd.Sequence)))
}

// Leave unbinds the connection; it may join again afterwards
func (c *Connection) Leave(ctx context.Context, cmd LeaveRoom) (err error) {
	_, span := c.startSpan(ctx, "room.leave")
	defer func() { endSpan(span, err) }()

	if err := c.checkIdentity(cmd.RoomID, cmd.Username); err != nil {
		return err
	}
	return c.leaveCurrent()
}

// Sync sends the current room snapshot to this connection only
func (c *Connection) Sync(ctx context.Context, cmd SyncRequest) (err error) {
	_, span := c.startSpan(ctx, "room.sync")
	defer func() { endSpan(span, err) }()

	if c.state != StateBound {
		return ErrNotJoined
	}
	roomID, err := domain.NormalizeRoomID(cmd.RoomID)
	if err != nil || roomID != c.roomID {
		return ErrIdentityMismatch
	}
	return c.apply(c.session.Sync(c.id))
}

// Disconnect handles transport loss exactly like an explicit leave and
// closes the handler
func (c *Connection) Disconnect(ctx context.Context) (err error) {
	_, span := c.startSpan(ctx, "room.disconnect")
	defer func() { endSpan(span, err) }()

	if c.state == StateBound {
		err = c.leaveCurrent()
	}
	c.state = StateClosed
	return err
}

// checkIdentity verifies that a message speaks for the bound identity
func (c *Connection) checkIdentity(roomID, username string) error {
	if c.state != StateBound {
		return ErrNotJoined
	}
	room, err := domain.NormalizeRoomID(roomID)
	if err != nil || room != c.roomID {
		c.logger.Debug("dropping message for another room", "roomCode", roomID)
		return ErrIdentityMismatch
	}
	name, err := domain.NormalizeUsername(username, 0)
	if err != nil || name != c.username {
		c.logger.Warn("dropping message with mismatched identity", "claimed", username, "username", c.username)
		return ErrIdentityMismatch
	}
	return nil
}

// apply turns a session error into the client-visible outcome
func (c *Connection) apply(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrParticipantNotFound), errors.Is(err, domain.ErrRoomClosed):
		// Binding went stale (identity taken over or room gone)
		c.unbind()
	case domain.IsAuthorization(err):
		c.sendError(c.roomID, ErrCodeNotAllowed, err.Error())
	case errors.Is(err, domain.ErrUnknownSequence):
		c.sendError(c.roomID, ErrCodeUnknownSequence, err.Error())
	case errors.Is(err, domain.ErrEmptyVote):
		c.sendError(c.roomID, ErrCodeInvalidMessage, err.Error())
	default:
		c.logger.Error("room action failed", "roomCode", c.roomID, "error", err)
		c.sendError(c.roomID, ErrCodeInternalError, "Internal server error")
	}
	return err
}

func (c *Connection) leaveCurrent() error {
	session, username := c.session, c.username
	c.unbind()
	return c.store.Leave(session, c.id, username)
}

func (c *Connection) unbind() {
	c.session = nil
	c.roomID = ""
	c.username = ""
	c.role = ""
	c.state = StateUnbound
}

// sendError sends an error_message to this connection only
func (c *Connection) sendError(roomID, code, message string) {
	event := domain.NewEvent(domain.EventError, roomID, &domain.ErrorPayload{
		Code:    code,
		Message: message,
	})
	if err := c.out.Send(event); err != nil {
		c.logger.Debug("failed to send error", "error", err)
	}
}

func (c *Connection) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("conn.id", c.id),
		attribute.String("conn.state", c.state.String()),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
