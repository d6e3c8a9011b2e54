package ws

import (
	"encoding/json"
	"errors"
	"time"

	"scrumpoker/internal/domain"
)

// MessageType represents the type of WebSocket message
type MessageType string

// Client → Server message types
const (
	MsgJoinRoom        MessageType = "join_room"
	MsgVoteSubmitted   MessageType = "vote_submitted"
	MsgRevealVotes     MessageType = "reveal_votes"
	MsgResetVoting     MessageType = "reset_voting"
	MsgSequenceChanged MessageType = "sequence_changed"
	MsgLeaveRoom       MessageType = "leave_room"
	MsgSyncRequest     MessageType = "sync_request"
	MsgPing            MessageType = "ping"
)

// Server → Client message types
const (
	MsgSyncState     = MessageType(domain.EventSyncState)
	MsgUserJoined    = MessageType(domain.EventUserJoined)
	MsgVotesRevealed = MessageType(domain.EventVotesRevealed)
	MsgVotingReset   = MessageType(domain.EventVotingReset)
	MsgUserLeft      = MessageType(domain.EventUserLeft)
	MsgErrorMessage  = MessageType(domain.EventError)
	MsgPong          = MessageType(domain.EventPong)
)

// ClientMessage represents a message from client to server
type ClientMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewClientMessage encodes payload into a client message
func NewClientMessage(msgType MessageType, payload any) (*ClientMessage, error) {
	msg := &ClientMessage{Type: msgType}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Payload = data
	}
	return msg, nil
}

// ServerMessage represents a message from server to client
type ServerMessage struct {
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// NewServerMessage creates a server message from a room event
func NewServerMessage(event *domain.RoomEvent) *ServerMessage {
	return &ServerMessage{
		Type:      MessageType(event.Type),
		Payload:   event.Payload,
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
	}
}

// InboundServerMessage is a server message as decoded by a client
type InboundServerMessage struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp string          `json:"timestamp"`
}

var errInvalidPayload = errors.New("invalid payload")
