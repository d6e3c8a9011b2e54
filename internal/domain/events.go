package domain

import "time"

// EventType is the wire name of a server to client event
type EventType string

const (
	EventSyncState       EventType = "sync_state"
	EventUserJoined      EventType = "user_joined"
	EventVoteSubmitted   EventType = "vote_submitted"
	EventVotesRevealed   EventType = "votes_revealed"
	EventVotingReset     EventType = "voting_reset"
	EventSequenceChanged EventType = "sequence_changed"
	EventUserLeft        EventType = "user_left"
	EventError           EventType = "error_message"
	EventPong            EventType = "pong"
)

// RoomEvent is an event addressed to one connection
type RoomEvent struct {
	Type      EventType `json:"type"`
	RoomID    string    `json:"roomId"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent creates a new room event
func NewEvent(eventType EventType, roomID string, payload any) *RoomEvent {
	return &RoomEvent{
		Type:      eventType,
		RoomID:    roomID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// Payload types for different events

// SyncStatePayload is the full room snapshot for one viewer
type SyncStatePayload struct {
	RoomID           string                     `json:"roomId"`
	Participants     map[string]ParticipantInfo `json:"participants"`
	Votes            map[string]string          `json:"votes"`
	VotesRevealed    bool                       `json:"votesRevealed"`
	CardSequence     SequenceID                 `json:"cardSequence"`
	VoteDistribution map[string]int             `json:"voteDistribution"`
	AllVoted         bool                       `json:"allVoted"`
}

// UserJoinedPayload is broadcast when someone joins. A rejoin drops the
// joiner's vote, so the visible votes and distribution travel with it.
type UserJoinedPayload struct {
	Username         string                     `json:"username"`
	Role             Role                       `json:"role"`
	Participants     map[string]ParticipantInfo `json:"participants"`
	Votes            map[string]string          `json:"votes"`
	VoteDistribution map[string]int             `json:"voteDistribution"`
	Summary          *VoteSummary               `json:"summary,omitempty"`
}

// VoteSubmittedPayload is broadcast when a vote is recorded
type VoteSubmittedPayload struct {
	Username     string                     `json:"username"`
	Participants map[string]ParticipantInfo `json:"participants"`
	Votes        map[string]string          `json:"votes"`
}

// VotesRevealedPayload is broadcast on reveal
type VotesRevealedPayload struct {
	RevealedBy       string            `json:"revealedBy"`
	Votes            map[string]string `json:"votes"`
	VoteDistribution map[string]int    `json:"voteDistribution"`
	Summary          *VoteSummary      `json:"summary,omitempty"`
}

// VotingResetPayload is broadcast when a round is reset
type VotingResetPayload struct {
	ResetBy      string                     `json:"resetBy"`
	Participants map[string]ParticipantInfo `json:"participants"`
}

// SequenceChangedPayload is broadcast when the card sequence changes
type SequenceChangedPayload struct {
	CardSequence SequenceID                 `json:"cardSequence"`
	ChangedBy    string                     `json:"changedBy"`
	Participants map[string]ParticipantInfo `json:"participants"`
}

// UserLeftPayload is broadcast when someone leaves
type UserLeftPayload struct {
	Username         string                     `json:"username"`
	Participants     map[string]ParticipantInfo `json:"participants"`
	Votes            map[string]string          `json:"votes"`
	VoteDistribution map[string]int             `json:"voteDistribution"`
	Summary          *VoteSummary               `json:"summary,omitempty"`
}

// ErrorPayload is sent to a single connection when its action fails
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
