// Package client keeps a local replica of a room, reconciled only by events
// from the server, and a WebSocket client that feeds it.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"scrumpoker/internal/domain"
	"scrumpoker/internal/transport/ws"
)

var (
	ErrUnknownEvent  = errors.New("unknown event type")
	ErrCardNotInDeck = errors.New("card is not in the current sequence")
	ErrNoSelection   = errors.New("no card selected")
)

// Notice describes an applied event for presentation
type Notice struct {
	Type    ws.MessageType
	Actor   string
	Self    bool
	Message string
}

// State is a copy of the mirrored room state
type State struct {
	Username         string
	RoomID           string
	Role             domain.Role
	SelectedCard     string
	Connected        bool
	Participants     map[string]domain.ParticipantInfo
	Votes            map[string]string
	VotesRevealed    bool
	CardSequence     domain.SequenceID
	VoteDistribution map[string]int
	Summary          *domain.VoteSummary
	LastError        *domain.ErrorPayload
}

// Usernames returns the roster names in display order
func (s State) Usernames() []string {
	names := make([]string, 0, len(s.Participants))
	for name := range s.Participants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Mirror is a client-local replica of a room. Every server event replaces
// the parts of the state it carries; nothing is patched incrementally.
// The selected card is local until a vote_submitted echo confirms it.
type Mirror struct {
	mu    sync.RWMutex
	state State
}

// NewMirror creates an empty mirror for the given identity
func NewMirror(username, roomID string, role domain.Role) *Mirror {
	return &Mirror{
		state: State{
			Username:         username,
			RoomID:           roomID,
			Role:             role,
			Participants:     make(map[string]domain.ParticipantInfo),
			Votes:            make(map[string]string),
			CardSequence:     domain.DefaultSequence,
			VoteDistribution: make(map[string]int),
		},
	}
}

// State returns a deep copy of the current state
func (m *Mirror) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.state
	s.Participants = make(map[string]domain.ParticipantInfo, len(m.state.Participants))
	for k, v := range m.state.Participants {
		s.Participants[k] = v
	}
	s.Votes = copyVotes(m.state.Votes)
	s.VoteDistribution = make(map[string]int, len(m.state.VoteDistribution))
	for k, v := range m.state.VoteDistribution {
		s.VoteDistribution[k] = v
	}
	return s
}

// Identity returns the username, room and role the mirror joins as
func (m *Mirror) Identity() (username, roomID string, role domain.Role) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Username, m.state.RoomID, m.state.Role
}

// SetConnected records transport state
func (m *Mirror) SetConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Connected = connected
}

// Select picks a card locally without telling the server
func (m *Mirror) Select(card string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Role.IsObserver() {
		return domain.ErrObserverCannotVote
	}
	if !m.state.CardSequence.HasCard(card) {
		return fmt.Errorf("%w: %q", ErrCardNotInDeck, card)
	}
	m.state.SelectedCard = card
	return nil
}

// Selection returns the locally selected card
func (m *Mirror) Selection() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state.SelectedCard == "" {
		return "", ErrNoSelection
	}
	return m.state.SelectedCard, nil
}

// AllVoted reports whether every player in the mirrored roster has voted
func (m *Mirror) AllVoted() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	players := 0
	for _, p := range m.state.Participants {
		if p.Role.IsObserver() {
			continue
		}
		players++
		if !p.HasVoted {
			return false
		}
	}
	return players > 0
}

// Apply reconciles the mirror with one server message
func (m *Mirror) Apply(msg ws.InboundServerMessage) (Notice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	notice := Notice{Type: msg.Type}

	switch msg.Type {
	case ws.MsgSyncState:
		var p domain.SyncStatePayload
		if err := decode(msg.Payload, &p); err != nil {
			return notice, err
		}
		m.replaceParticipants(p.Participants)
		m.state.Votes = copyVotes(p.Votes)
		m.state.VotesRevealed = p.VotesRevealed
		if p.CardSequence.IsValid() {
			m.state.CardSequence = p.CardSequence
		}
		m.setDistribution(p.VoteDistribution)
		m.setSummary(nil)
		if own, ok := m.state.Votes[m.state.Username]; ok {
			m.state.SelectedCard = own
		} else if !m.state.VotesRevealed {
			m.state.SelectedCard = ""
		}
		notice.Message = "State synchronised"

	case ws.MsgUserJoined:
		var p domain.UserJoinedPayload
		if err := decode(msg.Payload, &p); err != nil {
			return notice, err
		}
		m.replaceParticipants(p.Participants)
		m.replaceVotes(p.Votes, p.Username)
		m.setDistribution(p.VoteDistribution)
		m.setSummary(p.Summary)
		m.describe(&notice, p.Username, "joined the session as "+string(domain.ParseRole(string(p.Role))))

	case ws.MsgUserLeft:
		var p domain.UserLeftPayload
		if err := decode(msg.Payload, &p); err != nil {
			return notice, err
		}
		m.replaceParticipants(p.Participants)
		m.replaceVotes(p.Votes, p.Username)
		m.setDistribution(p.VoteDistribution)
		m.setSummary(p.Summary)
		m.describe(&notice, p.Username, "left the session")

	case ws.MsgVoteSubmitted:
		var p domain.VoteSubmittedPayload
		if err := decode(msg.Payload, &p); err != nil {
			return notice, err
		}
		m.replaceParticipants(p.Participants)
		if p.Votes != nil {
			m.state.Votes = copyVotes(p.Votes)
		}
		if m.state.VotesRevealed {
			m.state.VoteDistribution = domain.CountVotes(m.state.Votes)
			m.setSummary(nil)
		}
		m.describe(&notice, p.Username, "voted")

	case ws.MsgVotesRevealed:
		var p domain.VotesRevealedPayload
		if err := decode(msg.Payload, &p); err != nil {
			return notice, err
		}
		m.state.VotesRevealed = true
		m.state.Votes = copyVotes(p.Votes)
		m.setDistribution(p.VoteDistribution)
		m.setSummary(p.Summary)
		m.describe(&notice, p.RevealedBy, "revealed the votes")

	case ws.MsgVotingReset:
		var p domain.VotingResetPayload
		if err := decode(msg.Payload, &p); err != nil {
			return notice, err
		}
		m.resetRound()
		m.replaceParticipants(p.Participants)
		m.describe(&notice, p.ResetBy, "reset the voting")

	case ws.MsgSequenceChanged:
		var p domain.SequenceChangedPayload
		if err := decode(msg.Payload, &p); err != nil {
			return notice, err
		}
		if !p.CardSequence.IsValid() {
			return notice, fmt.Errorf("%w: %q", domain.ErrUnknownSequence, p.CardSequence)
		}
		m.state.CardSequence = p.CardSequence
		m.resetRound()
		if p.Participants != nil {
			m.replaceParticipants(p.Participants)
		}
		m.describe(&notice, p.ChangedBy, "changed card sequence to "+string(p.CardSequence))

	case ws.MsgErrorMessage:
		var p domain.ErrorPayload
		if err := decode(msg.Payload, &p); err != nil {
			return notice, err
		}
		m.state.LastError = &p
		notice.Message = p.Message

	case ws.MsgPong:

	default:
		return notice, fmt.Errorf("%w: %s", ErrUnknownEvent, msg.Type)
	}

	return notice, nil
}

// describe fills the notice from the actor's point of view (caller holds lock)
func (m *Mirror) describe(n *Notice, actor, action string) {
	n.Actor = actor
	n.Self = actor == m.state.Username
	if n.Self {
		n.Message = "You " + action
		return
	}
	n.Message = actor + " " + action
}

func (m *Mirror) replaceParticipants(participants map[string]domain.ParticipantInfo) {
	out := make(map[string]domain.ParticipantInfo, len(participants))
	for k, v := range participants {
		out[k] = v
	}
	m.state.Participants = out
}

// setDistribution takes the server distribution, computing it locally when
// the server sent none for a revealed round
func (m *Mirror) setDistribution(dist map[string]int) {
	switch {
	case !m.state.VotesRevealed:
		m.state.VoteDistribution = make(map[string]int)
	case len(dist) == 0:
		m.state.VoteDistribution = domain.CountVotes(m.state.Votes)
	default:
		out := make(map[string]int, len(dist))
		for k, v := range dist {
			out[k] = v
		}
		m.state.VoteDistribution = out
	}
}

// replaceVotes takes the server's vote view. Without one, it drops the votes
// of anyone no longer present and of actor, whose rejoin cleared their vote.
func (m *Mirror) replaceVotes(votes map[string]string, actor string) {
	if votes != nil {
		m.state.Votes = copyVotes(votes)
		return
	}
	delete(m.state.Votes, actor)
	for name := range m.state.Votes {
		if _, ok := m.state.Participants[name]; !ok {
			delete(m.state.Votes, name)
		}
	}
}

// setSummary takes the server summary, computing it locally from the votes
// when the server sent none for a revealed round
func (m *Mirror) setSummary(summary *domain.VoteSummary) {
	switch {
	case !m.state.VotesRevealed:
		m.state.Summary = nil
	case summary != nil:
		sum := *summary
		m.state.Summary = &sum
	default:
		sum := domain.Summarize(m.state.Votes, m.state.CardSequence)
		m.state.Summary = &sum
	}
}

func (m *Mirror) resetRound() {
	m.state.Votes = make(map[string]string)
	m.state.VotesRevealed = false
	m.state.VoteDistribution = make(map[string]int)
	m.state.SelectedCard = ""
	m.state.Summary = nil
	for name, p := range m.state.Participants {
		p.HasVoted = false
		p.Vote = nil
		m.state.Participants[name] = p
	}
}

func copyVotes(votes map[string]string) map[string]string {
	out := make(map[string]string, len(votes))
	for k, v := range votes {
		out[k] = v
	}
	return out
}

func decode(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return errors.New("empty payload")
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
