package app

import (
	"log/slog"
	"sync"
	"time"

	"scrumpoker/internal/domain"
)

// ClientConnection represents a connected client
type ClientConnection interface {
	Send(event *domain.RoomEvent) error
	GetConnID() string
	Close() error
}

// delivery is one event addressed to one connection
type delivery struct {
	client ClientConnection
	event  *domain.RoomEvent
}

// RoomSession wraps a room with concurrency control and client management.
//
// All room mutations and the rendering of the events they cause happen under
// mu, and rendered events are queued in that same order, so every client of
// the room observes events in apply order.
type RoomSession struct {
	room    *domain.Room
	mu      sync.Mutex
	clients map[string]ClientConnection // connID -> client
	members map[string]string           // connID -> username
	owners  map[string]string           // username -> connID
	closed  bool
	logger  *slog.Logger

	// Event channel for broadcasting
	events    chan []delivery
	done      chan struct{}
	closeOnce sync.Once
}

// NewRoomSession creates a new room session
func NewRoomSession(room *domain.Room, logger *slog.Logger) *RoomSession {
	session := &RoomSession{
		room:    room,
		clients: make(map[string]ClientConnection),
		members: make(map[string]string),
		owners:  make(map[string]string),
		logger:  logger.With("roomCode", room.ID),
		events:  make(chan []delivery, 256),
		done:    make(chan struct{}),
	}

	// Start event broadcaster
	go session.eventLoop()

	return session
}

// GetRoomCode returns the room code
func (s *RoomSession) GetRoomCode() string {
	return s.room.ID
}

// GetParticipantCount returns the number of participants
func (s *RoomSession) GetParticipantCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.room.Participants)
}

// IsEmpty returns true if nobody is in the room
func (s *RoomSession) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room.IsEmpty()
}

// RoomInfo is a public summary of a room
type RoomInfo struct {
	RoomCode         string            `json:"roomCode"`
	ParticipantCount int               `json:"participantCount"`
	CardSequence     domain.SequenceID `json:"cardSequence"`
	VotesRevealed    bool              `json:"votesRevealed"`
	CreatedAt        time.Time         `json:"createdAt"`
}

// GetInfo returns a public summary of the room
func (s *RoomSession) GetInfo() RoomInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RoomInfo{
		RoomCode:         s.room.ID,
		ParticipantCount: len(s.room.Participants),
		CardSequence:     s.room.CardSequence,
		VotesRevealed:    s.room.VotesRevealed,
		CreatedAt:        s.room.CreatedAt,
	}
}

// Snapshot returns the room state as seen by viewer
func (s *RoomSession) Snapshot(viewer string) *domain.SyncStatePayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room.Snapshot(viewer)
}

// Join binds client to username and adds the participant. A different
// connection already holding username is unbound and told so.
func (s *RoomSession) Join(client ClientConnection, username string, role domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrRoomClosed
	}

	connID := client.GetConnID()
	batch := make([]delivery, 0, len(s.clients)+2)

	if prevID, ok := s.owners[username]; ok && prevID != connID {
		if prev, ok := s.clients[prevID]; ok {
			batch = append(batch, delivery{prev, domain.NewEvent(domain.EventError, s.room.ID, &domain.ErrorPayload{
				Code:    ErrCodeSessionReplaced,
				Message: "Another connection joined as " + username,
			})})
		}
		delete(s.clients, prevID)
		delete(s.members, prevID)
		s.logger.Info("identity taken over", "username", username, "connID", connID, "previousConnID", prevID)
	}
	// A connection holds one identity per room; switching names leaves first
	if prevName, ok := s.members[connID]; ok && prevName != username {
		delete(s.owners, prevName)
		if _, err := s.room.Leave(prevName); err != nil {
			s.logger.Warn("previous identity already gone", "username", prevName, "connID", connID, "error", err)
		} else {
			batch = append(batch, s.renderLocked(func(viewer string) any {
				return s.userLeftLocked(prevName, viewer)
			}, domain.EventUserLeft)...)
		}
	}

	s.room.Join(username, role)
	s.clients[connID] = client
	s.members[connID] = username
	s.owners[username] = connID

	// Joiner gets the snapshot first, then everyone gets the roster
	batch = append(batch, delivery{client, domain.NewEvent(domain.EventSyncState, s.room.ID, s.room.Snapshot(username))})
	batch = append(batch, s.renderLocked(func(viewer string) any {
		return &domain.UserJoinedPayload{
			Username:         username,
			Role:             role,
			Participants:     s.room.ParticipantsView(viewer),
			Votes:            s.room.VotesView(viewer),
			VoteDistribution: s.room.VoteDistribution(),
			Summary:          s.room.Summary(),
		}
	}, domain.EventUserJoined)...)
	s.queue(batch)

	s.logger.Info("participant joined", "username", username, "role", role, "connID", connID)
	return nil
}

// Leave removes the participant bound to connID. It reports whether the room
// became empty; an empty session is closed and must be dropped from the store.
func (s *RoomSession) Leave(connID, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.memberLocked(connID, username); err != nil {
		return s.room.IsEmpty(), err
	}

	delete(s.clients, connID)
	delete(s.members, connID)
	delete(s.owners, username)

	empty, err := s.room.Leave(username)
	if err != nil {
		return empty, err
	}
	s.logger.Info("participant left", "username", username, "connID", connID)

	if empty {
		s.closed = true
		return true, nil
	}

	s.broadcastLocked(domain.EventUserLeft, func(viewer string) any {
		return s.userLeftLocked(username, viewer)
	})
	return false, nil
}

// userLeftLocked renders a departure for viewer (caller must hold lock)
func (s *RoomSession) userLeftLocked(username, viewer string) *domain.UserLeftPayload {
	return &domain.UserLeftPayload{
		Username:         username,
		Participants:     s.room.ParticipantsView(viewer),
		Votes:            s.room.VotesView(viewer),
		VoteDistribution: s.room.VoteDistribution(),
		Summary:          s.room.Summary(),
	}
}

// SubmitVote records a vote for the participant bound to connID
func (s *RoomSession) SubmitVote(connID, username, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.memberLocked(connID, username); err != nil {
		return err
	}
	if err := s.room.SubmitVote(username, value); err != nil {
		return err
	}

	s.broadcastLocked(domain.EventVoteSubmitted, func(viewer string) any {
		return &domain.VoteSubmittedPayload{
			Username:     username,
			Participants: s.room.ParticipantsView(viewer),
			Votes:        s.room.VotesView(viewer),
		}
	})
	return nil
}

// RevealVotes reveals all votes on behalf of the participant bound to connID
func (s *RoomSession) RevealVotes(connID, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.memberLocked(connID, username); err != nil {
		return err
	}
	if err := s.room.RevealVotes(username); err != nil {
		return err
	}

	s.broadcastLocked(domain.EventVotesRevealed, func(viewer string) any {
		return &domain.VotesRevealedPayload{
			RevealedBy:       username,
			Votes:            s.room.VotesView(viewer),
			VoteDistribution: s.room.VoteDistribution(),
			Summary:          s.room.Summary(),
		}
	})
	s.logger.Info("votes revealed", "username", username, "votes", len(s.room.Votes))
	return nil
}

// ResetVoting starts a new round on behalf of the participant bound to connID
func (s *RoomSession) ResetVoting(connID, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.memberLocked(connID, username); err != nil {
		return err
	}
	if err := s.room.ResetVoting(username); err != nil {
		return err
	}

	s.broadcastLocked(domain.EventVotingReset, func(viewer string) any {
		return &domain.VotingResetPayload{
			ResetBy:      username,
			Participants: s.room.ParticipantsView(viewer),
		}
	})
	return nil
}

// ChangeSequence switches the card sequence, which also resets the round
func (s *RoomSession) ChangeSequence(connID, username string, sequence domain.SequenceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.memberLocked(connID, username); err != nil {
		return err
	}
	if err := s.room.ChangeSequence(username, sequence); err != nil {
		return err
	}

	s.broadcastLocked(domain.EventSequenceChanged, func(viewer string) any {
		return &domain.SequenceChangedPayload{
			CardSequence: sequence,
			ChangedBy:    username,
			Participants: s.room.ParticipantsView(viewer),
		}
	})
	s.logger.Info("card sequence changed", "username", username, "sequence", sequence)
	return nil
}

// Sync sends the current snapshot to the connection only
func (s *RoomSession) Sync(connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username, ok := s.members[connID]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	client := s.clients[connID]
	s.queue([]delivery{{client, domain.NewEvent(domain.EventSyncState, s.room.ID, s.room.Snapshot(username))}})
	return nil
}

// memberLocked checks that connID currently holds username (caller must hold lock)
func (s *RoomSession) memberLocked(connID, username string) error {
	if s.closed {
		return domain.ErrRoomClosed
	}
	if name, ok := s.members[connID]; !ok || name != username {
		return domain.ErrParticipantNotFound
	}
	return nil
}

// broadcastLocked renders and queues an event for every bound client (caller must hold lock)
func (s *RoomSession) broadcastLocked(eventType domain.EventType, render func(viewer string) any) {
	s.queue(s.renderLocked(render, eventType))
}

// renderLocked builds one event per bound client using that client's view
func (s *RoomSession) renderLocked(render func(viewer string) any, eventType domain.EventType) []delivery {
	batch := make([]delivery, 0, len(s.clients))
	for connID, client := range s.clients {
		batch = append(batch, delivery{client, domain.NewEvent(eventType, s.room.ID, render(s.members[connID]))})
	}
	return batch
}

// queue adds a batch of deliveries to the broadcast queue
func (s *RoomSession) queue(batch []delivery) {
	if len(batch) == 0 {
		return
	}
	select {
	case s.events <- batch:
	case <-s.done:
	}
}

// eventLoop processes events and delivers them to clients
func (s *RoomSession) eventLoop() {
	for {
		select {
		case <-s.done:
			return
		case batch := <-s.events:
			for _, d := range batch {
				if err := d.client.Send(d.event); err != nil {
					s.logger.Debug("failed to send to client", "connID", d.client.GetConnID(), "error", err)
				}
			}
		}
	}
}

// Close shuts down the session and its client connections
func (s *RoomSession) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})

	s.mu.Lock()
	s.closed = true
	clients := s.clients
	s.clients = make(map[string]ClientConnection)
	s.members = make(map[string]string)
	s.owners = make(map[string]string)
	s.mu.Unlock()

	for _, client := range clients {
		client.Close()
	}
}
