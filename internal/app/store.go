package app

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"scrumpoker/internal/domain"
)

const (
	// DefaultRoomCodeLength is the default length for room codes
	DefaultRoomCodeLength = 6
)

// RoomCodeChars are characters used for room codes (no ambiguous chars)
const RoomCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// StoreConfig configures a RoomStore
type StoreConfig struct {
	RoomCodeLength  int
	DefaultSequence domain.SequenceID
}

// RoomStore manages all active room sessions. Rooms are created lazily on
// first join and removed as soon as their last participant leaves.
type RoomStore struct {
	sessions        map[string]*RoomSession
	mu              sync.RWMutex
	roomCodeLength  int
	defaultSequence domain.SequenceID
	logger          *slog.Logger
}

// NewRoomStore creates an empty room store
func NewRoomStore(cfg StoreConfig, logger *slog.Logger) *RoomStore {
	if cfg.RoomCodeLength <= 0 {
		cfg.RoomCodeLength = DefaultRoomCodeLength
	}
	if !cfg.DefaultSequence.IsValid() {
		cfg.DefaultSequence = domain.DefaultSequence
	}
	return &RoomStore{
		sessions:        make(map[string]*RoomSession),
		roomCodeLength:  cfg.RoomCodeLength,
		defaultSequence: cfg.DefaultSequence,
		logger:          logger,
	}
}

// GetOrCreate returns the session for roomID, creating an empty room with
// default settings when none exists
func (st *RoomStore) GetOrCreate(roomID string) *RoomSession {
	st.mu.RLock()
	session, ok := st.sessions[roomID]
	st.mu.RUnlock()
	if ok {
		return session
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if session, ok := st.sessions[roomID]; ok {
		return session
	}
	session = NewRoomSession(domain.NewRoom(roomID, st.defaultSequence), st.logger)
	st.sessions[roomID] = session
	st.logger.Info("room created", "roomCode", roomID)
	return session
}

// Get returns a session by room code
func (st *RoomStore) Get(roomID string) (*RoomSession, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	session, ok := st.sessions[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return session, nil
}

// Remove deletes a room and closes its session. Removing an absent room is a no-op.
func (st *RoomStore) Remove(roomID string) {
	st.mu.Lock()
	session, ok := st.sessions[roomID]
	if ok {
		delete(st.sessions, roomID)
	}
	st.mu.Unlock()

	if ok {
		session.Close()
		st.logger.Info("room deleted", "roomCode", roomID)
	}
}

// removeSession deletes roomID only while it still maps to session, so a
// room recreated after the check is left alone
func (st *RoomStore) removeSession(roomID string, session *RoomSession) {
	st.mu.Lock()
	current, ok := st.sessions[roomID]
	if ok && current == session {
		delete(st.sessions, roomID)
	}
	st.mu.Unlock()

	session.Close()
	if ok && current == session {
		st.logger.Info("room deleted", "roomCode", roomID)
	}
}

// IsEmpty reports whether roomID has no participants. Absent rooms are empty.
func (st *RoomStore) IsEmpty(roomID string) bool {
	session, err := st.Get(roomID)
	if err != nil {
		return true
	}
	return session.IsEmpty()
}

// Join adds a participant to roomID, creating the room if needed
func (st *RoomStore) Join(roomID string, client ClientConnection, username string, role domain.Role) (*RoomSession, error) {
	for {
		session := st.GetOrCreate(roomID)
		err := session.Join(client, username, role)
		if errors.Is(err, domain.ErrRoomClosed) {
			// Lost a race with the last participant leaving
			st.removeSession(roomID, session)
			continue
		}
		if err != nil {
			return nil, err
		}
		return session, nil
	}
}

// Leave removes the participant bound to connID and drops the room when it empties
func (st *RoomStore) Leave(session *RoomSession, connID, username string) error {
	empty, err := session.Leave(connID, username)
	if empty {
		st.removeSession(session.GetRoomCode(), session)
	}
	return err
}

// Count returns the number of active rooms
func (st *RoomStore) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// ParticipantCount returns the total number of participants across all rooms
func (st *RoomStore) ParticipantCount() int {
	st.mu.RLock()
	sessions := make([]*RoomSession, 0, len(st.sessions))
	for _, session := range st.sessions {
		sessions = append(sessions, session)
	}
	st.mu.RUnlock()

	total := 0
	for _, session := range sessions {
		total += session.GetParticipantCount()
	}
	return total
}

// NewRoomCode returns a random room code not currently in use. The room
// itself is only created when someone joins it.
func (st *RoomStore) NewRoomCode() (string, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	for attempts := 0; attempts < 10; attempts++ {
		code, err := generateRoomCode(st.roomCodeLength)
		if err != nil {
			return "", err
		}
		if _, exists := st.sessions[code]; !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique room code")
}

// Close shuts down the store and all sessions
func (st *RoomStore) Close() {
	st.mu.Lock()
	sessions := st.sessions
	st.sessions = make(map[string]*RoomSession)
	st.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
}

// generateRoomCode generates a random room code
func generateRoomCode(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}

	code := make([]byte, length)
	for i := range code {
		code[i] = RoomCodeChars[int(b[i])%len(RoomCodeChars)]
	}
	return string(code), nil
}
