package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"scrumpoker/internal/app"
	"scrumpoker/internal/domain"
)

// Response is a standard API response
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreateRoomResponse is the response for room code allocation
type CreateRoomResponse struct {
	RoomCode   string `json:"roomCode"`
	InviteLink string `json:"inviteLink"`
}

// RoomExistsResponse is the response for checking if room exists
type RoomExistsResponse struct {
	Exists bool `json:"exists"`
}

// SequenceInfo describes one card sequence
type SequenceInfo struct {
	ID      domain.SequenceID `json:"id"`
	Cards   []string          `json:"cards"`
	Default bool              `json:"default"`
}

// HealthResponse is the response for health check
type HealthResponse struct {
	Status string `json:"status"`
}

// StatsResponse is the response for stats endpoint
type StatsResponse struct {
	ActiveRooms       int `json:"activeRooms"`
	TotalParticipants int `json:"totalParticipants"`
}

// handleCreateRoom handles POST /api/rooms. It hands out an unused code;
// the room comes into existence when the first participant joins.
func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	code, err := s.store.NewRoomCode()
	if err != nil {
		s.logger.Error("room code allocation failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "CREATION_FAILED", "Failed to create room")
		return
	}
	s.writeData(w, http.StatusCreated, &CreateRoomResponse{
		RoomCode:   code,
		InviteLink: inviteLink(r, code),
	})
}

// handleGetRoom handles GET /api/rooms/{roomCode}
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	code, ok := s.roomCode(w, r)
	if !ok {
		return
	}

	session, err := s.store.Get(code)
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		s.writeError(w, http.StatusNotFound, "ROOM_NOT_FOUND", "Room not found")
	case err != nil:
		s.logger.Error("room lookup failed", "roomCode", code, "error", err)
		s.writeError(w, http.StatusInternalServerError, app.ErrCodeInternalError, "Internal server error")
	default:
		s.writeData(w, http.StatusOK, session.GetInfo())
	}
}

// handleRoomExists handles GET /api/rooms/{roomCode}/exists
func (s *Server) handleRoomExists(w http.ResponseWriter, r *http.Request) {
	if code, ok := s.roomCode(w, r); ok {
		s.writeData(w, http.StatusOK, &RoomExistsResponse{Exists: !s.store.IsEmpty(code)})
	}
}

// handleSequences handles GET /api/sequences
func (s *Server) handleSequences(w http.ResponseWriter, _ *http.Request) {
	ids := domain.SequenceIDs()
	sequences := make([]SequenceInfo, len(ids))
	for i, id := range ids {
		sequences[i] = SequenceInfo{
			ID:      id,
			Cards:   id.Cards(),
			Default: string(id) == s.config.Room.DefaultSequence,
		}
	}
	s.writeData(w, http.StatusOK, sequences)
}

// handleHealth handles GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeData(w, http.StatusOK, &HealthResponse{Status: "ok"})
}

// handleStats handles GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.writeData(w, http.StatusOK, &StatsResponse{
		ActiveRooms:       s.store.Count(),
		TotalParticipants: s.store.ParticipantCount(),
	})
}

// roomCode reads and normalises the {roomCode} path value, answering 400
// when it is unusable
func (s *Server) roomCode(w http.ResponseWriter, r *http.Request) (string, bool) {
	code, err := domain.NormalizeRoomID(r.PathValue("roomCode"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_ROOM_CODE", err.Error())
		return "", false
	}
	return code, true
}

// inviteLink points at the room on the host the request came in on
func inviteLink(r *http.Request, code string) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/?room=" + code
}

func (s *Server) writeData(w http.ResponseWriter, status int, data any) {
	s.writeJSON(w, status, &Response{Success: true, Data: data})
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, &Response{Error: &ErrorInfo{Code: code, Message: message}})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, resp *Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Debug("response write failed", "error", err)
	}
}
