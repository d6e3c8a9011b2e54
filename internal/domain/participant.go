package domain

import "time"

// Participant represents one member of a room
type Participant struct {
	Name     string    `json:"name"`
	Role     Role      `json:"role"`
	HasVoted bool      `json:"hasVoted"`
	Vote     *string   `json:"vote"`
	JoinedAt time.Time `json:"joinedAt"`
}

// NewParticipant creates a participant with no vote
func NewParticipant(name string, role Role) *Participant {
	return &Participant{
		Name:     name,
		Role:     role,
		JoinedAt: time.Now(),
	}
}

// CountsAsVoted is true for observers and for players who have voted
func (p *Participant) CountsAsVoted() bool {
	return p.Role.IsObserver() || p.HasVoted
}

// ClearVote resets the participant for a new round
func (p *Participant) ClearVote() {
	p.HasVoted = false
	p.Vote = nil
}

// ParticipantInfo is the wire view of a participant
type ParticipantInfo struct {
	Name     string  `json:"name"`
	Role     Role    `json:"role"`
	HasVoted bool    `json:"hasVoted"`
	Vote     *string `json:"vote"`
}

// ToInfo converts a Participant to ParticipantInfo, hiding the vote unless showVote is set
func (p *Participant) ToInfo(showVote bool) ParticipantInfo {
	info := ParticipantInfo{
		Name:     p.Name,
		Role:     p.Role,
		HasVoted: p.HasVoted,
	}
	if showVote && p.Vote != nil {
		v := *p.Vote
		info.Vote = &v
	}
	return info
}
