package domain

import (
	"strings"
	"time"
)

// Room is the authoritative state of one estimation session.
//
// Room is not safe for concurrent use; callers serialise access.
// Every mutating method validates before its first write, so a returned
// error always means the room is unchanged.
type Room struct {
	ID            string                  `json:"id"`
	Participants  map[string]*Participant `json:"participants"`
	Votes         map[string]string       `json:"votes"`
	VotesRevealed bool                    `json:"votesRevealed"`
	CardSequence  SequenceID              `json:"cardSequence"`
	CreatedAt     time.Time               `json:"createdAt"`

	distribution map[string]int
}

// NewRoom creates an empty room using the given sequence, falling back to
// DefaultSequence when it is unknown
func NewRoom(id string, sequence SequenceID) *Room {
	if !sequence.IsValid() {
		sequence = DefaultSequence
	}
	return &Room{
		ID:           id,
		Participants: make(map[string]*Participant),
		Votes:        make(map[string]string),
		CardSequence: sequence,
		CreatedAt:    time.Now(),
		distribution: make(map[string]int),
	}
}

// Join adds a participant, replacing any existing entry with the same name
func (r *Room) Join(username string, role Role) *Participant {
	delete(r.Votes, username)
	p := NewParticipant(username, role)
	r.Participants[username] = p
	r.refreshDistribution()
	return p
}

// Leave removes a participant and its vote. It reports whether the room is
// now empty and must be discarded.
func (r *Room) Leave(username string) (bool, error) {
	if _, ok := r.Participants[username]; !ok {
		return r.IsEmpty(), ErrParticipantNotFound
	}
	delete(r.Participants, username)
	delete(r.Votes, username)
	r.refreshDistribution()
	return r.IsEmpty(), nil
}

// SubmitVote records or overwrites a player's vote
func (r *Room) SubmitVote(username, value string) error {
	p, err := r.GetParticipant(username)
	if err != nil {
		return err
	}
	if p.Role.IsObserver() {
		return ErrObserverCannotVote
	}
	if strings.TrimSpace(value) == "" {
		return ErrEmptyVote
	}

	r.Votes[username] = value
	p.HasVoted = true
	p.Vote = &value
	r.refreshDistribution()
	return nil
}

// RevealVotes exposes all votes. Observers may always reveal; players only
// after voting.
func (r *Room) RevealVotes(username string) error {
	p, err := r.GetParticipant(username)
	if err != nil {
		return err
	}
	if !p.CountsAsVoted() {
		return ErrMustVoteBeforeReveal
	}

	r.VotesRevealed = true
	r.refreshDistribution()
	return nil
}

// ResetVoting starts a new round. Before reveal only observers may reset.
func (r *Room) ResetVoting(username string) error {
	p, err := r.GetParticipant(username)
	if err != nil {
		return err
	}
	if !r.VotesRevealed && !p.Role.IsObserver() {
		return ErrOnlyObserverCanReset
	}

	r.reset()
	return nil
}

// ChangeSequence switches the card sequence and resets the round
func (r *Room) ChangeSequence(username string, sequence SequenceID) error {
	if _, err := r.GetParticipant(username); err != nil {
		return err
	}
	if !sequence.IsValid() {
		return ErrUnknownSequence
	}

	r.CardSequence = sequence
	r.reset()
	return nil
}

func (r *Room) reset() {
	r.Votes = make(map[string]string)
	r.VotesRevealed = false
	r.distribution = make(map[string]int)
	for _, p := range r.Participants {
		p.ClearVote()
	}
}

// refreshDistribution keeps the distribution in step with votes while revealed
func (r *Room) refreshDistribution() {
	if !r.VotesRevealed {
		r.distribution = make(map[string]int)
		return
	}
	r.distribution = CountVotes(r.Votes)
}

// CountVotes groups vote values by literal value, skipping empty ones
func CountVotes(votes map[string]string) map[string]int {
	dist := make(map[string]int)
	for _, v := range votes {
		if v == "" {
			continue
		}
		dist[v]++
	}
	return dist
}

// VoteDistribution returns a copy of the distribution; empty until reveal
func (r *Room) VoteDistribution() map[string]int {
	out := make(map[string]int, len(r.distribution))
	for k, v := range r.distribution {
		out[k] = v
	}
	return out
}

// GetParticipant returns a participant by name
func (r *Room) GetParticipant(username string) (*Participant, error) {
	p, ok := r.Participants[username]
	if !ok {
		return nil, ErrParticipantNotFound
	}
	return p, nil
}

// IsEmpty returns true when nobody is left in the room
func (r *Room) IsEmpty() bool {
	return len(r.Participants) == 0
}

// AllVoted is true when there is at least one player and every player has voted
func (r *Room) AllVoted() bool {
	players := 0
	for _, p := range r.Participants {
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

// ParticipantsView returns the roster as seen by viewer. Vote values of
// other participants are withheld until reveal.
func (r *Room) ParticipantsView(viewer string) map[string]ParticipantInfo {
	out := make(map[string]ParticipantInfo, len(r.Participants))
	for name, p := range r.Participants {
		out[name] = p.ToInfo(r.VotesRevealed || name == viewer)
	}
	return out
}

// VotesView returns the votes visible to viewer
func (r *Room) VotesView(viewer string) map[string]string {
	out := make(map[string]string)
	if r.VotesRevealed {
		for name, v := range r.Votes {
			out[name] = v
		}
		return out
	}
	if v, ok := r.Votes[viewer]; ok {
		out[viewer] = v
	}
	return out
}

// Snapshot returns the full state as seen by viewer
func (r *Room) Snapshot(viewer string) *SyncStatePayload {
	return &SyncStatePayload{
		RoomID:           r.ID,
		Participants:     r.ParticipantsView(viewer),
		Votes:            r.VotesView(viewer),
		VotesRevealed:    r.VotesRevealed,
		CardSequence:     r.CardSequence,
		VoteDistribution: r.VoteDistribution(),
		AllVoted:         r.AllVoted(),
	}
}

// Summary computes reveal statistics, nil before reveal
func (r *Room) Summary() *VoteSummary {
	if !r.VotesRevealed {
		return nil
	}
	s := Summarize(r.Votes, r.CardSequence)
	return &s
}
