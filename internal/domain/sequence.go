package domain

import "sort"

// SequenceID identifies one of the fixed card sequences
type SequenceID string

const (
	SequenceFibonacci SequenceID = "fibonacci"
	SequenceModified  SequenceID = "modified"
	SequenceTShirt    SequenceID = "tshirt"
	SequencePowers    SequenceID = "powers"
)

// DefaultSequence is used for newly created rooms
const DefaultSequence = SequenceTShirt

// UnknownCard is the "no idea" card present in every sequence
const UnknownCard = "?"

var sequences = map[SequenceID][]string{
	SequenceFibonacci: {"1", "2", "3", "5", "8", "13", "21", "34", "55", "89", UnknownCard},
	SequenceModified:  {"0", "½", "1", "2", "3", "5", "8", "13", "20", "40", "100", UnknownCard},
	SequenceTShirt:    {"XS", "S", "M", "L", "XL", "XXL", UnknownCard},
	SequencePowers:    {"1", "2", "4", "8", "16", "32", "64", UnknownCard},
}

// IsValid returns true if id names a known sequence
func (id SequenceID) IsValid() bool {
	_, ok := sequences[id]
	return ok
}

// Cards returns a copy of the card labels for the sequence, nil if unknown
func (id SequenceID) Cards() []string {
	cards, ok := sequences[id]
	if !ok {
		return nil
	}
	out := make([]string, len(cards))
	copy(out, cards)
	return out
}

// HasCard reports whether card is one of the sequence labels
func (id SequenceID) HasCard(card string) bool {
	for _, c := range sequences[id] {
		if c == card {
			return true
		}
	}
	return false
}

// SequenceIDs returns all known sequence ids in name order
func SequenceIDs() []SequenceID {
	ids := make([]SequenceID, 0, len(sequences))
	for id := range sequences {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
