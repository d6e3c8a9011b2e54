package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func ptr(f float64) *float64 { return &f }

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		votes    map[string]string
		sequence SequenceID
		want     VoteSummary
	}{
		{
			name:     "no votes",
			votes:    map[string]string{},
			sequence: SequenceFibonacci,
			want:     VoteSummary{},
		},
		{
			name:     "consensus",
			votes:    map[string]string{"a": "5", "b": "5"},
			sequence: SequenceFibonacci,
			want:     VoteSummary{Average: ptr(5), Median: ptr(5), Mode: "5", Consensus: true, Counted: 2},
		},
		{
			name:     "unknown card ignored",
			votes:    map[string]string{"a": "3", "b": "8", "c": "?"},
			sequence: SequenceFibonacci,
			want:     VoteSummary{Average: ptr(5.5), Median: ptr(5.5), Mode: "3", Counted: 2},
		},
		{
			name:     "average rounded to one decimal",
			votes:    map[string]string{"a": "1", "b": "2", "c": "2"},
			sequence: SequencePowers,
			want:     VoteSummary{Average: ptr(1.7), Median: ptr(2), Mode: "2", Counted: 3},
		},
		{
			name:     "half card",
			votes:    map[string]string{"a": "½", "b": "1", "c": "0"},
			sequence: SequenceModified,
			want:     VoteSummary{Average: ptr(0.5), Median: ptr(0.5), Mode: "0", Counted: 3},
		},
		{
			name:     "tshirt has no numbers",
			votes:    map[string]string{"a": "M", "b": "L", "c": "L"},
			sequence: SequenceTShirt,
			want:     VoteSummary{Mode: "L", Counted: 3},
		},
		{
			name:     "tie broken by card order",
			votes:    map[string]string{"a": "XL", "b": "S"},
			sequence: SequenceTShirt,
			want:     VoteSummary{Mode: "S", Counted: 2},
		},
		{
			name:     "only unknown cards",
			votes:    map[string]string{"a": "?", "b": "?"},
			sequence: SequenceFibonacci,
			want:     VoteSummary{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.votes, tt.sequence)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("summary mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
