package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSequences(t *testing.T) {
	if !DefaultSequence.IsValid() {
		t.Fatalf("default sequence %q is not valid", DefaultSequence)
	}
	if SequenceID("dice").IsValid() {
		t.Fatal("unknown sequence reported valid")
	}
	if SequenceID("dice").Cards() != nil {
		t.Fatal("unknown sequence has cards")
	}

	want := []SequenceID{SequenceFibonacci, SequenceModified, SequencePowers, SequenceTShirt}
	if diff := cmp.Diff(want, SequenceIDs()); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}

	for _, id := range SequenceIDs() {
		cards := id.Cards()
		if cards[len(cards)-1] != UnknownCard {
			t.Fatalf("%s does not end with the unknown card", id)
		}
		if !id.HasCard(UnknownCard) {
			t.Fatalf("%s missing unknown card", id)
		}
	}
}

func TestCards_ReturnsCopy(t *testing.T) {
	cards := SequenceFibonacci.Cards()
	cards[0] = "changed"
	if SequenceFibonacci.Cards()[0] != "1" {
		t.Fatal("Cards exposed the shared slice")
	}
}

func TestParseRole(t *testing.T) {
	if ParseRole("observer") != RoleObserver {
		t.Fatal("observer not parsed")
	}
	for _, in := range []string{"player", "", "admin"} {
		if ParseRole(in) != RolePlayer {
			t.Fatalf("ParseRole(%q) should default to player", in)
		}
	}
}
