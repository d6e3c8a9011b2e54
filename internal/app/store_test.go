package app

import (
	"errors"
	"strings"
	"testing"

	"scrumpoker/internal/domain"
)

func TestStore_GetOrCreate(t *testing.T) {
	st := newTestStore(t)

	first := st.GetOrCreate("ABC123")
	second := st.GetOrCreate("ABC123")
	if first != second {
		t.Fatal("GetOrCreate returned a different session for the same room")
	}
	if st.Count() != 1 {
		t.Fatalf("count = %d, want 1", st.Count())
	}

	info := first.GetInfo()
	if info.CardSequence != domain.SequenceFibonacci || info.VotesRevealed || info.ParticipantCount != 0 {
		t.Fatalf("new room info = %+v", info)
	}
}

func TestStore_RemoveIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	st.GetOrCreate("ABC123")

	st.Remove("ABC123")
	st.Remove("ABC123")
	st.Remove("NEVER")

	if _, err := st.Get("ABC123"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("err = %v, want ErrRoomNotFound", err)
	}
}

func TestStore_IsEmpty(t *testing.T) {
	st := newTestStore(t)
	if !st.IsEmpty("ABC123") {
		t.Fatal("absent room should be empty")
	}

	c := newFakeClient("c1")
	if _, err := st.Join("ABC123", c, "Alice", domain.RolePlayer); err != nil {
		t.Fatalf("join: %v", err)
	}
	if st.IsEmpty("ABC123") {
		t.Fatal("room with Alice reported empty")
	}
	if st.ParticipantCount() != 1 {
		t.Fatalf("participants = %d, want 1", st.ParticipantCount())
	}
}

func TestStore_LastLeaveRemovesRoom(t *testing.T) {
	st := newTestStore(t)
	a, b := newFakeClient("a"), newFakeClient("b")

	session, err := st.Join("ABC123", a, "Alice", domain.RolePlayer)
	if err != nil {
		t.Fatalf("join Alice: %v", err)
	}
	if _, err := st.Join("ABC123", b, "Bob", domain.RolePlayer); err != nil {
		t.Fatalf("join Bob: %v", err)
	}

	if err := st.Leave(session, "a", "Alice"); err != nil {
		t.Fatalf("leave Alice: %v", err)
	}
	if _, err := st.Get("ABC123"); err != nil {
		t.Fatalf("room gone while Bob is still in it: %v", err)
	}

	if err := st.Leave(session, "b", "Bob"); err != nil {
		t.Fatalf("leave Bob: %v", err)
	}
	if _, err := st.Get("ABC123"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("err = %v, want ErrRoomNotFound", err)
	}
	if st.Count() != 0 {
		t.Fatalf("count = %d, want 0", st.Count())
	}
}

func TestStore_JoinAfterRoomClosedCreatesFreshRoom(t *testing.T) {
	st := newTestStore(t)
	a := newFakeClient("a")

	old, err := st.Join("ABC123", a, "Alice", domain.RolePlayer)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := st.Leave(old, "a", "Alice"); err != nil {
		t.Fatalf("leave: %v", err)
	}

	// A stale handle to the closed session must not resurrect it
	if err := old.Join(a, "Alice", domain.RolePlayer); !errors.Is(err, domain.ErrRoomClosed) {
		t.Fatalf("join closed session err = %v, want ErrRoomClosed", err)
	}

	fresh, err := st.Join("ABC123", a, "Alice", domain.RolePlayer)
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if fresh == old {
		t.Fatal("rejoin reused the closed session")
	}
	if fresh.GetParticipantCount() != 1 {
		t.Fatalf("participants = %d, want 1", fresh.GetParticipantCount())
	}
}

func TestStore_NewRoomCode(t *testing.T) {
	st := NewRoomStore(StoreConfig{RoomCodeLength: 8}, testLogger())
	defer st.Close()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := st.NewRoomCode()
		if err != nil {
			t.Fatalf("NewRoomCode: %v", err)
		}
		if len(code) != 8 {
			t.Fatalf("code %q has length %d, want 8", code, len(code))
		}
		for _, r := range code {
			if !strings.ContainsRune(RoomCodeChars, r) {
				t.Fatalf("code %q contains %q outside the alphabet", code, r)
			}
		}
		seen[code] = true
	}
	if len(seen) < 45 {
		t.Fatalf("only %d distinct codes out of 50", len(seen))
	}
	if st.Count() != 0 {
		t.Fatal("NewRoomCode must not create rooms")
	}
}

func TestStore_DefaultsApplied(t *testing.T) {
	st := NewRoomStore(StoreConfig{DefaultSequence: "bogus"}, testLogger())
	defer st.Close()

	if got := st.GetOrCreate("X1").GetInfo().CardSequence; got != domain.DefaultSequence {
		t.Fatalf("sequence = %s, want %s", got, domain.DefaultSequence)
	}
	code, err := st.NewRoomCode()
	if err != nil || len(code) != DefaultRoomCodeLength {
		t.Fatalf("code = %q, err = %v", code, err)
	}
}

func TestStore_CloseClosesClients(t *testing.T) {
	st := NewRoomStore(StoreConfig{}, testLogger())
	c := newFakeClient("c")
	if _, err := st.Join("ABC123", c, "Alice", domain.RolePlayer); err != nil {
		t.Fatalf("join: %v", err)
	}

	st.Close()

	if !c.closed.Load() {
		t.Fatal("client not closed")
	}
	if st.Count() != 0 {
		t.Fatal("rooms left after Close")
	}
}

func TestSession_RenameOnSameConnectionLeavesOldIdentity(t *testing.T) {
	st := newTestStore(t)
	a, b := newFakeClient("a"), newFakeClient("b")
	if _, err := st.Join("ABC123", a, "Alice", domain.RolePlayer); err != nil {
		t.Fatalf("join: %v", err)
	}
	session, err := st.Join("ABC123", b, "Bob", domain.RolePlayer)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	b.expect(t, domain.EventSyncState)
	b.expect(t, domain.EventUserJoined)

	if err := session.Join(a, "Alicia", domain.RolePlayer); err != nil {
		t.Fatalf("rename: %v", err)
	}

	left := b.expect(t, domain.EventUserLeft).Payload.(*domain.UserLeftPayload)
	if left.Username != "Alice" {
		t.Fatalf("user_left = %+v", left)
	}
	joined := b.expect(t, domain.EventUserJoined).Payload.(*domain.UserJoinedPayload)
	if joined.Username != "Alicia" {
		t.Fatalf("user_joined = %+v", joined)
	}
	if _, ok := joined.Participants["Alice"]; ok || len(joined.Participants) != 2 {
		t.Fatalf("roster = %v", joined.Participants)
	}
	if n := session.GetParticipantCount(); n != 2 {
		t.Fatalf("participants = %d, want 2", n)
	}
}
