package app

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"scrumpoker/internal/domain"
)

const waitTimeout = 2 * time.Second

type fakeClient struct {
	id     string
	events chan *domain.RoomEvent
	closed atomic.Bool
}

func newFakeClient(id string) *fakeClient {
	return &fakeClient{id: id, events: make(chan *domain.RoomEvent, 64)}
}

func (f *fakeClient) Send(event *domain.RoomEvent) error {
	select {
	case f.events <- event:
	default:
	}
	return nil
}

func (f *fakeClient) GetConnID() string { return f.id }

func (f *fakeClient) Close() error {
	f.closed.Store(true)
	return nil
}

// expect waits for the next event and checks its type
func (f *fakeClient) expect(t *testing.T, eventType domain.EventType) *domain.RoomEvent {
	t.Helper()
	select {
	case e := <-f.events:
		if e.Type != eventType {
			t.Fatalf("%s: got %s event, want %s", f.id, e.Type, eventType)
		}
		return e
	case <-time.After(waitTimeout):
		t.Fatalf("%s: timed out waiting for %s", f.id, eventType)
		return nil
	}
}

// expectError waits for an error_message with the given code
func (f *fakeClient) expectError(t *testing.T, code string) *domain.ErrorPayload {
	t.Helper()
	p := f.expect(t, domain.EventError).Payload.(*domain.ErrorPayload)
	if p.Code != code {
		t.Fatalf("%s: error code = %s (%s), want %s", f.id, p.Code, p.Message, code)
	}
	return p
}

// expectNone checks that nothing arrives for a short while
func (f *fakeClient) expectNone(t *testing.T) {
	t.Helper()
	select {
	case e := <-f.events:
		t.Fatalf("%s: unexpected %s event: %+v", f.id, e.Type, e.Payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *RoomStore {
	t.Helper()
	st := NewRoomStore(StoreConfig{DefaultSequence: domain.SequenceFibonacci}, testLogger())
	t.Cleanup(st.Close)
	return st
}

type peer struct {
	*fakeClient
	conn *Connection
}

func newPeer(st *RoomStore, id string) *peer {
	fc := newFakeClient(id)
	return &peer{fakeClient: fc, conn: NewConnection(fc, st, ConnectionOptions{MaxUsernameLength: 32}, testLogger())}
}

// join joins p and consumes the events the join produces for p and for the
// peers already in the room
func (p *peer) join(t *testing.T, roomID, username string, role domain.Role, others ...*peer) {
	t.Helper()
	if err := p.conn.Join(context.Background(), JoinRoom{Username: username, RoomID: roomID, Role: string(role)}); err != nil {
		t.Fatalf("%s join: %v", username, err)
	}
	p.expect(t, domain.EventSyncState)
	p.expect(t, domain.EventUserJoined)
	for _, o := range others {
		o.expect(t, domain.EventUserJoined)
	}
}
