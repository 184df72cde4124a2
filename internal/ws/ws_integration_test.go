package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/collab-whiteboard/backend/internal/room"
)

type testGateway struct {
	registry *room.Registry
	url      string
}

func newTestGateway(t *testing.T) *testGateway {
	t.Helper()

	registry := room.NewRegistry()
	handler := NewHandler(registry)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := handler.HandleConnection(w, r); err != nil {
			t.Logf("upgrade failed: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(handler.Hubs().Close)

	return &testGateway{
		registry: registry,
		url:      "ws" + strings.TrimPrefix(srv.URL, "http"),
	}
}

func (g *testGateway) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(g.url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendMsg(t *testing.T, conn *websocket.Conn, msg Message) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func readMsg(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	return msg
}

func expectNoFrame(t *testing.T, conn *websocket.Conn, wait time.Duration) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(wait))
	if _, data, err := conn.ReadMessage(); err == nil {
		t.Fatalf("unexpected frame delivered: %s", data)
	}
	conn.SetReadDeadline(time.Time{})
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestJoinNonexistentRoom(t *testing.T) {
	g := newTestGateway(t)
	conn := g.dial(t)

	sendMsg(t, conn, Message{Type: MessageTypeJoinRoom, RoomID: "no-such-room"})

	msg := readMsg(t, conn)
	if msg.Type != MessageTypeError {
		t.Fatalf("expected error message, got %s", msg.Type)
	}
	if msg.Error != "Room not found" {
		t.Errorf("expected 'Room not found', got %q", msg.Error)
	}
	if g.registry.RoomCount() != 0 {
		t.Error("failed join must not mutate the registry")
	}

	// Connection stays usable after a protocol error.
	sendMsg(t, conn, Message{Type: MessageTypeCreateRoom})
	if msg := readMsg(t, conn); msg.Type != MessageTypeRoomCreated {
		t.Errorf("expected room-created after recovering, got %s", msg.Type)
	}
}

func TestCreateDrawJoinRelayScenario(t *testing.T) {
	g := newTestGateway(t)

	// A creates a room.
	connA := g.dial(t)
	sendMsg(t, connA, Message{Type: MessageTypeCreateRoom})
	created := readMsg(t, connA)
	if created.Type != MessageTypeRoomCreated || created.RoomID == "" {
		t.Fatalf("expected room-created with id, got %+v", created)
	}
	roomID := created.RoomID

	// A draws before anyone else is present.
	sendMsg(t, connA, Message{Type: MessageTypeDraw, RoomID: roomID, Data: "snap1"})
	waitFor(t, func() bool {
		snap, ok := g.registry.Snapshot(roomID)
		return ok && snap == "snap1"
	}, "snapshot snap1")

	// B joins and is caught up with the cached snapshot.
	connB := g.dial(t)
	sendMsg(t, connB, Message{Type: MessageTypeJoinRoom, RoomID: roomID})
	joined := readMsg(t, connB)
	if joined.Type != MessageTypeRoomJoined || joined.RoomID != roomID {
		t.Fatalf("expected room-joined %s, got %+v", roomID, joined)
	}
	state := readMsg(t, connB)
	if state.Type != MessageTypeCanvasState || state.Data != "snap1" {
		t.Fatalf("expected canvas-state snap1, got %+v", state)
	}

	// A draws again: relayed to B, never echoed to A.
	sendMsg(t, connA, Message{Type: MessageTypeDraw, RoomID: roomID, Data: "snap2"})
	relayed := readMsg(t, connB)
	if relayed.Type != MessageTypeDraw || relayed.Data != "snap2" {
		t.Fatalf("expected relayed draw snap2, got %+v", relayed)
	}
	expectNoFrame(t, connA, 300*time.Millisecond)

	// B leaves; the room survives with A in it.
	connB.Close()
	waitFor(t, func() bool { return g.registry.MemberCount(roomID) == 1 }, "B removed")
	if !g.registry.Exists(roomID) {
		t.Fatal("room should survive while A remains")
	}

	// A leaves; the room is deleted and no longer joinable.
	connA.Close()
	waitFor(t, func() bool { return !g.registry.Exists(roomID) }, "room deleted")

	connC := g.dial(t)
	sendMsg(t, connC, Message{Type: MessageTypeJoinRoom, RoomID: roomID})
	if msg := readMsg(t, connC); msg.Type != MessageTypeError {
		t.Errorf("expected error joining deleted room, got %s", msg.Type)
	}
}

func TestCanvasResetClearsSnapshot(t *testing.T) {
	g := newTestGateway(t)

	connA := g.dial(t)
	sendMsg(t, connA, Message{Type: MessageTypeCreateRoom})
	roomID := readMsg(t, connA).RoomID

	sendMsg(t, connA, Message{Type: MessageTypeDraw, RoomID: roomID, Data: "snap1"})
	waitFor(t, func() bool {
		_, ok := g.registry.Snapshot(roomID)
		return ok
	}, "snapshot cached")

	connB := g.dial(t)
	sendMsg(t, connB, Message{Type: MessageTypeJoinRoom, RoomID: roomID})
	readMsg(t, connB) // room-joined
	readMsg(t, connB) // canvas-state

	// A resets: B is notified, A is not, and the snapshot is dropped.
	sendMsg(t, connA, Message{Type: MessageTypeCanvasReset, RoomID: roomID})
	if msg := readMsg(t, connB); msg.Type != MessageTypeCanvasReset {
		t.Fatalf("expected relayed canvas-reset, got %+v", msg)
	}
	expectNoFrame(t, connA, 300*time.Millisecond)
	waitFor(t, func() bool {
		_, ok := g.registry.Snapshot(roomID)
		return !ok
	}, "snapshot cleared")

	// A member joining after the reset gets no catch-up snapshot.
	connC := g.dial(t)
	sendMsg(t, connC, Message{Type: MessageTypeJoinRoom, RoomID: roomID})
	if msg := readMsg(t, connC); msg.Type != MessageTypeRoomJoined {
		t.Fatalf("expected room-joined, got %+v", msg)
	}
	expectNoFrame(t, connC, 300*time.Millisecond)
}

func TestDrawAgainstMissingRoomIsNoOp(t *testing.T) {
	g := newTestGateway(t)
	conn := g.dial(t)

	sendMsg(t, conn, Message{Type: MessageTypeDraw, RoomID: "ghost", Data: "snap"})
	sendMsg(t, conn, Message{Type: MessageTypeCanvasReset, RoomID: "ghost"})

	expectNoFrame(t, conn, 300*time.Millisecond)
	if g.registry.RoomCount() != 0 {
		t.Error("draw/reset against a missing room must not create state")
	}
}

func TestRejoinSameRoomIsIdempotent(t *testing.T) {
	g := newTestGateway(t)

	conn := g.dial(t)
	sendMsg(t, conn, Message{Type: MessageTypeCreateRoom})
	roomID := readMsg(t, conn).RoomID

	sendMsg(t, conn, Message{Type: MessageTypeDraw, RoomID: roomID, Data: "snap1"})
	waitFor(t, func() bool {
		snap, ok := g.registry.Snapshot(roomID)
		return ok && snap == "snap1"
	}, "snapshot cached")

	// Re-joining the room the connection already occupies must not tear it
	// down, even when the connection is its sole member.
	sendMsg(t, conn, Message{Type: MessageTypeJoinRoom, RoomID: roomID})
	joined := readMsg(t, conn)
	if joined.Type != MessageTypeRoomJoined || joined.RoomID != roomID {
		t.Fatalf("expected room-joined %s, got %+v", roomID, joined)
	}
	state := readMsg(t, conn)
	if state.Type != MessageTypeCanvasState || state.Data != "snap1" {
		t.Fatalf("expected canvas-state snap1 after re-join, got %+v", state)
	}

	if !g.registry.Exists(roomID) {
		t.Fatal("room must survive a same-room re-join")
	}
	if got := g.registry.MemberCount(roomID); got != 1 {
		t.Errorf("expected 1 member after re-join, got %d", got)
	}
}

func TestRejoinRehomesConnection(t *testing.T) {
	g := newTestGateway(t)

	// B hosts the room A will move into.
	connB := g.dial(t)
	sendMsg(t, connB, Message{Type: MessageTypeCreateRoom})
	targetRoom := readMsg(t, connB).RoomID

	// A creates its own room, then joins B's.
	connA := g.dial(t)
	sendMsg(t, connA, Message{Type: MessageTypeCreateRoom})
	firstRoom := readMsg(t, connA).RoomID

	sendMsg(t, connA, Message{Type: MessageTypeJoinRoom, RoomID: targetRoom})
	if msg := readMsg(t, connA); msg.Type != MessageTypeRoomJoined || msg.RoomID != targetRoom {
		t.Fatalf("expected room-joined %s, got %+v", targetRoom, msg)
	}

	// A was the only member of its first room, so re-homing deleted it.
	waitFor(t, func() bool { return !g.registry.Exists(firstRoom) }, "first room deleted")
	if got := g.registry.MemberCount(targetRoom); got != 2 {
		t.Errorf("expected 2 members in target room, got %d", got)
	}
}
