package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/collab-whiteboard/backend/internal/room"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Draw payloads are full canvas
	// data-URIs, so this is far larger than a chat-style limit.
	maxMessageSize = 10 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking in production
		return true
	},
}

// Handler owns the gateway: it upgrades connections, reads client events,
// applies them to the room registry and relays them through the room's hub.
type Handler struct {
	registry *room.Registry
	hubs     *HubManager
}

// NewHandler creates a gateway Handler over the given registry.
func NewHandler(registry *room.Registry) *Handler {
	return &Handler{
		registry: registry,
		hubs:     NewHubManager(),
	}
}

// Hubs exposes the hub manager, mainly for shutdown.
func (h *Handler) Hubs() *HubManager {
	return h.hubs
}

// HandleConnection upgrades the HTTP request to a websocket connection and
// serves it until the client disconnects.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := NewClient(uuid.New().String(), conn)
	log.Printf("[WS] Client connected: %s", client.ID())

	go h.writePump(client)
	h.readPump(client)
	return nil
}

// readPump reads events from the connection and dispatches them. All of a
// connection's events are processed here, one at a time, so its room
// affiliation only ever changes from this goroutine.
func (h *Handler) readPump(client *Client) {
	defer func() {
		h.leaveRoom(client)
		client.Close()
		client.conn.Close()
		log.Printf("[WS] Client disconnected: %s", client.ID())
	}()

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] Read error: %v", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("[WS] Failed to unmarshal message: %v", err)
			continue
		}

		h.handleMessage(client, &msg)
	}
}

// writePump drains the client's send channel onto the connection and keeps
// the connection alive with pings.
func (h *Handler) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.SendChan():
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage routes one inbound client event.
func (h *Handler) handleMessage(client *Client, msg *Message) {
	switch msg.Type {
	case MessageTypeCreateRoom:
		h.handleCreateRoom(client)
	case MessageTypeJoinRoom:
		h.handleJoinRoom(client, msg.RoomID)
	case MessageTypeDraw:
		h.handleDraw(client, msg.RoomID, msg.Data)
	case MessageTypeCanvasReset:
		h.handleCanvasReset(client, msg.RoomID)
	default:
		log.Printf("[WS] Unknown message type %q from %s", msg.Type, client.ID())
	}
}

// handleCreateRoom creates a fresh room seeded with the requester and
// replies to the requester only.
func (h *Handler) handleCreateRoom(client *Client) {
	h.leaveRoom(client)

	roomID := h.registry.Create(client.ID())
	h.hubs.GetOrCreate(roomID).Register(client)
	client.setRoom(roomID)

	h.send(client, &Message{Type: MessageTypeRoomCreated, RoomID: roomID})
	log.Printf("[WS] Room created: %s", roomID)
}

// handleJoinRoom adds the requester to an existing room. A missing room is
// reported to the requester only; other members are never notified of joins.
// If a snapshot is cached the joiner is caught up with it.
func (h *Handler) handleJoinRoom(client *Client, roomID string) {
	if !h.registry.Exists(roomID) {
		h.send(client, &Message{Type: MessageTypeError, Error: "Room not found"})
		log.Printf("[WS] Failed to join room %s (not found)", roomID)
		return
	}

	if client.Room() != roomID {
		// Re-homing: a connection is never a member of two rooms at once.
		// Joining the room the client already occupies skips this, so a
		// sole member re-joining does not tear its own room down.
		h.leaveRoom(client)

		if err := h.registry.AddMember(roomID, client.ID()); err != nil {
			// Room emptied out between the existence check and the join.
			h.send(client, &Message{Type: MessageTypeError, Error: "Room not found"})
			return
		}
		h.hubs.GetOrCreate(roomID).Register(client)
		client.setRoom(roomID)
	}

	h.send(client, &Message{Type: MessageTypeRoomJoined, RoomID: roomID})
	if snapshot, ok := h.registry.Snapshot(roomID); ok {
		h.send(client, &Message{Type: MessageTypeCanvasState, Data: snapshot})
	}
	log.Printf("[WS] Client %s joined room %s", client.ID(), roomID)
}

// handleDraw replaces the room's cached snapshot and relays the payload to
// the other members. Draws against a missing room are silent no-ops.
func (h *Handler) handleDraw(client *Client, roomID, data string) {
	if !h.registry.Exists(roomID) {
		return
	}

	h.registry.SetSnapshot(roomID, data)
	if hub := h.hubs.Get(roomID); hub != nil {
		if err := hub.BroadcastMessageExcept(client, &Message{Type: MessageTypeDraw, Data: data}); err != nil {
			log.Printf("[WS] Failed to relay draw: %v", err)
		}
	}
}

// handleCanvasReset clears the cached snapshot and relays the reset to the
// other members. Resets against a missing room are silent no-ops.
func (h *Handler) handleCanvasReset(client *Client, roomID string) {
	if !h.registry.Exists(roomID) {
		return
	}

	h.registry.ClearSnapshot(roomID)
	if hub := h.hubs.Get(roomID); hub != nil {
		if err := hub.BroadcastMessageExcept(client, &Message{Type: MessageTypeCanvasReset}); err != nil {
			log.Printf("[WS] Failed to relay reset: %v", err)
		}
	}
	log.Printf("[WS] Canvas reset in room %s", roomID)
}

// leaveRoom removes the client from its current room, if any. The room is
// cascade-deleted when its last member leaves. Safe to call for
// unaffiliated clients.
func (h *Handler) leaveRoom(client *Client) {
	roomID := client.Room()
	if roomID == "" {
		return
	}

	if hub := h.hubs.Get(roomID); hub != nil {
		hub.Unregister(client)
	}

	// The registry decides hub teardown: its per-room operations are atomic,
	// so a concurrent joiner either gets its membership in before the
	// cascade delete (the room and hub survive) or its AddMember fails and
	// it never registers. Checking the hub's own client count here instead
	// would race that joiner's Register.
	if deleted := h.registry.RemoveMember(roomID, client.ID()); deleted {
		h.hubs.Remove(roomID)
		log.Printf("[WS] Room %s deleted (no users)", roomID)
	}
	client.setRoom("")
}

// send marshals msg and queues it for the single client.
func (h *Handler) send(client *Client, msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[WS] Failed to marshal message: %v", err)
		return
	}
	client.Send(data)
}
