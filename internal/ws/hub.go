package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
)

// Client represents a single websocket connection in the gateway.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	roomID string
	closed bool
}

// NewClient creates a Client with the given connection id.
func NewClient(id string, conn *websocket.Conn) *Client {
	return &Client{
		id:   id,
		conn: conn,
		send: make(chan []byte, 256),
	}
}

// ID returns the connection id.
func (c *Client) ID() string {
	return c.id
}

// Room returns the id of the room the client is affiliated with, or "".
func (c *Client) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

func (c *Client) setRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = roomID
}

// Send queues a message for delivery to the client. If the send buffer is
// full the client is considered stuck and closed rather than blocking the
// broadcaster.
func (c *Client) Send(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		c.closeLocked()
	}
}

// Close closes the client's send channel. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// SendChan returns the client's outbound channel, drained by its write pump.
func (c *Client) SendChan() <-chan []byte {
	return c.send
}

// Hub is the broadcast group for one room: the set of live connections that
// receive relayed events for it. The owning HubManager keys hubs by room id.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
	}
}

// Register adds a client to the broadcast group.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
}

// Unregister removes a client from the broadcast group. The client itself
// stays open; it may be re-homed into another room.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client)
}

// ClientCount returns the number of connections in the group.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastExcept sends data to every client in the group except sender.
// Sender may be nil to reach everyone.
func (h *Hub) BroadcastExcept(sender *Client, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client == sender {
			continue
		}
		client.Send(data)
	}
}

// BroadcastMessageExcept marshals msg and relays it to everyone but sender.
func (h *Hub) BroadcastMessageExcept(sender *Client, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	h.BroadcastExcept(sender, data)
	return nil
}

// Close closes every client in the group and empties it.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[*Client]bool)
	h.mu.Unlock()

	for _, client := range clients {
		client.Close()
	}
}

// HubManager manages the broadcast groups of all live rooms.
type HubManager struct {
	mu   sync.RWMutex
	hubs map[string]*Hub
}

// NewHubManager creates an empty HubManager.
func NewHubManager() *HubManager {
	return &HubManager{
		hubs: make(map[string]*Hub),
	}
}

// GetOrCreate returns the hub for a room, creating it if needed.
func (m *HubManager) GetOrCreate(roomID string) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[roomID]; ok {
		return hub
	}

	hub := NewHub()
	m.hubs[roomID] = hub
	return hub
}

// Get returns the hub for a room, or nil if none exists.
func (m *HubManager) Get(roomID string) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubs[roomID]
}

// Remove drops the hub for a room, closing any clients still in it.
func (m *HubManager) Remove(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[roomID]; ok {
		hub.Close()
		delete(m.hubs, roomID)
	}
}

// Close closes all hubs.
func (m *HubManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, hub := range m.hubs {
		hub.Close()
	}
	m.hubs = make(map[string]*Hub)
}
