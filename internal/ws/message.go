package ws

// MessageType represents the type of a websocket message.
type MessageType string

const (
	// Client -> server message types
	MessageTypeCreateRoom  MessageType = "create-room"
	MessageTypeJoinRoom    MessageType = "join-room"
	MessageTypeDraw        MessageType = "draw"
	MessageTypeCanvasReset MessageType = "canvas-reset"

	// Server -> client message types
	MessageTypeRoomCreated MessageType = "room-created"
	MessageTypeRoomJoined  MessageType = "room-joined"
	MessageTypeCanvasState MessageType = "canvas-state"
	MessageTypeError       MessageType = "error"
)

// Message is the wire format for gateway events. Data carries the encoded
// canvas payload for draw and canvas-state messages.
type Message struct {
	Type   MessageType `json:"type"`
	RoomID string      `json:"roomId,omitempty"`
	Data   string      `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}
