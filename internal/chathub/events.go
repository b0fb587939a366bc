package chathub

import (
	"encoding/json"
	"time"
)

// Socket event names.
const (
	EventJoinRoom    = "joinRoom"
	EventSendMessage = "sendMessage"

	EventJoinedRoom = "joinedRoom"
	EventNewMessage = "newMessage"
	EventRoomLocked = "roomLocked"
	EventError      = "error"
)

// Envelope is an inbound frame. Data is decoded according to Event.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Frame is an outbound frame.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type JoinRoomPayload struct {
	RoomID string `json:"roomId" validate:"required"`
	UserID string `json:"userId" validate:"required"`
}

type SendMessagePayload struct {
	RoomID  string `json:"roomId" validate:"required"`
	UserID  string `json:"userId" validate:"required"`
	Content string `json:"content" validate:"required"`
}

type RoomPayload struct {
	RoomID string `json:"roomId"`
}

type NewMessagePayload struct {
	ID        uint      `json:"id"`
	RoomID    string    `json:"roomId"`
	SenderID  string    `json:"senderId"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func errorFrame(msg string) Frame {
	return Frame{Event: EventError, Data: msg}
}
