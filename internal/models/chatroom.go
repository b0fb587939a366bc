package models

import "time"

type ChatRequestStatus string

const (
	RequestNone     ChatRequestStatus = "none"
	RequestPending  ChatRequestStatus = "pending"
	RequestAccepted ChatRequestStatus = "accepted"
	RequestRejected ChatRequestStatus = "rejected"
)

// ChatRequest is a directed request to open a conversation, unique per ordered
// (SenderID, ReceiverID) pair.
type ChatRequest struct {
	ID         uint              `gorm:"primaryKey" json:"-"`
	SenderID   string            `gorm:"type:text;not null;uniqueIndex:ux_chat_request_pair,priority:1" json:"senderId"`
	ReceiverID string            `gorm:"type:text;not null;uniqueIndex:ux_chat_request_pair,priority:2;index" json:"receiverId"`
	Status     ChatRequestStatus `gorm:"type:varchar(10);not null" json:"status"`
	Timestamp  time.Time         `gorm:"not null" json:"timestamp"`
}

// ChatRoom represents a time-boxed 1-on-1 conversation between two matched users.
// User1ID and User2ID are stored in ascending order so a pair has one lookup key.
type ChatRoom struct {
	// RoomID is the unique identifier for the chat room (UUID).
	RoomID    string    `gorm:"primaryKey" json:"roomId"`
	User1ID   string    `gorm:"type:text;not null;index:idx_room_pair,priority:1" json:"-"`
	User2ID   string    `gorm:"type:text;not null;index:idx_room_pair,priority:2" json:"-"`
	StartDate time.Time `gorm:"not null" json:"startDate"`
	ExpiresAt time.Time `gorm:"not null" json:"expiresAt"`
}

// NewChatRoom builds a room for the pair starting at start and living for ttl.
func NewChatRoom(roomID, userA, userB string, start time.Time, ttl time.Duration) *ChatRoom {
	if userB < userA {
		userA, userB = userB, userA
	}
	return &ChatRoom{
		RoomID:    roomID,
		User1ID:   userA,
		User2ID:   userB,
		StartDate: start,
		ExpiresAt: start.Add(ttl),
	}
}

func (r *ChatRoom) UserIDs() []string { return []string{r.User1ID, r.User2ID} }

func (r *ChatRoom) HasMember(userID string) bool {
	return userID != "" && (r.User1ID == userID || r.User2ID == userID)
}

// Expired is evaluated on every read and write; there is no stored flag.
func (r *ChatRoom) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Message is one immutable chat turn.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RoomID    string    `gorm:"type:text;not null;index:idx_room_msg,priority:1" json:"roomId"`
	SenderID  string    `gorm:"type:text;not null" json:"senderId"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Timestamp time.Time `gorm:"not null;index:idx_room_msg,priority:2" json:"timestamp"`
}
