package chat

import "time"

type MessageType string

const (
	TypeText  MessageType = "text"
	TypeImage MessageType = "image"
	TypeEmoji MessageType = "emoji"
)

func (t MessageType) Valid() bool {
	switch t {
	case TypeText, TypeImage, TypeEmoji:
		return true
	}
	return false
}

type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
	// StatusFailed is terminal and only reachable before persistence succeeds;
	// a failed send is never visible to readers.
	StatusFailed MessageStatus = "failed"
)

// ReadReceipt records that a user viewed a message. Receipts are append-only
// and never contain the sender.
type ReadReceipt struct {
	UserID string    `bson:"user_id" json:"userId"`
	ReadAt time.Time `bson:"read_at" json:"readAt"`
}

type Message struct {
	ID        string        `bson:"_id" json:"messageId"`
	ChatKey   string        `bson:"chat_key" json:"chatId"`
	SenderID  string        `bson:"sender_id" json:"senderId"`
	Content   string        `bson:"content" json:"content"`
	Type      MessageType   `bson:"type" json:"type"`
	Status    MessageStatus `bson:"status" json:"status"`
	Timestamp time.Time     `bson:"timestamp" json:"timestamp"`
	ReadBy    []ReadReceipt `bson:"read_by" json:"readBy"`
}

// ReadByUser reports whether userID already has a read receipt on m.
func (m *Message) ReadByUser(userID string) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}
