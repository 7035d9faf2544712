// Package chat holds the conversation domain: the persisted model, the
// conversation service both gateways call through, and the unread/read-receipt
// rules.
package chat

import (
	"sort"
	"strings"
	"time"
)

// Key derives the deterministic conversation key for a pair of users: the two
// ids sorted and joined with "_". Key(a,b) == Key(b,a), so at most one
// conversation can ever exist per pair.
func Key(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

// LastMessage is the snapshot kept on a conversation for list-view rendering.
type LastMessage struct {
	Content   string    `bson:"content" json:"content"`
	SenderID  string    `bson:"sender_id" json:"senderId"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// Conversation is the persisted record of an exchange between exactly two
// users. It is never hard-deleted; "delete" flips IsActive.
type Conversation struct {
	Key          string         `bson:"_id" json:"chatId"`
	Participants []string       `bson:"participants" json:"participants"`
	LastMessage  *LastMessage   `bson:"last_message,omitempty" json:"lastMessage,omitempty"`
	UnreadCounts map[string]int `bson:"unread_counts" json:"unreadCounts"`
	IsActive     bool           `bson:"is_active" json:"isActive"`
	CreatedAt    time.Time      `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time      `bson:"updated_at" json:"updatedAt"`
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant that is not userID. Conversations
// always have exactly two participants.
func (c *Conversation) OtherParticipant(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

// UnreadFor returns the unread counter for userID, zero if absent.
func (c *Conversation) UnreadFor(userID string) int {
	if c.UnreadCounts == nil {
		return 0
	}
	return c.UnreadCounts[userID]
}

// LastActivity orders conversation lists: the last message timestamp, or the
// creation time when nothing has been sent yet.
func (c *Conversation) LastActivity() time.Time {
	if c.LastMessage != nil {
		return c.LastMessage.Timestamp
	}
	return c.CreatedAt
}

// Summary is the list-view projection of a conversation for one caller.
type Summary struct {
	ChatID              string    `json:"chatId"`
	OtherUserID         string    `json:"otherUserId"`
	OtherUserName       string    `json:"otherUserName"`
	OtherUserPhoto      string    `json:"otherUserProfilePicture,omitempty"`
	LastMessage         string    `json:"lastMessage"`
	LastMessageTime     time.Time `json:"lastMessageTime"`
	IsLastMessageFromMe bool      `json:"isLastMessageFromMe"`
	UnreadCount         int       `json:"unreadCount"`
}
