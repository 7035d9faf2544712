package chat

import (
	"context"
	"time"
)

// Store is the persistence contract the service depends on. Implementations
// live in internal/repository (MongoDB for production, an in-memory store for
// tests). Every method maps missing records to apperr.ErrNotFound.
type Store interface {
	// CreateConversation inserts conv. Returns apperr.ErrValidation wrapped in
	// a duplicate-key style failure if the key already exists; callers check
	// for existence first under the conversation lock.
	CreateConversation(ctx context.Context, conv *Conversation) error
	GetConversation(ctx context.Context, key string) (*Conversation, error)
	// ListActiveConversations returns every conversation with is_active=true
	// where userID is a participant, in no particular order.
	ListActiveConversations(ctx context.Context, userID string) ([]*Conversation, error)
	// SetInactive flips the soft-delete flag. Idempotent.
	SetInactive(ctx context.Context, key string) error

	InsertMessage(ctx context.Context, m *Message) error
	// DeleteMessage removes a message by id; used only to compensate a send
	// whose conversation update failed, so the half-applied message never
	// becomes visible.
	DeleteMessage(ctx context.Context, id string) error
	ListMessages(ctx context.Context, key string) ([]*Message, error)

	// ApplyAppend records the conversation-side effects of a send in one
	// store operation: the last-message snapshot plus a +1 unread increment
	// for each user in incrFor.
	ApplyAppend(ctx context.Context, key string, last LastMessage, incrFor []string) error
	// AppendReadReceipts adds a (userID, at) receipt to every message in the
	// conversation not sent by userID and not already read by them, and moves
	// those messages to status read. Returns how many messages changed.
	AppendReadReceipts(ctx context.Context, key, userID string, at time.Time) (int64, error)
	// ResetUnread sets the caller's unread counter to zero.
	ResetUnread(ctx context.Context, key, userID string) error
}

// UserCard is the minimal profile projection the chat subsystem needs for
// list views. Profiles themselves are owned elsewhere.
type UserCard struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	PhotoURL string `json:"photoUrl,omitempty"`
}

// Directory resolves user cards and the matched-pair precondition. It is a
// read-only seam over data owned by the profile/match collaborators.
type Directory interface {
	Card(ctx context.Context, userID string) (UserCard, error)
	AreMatched(ctx context.Context, a, b string) (bool, error)
}

// Notifier fans events out to live push connections. The websocket hub
// implements it; tests substitute a recorder. excludeUser may be empty to
// reach every subscriber of the conversation room.
type Notifier interface {
	ToConversation(chatKey, event string, payload any, excludeUser string)
}

// EventSink publishes domain events for out-of-process consumers (the
// notification pipeline). Delivery is best effort; the service logs and moves
// on when the sink is down.
type EventSink interface {
	Publish(ctx context.Context, eventType, chatKey string, payload any) error
}
