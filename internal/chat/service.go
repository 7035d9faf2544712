package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Pin3appl3ishan/iLike-web/internal/apperr"
)

// Event names shared by both delivery paths.
const (
	EvNewMessage   = "new_message"
	EvChatUpdated  = "chat_updated"
	EvMessagesRead = "messages_read"
)

// Service is the single conversation-mutation path. The REST gateway and the
// websocket gateway both call through it, so the two paths cannot drift, and
// every successful mutation is fanned out to live push connections from here
// regardless of which gateway performed it.
type Service struct {
	store  Store
	dir    Directory
	notify Notifier
	sink   EventSink
	log    *zap.SugaredLogger

	maxContentLen int
	locks         *keyedMutex
}

func NewService(store Store, dir Directory, notify Notifier, sink EventSink, log *zap.SugaredLogger, maxContentLen int) *Service {
	if maxContentLen <= 0 {
		maxContentLen = 1000
	}
	return &Service{
		store:         store,
		dir:           dir,
		notify:        notify,
		sink:          sink,
		log:           log,
		maxContentLen: maxContentLen,
		locks:         newKeyedMutex(),
	}
}

// CreateOrGet returns the conversation between userID and otherID, creating
// it on first use, plus whether this call created it. Idempotent: the
// deterministic key guarantees at most one conversation per pair, and an
// existing conversation (active or not) is returned unchanged.
func (s *Service) CreateOrGet(ctx context.Context, userID, otherID string) (*Conversation, bool, error) {
	if otherID == "" {
		return nil, false, fmt.Errorf("other user id required: %w", apperr.ErrValidation)
	}
	if userID == otherID {
		return nil, false, fmt.Errorf("cannot start a conversation with yourself: %w", apperr.ErrValidation)
	}
	if _, err := s.dir.Card(ctx, otherID); err != nil {
		return nil, false, fmt.Errorf("user %s: %w", otherID, apperr.ErrNotFound)
	}
	matched, err := s.dir.AreMatched(ctx, userID, otherID)
	if err != nil {
		return nil, false, fmt.Errorf("match lookup: %w", apperr.ErrUnavailable)
	}
	if !matched {
		return nil, false, fmt.Errorf("users are not matched: %w", apperr.ErrForbidden)
	}

	key := Key(userID, otherID)
	unlock := s.locks.Lock(key)
	defer unlock()

	if conv, err := s.store.GetConversation(ctx, key); err == nil {
		return conv, false, nil
	}

	now := time.Now().UTC()
	conv := &Conversation{
		Key:          key,
		Participants: []string{userID, otherID},
		UnreadCounts: map[string]int{userID: 0, otherID: 0},
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		// another instance won the create race; their record is ours too
		if errors.Is(err, apperr.ErrValidation) {
			if existing, gerr := s.store.GetConversation(ctx, key); gerr == nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("create conversation: %w", apperr.ErrUnavailable)
	}
	return conv, true, nil
}

// List returns the caller's active conversations as list-view summaries,
// most recent activity first.
func (s *Service) List(ctx context.Context, userID string) ([]Summary, error) {
	convs, err := s.store.ListActiveConversations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", apperr.ErrUnavailable)
	}
	out := make([]Summary, 0, len(convs))
	for _, c := range convs {
		out = append(out, s.summarize(ctx, c, userID))
	}
	// insertion sort keeps this dependency-free and the lists are small
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].LastMessageTime.After(out[j-1].LastMessageTime); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

// Get returns the caller's view of one conversation. Non-participants get
// ErrNotFound so they cannot confirm the conversation exists.
func (s *Service) Get(ctx context.Context, userID, key string) (Summary, error) {
	conv, err := s.authorized(ctx, userID, key)
	if err != nil {
		return Summary{}, err
	}
	return s.summarize(ctx, conv, userID), nil
}

// Messages returns the full history ascending by timestamp and, as a side
// effect, marks the conversation read for the caller: opening a conversation
// acknowledges it.
func (s *Service) Messages(ctx context.Context, userID, key string) ([]*Message, error) {
	if _, err := s.authorized(ctx, userID, key); err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessages(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", apperr.ErrUnavailable)
	}
	if err := s.MarkAllRead(ctx, userID, key); err != nil {
		s.log.Warnw("implicit mark-read failed", "chat", key, "user", userID, "err", err)
	}
	return msgs, nil
}

// Append validates and persists a new message, updates the conversation's
// last-message snapshot, increments every other participant's unread counter
// by exactly one, then fans the result out to live subscribers. The store
// mutations run under the per-conversation lock so concurrent sends to the
// same conversation cannot lose increments.
func (s *Service) Append(ctx context.Context, userID, key, content string, mtype MessageType) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("message content is required: %w", apperr.ErrValidation)
	}
	if utf8.RuneCountInString(content) > s.maxContentLen {
		return nil, fmt.Errorf("message exceeds %d characters: %w", s.maxContentLen, apperr.ErrValidation)
	}
	if mtype == "" {
		mtype = TypeText
	}
	if !mtype.Valid() {
		return nil, fmt.Errorf("unknown message type %q: %w", mtype, apperr.ErrValidation)
	}

	conv, err := s.authorized(ctx, userID, key)
	if err != nil {
		return nil, err
	}

	msg := &Message{
		ID:        uuid.NewString(),
		ChatKey:   key,
		SenderID:  userID,
		Content:   content,
		Type:      mtype,
		Status:    StatusSent,
		Timestamp: time.Now().UTC(),
		ReadBy:    []ReadReceipt{},
	}
	recipients := recipientsExcluding(conv, userID)

	unlock := s.locks.Lock(key)
	if err := s.store.InsertMessage(ctx, msg); err != nil {
		unlock()
		return nil, fmt.Errorf("persist message: %w", apperr.ErrUnavailable)
	}
	last := LastMessage{Content: content, SenderID: userID, Timestamp: msg.Timestamp}
	if err := s.store.ApplyAppend(ctx, key, last, recipients); err != nil {
		// roll the insert back so a half-applied send is never visible
		if derr := s.store.DeleteMessage(ctx, msg.ID); derr != nil {
			s.log.Errorw("orphaned message after failed append", "message", msg.ID, "err", derr)
		}
		unlock()
		return nil, fmt.Errorf("apply append: %w", apperr.ErrUnavailable)
	}
	// re-read under the lock so chat_updated carries the counters this send
	// actually produced, not a pre-lock snapshot
	if updated, err := s.store.GetConversation(ctx, key); err == nil {
		conv = updated
	} else {
		if conv.UnreadCounts == nil {
			conv.UnreadCounts = make(map[string]int, len(recipients))
		}
		for _, uid := range recipients {
			conv.UnreadCounts[uid]++
		}
		conv.LastMessage = &last
	}
	unlock()

	s.broadcastAppend(conv, msg)
	s.emit(ctx, "message.sent", key, msg)
	return msg, nil
}

// MarkAllRead appends a read receipt from userID to every message they have
// not yet read (never their own), moves those messages to status read, and
// resets their unread counter. Idempotent: a second call changes nothing and
// broadcasts nothing.
func (s *Service) MarkAllRead(ctx context.Context, userID, key string) error {
	if _, err := s.authorized(ctx, userID, key); err != nil {
		return err
	}
	now := time.Now().UTC()

	unlock := s.locks.Lock(key)
	modified, err := s.store.AppendReadReceipts(ctx, key, userID, now)
	if err != nil {
		unlock()
		return fmt.Errorf("append read receipts: %w", apperr.ErrUnavailable)
	}
	if err := s.store.ResetUnread(ctx, key, userID); err != nil {
		unlock()
		return fmt.Errorf("reset unread: %w", apperr.ErrUnavailable)
	}
	unlock()

	if modified > 0 {
		s.notify.ToConversation(key, EvMessagesRead, map[string]any{
			"chatId":    key,
			"readBy":    userID,
			"timestamp": now,
		}, userID)
		s.emit(ctx, "conversation.read", key, map[string]any{"userId": userID, "readAt": now})
	}
	return nil
}

// SoftDelete hides the conversation from list views. History stays
// retrievable for participants. Idempotent.
func (s *Service) SoftDelete(ctx context.Context, userID, key string) error {
	if _, err := s.authorized(ctx, userID, key); err != nil {
		return err
	}
	if err := s.store.SetInactive(ctx, key); err != nil {
		return fmt.Errorf("soft delete: %w", apperr.ErrUnavailable)
	}
	s.emit(ctx, "conversation.deleted", key, map[string]any{"deletedBy": userID})
	return nil
}

// IsParticipant reports whether userID belongs to the conversation. The push
// gateway uses it to gate room joins.
func (s *Service) IsParticipant(ctx context.Context, userID, key string) bool {
	_, err := s.authorized(ctx, userID, key)
	return err == nil
}

// authorized loads the conversation and collapses "no such conversation" and
// "caller is not a participant" into the same ErrNotFound.
func (s *Service) authorized(ctx context.Context, userID, key string) (*Conversation, error) {
	conv, err := s.store.GetConversation(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("conversation %s: %w", key, apperr.ErrNotFound)
	}
	if !conv.HasParticipant(userID) {
		return nil, fmt.Errorf("conversation %s: %w", key, apperr.ErrNotFound)
	}
	return conv, nil
}

func (s *Service) summarize(ctx context.Context, c *Conversation, userID string) Summary {
	other := c.OtherParticipant(userID)
	card, err := s.dir.Card(ctx, other)
	if err != nil {
		// a missing card must not hide the conversation
		card = UserCard{ID: other, Name: other}
	}
	sum := Summary{
		ChatID:          c.Key,
		OtherUserID:     other,
		OtherUserName:   card.Name,
		OtherUserPhoto:  card.PhotoURL,
		LastMessage:     "No messages yet",
		LastMessageTime: c.LastActivity(),
		UnreadCount:     c.UnreadFor(userID),
	}
	if c.LastMessage != nil {
		sum.LastMessage = c.LastMessage.Content
		sum.IsLastMessageFromMe = c.LastMessage.SenderID == userID
	}
	return sum
}

func (s *Service) broadcastAppend(conv *Conversation, msg *Message) {
	s.notify.ToConversation(conv.Key, EvNewMessage, msg, msg.SenderID)

	counts := make(map[string]int, len(conv.Participants))
	for _, p := range conv.Participants {
		counts[p] = conv.UnreadFor(p)
	}
	s.notify.ToConversation(conv.Key, EvChatUpdated, map[string]any{
		"chatId":          conv.Key,
		"lastMessage":     msg.Content,
		"lastMessageTime": msg.Timestamp,
		"unreadCounts":    counts,
	}, "")
}

func (s *Service) emit(ctx context.Context, eventType, key string, payload any) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Publish(ctx, eventType, key, payload); err != nil {
		s.log.Warnw("event publish failed", "type", eventType, "chat", key, "err", err)
	}
}
