package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Pin3appl3ishan/iLike-web/internal/apperr"
	"github.com/Pin3appl3ishan/iLike-web/internal/chat"
)

// MemoryStore is an in-process chat.Store. It backs the test suites and is
// handy for local development without a MongoDB instance.
type MemoryStore struct {
	mu    sync.RWMutex
	convs map[string]*chat.Conversation
	msgs  map[string][]*chat.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		convs: make(map[string]*chat.Conversation),
		msgs:  make(map[string][]*chat.Message),
	}
}

func (s *MemoryStore) CreateConversation(_ context.Context, conv *chat.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.convs[conv.Key]; ok {
		return apperr.ErrValidation
	}
	s.convs[conv.Key] = cloneConv(conv)
	return nil
}

func (s *MemoryStore) GetConversation(_ context.Context, key string) (*chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.convs[key]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return cloneConv(c), nil
}

func (s *MemoryStore) ListActiveConversations(_ context.Context, userID string) ([]*chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*chat.Conversation
	for _, c := range s.convs {
		if c.IsActive && c.HasParticipant(userID) {
			out = append(out, cloneConv(c))
		}
	}
	return out, nil
}

func (s *MemoryStore) SetInactive(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[key]
	if !ok {
		return apperr.ErrNotFound
	}
	c.IsActive = false
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) InsertMessage(_ context.Context, m *chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs[m.ChatKey] = append(s.msgs[m.ChatKey], cloneMsg(m))
	return nil
}

func (s *MemoryStore) DeleteMessage(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, list := range s.msgs {
		for i, m := range list {
			if m.ID == id {
				s.msgs[key] = append(list[:i], list[i+1:]...)
				return nil
			}
		}
	}
	return apperr.ErrNotFound
}

func (s *MemoryStore) ListMessages(_ context.Context, key string) ([]*chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.msgs[key]
	out := make([]*chat.Message, len(list))
	for i, m := range list {
		out[i] = cloneMsg(m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *MemoryStore) ApplyAppend(_ context.Context, key string, last chat.LastMessage, incrFor []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[key]
	if !ok {
		return apperr.ErrNotFound
	}
	lm := last
	c.LastMessage = &lm
	c.UpdatedAt = time.Now().UTC()
	if c.UnreadCounts == nil {
		c.UnreadCounts = make(map[string]int)
	}
	for _, uid := range incrFor {
		c.UnreadCounts[uid]++
	}
	return nil
}

func (s *MemoryStore) AppendReadReceipts(_ context.Context, key, userID string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var modified int64
	for _, m := range s.msgs[key] {
		if m.SenderID == userID || m.ReadByUser(userID) {
			continue
		}
		m.ReadBy = append(m.ReadBy, chat.ReadReceipt{UserID: userID, ReadAt: at})
		m.Status = chat.StatusRead
		modified++
	}
	return modified, nil
}

func (s *MemoryStore) ResetUnread(_ context.Context, key, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[key]
	if !ok {
		return apperr.ErrNotFound
	}
	if c.UnreadCounts == nil {
		c.UnreadCounts = make(map[string]int)
	}
	c.UnreadCounts[userID] = 0
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func cloneConv(c *chat.Conversation) *chat.Conversation {
	out := *c
	out.Participants = append([]string(nil), c.Participants...)
	out.UnreadCounts = make(map[string]int, len(c.UnreadCounts))
	for k, v := range c.UnreadCounts {
		out.UnreadCounts[k] = v
	}
	if c.LastMessage != nil {
		lm := *c.LastMessage
		out.LastMessage = &lm
	}
	return &out
}

func cloneMsg(m *chat.Message) *chat.Message {
	out := *m
	out.ReadBy = append([]chat.ReadReceipt(nil), m.ReadBy...)
	return &out
}
