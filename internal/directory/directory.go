// Package directory is the chat subsystem's read-only view of data owned by
// the profile and match collaborators: display cards for list views and the
// "are these two users matched" precondition for starting a conversation.
package directory

import (
	"context"
	"sync"

	"github.com/Pin3appl3ishan/iLike-web/internal/apperr"
	"github.com/Pin3appl3ishan/iLike-web/internal/chat"
)

// Memory is an in-process chat.Directory used by tests and local runs.
type Memory struct {
	mu      sync.RWMutex
	cards   map[string]chat.UserCard
	matches map[string]bool // chat.Key(a,b) -> matched
}

func NewMemory() *Memory {
	return &Memory{
		cards:   make(map[string]chat.UserCard),
		matches: make(map[string]bool),
	}
}

func (m *Memory) AddUser(card chat.UserCard) {
	m.mu.Lock()
	m.cards[card.ID] = card
	m.mu.Unlock()
}

func (m *Memory) SetMatched(a, b string) {
	m.mu.Lock()
	m.matches[chat.Key(a, b)] = true
	m.mu.Unlock()
}

func (m *Memory) Card(_ context.Context, userID string) (chat.UserCard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cards[userID]
	if !ok {
		return chat.UserCard{}, apperr.ErrNotFound
	}
	return c, nil
}

func (m *Memory) AreMatched(_ context.Context, a, b string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.matches[chat.Key(a, b)], nil
}
