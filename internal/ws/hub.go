package ws

import "sync"

// Hub is the in-memory connection registry and room table. One live client
// per user: a reconnect supersedes the previous registry entry without
// closing the old physical connection (it simply stops being addressable).
// All state is volatile and rebuilt from scratch on restart.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client             // userID -> live client
	rooms   map[string]map[string]struct{} // room name -> set of userIDs
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]struct{}),
	}
}

func chatRoom(chatKey string) string { return "chat_" + chatKey }
func userRoom(userID string) string  { return "user_" + userID }

// Register maps the user to this client, superseding any previous entry, and
// subscribes them to their personal room.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.userID] = c
	h.joinLocked(userRoom(c.userID), c.userID)
}

// Unregister removes the registry entry and all room memberships, but only
// if c is still the current client for that user: a disconnect arriving
// after a reconnect must not evict the newer connection.
func (h *Hub) Unregister(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.userID] != c {
		return false
	}
	delete(h.clients, c.userID)
	for room, members := range h.rooms {
		delete(members, c.userID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	return true
}

func (h *Hub) JoinChat(chatKey, userID string) {
	h.mu.Lock()
	h.joinLocked(chatRoom(chatKey), userID)
	h.mu.Unlock()
}

func (h *Hub) LeaveChat(chatKey, userID string) {
	h.mu.Lock()
	if members, ok := h.rooms[chatRoom(chatKey)]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(h.rooms, chatRoom(chatKey))
		}
	}
	h.mu.Unlock()
}

func (h *Hub) joinLocked(room, userID string) {
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[string]struct{})
	}
	h.rooms[room][userID] = struct{}{}
}

// ToConversation fans an event out to the subscribers of a conversation
// room. It implements chat.Notifier, which is how REST-path mutations reach
// live connections too. excludeUser may be empty.
func (h *Hub) ToConversation(chatKey, event string, payload any, excludeUser string) {
	frame := encode(event, payload)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for userID := range h.rooms[chatRoom(chatKey)] {
		if userID == excludeUser {
			continue
		}
		if c, ok := h.clients[userID]; ok {
			c.enqueue(frame)
		}
	}
}

// BroadcastAll sends an event to every connected user. Used for presence.
func (h *Hub) BroadcastAll(event string, payload any) {
	frame := encode(event, payload)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.enqueue(frame)
	}
}

// SendToUser targets one user's live connection, if any.
func (h *Hub) SendToUser(userID, event string, payload any) {
	h.mu.RLock()
	c, ok := h.clients[userID]
	h.mu.RUnlock()
	if ok {
		c.enqueue(encode(event, payload))
	}
}

// IsOnline reports whether the user has a live registry entry.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	_, ok := h.clients[userID]
	h.mu.RUnlock()
	return ok
}
