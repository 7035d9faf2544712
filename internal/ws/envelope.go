package ws

import "encoding/json"

// Inbound client event names.
const (
	EvJoinChat    = "join_chat"
	EvLeaveChat   = "leave_chat"
	EvTypingStart = "typing_start"
	EvTypingStop  = "typing_stop"
	EvSendMessage = "send_message"
	EvMarkRead    = "mark_read"
)

// Outbound event names owned by this layer. new_message, chat_updated and
// messages_read are emitted by the chat service (see internal/chat).
const (
	EvUserOnline   = "user_online"
	EvUserOffline  = "user_offline"
	EvUserTyping   = "user_typing"
	EvMessageSent  = "message_sent"
	EvMessageError = "message_error"
)

// Envelope is the inbound wire format. Fields beyond Event are only read by
// the handlers that need them.
type Envelope struct {
	Event   string `json:"event"`
	ChatID  string `json:"chatId,omitempty"`
	Content string `json:"content,omitempty"`
	Type    string `json:"type,omitempty"`
}

// encode renders an outbound frame. Marshal failures cannot happen for the
// payload types this package emits, so the error is dropped.
func encode(event string, data any) []byte {
	b, _ := json.Marshal(struct {
		Event string `json:"event"`
		Data  any    `json:"data,omitempty"`
	}{Event: event, Data: data})
	return b
}
