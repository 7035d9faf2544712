package ws

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Pin3appl3ishan/iLike-web/internal/chat"
	"github.com/Pin3appl3ishan/iLike-web/internal/directory"
	"github.com/Pin3appl3ishan/iLike-web/internal/repository"
)

func newTestGateway(t *testing.T) (*Gateway, *chat.Service) {
	t.Helper()
	store := repository.NewMemoryStore()
	dir := directory.NewMemory()
	dir.AddUser(chat.UserCard{ID: "alice", Name: "Alice"})
	dir.AddUser(chat.UserCard{ID: "bob", Name: "Bob"})
	dir.AddUser(chat.UserCard{ID: "carol", Name: "Carol"})
	dir.SetMatched("alice", "bob")

	hub := NewHub()
	svc := chat.NewService(store, dir, hub, nil, zap.NewNop().Sugar(), 1000)
	gw := NewGateway(hub, svc, nil, nil, zap.NewNop().Sugar(), 0)
	return gw, svc
}

func connect(gw *Gateway, userID string) *Client {
	c := newClient(nil, userID, 0)
	gw.hub.Register(c)
	return c
}

func TestJoinChatRequiresParticipancy(t *testing.T) {
	gw, svc := newTestGateway(t)
	conv, _, err := svc.CreateOrGet(context.Background(), "alice", "bob")
	require.NoError(t, err)

	bob := connect(gw, "bob")
	carol := connect(gw, "carol")

	gw.dispatch(bob, Envelope{Event: EvJoinChat, ChatID: conv.Key})
	gw.dispatch(carol, Envelope{Event: EvJoinChat, ChatID: conv.Key})

	gw.hub.ToConversation(conv.Key, "probe", nil, "")
	assert.Equal(t, []string{"probe"}, eventNames(drain(t, bob)))
	// the outsider's join is silently ignored
	assert.Empty(t, drain(t, carol))
}

func TestSendMessageFlow(t *testing.T) {
	gw, svc := newTestGateway(t)
	ctx := context.Background()
	conv, _, err := svc.CreateOrGet(ctx, "alice", "bob")
	require.NoError(t, err)

	alice := connect(gw, "alice")
	bob := connect(gw, "bob")
	gw.dispatch(alice, Envelope{Event: EvJoinChat, ChatID: conv.Key})
	gw.dispatch(bob, Envelope{Event: EvJoinChat, ChatID: conv.Key})

	gw.dispatch(alice, Envelope{Event: EvSendMessage, ChatID: conv.Key, Content: "hi", Type: "text"})

	// sender: chat_updated from the service plus their own confirmation
	aliceEvents := eventNames(drain(t, alice))
	assert.Contains(t, aliceEvents, chat.EvChatUpdated)
	assert.Contains(t, aliceEvents, EvMessageSent)
	assert.NotContains(t, aliceEvents, chat.EvNewMessage)

	// recipient: the message itself plus the list-view update
	bobEvents := eventNames(drain(t, bob))
	assert.Contains(t, bobEvents, chat.EvNewMessage)
	assert.Contains(t, bobEvents, chat.EvChatUpdated)
	assert.NotContains(t, bobEvents, EvMessageSent)

	msgs, err := svc.Messages(ctx, "bob", conv.Key)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Content)
}

func TestSendMessageErrorsGoToCallerOnly(t *testing.T) {
	gw, _ := newTestGateway(t)
	alice := connect(gw, "alice")
	bob := connect(gw, "bob")

	gw.dispatch(alice, Envelope{Event: EvSendMessage, ChatID: "no_such_chat", Content: "hi"})

	frames := drain(t, alice)
	require.Equal(t, []string{EvMessageError}, eventNames(frames))
	data := frames[0]["data"].(map[string]any)
	assert.Equal(t, "Chat not found", data["message"])
	assert.Empty(t, drain(t, bob))
}

func TestSendMessageValidationError(t *testing.T) {
	gw, svc := newTestGateway(t)
	conv, _, err := svc.CreateOrGet(context.Background(), "alice", "bob")
	require.NoError(t, err)

	alice := connect(gw, "alice")
	gw.dispatch(alice, Envelope{Event: EvSendMessage, ChatID: conv.Key, Content: "   "})

	frames := drain(t, alice)
	require.Equal(t, []string{EvMessageError}, eventNames(frames))
	data := frames[0]["data"].(map[string]any)
	assert.Equal(t, "Invalid message", data["message"])
}

func TestTypingIndicatorsFanOutWithoutPersisting(t *testing.T) {
	gw, svc := newTestGateway(t)
	ctx := context.Background()
	conv, _, err := svc.CreateOrGet(ctx, "alice", "bob")
	require.NoError(t, err)

	alice := connect(gw, "alice")
	bob := connect(gw, "bob")
	gw.dispatch(alice, Envelope{Event: EvJoinChat, ChatID: conv.Key})
	gw.dispatch(bob, Envelope{Event: EvJoinChat, ChatID: conv.Key})

	gw.dispatch(alice, Envelope{Event: EvTypingStart, ChatID: conv.Key})
	gw.dispatch(alice, Envelope{Event: EvTypingStop, ChatID: conv.Key})

	assert.Empty(t, drain(t, alice), "typing echoes must not return to the typist")
	frames := drain(t, bob)
	require.Equal(t, []string{EvUserTyping, EvUserTyping}, eventNames(frames))
	assert.Equal(t, true, frames[0]["data"].(map[string]any)["isTyping"])
	assert.Equal(t, false, frames[1]["data"].(map[string]any)["isTyping"])

	msgs, err := svc.Messages(ctx, "alice", conv.Key)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMarkReadBroadcastsReceipt(t *testing.T) {
	gw, svc := newTestGateway(t)
	ctx := context.Background()
	conv, _, err := svc.CreateOrGet(ctx, "alice", "bob")
	require.NoError(t, err)

	alice := connect(gw, "alice")
	bob := connect(gw, "bob")
	gw.dispatch(alice, Envelope{Event: EvJoinChat, ChatID: conv.Key})
	gw.dispatch(bob, Envelope{Event: EvJoinChat, ChatID: conv.Key})

	gw.dispatch(alice, Envelope{Event: EvSendMessage, ChatID: conv.Key, Content: "hi"})
	drain(t, alice)
	drain(t, bob)

	gw.dispatch(bob, Envelope{Event: EvMarkRead, ChatID: conv.Key})

	aliceFrames := drain(t, alice)
	require.Equal(t, []string{chat.EvMessagesRead}, eventNames(aliceFrames))
	data := aliceFrames[0]["data"].(map[string]any)
	assert.Equal(t, "bob", data["readBy"])
	assert.Empty(t, drain(t, bob), "reader gets no echo of their own receipt")
}

func TestUnknownEventIsIgnored(t *testing.T) {
	gw, _ := newTestGateway(t)
	alice := connect(gw, "alice")
	gw.dispatch(alice, Envelope{Event: "reticulate_splines"})
	assert.Empty(t, drain(t, alice))
}
