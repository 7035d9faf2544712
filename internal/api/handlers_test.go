package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Pin3appl3ishan/iLike-web/internal/api"
	"github.com/Pin3appl3ishan/iLike-web/internal/auth"
	"github.com/Pin3appl3ishan/iLike-web/internal/chat"
	"github.com/Pin3appl3ishan/iLike-web/internal/directory"
	"github.com/Pin3appl3ishan/iLike-web/internal/repository"
	"github.com/Pin3appl3ishan/iLike-web/internal/ws"
)

const testSecret = "handler-test-secret"

type fanout struct {
	ChatKey string
	Event   string
	Payload any
	Exclude string
}

type notifyRecorder struct {
	mu     sync.Mutex
	events []fanout
}

func (r *notifyRecorder) ToConversation(chatKey, event string, payload any, excludeUser string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fanout{ChatKey: chatKey, Event: event, Payload: payload, Exclude: excludeUser})
}

func (r *notifyRecorder) byEvent(event string) []fanout {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []fanout
	for _, e := range r.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	app   *fiber.App
	svc   *chat.Service
	store *repository.MemoryStore
	rec   *notifyRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	dir := directory.NewMemory()
	dir.AddUser(chat.UserCard{ID: "alice", Name: "Alice"})
	dir.AddUser(chat.UserCard{ID: "bob", Name: "Bob"})
	dir.AddUser(chat.UserCard{ID: "carol", Name: "Carol"})
	dir.SetMatched("alice", "bob")

	log := zap.NewNop().Sugar()
	rec := &notifyRecorder{}
	svc := chat.NewService(store, dir, rec, nil, log, 1000)

	verifier, err := auth.NewVerifier(testSecret)
	require.NoError(t, err)

	hub := ws.NewHub()
	gw := ws.NewGateway(hub, svc, verifier, nil, log, 0)

	app := api.New(svc, gw, verifier, nil, nil, log)
	return &fixture{app: app, svc: svc, store: store, rec: rec}
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func (f *fixture) do(t *testing.T, method, path, userID string, body any) *http.Response {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestRequiresAuthentication(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/api/chats", "/api/chats/alice_bob/messages"} {
		resp := f.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateChatLifecycle(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/chats", "alice", fiber.Map{"otherUserId": "bob"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	sum := decode[chat.Summary](t, resp)
	assert.Equal(t, chat.Key("alice", "bob"), sum.ChatID)
	assert.Equal(t, "Bob", sum.OtherUserName)
	assert.Equal(t, "No messages yet", sum.LastMessage)

	// second create from the other side returns the same conversation
	resp = f.do(t, http.MethodPost, "/api/chats", "bob", fiber.Map{"otherUserId": "alice"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	again := decode[chat.Summary](t, resp)
	assert.Equal(t, sum.ChatID, again.ChatID)
}

func TestCreateChatRejections(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/chats", "alice", fiber.Map{"otherUserId": "alice"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/chats", "alice", fiber.Map{"otherUserId": "nobody"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/chats", "alice", fiber.Map{"otherUserId": "carol"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSendAndReadMessages(t *testing.T) {
	f := newFixture(t)
	key := chat.Key("alice", "bob")
	f.do(t, http.MethodPost, "/api/chats", "alice", fiber.Map{"otherUserId": "bob"})

	resp := f.do(t, http.MethodPost, "/api/chats/"+key+"/messages", "alice", fiber.Map{"content": "hi", "type": "text"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	msg := decode[chat.Message](t, resp)
	assert.Equal(t, "hi", msg.Content)
	assert.Equal(t, chat.StatusSent, msg.Status)

	// the REST send still reached push subscribers through the shared service
	assert.Len(t, f.rec.byEvent(chat.EvNewMessage), 1)
	assert.Len(t, f.rec.byEvent(chat.EvChatUpdated), 1)

	// bob sees one unread until he fetches the history
	resp = f.do(t, http.MethodGet, "/api/chats", "bob", nil)
	sums := decode[[]chat.Summary](t, resp)
	require.Len(t, sums, 1)
	assert.Equal(t, 1, sums[0].UnreadCount)
	assert.False(t, sums[0].IsLastMessageFromMe)

	resp = f.do(t, http.MethodGet, "/api/chats/"+key+"/messages", "bob", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	msgs := decode[[]chat.Message](t, resp)
	require.Len(t, msgs, 1)

	// fetching the history acknowledged the conversation
	resp = f.do(t, http.MethodGet, "/api/chats", "bob", nil)
	sums = decode[[]chat.Summary](t, resp)
	require.Len(t, sums, 1)
	assert.Equal(t, 0, sums[0].UnreadCount)
}

func TestSendMessageValidation(t *testing.T) {
	f := newFixture(t)
	key := chat.Key("alice", "bob")
	f.do(t, http.MethodPost, "/api/chats", "alice", fiber.Map{"otherUserId": "bob"})

	resp := f.do(t, http.MethodPost, "/api/chats/"+key+"/messages", "alice", fiber.Map{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/chats/"+key+"/messages", "alice", fiber.Map{"content": "hi", "type": "carrier-pigeon"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOutsiderGetsNotFound(t *testing.T) {
	f := newFixture(t)
	key := chat.Key("alice", "bob")
	f.do(t, http.MethodPost, "/api/chats", "alice", fiber.Map{"otherUserId": "bob"})

	resp := f.do(t, http.MethodGet, "/api/chats/"+key+"/messages", "carol", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/chats/"+key+"/messages", "carol", fiber.Map{"content": "hi"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/chats/"+key+"/read", "carol", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodDelete, "/api/chats/"+key, "carol", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMarkReadEndpoint(t *testing.T) {
	f := newFixture(t)
	key := chat.Key("alice", "bob")
	f.do(t, http.MethodPost, "/api/chats", "alice", fiber.Map{"otherUserId": "bob"})
	f.do(t, http.MethodPost, "/api/chats/"+key+"/messages", "alice", fiber.Map{"content": "hi"})

	resp := f.do(t, http.MethodPost, "/api/chats/"+key+"/read", "bob", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/chats", "bob", nil)
	sums := decode[[]chat.Summary](t, resp)
	require.Len(t, sums, 1)
	assert.Equal(t, 0, sums[0].UnreadCount)
}

func TestDeleteChatHidesFromListOnly(t *testing.T) {
	f := newFixture(t)
	key := chat.Key("alice", "bob")
	f.do(t, http.MethodPost, "/api/chats", "alice", fiber.Map{"otherUserId": "bob"})
	f.do(t, http.MethodPost, "/api/chats/"+key+"/messages", "alice", fiber.Map{"content": "hi"})

	resp := f.do(t, http.MethodDelete, "/api/chats/"+key, "alice", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/chats", "alice", nil)
	sums := decode[[]chat.Summary](t, resp)
	assert.Empty(t, sums)

	resp = f.do(t, http.MethodGet, "/api/chats/"+key+"/messages", "alice", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	msgs := decode[[]chat.Message](t, resp)
	assert.Len(t, msgs, 1)
}

func TestPresenceEndpoint(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/api/presence/bob", "alice", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, false, body["online"])
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
