package ws

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/Pin3appl3ishan/iLike-web/internal/apperr"
	"github.com/Pin3appl3ishan/iLike-web/internal/auth"
	"github.com/Pin3appl3ishan/iLike-web/internal/chat"
	"github.com/Pin3appl3ishan/iLike-web/internal/metrics"
	"github.com/Pin3appl3ishan/iLike-web/internal/presence"
)

const dispatchTimeout = 10 * time.Second

// Gateway is the push side of the chat subsystem: it authenticates incoming
// connections, keeps the hub registry current, and translates inbound events
// into calls on the shared chat service. Store errors never tear down the
// connection; they come back to the caller as message_error frames.
type Gateway struct {
	hub      *Hub
	svc      *chat.Service
	verifier *auth.Verifier
	pres     *presence.Store
	log      *zap.SugaredLogger

	eventsPerSec int
}

func NewGateway(hub *Hub, svc *chat.Service, verifier *auth.Verifier, pres *presence.Store, log *zap.SugaredLogger, eventsPerSec int) *Gateway {
	return &Gateway{
		hub:          hub,
		svc:          svc,
		verifier:     verifier,
		pres:         pres,
		log:          log,
		eventsPerSec: eventsPerSec,
	}
}

func (g *Gateway) Hub() *Hub { return g.hub }

// Handler upgrades and serves one connection. The token travels as a query
// parameter because browsers cannot set headers on websocket upgrades.
// Unauthenticated connections are closed before anything is registered.
func (g *Gateway) Handler() func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		token := conn.Query("token")
		if token == "" {
			_ = conn.Close()
			return
		}
		userID, err := g.verifier.Verify(token)
		if err != nil {
			_ = conn.Close()
			return
		}

		c := newClient(conn, userID, g.eventsPerSec)
		g.hub.Register(c)
		metrics.ActiveConnections.Inc()
		g.markOnline(userID)
		g.hub.BroadcastAll(EvUserOnline, map[string]string{"userId": userID})
		g.log.Infow("connected", "user", userID)

		go c.writePump()
		c.readPump(g)

		// network loss and explicit disconnect land here the same way
		if g.hub.Unregister(c) {
			g.markOffline(userID)
			g.hub.BroadcastAll(EvUserOffline, map[string]string{"userId": userID})
		}
		metrics.ActiveConnections.Dec()
		g.log.Infow("disconnected", "user", userID)
	}
}

func (g *Gateway) dispatch(c *Client, env Envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	if g.pres != nil {
		_ = g.pres.Refresh(ctx, c.userID)
	}

	switch env.Event {
	case EvJoinChat:
		// non-participants are silently ignored rather than errored; the
		// room stays invisible to them either way
		if g.svc.IsParticipant(ctx, c.userID, env.ChatID) {
			g.hub.JoinChat(env.ChatID, c.userID)
		} else {
			g.log.Debugw("join refused", "user", c.userID, "chat", env.ChatID)
		}

	case EvLeaveChat:
		g.hub.LeaveChat(env.ChatID, c.userID)

	case EvTypingStart, EvTypingStop:
		g.hub.ToConversation(env.ChatID, EvUserTyping, map[string]any{
			"userId":   c.userID,
			"chatId":   env.ChatID,
			"isTyping": env.Event == EvTypingStart,
		}, c.userID)

	case EvSendMessage:
		msg, err := g.svc.Append(ctx, c.userID, env.ChatID, env.Content, chat.MessageType(env.Type))
		if err != nil {
			c.enqueue(encode(EvMessageError, map[string]string{"message": userMessage(err)}))
			return
		}
		metrics.MessagesSent.Inc()
		// new_message and chat_updated fan out from the service; the send
		// confirmation goes to the author alone
		c.enqueue(encode(EvMessageSent, msg))

	case EvMarkRead:
		if err := g.svc.MarkAllRead(ctx, c.userID, env.ChatID); err != nil {
			c.enqueue(encode(EvMessageError, map[string]string{"message": userMessage(err)}))
		}

	default:
		g.log.Debugw("unknown event", "user", c.userID, "event", env.Event)
	}
}

// userMessage maps service errors to the human-readable strings carried by
// message_error frames. Internal detail stays in the logs.
func userMessage(err error) string {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return "Invalid message"
	case errors.Is(err, apperr.ErrNotFound):
		return "Chat not found"
	default:
		return "Failed to send message"
	}
}

func (g *Gateway) markOnline(userID string) {
	if g.pres == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := g.pres.SetOnline(ctx, userID); err != nil {
		g.log.Warnw("presence set online", "user", userID, "err", err)
	}
}

func (g *Gateway) markOffline(userID string) {
	if g.pres == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := g.pres.SetOffline(ctx, userID); err != nil {
		g.log.Warnw("presence set offline", "user", userID, "err", err)
	}
}
