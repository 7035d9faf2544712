package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Pin3appl3ishan/iLike-web/internal/apperr"
	"github.com/Pin3appl3ishan/iLike-web/internal/auth"
	"github.com/Pin3appl3ishan/iLike-web/internal/chat"
	"github.com/Pin3appl3ishan/iLike-web/internal/metrics"
)

func (s *Server) listChats(c *fiber.Ctx) error {
	sums, err := s.svc.List(c.Context(), auth.UserID(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(sums)
}

type createChatReq struct {
	OtherUserID string `json:"otherUserId"`
}

func (s *Server) createChat(c *fiber.Ctx) error {
	var req createChatReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}
	userID := auth.UserID(c)
	conv, created, err := s.svc.CreateOrGet(c.Context(), userID, req.OtherUserID)
	if err != nil {
		return s.fail(c, err)
	}
	sum, err := s.svc.Get(c.Context(), userID, conv.Key)
	if err != nil {
		return s.fail(c, err)
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(sum)
}

func (s *Server) getChat(c *fiber.Ctx) error {
	sum, err := s.svc.Get(c.Context(), auth.UserID(c), c.Params("chatId"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(sum)
}

func (s *Server) listMessages(c *fiber.Ctx) error {
	msgs, err := s.svc.Messages(c.Context(), auth.UserID(c), c.Params("chatId"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(msgs)
}

type sendMessageReq struct {
	Content string `json:"content"`
	Type    string `json:"type"`
}

func (s *Server) sendMessage(c *fiber.Ctx) error {
	var req sendMessageReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}
	msg, err := s.svc.Append(c.Context(), auth.UserID(c), c.Params("chatId"), req.Content, chat.MessageType(req.Type))
	if err != nil {
		return s.fail(c, err)
	}
	metrics.MessagesSent.Inc()
	return c.Status(fiber.StatusCreated).JSON(msg)
}

func (s *Server) markRead(c *fiber.Ctx) error {
	if err := s.svc.MarkAllRead(c.Context(), auth.UserID(c), c.Params("chatId")); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Messages marked as read"})
}

func (s *Server) deleteChat(c *fiber.Ctx) error {
	if err := s.svc.SoftDelete(c.Context(), auth.UserID(c), c.Params("chatId")); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Chat deleted successfully"})
}

func (s *Server) getPresence(c *fiber.Ctx) error {
	userID := c.Params("userId")
	online := s.gw.Hub().IsOnline(userID)
	if !online && s.pres != nil {
		// another instance may own the connection
		if ok, err := s.pres.IsOnline(c.Context(), userID); err == nil {
			online = ok
		}
	}
	return c.JSON(fiber.Map{"userId": userID, "online": online})
}

// fail maps the service error taxonomy onto HTTP statuses. Forbidden stays
// 403 only where existence is not leaked (the not-matched precondition);
// participancy failures already arrive collapsed to not-found.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, apperr.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Chat not found"})
	case errors.Is(err, apperr.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You must be matched to start a chat"})
	case errors.Is(err, apperr.ErrUnauthenticated):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	case errors.Is(err, apperr.ErrUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "service unavailable"})
	default:
		s.log.Errorw("unhandled error", "path", c.Path(), "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
