// Package api is the synchronous request/response gateway. Handlers are thin
// wrappers over the shared chat service; everything observable through this
// surface is also reachable through the push gateway and vice versa.
package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Pin3appl3ishan/iLike-web/internal/auth"
	"github.com/Pin3appl3ishan/iLike-web/internal/chat"
	"github.com/Pin3appl3ishan/iLike-web/internal/presence"
	"github.com/Pin3appl3ishan/iLike-web/internal/ws"
)

type Server struct {
	svc  *chat.Service
	gw   *ws.Gateway
	pres *presence.Store
	log  *zap.SugaredLogger
}

// New assembles the fiber app: health and metrics unauthenticated, the /api
// surface behind the auth bridge, and the websocket upgrade on /api/ws using
// its own query-token authentication inside the gateway handler.
func New(svc *chat.Service, gw *ws.Gateway, verifier *auth.Verifier, pres *presence.Store, limiter fiber.Handler, log *zap.SugaredLogger) *fiber.App {
	s := &Server{svc: svc, gw: gw, pres: pres, log: log}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Use("/api/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/api/ws", websocket.New(gw.Handler()))

	grp := app.Group("/api", auth.Middleware(verifier))
	if limiter != nil {
		grp.Use(limiter)
	}

	grp.Get("/chats", s.listChats)
	grp.Post("/chats", s.createChat)
	grp.Get("/chats/:chatId", s.getChat)
	grp.Delete("/chats/:chatId", s.deleteChat)
	grp.Get("/chats/:chatId/messages", s.listMessages)
	grp.Post("/chats/:chatId/messages", s.sendMessage)
	grp.Post("/chats/:chatId/read", s.markRead)
	grp.Get("/presence/:userId", s.getPresence)

	return app
}
