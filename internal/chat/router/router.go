package router

import (
	"context"

	"chat_sync_service/internal/chat/app"
	"chat_sync_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes 注册聊天相关的路由
// @title Chat Sync Service API
// @version 1.0
// @description Inbox and unread counters of the chat service
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func RegisterRoutes(r *fiber.App, chatWebsocket *app.ChatWebsocketHandler, roomsHandler *app.RoomsHandler) {
	r.Get("/swagger/*", swagger.HandlerDefault)
	r.Get("/", app.ConnectCheck)
	r.Post("/debug", app.DebugLogFlag)

	r.Use(middlewares.JWTMiddleware())

	r.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		chatWebsocket.HandleConnection(context.Background(), c)
	}))

	r.Get("/rooms", roomsHandler.ListRooms)
	r.Get("/unread", roomsHandler.Unread)
}
