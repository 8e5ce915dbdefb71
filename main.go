package main

import (
	"chat_sync_service/internal/chat/router"

	"github.com/gofiber/fiber/v2"
)

// 此程式用於 init swagger, 不啟動服務
// swag init output ./docs
func main() {
	app := fiber.New()

	// 注册路由
	router.RegisterRoutes(app, nil, nil)
}
