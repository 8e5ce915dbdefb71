package app

import (
	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/pkg/logger"
	"chat_sync_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RoomsHandler REST read side of the inbox
type RoomsHandler struct {
	listUC *RoomListUseCase
}

// NewRoomsHandler create RoomsHandler
func NewRoomsHandler(listUC *RoomListUseCase) *RoomsHandler {
	return &RoomsHandler{listUC: listUC}
}

// RoomsRes response of GET /rooms
type RoomsRes struct {
	Rooms []domain.RoomSummary `json:"rooms"`
	Total int                  `json:"total"`
}

// UnreadRes response of GET /unread
type UnreadRes struct {
	Total int `json:"total"`
}

// ListRooms 取得聊天室列表
// @Summary 取得聊天室列表
// @Description rooms visible to the viewer, newest first, with unread counts
// @Tags Chat
// @Produce json
// @Security BearerAuth
// @Success 200 {object} RoomsRes
// @Failure 401 {object} string "未授權"
// @Failure 500 {object} string "服务器错误"
// @Router /rooms [get]
func (h *RoomsHandler) ListRooms(c *fiber.Ctx) error {
	memberID, _ := c.Locals(middlewares.TokenMemberID).(string)
	if memberID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	rooms, total, err := h.listUC.Summaries(c.UserContext(), memberID)
	if err != nil {
		logger.Log.Error("list rooms", zap.String("MemberID", memberID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(RoomsRes{Rooms: rooms, Total: total})
}

// Unread 取得未讀總數
// @Summary 取得未讀總數
// @Description sum of the viewer's unread counters over visible rooms
// @Tags Chat
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UnreadRes
// @Failure 401 {object} string "未授權"
// @Failure 500 {object} string "服务器错误"
// @Router /unread [get]
func (h *RoomsHandler) Unread(c *fiber.Ctx) error {
	memberID, _ := c.Locals(middlewares.TokenMemberID).(string)
	if memberID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	_, total, err := h.listUC.Summaries(c.UserContext(), memberID)
	if err != nil {
		logger.Log.Error("unread total", zap.String("MemberID", memberID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(UnreadRes{Total: total})
}

// ConnectCheck health check
func ConnectCheck(c *fiber.Ctx) error {
	return c.SendString("ok")
}

// DebugLogFlag 切換 debug log
func DebugLogFlag(c *fiber.Ctx) error {
	type request struct {
		Debug bool `json:"debug"`
	}
	var req request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}
	logger.Log.SetDebugMode(req.Debug)
	return c.JSON(fiber.Map{"debug": req.Debug})
}
