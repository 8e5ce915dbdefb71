package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/internal/chat/repository"
	"chat_sync_service/internal/chat/session"
	"chat_sync_service/pkg/logger"
	"chat_sync_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// defaultPresenceRefresh used when SessionSettings leaves PresenceRefresh unset
const defaultPresenceRefresh = 4 * time.Minute

// SessionSettings live window and page sizes of every session
type SessionSettings struct {
	WindowSize int64
	PageSize   int64
	// PresenceRefresh how often the open room is re-announced; keep it below the presence TTL
	PresenceRefresh time.Duration
}

func (s SessionSettings) presenceRefresh() time.Duration {
	if s.PresenceRefresh <= 0 {
		return defaultPresenceRefresh
	}
	return s.PresenceRefresh
}

// ChatWebsocketHandler 可包含所有需要的 UseCase
type ChatWebsocketHandler struct {
	roomUC    *RoomUseCase
	messageUC *MessageUseCase
	listUC    *RoomListUseCase
	pubSub    repository.PubSub
	presence  session.PresenceSignal
	settings  SessionSettings
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(
	roomUC *RoomUseCase,
	messageUC *MessageUseCase,
	listUC *RoomListUseCase,
	pubSub repository.PubSub,
	presence session.PresenceSignal,
	settings SessionSettings,
) *ChatWebsocketHandler {
	return &ChatWebsocketHandler{
		roomUC:    roomUC,
		messageUC: messageUC,
		listUC:    listUC,
		pubSub:    pubSub,
		presence:  presence,
		settings:  settings,
	}
}

func (h *ChatWebsocketHandler) sessionDeps() session.Deps {
	return session.Deps{
		Source:     h.messageUC,
		Watcher:    NewRoomWatcher(h.pubSub),
		Marker:     h.messageUC,
		Sender:     h.messageUC,
		Rooms:      h.roomUC,
		Presence:   h.presence,
		WindowSize: h.settings.WindowSize,
		PageSize:   h.settings.PageSize,
	}
}

// wsWriter serializes writes, the connection is written from several goroutines
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) send(resp domain.WSResponse) {
	b, err := json.Marshal(resp)
	if err != nil {
		logger.Log.Error("marshal response", zap.String("action", resp.Action), zap.Error(err))
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		logger.Log.Error("write message error", zap.Error(err))
	}
}

func (w *wsWriter) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.PingMessage, []byte("ping message"))
}

// HandleConnection 是 WebSocket 連線的進入點
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	memberID, _ := conn.Locals(middlewares.TokenMemberID).(string)
	if memberID == "" {
		logger.Log.Warn("websocket without member")
		conn.Close()
		return
	}
	logger.Log.Info("websocket handle memberID", zap.String("userID", memberID))

	ticker := time.NewTicker(10 * time.Minute)
	ctxClose, cancel := context.WithCancel(ctx)
	w := &wsWriter{conn: conn}

	sess := session.NewRoomSession(ctxClose, memberID, h.sessionDeps(), func(roomID string, view []domain.DisplayMessage) {
		w.send(domain.WSResponse{
			Action:  string(domain.NotifyMessages),
			Success: true,
			Payload: map[string]interface{}{
				"room_id":  roomID,
				"messages": view,
			},
		})
	})

	defer func() {
		ticker.Stop()
		sess.Close(context.Background())
		logger.Log.Info("websocket close", zap.String("userID", memberID))
		cancel()
		conn.Close()
	}()

	//client發出close
	//fiber會自動處理(在read msg 回傳err),故需要SetCloseHandler另外接出
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Info("WebSocket closed", zap.String("userID", memberID), zap.Int("code", code))
		return nil
	})

	//server發出ping之後client連線正常會回pong
	conn.SetPongHandler(func(appData string) error {
		logger.Log.Debug("Received PONG", zap.String("userID", memberID))
		return nil
	})

	//啟用sub訂閱自己的 room 更新
	err := h.pubSub.Subscribe(ctxClose, repository.UserChannel(memberID), func(payload []byte) {
		var notice domain.RoomUpdatedNotice
		if err := json.Unmarshal(payload, &notice); err != nil {
			logger.Log.Error("room updated unmarshal", zap.Error(err))
			return
		}
		w.send(domain.WSResponse{
			Action:  string(domain.NotifyRoomUpdated),
			Success: true,
			Payload: map[string]interface{}{
				"room_id":      notice.RoomID,
				"last_message": notice.LastMessage,
				"sender_id":    notice.SenderID,
			},
		})
	})
	if err != nil {
		logger.Log.Error("subscribe user channel", zap.String("userID", memberID), zap.Error(err))
	}

	go h.keepPresence(ctxClose, sess, memberID)

	// 定期發送 Ping
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := w.ping(); err != nil {
					logger.Log.Error("Ping error", zap.Error(err))
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		// 1. 讀取前端訊息
		mt, message, err := conn.ReadMessage()
		if err != nil {
			// 檢查是否為 Close 正常結束
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Info("Connection closed", zap.String("userID", memberID))
			} else {
				//直接斷線 1006
				logger.Log.Error("websocket read error", zap.Error(err))
			}
			return
		}

		if mt != websocket.TextMessage {
			w.send(errorResponse("unknown message types"))
			continue
		}

		var req domain.WSRequest
		if err := json.Unmarshal(message, &req); err != nil {
			w.send(errorResponse("invalid request"))
			continue
		}
		w.send(h.HandleRequest(ctxClose, sess, memberID, req))
	}
}

// keepPresence re-announces the open room until ctx is done, so a long stay
// in one room outlives the presence TTL
func (h *ChatWebsocketHandler) keepPresence(ctx context.Context, sess *session.RoomSession, memberID string) {
	ticker := time.NewTicker(h.settings.presenceRefresh())
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := sess.RefreshPresence(ctx); err != nil {
				logger.Log.Warn("refresh presence failed", zap.String("userID", memberID), zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

// HandleRequest run one websocket action for memberID on its session
func (h *ChatWebsocketHandler) HandleRequest(ctx context.Context, sess *session.RoomSession, memberID string, req domain.WSRequest) domain.WSResponse {
	resp := domain.WSResponse{Action: req.Action, Success: false, Payload: map[string]interface{}{}}
	var err error

	switch domain.Action(req.Action) {
	//進入聊天室; peer_id without room starts a first contact
	case domain.EnterRoom:
		var roomID string
		roomID, err = h.enterRoom(ctx, sess, memberID, req)
		if err == nil {
			resp.Payload["room_id"] = roomID
			resp.Payload["pending"] = sess.Phase() != domain.PhaseMessageSent
		}

	case domain.LeaveRoom:
		sess.Leave(ctx)

	case domain.PauseRoom:
		sess.Pause(ctx)

	case domain.ResumeRoom:
		sess.Resume(ctx)

	case domain.LoadOlder:
		var n int
		n, err = sess.LoadOlder(ctx)
		if err == nil {
			resp.Payload["loaded"] = n
			resp.Payload["has_more"] = sess.HasMore()
		}

	//傳送資料, message 都會寫入 db
	case domain.SendMessage:
		var msg *domain.ChatMessage
		msg, err = sess.Send(ctx, req.Content, req.ImageURL)
		if err == nil {
			resp.Payload["message_id"] = msg.ID
		}

	case domain.HideRoom:
		err = h.roomUC.HideRoom(ctx, req.RoomID, memberID)
		if err == nil && sess.RoomID() == req.RoomID {
			sess.Leave(ctx)
		}

	//搜尋所有未讀訊息
	case domain.GetUnread:
		var rooms []domain.RoomSummary
		var total int
		rooms, total, err = h.listUC.Summaries(ctx, memberID)
		if err == nil {
			resp.Payload["rooms"] = rooms
			resp.Payload["total"] = total
		}

	default:
		return errorResponse("unknown action")
	}

	if err != nil {
		resp.Error = err.Error()
		logger.Log.Error("websocket err ", zap.String("MemberID", memberID), zap.String("Action", req.Action), zap.Error(err))
		return resp
	}
	resp.Success = true
	return resp
}

func (h *ChatWebsocketHandler) enterRoom(ctx context.Context, sess *session.RoomSession, memberID string, req domain.WSRequest) (string, error) {
	roomID := req.RoomID
	if req.PeerID != "" {
		if req.PeerID == memberID {
			return "", domain.ErrInvalidPair
		}
		// the pending room is built from the peer, so the id has to agree with it
		pairID := domain.PairRoomID(memberID, req.PeerID)
		if roomID != "" && roomID != pairID {
			return "", domain.ErrPeerMismatch
		}
		roomID = pairID
	}
	if roomID == "" {
		return "", domain.ErrRoomNotFound
	}

	opts := session.OpenOptions{}
	_, err := h.roomUC.FindRoom(ctx, roomID, memberID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrRoomNotFound) && req.PeerID != "":
		opts.Pending = &domain.PendingRoom{
			Participants: [2]string{memberID, req.PeerID},
			PostID:       req.PostID,
		}
		if len(req.SystemMessage) > 0 {
			opts.SystemBody = string(req.SystemMessage)
		}
	default:
		return "", err
	}

	sess.Open(ctx, roomID, opts)
	return roomID, nil
}

func errorResponse(errorMsg string) domain.WSResponse {
	return domain.WSResponse{
		Action:  "error",
		Success: false,
		Payload: map[string]interface{}{
			"error": errorMsg,
		},
	}
}
