package handler

import (
	"net/http"
	"sync"

	"github.com/docassist/docassist-go/internal/model"
	"github.com/docassist/docassist-go/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: 生产环境应该检查 Origin 白名单
		return true
	},
}

// WebSocketHandler WebSocket 聊天处理器
// 每条消息独立走一次问答链路，按请求应答模式回写
type WebSocketHandler struct {
	chatService         *service.ChatService
	defaultSystemPrompt string
	logger              *zap.Logger
}

// NewWebSocketHandler 创建 WebSocket 处理器
func NewWebSocketHandler(chatService *service.ChatService, defaultSystemPrompt string, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		chatService:         chatService,
		defaultSystemPrompt: defaultSystemPrompt,
		logger:              logger,
	}
}

// wsRequest 客户端消息
type wsRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
	UseRAG         *bool  `json:"useRag"`
}

// wsResponse 服务端回复
type wsResponse struct {
	Success bool                `json:"success"`
	Error   string              `json:"error,omitempty"`
	Data    *model.ChatResponse `json:"data,omitempty"`
}

// HandleWebSocket WebSocket 连接入口
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := c.Query("uid")
	if userID == "" {
		userID = resolveUserID(c)
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket 升级失败", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Info("WebSocket 连接建立", zap.String("userId", userID))

	// 回答是并发生成的，写需要串行化
	var writeMu sync.Mutex
	var wg sync.WaitGroup

	for {
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket 读取错误", zap.Error(err))
			}
			break
		}

		wg.Add(1)
		go func(req wsRequest) {
			defer wg.Done()
			h.handleMessage(c, conn, &writeMu, userID, req)
		}(req)
	}

	wg.Wait()
	h.logger.Info("WebSocket 连接断开", zap.String("userId", userID))
}

// handleMessage 处理单条消息并回写结果
func (h *WebSocketHandler) handleMessage(c *gin.Context, conn *websocket.Conn, writeMu *sync.Mutex, userID string, req wsRequest) {
	useRAG := true
	if req.UseRAG != nil {
		useRAG = *req.UseRAG
	}

	resp, err := h.chatService.SendMessage(c.Request.Context(), &model.ChatRequest{
		UserMessage:    req.Message,
		ConversationID: req.ConversationID,
		UserID:         userID,
		UseRAG:         useRAG,
		SystemPrompt:   h.defaultSystemPrompt,
	})

	writeMu.Lock()
	defer writeMu.Unlock()
	if err != nil {
		h.logger.Error("WebSocket 消息处理失败",
			zap.String("userId", userID),
			zap.Error(err))
		conn.WriteJSON(wsResponse{Success: false, Error: err.Error()})
		return
	}
	conn.WriteJSON(wsResponse{Success: true, Data: resp})
}
