package ws

import (
	"context"
	"net/http"

	"hamsafar_backend/internal/logger"
	"hamsafar_backend/internal/middleware"
	"hamsafar_backend/internal/services"
	"hamsafar_backend/internal/validator"
	"hamsafar_backend/pkg/apperrors"
	"hamsafar_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

type WebSocketHandler struct {
	Manager     *WebSocketManager
	chatService services.ChatService
	validator   *validator.Validator
	upgrader    websocket.Upgrader
}

func NewWebSocketHandler(
	manager *WebSocketManager,
	chatService services.ChatService,
	v *validator.Validator,
	allowedOrigins []string,
) *WebSocketHandler {
	return &WebSocketHandler{
		Manager:     manager,
		chatService: chatService,
		validator:   v,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker: без заголовка Origin (мобильный клиент) пускаем, "*" пускает всех.
func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	allowAll := lo.Contains(allowedOrigins, "*")
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowAll || lo.Contains(allowedOrigins, origin)
	}
}

func (h *WebSocketHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/ws", h.ServeWS)
}

// ServeWS поднимает соединение для пользователя из AuthMiddleware.
func (h *WebSocketHandler) ServeWS(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		apperrors.HandleError(c, apperrors.NewUnauthorizedError("User not authenticated"))
		return
	}

	db, ok := c.MustGet(string(contextkeys.DBContextKey)).(*gorm.DB)
	if !ok {
		apperrors.HandleError(c, apperrors.InternalError(nil))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrader уже ответил клиенту
		logger.CtxWarn(c.Request.Context(), "WebSocket upgrade error", "error", err)
		return
	}

	// контекст запроса отменяется после выхода из обработчика, соединение живет дольше
	ctx := context.WithoutCancel(c.Request.Context())
	client := newClient(ctx, h.Manager, conn, identity, db, h.chatService, h.validator)

	if !h.Manager.Register(client) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server is shutting down"))
		_ = conn.Close()
		return
	}
	logger.CtxInfo(client.ctx, "WebSocket client connected")

	go client.writePump()
	go client.readPump()
}
