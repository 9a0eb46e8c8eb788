package routes

import (
	"hamsafar_backend/internal/auth"
	"hamsafar_backend/internal/handlers"
	"hamsafar_backend/internal/logger"
	"hamsafar_backend/internal/middleware"
	"hamsafar_backend/ws"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все HTTP и WebSocket маршруты.
func RegisterRoutes(
	ginRouter *gin.Engine,
	appHandlers *handlers.AppHandlers,
	wsHandler *ws.WebSocketHandler,
	verifier *auth.Verifier,
) {
	appHandlers.HealthHandler.RegisterRoutes(&ginRouter.RouterGroup)

	api := ginRouter.Group("/api/v1")
	appHandlers.HealthHandler.RegisterRoutes(api)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(verifier))
	{
		appHandlers.ChatHandler.RegisterRoutes(protected)
	}

	// Браузерный клиент передает токен в ?token=, AuthMiddleware его принимает
	wsGroup := ginRouter.Group("")
	wsGroup.Use(middleware.AuthMiddleware(verifier))
	{
		wsHandler.RegisterRoutes(wsGroup)
		wsHandler.RegisterRoutes(protected)
	}
	logger.Info("WebSocket routes registered", "paths", []string{"/ws", "/api/v1/ws"})
}
