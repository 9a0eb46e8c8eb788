package handlers

import (
	"context"
	"net/http"
	"time"

	"hamsafar_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	*BaseHandler
	version string
}

func NewHealthHandler(base *BaseHandler, version string) *HealthHandler {
	return &HealthHandler{BaseHandler: base, version: version}
}

func (h *HealthHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/health", h.Health)
}

// Health проверяет соединение с БД.
func (h *HealthHandler) Health(c *gin.Context) {
	sqlDB, err := h.GetDB(c).DB()
	if err != nil {
		h.HandleServiceError(c, apperrors.ErrStoreUnavailable(err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		h.HandleServiceError(c, apperrors.ErrStoreUnavailable(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.version})
}
