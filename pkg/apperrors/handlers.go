package apperrors

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

// RetryAfterSeconds - значение заголовка Retry-After для 503.
const RetryAfterSeconds = 5

var debugMode atomic.Bool

// SetDebug включает вывод текста внутренних ошибок клиенту.
func SetDebug(debug bool) {
	debugMode.Store(debug)
}

// ErrorResponse - стандартный ответ об ошибке
type ErrorResponse struct {
	Error *AppError `json:"error"`
}

// GinErrorHandler - обработчик ошибок для Gin
type GinErrorHandler struct {
	Debug bool
}

func (h *GinErrorHandler) HandleGinError(c *gin.Context, err error) {
	appErr, ok := AsAppError(err)
	if !ok {
		appErr = InternalError(err)
	}
	if appErr.HTTPCode >= http.StatusInternalServerError && !h.Debug {
		// В продакшене скрываем детали
		appErr = appErr.WithDetails(nil)
	}

	if appErr.HTTPCode >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "server error",
			"code", appErr.Code,
			"error", appErr.Unwrap(),
			"path", c.Request.URL.Path,
		)
	}

	if appErr.Code == CodeStoreUnavailable {
		c.Header("Retry-After", strconv.Itoa(RetryAfterSeconds))
	}

	c.AbortWithStatusJSON(appErr.HTTPCode, ErrorResponse{Error: appErr})
}

// HandleError - быстрая функция-помощник для Gin
func HandleError(c *gin.Context, err error) {
	handler := &GinErrorHandler{Debug: debugMode.Load()}
	handler.HandleGinError(c, err)
}
