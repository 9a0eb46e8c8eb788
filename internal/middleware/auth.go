package middleware

import (
	"strings"

	"hamsafar_backend/internal/auth"
	"hamsafar_backend/internal/logger"
	"hamsafar_backend/pkg/apperrors"
	"hamsafar_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
)

// UserIDKey - ключ gin-контекста с ID пользователя, как его читает BaseHandler.
const UserIDKey = "userID"

// AuthMiddleware проверяет токен из заголовка Authorization или из ?token=.
// Браузерный WebSocket не умеет ставить заголовки, поэтому query-параметр тоже принимается.
func AuthMiddleware(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := extractToken(c)
		if tokenStr == "" {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("Authorization token missing"))
			return
		}

		identity, err := verifier.Verify(tokenStr)
		if err != nil {
			apperrors.HandleError(c, apperrors.ErrInvalidToken.WithError(err))
			return
		}

		c.Set(string(contextkeys.IdentityContextKey), identity)
		c.Set(UserIDKey, identity.ID)
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), identity.ID))
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return strings.TrimPrefix(c.Query("token"), "Bearer ")
}

// GetIdentity возвращает пользователя, установленного AuthMiddleware.
func GetIdentity(c *gin.Context) (*auth.Identity, bool) {
	val, ok := c.Get(string(contextkeys.IdentityContextKey))
	if !ok {
		return nil, false
	}
	identity, ok := val.(*auth.Identity)
	return identity, ok && identity != nil
}
