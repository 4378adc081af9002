package middleware

import (
	"net/http"
	"strings"

	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/dto"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/models"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthRequired валидирует Bearer access-токен и кладёт принципала в
// контекст запроса, откуда его читает сервисный слой.
func AuthRequired(tokens service.TokenProvider, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("missing Authorization header"))
			return
		}
		tok, ok := ExtractBearerToken(authz)
		if !ok || tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("invalid Authorization header"))
			return
		}

		claims, err := tokens.ParseAndValidateAccess(c.Request.Context(), tok)
		if err != nil {
			log.Warn("Невалидный access-токен", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("invalid token"))
			return
		}

		p := service.Principal{UserID: claims.UserID, Role: models.Role(claims.Role)}
		c.Request = c.Request.WithContext(service.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

// ExtractBearerToken извлекает токен из заголовка Authorization.
func ExtractBearerToken(authz string) (string, bool) {
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	t := strings.Trim(strings.TrimSpace(parts[1]), " \"'")
	if i := strings.IndexByte(t, ' '); i >= 0 {
		t = t[:i]
	}
	return t, t != ""
}
