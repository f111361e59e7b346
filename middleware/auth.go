package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"bookkeeping/services"

	"github.com/gin-gonic/gin"
)

// AuthErrorPath - куда перенаправляется неаутентифицированный запрос
const AuthErrorPath = "/auth_error"

const identityKey = "identity"

// SessionValidator проверяет токен сессии
type SessionValidator interface {
	Validate(ctx context.Context, token string) (services.Identity, error)
}

// SessionAuth пропускает запрос только с действующей сессией.
// Токен берется из cookie или из заголовка Authorization: Bearer.
// Без сессии клиент получает 302 на /auth_error?next=<путь>.
func SessionAuth(sessions SessionValidator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c, cookieName)

		identity, err := sessions.Validate(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, services.ErrUnauthorized) {
				c.Error(err)
			}
			redirectToAuthError(c)
			return
		}

		c.Set(identityKey, identity)
		c.Request = c.Request.WithContext(services.WithIdentity(c.Request.Context(), identity))
		c.Next()
	}
}

// CurrentIdentity возвращает пользователя, установленного SessionAuth
func CurrentIdentity(c *gin.Context) (services.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return services.IdentityFromContext(c.Request.Context())
	}
	identity, ok := v.(services.Identity)
	return identity, ok
}

func extractToken(c *gin.Context, cookieName string) string {
	if header := c.GetHeader("Authorization"); header != "" {
		// Убираем префикс "Bearer " если он есть
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := c.Cookie(cookieName); err == nil {
		return cookie
	}
	return ""
}

func redirectToAuthError(c *gin.Context) {
	target := AuthErrorPath + "?next=" + url.QueryEscape(c.Request.URL.Path)
	c.Redirect(http.StatusFound, target)
	c.Abort()
}
