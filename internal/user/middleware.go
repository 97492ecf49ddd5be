package user

import (
	"net/http"

	"github.com/SlpAus/omikuji-record-backend/internal/platform/logger"
	"github.com/SlpAus/omikuji-record-backend/pkg/token"
	"github.com/gin-gonic/gin"
)

const (
	CookieName   = "user-id"
	CookieMaxAge = 365 * 24 * 60 * 60
	UserIDKey    = "userID"
)

// EnsureUserCookieMiddleware 确保请求带有一个签名有效的user-id cookie，
// 并把用户ID放入Gin上下文。没有或无效时分发一个新的ID。
func EnsureUserCookieMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(CookieName)
		userID, ok := token.Verify(raw)

		if err != nil || !ok || !IsValidUUID(userID) {
			if err != http.ErrNoCookie {
				logger.L.Infow("检测到无效的用户Cookie", "cookie", raw)
			}
			userID, err = CreateProvisionalUser()
			if err != nil {
				logger.L.Errorw("创建用户ID时发生错误", "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "无法创建用户标识"})
				return
			}
			c.SetCookie(CookieName, token.Sign(userID), CookieMaxAge, "/", "", false, true)
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// CurrentUserID 返回中间件放入上下文的用户ID
func CurrentUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
