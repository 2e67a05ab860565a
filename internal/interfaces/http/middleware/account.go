// Package middleware 提供 HTTP 中间件
package middleware

import (
	"net/http"
	"net/mail"

	"github.com/gin-gonic/gin"

	"ebook-assist-api/internal/application/ledger"
	"ebook-assist-api/pkg/logger"
)

const (
	// AccountEmailHeader 账户标识头
	AccountEmailHeader = "X-Account-Email"
	// SessionIDHeader 向导会话标识头
	SessionIDHeader = "X-Session-ID"

	// ContextAccountKey Gin Context 中的账户键
	ContextAccountKey = "account"
	// ContextSessionIDKey Gin Context 中的会话键
	ContextSessionIDKey = "session_id"
)

// Account 账户解析中间件。
// 从 X-Account-Email 解析账户，首次出现的邮箱自动建档并发放初始积分。
func Account(credits *ledger.CreditLedger) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.GetHeader(AccountEmailHeader)
		if email == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    http.StatusUnauthorized,
				"message": "missing " + AccountEmailHeader + " header",
			})
			return
		}
		if _, err := mail.ParseAddress(email); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"code":    http.StatusBadRequest,
				"message": "invalid email address",
			})
			return
		}

		account, err := credits.GetOrCreate(c.Request.Context(), email)
		if err != nil {
			logger.Error(c.Request.Context(), "failed to resolve account", err, "email", email)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":    http.StatusInternalServerError,
				"message": "failed to resolve account",
			})
			return
		}

		c.Set(ContextAccountKey, account)

		ctx := logger.WithContext(c.Request.Context(), logger.AccountIDKey, account.ID)
		if sessionID := c.GetHeader(SessionIDHeader); sessionID != "" {
			c.Set(ContextSessionIDKey, sessionID)
			ctx = logger.WithContext(ctx, logger.SessionIDKey, sessionID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
