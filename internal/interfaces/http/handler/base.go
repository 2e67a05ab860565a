// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"ebook-assist-api/internal/application/wizard"
	"ebook-assist-api/internal/domain/entity"
	"ebook-assist-api/internal/interfaces/http/dto"
	"ebook-assist-api/internal/interfaces/http/middleware"
	apperrors "ebook-assist-api/pkg/errors"
	"ebook-assist-api/pkg/logger"
)

// currentAccount 从 Gin Context 取出账户中间件解析的账户
func currentAccount(c *gin.Context) (*entity.Account, bool) {
	v, ok := c.Get(middleware.ContextAccountKey)
	if !ok {
		return nil, false
	}
	account, ok := v.(*entity.Account)
	return account, ok
}

// sessionID 从 Gin Context 取出向导会话标识
func sessionID(c *gin.Context) string {
	return c.GetString(middleware.ContextSessionIDKey)
}

// respondError 把应用错误映射到 HTTP 响应
func respondError(c *gin.Context, err error) {
	if validationErr, ok := err.(wizard.ValidationError); ok {
		dto.BadRequest(c, validationErr.Error())
		return
	}
	if appErr, ok := err.(*apperrors.AppError); ok {
		if appErr.HTTPStatus >= 500 {
			logger.Error(c.Request.Context(), "request failed", err, "path", c.Request.URL.Path)
		}
		dto.AppError(c, appErr)
		return
	}
	logger.Error(c.Request.Context(), "request failed", err, "path", c.Request.URL.Path)
	dto.InternalError(c, "internal server error")
}
