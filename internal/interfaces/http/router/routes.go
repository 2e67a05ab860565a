// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, handlers Handlers) {
	// 电子书目录
	v1.GET("/ebooks", handlers.QA.ListEbooks)

	// 问答
	qa := v1.Group("/qa")
	{
		qa.POST("/ask", handlers.QA.Ask)
		qa.POST("/speak", handlers.QA.Speak)
	}

	// 创建向导
	wizard := v1.Group("/wizard")
	{
		wizard.GET("", handlers.Wizard.State)
		wizard.POST("/input", handlers.Wizard.Input)
		wizard.POST("/reset", handlers.Wizard.Reset)
		wizard.GET("/download", handlers.Wizard.Download)
	}

	// 账户
	account := v1.Group("/account")
	{
		account.GET("", handlers.Account.Get)
		account.GET("/transactions", handlers.Account.Transactions)
	}
}
