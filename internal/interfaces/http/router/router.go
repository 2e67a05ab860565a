// Package router 提供 HTTP 路由配置
package router

import (
	"ebook-assist-api/internal/application/ledger"
	"ebook-assist-api/internal/config"
	"ebook-assist-api/internal/interfaces/http/handler"
	"ebook-assist-api/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router HTTP 路由器
type Router struct {
	engine *gin.Engine
	cfg    *config.Config
}

// Handlers 路由依赖的处理器集合
type Handlers struct {
	Health  *handler.HealthHandler
	QA      *handler.QAHandler
	Wizard  *handler.WizardHandler
	Account *handler.AccountHandler
}

// New 创建新的路由器
func New(
	cfg *config.Config,
	handlers Handlers,
	credits *ledger.CreditLedger,
	limiter middleware.RateLimiter,
) *Router {
	// 设置 Gin 模式
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	r := &Router{
		engine: engine,
		cfg:    cfg,
	}

	r.setupMiddleware()
	r.setupRoutes(handlers, credits, limiter)

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置全局中间件
func (r *Router) setupMiddleware() {
	// 基础中间件
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	// CORS 中间件
	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	// 追踪中间件
	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	// 指标中间件
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}
}

// setupRoutes 配置路由
func (r *Router) setupRoutes(handlers Handlers, credits *ledger.CreditLedger, limiter middleware.RateLimiter) {
	// 系统端点
	r.engine.GET("/health", handlers.Health.Health)
	r.engine.GET("/ready", handlers.Health.Ready)
	r.engine.GET("/live", handlers.Health.Live)

	// Prometheus 指标端点
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// API v1 路由组：先解析账户，再做账户级限流
	v1 := r.engine.Group("/v1")
	v1.Use(middleware.Account(credits))
	v1.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:           r.cfg.Security.RateLimit.Enabled,
		RequestsPerWindow: r.cfg.Security.RateLimit.RequestsPerWindow,
		Window:            r.cfg.Security.RateLimit.Window,
	}, limiter))

	RegisterV1Routes(v1, handlers)
}
