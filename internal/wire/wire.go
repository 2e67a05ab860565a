//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"ebook-assist-api/internal/application/ledger"
	"ebook-assist-api/internal/application/qa"
	"ebook-assist-api/internal/application/wizard"
	"ebook-assist-api/internal/config"
	"ebook-assist-api/internal/domain/repository"
	"ebook-assist-api/internal/infrastructure/embedding"
	"ebook-assist-api/internal/infrastructure/export"
	"ebook-assist-api/internal/infrastructure/llm"
	"ebook-assist-api/internal/infrastructure/messaging"
	"ebook-assist-api/internal/infrastructure/persistence/postgres"
	"ebook-assist-api/internal/infrastructure/persistence/redis"
	"ebook-assist-api/internal/infrastructure/tts"
	"ebook-assist-api/internal/interfaces/http/handler"
	"ebook-assist-api/internal/interfaces/http/middleware"
	"ebook-assist-api/internal/interfaces/http/router"
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		PostgresSet,
		RedisSet,
		MilvusSet,
		GatewaySet,
		ApplicationSet,
		RouterSet,
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewAccountRepository,
	postgres.NewCreditTransactionRepository,
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
	wire.Bind(new(repository.AccountRepository), new(*postgres.AccountRepository)),
	wire.Bind(new(repository.CreditTransactionRepository), new(*postgres.CreditTransactionRepository)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
	redis.NewRateLimiter,
	ProvideSessionStore,
	ProvideMessagingProducer,
	wire.Bind(new(middleware.RateLimiter), new(*redis.RateLimiter)),
	wire.Bind(new(wizard.SessionStore), new(*redis.SessionStore)),
	wire.Bind(new(wizard.EventPublisher), new(*messaging.Producer)),
	wire.Bind(new(ledger.EventPublisher), new(*messaging.Producer)),
)

// MilvusSet Milvus 提供者集合
var MilvusSet = wire.NewSet(
	ProvideMilvusClient,
	ProvideFragmentRepository,
)

// GatewaySet 外部网关提供者集合
var GatewaySet = wire.NewSet(
	llm.NewEinoFactory,
	ProvideCompleter,
	ProvideEmbeddingConfig,
	embedding.NewClient,
	ProvideTTSClient,
	ProvideDocxWriter,
	wire.Bind(new(wizard.Completer), new(*llm.Completer)),
	wire.Bind(new(qa.Completer), new(*llm.Completer)),
	wire.Bind(new(qa.Embedder), new(*embedding.Client)),
	wire.Bind(new(qa.Synthesizer), new(*tts.Client)),
	wire.Bind(new(wizard.ExportWriter), new(*export.DocxWriter)),
)

// ApplicationSet 应用服务提供者集合
var ApplicationSet = wire.NewSet(
	ProvideCreditLedger,
	ProvideWizardMachine,
	ProvideQAService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	handler.NewHealthHandler,
	handler.NewQAHandler,
	handler.NewWizardHandler,
	handler.NewAccountHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)
