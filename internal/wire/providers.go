// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"ebook-assist-api/internal/application/ledger"
	"ebook-assist-api/internal/application/qa"
	"ebook-assist-api/internal/application/wizard"
	"ebook-assist-api/internal/config"
	"ebook-assist-api/internal/domain/repository"
	"ebook-assist-api/internal/infrastructure/export"
	"ebook-assist-api/internal/infrastructure/llm"
	"ebook-assist-api/internal/infrastructure/messaging"
	"ebook-assist-api/internal/infrastructure/persistence/milvus"
	"ebook-assist-api/internal/infrastructure/persistence/postgres"
	"ebook-assist-api/internal/infrastructure/persistence/redis"
	"ebook-assist-api/internal/infrastructure/tts"
	"ebook-assist-api/pkg/logger"
)

// ProvidePostgresClient 提供 PostgreSQL 客户端并同步表结构
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	if err := client.AutoMigrate(); err != nil {
		client.Close()
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideMilvusClient 提供 Milvus 客户端
func ProvideMilvusClient(ctx context.Context, cfg *config.Config) (*milvus.Client, func(), error) {
	client, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideFragmentRepository 提供片段仓储：Milvus 实现外层加目录缓存
func ProvideFragmentRepository(ctx context.Context, milvusClient *milvus.Client, cache *redis.Cache, cfg *config.Config) (repository.FragmentRepository, error) {
	inner := milvus.NewFragmentRepository(milvusClient)
	if err := inner.EnsureCollection(ctx); err != nil {
		logger.Warn(ctx, "failed to ensure fragment collection", "error", err.Error())
	}
	return redis.NewCachedFragmentRepository(inner, cache, cfg.Retrieval.EbookListTTL), nil
}

// ProvideSessionStore 提供向导会话存储
func ProvideSessionStore(client *redis.Client, cfg *config.Config) *redis.SessionStore {
	return redis.NewSessionStore(client, cfg.Wizard.SessionTTL)
}

// ProvideMessagingProducer 提供事件生产者
func ProvideMessagingProducer(redisClient *redis.Client) *messaging.Producer {
	return messaging.NewProducer(redisClient.Redis(), 0)
}

// ProvideEmbeddingConfig 提供 Embedding 配置
func ProvideEmbeddingConfig(cfg *config.Config) *config.EmbeddingConfig {
	return &cfg.Embedding
}

// ProvideTTSClient 提供语音合成客户端
func ProvideTTSClient(cfg *config.Config) *tts.Client {
	return tts.NewClient(&cfg.TTS)
}

// ProvideDocxWriter 提供 DOCX 导出器
func ProvideDocxWriter(cfg *config.Config) *export.DocxWriter {
	return export.NewDocxWriter(&cfg.Export)
}

// ProvideCreditLedger 提供积分账本
func ProvideCreditLedger(
	accountRepo repository.AccountRepository,
	txRepo repository.CreditTransactionRepository,
	txMgr repository.Transactor,
	publisher ledger.EventPublisher,
	cfg *config.Config,
) *ledger.CreditLedger {
	return ledger.NewCreditLedger(accountRepo, txRepo, txMgr, publisher, cfg.Credits.InitialGrant)
}

// ProvideWizardMachine 提供向导状态机
func ProvideWizardMachine(
	store wizard.SessionStore,
	completer wizard.Completer,
	exporter wizard.ExportWriter,
	credits *ledger.CreditLedger,
	publisher wizard.EventPublisher,
	cfg *config.Config,
) *wizard.Machine {
	return wizard.NewMachine(store, completer, exporter, credits, publisher, wizard.Config{
		PerChapterCost:   cfg.Credits.PerChapterCost,
		IndexMaxTokens:   cfg.Wizard.IndexMaxTokens,
		ChapterMaxTokens: cfg.Wizard.ChapterMaxTokens,
	})
}

// ProvideQAService 提供问答服务
func ProvideQAService(
	fragments repository.FragmentRepository,
	embedder qa.Embedder,
	completer qa.Completer,
	speech qa.Synthesizer,
	credits *ledger.CreditLedger,
	cfg *config.Config,
) *qa.Service {
	return qa.NewService(fragments, embedder, completer, speech, credits, qa.Config{
		QuestionCost:    cfg.Credits.QuestionCost,
		TopK:            cfg.Retrieval.TopK,
		AnswerMaxTokens: cfg.Wizard.AnswerMaxTokens,
	})
}

// ProvideCompleter 提供文本补全客户端
func ProvideCompleter(factory *llm.EinoFactory, cfg *config.Config) *llm.Completer {
	return llm.NewCompleter(factory, cfg)
}
