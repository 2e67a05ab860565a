// Package llm 提供大模型访问层实现
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ebook-assist-api/internal/config"
	"ebook-assist-api/pkg/metrics"
)

var tracer = otel.Tracer("llm")

// Completer 把 ChatModel 封装成单次阻塞的文本补全调用
type Completer struct {
	factory  *EinoFactory
	provider string
}

// NewCompleter 创建补全客户端，使用配置里的默认 provider
func NewCompleter(factory *EinoFactory, cfg *config.Config) *Completer {
	return &Completer{
		factory:  factory,
		provider: cfg.LLM.DefaultProvider,
	}
}

// Complete 发送单条 user 消息并返回生成文本
func (c *Completer) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	ctx, span := tracer.Start(ctx, "llm.Complete",
		trace.WithAttributes(
			attribute.String("llm.provider", c.provider),
			attribute.Int("llm.max_tokens", maxTokens),
		))
	defer span.End()

	chatModel, err := c.factory.Default(ctx)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	var opts []model.Option
	if maxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(maxTokens))
	}

	start := time.Now()
	msg, err := chatModel.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)}, opts...)
	metrics.LLMCallDuration.WithLabelValues(c.provider, "completion").Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("llm generate failed: %w", err)
	}
	if msg == nil || msg.Content == "" {
		return "", fmt.Errorf("llm returned empty completion")
	}
	return msg.Content, nil
}
