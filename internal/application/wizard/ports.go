package wizard

import (
	"context"

	"ebook-assist-api/internal/domain/entity"
)

// Completer 生成网关：给定 prompt 返回生成文本，单次阻塞调用
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// ExportWriter 导出网关：把完整内容列表写成 DOCX，返回文件路径
type ExportWriter interface {
	WriteEbook(ctx context.Context, title string, content []entity.ContentEntry) (string, error)
}

// SessionStore 向导会话存储。Get 未命中时返回 nil, nil。
type SessionStore interface {
	Get(ctx context.Context, id string) (*entity.WizardSession, error)
	Save(ctx context.Context, session *entity.WizardSession) error
	Delete(ctx context.Context, id string) error
}

// EventPublisher 领域事件发布接口
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}
