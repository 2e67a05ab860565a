// Package redis 提供向导会话存储实现
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ebook-assist-api/internal/domain/entity"
)

// SessionStore 向导会话存储。
// 会话随 TTL 过期而消失，过期后向导从第一步重新开始。
type SessionStore struct {
	client *Client
	ttl    time.Duration
}

// NewSessionStore 创建会话存储
func NewSessionStore(client *Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return "wizard:session:" + id
}

// Get 获取会话，未命中返回 nil, nil
func (s *SessionStore) Get(ctx context.Context, id string) (*entity.WizardSession, error) {
	ctx, span := tracer.Start(ctx, "session.Get",
		trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	data, err := s.client.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if IsNil(err) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session entity.WizardSession
	if err := json.Unmarshal(data, &session); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// Save 保存会话并刷新 TTL
func (s *SessionStore) Save(ctx context.Context, session *entity.WizardSession) error {
	ctx, span := tracer.Start(ctx, "session.Save",
		trace.WithAttributes(
			attribute.String("session.id", session.ID),
			attribute.String("session.step", string(session.Step)),
		))
	defer span.End()

	data, err := json.Marshal(session)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.client.rdb.Set(ctx, sessionKey(session.ID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete 删除会话
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "session.Delete",
		trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	return s.client.rdb.Del(ctx, sessionKey(id)).Err()
}
