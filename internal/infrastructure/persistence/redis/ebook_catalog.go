// Package redis 提供 Redis 缓存实现
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ebook-assist-api/internal/domain/entity"
	"ebook-assist-api/internal/domain/repository"
)

const ebookCatalogKey = "ebooks:catalog"

// CachedFragmentRepository 片段仓储的缓存装饰器。
// ebook 目录变化频率低，ListEbooks 走 Read-Through 缓存；检索不缓存。
type CachedFragmentRepository struct {
	inner repository.FragmentRepository
	cache *Cache
	ttl   time.Duration
}

// NewCachedFragmentRepository 创建带目录缓存的片段仓储
func NewCachedFragmentRepository(inner repository.FragmentRepository, cache *Cache, ttl time.Duration) *CachedFragmentRepository {
	return &CachedFragmentRepository{
		inner: inner,
		cache: cache,
		ttl:   ttl,
	}
}

// ListEbooks 返回 ebook 目录，优先读缓存
func (r *CachedFragmentRepository) ListEbooks(ctx context.Context) ([]string, error) {
	data, err := r.cache.GetOrLoadSafe(ctx, ebookCatalogKey, r.ttl, func() (interface{}, error) {
		return r.inner.ListEbooks(ctx)
	})
	if err != nil {
		return nil, err
	}

	var ebooks []string
	if err := json.Unmarshal(data, &ebooks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ebook catalog: %w", err)
	}
	return ebooks, nil
}

// SearchFragments 直接透传到底层仓储
func (r *CachedFragmentRepository) SearchFragments(ctx context.Context, ebook string, queryVector []float32, limit int) ([]*entity.Fragment, error) {
	return r.inner.SearchFragments(ctx, ebook, queryVector, limit)
}

// InvalidateCatalog 使目录缓存失效（片段导入后调用）
func (r *CachedFragmentRepository) InvalidateCatalog(ctx context.Context) error {
	return r.cache.Delete(ctx, ebookCatalogKey)
}
