// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"ebook-assist-api/internal/domain/entity"
)

// FragmentRepository 片段向量检索接口（检索网关）
type FragmentRepository interface {
	// ListEbooks 返回当前可检索的 ebook 名称集合
	ListEbooks(ctx context.Context) ([]string, error)

	// SearchFragments 在指定 ebook 内做近邻检索，按距离升序截断到 limit
	SearchFragments(ctx context.Context, ebook string, queryVector []float32, limit int) ([]*entity.Fragment, error)
}
