// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"context"
	"fmt"
	"sort"

	milvusentity "github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ebook-assist-api/internal/domain/entity"
)

// FragmentRepository 片段向量检索仓储，实现 repository.FragmentRepository
type FragmentRepository struct {
	client *Client
}

// NewFragmentRepository 创建片段仓储
func NewFragmentRepository(client *Client) *FragmentRepository {
	return &FragmentRepository{client: client}
}

// EnsureCollection 创建片段集合、HNSW 索引并加载到内存（幂等）
func (r *FragmentRepository) EnsureCollection(ctx context.Context) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.EnsureCollection")
	defer span.End()

	collName := r.client.CollectionName(CollectionEbookFragments)
	has, err := r.client.milvus.HasCollection(ctx, collName)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !has {
		schema := EbookFragmentsSchema(r.client.config.VectorDim)
		schema.CollectionName = collName
		if err := r.client.milvus.CreateCollection(ctx, schema, milvusentity.DefaultShardNumber); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to create collection: %w", err)
		}

		idx, err := milvusentity.NewIndexHNSW(
			milvusentity.COSINE,
			r.client.config.HNSWM,
			r.client.config.HNSWEfConstruction,
		)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to build index: %w", err)
		}
		if err := r.client.milvus.CreateIndex(ctx, collName, "vector", idx, false); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	if err := r.client.milvus.LoadCollection(ctx, collName, false); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to load collection: %w", err)
	}
	return nil
}

// ListEbooks 返回当前可检索的 ebook 名称集合。
// 每本 ebook 对应一个分区，分区列表即目录。
func (r *FragmentRepository) ListEbooks(ctx context.Context) ([]string, error) {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return nil, fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.ListEbooks")
	defer span.End()

	collName := r.client.CollectionName(CollectionEbookFragments)
	partitions, err := r.client.milvus.ShowPartitions(ctx, collName)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to show partitions: %w", err)
	}

	ebooks := make([]string, 0, len(partitions))
	for _, p := range partitions {
		if name := EbookFromPartition(p.Name); name != "" {
			ebooks = append(ebooks, name)
		}
	}
	sort.Strings(ebooks)

	span.SetAttributes(attribute.Int("ebook_count", len(ebooks)))
	return ebooks, nil
}

// SearchFragments 在指定 ebook 的分区内做近邻检索
func (r *FragmentRepository) SearchFragments(ctx context.Context, ebook string, queryVector []float32, limit int) ([]*entity.Fragment, error) {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return nil, fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.SearchFragments",
		trace.WithAttributes(
			attribute.String("ebook", ebook),
			attribute.Int("top_k", limit),
		))
	defer span.End()

	collName := r.client.CollectionName(CollectionEbookFragments)
	partitionName := PartitionName(ebook)

	// 分区不存在时直接返回空结果，避免 Milvus 报 partition not found
	if has, err := r.client.milvus.HasPartition(ctx, collName, partitionName); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to check partition: %w", err)
	} else if !has {
		return []*entity.Fragment{}, nil
	}

	sp, err := milvusentity.NewIndexHNSWSearchParam(128)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	results, err := r.client.milvus.Search(ctx,
		collName,
		[]string{partitionName},
		"",
		[]string{"id", "fragment"},
		[]milvusentity.Vector{milvusentity.FloatVector(queryVector)},
		"vector",
		milvusentity.COSINE,
		limit,
		sp,
	)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var fragments []*entity.Fragment
	for _, result := range results {
		for i := 0; i < result.ResultCount; i++ {
			f := &entity.Fragment{
				Ebook: ebook,
				Score: result.Scores[i],
			}
			if idCol, ok := result.Fields.GetColumn("id").(*milvusentity.ColumnVarChar); ok {
				f.ID = idCol.Data()[i]
			}
			if textCol, ok := result.Fields.GetColumn("fragment").(*milvusentity.ColumnVarChar); ok {
				f.Text = textCol.Data()[i]
			}
			fragments = append(fragments, f)
		}
	}

	span.SetAttributes(attribute.Int("result_count", len(fragments)))
	return fragments, nil
}

// InsertFragments 把片段写入指定 ebook 的分区，分区不存在时先创建
func (r *FragmentRepository) InsertFragments(ctx context.Context, ebook string, fragments []*EbookFragment) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.InsertFragments",
		trace.WithAttributes(
			attribute.String("ebook", ebook),
			attribute.Int("count", len(fragments)),
		))
	defer span.End()

	if len(fragments) == 0 {
		return nil
	}

	collName := r.client.CollectionName(CollectionEbookFragments)
	partitionName := PartitionName(ebook)

	has, err := r.client.milvus.HasPartition(ctx, collName, partitionName)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check partition: %w", err)
	}
	if !has {
		if err := r.client.milvus.CreatePartition(ctx, collName, partitionName); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to create partition: %w", err)
		}
	}

	ids := make([]string, 0, len(fragments))
	vectors := make([][]float32, 0, len(fragments))
	ebooks := make([]string, 0, len(fragments))
	texts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		ids = append(ids, f.ID)
		vectors = append(vectors, f.Vector)
		ebooks = append(ebooks, f.Ebook)
		texts = append(texts, f.Fragment)
	}

	_, err = r.client.milvus.Insert(ctx, collName, partitionName,
		milvusentity.NewColumnVarChar("id", ids),
		milvusentity.NewColumnFloatVector("vector", r.client.config.VectorDim, vectors),
		milvusentity.NewColumnVarChar("ebook", ebooks),
		milvusentity.NewColumnVarChar("fragment", texts),
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert fragments: %w", err)
	}
	return nil
}
