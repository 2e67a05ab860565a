// Package main 电子书片段导入工具。
// 把一个纯文本电子书切分成片段，批量向量化后写入 Milvus 对应分区。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"ebook-assist-api/internal/config"
	"ebook-assist-api/internal/infrastructure/embedding"
	"ebook-assist-api/internal/infrastructure/persistence/milvus"
	"ebook-assist-api/internal/infrastructure/persistence/redis"
	"ebook-assist-api/pkg/logger"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ebook := flag.String("ebook", "", "ebook name (partition key, required)")
	file := flag.String("file", "", "path to a UTF-8 text file (required)")
	chunkSize := flag.Int("chunk-size", 1200, "max fragment length in runes")
	flag.Parse()

	if *ebook == "" || *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx := context.Background()
	if err := run(ctx, cfg, *ebook, *file, *chunkSize); err != nil {
		logger.Fatal(ctx, "ingest failed", err)
	}
}

func run(ctx context.Context, cfg *config.Config, ebook, file string, chunkSize int) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	texts := splitFragments(string(data), chunkSize)
	if len(texts) == 0 {
		return fmt.Errorf("no fragments found in %s", file)
	}
	logger.Info(ctx, "fragments extracted", "ebook", ebook, "count", len(texts))

	embedder := embedding.NewClient(&cfg.Embedding)
	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed fragments: %w", err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("embedding count mismatch: got %d vectors for %d fragments", len(vectors), len(texts))
	}

	milvusClient, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		return fmt.Errorf("failed to connect to milvus: %w", err)
	}
	defer milvusClient.Close()

	repo := milvus.NewFragmentRepository(milvusClient)
	if err := repo.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("failed to ensure collection: %w", err)
	}

	rows := make([]*milvus.EbookFragment, 0, len(texts))
	for i, text := range texts {
		rows = append(rows, &milvus.EbookFragment{
			ID:       uuid.New().String(),
			Vector:   vectors[i],
			Ebook:    ebook,
			Fragment: text,
		})
	}
	if err := repo.InsertFragments(ctx, ebook, rows); err != nil {
		return fmt.Errorf("failed to insert fragments: %w", err)
	}

	// 新 ebook 出现后使目录缓存失效，让问答端立即可见
	if redisClient, rerr := redis.NewClient(&cfg.Cache.Redis); rerr == nil {
		cached := redis.NewCachedFragmentRepository(repo, redis.NewCache(redisClient), cfg.Retrieval.EbookListTTL)
		if ierr := cached.InvalidateCatalog(ctx); ierr != nil {
			logger.Warn(ctx, "failed to invalidate ebook catalog cache", "error", ierr)
		}
		_ = redisClient.Close()
	} else {
		logger.Warn(ctx, "redis unavailable, catalog cache not invalidated", "error", rerr)
	}

	logger.Info(ctx, "ingest complete", "ebook", ebook, "fragments", len(rows))
	return nil
}

// splitFragments 按空行拆段落，再把段落聚合成不超过 maxLen 字符的片段。
// 单个超长段落按行再切。
func splitFragments(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = 1200
	}

	var fragments []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			fragments = append(fragments, s)
		}
		current.Reset()
	}

	appendPiece := func(piece string) {
		if current.Len() > 0 && len([]rune(current.String()))+len([]rune(piece))+2 > maxLen {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(piece)
	}

	for _, paragraph := range strings.Split(text, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		if len([]rune(paragraph)) <= maxLen {
			appendPiece(paragraph)
			continue
		}
		// 超长段落退化成按行切分
		for _, line := range strings.Split(paragraph, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				appendPiece(line)
			}
		}
	}
	flush()

	return fragments
}
