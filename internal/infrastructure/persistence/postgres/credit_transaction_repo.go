// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"ebook-assist-api/internal/domain/entity"
	"ebook-assist-api/internal/domain/repository"
)

// CreditTransactionRepository 积分流水仓储实现
type CreditTransactionRepository struct {
	client *Client
}

// NewCreditTransactionRepository 创建积分流水仓储
func NewCreditTransactionRepository(client *Client) *CreditTransactionRepository {
	return &CreditTransactionRepository{client: client}
}

// Append 追加一条流水记录
func (r *CreditTransactionRepository) Append(ctx context.Context, tx *entity.CreditTransaction) error {
	ctx, span := tracer.Start(ctx, "postgres.CreditTransactionRepository.Append")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(tx).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to append credit transaction: %w", err)
	}
	return nil
}

// ListByAccount 按时间倒序返回账户流水
func (r *CreditTransactionRepository) ListByAccount(ctx context.Context, accountID string, pagination repository.Pagination) ([]*entity.CreditTransaction, error) {
	ctx, span := tracer.Start(ctx, "postgres.CreditTransactionRepository.ListByAccount")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var txs []*entity.CreditTransaction
	err := db.Where("account_id = ?", accountID).
		Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&txs).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list credit transactions: %w", err)
	}
	return txs, nil
}
