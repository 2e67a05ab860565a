// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"ebook-assist-api/internal/domain/entity"
	"ebook-assist-api/internal/domain/repository"
)

// AccountRepository 账户仓储实现
type AccountRepository struct {
	client *Client
}

// NewAccountRepository 创建账户仓储
func NewAccountRepository(client *Client) *AccountRepository {
	return &AccountRepository{client: client}
}

// Create 创建账户，邮箱唯一约束冲突时返回 repository.ErrDuplicateEmail
func (r *AccountRepository) Create(ctx context.Context, account *entity.Account) error {
	ctx, span := tracer.Start(ctx, "postgres.AccountRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repository.ErrDuplicateEmail
		}
		span.RecordError(err)
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取账户
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	ctx, span := tracer.Start(ctx, "postgres.AccountRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var account entity.Account
	if err := db.First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// GetByEmail 根据归一化邮箱获取账户
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	ctx, span := tracer.Start(ctx, "postgres.AccountRepository.GetByEmail")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var account entity.Account
	if err := db.First(&account, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}
	return &account, nil
}

// DecrementBalance 条件扣减余额。
// 单条 UPDATE 同时做余额检查与扣减，避免读改写竞态。
func (r *AccountRepository) DecrementBalance(ctx context.Context, id string, amount int) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.AccountRepository.DecrementBalance")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Model(&entity.Account{}).
		Where("id = ? AND balance >= ?", id, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if result.Error != nil {
		span.RecordError(result.Error)
		return false, fmt.Errorf("failed to decrement balance: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// GetBalance 获取当前余额
func (r *AccountRepository) GetBalance(ctx context.Context, id string) (int, error) {
	ctx, span := tracer.Start(ctx, "postgres.AccountRepository.GetBalance")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var balance int
	err := db.Model(&entity.Account{}).
		Where("id = ?", id).
		Pluck("balance", &balance).Error
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}
