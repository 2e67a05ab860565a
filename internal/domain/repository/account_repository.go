// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"errors"

	"ebook-assist-api/internal/domain/entity"
)

// ErrDuplicateEmail 邮箱唯一约束冲突（并发首次创建时用于本地恢复）
var ErrDuplicateEmail = errors.New("account email already exists")

// ErrAccountNotFound 账户不存在
var ErrAccountNotFound = errors.New("account not found")

// AccountRepository 账户仓储接口
type AccountRepository interface {
	// Create 创建账户。邮箱已存在时返回 ErrDuplicateEmail。
	Create(ctx context.Context, account *entity.Account) error

	// GetByID 根据 ID 获取账户，不存在返回 nil
	GetByID(ctx context.Context, id string) (*entity.Account, error)

	// GetByEmail 根据归一化邮箱获取账户，不存在返回 nil
	GetByEmail(ctx context.Context, email string) (*entity.Account, error)

	// DecrementBalance 条件扣减余额：仅当 balance >= amount 时原子扣减。
	// 返回扣减是否生效；不生效时余额不变。
	DecrementBalance(ctx context.Context, id string, amount int) (bool, error)

	// GetBalance 获取当前余额
	GetBalance(ctx context.Context, id string) (int, error)
}

// CreditTransactionRepository 积分流水仓储接口（仅追加）
type CreditTransactionRepository interface {
	// Append 追加一条流水记录
	Append(ctx context.Context, tx *entity.CreditTransaction) error

	// ListByAccount 按时间倒序返回账户流水
	ListByAccount(ctx context.Context, accountID string, pagination Pagination) ([]*entity.CreditTransaction, error)
}
