// Package entity 定义领域实体
package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Account 积分账户实体
type Account struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey"`
	Email     string    `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Balance   int       `json:"balance" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Account) TableName() string {
	return "accounts"
}

// NewAccount 创建新账户（携带初始积分）
func NewAccount(email string, initialBalance int) *Account {
	now := time.Now()
	return &Account{
		ID:        uuid.New().String(),
		Email:     email,
		Balance:   initialBalance,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NormalizeEmail 归一化邮箱（去空白 + 小写），所有查找和创建前必须调用
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
