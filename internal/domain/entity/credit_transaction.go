// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/google/uuid"
)

// ActionKind 计费动作类型
type ActionKind string

const (
	ActionQuestion      ActionKind = "question"
	ActionGenerateEbook ActionKind = "generate_ebook"
)

// CreditTransaction 积分流水实体。
// 仅追加：创建后不允许更新或删除，余额修正通过新增反向流水完成。
type CreditTransaction struct {
	ID        string     `json:"id" gorm:"type:uuid;primaryKey"`
	AccountID string     `json:"account_id" gorm:"type:uuid;index;not null"`
	Action    ActionKind `json:"action" gorm:"type:varchar(32);not null"`
	Amount    int        `json:"amount" gorm:"not null"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

func (CreditTransaction) TableName() string {
	return "credit_transactions"
}

// NewDebitTransaction 创建扣费流水（金额以负数入账）
func NewDebitTransaction(accountID string, action ActionKind, amount int) *CreditTransaction {
	return &CreditTransaction{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Action:    action,
		Amount:    -amount,
		CreatedAt: time.Now(),
	}
}
