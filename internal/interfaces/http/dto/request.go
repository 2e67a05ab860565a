// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"ebook-assist-api/internal/domain/entity"
)

// AskRequest 问答请求
type AskRequest struct {
	Ebook    string `json:"ebook" binding:"required"`
	Question string `json:"question" binding:"required"`
}

// AskResponse 问答响应
type AskResponse struct {
	Answer    string `json:"answer"`
	Fragments int    `json:"fragments_used"`
	Balance   int    `json:"balance"`
}

// SpeakRequest 语音合成请求
type SpeakRequest struct {
	Text string `json:"text" binding:"required"`
}

// WizardInputRequest 向导输入请求。
// Input 允许为空：自动步骤重试时输入不被消费。
type WizardInputRequest struct {
	Input string `json:"input"`
}

// WizardStateResponse 向导状态响应
type WizardStateResponse struct {
	Step         string `json:"step"`
	Prompt       string `json:"prompt"`
	Index        string `json:"index,omitempty"`
	Chapters     int    `json:"chapters_generated"`
	FileProduced bool   `json:"file_produced"`
}

// AccountResponse 账户响应
type AccountResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Balance   int       `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

// NewAccountResponse 从实体构建账户响应
func NewAccountResponse(a *entity.Account) AccountResponse {
	return AccountResponse{
		ID:        a.ID,
		Email:     a.Email,
		Balance:   a.Balance,
		CreatedAt: a.CreatedAt,
	}
}

// TransactionResponse 积分流水响应
type TransactionResponse struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Amount    int       `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTransactionResponses 从实体构建流水响应列表
func NewTransactionResponses(txs []*entity.CreditTransaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, TransactionResponse{
			ID:        tx.ID,
			Action:    string(tx.Action),
			Amount:    tx.Amount,
			CreatedAt: tx.CreatedAt,
		})
	}
	return out
}

// EbookListResponse 电子书目录响应
type EbookListResponse struct {
	Ebooks []string `json:"ebooks"`
}
