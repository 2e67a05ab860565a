// Package ledger 提供积分账户与计费账本能力
package ledger

import (
	"context"
	"errors"
	"fmt"

	"ebook-assist-api/internal/domain/entity"
	"ebook-assist-api/internal/domain/repository"
	"ebook-assist-api/pkg/logger"
	"ebook-assist-api/pkg/metrics"
)

// EventCreditsDebited 扣费成功后发布的领域事件类型
const EventCreditsDebited = "credits.debited"

// EventPublisher 领域事件发布接口
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// InsufficientCreditsError 表示账户余额不足以完成本次扣费
type InsufficientCreditsError struct {
	AccountID string
	Requested int
	Balance   int
}

func (e InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: account=%s requested=%d balance=%d", e.AccountID, e.Requested, e.Balance)
}

// IsInsufficientCredits 检查错误是否为余额不足
func IsInsufficientCredits(err error) bool {
	var target InsufficientCreditsError
	return errors.As(err, &target)
}

// CreditLedger 积分账本。
// 余额扣减与流水追加必须在同一事务内提交：两者缺一即回滚。
type CreditLedger struct {
	accountRepo repository.AccountRepository
	txRepo      repository.CreditTransactionRepository
	txMgr       repository.Transactor
	publisher   EventPublisher
	initial     int
}

// NewCreditLedger 创建积分账本。publisher 可为 nil（不发布事件）。
func NewCreditLedger(
	accountRepo repository.AccountRepository,
	txRepo repository.CreditTransactionRepository,
	txMgr repository.Transactor,
	publisher EventPublisher,
	initialGrant int,
) *CreditLedger {
	return &CreditLedger{
		accountRepo: accountRepo,
		txRepo:      txRepo,
		txMgr:       txMgr,
		publisher:   publisher,
		initial:     initialGrant,
	}
}

// GetOrCreate 按归一化邮箱查找账户，不存在则创建并发放初始积分。
// 并发首次创建同一邮箱时，依赖唯一约束并在冲突后重读已存在的行恢复。
func (l *CreditLedger) GetOrCreate(ctx context.Context, email string) (*entity.Account, error) {
	normalized := entity.NormalizeEmail(email)
	if normalized == "" {
		return nil, fmt.Errorf("email is empty")
	}

	account, err := l.accountRepo.GetByEmail(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}

	account = entity.NewAccount(normalized, l.initial)
	if err := l.accountRepo.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			// 输掉了创建竞争，重读赢家写入的行
			return l.accountRepo.GetByEmail(ctx, normalized)
		}
		return nil, err
	}
	return account, nil
}

// Debit 原子扣费：条件扣减余额并追加负数流水，返回扣费后余额。
// 余额不足时返回 InsufficientCreditsError，账户不存在时返回
// repository.ErrAccountNotFound，两种情况下均不做任何修改。
func (l *CreditLedger) Debit(ctx context.Context, accountID string, amount int, action entity.ActionKind) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("debit amount must be positive, got %d", amount)
	}

	var newBalance int
	err := l.txMgr.WithTransaction(ctx, func(txCtx context.Context) error {
		ok, err := l.accountRepo.DecrementBalance(txCtx, accountID, amount)
		if err != nil {
			return err
		}
		if !ok {
			// 区分账户不存在与余额不足
			account, gerr := l.accountRepo.GetByID(txCtx, accountID)
			if gerr != nil {
				return gerr
			}
			if account == nil {
				return fmt.Errorf("debit account %s: %w", accountID, repository.ErrAccountNotFound)
			}
			return InsufficientCreditsError{
				AccountID: accountID,
				Requested: amount,
				Balance:   account.Balance,
			}
		}

		if err := l.txRepo.Append(txCtx, entity.NewDebitTransaction(accountID, action, amount)); err != nil {
			return err
		}

		newBalance, err = l.accountRepo.GetBalance(txCtx, accountID)
		return err
	})
	if err != nil {
		if IsInsufficientCredits(err) {
			metrics.CreditInsufficientTotal.WithLabelValues(string(action)).Inc()
		}
		return 0, err
	}

	metrics.CreditDebitsTotal.WithLabelValues(string(action)).Inc()
	metrics.CreditDebitedAmount.WithLabelValues(string(action)).Add(float64(amount))

	if l.publisher != nil {
		payload := map[string]any{
			"account_id": accountID,
			"action":     string(action),
			"amount":     amount,
			"balance":    newBalance,
		}
		if perr := l.publisher.Publish(ctx, EventCreditsDebited, payload); perr != nil {
			// 事件发布失败不影响扣费结果
			logger.Warn(ctx, "failed to publish debit event", "error", perr)
		}
	}
	return newBalance, nil
}

// History 返回账户流水，时间倒序
func (l *CreditLedger) History(ctx context.Context, accountID string, pagination repository.Pagination) ([]*entity.CreditTransaction, error) {
	return l.txRepo.ListByAccount(ctx, accountID, pagination)
}
