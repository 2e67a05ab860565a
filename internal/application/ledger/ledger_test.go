package ledger

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ebook-assist-api/internal/domain/entity"
	"ebook-assist-api/internal/domain/repository"
)

// fakeAccountRepo 内存账户仓储
type fakeAccountRepo struct {
	byEmail map[string]*entity.Account
	byID    map[string]*entity.Account

	createErr    error
	decrementErr error
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{
		byEmail: map[string]*entity.Account{},
		byID:    map[string]*entity.Account{},
	}
}

func (r *fakeAccountRepo) Create(ctx context.Context, account *entity.Account) error {
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.byEmail[account.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	r.byEmail[account.Email] = account
	r.byID[account.ID] = account
	return nil
}

func (r *fakeAccountRepo) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	return r.byID[id], nil
}

func (r *fakeAccountRepo) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return r.byEmail[email], nil
}

func (r *fakeAccountRepo) DecrementBalance(ctx context.Context, id string, amount int) (bool, error) {
	if r.decrementErr != nil {
		return false, r.decrementErr
	}
	account, ok := r.byID[id]
	if !ok || account.Balance < amount {
		return false, nil
	}
	account.Balance -= amount
	return true, nil
}

func (r *fakeAccountRepo) GetBalance(ctx context.Context, id string) (int, error) {
	account, ok := r.byID[id]
	if !ok {
		return 0, errors.New("account not found")
	}
	return account.Balance, nil
}

// fakeTxRepo 内存流水仓储
type fakeTxRepo struct {
	entries   []*entity.CreditTransaction
	appendErr error
}

func (r *fakeTxRepo) Append(ctx context.Context, tx *entity.CreditTransaction) error {
	if r.appendErr != nil {
		return r.appendErr
	}
	r.entries = append(r.entries, tx)
	return nil
}

func (r *fakeTxRepo) ListByAccount(ctx context.Context, accountID string, pagination repository.Pagination) ([]*entity.CreditTransaction, error) {
	var out []*entity.CreditTransaction
	for _, tx := range r.entries {
		if tx.AccountID == accountID {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// fakeTxManager 直接执行回调，失败时回滚账户余额快照
type fakeTxManager struct {
	accounts *fakeAccountRepo
}

func (m *fakeTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snapshot := map[string]int{}
	for id, account := range m.accounts.byID {
		snapshot[id] = account.Balance
	}
	if err := fn(ctx); err != nil {
		for id, balance := range snapshot {
			m.accounts.byID[id].Balance = balance
		}
		return err
	}
	return nil
}

type fakePublisher struct {
	events []string
	err    error
}

func (p *fakePublisher) Publish(ctx context.Context, eventType string, payload any) error {
	p.events = append(p.events, eventType)
	return p.err
}

func newTestLedger(initial int) (*CreditLedger, *fakeAccountRepo, *fakeTxRepo) {
	accounts := newFakeAccountRepo()
	txs := &fakeTxRepo{}
	ledger := NewCreditLedger(accounts, txs, &fakeTxManager{accounts: accounts}, nil, initial)
	return ledger, accounts, txs
}

func TestGetOrCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates account with initial grant", func(t *testing.T) {
		ledger, _, _ := newTestLedger(20)

		account, err := ledger.GetOrCreate(ctx, "User@Example.com")
		require.NoError(t, err)
		require.NotNil(t, account)

		assert.Equal(t, "user@example.com", account.Email)
		assert.Equal(t, 20, account.Balance)
		assert.NotEmpty(t, account.ID)
	})

	t.Run("returns existing account on repeat lookup", func(t *testing.T) {
		ledger, _, _ := newTestLedger(20)

		first, err := ledger.GetOrCreate(ctx, "user@example.com")
		require.NoError(t, err)

		second, err := ledger.GetOrCreate(ctx, "  USER@example.com ")
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("empty email rejected", func(t *testing.T) {
		ledger, _, _ := newTestLedger(20)

		_, err := ledger.GetOrCreate(ctx, "   ")
		assert.Error(t, err)
	})

	t.Run("recovers after losing create race", func(t *testing.T) {
		ledger, accounts, _ := newTestLedger(20)

		// 另一个请求先写入同邮箱的账户
		winner := entity.NewAccount("user@example.com", 20)
		require.NoError(t, accounts.Create(ctx, winner))
		accounts.createErr = repository.ErrDuplicateEmail

		account, err := ledger.GetOrCreate(ctx, "user@example.com")
		require.NoError(t, err)
		assert.Equal(t, winner.ID, account.ID)
	})
}

func TestDebit(t *testing.T) {
	ctx := context.Background()

	t.Run("debits balance and appends negative transaction", func(t *testing.T) {
		ledger, _, txs := newTestLedger(20)
		account, err := ledger.GetOrCreate(ctx, "user@example.com")
		require.NoError(t, err)

		balance, err := ledger.Debit(ctx, account.ID, 5, entity.ActionGenerateEbook)
		require.NoError(t, err)

		assert.Equal(t, 15, balance)
		require.Len(t, txs.entries, 1)
		assert.Equal(t, -5, txs.entries[0].Amount)
		assert.Equal(t, entity.ActionGenerateEbook, txs.entries[0].Action)
		assert.Equal(t, account.ID, txs.entries[0].AccountID)
	})

	t.Run("insufficient balance returns typed error without changes", func(t *testing.T) {
		ledger, accounts, txs := newTestLedger(3)
		account, err := ledger.GetOrCreate(ctx, "user@example.com")
		require.NoError(t, err)

		_, err = ledger.Debit(ctx, account.ID, 10, entity.ActionQuestion)
		require.Error(t, err)
		assert.True(t, IsInsufficientCredits(err))

		var insufficient InsufficientCreditsError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, account.ID, insufficient.AccountID)
		assert.Equal(t, 10, insufficient.Requested)
		assert.Equal(t, 3, insufficient.Balance)

		balance, err := accounts.GetBalance(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, balance)
		assert.Empty(t, txs.entries)
	})

	t.Run("unknown account returns not-found, not insufficient", func(t *testing.T) {
		ledger, _, txs := newTestLedger(20)

		_, err := ledger.Debit(ctx, "no-such-account", 1, entity.ActionQuestion)
		require.Error(t, err)
		assert.ErrorIs(t, err, repository.ErrAccountNotFound)
		assert.False(t, IsInsufficientCredits(err))
		assert.Empty(t, txs.entries)
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		ledger, _, _ := newTestLedger(20)
		account, err := ledger.GetOrCreate(ctx, "user@example.com")
		require.NoError(t, err)

		_, err = ledger.Debit(ctx, account.ID, 0, entity.ActionQuestion)
		assert.Error(t, err)
		assert.False(t, IsInsufficientCredits(err))

		_, err = ledger.Debit(ctx, account.ID, -1, entity.ActionQuestion)
		assert.Error(t, err)
	})

	t.Run("transaction append failure rolls back the decrement", func(t *testing.T) {
		ledger, accounts, txs := newTestLedger(20)
		account, err := ledger.GetOrCreate(ctx, "user@example.com")
		require.NoError(t, err)

		txs.appendErr = errors.New("insert failed")
		_, err = ledger.Debit(ctx, account.ID, 5, entity.ActionQuestion)
		require.Error(t, err)
		assert.False(t, IsInsufficientCredits(err))

		balance, err := accounts.GetBalance(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, 20, balance)
	})

	t.Run("publishes debit event best-effort", func(t *testing.T) {
		accounts := newFakeAccountRepo()
		txs := &fakeTxRepo{}
		publisher := &fakePublisher{}
		ledger := NewCreditLedger(accounts, txs, &fakeTxManager{accounts: accounts}, publisher, 20)

		account, err := ledger.GetOrCreate(ctx, "user@example.com")
		require.NoError(t, err)

		_, err = ledger.Debit(ctx, account.ID, 1, entity.ActionQuestion)
		require.NoError(t, err)
		assert.Equal(t, []string{EventCreditsDebited}, publisher.events)

		// 发布失败不影响扣费
		publisher.err = errors.New("stream unavailable")
		balance, err := ledger.Debit(ctx, account.ID, 1, entity.ActionQuestion)
		require.NoError(t, err)
		assert.Equal(t, 18, balance)

		// 余额不足不发布事件
		publisher.err = nil
		published := len(publisher.events)
		_, err = ledger.Debit(ctx, account.ID, 100, entity.ActionQuestion)
		require.Error(t, err)
		assert.Len(t, publisher.events, published)
	})

	t.Run("exact balance drains to zero", func(t *testing.T) {
		ledger, _, _ := newTestLedger(5)
		account, err := ledger.GetOrCreate(ctx, "user@example.com")
		require.NoError(t, err)

		balance, err := ledger.Debit(ctx, account.ID, 5, entity.ActionGenerateEbook)
		require.NoError(t, err)
		assert.Equal(t, 0, balance)

		_, err = ledger.Debit(ctx, account.ID, 1, entity.ActionQuestion)
		assert.True(t, IsInsufficientCredits(err))
	})
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	ledger, _, _ := newTestLedger(20)

	account, err := ledger.GetOrCreate(ctx, "user@example.com")
	require.NoError(t, err)

	_, err = ledger.Debit(ctx, account.ID, 1, entity.ActionQuestion)
	require.NoError(t, err)
	_, err = ledger.Debit(ctx, account.ID, 5, entity.ActionGenerateEbook)
	require.NoError(t, err)

	history, err := ledger.History(ctx, account.ID, repository.NewPagination(1, 20))
	require.NoError(t, err)
	require.Len(t, history, 2)
	for _, tx := range history {
		assert.Negative(t, tx.Amount)
	}
}
