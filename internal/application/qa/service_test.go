package qa

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ebook-assist-api/internal/application/ledger"
	"ebook-assist-api/internal/domain/entity"
	"ebook-assist-api/internal/domain/repository"
	apperrors "ebook-assist-api/pkg/errors"
)

type fakeFragmentRepo struct {
	ebooks    []string
	fragments []*entity.Fragment
	searchErr error
	listErr   error

	lastVector []float32
	lastLimit  int
	searches   int
}

func (r *fakeFragmentRepo) ListEbooks(ctx context.Context) ([]string, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.ebooks, nil
}

func (r *fakeFragmentRepo) SearchFragments(ctx context.Context, ebook string, queryVector []float32, limit int) ([]*entity.Fragment, error) {
	r.searches++
	r.lastVector = queryVector
	r.lastLimit = limit
	if r.searchErr != nil {
		return nil, r.searchErr
	}
	return r.fragments, nil
}

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return e.vector, nil
}

type fakeCompleter struct {
	answer string
	err    error
	prompt string
	calls  int
}

func (c *fakeCompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	c.calls++
	c.prompt = prompt
	if c.err != nil {
		return "", c.err
	}
	return c.answer, nil
}

type fakeSynthesizer struct {
	audio []byte
	mime  string
	err   error
}

func (s *fakeSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	return s.audio, s.mime, nil
}

type memAccountRepo struct {
	account *entity.Account
}

func (r *memAccountRepo) Create(ctx context.Context, account *entity.Account) error { return nil }

func (r *memAccountRepo) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	return r.account, nil
}

func (r *memAccountRepo) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return r.account, nil
}

func (r *memAccountRepo) DecrementBalance(ctx context.Context, id string, amount int) (bool, error) {
	if r.account.Balance < amount {
		return false, nil
	}
	r.account.Balance -= amount
	return true, nil
}

func (r *memAccountRepo) GetBalance(ctx context.Context, id string) (int, error) {
	return r.account.Balance, nil
}

type memTxRepo struct {
	entries []*entity.CreditTransaction
}

func (r *memTxRepo) Append(ctx context.Context, tx *entity.CreditTransaction) error {
	r.entries = append(r.entries, tx)
	return nil
}

func (r *memTxRepo) ListByAccount(ctx context.Context, accountID string, pagination repository.Pagination) ([]*entity.CreditTransaction, error) {
	return r.entries, nil
}

type memTxManager struct{}

func (memTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	service   *Service
	fragments *fakeFragmentRepo
	embedder  *fakeEmbedder
	completer *fakeCompleter
	speech    *fakeSynthesizer
	accounts  *memAccountRepo
	txs       *memTxRepo
}

func newFixture(balance int) *fixture {
	accounts := &memAccountRepo{account: entity.NewAccount("user@example.com", balance)}
	txs := &memTxRepo{}
	credits := ledger.NewCreditLedger(accounts, txs, memTxManager{}, nil, balance)

	fragments := &fakeFragmentRepo{
		ebooks: []string{"go_basics", "concurrencia"},
		fragments: []*entity.Fragment{
			{ID: "f1", Ebook: "go_basics", Text: "Go usa goroutines para concurrencia."},
			{ID: "f2", Ebook: "go_basics", Text: "Los canales comunican goroutines."},
		},
	}
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2, 0.3}}
	completer := &fakeCompleter{answer: "Las goroutines son hilos ligeros."}
	speech := &fakeSynthesizer{audio: []byte("mp3data"), mime: "audio/mpeg"}

	service := NewService(fragments, embedder, completer, speech, credits, Config{
		QuestionCost:    1,
		TopK:            3,
		AnswerMaxTokens: 500,
	})
	return &fixture{
		service:   service,
		fragments: fragments,
		embedder:  embedder,
		completer: completer,
		speech:    speech,
		accounts:  accounts,
		txs:       txs,
	}
}

func (f *fixture) accountID() string {
	return f.accounts.account.ID
}

func TestListEbooks(t *testing.T) {
	ctx := context.Background()

	t.Run("returns catalog", func(t *testing.T) {
		f := newFixture(20)
		ebooks, err := f.service.ListEbooks(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"go_basics", "concurrencia"}, ebooks)
	})

	t.Run("wraps repository failure", func(t *testing.T) {
		f := newFixture(20)
		f.fragments.listErr = errors.New("milvus down")

		_, err := f.service.ListEbooks(ctx)
		require.Error(t, err)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.CodeRetrievalFailed, appErr.Code)
	})
}

func TestAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("answers with retrieved context", func(t *testing.T) {
		f := newFixture(20)

		answer, err := f.service.Ask(ctx, f.accountID(), "go_basics", "¿Qué es una goroutine?")
		require.NoError(t, err)

		assert.Equal(t, "Las goroutines son hilos ligeros.", answer.Text)
		assert.Equal(t, 2, answer.Fragments)
		assert.Equal(t, 19, answer.Balance)

		// 检索使用问题向量与配置的 top_k
		assert.Equal(t, []float32{0.1, 0.2, 0.3}, f.fragments.lastVector)
		assert.Equal(t, 3, f.fragments.lastLimit)

		// prompt 拼入片段文本和原问题
		assert.Contains(t, f.completer.prompt, "goroutines para concurrencia")
		assert.Contains(t, f.completer.prompt, "canales comunican")
		assert.Contains(t, f.completer.prompt, "¿Qué es una goroutine?")

		require.Len(t, f.txs.entries, 1)
		assert.Equal(t, -1, f.txs.entries[0].Amount)
		assert.Equal(t, entity.ActionQuestion, f.txs.entries[0].Action)
	})

	t.Run("empty question rejected before any spend", func(t *testing.T) {
		f := newFixture(20)

		_, err := f.service.Ask(ctx, f.accountID(), "go_basics", "   ")
		require.Error(t, err)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.CodeInvalidParam, appErr.Code)
		assert.Equal(t, 20, f.accounts.account.Balance)
	})

	t.Run("unknown ebook rejected before any spend", func(t *testing.T) {
		f := newFixture(20)

		_, err := f.service.Ask(ctx, f.accountID(), "desconocido", "¿Qué es Go?")
		require.Error(t, err)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.CodeEbookNotFound, appErr.Code)
		assert.Equal(t, 20, f.accounts.account.Balance)
		assert.Equal(t, 0, f.embedder.calls)
	})

	t.Run("insufficient credits", func(t *testing.T) {
		f := newFixture(0)

		_, err := f.service.Ask(ctx, f.accountID(), "go_basics", "¿Qué es Go?")
		require.Error(t, err)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.CodeInsufficientCredits, appErr.Code)
		assert.Equal(t, 0, f.embedder.calls)
		assert.Equal(t, 0, f.completer.calls)
	})

	t.Run("debit happens before generation and is not refunded", func(t *testing.T) {
		f := newFixture(20)
		f.completer.err = errors.New("llm timeout")

		_, err := f.service.Ask(ctx, f.accountID(), "go_basics", "¿Qué es Go?")
		require.Error(t, err)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.CodeLLMCallFailed, appErr.Code)
		assert.Equal(t, 19, f.accounts.account.Balance)
	})

	t.Run("embedding failure after debit", func(t *testing.T) {
		f := newFixture(20)
		f.embedder.err = errors.New("embedding service down")

		_, err := f.service.Ask(ctx, f.accountID(), "go_basics", "¿Qué es Go?")
		require.Error(t, err)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.CodeEmbeddingFailed, appErr.Code)
		assert.Equal(t, 19, f.accounts.account.Balance)
		assert.Equal(t, 0, f.fragments.searches)
	})

	t.Run("search failure", func(t *testing.T) {
		f := newFixture(20)
		f.fragments.searchErr = errors.New("partition not loaded")

		_, err := f.service.Ask(ctx, f.accountID(), "go_basics", "¿Qué es Go?")
		require.Error(t, err)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.CodeRetrievalFailed, appErr.Code)
	})

	t.Run("no fragments still answers", func(t *testing.T) {
		f := newFixture(20)
		f.fragments.fragments = nil

		answer, err := f.service.Ask(ctx, f.accountID(), "go_basics", "¿Qué es Go?")
		require.NoError(t, err)
		assert.Equal(t, 0, answer.Fragments)
		assert.NotEmpty(t, answer.Text)
	})
}

func TestSpeak(t *testing.T) {
	ctx := context.Background()

	t.Run("synthesizes audio", func(t *testing.T) {
		f := newFixture(20)

		audio, mime, err := f.service.Speak(ctx, "Hola mundo")
		require.NoError(t, err)
		assert.Equal(t, []byte("mp3data"), audio)
		assert.Equal(t, "audio/mpeg", mime)
	})

	t.Run("empty text rejected", func(t *testing.T) {
		f := newFixture(20)

		_, _, err := f.service.Speak(ctx, "  ")
		require.Error(t, err)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.CodeInvalidParam, appErr.Code)
	})

	t.Run("wraps synthesis failure", func(t *testing.T) {
		f := newFixture(20)
		f.speech.err = errors.New("tts down")

		_, _, err := f.service.Speak(ctx, "Hola")
		require.Error(t, err)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.CodeSpeechFailed, appErr.Code)
	})
}
