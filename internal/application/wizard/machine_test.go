package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ebook-assist-api/internal/application/ledger"
	"ebook-assist-api/internal/domain/entity"
	"ebook-assist-api/internal/domain/repository"
	apperrors "ebook-assist-api/pkg/errors"
)

// fakeStore 内存会话存储
type fakeStore struct {
	sessions map[string]*entity.WizardSession
	saves    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: map[string]*entity.WizardSession{}}
}

func (s *fakeStore) Get(ctx context.Context, id string) (*entity.WizardSession, error) {
	session, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	// 模拟序列化往返，调用方拿到的是副本
	clone := *session
	clone.Content = append([]entity.ContentEntry(nil), session.Content...)
	return &clone, nil
}

func (s *fakeStore) Save(ctx context.Context, session *entity.WizardSession) error {
	s.saves++
	clone := *session
	clone.Content = append([]entity.ContentEntry(nil), session.Content...)
	s.sessions[session.ID] = &clone
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

// fakeCompleter 按调用序返回脚本化的结果
type fakeCompleter struct {
	calls   []string
	failOn  int // 第 N 次调用失败（从 1 开始），0 表示不失败
	failErr error
}

func (c *fakeCompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	c.calls = append(c.calls, prompt)
	if c.failOn > 0 && len(c.calls) == c.failOn {
		if c.failErr != nil {
			return "", c.failErr
		}
		return "", errors.New("llm unavailable")
	}
	return fmt.Sprintf("generated-%d", len(c.calls)), nil
}

type fakeExporter struct {
	path    string
	err     error
	calls   int
	content []entity.ContentEntry
}

func (e *fakeExporter) WriteEbook(ctx context.Context, title string, content []entity.ContentEntry) (string, error) {
	e.calls++
	e.content = content
	if e.err != nil {
		return "", e.err
	}
	return e.path, nil
}

type fakePublisher struct {
	events []string
	err    error
}

func (p *fakePublisher) Publish(ctx context.Context, eventType string, payload any) error {
	p.events = append(p.events, eventType)
	return p.err
}

// 账本依赖的最小内存实现

type memAccountRepo struct {
	account *entity.Account
}

func (r *memAccountRepo) Create(ctx context.Context, account *entity.Account) error {
	r.account = account
	return nil
}

func (r *memAccountRepo) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	return r.account, nil
}

func (r *memAccountRepo) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return r.account, nil
}

func (r *memAccountRepo) DecrementBalance(ctx context.Context, id string, amount int) (bool, error) {
	if r.account == nil || r.account.Balance < amount {
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
	machine   *Machine
	store     *fakeStore
	completer *fakeCompleter
	exporter  *fakeExporter
	publisher *fakePublisher
	accounts  *memAccountRepo
	txs       *memTxRepo
}

func newFixture(t *testing.T, balance int) *fixture {
	t.Helper()

	accounts := &memAccountRepo{account: entity.NewAccount("user@example.com", balance)}
	txs := &memTxRepo{}
	credits := ledger.NewCreditLedger(accounts, txs, memTxManager{}, nil, balance)

	store := newFakeStore()
	completer := &fakeCompleter{}
	exporter := &fakeExporter{path: "exports/ebook_generated.docx"}
	publisher := &fakePublisher{}

	machine := NewMachine(store, completer, exporter, credits, publisher, Config{
		PerChapterCost:   5,
		IndexMaxTokens:   1500,
		ChapterMaxTokens: 1500,
	})
	return &fixture{
		machine:   machine,
		store:     store,
		completer: completer,
		exporter:  exporter,
		publisher: publisher,
		accounts:  accounts,
		txs:       txs,
	}
}

func (f *fixture) accountID() string {
	return f.accounts.account.ID
}

// advanceTo 按脚本推进会话到指定步骤
func (f *fixture) advanceTo(t *testing.T, target entity.WizardStep) *StepResult {
	t.Helper()
	ctx := context.Background()

	inputs := map[entity.WizardStep]string{
		entity.StepAskTitle:        "Go para todos",
		entity.StepAskTopic:        "programación",
		entity.StepAskAudience:     "principiantes",
		entity.StepAskTone:         "formal",
		entity.StepAskChapterCount: "2",
		entity.StepConfirmIndex:    "sí",
		entity.StepFinalize:        "sí",
	}

	result, err := f.machine.Current(ctx, "session-1", f.accountID())
	require.NoError(t, err)
	for result.Step != target {
		input, ok := inputs[result.Step]
		require.True(t, ok, "no scripted input for step %s", result.Step)
		result, err = f.machine.HandleInput(ctx, "session-1", f.accountID(), input)
		require.NoError(t, err)
	}
	return result
}

func TestMachine_HappyPath(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 20)

	result, err := f.machine.Current(ctx, "session-1", f.accountID())
	require.NoError(t, err)
	assert.Equal(t, entity.StepAskTitle, result.Step)
	assert.Equal(t, "¿Cuál será el título del ebook?", result.Prompt)

	result, err = f.machine.HandleInput(ctx, "session-1", f.accountID(), "Go para todos")
	require.NoError(t, err)
	assert.Equal(t, entity.StepAskTopic, result.Step)

	result, err = f.machine.HandleInput(ctx, "session-1", f.accountID(), "programación")
	require.NoError(t, err)
	assert.Equal(t, entity.StepAskAudience, result.Step)

	result, err = f.machine.HandleInput(ctx, "session-1", f.accountID(), "principiantes")
	require.NoError(t, err)
	assert.Equal(t, entity.StepAskTone, result.Step)

	result, err = f.machine.HandleInput(ctx, "session-1", f.accountID(), "formal")
	require.NoError(t, err)
	assert.Equal(t, entity.StepAskChapterCount, result.Step)

	// 章节数确认后自动生成索引，停在 confirm_index
	result, err = f.machine.HandleInput(ctx, "session-1", f.accountID(), "2")
	require.NoError(t, err)
	assert.Equal(t, entity.StepConfirmIndex, result.Step)
	assert.Equal(t, "generated-1", result.Index)
	require.Len(t, f.completer.calls, 1)
	assert.Contains(t, f.completer.calls[0], "Go para todos")
	assert.Contains(t, f.completer.calls[0], "2 capítulos")

	// 确认索引：扣费 2×5 并生成全部章节，停在 finalize
	result, err = f.machine.HandleInput(ctx, "session-1", f.accountID(), "sí")
	require.NoError(t, err)
	assert.Equal(t, entity.StepFinalize, result.Step)
	assert.Equal(t, 2, result.Chapters)
	assert.Equal(t, 10, f.accounts.account.Balance)
	require.Len(t, f.txs.entries, 1)
	assert.Equal(t, -10, f.txs.entries[0].Amount)
	assert.Equal(t, entity.ActionGenerateEbook, f.txs.entries[0].Action)

	// 章节 prompt 携带索引
	require.Len(t, f.completer.calls, 3)
	assert.Contains(t, f.completer.calls[1], "capítulo 1")
	assert.Contains(t, f.completer.calls[2], "capítulo 2")
	assert.Contains(t, f.completer.calls[1], "generated-1")

	// 确认导出
	result, err = f.machine.HandleInput(ctx, "session-1", f.accountID(), "sí")
	require.NoError(t, err)
	assert.Equal(t, entity.StepComplete, result.Step)
	assert.True(t, result.FileProduced)
	assert.Equal(t, 1, f.exporter.calls)
	assert.Equal(t, []string{EventEbookExported}, f.publisher.events)

	path, err := f.machine.ExportedFile(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, "exports/ebook_generated.docx", path)
}

func TestMachine_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("empty text keeps step", func(t *testing.T) {
		f := newFixture(t, 20)
		f.advanceTo(t, entity.StepAskTitle)

		_, err := f.machine.HandleInput(ctx, "session-1", f.accountID(), "   ")
		require.Error(t, err)
		assert.True(t, IsValidation(err))

		result, err := f.machine.Current(ctx, "session-1", f.accountID())
		require.NoError(t, err)
		assert.Equal(t, entity.StepAskTitle, result.Step)
	})

	t.Run("chapter count must be a positive integer", func(t *testing.T) {
		f := newFixture(t, 20)
		f.advanceTo(t, entity.StepAskChapterCount)

		for _, input := range []string{"abc", "0", "-3", "2.5", ""} {
			_, err := f.machine.HandleInput(ctx, "session-1", f.accountID(), input)
			assert.True(t, IsValidation(err), "input %q should be rejected", input)
		}

		result, err := f.machine.Current(ctx, "session-1", f.accountID())
		require.NoError(t, err)
		assert.Equal(t, entity.StepAskChapterCount, result.Step)
		assert.Empty(t, f.completer.calls)
	})

	t.Run("confirm step rejects anything but yes or no", func(t *testing.T) {
		f := newFixture(t, 20)
		f.advanceTo(t, entity.StepConfirmIndex)

		_, err := f.machine.HandleInput(ctx, "session-1", f.accountID(), "quizás")
		assert.True(t, IsValidation(err))
		assert.Equal(t, 20, f.accounts.account.Balance)
	})
}

func TestParseYesNo(t *testing.T) {
	cases := []struct {
		input string
		want  bool
		valid bool
	}{
		{"sí", true, true},
		{"si", true, true},
		{"s", true, true},
		{"SÍ", true, true},
		{"  Si  ", true, true},
		{"no", false, true},
		{"n", false, true},
		{"NO", false, true},
		{"yes", false, false},
		{"", false, false},
		{"sí por favor", false, false},
	}
	for _, tc := range cases {
		got, err := parseYesNo(entity.StepConfirmIndex, tc.input)
		if tc.valid {
			require.NoError(t, err, "input %q", tc.input)
			assert.Equal(t, tc.want, got, "input %q", tc.input)
		} else {
			assert.True(t, IsValidation(err), "input %q", tc.input)
		}
	}
}

func TestIsAutomatic(t *testing.T) {
	automatic := []entity.WizardStep{
		entity.StepGenerateIndex,
		entity.StepGenerateAllChapters,
	}
	for _, step := range automatic {
		assert.True(t, isAutomatic(step), "step %s", step)
	}

	interactive := []entity.WizardStep{
		entity.StepAskTitle,
		entity.StepAskTopic,
		entity.StepAskAudience,
		entity.StepAskTone,
		entity.StepAskChapterCount,
		entity.StepConfirmIndex,
		entity.StepFinalize,
		entity.StepComplete,
	}
	for _, step := range interactive {
		assert.False(t, isAutomatic(step), "step %s", step)
	}
}

func TestMachine_RejectIndexLoopsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 100)
	f.advanceTo(t, entity.StepConfirmIndex)

	result, err := f.machine.HandleInput(ctx, "session-1", f.accountID(), "no")
	require.NoError(t, err)
	assert.Equal(t, entity.StepAskChapterCount, result.Step)

	// 拒绝不扣费，已收集的参数保留
	assert.Equal(t, 100, f.accounts.account.Balance)
	session := f.store.sessions["session-1"]
	assert.Equal(t, "Go para todos", session.Params.Title)
	assert.Equal(t, "programación", session.Params.Topic)

	// 改为 3 章后重新生成索引
	result, err = f.machine.HandleInput(ctx, "session-1", f.accountID(), "3")
	require.NoError(t, err)
	assert.Equal(t, entity.StepConfirmIndex, result.Step)
	assert.Equal(t, "generated-2", result.Index)
}

func TestMachine_InsufficientCredits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 7) // 2 章需要 10

	f.advanceTo(t, entity.StepConfirmIndex)

	_, err := f.machine.HandleInput(ctx, "session-1", f.accountID(), "sí")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeInsufficientCredits, appErr.Code)

	// 确认未被消费：余额不变，会话停在 confirm_index，未生成章节
	assert.Equal(t, 7, f.accounts.account.Balance)
	result, rerr := f.machine.Current(ctx, "session-1", f.accountID())
	require.NoError(t, rerr)
	assert.Equal(t, entity.StepConfirmIndex, result.Step)
	assert.Equal(t, 0, result.Chapters)
	assert.Len(t, f.completer.calls, 1) // 只有索引生成
}

func TestMachine_ChapterFailureRetries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 20)
	f.advanceTo(t, entity.StepConfirmIndex)

	// 第 3 次调用（第 2 章）失败
	f.completer.failOn = 3
	_, err := f.machine.HandleInput(ctx, "session-1", f.accountID(), "sí")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeGenerationFailed, appErr.Code)

	// 扣费已发生且不退还，会话停在生成步骤，半成品章节被丢弃
	assert.Equal(t, 10, f.accounts.account.Balance)
	session := f.store.sessions["session-1"]
	assert.Equal(t, entity.StepGenerateAllChapters, session.Step)
	assert.Equal(t, 0, session.ChapterCount())

	// 停在自动步骤时提示用户重试
	current, cerr := f.machine.Current(ctx, "session-1", f.accountID())
	require.NoError(t, cerr)
	assert.Equal(t, stepPrompts[entity.StepGenerateAllChapters], current.Prompt)
	assert.NotEmpty(t, current.Prompt)

	// 下一次输入不被消费，直接重试生成；不再扣费
	f.completer.failOn = 0
	result, err := f.machine.HandleInput(ctx, "session-1", f.accountID(), "este texto se ignora")
	require.NoError(t, err)
	assert.Equal(t, entity.StepFinalize, result.Step)
	assert.Equal(t, 2, result.Chapters)
	assert.Equal(t, 10, f.accounts.account.Balance)
	require.Len(t, f.txs.entries, 1)
}

func TestMachine_FinalizeDeclined(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 20)
	f.advanceTo(t, entity.StepFinalize)

	result, err := f.machine.HandleInput(ctx, "session-1", f.accountID(), "no")
	require.NoError(t, err)
	assert.Equal(t, entity.StepComplete, result.Step)
	assert.False(t, result.FileProduced)
	assert.Equal(t, 0, f.exporter.calls)
	assert.Empty(t, f.publisher.events)

	_, err = f.machine.ExportedFile(ctx, "session-1")
	assert.Error(t, err)
}

func TestMachine_ExportFailureKeepsFinalize(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 20)
	f.advanceTo(t, entity.StepFinalize)

	f.exporter.err = errors.New("disk full")
	_, err := f.machine.HandleInput(ctx, "session-1", f.accountID(), "sí")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeExportFailed, appErr.Code)

	result, rerr := f.machine.Current(ctx, "session-1", f.accountID())
	require.NoError(t, rerr)
	assert.Equal(t, entity.StepFinalize, result.Step)
	assert.False(t, result.FileProduced)

	// 重试成功
	f.exporter.err = nil
	result, err = f.machine.HandleInput(ctx, "session-1", f.accountID(), "sí")
	require.NoError(t, err)
	assert.Equal(t, entity.StepComplete, result.Step)
	assert.True(t, result.FileProduced)
}

func TestMachine_PublishFailureDoesNotBlockExport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 20)
	f.advanceTo(t, entity.StepFinalize)

	f.publisher.err = errors.New("stream unavailable")
	result, err := f.machine.HandleInput(ctx, "session-1", f.accountID(), "sí")
	require.NoError(t, err)
	assert.Equal(t, entity.StepComplete, result.Step)
	assert.True(t, result.FileProduced)
}

func TestMachine_CompleteRejectsInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 20)
	f.advanceTo(t, entity.StepFinalize)

	_, err := f.machine.HandleInput(ctx, "session-1", f.accountID(), "no")
	require.NoError(t, err)

	_, err = f.machine.HandleInput(ctx, "session-1", f.accountID(), "hola")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeWizardComplete, appErr.Code)
}

func TestMachine_Reset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 20)
	f.advanceTo(t, entity.StepFinalize)

	result, err := f.machine.Reset(ctx, "session-1", f.accountID())
	require.NoError(t, err)
	assert.Equal(t, entity.StepAskTitle, result.Step)
	assert.Empty(t, result.Index)
	assert.Equal(t, 0, result.Chapters)
	assert.False(t, result.FileProduced)

	session := f.store.sessions["session-1"]
	assert.Equal(t, entity.EbookParams{}, session.Params)
}

func TestMachine_IndexGenerationFailureRetries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 20)
	f.advanceTo(t, entity.StepAskChapterCount)

	f.completer.failOn = 1
	_, err := f.machine.HandleInput(ctx, "session-1", f.accountID(), "2")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeGenerationFailed, appErr.Code)

	// 章节数已被接受，会话停在 generate_index 等待重试
	session := f.store.sessions["session-1"]
	assert.Equal(t, entity.StepGenerateIndex, session.Step)
	assert.Equal(t, 2, session.Params.Chapters)

	current, cerr := f.machine.Current(ctx, "session-1", f.accountID())
	require.NoError(t, cerr)
	assert.NotEmpty(t, current.Prompt)

	f.completer.failOn = 0
	result, err := f.machine.HandleInput(ctx, "session-1", f.accountID(), "")
	require.NoError(t, err)
	assert.Equal(t, entity.StepConfirmIndex, result.Step)
	assert.NotEmpty(t, result.Index)
}

func TestIndexPrompt(t *testing.T) {
	p := entity.EbookParams{
		Title:    "Go para todos",
		Topic:    "programación",
		Audience: "principiantes",
		Tone:     "formal",
		Chapters: 4,
	}
	prompt := indexPrompt(p)
	for _, want := range []string{"Go para todos", "programación", "principiantes", "formal", "4 capítulos"} {
		assert.Contains(t, prompt, want)
	}
	assert.True(t, strings.HasPrefix(prompt, "Crea un índice"))
}
