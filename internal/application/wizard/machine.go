// Package wizard 实现电子书创建向导的状态机
package wizard

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ebook-assist-api/internal/application/ledger"
	"ebook-assist-api/internal/domain/entity"
	apperrors "ebook-assist-api/pkg/errors"
	"ebook-assist-api/pkg/logger"
	"ebook-assist-api/pkg/metrics"
)

var tracer = otel.Tracer("application/wizard")

// 向导发布的事件类型
const (
	EventEbookExported = "ebook.exported"
)

// Config 向导运行参数
type Config struct {
	PerChapterCost   int
	IndexMaxTokens   int
	ChapterMaxTokens int
}

// StepResult 一次向导交互后的会话视图
type StepResult struct {
	Step         entity.WizardStep `json:"step"`
	Prompt       string            `json:"prompt"`
	Index        string            `json:"index,omitempty"`
	Chapters     int               `json:"chapters_generated"`
	FileProduced bool              `json:"file_produced"`
}

// transitionFn 单个步骤的校验与转移函数。
// 返回错误时必须保证会话未被修改。
type transitionFn func(ctx context.Context, s *entity.WizardSession, input string) error

// Machine 向导状态机。
// 每个输入步骤对应一个独立的转移函数，自动步骤（索引与章节生成）
// 在用户转移成功后循环执行，直到停在下一个需要输入的步骤。
type Machine struct {
	store     SessionStore
	completer Completer
	exporter  ExportWriter
	credits   *ledger.CreditLedger
	publisher EventPublisher
	cfg       Config

	transitions map[entity.WizardStep]transitionFn
}

// NewMachine 创建向导状态机
func NewMachine(
	store SessionStore,
	completer Completer,
	exporter ExportWriter,
	credits *ledger.CreditLedger,
	publisher EventPublisher,
	cfg Config,
) *Machine {
	m := &Machine{
		store:     store,
		completer: completer,
		exporter:  exporter,
		credits:   credits,
		publisher: publisher,
		cfg:       cfg,
	}
	m.transitions = map[entity.WizardStep]transitionFn{
		entity.StepAskTitle:        m.handleAskText(func(p *entity.EbookParams, v string) { p.Title = v }, entity.StepAskTopic),
		entity.StepAskTopic:        m.handleAskText(func(p *entity.EbookParams, v string) { p.Topic = v }, entity.StepAskAudience),
		entity.StepAskAudience:     m.handleAskText(func(p *entity.EbookParams, v string) { p.Audience = v }, entity.StepAskTone),
		entity.StepAskTone:         m.handleAskText(func(p *entity.EbookParams, v string) { p.Tone = v }, entity.StepAskChapterCount),
		entity.StepAskChapterCount: m.handleChapterCount,
		entity.StepConfirmIndex:    m.handleConfirmIndex,
		entity.StepFinalize:        m.handleFinalize,
	}
	return m
}

// Current 返回会话当前视图，会话不存在时创建新会话
func (m *Machine) Current(ctx context.Context, sessionID, accountID string) (*StepResult, error) {
	s, err := m.loadOrCreate(ctx, sessionID, accountID)
	if err != nil {
		return nil, err
	}
	return m.view(s), nil
}

// HandleInput 处理一次用户输入并推进状态机。
// 校验失败、余额不足、导出失败时会话保持原步骤不变；
// 自动步骤失败后会话停在该自动步骤，下一次调用不消费输入而是重试生成。
func (m *Machine) HandleInput(ctx context.Context, sessionID, accountID, input string) (*StepResult, error) {
	ctx, span := tracer.Start(ctx, "wizard.HandleInput",
		trace.WithAttributes(attribute.String("wizard.session_id", sessionID)))
	defer span.End()

	s, err := m.loadOrCreate(ctx, sessionID, accountID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("wizard.step", string(s.Step)))

	if isAutomatic(s.Step) {
		return m.resumeAutomatic(ctx, s)
	}

	if s.Step == entity.StepComplete {
		return nil, apperrors.New(apperrors.CodeWizardComplete, "wizard already complete, reset the session to start over")
	}

	fn, ok := m.transitions[s.Step]
	if !ok {
		return nil, apperrors.New(apperrors.CodeInternalError, "no transition for step "+string(s.Step))
	}

	if err := fn(ctx, s, input); err != nil {
		span.RecordError(err)
		return nil, err
	}

	autoErr := m.runAutomatic(ctx, s)
	if err := m.store.Save(ctx, s); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if autoErr != nil {
		span.RecordError(autoErr)
		return nil, autoErr
	}
	return m.view(s), nil
}

// Reset 重置会话到初始步骤
func (m *Machine) Reset(ctx context.Context, sessionID, accountID string) (*StepResult, error) {
	s, err := m.loadOrCreate(ctx, sessionID, accountID)
	if err != nil {
		return nil, err
	}
	s.Reset()
	if err := m.store.Save(ctx, s); err != nil {
		return nil, err
	}
	return m.view(s), nil
}

// ExportedFile 返回已生成文件的路径，未生成时返回 ErrExportFailed
func (m *Machine) ExportedFile(ctx context.Context, sessionID string) (string, error) {
	s, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if s == nil || !s.FileProduced || s.FilePath == "" {
		return "", apperrors.New(apperrors.CodeNotFound, "no exported file for this session")
	}
	return s.FilePath, nil
}

func (m *Machine) loadOrCreate(ctx context.Context, sessionID, accountID string) (*entity.WizardSession, error) {
	s, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s != nil {
		return s, nil
	}
	s = entity.NewWizardSession(sessionID, accountID)
	if err := m.store.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// resumeAutomatic 在上一次自动步骤失败后重试生成，不消费用户输入
func (m *Machine) resumeAutomatic(ctx context.Context, s *entity.WizardSession) (*StepResult, error) {
	autoErr := m.runAutomatic(ctx, s)
	if err := m.store.Save(ctx, s); err != nil {
		return nil, err
	}
	if autoErr != nil {
		return nil, autoErr
	}
	return m.view(s), nil
}

// runAutomatic 连续执行自动步骤，直到停在需要用户输入的步骤或失败
func (m *Machine) runAutomatic(ctx context.Context, s *entity.WizardSession) error {
	for {
		switch s.Step {
		case entity.StepGenerateIndex:
			if err := m.generateIndex(ctx, s); err != nil {
				return err
			}
		case entity.StepGenerateAllChapters:
			if err := m.generateAllChapters(ctx, s); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (m *Machine) generateIndex(ctx context.Context, s *entity.WizardSession) error {
	ctx, span := tracer.Start(ctx, "wizard.generateIndex")
	defer span.End()

	text, err := m.completer.Complete(ctx, indexPrompt(s.Params), m.cfg.IndexMaxTokens)
	if err != nil {
		span.RecordError(err)
		return apperrors.Wrap(err, apperrors.CodeGenerationFailed, "index generation failed")
	}
	s.SetIndex(text)
	m.advance(s, entity.StepConfirmIndex)
	return nil
}

// generateAllChapters 顺序生成全部章节。
// 进入前清空已有章节，保证重入后不会出现重复条目；
// 中途失败会丢弃本轮已生成的章节，会话停在本步骤等待重试。
func (m *Machine) generateAllChapters(ctx context.Context, s *entity.WizardSession) error {
	ctx, span := tracer.Start(ctx, "wizard.generateAllChapters",
		trace.WithAttributes(attribute.Int("wizard.chapters", s.Params.Chapters)))
	defer span.End()

	s.ClearChapters()
	index := s.IndexText()
	for i := 1; i <= s.Params.Chapters; i++ {
		text, err := m.completer.Complete(ctx, chapterPrompt(s.Params, index, i), m.cfg.ChapterMaxTokens)
		if err != nil {
			span.RecordError(err)
			s.ClearChapters()
			return apperrors.Wrap(err, apperrors.CodeGenerationFailed,
				"chapter "+strconv.Itoa(i)+" generation failed")
		}
		s.AppendChapter(i, text)
		logger.Info(ctx, "chapter generated", "session_id", s.ID, "chapter", i)
	}
	m.advance(s, entity.StepFinalize)
	return nil
}

// handleAskText 自由文本步骤的通用转移：非空即存储并前进
func (m *Machine) handleAskText(assign func(*entity.EbookParams, string), next entity.WizardStep) transitionFn {
	return func(ctx context.Context, s *entity.WizardSession, input string) error {
		if strings.TrimSpace(input) == "" {
			return ValidationError{Step: s.Step, Reason: "input must not be empty"}
		}
		assign(&s.Params, input)
		m.advance(s, next)
		return nil
	}
}

func (m *Machine) handleChapterCount(ctx context.Context, s *entity.WizardSession, input string) error {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return ValidationError{Step: s.Step, Reason: "chapter count must be an integer"}
	}
	if n < 1 {
		return ValidationError{Step: s.Step, Reason: "chapter count must be at least 1"}
	}
	s.Params.Chapters = n
	m.advance(s, entity.StepGenerateIndex)
	return nil
}

// handleConfirmIndex 确认索引。确认即扣费：费用 = 单章费用 × 章节数，
// 扣费失败时不消费本次确认，会话停在 confirm_index 以便充值后重试。
func (m *Machine) handleConfirmIndex(ctx context.Context, s *entity.WizardSession, input string) error {
	yes, err := parseYesNo(s.Step, input)
	if err != nil {
		return err
	}
	if !yes {
		m.advance(s, entity.StepAskChapterCount)
		return nil
	}

	cost := m.cfg.PerChapterCost * s.Params.Chapters
	if _, err := m.credits.Debit(ctx, s.AccountID, cost, entity.ActionGenerateEbook); err != nil {
		if ledger.IsInsufficientCredits(err) {
			return apperrors.Wrap(err, apperrors.CodeInsufficientCredits, "not enough credits to generate the ebook")
		}
		return err
	}
	m.advance(s, entity.StepGenerateAllChapters)
	return nil
}

func (m *Machine) handleFinalize(ctx context.Context, s *entity.WizardSession, input string) error {
	yes, err := parseYesNo(s.Step, input)
	if err != nil {
		return err
	}
	if !yes {
		m.advance(s, entity.StepComplete)
		return nil
	}

	path, err := m.exporter.WriteEbook(ctx, s.Params.Title, s.Content)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeExportFailed, "docx export failed")
	}
	s.FilePath = path
	s.FileProduced = true
	m.advance(s, entity.StepComplete)
	metrics.EbookExportsTotal.Inc()

	if m.publisher != nil {
		payload := map[string]any{
			"session_id": s.ID,
			"account_id": s.AccountID,
			"title":      s.Params.Title,
			"chapters":   s.ChapterCount(),
			"file_path":  path,
		}
		if err := m.publisher.Publish(ctx, EventEbookExported, payload); err != nil {
			// 事件发布失败不影响导出结果
			logger.Warn(ctx, "failed to publish export event", "error", err)
		}
	}
	return nil
}

func (m *Machine) advance(s *entity.WizardSession, to entity.WizardStep) {
	from := s.Step
	s.Step = to
	s.UpdatedAt = time.Now()
	if from != to {
		metrics.WizardTransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
	}
}

func (m *Machine) view(s *entity.WizardSession) *StepResult {
	return &StepResult{
		Step:         s.Step,
		Prompt:       stepPrompts[s.Step],
		Index:        s.IndexText(),
		Chapters:     s.ChapterCount(),
		FileProduced: s.FileProduced,
	}
}

// isAutomatic 判断步骤是否为无需用户输入的自动步骤
func isAutomatic(step entity.WizardStep) bool {
	return step == entity.StepGenerateIndex || step == entity.StepGenerateAllChapters
}

// parseYesNo 解析 sí/no 确认输入，大小写不敏感
func parseYesNo(step entity.WizardStep, input string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "sí", "si", "s":
		return true, nil
	case "no", "n":
		return false, nil
	default:
		return false, ValidationError{Step: step, Reason: "answer must be sí or no"}
	}
}
