// Package qa 实现基于片段检索的电子书问答
package qa

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ebook-assist-api/internal/application/ledger"
	"ebook-assist-api/internal/domain/entity"
	"ebook-assist-api/internal/domain/repository"
	apperrors "ebook-assist-api/pkg/errors"
	"ebook-assist-api/pkg/metrics"
)

var tracer = otel.Tracer("application/qa")

// Embedder 向量化网关：把一段文本转成查询向量
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Completer 生成网关
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Synthesizer 语音合成网关：返回音频数据与 MIME 类型
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, string, error)
}

// Config 问答运行参数
type Config struct {
	QuestionCost    int
	TopK            int
	AnswerMaxTokens int
}

// Answer 问答结果
type Answer struct {
	Text      string `json:"text"`
	Fragments int    `json:"fragments_used"`
	Balance   int    `json:"balance"`
}

// Service 问答服务：校验 ebook、扣费、检索上下文、生成回答
type Service struct {
	fragments repository.FragmentRepository
	embedder  Embedder
	completer Completer
	speech    Synthesizer
	credits   *ledger.CreditLedger
	cfg       Config
}

// NewService 创建问答服务
func NewService(
	fragments repository.FragmentRepository,
	embedder Embedder,
	completer Completer,
	speech Synthesizer,
	credits *ledger.CreditLedger,
	cfg Config,
) *Service {
	return &Service{
		fragments: fragments,
		embedder:  embedder,
		completer: completer,
		speech:    speech,
		credits:   credits,
		cfg:       cfg,
	}
}

// ListEbooks 返回当前可问答的 ebook 名称集合
func (s *Service) ListEbooks(ctx context.Context) ([]string, error) {
	ebooks, err := s.fragments.ListEbooks(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeRetrievalFailed, "failed to list ebooks")
	}
	return ebooks, nil
}

// Ask 回答关于指定 ebook 的问题。
// 流程：校验 ebook 存在 → 扣 1 积分 → 向量化问题 → 片段检索 → 生成回答。
// 扣费发生在任何外部生成调用之前，之后的失败不回滚积分。
func (s *Service) Ask(ctx context.Context, accountID, ebook, question string) (*Answer, error) {
	ctx, span := tracer.Start(ctx, "qa.Ask",
		trace.WithAttributes(attribute.String("qa.ebook", ebook)))
	defer span.End()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "question must not be empty")
	}

	known, err := s.ebookExists(ctx, ebook)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !known {
		return nil, apperrors.New(apperrors.CodeEbookNotFound, "ebook not found: "+ebook)
	}

	balance, err := s.credits.Debit(ctx, accountID, s.cfg.QuestionCost, entity.ActionQuestion)
	if err != nil {
		span.RecordError(err)
		if ledger.IsInsufficientCredits(err) {
			return nil, apperrors.Wrap(err, apperrors.CodeInsufficientCredits, "not enough credits to ask a question")
		}
		return nil, err
	}

	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeEmbeddingFailed, "failed to embed question")
	}

	found, err := s.fragments.SearchFragments(ctx, ebook, vector, s.cfg.TopK)
	if err != nil {
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeRetrievalFailed, "fragment search failed")
	}
	metrics.FragmentSearchesTotal.WithLabelValues(ebook).Inc()

	text, err := s.completer.Complete(ctx, answerPrompt(found, question), s.cfg.AnswerMaxTokens)
	if err != nil {
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeLLMCallFailed, "answer generation failed")
	}

	return &Answer{
		Text:      text,
		Fragments: len(found),
		Balance:   balance,
	}, nil
}

// Speak 把一段回答文本合成为音频
func (s *Service) Speak(ctx context.Context, text string) ([]byte, string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, "", apperrors.New(apperrors.CodeInvalidParam, "text must not be empty")
	}
	audio, mime, err := s.speech.Synthesize(ctx, text)
	if err != nil {
		return nil, "", apperrors.Wrap(err, apperrors.CodeSpeechFailed, "speech synthesis failed")
	}
	return audio, mime, nil
}

func (s *Service) ebookExists(ctx context.Context, ebook string) (bool, error) {
	ebooks, err := s.ListEbooks(ctx)
	if err != nil {
		return false, err
	}
	for _, name := range ebooks {
		if name == ebook {
			return true, nil
		}
	}
	return false, nil
}

// answerPrompt 用检索到的片段拼装问答 prompt
func answerPrompt(fragments []*entity.Fragment, question string) string {
	parts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		parts = append(parts, f.Text)
	}
	return fmt.Sprintf(`Eres un asistente experto en ebooks técnicos.
Usa este contexto para responder la pregunta claramente:

Contexto:
%s

Pregunta:
%s`, strings.Join(parts, "\n\n"), question)
}
