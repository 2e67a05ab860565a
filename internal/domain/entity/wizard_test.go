package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWizardSession_IndexAndChapters(t *testing.T) {
	s := NewWizardSession("session-1", "account-1")
	assert.Equal(t, StepAskTitle, s.Step)
	assert.Empty(t, s.IndexText())

	s.SetIndex("índice v1")
	assert.Equal(t, "índice v1", s.IndexText())

	// 重写索引不会新增条目
	s.SetIndex("índice v2")
	assert.Equal(t, "índice v2", s.IndexText())
	assert.Len(t, s.Content, 1)

	s.AppendChapter(1, "uno")
	s.AppendChapter(2, "dos")
	assert.Equal(t, 2, s.ChapterCount())

	// 清空章节保留索引
	s.ClearChapters()
	assert.Equal(t, 0, s.ChapterCount())
	assert.Equal(t, "índice v2", s.IndexText())
}

func TestWizardSession_Reset(t *testing.T) {
	s := NewWizardSession("session-1", "account-1")
	s.Step = StepFinalize
	s.Params = EbookParams{Title: "t", Chapters: 3}
	s.SetIndex("índice")
	s.AppendChapter(1, "uno")
	s.FilePath = "exports/ebook_generated.docx"
	s.FileProduced = true

	s.Reset()

	assert.Equal(t, StepAskTitle, s.Step)
	assert.Equal(t, EbookParams{}, s.Params)
	assert.Empty(t, s.Content)
	assert.Empty(t, s.FilePath)
	assert.False(t, s.FileProduced)
	// 会话身份不变
	assert.Equal(t, "session-1", s.ID)
	assert.Equal(t, "account-1", s.AccountID)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", NormalizeEmail("  User@Example.COM "))
	assert.Empty(t, NormalizeEmail("   "))
}

func TestNewDebitTransaction(t *testing.T) {
	tx := NewDebitTransaction("account-1", ActionGenerateEbook, 10)
	assert.Equal(t, -10, tx.Amount)
	assert.Equal(t, ActionGenerateEbook, tx.Action)
	assert.Equal(t, "account-1", tx.AccountID)
	assert.NotEmpty(t, tx.ID)
}
