// Package entity 定义领域实体
package entity

import (
	"time"
)

// WizardStep 向导步骤
type WizardStep string

const (
	StepAskTitle            WizardStep = "ask_title"
	StepAskTopic            WizardStep = "ask_topic"
	StepAskAudience         WizardStep = "ask_audience"
	StepAskTone             WizardStep = "ask_tone"
	StepAskChapterCount     WizardStep = "ask_chapter_count"
	StepGenerateIndex       WizardStep = "generate_index"
	StepConfirmIndex        WizardStep = "confirm_index"
	StepGenerateAllChapters WizardStep = "generate_all_chapters"
	StepFinalize            WizardStep = "finalize"
	StepComplete            WizardStep = "complete"
)

// ContentKind 内容条目类型
type ContentKind string

const (
	ContentIndex   ContentKind = "index"
	ContentChapter ContentKind = "chapter"
)

// ContentEntry 向导生成的内容条目。
// Number 仅对 chapter 类型有意义，从 1 开始。
type ContentEntry struct {
	Kind   ContentKind `json:"kind"`
	Number int         `json:"number,omitempty"`
	Text   string      `json:"text"`
}

// EbookParams 向导收集的生成参数
type EbookParams struct {
	Title    string `json:"title"`
	Topic    string `json:"topic"`
	Audience string `json:"audience"`
	Tone     string `json:"tone"`
	Chapters int    `json:"chapters"`
}

// WizardSession 向导会话状态。
// 不做持久化保证：会话随存储过期而消失，过期后从第一步重新开始。
type WizardSession struct {
	ID           string         `json:"id"`
	AccountID    string         `json:"account_id"`
	Step         WizardStep     `json:"step"`
	Params       EbookParams    `json:"params"`
	Content      []ContentEntry `json:"content"`
	FilePath     string         `json:"file_path,omitempty"`
	FileProduced bool           `json:"file_produced"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NewWizardSession 创建初始向导会话
func NewWizardSession(id, accountID string) *WizardSession {
	now := time.Now()
	return &WizardSession{
		ID:        id,
		AccountID: accountID,
		Step:      StepAskTitle,
		Content:   []ContentEntry{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Reset 重置会话到初始状态（取消或完成确认后调用）
func (s *WizardSession) Reset() {
	s.Step = StepAskTitle
	s.Params = EbookParams{}
	s.Content = []ContentEntry{}
	s.FilePath = ""
	s.FileProduced = false
	s.UpdatedAt = time.Now()
}

// IndexText 返回索引内容文本，不存在时返回空串
func (s *WizardSession) IndexText() string {
	for _, entry := range s.Content {
		if entry.Kind == ContentIndex {
			return entry.Text
		}
	}
	return ""
}

// SetIndex 写入索引内容，保证内容列表中至多一条 index
func (s *WizardSession) SetIndex(text string) {
	for i, entry := range s.Content {
		if entry.Kind == ContentIndex {
			s.Content[i].Text = text
			return
		}
	}
	s.Content = append(s.Content, ContentEntry{Kind: ContentIndex, Text: text})
}

// ClearChapters 删除所有 chapter 条目。
// generate_all_chapters 重入前调用，防止重试后出现重复章节。
func (s *WizardSession) ClearChapters() {
	kept := s.Content[:0]
	for _, entry := range s.Content {
		if entry.Kind != ContentChapter {
			kept = append(kept, entry)
		}
	}
	s.Content = kept
}

// AppendChapter 追加一条章节内容
func (s *WizardSession) AppendChapter(number int, text string) {
	s.Content = append(s.Content, ContentEntry{Kind: ContentChapter, Number: number, Text: text})
}

// ChapterCount 返回当前章节条目数
func (s *WizardSession) ChapterCount() int {
	n := 0
	for _, entry := range s.Content {
		if entry.Kind == ContentChapter {
			n++
		}
	}
	return n
}
