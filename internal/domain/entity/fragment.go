// Package entity 定义领域实体
package entity

// Fragment 相似度检索返回的文本片段
type Fragment struct {
	ID    string  `json:"id"`
	Ebook string  `json:"ebook"`
	Text  string  `json:"text"`
	Score float32 `json:"score"`
}
