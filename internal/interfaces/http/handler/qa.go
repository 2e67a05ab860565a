// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"ebook-assist-api/internal/application/qa"
	"ebook-assist-api/internal/interfaces/http/dto"
)

// QAHandler 问答处理器
type QAHandler struct {
	service *qa.Service
}

// NewQAHandler 创建问答处理器
func NewQAHandler(service *qa.Service) *QAHandler {
	return &QAHandler{service: service}
}

// ListEbooks 返回可问答的电子书目录
func (h *QAHandler) ListEbooks(c *gin.Context) {
	ebooks, err := h.service.ListEbooks(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.EbookListResponse{Ebooks: ebooks})
}

// Ask 回答关于指定电子书的问题
func (h *QAHandler) Ask(c *gin.Context) {
	var req dto.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	account, ok := currentAccount(c)
	if !ok {
		dto.InternalError(c, "account not resolved")
		return
	}

	answer, err := h.service.Ask(c.Request.Context(), account.ID, req.Ebook, req.Question)
	if err != nil {
		respondError(c, err)
		return
	}

	dto.Success(c, dto.AskResponse{
		Answer:    answer.Text,
		Fragments: answer.Fragments,
		Balance:   answer.Balance,
	})
}

// Speak 把回答文本合成为音频，直接返回音频流
func (h *QAHandler) Speak(c *gin.Context) {
	var req dto.SpeakRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	audio, mime, err := h.service.Speak(c.Request.Context(), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Data(200, mime, audio)
}
