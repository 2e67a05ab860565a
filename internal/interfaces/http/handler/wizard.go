// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"ebook-assist-api/internal/application/wizard"
	"ebook-assist-api/internal/interfaces/http/dto"
)

// WizardHandler 向导处理器。
// 所有接口以 X-Session-ID 定位会话，账户由账户中间件解析。
type WizardHandler struct {
	machine *wizard.Machine
}

// NewWizardHandler 创建向导处理器
func NewWizardHandler(machine *wizard.Machine) *WizardHandler {
	return &WizardHandler{machine: machine}
}

func wizardStateResponse(result *wizard.StepResult) dto.WizardStateResponse {
	return dto.WizardStateResponse{
		Step:         string(result.Step),
		Prompt:       result.Prompt,
		Index:        result.Index,
		Chapters:     result.Chapters,
		FileProduced: result.FileProduced,
	}
}

// State 返回会话当前步骤与提示
func (h *WizardHandler) State(c *gin.Context) {
	sid := sessionID(c)
	if sid == "" {
		dto.BadRequest(c, "missing X-Session-ID header")
		return
	}
	account, ok := currentAccount(c)
	if !ok {
		dto.InternalError(c, "account not resolved")
		return
	}

	result, err := h.machine.Current(c.Request.Context(), sid, account.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, wizardStateResponse(result))
}

// Input 提交一次向导输入
func (h *WizardHandler) Input(c *gin.Context) {
	sid := sessionID(c)
	if sid == "" {
		dto.BadRequest(c, "missing X-Session-ID header")
		return
	}
	account, ok := currentAccount(c)
	if !ok {
		dto.InternalError(c, "account not resolved")
		return
	}

	var req dto.WizardInputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.machine.HandleInput(c.Request.Context(), sid, account.ID, req.Input)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, wizardStateResponse(result))
}

// Reset 重置会话到第一步
func (h *WizardHandler) Reset(c *gin.Context) {
	sid := sessionID(c)
	if sid == "" {
		dto.BadRequest(c, "missing X-Session-ID header")
		return
	}
	account, ok := currentAccount(c)
	if !ok {
		dto.InternalError(c, "account not resolved")
		return
	}

	result, err := h.machine.Reset(c.Request.Context(), sid, account.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, wizardStateResponse(result))
}

// Download 下载生成的 DOCX 文件
func (h *WizardHandler) Download(c *gin.Context) {
	sid := sessionID(c)
	if sid == "" {
		dto.BadRequest(c, "missing X-Session-ID header")
		return
	}

	path, err := h.machine.ExportedFile(c.Request.Context(), sid)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="ebook_generated.docx"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	c.File(path)
}
