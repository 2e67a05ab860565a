// Package handler 提供 HTTP 请求处理器
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"ebook-assist-api/internal/application/ledger"
	"ebook-assist-api/internal/domain/repository"
	"ebook-assist-api/internal/interfaces/http/dto"
)

// AccountHandler 账户处理器
type AccountHandler struct {
	credits *ledger.CreditLedger
}

// NewAccountHandler 创建账户处理器
func NewAccountHandler(credits *ledger.CreditLedger) *AccountHandler {
	return &AccountHandler{credits: credits}
}

// Get 返回当前账户与余额
func (h *AccountHandler) Get(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		dto.InternalError(c, "account not resolved")
		return
	}
	dto.Success(c, dto.NewAccountResponse(account))
}

// Transactions 返回账户积分流水
func (h *AccountHandler) Transactions(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		dto.InternalError(c, "account not resolved")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	txs, err := h.credits.History(c.Request.Context(), account.ID, repository.NewPagination(page, pageSize))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.NewTransactionResponses(txs))
}
