package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxz807/docbank/backend/internal/ledger/domain"
	"github.com/xxz807/docbank/backend/internal/ledger/service"
)

// LedgerHandler 前端展示层：只做参数绑定和结果渲染，业务校验全在核心
type LedgerHandler struct {
	svc *service.LedgerService
}

func NewLedgerHandler(svc *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{svc: svc}
}

// RegisterRoutes 注册路由
func (h *LedgerHandler) RegisterRoutes(r *gin.RouterGroup) {
	accounts := r.Group("/accounts")
	{
		accounts.POST("", h.CreateAccount)
		accounts.GET("/:number/:card", h.GetAccount)
		accounts.POST("/:number/:card/deposit", h.Deposit)
		accounts.POST("/:number/:card/withdraw", h.Withdraw)
		accounts.GET("/:number/:card/statement", h.Statement)
	}
}

// CreateAccount 开户接口
// POST /api/v1/accounts
func (h *LedgerHandler) CreateAccount(c *gin.Context) {
	var req CreateAccountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	opening := int64(0)
	if req.OpeningBalance != "" {
		var err error
		// 只换算不校验，负数开户余额交给核心拒绝
		opening, err = minorUnits(req.OpeningBalance)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	acct, info, err := h.svc.CreateAccount(c.Request.Context(), req.OwnerName, req.AccountNumber, req.CardID, opening)
	if err != nil {
		renderErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": info,
		"account": toAccountResp(acct),
	})
}

// GetAccount 查询账户当前状态
// GET /api/v1/accounts/:number/:card
func (h *LedgerHandler) GetAccount(c *gin.Context) {
	number, card, ok := identity(c)
	if !ok {
		return
	}

	acct, err := h.svc.GetAccount(c.Request.Context(), number, card)
	if err != nil {
		renderErr(c, err)
		return
	}
	c.JSON(http.StatusOK, toAccountResp(acct))
}

// Deposit 存款接口
// POST /api/v1/accounts/:number/:card/deposit
func (h *LedgerHandler) Deposit(c *gin.Context) {
	h.applyAmount(c, h.svc.Deposit)
}

// Withdraw 取款接口
// POST /api/v1/accounts/:number/:card/withdraw
func (h *LedgerHandler) Withdraw(c *gin.Context) {
	h.applyAmount(c, h.svc.Withdraw)
}

// applyAmount 存取款共用的绑定与渲染逻辑，方向差异由 op 决定
func (h *LedgerHandler) applyAmount(c *gin.Context, op func(ctx context.Context, number, card uint32, amount int64) (int64, error)) {
	number, card, ok := identity(c)
	if !ok {
		return
	}

	var req AmountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	// 只换算不校验，非正金额交给核心拒绝
	amount, err := minorUnits(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	balance, err := op(c.Request.Context(), number, card, amount)
	if err != nil {
		renderErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": formatMinor(balance)})
}

// Statement 账单接口
// GET /api/v1/accounts/:number/:card/statement?as_of=RFC3339
func (h *LedgerHandler) Statement(c *gin.Context) {
	number, card, ok := identity(c)
	if !ok {
		return
	}

	var asOf time.Time
	if raw := c.Query("as_of"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid as_of: " + err.Error()})
			return
		}
		asOf = t
	}

	lines, err := h.svc.Statement(c.Request.Context(), number, card, asOf)
	if err != nil {
		renderErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"statement": lines})
}

// identity 从路径解析账户身份二元组
func identity(c *gin.Context) (uint32, uint32, bool) {
	number, err := strconv.ParseUint(c.Param("number"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account number"})
		return 0, 0, false
	}
	card, err := strconv.ParseUint(c.Param("card"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid card id"})
		return 0, 0, false
	}
	return uint32(number), uint32(card), true
}

// renderErr 领域错误 → HTTP 状态码
// 展示层只翻译，不替错误做任何兜底
func renderErr(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrAccountNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateAccount),
		errors.Is(err, domain.ErrInsufficientFunds):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrBusy):
		status = http.StatusTooManyRequests
	case errors.Is(err, domain.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
