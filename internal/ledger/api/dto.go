package api

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xxz807/docbank/backend/internal/ledger/domain"
)

// CreateAccountReq 开户请求
// 金额一律传字符串（主币单位），防止 JSON 浮点精度丢失
type CreateAccountReq struct {
	OwnerName      string `json:"owner_name" binding:"required"`
	AccountNumber  uint32 `json:"account_number" binding:"required"`
	CardID         uint32 `json:"card_id" binding:"required"`
	OpeningBalance string `json:"opening_balance"`
}

// AmountReq 存取款请求
type AmountReq struct {
	Amount string `json:"amount" binding:"required"`
}

// AccountResp 账户视图
type AccountResp struct {
	AccountNumber uint32    `json:"account_number"`
	CardID        uint32    `json:"card_id"`
	OwnerName     string    `json:"owner_name"`
	Balance       string    `json:"balance"`
	CreatedAt     time.Time `json:"created_at"`
}

func toAccountResp(acct *domain.Account) AccountResp {
	return AccountResp{
		AccountNumber: acct.AccountNumber,
		CardID:        acct.CardID,
		OwnerName:     acct.OwnerName,
		Balance:       formatMinor(acct.Balance),
		CreatedAt:     acct.CreatedAt,
	}
}

// minorUnits 把主币单位字符串精确换算成最小货币单位 (分)
// 超过两位小数说明不是合法金额
func minorUnits(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	shifted := d.Shift(2)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("invalid amount %q: more than 2 decimal places", s)
	}
	return shifted.IntPart(), nil
}

// formatMinor 最小货币单位 → 主币单位字符串，两位小数
func formatMinor(v int64) string {
	return decimal.New(v, -2).StringFixed(2)
}
