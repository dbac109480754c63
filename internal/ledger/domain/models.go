package domain

import (
	"fmt"
	"time"
)

// Account 账户实体
// 身份由 (AccountNumber, CardID) 二元组唯一确定，创建后不可变
// 余额以最小货币单位 (分) 的 int64 存储，避免浮点误差
type Account struct {
	AccountNumber uint32 `json:"account_number"`
	CardID        uint32 `json:"card_id"`
	OwnerName     string `json:"owner_name"`
	Balance       int64  `json:"balance"`

	// Version / CreatedAt 来自存储引擎的文档信封，不进 body
	// Version 用于乐观并发控制：写回余额时必须带上读取时的版本
	Version   int64     `json:"-"`
	CreatedAt time.Time `json:"-"`
}

// DocID 账户在文档存储中的业务 ID
func (a *Account) DocID() string {
	return AccountDocID(a.AccountNumber, a.CardID)
}

func AccountDocID(accountNumber, cardID uint32) string {
	return fmt.Sprintf("account/%d/%d", accountNumber, cardID)
}

// TransactionEntry 一笔存款或取款的不可变记录
// 写入后永不修改或删除；Amount 恒为正数，方向由 Kind 表达
type TransactionEntry struct {
	EntryID          string    `json:"entry_id"`
	AccountNumber    uint32    `json:"account_number"`
	CardID           uint32    `json:"card_id"`
	Kind             EntryKind `json:"kind"`
	Amount           int64     `json:"amount"`
	ResultingBalance int64     `json:"resulting_balance"`

	// 由存储引擎分配
	RecordedAt time.Time `json:"-"`
}

// Render 生成对账单上的一行
func (e *TransactionEntry) Render() string {
	return fmt.Sprintf("%s %d -> balance %d @ %s",
		e.Kind, e.Amount, e.ResultingBalance, e.RecordedAt.UTC().Format(time.RFC3339Nano))
}
