package domain

import (
	"context"
	"time"
)

// AccountRepository 账户仓储接口 (Port)
// Adapter 在基础设施层基于文档存储实现它
type AccountRepository interface {
	// Create 创建账户文档，身份冲突返回 ErrDuplicateAccount
	// 成功时返回带 Version / CreatedAt 的账户快照
	Create(ctx context.Context, acct *Account) (*Account, error)

	// Find 解析身份二元组到账户的最新版本，不存在返回 ErrAccountNotFound
	// 存储引擎可能保留历史版本，调用方通过本方法只会看到当前状态
	Find(ctx context.Context, accountNumber, cardID uint32) (*Account, error)

	// UpdateBalance 核心：写入新余额（追加新版本，历史不丢）
	// acct 必须是 Find 返回的快照，其 Version 即乐观锁检查依据
	// 自读取以来文档被他人改过则返回 ErrStaleWrite
	// 这是余额唯一的变更入口
	UpdateBalance(ctx context.Context, acct *Account, newBalance int64) error
}

// TransactionLog 交易日志接口 (Port)，append-only
type TransactionLog interface {
	// Append 追加一条交易记录，只会因存储 I/O 失败而出错
	Append(ctx context.Context, entry *TransactionEntry) error

	// History 按 RecordedAt 升序返回 asOf 时刻之前的全部交易
	// 账户存在但无交易时返回空切片；账户不存在返回 ErrAccountNotFound
	History(ctx context.Context, accountNumber, cardID uint32, asOf time.Time) ([]TransactionEntry, error)
}
