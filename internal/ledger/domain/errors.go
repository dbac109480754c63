package domain

import "errors"

// 领域错误，全部用 errors.Is 匹配
// 上层 (API) 负责映射到 HTTP 状态码，核心绝不用零值顶替失败
var (
	// ErrInvalidAmount 金额非法：存取款金额 <= 0，或开户余额为负
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrDuplicateAccount 账户身份二元组已存在
	ErrDuplicateAccount = errors.New("account already exists")

	// ErrAccountNotFound 账户不存在
	ErrAccountNotFound = errors.New("account not found")

	// ErrInsufficientFunds 取款会导致余额为负
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrStaleWrite 乐观并发冲突，只在核心内部出现，由重试吸收
	ErrStaleWrite = errors.New("account modified since read")

	// ErrBusy 重试预算耗尽，向调用方暴露
	ErrBusy = errors.New("account busy, retry later")

	// ErrStoreUnavailable 存储引擎 I/O 失败
	ErrStoreUnavailable = errors.New("document store unavailable")
)
