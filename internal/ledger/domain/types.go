package domain

// EntryKind 交易方向 (Deposit/Withdrawal)
type EntryKind string

const (
	Deposit    EntryKind = "Deposit"
	Withdrawal EntryKind = "Withdrawal"
)

// IsValid 校验方向合法性
func (k EntryKind) IsValid() bool {
	return k == Deposit || k == Withdrawal
}
