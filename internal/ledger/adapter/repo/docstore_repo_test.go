package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xxz807/docbank/backend/internal/ledger/domain"
	"github.com/xxz807/docbank/backend/internal/platform/docstore"
)

func TestAccountRepo_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	accounts := NewAccountRepo(docstore.NewMemoryStore())

	created, err := accounts.Create(ctx, &domain.Account{
		AccountNumber: 123456,
		CardID:        1029384756,
		OwnerName:     "naomi",
		Balance:       300,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.Version)
	assert.False(t, created.CreatedAt.IsZero())

	found, err := accounts.Find(ctx, 123456, 1029384756)
	require.NoError(t, err)
	assert.Equal(t, "naomi", found.OwnerName)
	assert.Equal(t, int64(300), found.Balance)
	assert.True(t, found.CreatedAt.Equal(created.CreatedAt))

	_, err = accounts.Find(ctx, 123456, 42)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestAccountRepo_DuplicateCreate(t *testing.T) {
	ctx := context.Background()
	accounts := NewAccountRepo(docstore.NewMemoryStore())

	_, err := accounts.Create(ctx, &domain.Account{AccountNumber: 1, CardID: 2, OwnerName: "a", Balance: 100})
	require.NoError(t, err)

	_, err = accounts.Create(ctx, &domain.Account{AccountNumber: 1, CardID: 2, OwnerName: "b", Balance: 999})
	assert.ErrorIs(t, err, domain.ErrDuplicateAccount)

	// 第一个账户不受影响
	found, err := accounts.Find(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "a", found.OwnerName)
	assert.Equal(t, int64(100), found.Balance)
}

func TestAccountRepo_UpdateBalance(t *testing.T) {
	ctx := context.Background()
	accounts := NewAccountRepo(docstore.NewMemoryStore())

	created, err := accounts.Create(ctx, &domain.Account{AccountNumber: 1, CardID: 2, OwnerName: "a", Balance: 100})
	require.NoError(t, err)

	require.NoError(t, accounts.UpdateBalance(ctx, created, 150))

	found, err := accounts.Find(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(150), found.Balance)
	assert.Equal(t, int64(2), found.Version)
	// created_at 随版本往前带（JSON 往返会丢单调钟，用 Equal 比时刻）
	assert.True(t, found.CreatedAt.Equal(created.CreatedAt))

	// 拿着过期快照写回必须被拒绝
	err = accounts.UpdateBalance(ctx, created, 999)
	assert.ErrorIs(t, err, domain.ErrStaleWrite)

	found, err = accounts.Find(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(150), found.Balance)
}

func TestTransactionLog_AppendAndHistory(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	accounts := NewAccountRepo(store)
	txLog := NewTransactionLog(store)

	_, err := accounts.Create(ctx, &domain.Account{AccountNumber: 1, CardID: 2, OwnerName: "a", Balance: 0})
	require.NoError(t, err)

	// 无交易时返回空切片，不是错误
	entries, err := txLog.History(ctx, 1, 2, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, entries)

	e1 := &domain.TransactionEntry{EntryID: "e1", AccountNumber: 1, CardID: 2, Kind: domain.Deposit, Amount: 100, ResultingBalance: 100}
	require.NoError(t, txLog.Append(ctx, e1))
	assert.False(t, e1.RecordedAt.IsZero())

	e2 := &domain.TransactionEntry{EntryID: "e2", AccountNumber: 1, CardID: 2, Kind: domain.Withdrawal, Amount: 30, ResultingBalance: 70}
	require.NoError(t, txLog.Append(ctx, e2))

	// 别的账户的交易不应出现
	e3 := &domain.TransactionEntry{EntryID: "e3", AccountNumber: 9, CardID: 9, Kind: domain.Deposit, Amount: 50, ResultingBalance: 50}
	require.NoError(t, txLog.Append(ctx, e3))

	entries, err = txLog.History(ctx, 1, 2, time.Time{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.Deposit, entries[0].Kind)
	assert.Equal(t, int64(100), entries[0].ResultingBalance)
	assert.Equal(t, domain.Withdrawal, entries[1].Kind)
	assert.Equal(t, int64(70), entries[1].ResultingBalance)
	assert.True(t, entries[0].RecordedAt.Before(entries[1].RecordedAt))
}

func TestTransactionLog_HistoryUnknownAccount(t *testing.T) {
	ctx := context.Background()
	txLog := NewTransactionLog(docstore.NewMemoryStore())

	_, err := txLog.History(ctx, 1, 2, time.Time{})
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}
