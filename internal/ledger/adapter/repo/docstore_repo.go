package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xxz807/docbank/backend/internal/ledger/domain"
	"github.com/xxz807/docbank/backend/internal/platform/docstore"
)

const (
	kindAccount = "account"
	kindEntry   = "entry"
)

// accountBody 账户文档的 body 结构
// created_at 随版本一起往前带：首个版本由存储引擎的 RecordedAt 补齐
type accountBody struct {
	OwnerName     string    `json:"owner_name"`
	AccountNumber uint32    `json:"account_number"`
	CardID        uint32    `json:"card_id"`
	Balance       int64     `json:"balance"`
	CreatedAt     time.Time `json:"created_at"`
}

// DocstoreAccountRepo 基于文档存储的账户仓储实现
type DocstoreAccountRepo struct {
	store docstore.Store
}

func NewAccountRepo(store docstore.Store) *DocstoreAccountRepo {
	return &DocstoreAccountRepo{store: store}
}

func (r *DocstoreAccountRepo) Create(ctx context.Context, acct *domain.Account) (*domain.Account, error) {
	body, err := json.Marshal(accountBody{
		OwnerName:     acct.OwnerName,
		AccountNumber: acct.AccountNumber,
		CardID:        acct.CardID,
		Balance:       acct.Balance,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal account: %w", err)
	}

	// Version == 0：只允许首个版本，身份冲突由存储层拦截
	stored, err := r.store.Put(ctx, docstore.Document{
		DocID: acct.DocID(),
		Kind:  kindAccount,
		Body:  body,
	})
	if err != nil {
		if errors.Is(err, docstore.ErrDocExists) {
			return nil, domain.ErrDuplicateAccount
		}
		return nil, storeErr(err)
	}

	created := *acct
	created.Version = stored.Version
	created.CreatedAt = stored.RecordedAt
	return &created, nil
}

func (r *DocstoreAccountRepo) Find(ctx context.Context, accountNumber, cardID uint32) (*domain.Account, error) {
	doc, err := r.store.GetLatest(ctx, domain.AccountDocID(accountNumber, cardID))
	if err != nil {
		if errors.Is(err, docstore.ErrDocNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, storeErr(err)
	}
	return docToAccount(doc)
}

func (r *DocstoreAccountRepo) UpdateBalance(ctx context.Context, acct *domain.Account, newBalance int64) error {
	body, err := json.Marshal(accountBody{
		OwnerName:     acct.OwnerName,
		AccountNumber: acct.AccountNumber,
		CardID:        acct.CardID,
		Balance:       newBalance,
		CreatedAt:     acct.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}

	// compare-and-append：带上读取时的版本，被人抢写即 ErrStaleWrite
	_, err = r.store.Put(ctx, docstore.Document{
		DocID:   acct.DocID(),
		Version: acct.Version,
		Kind:    kindAccount,
		Body:    body,
	})
	if err != nil {
		if errors.Is(err, docstore.ErrVersionConflict) {
			return domain.ErrStaleWrite
		}
		if errors.Is(err, docstore.ErrDocExists) {
			return domain.ErrStaleWrite
		}
		return storeErr(err)
	}
	return nil
}

func docToAccount(doc docstore.Document) (*domain.Account, error) {
	var body accountBody
	if err := json.Unmarshal(doc.Body, &body); err != nil {
		return nil, fmt.Errorf("unmarshal account %s: %w", doc.DocID, err)
	}
	createdAt := body.CreatedAt
	if createdAt.IsZero() {
		// 首个版本的 body 里没有 created_at，用存储引擎的记录时间补齐
		createdAt = doc.RecordedAt
	}
	return &domain.Account{
		AccountNumber: body.AccountNumber,
		CardID:        body.CardID,
		OwnerName:     body.OwnerName,
		Balance:       body.Balance,
		Version:       doc.Version,
		CreatedAt:     createdAt,
	}, nil
}

// DocstoreTransactionLog 基于文档存储的交易日志实现
// 每条交易是一个独立文档，只写一次，永不追加新版本
type DocstoreTransactionLog struct {
	store docstore.Store
}

func NewTransactionLog(store docstore.Store) *DocstoreTransactionLog {
	return &DocstoreTransactionLog{store: store}
}

func (l *DocstoreTransactionLog) Append(ctx context.Context, entry *domain.TransactionEntry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	stored, err := l.store.Put(ctx, docstore.Document{
		DocID: "entry/" + entry.EntryID,
		Kind:  kindEntry,
		Body:  body,
	})
	if err != nil {
		return storeErr(err)
	}
	entry.RecordedAt = stored.RecordedAt
	return nil
}

func (l *DocstoreTransactionLog) History(ctx context.Context, accountNumber, cardID uint32, asOf time.Time) ([]domain.TransactionEntry, error) {
	// 身份本身不存在要报 ErrAccountNotFound，而不是空账单
	if _, err := l.store.GetLatest(ctx, domain.AccountDocID(accountNumber, cardID)); err != nil {
		if errors.Is(err, docstore.ErrDocNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, storeErr(err)
	}

	if asOf.IsZero() {
		asOf = time.Now()
	}
	docs, err := l.store.Query(ctx, kindEntry, map[string]any{
		"account_number": accountNumber,
		"card_id":        cardID,
	}, asOf)
	if err != nil {
		return nil, storeErr(err)
	}

	entries := make([]domain.TransactionEntry, 0, len(docs))
	for _, doc := range docs {
		var entry domain.TransactionEntry
		if err := json.Unmarshal(doc.Body, &entry); err != nil {
			return nil, fmt.Errorf("unmarshal entry %s: %w", doc.DocID, err)
		}
		entry.RecordedAt = doc.RecordedAt
		entries = append(entries, entry)
	}
	return entries, nil
}

// storeErr 把存储层的 I/O 失败统一翻译成领域错误
func storeErr(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}
