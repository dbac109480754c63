package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xxz807/docbank/backend/internal/ledger/domain"
)

// DefaultRetryBudget StaleWrite 重试预算的缺省值
const DefaultRetryBudget = 3

// LedgerService 账本核心服务
// 负责开户、存取款（read-validate-write + 乐观锁重试）和账单重建
type LedgerService struct {
	accounts    domain.AccountRepository
	log         domain.TransactionLog
	logger      *zap.Logger
	retryBudget int
}

func NewLedgerService(accounts domain.AccountRepository, log domain.TransactionLog, logger *zap.Logger, retryBudget int) *LedgerService {
	if retryBudget <= 0 {
		retryBudget = DefaultRetryBudget
	}
	return &LedgerService{
		accounts:    accounts,
		log:         log,
		logger:      logger,
		retryBudget: retryBudget,
	}
}

// CreateAccount 开户
// 返回账户快照和供前端展示的确认信息
func (s *LedgerService) CreateAccount(ctx context.Context, ownerName string, accountNumber, cardID uint32, openingBalance int64) (*domain.Account, string, error) {
	// 1. 基础校验：开户余额不得为负
	if openingBalance < 0 {
		return nil, "", domain.ErrInvalidAmount
	}

	// 2. 创建文档，身份冲突由仓储层报 ErrDuplicateAccount
	created, err := s.accounts.Create(ctx, &domain.Account{
		AccountNumber: accountNumber,
		CardID:        cardID,
		OwnerName:     ownerName,
		Balance:       openingBalance,
	})
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("account created",
		zap.Uint32("account_number", created.AccountNumber),
		zap.String("owner", created.OwnerName),
		zap.Int64("balance", created.Balance),
	)

	info := fmt.Sprintf("account %d created for %s", created.AccountNumber, created.OwnerName)
	return created, info, nil
}

// GetAccount 查询账户当前状态
func (s *LedgerService) GetAccount(ctx context.Context, accountNumber, cardID uint32) (*domain.Account, error) {
	return s.accounts.Find(ctx, accountNumber, cardID)
}

// Deposit 存款，成功返回新余额
func (s *LedgerService) Deposit(ctx context.Context, accountNumber, cardID uint32, amount int64) (int64, error) {
	return s.apply(ctx, accountNumber, cardID, amount, domain.Deposit)
}

// Withdraw 取款，余额不足返回 ErrInsufficientFunds，成功返回新余额
func (s *LedgerService) Withdraw(ctx context.Context, accountNumber, cardID uint32, amount int64) (int64, error) {
	return s.apply(ctx, accountNumber, cardID, amount, domain.Withdrawal)
}

// apply 存取款共用的 read-validate-write 循环
// 没有多文档事务可用，靠账户文档上的乐观锁让整个循环对调用方等效原子：
// 写回余额失败 (StaleWrite) 就整轮重做，预算耗尽报 ErrBusy
// 写入顺序固定为先余额后日志，保证不会出现没有余额变更对应的交易记录
func (s *LedgerService) apply(ctx context.Context, accountNumber, cardID uint32, amount int64, kind domain.EntryKind) (int64, error) {
	// 1. 金额必须为正，方向由 kind 表达
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}

	for attempt := 1; ; attempt++ {
		// 2. 读最新余额
		acct, err := s.accounts.Find(ctx, accountNumber, cardID)
		if err != nil {
			return 0, err
		}

		// 3. 计算候选余额，取款不得透支
		candidate := acct.Balance + amount
		if kind == domain.Withdrawal {
			candidate = acct.Balance - amount
			if candidate < 0 {
				return 0, domain.ErrInsufficientFunds
			}
		}

		// 4. 带版本写回，被并发写入抢先则重试整个循环
		err = s.accounts.UpdateBalance(ctx, acct, candidate)
		if errors.Is(err, domain.ErrStaleWrite) {
			if attempt >= s.retryBudget {
				s.logger.Warn("retry budget exhausted",
					zap.Uint32("account_number", accountNumber),
					zap.Int("attempts", attempt),
				)
				return 0, domain.ErrBusy
			}
			s.logger.Warn("stale write, retrying",
				zap.Uint32("account_number", accountNumber),
				zap.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			return 0, err
		}

		// 5. 余额已落盘，追加交易记录
		entry := &domain.TransactionEntry{
			EntryID:          uuid.NewString(),
			AccountNumber:    accountNumber,
			CardID:           cardID,
			Kind:             kind,
			Amount:           amount,
			ResultingBalance: candidate,
		}
		if err := s.log.Append(ctx, entry); err != nil {
			return 0, err
		}

		s.logger.Info("ledger entry recorded",
			zap.Uint32("account_number", accountNumber),
			zap.String("kind", string(kind)),
			zap.Int64("amount", amount),
			zap.Int64("balance", candidate),
		)
		return candidate, nil
	}
}

// Statement 重建对账单：纯读、无副作用、可重复
// asOf 非零时做 point-in-time 查询，零值表示"到现在为止"
func (s *LedgerService) Statement(ctx context.Context, accountNumber, cardID uint32, asOf time.Time) ([]string, error) {
	entries, err := s.log.History(ctx, accountNumber, cardID, asOf)
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(entries))
	for i := range entries {
		lines = append(lines, entries[i].Render())
	}
	return lines, nil
}
