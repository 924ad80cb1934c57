package service

import (
	"context"
	"errors"

	"hardmine/internal/domain"
	"hardmine/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientFunds = repository.ErrInsufficientFunds
	ErrUserNotFound      = repository.ErrUserNotFound
	ErrInvalidAmount     = errors.New("invalid amount")
)

// BalanceService handles CS and CHST balance changes with a ledger entry for each.
type BalanceService struct {
	db              *pgxpool.Pool
	userRepo        *repository.UserRepository
	transactionRepo *repository.TransactionRepository
}

func NewBalanceService(db *pgxpool.Pool) *BalanceService {
	return &BalanceService{
		db:              db,
		userRepo:        repository.NewUserRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
	}
}

// Credit adds amount to the user's balance in its own transaction.
func (s *BalanceService) Credit(ctx context.Context, userID int64, currency string, amount decimal.Decimal, txType string, meta map[string]interface{}) (decimal.Decimal, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return decimal.Zero, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	balance, err := s.CreditWithTx(ctx, tx, userID, currency, amount, txType, meta)
	if err != nil {
		return decimal.Zero, err
	}
	return balance, tx.Commit(ctx)
}

// CreditWithTx adds amount within an existing transaction
func (s *BalanceService) CreditWithTx(ctx context.Context, tx pgx.Tx, userID int64, currency string, amount decimal.Decimal, txType string, meta map[string]interface{}) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return s.applyWithTx(ctx, tx, userID, currency, amount, txType, meta)
}

// DebitWithTx deducts amount within an existing transaction
func (s *BalanceService) DebitWithTx(ctx context.Context, tx pgx.Tx, userID int64, currency string, amount decimal.Decimal, txType string, meta map[string]interface{}) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return s.applyWithTx(ctx, tx, userID, currency, amount.Neg(), txType, meta)
}

func (s *BalanceService) applyWithTx(ctx context.Context, tx pgx.Tx, userID int64, currency string, delta decimal.Decimal, txType string, meta map[string]interface{}) (decimal.Decimal, error) {
	balance, err := s.userRepo.AdjustBalanceWithTx(ctx, tx, userID, currency, delta)
	if err != nil {
		return decimal.Zero, err
	}

	transaction := &domain.Transaction{
		UserID:   userID,
		Type:     txType,
		Currency: currency,
		Amount:   delta,
		Meta:     meta,
	}
	if err := s.transactionRepo.CreateWithTx(ctx, tx, transaction); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// GetTransactionHistory returns user's transaction history
func (s *BalanceService) GetTransactionHistory(ctx context.Context, userID int64, limit int) ([]*domain.Transaction, error) {
	return s.transactionRepo.GetByUserID(ctx, userID, limit)
}
