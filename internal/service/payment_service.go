package service

import (
	"context"
	"errors"
	"fmt"

	"hardmine/internal/domain"
	"hardmine/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrInvalidPayment = errors.New("invalid payment")

// PaymentConfirmed is the event emitted by the wallet integration once an
// on-chain payment is final.
type PaymentConfirmed struct {
	TxHash   string          `json:"tx_hash"`
	UserID   int64           `json:"user_id"`
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

func (p PaymentConfirmed) Validate() error {
	switch {
	case p.TxHash == "":
		return fmt.Errorf("%w: missing tx hash", ErrInvalidPayment)
	case p.UserID <= 0:
		return fmt.Errorf("%w: missing user", ErrInvalidPayment)
	case !domain.ValidCurrency(p.Currency):
		return fmt.Errorf("%w: currency %q", ErrInvalidPayment, p.Currency)
	case !p.Amount.IsPositive():
		return fmt.Errorf("%w: amount %s", ErrInvalidPayment, p.Amount)
	}
	return nil
}

type PaymentService struct {
	db       *pgxpool.Pool
	payments *repository.PaymentRepository
	balance  *BalanceService
	audit    *AuditService
}

func NewPaymentService(db *pgxpool.Pool, balance *BalanceService, audit *AuditService) *PaymentService {
	return &PaymentService{
		db:       db,
		payments: repository.NewPaymentRepository(db),
		balance:  balance,
		audit:    audit,
	}
}

// Confirm credits a confirmed payment exactly once per tx hash. A replayed
// event returns credited=false and no error.
func (s *PaymentService) Confirm(ctx context.Context, ev PaymentConfirmed) (bool, error) {
	if err := ev.Validate(); err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	p := &domain.Payment{UserID: ev.UserID, TxHash: ev.TxHash, Currency: ev.Currency, Amount: ev.Amount}
	if err := s.payments.CreateWithTx(ctx, tx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicatePayment) {
			return false, nil
		}
		return false, err
	}
	if _, err := s.balance.CreditWithTx(ctx, tx, ev.UserID, ev.Currency, ev.Amount, domain.TxPayment,
		map[string]interface{}{"tx_hash": ev.TxHash}); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}

	s.audit.Log(ctx, ev.UserID, domain.AuditActionPaymentCredit, domain.AuditCategoryPayment, map[string]interface{}{
		"tx_hash":  ev.TxHash,
		"currency": ev.Currency,
		"amount":   ev.Amount.String(),
	})
	return true, nil
}
