package repository

import (
	"context"
	"errors"

	"hardmine/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDuplicatePayment = errors.New("payment already processed")

type PaymentRepository struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// CreateWithTx records a payment once per tx hash.
func (r *PaymentRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, p *domain.Payment) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO payments (user_id, tx_hash, currency, amount)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tx_hash) DO NOTHING
		RETURNING id, created_at`,
		p.UserID, p.TxHash, p.Currency, p.Amount,
	).Scan(&p.ID, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDuplicatePayment
	}
	return err
}

// TxHashExists checks if a transaction hash was already credited
func (r *PaymentRepository) TxHashExists(ctx context.Context, txHash string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM payments WHERE tx_hash = $1)`, txHash).Scan(&exists)
	return exists, err
}
