package repository

import (
	"context"
	"encoding/json"

	"hardmine/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const insertTransactionSQL = `INSERT INTO transactions (user_id, type, currency, amount, meta)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, created_at`

type TransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func metaJSON(meta map[string]interface{}) []byte {
	if meta == nil {
		return []byte("{}")
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return []byte("{}")
	}
	return b
}

// GetByUserID returns recent transactions for a user
func (r *TransactionRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, type, currency, amount, meta, created_at
		 FROM transactions
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// CreateWithTx inserts a transaction using an existing database transaction
func (r *TransactionRepository) CreateWithTx(ctx context.Context, dbTx pgx.Tx, tx *domain.Transaction) error {
	return dbTx.QueryRow(ctx, insertTransactionSQL,
		tx.UserID, tx.Type, tx.Currency, tx.Amount, metaJSON(tx.Meta),
	).Scan(&tx.ID, &tx.CreatedAt)
}

func scanTransactions(rows pgx.Rows) ([]*domain.Transaction, error) {
	var result []*domain.Transaction
	for rows.Next() {
		var (
			tx   domain.Transaction
			meta []byte
		)
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Type, &tx.Currency, &tx.Amount, &meta, &tx.CreatedAt); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &tx.Meta)
		}
		result = append(result, &tx)
	}
	return result, rows.Err()
}
